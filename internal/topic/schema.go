package topic

import "github.com/NissesSenap/aws-sns-graph/internal/graph"

const (
	// Label of topic nodes.
	Label = "AwsSnsTopic"
	// AccountLabel of the owning account nodes.
	AccountLabel = "AWSAccount"
	// RelLabel of the account -> topic edge.
	RelLabel = "RESOURCE"
)

// Call-time parameter names shared by load and cleanup.
const (
	ParamUpdateTag = "lastupdated"
	ParamRegion    = "Region"
	ParamAccountID = "AWS_ID"
)

// Schema describes AwsSnsTopic nodes and their (AWSAccount)-[:RESOURCE]->
// edge. The same description drives both graph writers.
var Schema = &graph.NodeSchema{
	Label:       Label,
	KeyProperty: "id",
	Properties: []graph.Property{
		{Name: "id", Ref: graph.Ref(KeyTopicArn)},
		{Name: "arn", Ref: graph.IndexedRef(KeyTopicArn)},
		{Name: "name", Ref: graph.Ref(KeyTopicName)},
		{Name: "displayname", Ref: graph.Ref(KeyDisplayName)},
		{Name: "owner", Ref: graph.Ref(KeyOwner)},
		{Name: "subscriptionspending", Ref: graph.Ref(KeySubscriptionsPending)},
		{Name: "subscriptionsconfirmed", Ref: graph.Ref(KeySubscriptionsConfirmed)},
		{Name: "subscriptionsdeleted", Ref: graph.Ref(KeySubscriptionsDeleted)},
		{Name: "deliverypolicy", Ref: graph.Ref(KeyDeliveryPolicy)},
		{Name: "effectivedeliverypolicy", Ref: graph.Ref(KeyEffectiveDeliveryPolicy)},
		{Name: "kmsmasterkeyid", Ref: graph.Ref(KeyKmsMasterKeyID)},
		{Name: "region", Ref: graph.ContextRef(ParamRegion)},
		{Name: graph.FreshnessProperty, Ref: graph.ContextRef(ParamUpdateTag)},
	},
	SubResource: &graph.RelSchema{
		TargetLabel: AccountLabel,
		TargetKey:   "id",
		TargetRef:   graph.ContextRef(ParamAccountID),
		Direction:   graph.Inward,
		Label:       RelLabel,
		Properties: []graph.Property{
			{Name: graph.FreshnessProperty, Ref: graph.ContextRef(ParamUpdateTag)},
		},
	},
}
