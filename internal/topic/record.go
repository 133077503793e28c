// Package topic turns SNS topic listings into graph records and loads them
// as AwsSnsTopic nodes owned by an AWSAccount.
package topic

// Source keys of a Record, as referenced by the node schema.
const (
	KeyTopicArn                = "TopicArn"
	KeyTopicName               = "TopicName"
	KeyDisplayName             = "DisplayName"
	KeyOwner                   = "Owner"
	KeySubscriptionsPending    = "SubscriptionsPending"
	KeySubscriptionsConfirmed  = "SubscriptionsConfirmed"
	KeySubscriptionsDeleted    = "SubscriptionsDeleted"
	KeyDeliveryPolicy          = "DeliveryPolicy"
	KeyEffectiveDeliveryPolicy = "EffectiveDeliveryPolicy"
	KeyKmsMasterKeyID          = "KmsMasterKeyId"
	KeyRegion                  = "Region"
)

// Record is one transformed SNS topic.
type Record struct {
	TopicArn                string
	TopicName               string
	DisplayName             string
	Owner                   string
	SubscriptionsPending    int64
	SubscriptionsConfirmed  int64
	SubscriptionsDeleted    int64
	DeliveryPolicy          string
	EffectiveDeliveryPolicy string
	KmsMasterKeyID          string
	Region                  string
}

// Properties returns the record keyed by source key.
func (r Record) Properties() map[string]any {
	return map[string]any{
		KeyTopicArn:                r.TopicArn,
		KeyTopicName:               r.TopicName,
		KeyDisplayName:             r.DisplayName,
		KeyOwner:                   r.Owner,
		KeySubscriptionsPending:    r.SubscriptionsPending,
		KeySubscriptionsConfirmed:  r.SubscriptionsConfirmed,
		KeySubscriptionsDeleted:    r.SubscriptionsDeleted,
		KeyDeliveryPolicy:          r.DeliveryPolicy,
		KeyEffectiveDeliveryPolicy: r.EffectiveDeliveryPolicy,
		KeyKmsMasterKeyID:          r.KmsMasterKeyID,
		KeyRegion:                  r.Region,
	}
}
