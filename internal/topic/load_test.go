package topic_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NissesSenap/aws-sns-graph/internal/graph"
	"github.com/NissesSenap/aws-sns-graph/internal/graph/graphtest"
	"github.com/NissesSenap/aws-sns-graph/internal/topic"
)

const (
	accountID = "123456789012"
	topic1    = "arn:aws:sns:us-east-1:123456789012:test-topic-1"
	topic2    = "arn:aws:sns:us-east-1:123456789012:test-topic-2"
	topic3    = "arn:aws:sns:us-west-1:123456789012:test-topic-3"
)

var versions = []string{"3.5.12", "4.4.0", "5.26.0"}

func newStore(version string) *graphtest.Session {
	s := graphtest.New(version)
	s.AddNode(topic.AccountLabel, map[string]any{"id": accountID})
	return s
}

func records(t *testing.T, region string, arns ...string) []topic.Record {
	t.Helper()
	attrs := map[string]map[string]string{}
	for _, arn := range arns {
		attrs[arn] = map[string]string{
			"DisplayName":            "display " + arn,
			"Owner":                  accountID,
			"SubscriptionsConfirmed": "2",
		}
	}
	recs, err := topic.Transform(arns, attrs, region)
	require.NoError(t, err)
	return recs
}

func TestSchemaIsValid(t *testing.T) {
	require.NoError(t, topic.Schema.Validate())
	assert.Equal(t, "id", topic.Schema.Key().Name)
}

func TestLoad(t *testing.T) {
	for _, version := range versions {
		t.Run(version, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(version)

			require.NoError(t, topic.Load(ctx, s, records(t, "us-east-1", topic1), "us-east-1", accountID, 1700000000))

			n := s.Node(topic.Label, topic1)
			require.NotNil(t, n)
			assert.Equal(t, topic1, n.Props["arn"])
			assert.Equal(t, "test-topic-1", n.Props["name"])
			assert.Equal(t, "display "+topic1, n.Props["displayname"])
			assert.Equal(t, accountID, n.Props["owner"])
			assert.Equal(t, int64(0), n.Props["subscriptionspending"])
			assert.Equal(t, int64(2), n.Props["subscriptionsconfirmed"])
			assert.Equal(t, int64(0), n.Props["subscriptionsdeleted"])
			assert.Equal(t, "", n.Props["deliverypolicy"])
			assert.Equal(t, "", n.Props["effectivedeliverypolicy"])
			assert.Equal(t, "", n.Props["kmsmasterkeyid"])
			assert.Equal(t, "us-east-1", n.Props["region"])
			assert.Equal(t, int64(1700000000), n.Props["lastupdated"])
			assert.NotNil(t, n.Props["firstseen"])

			rel := s.Rel(topic.RelLabel, s.Node(topic.AccountLabel, accountID), n)
			require.NotNil(t, rel)
			assert.Equal(t, int64(1700000000), rel.Props["lastupdated"])

			assert.Contains(t, s.Indexes(), "AwsSnsTopic(arn)")
			assert.Contains(t, s.Indexes(), "AwsSnsTopic(id)")
			assert.Contains(t, s.Indexes(), "AWSAccount(id)")
		})
	}
}

func TestLoad_NoAccountNode(t *testing.T) {
	for _, version := range versions {
		t.Run(version, func(t *testing.T) {
			s := graphtest.New(version)

			require.NoError(t, topic.Load(context.Background(), s, records(t, "us-east-1", topic1), "us-east-1", accountID, 1))
			assert.Len(t, s.Nodes(topic.Label), 1)
			assert.Empty(t, s.Rels(topic.RelLabel))
		})
	}
}

func TestLoadWith(t *testing.T) {
	s := newStore("5.26.0")
	w := graph.WriterFor(graph.MustParseVersion("5.26.0"))

	require.NoError(t, topic.LoadWith(context.Background(), s, w, records(t, "us-east-1", topic1, topic2), "us-east-1", accountID, 1))
	assert.Len(t, s.Nodes(topic.Label), 2)
	for _, st := range s.Statements() {
		assert.NotContains(t, st.Cypher, "dbms.components")
	}
}

// Sync with {T1, T2} then {T1}: T2 must be gone, T1 carries the new tag.
func TestLoadThenCleanup_RemovesStaleTopic(t *testing.T) {
	for _, version := range versions {
		t.Run(version, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(version)

			require.NoError(t, topic.Load(ctx, s, records(t, "us-east-1", topic1, topic2), "us-east-1", accountID, 100))
			_, err := topic.Cleanup(ctx, s, accountID, 100, nil)
			require.NoError(t, err)
			assert.Len(t, s.Nodes(topic.Label), 2)

			require.NoError(t, topic.Load(ctx, s, records(t, "us-east-1", topic1), "us-east-1", accountID, 200))
			res, err := topic.Cleanup(ctx, s, accountID, 200, nil)
			require.NoError(t, err)
			assert.Equal(t, int64(1), res.Nodes)

			require.Len(t, s.Nodes(topic.Label), 1)
			assert.Nil(t, s.Node(topic.Label, topic2))
			assert.Equal(t, int64(200), s.Node(topic.Label, topic1).Props["lastupdated"])
			assert.Len(t, s.Rels(topic.RelLabel), 1)
		})
	}
}

func TestCleanup_VersionOverride(t *testing.T) {
	ctx := context.Background()
	s := newStore("5.26.0")
	require.NoError(t, topic.Load(ctx, s, records(t, "us-east-1", topic1), "us-east-1", accountID, 1))

	v := graph.MustParseVersion("3.5.12")
	res, err := topic.Cleanup(ctx, s, accountID, 2, &v)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Nodes)
	assert.Empty(t, s.Nodes(topic.Label))
}

func TestCleanup_OtherAccountUntouched(t *testing.T) {
	ctx := context.Background()
	s := newStore("5.26.0")
	s.AddNode(topic.AccountLabel, map[string]any{"id": "999999999999"})

	require.NoError(t, topic.Load(ctx, s, records(t, "us-east-1", topic1), "us-east-1", "999999999999", 1))
	_, err := topic.Cleanup(ctx, s, accountID, 2, nil)
	require.NoError(t, err)
	assert.NotNil(t, s.Node(topic.Label, topic1))
}

func TestLegacyModernEquivalence(t *testing.T) {
	ctx := context.Background()
	legacy, modern := newStore("3.5.12"), newStore("5.26.0")

	for _, s := range []*graphtest.Session{legacy, modern} {
		require.NoError(t, topic.Load(ctx, s, records(t, "us-east-1", topic1, topic2), "us-east-1", accountID, 1))
		require.NoError(t, topic.Load(ctx, s, records(t, "us-west-1", topic3), "us-west-1", accountID, 1))
		require.NoError(t, topic.Load(ctx, s, records(t, "us-east-1", topic1), "us-east-1", accountID, 2))
		require.NoError(t, topic.Load(ctx, s, records(t, "us-west-1", topic3), "us-west-1", accountID, 2))
		_, err := topic.Cleanup(ctx, s, accountID, 2, nil)
		require.NoError(t, err)
	}

	legacyNodes, legacyRels := legacy.Snapshot(topic.Label, topic.RelLabel)
	modernNodes, modernRels := modern.Snapshot(topic.Label, topic.RelLabel)
	assert.Equal(t, legacyNodes, modernNodes)
	assert.Equal(t, legacyRels, modernRels)
	assert.Len(t, modernNodes, 2)
	assert.Equal(t, "us-west-1", modernNodes[topic3]["region"])
}

func TestParams(t *testing.T) {
	assert.Equal(t, graph.Params{
		"lastupdated": int64(5),
		"Region":      "eu-west-1",
		"AWS_ID":      accountID,
	}, topic.Params("eu-west-1", accountID, 5))
}
