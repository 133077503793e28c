package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func widgetSchema() *NodeSchema {
	return &NodeSchema{
		Label:       "Widget",
		KeyProperty: "id",
		Properties: []Property{
			{Name: "id", Ref: Ref("Id")},
			{Name: "arn", Ref: IndexedRef("Arn")},
			{Name: "size", Ref: Ref("Size")},
			{Name: "region", Ref: ContextRef("Region")},
			{Name: FreshnessProperty, Ref: ContextRef("lastupdated")},
		},
		SubResource: &RelSchema{
			TargetLabel: "Account",
			TargetKey:   "id",
			TargetRef:   ContextRef("ACCOUNT_ID"),
			Direction:   Inward,
			Label:       "OWNS",
			Properties: []Property{
				{Name: FreshnessProperty, Ref: ContextRef("lastupdated")},
			},
		},
	}
}

func TestIndexQueries(t *testing.T) {
	assert.Equal(t, "CREATE INDEX IF NOT EXISTS FOR (n:Widget) ON (n.arn)", modernIndexQuery("Widget", "arn"))
	assert.Equal(t, "CREATE INDEX ON :Widget(arn)", legacyIndexQuery("Widget", "arn"))
}

func TestBuildIngestionQuery(t *testing.T) {
	want := `UNWIND $batch AS item
MERGE (i:Widget {id: item.Id})
ON CREATE SET i.firstseen = timestamp()
SET i.arn = item.Arn, i.size = item.Size, i.region = $Region, i.lastupdated = $lastupdated
WITH i, item
MATCH (j:Account {id: $ACCOUNT_ID})
MERGE (i)<-[r:OWNS]-(j)
ON CREATE SET r.firstseen = timestamp()
SET r.lastupdated = $lastupdated`

	assert.Equal(t, want, buildIngestionQuery(widgetSchema()))
}

func TestBuildIngestionQuery_NoSubResource(t *testing.T) {
	s := widgetSchema()
	s.SubResource = nil

	q := buildIngestionQuery(s)
	assert.NotContains(t, q, "MATCH")
	assert.NotContains(t, q, "WITH")
}

func TestBuildLegacyQueries(t *testing.T) {
	wantNode := `MERGE (n:Widget {id: $id})
ON CREATE SET n.firstseen = timestamp()
SET n.arn = $arn, n.size = $size, n.region = $region, n.lastupdated = $lastupdated`
	wantRel := `MATCH (n:Widget {id: $id}), (a:Account {id: $target_id})
MERGE (a)-[r:OWNS]->(n)
ON CREATE SET r.firstseen = timestamp()
SET r.lastupdated = $rel_lastupdated`

	assert.Equal(t, wantNode, buildLegacyNodeQuery(widgetSchema()))
	assert.Equal(t, wantRel, buildLegacyRelQuery(widgetSchema()))
}

func TestBuildCleanupQueries(t *testing.T) {
	q := buildCleanupQueries(widgetSchema(), "UPDATE_TAG", "ACCOUNT_ID", "$LIMIT_SIZE")

	assert.Equal(t, `MATCH (n:Widget)<-[s:OWNS]-(:Account {id: $ACCOUNT_ID})
WHERE n.lastupdated <> $UPDATE_TAG
WITH n LIMIT $LIMIT_SIZE
DETACH DELETE n
RETURN count(*) AS deleted`, q.nodes)

	assert.Equal(t, `MATCH (n:Widget)<-[s:OWNS]-(:Account {id: $ACCOUNT_ID})
WHERE s.lastupdated <> $UPDATE_TAG
WITH s LIMIT $LIMIT_SIZE
DELETE s
RETURN count(*) AS deleted`, q.rels)
}

func TestBuildCleanupQueries_Legacy(t *testing.T) {
	q := buildCleanupQueries(widgetSchema(), "update_tag", "target_id", limitLiteral(10000))
	assert.Contains(t, q.nodes, "WITH n LIMIT 10000")
	assert.Contains(t, q.nodes, "(:Account {id: $target_id})")
	assert.Contains(t, q.rels, "WHERE s.lastupdated <> $update_tag")
}

func TestBuildCleanupQueries_NoSubResource(t *testing.T) {
	s := widgetSchema()
	s.SubResource = nil

	q := buildCleanupQueries(s, "UPDATE_TAG", "", "10")
	assert.Contains(t, q.nodes, "MATCH (n:Widget)\n")
	assert.Empty(t, q.rels)
}

func TestRelPattern(t *testing.T) {
	rel := &RelSchema{Label: "OWNS", Direction: Inward}
	assert.Equal(t, "(i)<-[r:OWNS]-(j)", relPattern("i", "j", rel, false))
	assert.Equal(t, "(a)-[r:OWNS]->(n)", relPattern("n", "a", rel, true))

	rel.Direction = Outward
	assert.Equal(t, "(i)-[r:OWNS]->(j)", relPattern("i", "j", rel, false))
	assert.Equal(t, "(n)-[r:OWNS]->(a)", relPattern("n", "a", rel, true))
}

func TestNodeSchemaValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *NodeSchema)
		wantErr string
	}{
		{name: "valid", mutate: func(*NodeSchema) {}},
		{name: "no label", mutate: func(s *NodeSchema) { s.Label = "" }, wantErr: "no label"},
		{name: "no key", mutate: func(s *NodeSchema) { s.KeyProperty = "" }, wantErr: "no key property"},
		{name: "undeclared key", mutate: func(s *NodeSchema) { s.KeyProperty = "uid" }, wantErr: "not a declared property"},
		{
			name:    "duplicate property",
			mutate:  func(s *NodeSchema) { s.Properties = append(s.Properties, Property{Name: "size", Ref: Ref("Other")}) },
			wantErr: "twice",
		},
		{
			name:    "context key",
			mutate:  func(s *NodeSchema) { s.Properties[0].Ref = ContextRef("Id") },
			wantErr: "must be item-sourced",
		},
		{
			name:    "incomplete relationship",
			mutate:  func(s *NodeSchema) { s.SubResource.Label = "" },
			wantErr: "incomplete",
		},
		{
			name:    "item-sourced target",
			mutate:  func(s *NodeSchema) { s.SubResource.TargetRef = Ref("Account") },
			wantErr: "call-time params",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := widgetSchema()
			tt.mutate(s)

			err := s.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIndexedProperties(t *testing.T) {
	assert.Equal(t, []string{"id", "arn"}, widgetSchema().indexedProperties())
}

func TestResolve(t *testing.T) {
	item := map[string]any{"Size": int64(3)}
	kwargs := Params{"Region": "us-east-1"}

	assert.Equal(t, int64(3), resolve(Ref("Size"), item, kwargs))
	assert.Equal(t, "us-east-1", resolve(ContextRef("Region"), item, kwargs))
	assert.Nil(t, resolve(Ref("Missing"), item, kwargs))
	assert.Nil(t, resolve(ContextRef("Missing"), item, kwargs))
}

func TestFreshnessTag(t *testing.T) {
	tag, err := freshnessTag(widgetSchema(), Params{"lastupdated": int64(7)})
	require.NoError(t, err)
	assert.Equal(t, int64(7), tag)

	_, err = freshnessTag(widgetSchema(), Params{})
	assert.Error(t, err)
}

func TestDeletedCount(t *testing.T) {
	assert.Equal(t, int64(0), deletedCount(nil))
	assert.Equal(t, int64(4), deletedCount([]Record{{"deleted": int64(4)}}))
	assert.Equal(t, int64(2), deletedCount([]Record{{"deleted": 2}}))
	assert.Equal(t, int64(0), deletedCount([]Record{{"deleted": "x"}}))
}
