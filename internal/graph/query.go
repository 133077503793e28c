package graph

import (
	"fmt"
	"strings"
)

// FreshnessProperty carries the sync run identifier on nodes and edges.
const FreshnessProperty = "lastupdated"

// Statements are emitted one clause per line.

func modernIndexQuery(label, prop string) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS FOR (n:%s) ON (n.%s)", label, prop)
}

func legacyIndexQuery(label, prop string) string {
	return fmt.Sprintf("CREATE INDEX ON :%s(%s)", label, prop)
}

// buildIngestionQuery builds the batched UNWIND/MERGE statement used on
// 4.x+ servers. Item values are read from item.<source>, call-time values
// from $<source>.
func buildIngestionQuery(s *NodeSchema) string {
	key := s.Key()

	lines := []string{
		"UNWIND $batch AS item",
		fmt.Sprintf("MERGE (i:%s {%s: item.%s})", s.Label, key.Name, key.Ref.Name),
		"ON CREATE SET i.firstseen = timestamp()",
	}
	if set := assignments("i", s.Properties, s.KeyProperty, modernSource); set != "" {
		lines = append(lines, "SET "+set)
	}

	if rel := s.SubResource; rel != nil {
		lines = append(lines,
			"WITH i, item",
			fmt.Sprintf("MATCH (j:%s {%s: $%s})", rel.TargetLabel, rel.TargetKey, rel.TargetRef.Name),
			"MERGE "+relPattern("i", "j", rel, false),
			"ON CREATE SET r.firstseen = timestamp()",
		)
		if set := assignments("r", rel.Properties, "", modernSource); set != "" {
			lines = append(lines, "SET "+set)
		}
	}
	return strings.Join(lines, "\n")
}

// buildLegacyNodeQuery builds the per-record node merge used on 3.x servers.
// Every parameter is named after the graph property it sets.
func buildLegacyNodeQuery(s *NodeSchema) string {
	lines := []string{
		fmt.Sprintf("MERGE (n:%s {%s: $%s})", s.Label, s.KeyProperty, s.KeyProperty),
		"ON CREATE SET n.firstseen = timestamp()",
	}
	if set := assignments("n", s.Properties, s.KeyProperty, legacySource); set != "" {
		lines = append(lines, "SET "+set)
	}
	return strings.Join(lines, "\n")
}

// buildLegacyRelQuery builds the per-record sub-resource edge merge used on
// 3.x servers. A missing target matches nothing and creates no edge.
func buildLegacyRelQuery(s *NodeSchema) string {
	rel := s.SubResource
	lines := []string{
		fmt.Sprintf("MATCH (n:%s {%s: $%s}), (a:%s {%s: $target_id})",
			s.Label, s.KeyProperty, s.KeyProperty, rel.TargetLabel, rel.TargetKey),
		"MERGE " + relPattern("n", "a", rel, true),
		"ON CREATE SET r.firstseen = timestamp()",
	}
	if set := assignments("r", rel.Properties, "", legacyRelSource); set != "" {
		lines = append(lines, "SET "+set)
	}
	return strings.Join(lines, "\n")
}

// cleanupQueries holds the node and edge sweep statements for one schema.
type cleanupQueries struct {
	nodes string
	rels  string
}

// buildCleanupQueries builds the stale node and stale edge sweeps. tagParam
// and limit are spliced in by the caller's dialect: modern binds the cap as
// a parameter, legacy inlines the literal.
func buildCleanupQueries(s *NodeSchema, tagParam, targetParam, limit string) cleanupQueries {
	match := fmt.Sprintf("MATCH (n:%s)", s.Label)
	if rel := s.SubResource; rel != nil {
		target := fmt.Sprintf("(:%s {%s: $%s})", rel.TargetLabel, rel.TargetKey, targetParam)
		if rel.Direction == Inward {
			match = fmt.Sprintf("MATCH (n:%s)<-[s:%s]-%s", s.Label, rel.Label, target)
		} else {
			match = fmt.Sprintf("MATCH (n:%s)-[s:%s]->%s", s.Label, rel.Label, target)
		}
	}

	q := cleanupQueries{
		nodes: strings.Join([]string{
			match,
			fmt.Sprintf("WHERE n.%s <> $%s", FreshnessProperty, tagParam),
			"WITH n LIMIT " + limit,
			"DETACH DELETE n",
			"RETURN count(*) AS deleted",
		}, "\n"),
	}
	if s.SubResource != nil {
		q.rels = strings.Join([]string{
			match,
			fmt.Sprintf("WHERE s.%s <> $%s", FreshnessProperty, tagParam),
			"WITH s LIMIT " + limit,
			"DELETE s",
			"RETURN count(*) AS deleted",
		}, "\n")
	}
	return q
}

func (q cleanupQueries) statement(kind sweepKind) string {
	if kind == staleEdges {
		return q.rels
	}
	return q.nodes
}

// relPattern writes the edge pattern with the arrow pointing the way the
// schema says. Modern statements anchor on the node, legacy ones on the target.
func relPattern(node, target string, rel *RelSchema, anchorTarget bool) string {
	switch {
	case rel.Direction == Outward:
		return fmt.Sprintf("(%s)-[r:%s]->(%s)", node, rel.Label, target)
	case anchorTarget:
		return fmt.Sprintf("(%s)-[r:%s]->(%s)", target, rel.Label, node)
	default:
		return fmt.Sprintf("(%s)<-[r:%s]-(%s)", node, rel.Label, target)
	}
}

type sourceFunc func(p Property) string

func modernSource(p Property) string {
	if p.Ref.FromContext {
		return "$" + p.Ref.Name
	}
	return "item." + p.Ref.Name
}

func legacySource(p Property) string {
	return "$" + p.Name
}

func legacyRelSource(p Property) string {
	return "$rel_" + p.Name
}

func assignments(variable string, props []Property, skip string, source sourceFunc) string {
	parts := make([]string, 0, len(props))
	for _, p := range props {
		if p.Name == skip {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s.%s = %s", variable, p.Name, source(p)))
	}
	return strings.Join(parts, ", ")
}
