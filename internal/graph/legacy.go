package graph

import (
	"context"
	"fmt"
)

type legacyWriter struct {
	limit int64
}

// NewLegacyWriter returns the 3.x strategy. 3.x rejects
// CREATE INDEX IF NOT EXISTS, so indexes use the old ON :Label(prop) form,
// and records are merged one statement at a time.
func NewLegacyWriter(limit int64) Writer {
	if limit <= 0 {
		limit = DefaultCleanupLimit
	}
	return &legacyWriter{limit: limit}
}

func (w *legacyWriter) Variant() string { return "legacy" }

func (w *legacyWriter) cleanupLimit() int64 { return w.limit }

func (w *legacyWriter) ensureIndexes(ctx context.Context, s Session, schema *NodeSchema) error {
	// 3.x treats an existing index as a no-op.
	for _, prop := range schema.indexedProperties() {
		if _, err := s.Run(ctx, legacyIndexQuery(schema.Label, prop), nil); err != nil {
			return err
		}
	}
	if rel := schema.SubResource; rel != nil {
		if _, err := s.Run(ctx, legacyIndexQuery(rel.TargetLabel, rel.TargetKey), nil); err != nil {
			return err
		}
	}
	return nil
}

func (w *legacyWriter) load(ctx context.Context, s Session, schema *NodeSchema, items []map[string]any, kwargs Params) error {
	nodeQuery := buildLegacyNodeQuery(schema)

	var relQuery string
	target := targetValue(schema, kwargs)
	if schema.SubResource != nil && target != nil {
		relQuery = buildLegacyRelQuery(schema)
	}

	for i, item := range items {
		props := nodeProperties(schema, item, kwargs)
		if _, err := s.Run(ctx, nodeQuery, props); err != nil {
			return fmt.Errorf("item %d (%v): %w", i, props[schema.KeyProperty], err)
		}

		if relQuery == "" {
			continue
		}
		params := map[string]any{
			schema.KeyProperty: props[schema.KeyProperty],
			"target_id":        target,
		}
		for _, p := range schema.SubResource.Properties {
			params["rel_"+p.Name] = resolve(p.Ref, item, kwargs)
		}
		if _, err := s.Run(ctx, relQuery, params); err != nil {
			return fmt.Errorf("item %d (%v) relationship: %w", i, props[schema.KeyProperty], err)
		}
	}
	return nil
}

// nodeProperties builds the per-record property map restricted to the
// fields the schema declares.
func nodeProperties(schema *NodeSchema, item map[string]any, kwargs Params) map[string]any {
	props := make(map[string]any, len(schema.Properties))
	for _, p := range schema.Properties {
		props[p.Name] = resolve(p.Ref, item, kwargs)
	}
	return props
}

func (w *legacyWriter) sweep(ctx context.Context, s Session, schema *NodeSchema, kwargs Params, kind sweepKind) (int64, error) {
	tag, err := freshnessTag(schema, kwargs)
	if err != nil {
		return 0, err
	}

	q := buildCleanupQueries(schema, "update_tag", "target_id", limitLiteral(w.limit))
	params := map[string]any{
		"update_tag": tag,
		"target_id":  targetValue(schema, kwargs),
	}

	return runSweep(ctx, s, q.statement(kind), params)
}
