package graph

import (
	"context"
	"fmt"
)

type modernWriter struct {
	batchSize int
	limit     int64
}

// NewModernWriter returns the 4.x+ strategy: idempotent index creation and
// batched UNWIND ingestion.
func NewModernWriter(batchSize int, limit int64) Writer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if limit <= 0 {
		limit = DefaultCleanupLimit
	}
	return &modernWriter{batchSize: batchSize, limit: limit}
}

func (w *modernWriter) Variant() string { return "modern" }

func (w *modernWriter) cleanupLimit() int64 { return w.limit }

func (w *modernWriter) ensureIndexes(ctx context.Context, s Session, schema *NodeSchema) error {
	for _, prop := range schema.indexedProperties() {
		if _, err := s.Run(ctx, modernIndexQuery(schema.Label, prop), nil); err != nil {
			return err
		}
	}
	if rel := schema.SubResource; rel != nil {
		if _, err := s.Run(ctx, modernIndexQuery(rel.TargetLabel, rel.TargetKey), nil); err != nil {
			return err
		}
	}
	return nil
}

func (w *modernWriter) load(ctx context.Context, s Session, schema *NodeSchema, items []map[string]any, kwargs Params) error {
	query := buildIngestionQuery(schema)

	for start := 0; start < len(items); start += w.batchSize {
		end := min(start+w.batchSize, len(items))

		params := make(map[string]any, len(kwargs)+1)
		for k, v := range kwargs {
			params[k] = v
		}
		params["batch"] = items[start:end]

		if _, err := s.Run(ctx, query, params); err != nil {
			return fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
	}
	return nil
}

func (w *modernWriter) sweep(ctx context.Context, s Session, schema *NodeSchema, kwargs Params, kind sweepKind) (int64, error) {
	tag, err := freshnessTag(schema, kwargs)
	if err != nil {
		return 0, err
	}

	targetParam := ""
	if rel := schema.SubResource; rel != nil {
		targetParam = rel.TargetRef.Name
	}
	q := buildCleanupQueries(schema, "UPDATE_TAG", targetParam, "$LIMIT_SIZE")

	params := map[string]any{
		"UPDATE_TAG": tag,
		"LIMIT_SIZE": w.limit,
	}
	if targetParam != "" {
		params[targetParam] = targetValue(schema, kwargs)
	}

	return runSweep(ctx, s, q.statement(kind), params)
}
