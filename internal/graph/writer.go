package graph

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("github.com/NissesSenap/aws-sns-graph/internal/graph")

const (
	// DefaultBatchSize is the number of items per UNWIND statement.
	DefaultBatchSize = 10000
	// DefaultCleanupLimit caps the nodes or edges deleted by one sweep statement.
	DefaultCleanupLimit = 10000
)

// Writer is one of the two write strategies: modern for 4.x+ servers and
// legacy for 3.x servers. The interface is sealed; use WriterFor,
// NewModernWriter or NewLegacyWriter.
type Writer interface {
	// Variant names the strategy, "modern" or "legacy".
	Variant() string

	ensureIndexes(ctx context.Context, s Session, schema *NodeSchema) error
	load(ctx context.Context, s Session, schema *NodeSchema, items []map[string]any, kwargs Params) error
	sweep(ctx context.Context, s Session, schema *NodeSchema, kwargs Params, kind sweepKind) (int64, error)
	cleanupLimit() int64
}

// sweepKind selects the stale set one sweep statement deletes from.
type sweepKind int

const (
	staleNodes sweepKind = iota
	staleEdges
)

func (k sweepKind) String() string {
	if k == staleEdges {
		return "relationships"
	}
	return "nodes"
}

// WriterFor selects the strategy for the given server version.
func WriterFor(v Version) Writer {
	if v.Modern() {
		return NewModernWriter(DefaultBatchSize, DefaultCleanupLimit)
	}
	return NewLegacyWriter(DefaultCleanupLimit)
}

// DetectWriter probes the server version and selects the strategy.
func DetectWriter(ctx context.Context, s Session) (Writer, error) {
	v, err := DetectVersion(ctx, s)
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Debug().
		Str("version", v.Raw).
		Float64("major_minor", v.Float()).
		Bool("modern", v.Modern()).
		Msg("Detected graph store version")
	return WriterFor(v), nil
}

// CleanupResult counts what a sweep removed.
type CleanupResult struct {
	Nodes         int64
	Relationships int64
}

// Load upserts items as nodes of schema, and their sub-resource edges,
// with w. kwargs carries the call-time values the schema refers to.
func Load(ctx context.Context, s Session, w Writer, schema *NodeSchema, items []map[string]any, kwargs Params) error {
	ctx, span := tracer.Start(ctx, "graph.Load")
	defer span.End()
	span.SetAttributes(
		attribute.String("graph.label", schema.Label),
		attribute.String("graph.writer", w.Variant()),
		attribute.Int("graph.items", len(items)),
	)

	if err := schema.Validate(); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	if err := w.ensureIndexes(ctx, s, schema); err != nil {
		return fmt.Errorf("failed to ensure indexes for %s: %w", schema.Label, err)
	}
	if err := w.load(ctx, s, schema, items, kwargs); err != nil {
		return fmt.Errorf("failed to load %d %s nodes: %w", len(items), schema.Label, err)
	}
	return nil
}

// Reconcile deletes nodes of schema, and sub-resource edges, whose freshness
// tag differs from the one in kwargs. Each sweep statement is bounded, so
// Reconcile repeats it until a pass removes fewer than the writer's cap.
// Stale nodes go first: their edges anchor the account-scoped match.
func Reconcile(ctx context.Context, s Session, w Writer, schema *NodeSchema, kwargs Params) (CleanupResult, error) {
	ctx, span := tracer.Start(ctx, "graph.Reconcile")
	defer span.End()

	var total CleanupResult
	if err := schema.Validate(); err != nil {
		return total, err
	}

	n, err := sweepAll(ctx, s, w, schema, kwargs, staleNodes)
	total.Nodes = n
	if err != nil {
		return total, fmt.Errorf("failed to clean up %s nodes: %w", schema.Label, err)
	}

	if schema.SubResource != nil {
		n, err := sweepAll(ctx, s, w, schema, kwargs, staleEdges)
		total.Relationships = n
		if err != nil {
			return total, fmt.Errorf("failed to clean up %s relationships: %w", schema.Label, err)
		}
	}

	span.SetAttributes(
		attribute.Int64("graph.deleted_nodes", total.Nodes),
		attribute.Int64("graph.deleted_relationships", total.Relationships),
	)
	return total, nil
}

func sweepAll(ctx context.Context, s Session, w Writer, schema *NodeSchema, kwargs Params, kind sweepKind) (int64, error) {
	var total int64
	for pass := 1; ; pass++ {
		n, err := w.sweep(ctx, s, schema, kwargs, kind)
		if err != nil {
			return total, err
		}
		total += n

		zerolog.Ctx(ctx).Debug().
			Str("label", schema.Label).
			Str("writer", w.Variant()).
			Stringer("kind", kind).
			Int("pass", pass).
			Int64("deleted", n).
			Msg("Cleanup pass finished")

		if n < w.cleanupLimit() {
			return total, nil
		}
	}
}

// CompatibleLoad probes the server version and loads with the matching writer.
func CompatibleLoad(ctx context.Context, s Session, schema *NodeSchema, items []map[string]any, kwargs Params) error {
	w, err := DetectWriter(ctx, s)
	if err != nil {
		return err
	}
	return Load(ctx, s, w, schema, items, kwargs)
}

// CompatibleCleanup reconciles with the writer matching the server version.
// A non-nil override skips the version probe.
func CompatibleCleanup(ctx context.Context, s Session, schema *NodeSchema, kwargs Params, override *Version) (CleanupResult, error) {
	var w Writer
	if override != nil {
		w = WriterFor(*override)
	} else {
		var err error
		if w, err = DetectWriter(ctx, s); err != nil {
			return CleanupResult{}, err
		}
	}
	return Reconcile(ctx, s, w, schema, kwargs)
}

func freshnessTag(schema *NodeSchema, kwargs Params) (any, error) {
	for _, p := range schema.Properties {
		if p.Name == FreshnessProperty {
			if v := resolve(p.Ref, nil, kwargs); v != nil {
				return v, nil
			}
			return nil, fmt.Errorf("missing %s parameter %s", FreshnessProperty, p.Ref.Name)
		}
	}
	return nil, fmt.Errorf("node schema %s has no %s property", schema.Label, FreshnessProperty)
}

func targetValue(schema *NodeSchema, kwargs Params) any {
	if schema.SubResource == nil {
		return nil
	}
	return kwargs[schema.SubResource.TargetRef.Name]
}

func deletedCount(recs []Record) int64 {
	if len(recs) == 0 {
		return 0
	}
	switch v := recs[0]["deleted"].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

func limitLiteral(limit int64) string {
	return strconv.FormatInt(limit, 10)
}

func runSweep(ctx context.Context, s Session, cypher string, params map[string]any) (int64, error) {
	if cypher == "" {
		return 0, nil
	}
	recs, err := s.Run(ctx, cypher, params)
	if err != nil {
		return 0, err
	}
	return deletedCount(recs), nil
}
