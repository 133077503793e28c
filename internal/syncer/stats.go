package syncer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/NissesSenap/aws-sns-graph/internal/graph"
)

const metricPrefix = "sns_graph."

type stats struct {
	runs     metric.Int64Counter
	topics   metric.Int64Counter
	deleted  metric.Int64Counter
	duration metric.Float64Histogram
}

func newStats(m metric.Meter) (*stats, error) {
	var (
		st  stats
		err error
	)
	if st.runs, err = m.Int64Counter(metricPrefix+"runs",
		metric.WithDescription("Finished sync and replay runs")); err != nil {
		return nil, err
	}
	if st.topics, err = m.Int64Counter(metricPrefix+"topics.loaded",
		metric.WithDescription("SNS topics written to the graph")); err != nil {
		return nil, err
	}
	if st.deleted, err = m.Int64Counter(metricPrefix+"cleanup.deleted",
		metric.WithDescription("Stale graph entities removed by cleanup")); err != nil {
		return nil, err
	}
	if st.duration, err = m.Float64Histogram(metricPrefix+"run.duration",
		metric.WithDescription("Wall time of a run"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return &st, nil
}

func (st *stats) topicsLoaded(ctx context.Context, region string, n int) {
	st.topics.Add(ctx, int64(n), metric.WithAttributes(attribute.String("region", region)))
}

func (st *stats) runFinished(ctx context.Context, source string, cleanup graph.CleanupResult, d time.Duration) {
	src := attribute.String("source", source)
	st.runs.Add(ctx, 1, metric.WithAttributes(src))
	st.deleted.Add(ctx, cleanup.Nodes, metric.WithAttributes(src, attribute.String("kind", "nodes")))
	st.deleted.Add(ctx, cleanup.Relationships, metric.WithAttributes(src, attribute.String("kind", "relationships")))
	st.duration.Record(ctx, d.Seconds(), metric.WithAttributes(src))
}
