// Package syncer drives one SNS inventory pass for an account: fetch every
// region, load it into the graph, then reconcile and record the run.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/NissesSenap/aws-sns-graph/internal/graph"
	"github.com/NissesSenap/aws-sns-graph/internal/storage"
	"github.com/NissesSenap/aws-sns-graph/internal/topic"
)

var tracer = otel.Tracer("github.com/NissesSenap/aws-sns-graph/internal/syncer")

// ErrNoAccount is returned when a run has no account id.
var ErrNoAccount = errors.New("account id is required")

// Fetcher reads the SNS inventory of one region.
type Fetcher interface {
	ListTopics(ctx context.Context, region string) ([]string, error)
	// GetTopicAttributes returns nil when the attributes are unavailable.
	GetTopicAttributes(ctx context.Context, arn, region string) map[string]string
}

// Syncer loads SNS topics into the graph.
type Syncer struct {
	fetcher Fetcher
	session graph.Session
	store   storage.Store
	version *graph.Version
	log     zerolog.Logger
	meter   metric.Meter
	now     func() time.Time
	stats   *stats
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets the logger. It is also attached to the context handed to
// the graph writers.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Syncer) { s.log = l }
}

// WithMeter sets the meter the run statistics are reported to.
func WithMeter(m metric.Meter) Option {
	return func(s *Syncer) { s.meter = m }
}

// WithStore enables snapshots and run history.
func WithStore(store storage.Store) Option {
	return func(s *Syncer) { s.store = store }
}

// WithVersion pins the graph dialect instead of probing the server.
func WithVersion(v graph.Version) Option {
	return func(s *Syncer) { s.version = &v }
}

func withClock(now func() time.Time) Option {
	return func(s *Syncer) { s.now = now }
}

// New creates a Syncer. fetcher may be nil for a Syncer that only replays.
func New(fetcher Fetcher, session graph.Session, opts ...Option) (*Syncer, error) {
	s := &Syncer{
		fetcher: fetcher,
		session: session,
		log:     zerolog.Nop(),
		meter:   noop.NewMeterProvider().Meter(""),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	st, err := newStats(s.meter)
	if err != nil {
		return nil, err
	}
	s.stats = st
	return s, nil
}

// Params identifies one run.
type Params struct {
	AccountID string
	Regions   []string
	// UpdateTag stamps every node and edge of the run. Zero means the
	// current Unix time in milliseconds.
	UpdateTag int64
}

// Result summarizes a finished run.
type Result struct {
	UpdateTag int64
	Topics    map[string]int // per region
	Cleanup   graph.CleanupResult
}

// Total returns the number of topics loaded across all regions.
func (r *Result) Total() int {
	n := 0
	for _, c := range r.Topics {
		n += c
	}
	return n
}

// Sync fetches and loads every region in order, then removes the account's
// topics that were not seen in this run.
func (s *Syncer) Sync(ctx context.Context, p Params) (*Result, error) {
	if p.AccountID == "" {
		return nil, ErrNoAccount
	}
	if s.fetcher == nil {
		return nil, fmt.Errorf("sync needs a fetcher")
	}

	started := s.now()
	if p.UpdateTag == 0 {
		p.UpdateTag = started.UnixMilli()
	}

	ctx = s.log.With().Str("account_id", p.AccountID).Int64("update_tag", p.UpdateTag).Logger().WithContext(ctx)
	ctx, span := tracer.Start(ctx, "syncer.Sync", trace.WithAttributes(
		attribute.String("aws.account_id", p.AccountID),
		attribute.Int64("sync.update_tag", p.UpdateTag),
	))
	defer span.End()

	res := &Result{UpdateTag: p.UpdateTag, Topics: make(map[string]int, len(p.Regions))}
	for _, region := range p.Regions {
		n, err := s.syncRegion(ctx, p, region)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to sync SNS topics in %s: %w", region, err)
		}
		res.Topics[region] = n
	}

	if err := s.finish(ctx, p.AccountID, p.Regions, "sync", started, res); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return res, nil
}

func (s *Syncer) syncRegion(ctx context.Context, p Params, region string) (int, error) {
	log := zerolog.Ctx(ctx)
	log.Info().Str("region", region).Msg("Syncing SNS topics")

	arns, err := s.fetcher.ListTopics(ctx, region)
	if err != nil {
		return 0, err
	}

	attributes := make(map[string]map[string]string, len(arns))
	for _, arn := range arns {
		if attrs := s.fetcher.GetTopicAttributes(ctx, arn, region); attrs != nil {
			attributes[arn] = attrs
		}
	}

	records, err := topic.Transform(arns, attributes, region)
	if err != nil {
		return 0, err
	}

	if err := s.load(ctx, records, region, p.AccountID, p.UpdateTag); err != nil {
		return 0, err
	}

	if s.store != nil {
		if err := s.store.SaveTopics(ctx, p.AccountID, region, p.UpdateTag, records); err != nil {
			return 0, fmt.Errorf("failed to save snapshot: %w", err)
		}
	}

	log.Debug().Str("region", region).Int("topics", len(records)).Msg("Region synced")
	return len(records), nil
}

func (s *Syncer) load(ctx context.Context, records []topic.Record, region, accountID string, updateTag int64) error {
	var err error
	if s.version != nil {
		err = topic.LoadWith(ctx, s.session, graph.WriterFor(*s.version), records, region, accountID, updateTag)
	} else {
		err = topic.Load(ctx, s.session, records, region, accountID, updateTag)
	}
	if err != nil {
		return err
	}
	s.stats.topicsLoaded(ctx, region, len(records))
	return nil
}

// finish runs the account-wide cleanup, records the sync metadata and the
// run, and reports the statistics.
func (s *Syncer) finish(ctx context.Context, accountID string, regions []string, source string, started time.Time, res *Result) error {
	cleanup, err := topic.Cleanup(ctx, s.session, accountID, res.UpdateTag, s.version)
	if err != nil {
		return err
	}
	res.Cleanup = cleanup

	err = graph.MergeModuleSyncMetadata(ctx, s.session, graph.SyncMetadata{
		GroupType:  topic.AccountLabel,
		GroupID:    accountID,
		SyncedType: topic.Label,
		UpdateTag:  res.UpdateTag,
	})
	if err != nil {
		return err
	}

	finished := s.now()
	s.stats.runFinished(ctx, source, cleanup, finished.Sub(started))

	if s.store != nil {
		run := &storage.Run{
			AccountID:            accountID,
			UpdateTag:            res.UpdateTag,
			Source:               source,
			Regions:              regions,
			Topics:               res.Total(),
			DeletedNodes:         cleanup.Nodes,
			DeletedRelationships: cleanup.Relationships,
			StartedAt:            started,
			FinishedAt:           finished,
		}
		if err := s.store.RecordRun(ctx, run); err != nil {
			return fmt.Errorf("failed to record run: %w", err)
		}
	}

	zerolog.Ctx(ctx).Info().
		Str("source", source).
		Int("topics", res.Total()).
		Int64("deleted_nodes", cleanup.Nodes).
		Int64("deleted_relationships", cleanup.Relationships).
		Dur("duration", finished.Sub(started)).
		Msg("SNS sync finished")
	return nil
}
