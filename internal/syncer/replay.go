package syncer

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/NissesSenap/aws-sns-graph/internal/storage"
)

var (
	// ErrNoStore is returned by Replay on a Syncer without a snapshot store.
	ErrNoStore = errors.New("replay needs a snapshot store")
	// ErrNoSnapshot is returned by Replay when the account has no snapshot.
	ErrNoSnapshot = errors.New("no snapshot stored for account")
)

// Replay loads the stored snapshot of the regions covered by the account's
// last run under a new freshness tag, then reconciles and records the run like Sync. It makes
// no AWS calls.
func (s *Syncer) Replay(ctx context.Context, accountID string, updateTag int64) (*Result, error) {
	if accountID == "" {
		return nil, ErrNoAccount
	}
	if s.store == nil {
		return nil, ErrNoStore
	}

	started := s.now()
	if updateTag == 0 {
		updateTag = started.UnixMilli()
	}

	ctx = s.log.With().Str("account_id", accountID).Int64("update_tag", updateTag).Logger().WithContext(ctx)
	ctx, span := tracer.Start(ctx, "syncer.Replay", trace.WithAttributes(
		attribute.String("aws.account_id", accountID),
		attribute.Int64("sync.update_tag", updateTag),
	))
	defer span.End()

	regions, err := s.replayRegions(ctx, accountID)
	if err != nil {
		return nil, err
	}

	res := &Result{UpdateTag: updateTag, Topics: make(map[string]int, len(regions))}
	for _, region := range regions {
		records, err := s.store.GetTopics(ctx, accountID, region)
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot of %s: %w", region, err)
		}
		if err := s.load(ctx, records, region, accountID, updateTag); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to replay SNS topics in %s: %w", region, err)
		}
		res.Topics[region] = len(records)
	}

	if err := s.finish(ctx, accountID, regions, "replay", started, res); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return res, nil
}

// replayRegions returns the regions of the last recorded run. Snapshot rows
// of regions that run did not cover are stale: cleanup already removed their
// topics from the graph.
func (s *Syncer) replayRegions(ctx context.Context, accountID string) ([]string, error) {
	last, err := s.store.LastRun(ctx, accountID)
	if errors.Is(err, storage.ErrNoRuns) {
		// Without a run a replay would reconcile the account's topics away.
		return nil, fmt.Errorf("%w %s", ErrNoSnapshot, accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read last run: %w", err)
	}

	stored, err := s.store.GetRegions(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot regions: %w", err)
	}
	for _, region := range stored {
		if !slices.Contains(last.Regions, region) {
			zerolog.Ctx(ctx).Debug().
				Str("region", region).
				Int64("last_run", last.ID).
				Msg("Skipping snapshot region not covered by the last run")
		}
	}
	return last.Regions, nil
}
