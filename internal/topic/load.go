package topic

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/NissesSenap/aws-sns-graph/internal/graph"
)

// Params returns the call-time values shared by load and cleanup.
func Params(region, accountID string, updateTag int64) graph.Params {
	return graph.Params{
		ParamUpdateTag: updateTag,
		ParamRegion:    region,
		ParamAccountID: accountID,
	}
}

func items(records []Record) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, r := range records {
		out = append(out, r.Properties())
	}
	return out
}

// Load upserts records for one region, choosing the writer from the
// server version. Topics whose account node does not exist get no edge.
func Load(ctx context.Context, s graph.Session, records []Record, region, accountID string, updateTag int64) error {
	zerolog.Ctx(ctx).Info().
		Int("count", len(records)).
		Str("region", region).
		Msg("Loading SNS topics into graph")

	return graph.CompatibleLoad(ctx, s, Schema, items(records), Params(region, accountID, updateTag))
}

// LoadWith is Load with an already selected writer.
func LoadWith(ctx context.Context, s graph.Session, w graph.Writer, records []Record, region, accountID string, updateTag int64) error {
	return graph.Load(ctx, s, w, Schema, items(records), Params(region, accountID, updateTag))
}

// Cleanup removes the account's topic nodes and edges not stamped with
// updateTag. A nil version probes the server.
func Cleanup(ctx context.Context, s graph.Session, accountID string, updateTag int64, version *graph.Version) (graph.CleanupResult, error) {
	zerolog.Ctx(ctx).Debug().Str("account_id", accountID).Msg("Running SNS cleanup job")

	return graph.CompatibleCleanup(ctx, s, Schema, Params("", accountID, updateTag), version)
}
