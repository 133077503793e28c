package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NissesSenap/aws-sns-graph/internal/config"
	"github.com/NissesSenap/aws-sns-graph/internal/storage"
	"github.com/NissesSenap/aws-sns-graph/internal/syncer"
	"github.com/NissesSenap/aws-sns-graph/internal/topic"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const testContextKey contextKey = "test"

func TestCLI_Context(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
	}{
		{
			name: "background context",
			ctx:  context.Background(),
		},
		{
			name: "context with value",
			ctx:  context.WithValue(context.Background(), testContextKey, "value"),
		},
		{
			name: "cancelled context",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli := &CLI{ctx: tt.ctx}
			assert.Equal(t, tt.ctx, cli.Context())
		})
	}
}

func TestCLI_DefaultWriters(t *testing.T) {
	cli := &CLI{}
	assert.Equal(t, os.Stdout, cli.Stdout())
	assert.Equal(t, os.Stderr, cli.Stderr())
}

// isolateConfig points the config file and snapshot store at a temp dir.
func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SNS_GRAPH_CONFIG", filepath.Join(dir, "config.yaml"))
	t.Setenv("SNS_GRAPH_SNAPSHOT_PATH", filepath.Join(dir, "snapshot.db"))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cli := &CLI{ctx: context.Background(), out: &out, err: io.Discard}
	parser, err := newParser(cli, kong.Exit(func(int) {}), kong.Writers(io.Discard, io.Discard))
	require.NoError(t, err)

	kctx, err := parser.Parse(args)
	if err != nil {
		return "", err
	}
	err = kctx.Run(cli)
	return out.String(), err
}

func TestParse_Sync(t *testing.T) {
	cli := &CLI{}
	parser, err := newParser(cli, kong.Exit(func(int) {}))
	require.NoError(t, err)

	kctx, err := parser.Parse([]string{
		"sync",
		"--regions=us-east-1,eu-west-1",
		"--account-id=123456789012",
		"--update-tag=42",
		"--snapshot",
		"--neo4j-version=3.5.12",
	})
	require.NoError(t, err)
	assert.Equal(t, "sync", kctx.Command())
	assert.Equal(t, []string{"us-east-1", "eu-west-1"}, cli.Sync.Regions)
	assert.Equal(t, "123456789012", cli.Sync.AccountID)
	assert.Equal(t, int64(42), cli.Sync.UpdateTag)
	assert.True(t, cli.Sync.Snapshot)
	assert.Equal(t, "3.5.12", cli.Sync.Neo4jVersion)
}

func TestSyncCmd_Apply(t *testing.T) {
	cfg := config.DefaultConfig()
	cmd := &SyncCmd{Regions: []string{"eu-north-1"}, AccountID: "111122223333", Snapshot: true}
	cmd.apply(cfg)

	assert.Equal(t, []string{"eu-north-1"}, cfg.Regions)
	assert.Equal(t, "111122223333", cfg.AccountID)
	assert.True(t, cfg.Snapshot.Enabled)

	cfg = config.DefaultConfig()
	(&SyncCmd{}).apply(cfg)
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestGraphFlags(t *testing.T) {
	opts, err := GraphFlags{}.options()
	require.NoError(t, err)
	assert.Empty(t, opts)

	opts, err = GraphFlags{Neo4jVersion: "4.4.30"}.options()
	require.NoError(t, err)
	assert.Len(t, opts, 1)

	_, err = GraphFlags{Neo4jVersion: "not-a-version"}.options()
	assert.Error(t, err)
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "sns-graph version: dev\n", out)
}

func TestConfigCmd_RedactsPassword(t *testing.T) {
	isolateConfig(t)
	t.Setenv("SNS_GRAPH_NEO4J_PASSWORD", "hunter2")

	out, err := execute(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "uri: bolt://localhost:7687")
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, "hunter2")
}

func TestConfigCmd_Save(t *testing.T) {
	dir := isolateConfig(t)
	t.Setenv("SNS_GRAPH_REGIONS", "eu-west-1,eu-north-1")

	out, err := execute(t, "config", "--save")
	require.NoError(t, err)
	assert.Contains(t, out, "# saved to "+filepath.Join(dir, "config.yaml"))

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "eu-north-1")
}

func TestSetup_InvalidConfig(t *testing.T) {
	isolateConfig(t)
	t.Setenv("SNS_GRAPH_LOG_FORMAT", "xml")

	_, _, err := setup(&CLI{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestRunsCmd(t *testing.T) {
	dir := isolateConfig(t)

	store, err := storage.NewSQLite(filepath.Join(dir, "snapshot.db"))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.SaveTopics(ctx, "123456789012", "us-east-1", 100, []topic.Record{{
		TopicArn:  "arn:aws:sns:us-east-1:123456789012:orders",
		TopicName: "orders",
		Region:    "us-east-1",
	}}))
	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.RecordRun(ctx, &storage.Run{
		AccountID:    "123456789012",
		UpdateTag:    100,
		Source:       "sync",
		Regions:      []string{"us-east-1"},
		Topics:       1,
		DeletedNodes: 2,
		StartedAt:    started,
		FinishedAt:   started.Add(1500 * time.Millisecond),
	}))
	require.NoError(t, store.Close())

	out, err := execute(t, "runs")
	require.NoError(t, err)
	assert.Contains(t, out, "ACCOUNT")
	assert.Contains(t, out, "123456789012")
	assert.Contains(t, out, "2025-03-01T12:00:00Z")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "2/0")
}

func TestReplayCmd_EmptySnapshot(t *testing.T) {
	isolateConfig(t)

	_, err := execute(t, "replay")
	assert.ErrorIs(t, err, syncer.ErrNoSnapshot)
}

func TestPickAccount(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewSQLite(":memory:")
	require.NoError(t, err)
	defer store.Close()

	got, err := pickAccount(ctx, store, "explicit")
	require.NoError(t, err)
	assert.Equal(t, "explicit", got)

	_, err = pickAccount(ctx, store, "")
	assert.ErrorIs(t, err, syncer.ErrNoSnapshot)

	require.NoError(t, store.SaveTopics(ctx, "111", "us-east-1", 1, nil))
	got, err = pickAccount(ctx, store, "")
	require.NoError(t, err)
	assert.Equal(t, "111", got)

	require.NoError(t, store.SaveTopics(ctx, "222", "us-east-1", 1, nil))
	_, err = pickAccount(ctx, store, "")
	assert.ErrorIs(t, err, errAmbiguousAccount)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(config.Log{Level: "warn", Format: "json"}, &buf)
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)

	buf.Reset()
	log = newLogger(config.Log{Level: "debug", Format: "console"}, &buf)
	log.Debug().Msg("console line")
	assert.Contains(t, buf.String(), "console line")
	assert.NotContains(t, buf.String(), `"message"`)
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}
