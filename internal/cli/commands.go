package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"gopkg.in/yaml.v3"

	"github.com/NissesSenap/aws-sns-graph/internal/auth"
	"github.com/NissesSenap/aws-sns-graph/internal/collector"
	"github.com/NissesSenap/aws-sns-graph/internal/config"
	"github.com/NissesSenap/aws-sns-graph/internal/graph"
	"github.com/NissesSenap/aws-sns-graph/internal/storage"
	"github.com/NissesSenap/aws-sns-graph/internal/syncer"
)

// version is set at build time with -ldflags "-X ...cli.version=v1.2.3".
var version = "dev"

// GraphFlags select the graph dialect without a version probe.
type GraphFlags struct {
	Neo4jVersion string `name:"neo4j-version" help:"Assume this Neo4j server version instead of probing it" placeholder:"5.26.0"`
}

func (f GraphFlags) options() ([]syncer.Option, error) {
	if f.Neo4jVersion == "" {
		return nil, nil
	}
	v, err := graph.ParseVersion(f.Neo4jVersion)
	if err != nil {
		return nil, err
	}
	return []syncer.Option{syncer.WithVersion(v)}, nil
}

type SyncCmd struct {
	GraphFlags `embed:""`

	Regions   []string `help:"Regions to sync" placeholder:"REGION"`
	AccountID string   `help:"AWS account id; resolved through STS when unset"`
	UpdateTag int64    `help:"Freshness tag for this run; defaults to the current Unix time in milliseconds"`
	Snapshot  bool     `help:"Store a snapshot of the fetched topics"`
}

func (c *SyncCmd) apply(cfg *config.Config) {
	if len(c.Regions) > 0 {
		cfg.Regions = c.Regions
	}
	if c.AccountID != "" {
		cfg.AccountID = c.AccountID
	}
	if c.Snapshot {
		cfg.Snapshot.Enabled = true
	}
}

func (c *SyncCmd) Run(cli *CLI) error {
	cfg, log, err := setup(cli, c.apply)
	if err != nil {
		return err
	}
	ctx := log.WithContext(cli.Context())

	awsCfg, err := auth.NewAWSConfig(ctx, auth.AWSOptions{
		Profile:     cfg.AWS.Profile,
		Region:      cfg.Regions[0],
		MaxAttempts: cfg.AWS.MaxAttempts,
		Endpoint:    cfg.AWS.Endpoint,
	})
	if err != nil {
		return err
	}

	accountID := cfg.AccountID
	if accountID == "" {
		if accountID, err = auth.ResolveAccountID(ctx, auth.NewSTSClient(awsCfg)); err != nil {
			return err
		}
		log.Info().Str("account_id", accountID).Msg("Resolved AWS account")
	}

	opts, err := c.options()
	if err != nil {
		return err
	}

	var store storage.Store
	if cfg.Snapshot.Enabled {
		s, err := storage.NewSQLite(cfg.Snapshot.Path)
		if err != nil {
			return fmt.Errorf("failed to open snapshot store: %w", err)
		}
		defer s.Close()
		store = s
		opts = append(opts, syncer.WithStore(store))
	}

	return withGraph(ctx, cfg, func(session graph.Session) error {
		coll := collector.New(awsCfg, cfg.RateLimits.RequestsPerSecond, collector.WithLogger(log))
		s, err := newSyncer(coll, session, log, opts...)
		if err != nil {
			return err
		}

		res, err := s.Sync(ctx, syncer.Params{
			AccountID: accountID,
			Regions:   cfg.Regions,
			UpdateTag: c.UpdateTag,
		})
		if err != nil {
			return err
		}
		printResult(cli.Stdout(), accountID, res)
		return nil
	})
}

type ReplayCmd struct {
	GraphFlags `embed:""`

	AccountID string `help:"Account to replay; optional when the snapshot holds a single account"`
	UpdateTag int64  `help:"Freshness tag for this run; defaults to the current Unix time in milliseconds"`
}

func (c *ReplayCmd) Run(cli *CLI) error {
	cfg, log, err := setup(cli, nil)
	if err != nil {
		return err
	}
	ctx := log.WithContext(cli.Context())

	store, err := storage.NewSQLite(cfg.Snapshot.Path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot store: %w", err)
	}
	defer store.Close()

	accountID, err := pickAccount(ctx, store, firstNonEmpty(c.AccountID, cfg.AccountID))
	if err != nil {
		return err
	}

	opts, err := c.options()
	if err != nil {
		return err
	}
	opts = append(opts, syncer.WithStore(store))

	return withGraph(ctx, cfg, func(session graph.Session) error {
		s, err := newSyncer(nil, session, log, opts...)
		if err != nil {
			return err
		}
		res, err := s.Replay(ctx, accountID, c.UpdateTag)
		if err != nil {
			return err
		}
		printResult(cli.Stdout(), accountID, res)
		return nil
	})
}

type RunsCmd struct {
	AccountID string `help:"Only show runs of this account"`
	Limit     int    `help:"Maximum runs per account" default:"20"`
}

func (c *RunsCmd) Run(cli *CLI) error {
	cfg, log, err := setup(cli, nil)
	if err != nil {
		return err
	}
	ctx := log.WithContext(cli.Context())

	store, err := storage.NewSQLite(cfg.Snapshot.Path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot store: %w", err)
	}
	defer store.Close()

	accounts := []string{firstNonEmpty(c.AccountID, cfg.AccountID)}
	if accounts[0] == "" {
		if accounts, err = store.GetAllAccounts(ctx); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(cli.Stdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tACCOUNT\tSOURCE\tUPDATE TAG\tTOPICS\tDELETED\tSTARTED\tDURATION")
	for _, account := range accounts {
		runs, err := store.ListRuns(ctx, account, c.Limit)
		if err != nil {
			return err
		}
		for _, r := range runs {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d/%d\t%s\t%s\n",
				r.ID, r.AccountID, r.Source, r.UpdateTag, r.Topics,
				r.DeletedNodes, r.DeletedRelationships,
				r.StartedAt.UTC().Format(time.RFC3339),
				r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
		}
	}
	return tw.Flush()
}

type ConfigCmd struct {
	Save bool `help:"Write the effective configuration to the config file"`
}

func (c *ConfigCmd) Run(cli *CLI) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if c.Save {
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Fprintf(cli.Stdout(), "# saved to %s\n", config.ConfigPath())
	}

	data, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return err
	}
	_, err = cli.Stdout().Write(data)
	return err
}

type VersionCmd struct{}

func (c *VersionCmd) Run(cli *CLI) error {
	fmt.Fprintf(cli.Stdout(), "sns-graph version: %s\n", version)
	return nil
}

// setup loads and validates the configuration after applying the command's
// flags, and builds the logger.
func setup(cli *CLI, apply func(*config.Config)) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if apply != nil {
		apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, newLogger(cfg.Log, cli.Stderr()), nil
}

func newSyncer(f syncer.Fetcher, session graph.Session, log zerolog.Logger, opts ...syncer.Option) (*syncer.Syncer, error) {
	opts = append([]syncer.Option{
		syncer.WithLogger(log),
		syncer.WithMeter(otel.GetMeterProvider().Meter("github.com/NissesSenap/aws-sns-graph")),
	}, opts...)
	return syncer.New(f, session, opts...)
}

// withGraph connects to Neo4j and hands a session to fn.
func withGraph(ctx context.Context, cfg *config.Config, fn func(graph.Session) error) error {
	driver, err := auth.NewNeo4jDriver(cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password)
	if err != nil {
		return err
	}
	defer driver.Close(ctx)

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("failed to connect to neo4j at %s: %w", cfg.Neo4j.URI, err)
	}

	session := graph.NewNeo4jSession(ctx, driver, cfg.Neo4j.Database)
	defer session.Close(ctx)

	return fn(session)
}

var errAmbiguousAccount = errors.New("snapshot holds several accounts, pass --account-id")

// pickAccount returns want, or the only account in the store.
func pickAccount(ctx context.Context, store storage.Store, want string) (string, error) {
	if want != "" {
		return want, nil
	}
	accounts, err := store.GetAllAccounts(ctx)
	if err != nil {
		return "", err
	}
	switch len(accounts) {
	case 0:
		return "", syncer.ErrNoSnapshot
	case 1:
		return accounts[0], nil
	default:
		return "", errAmbiguousAccount
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func printResult(w io.Writer, accountID string, res *syncer.Result) {
	fmt.Fprintf(w, "account %s: %d topics loaded, %d nodes and %d relationships removed (update tag %d)\n",
		accountID, res.Total(), res.Cleanup.Nodes, res.Cleanup.Relationships, res.UpdateTag)
}
