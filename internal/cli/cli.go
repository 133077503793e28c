package cli

import (
	"context"
	"io"
	"os"

	"github.com/alecthomas/kong"
)

// CLI is the main CLI structure with embedded context
type CLI struct {
	ctx context.Context // Store context for commands to use
	out io.Writer
	err io.Writer

	Sync    SyncCmd    `cmd:"sync" help:"Fetch SNS topics and load them into the graph"`
	Replay  ReplayCmd  `cmd:"replay" help:"Reload the stored snapshot into the graph without calling AWS"`
	Runs    RunsCmd    `cmd:"runs" help:"List recorded sync runs"`
	Config  ConfigCmd  `cmd:"config" help:"Show the effective configuration"`
	Version VersionCmd `cmd:"version" help:"Show version"`
}

// Context returns the CLI's context for use by commands.
// This allows commands to access the context without directly accessing
// the unexported ctx field.
func (c *CLI) Context() context.Context {
	return c.ctx
}

// Stdout is where commands print their results.
func (c *CLI) Stdout() io.Writer {
	if c.out == nil {
		return os.Stdout
	}
	return c.out
}

// Stderr receives the log output.
func (c *CLI) Stderr() io.Writer {
	if c.err == nil {
		return os.Stderr
	}
	return c.err
}

func newParser(cli *CLI, opts ...kong.Option) (*kong.Kong, error) {
	opts = append([]kong.Option{
		kong.Name("sns-graph"),
		kong.Description("Sync AWS SNS topics into a Neo4j asset graph."),
		kong.UsageOnError(),
	}, opts...)
	return kong.New(cli, opts...)
}

// ExecuteWithContext executes the CLI with a context that can be cancelled
func ExecuteWithContext(ctx context.Context) error {
	cli := &CLI{ctx: ctx}
	parser, err := newParser(cli)
	if err != nil {
		return err
	}
	kongCtx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	// Bind CLI instance so commands can access the context
	return kongCtx.Run(cli)
}

// Execute executes the CLI with a background context (for backwards compatibility)
func Execute() error {
	return ExecuteWithContext(context.Background())
}
