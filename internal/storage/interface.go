package storage

import (
	"context"
	"errors"
	"time"

	"github.com/NissesSenap/aws-sns-graph/internal/topic"
)

// ErrNoRuns is returned when an account has no recorded sync run.
var ErrNoRuns = errors.New("no sync runs recorded")

// Store defines the interface for all storage operations
// This allows swapping SQLite for another backend in the future
type Store interface {
	// Topic snapshots, one per account and region
	SaveTopics(ctx context.Context, accountID, region string, updateTag int64, records []topic.Record) error
	GetTopics(ctx context.Context, accountID, region string) ([]topic.Record, error)
	GetRegions(ctx context.Context, accountID string) ([]string, error)

	// Accounts
	GetAllAccounts(ctx context.Context) ([]string, error)

	// Sync runs
	RecordRun(ctx context.Context, run *Run) error
	LastRun(ctx context.Context, accountID string) (*Run, error)
	ListRuns(ctx context.Context, accountID string, limit int) ([]*Run, error)

	// Lifecycle
	Close() error
}

// Run is one finished sync or replay of an account.
type Run struct {
	ID                   int64
	AccountID            string
	UpdateTag            int64
	Source               string // "sync" or "replay"
	Regions              []string
	Topics               int
	DeletedNodes         int64
	DeletedRelationships int64
	StartedAt            time.Time
	FinishedAt           time.Time
}
