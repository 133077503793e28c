package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NissesSenap/aws-sns-graph/internal/topic"
)

// SaveTopics replaces the account's snapshot for one region.
func (s *SQLiteStorage) SaveTopics(ctx context.Context, accountID, region string, updateTag int64, records []topic.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Ensure account exists in accounts table
	accountQuery := `
        INSERT OR REPLACE INTO accounts (account_id, last_synced)
        VALUES (?, CURRENT_TIMESTAMP)`
	if _, err := tx.ExecContext(ctx, accountQuery, accountID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM topics WHERE account_id = ? AND region = ?`, accountID, region); err != nil {
		return err
	}

	// A topic seen in another region before is moved here.
	topicQuery := `
        INSERT OR REPLACE INTO topics
        (account_id, region, update_tag, topic_arn, name, display_name, owner,
         subscriptions_pending, subscriptions_confirmed, subscriptions_deleted,
         delivery_policy, effective_delivery_policy, kms_master_key_id)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, r := range records {
		if _, err := tx.ExecContext(ctx, topicQuery,
			accountID,
			region,
			updateTag,
			r.TopicArn,
			r.TopicName,
			r.DisplayName,
			r.Owner,
			r.SubscriptionsPending,
			r.SubscriptionsConfirmed,
			r.SubscriptionsDeleted,
			r.DeliveryPolicy,
			r.EffectiveDeliveryPolicy,
			r.KmsMasterKeyID); err != nil {
			return fmt.Errorf("failed to save topic %s: %w", r.TopicArn, err)
		}
	}

	return tx.Commit()
}

// GetTopics retrieves the snapshot of one region in the order it was saved
func (s *SQLiteStorage) GetTopics(ctx context.Context, accountID, region string) ([]topic.Record, error) {
	query := `SELECT region, topic_arn, name, display_name, owner,
                     subscriptions_pending, subscriptions_confirmed, subscriptions_deleted,
                     delivery_policy, effective_delivery_policy, kms_master_key_id
              FROM topics
              WHERE account_id = ? AND region = ?
              ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, accountID, region)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []topic.Record
	for rows.Next() {
		var r topic.Record
		if err := rows.Scan(&r.Region, &r.TopicArn, &r.TopicName, &r.DisplayName, &r.Owner,
			&r.SubscriptionsPending, &r.SubscriptionsConfirmed, &r.SubscriptionsDeleted,
			&r.DeliveryPolicy, &r.EffectiveDeliveryPolicy, &r.KmsMasterKeyID); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetRegions returns the regions with a stored snapshot for the account
func (s *SQLiteStorage) GetRegions(ctx context.Context, accountID string) ([]string, error) {
	query := `SELECT DISTINCT region FROM topics WHERE account_id = ? ORDER BY region`

	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStrings(rows)
}

// GetAllAccounts returns all unique account IDs from the database
func (s *SQLiteStorage) GetAllAccounts(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT account_id FROM accounts ORDER BY account_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStrings(rows)
}

// RecordRun stores a finished run and sets run.ID
func (s *SQLiteStorage) RecordRun(ctx context.Context, run *Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	accountQuery := `
        INSERT OR REPLACE INTO accounts (account_id, last_synced)
        VALUES (?, CURRENT_TIMESTAMP)`
	if _, err := tx.ExecContext(ctx, accountQuery, run.AccountID); err != nil {
		return err
	}

	runQuery := `
        INSERT INTO runs
        (account_id, update_tag, source, regions, topics, deleted_nodes,
         deleted_relationships, started_at, finished_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, runQuery,
		run.AccountID,
		run.UpdateTag,
		run.Source,
		strings.Join(run.Regions, ","),
		run.Topics,
		run.DeletedNodes,
		run.DeletedRelationships,
		run.StartedAt.UnixMilli(),
		run.FinishedAt.UnixMilli())
	if err != nil {
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	run.ID = id
	return nil
}

const runColumns = `id, account_id, update_tag, source, regions, topics,
                    deleted_nodes, deleted_relationships, started_at, finished_at`

// LastRun returns the most recent run of the account, or ErrNoRuns
func (s *SQLiteStorage) LastRun(ctx context.Context, accountID string) (*Run, error) {
	query := `SELECT ` + runColumns + `
              FROM runs
              WHERE account_id = ?
              ORDER BY id DESC
              LIMIT 1`

	run, err := scanRun(s.db.QueryRowContext(ctx, query, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w for account %s", ErrNoRuns, accountID)
	}
	return run, err
}

// ListRuns returns up to limit runs, newest first. An empty accountID lists
// every account; a non-positive limit lists everything.
func (s *SQLiteStorage) ListRuns(ctx context.Context, accountID string, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []interface{}
	if accountID != "" {
		query += ` WHERE account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Helper function to scan a run from a row
func scanRun(row interface {
	Scan(...interface{}) error
}) (*Run, error) {
	var (
		run               Run
		regions           string
		started, finished int64
	)
	if err := row.Scan(&run.ID, &run.AccountID, &run.UpdateTag, &run.Source, &regions, &run.Topics,
		&run.DeletedNodes, &run.DeletedRelationships, &started, &finished); err != nil {
		return nil, err
	}
	if regions != "" {
		run.Regions = strings.Split(regions, ",")
	}
	run.StartedAt = time.UnixMilli(started)
	run.FinishedAt = time.UnixMilli(finished)
	return &run, nil
}

// Helper function to scan single string columns from rows
func scanStrings(rows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
}) ([]string, error) {
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
