package storage

func (s *SQLiteStorage) migrate() error {
	schema := `
    CREATE TABLE IF NOT EXISTS accounts (
        account_id TEXT PRIMARY KEY,
        last_synced TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS topics (
        id INTEGER PRIMARY KEY,
        account_id TEXT NOT NULL,
        region TEXT NOT NULL,
        update_tag INTEGER NOT NULL,
        topic_arn TEXT NOT NULL,
        name TEXT NOT NULL,
        display_name TEXT NOT NULL DEFAULT '',
        owner TEXT NOT NULL DEFAULT '',
        subscriptions_pending INTEGER NOT NULL DEFAULT 0,
        subscriptions_confirmed INTEGER NOT NULL DEFAULT 0,
        subscriptions_deleted INTEGER NOT NULL DEFAULT 0,
        delivery_policy TEXT NOT NULL DEFAULT '',
        effective_delivery_policy TEXT NOT NULL DEFAULT '',
        kms_master_key_id TEXT NOT NULL DEFAULT '',
        UNIQUE (account_id, topic_arn)
    );

    CREATE TABLE IF NOT EXISTS runs (
        id INTEGER PRIMARY KEY,
        account_id TEXT NOT NULL,
        update_tag INTEGER NOT NULL,
        source TEXT NOT NULL,
        regions TEXT NOT NULL DEFAULT '',
        topics INTEGER NOT NULL DEFAULT 0,
        deleted_nodes INTEGER NOT NULL DEFAULT 0,
        deleted_relationships INTEGER NOT NULL DEFAULT 0,
        started_at INTEGER NOT NULL,
        finished_at INTEGER NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_topics_account_region
        ON topics(account_id, region);
    CREATE INDEX IF NOT EXISTS idx_runs_account
        ON runs(account_id, id);
    `

	_, err := s.db.Exec(schema)
	return err
}
