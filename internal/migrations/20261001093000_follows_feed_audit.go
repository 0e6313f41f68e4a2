package migrations

import "github.com/jmoiron/sqlx"

func init() {
	addMigration(&migration{
		version: "20261001093000",
		up:      mig_20261001093000_follows_feed_audit_up,
		down:    mig_20261001093000_follows_feed_audit_down,
	})
}

func mig_20261001093000_follows_feed_audit_up(tx *sqlx.Tx) error {
	return execAll(tx,
		`CREATE TABLE IF NOT EXISTS follows (
            follower_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            project_id TEXT NOT NULL REFERENCES projects(id),
            created_at TIMESTAMP NOT NULL,
            UNIQUE(follower_id, project_id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_follows_project_id ON follows(project_id);`,
		`CREATE TABLE IF NOT EXISTS feed_events (
            id TEXT PRIMARY KEY,
            type VARCHAR(64) NOT NULL,
            project_id TEXT NOT NULL REFERENCES projects(id),
            update_id TEXT REFERENCES project_updates(id),
            actor_id TEXT REFERENCES users(id),
            created_at TIMESTAMP NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_feed_events_created_at ON feed_events(created_at, id);`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
            id TEXT PRIMARY KEY,
            actor_id TEXT REFERENCES users(id),
            action VARCHAR(64) NOT NULL,
            entity_type VARCHAR(32) NOT NULL,
            entity_id TEXT NOT NULL,
            changes TEXT,
            ip_address VARCHAR(64),
            created_at TIMESTAMP NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_entity ON audit_logs(entity_type, entity_id, created_at);`,
	)
}

func mig_20261001093000_follows_feed_audit_down(tx *sqlx.Tx) error {
	return execAll(tx,
		`DROP TABLE IF EXISTS audit_logs;`,
		`DROP TABLE IF EXISTS feed_events;`,
		`DROP TABLE IF EXISTS follows;`,
	)
}
