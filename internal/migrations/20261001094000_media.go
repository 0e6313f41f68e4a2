package migrations

import "github.com/jmoiron/sqlx"

func init() {
	addMigration(&migration{
		version: "20261001094000",
		up:      mig_20261001094000_media_up,
		down:    mig_20261001094000_media_down,
	})
}

func mig_20261001094000_media_up(tx *sqlx.Tx) error {
	return execAll(tx,
		`CREATE TABLE IF NOT EXISTS media_assets (
            id TEXT PRIMARY KEY,
            project_id TEXT REFERENCES projects(id),
            update_id TEXT REFERENCES project_updates(id),
            type VARCHAR(16) NOT NULL CHECK (type IN ('IMAGE', 'VIDEO')),
            status VARCHAR(16) NOT NULL,
            original_path TEXT NOT NULL,
            storage_bucket TEXT,
            width INTEGER,
            height INTEGER,
            duration_seconds INTEGER,
            filesize BIGINT,
            alt_text VARCHAR(240),
            caption VARCHAR(480),
            created_at TIMESTAMP NOT NULL,
            updated_at TIMESTAMP NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS media_jobs (
            id TEXT PRIMARY KEY,
            media_id TEXT NOT NULL REFERENCES media_assets(id) ON DELETE CASCADE,
            job_type VARCHAR(32) NOT NULL,
            status VARCHAR(16) NOT NULL,
            attempts INTEGER NOT NULL DEFAULT 0,
            max_attempts INTEGER NOT NULL DEFAULT 3,
            scheduled_at TIMESTAMP NOT NULL,
            started_at TIMESTAMP,
            completed_at TIMESTAMP,
            last_error TEXT,
            created_at TIMESTAMP NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_media_jobs_status ON media_jobs(status, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_media_jobs_media_id ON media_jobs(media_id);`,
	)
}

func mig_20261001094000_media_down(tx *sqlx.Tx) error {
	return execAll(tx,
		`DROP TABLE IF EXISTS media_jobs;`,
		`DROP TABLE IF EXISTS media_assets;`,
	)
}
