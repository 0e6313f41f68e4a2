package migrations

import "github.com/jmoiron/sqlx"

func init() {
	addMigration(&migration{
		version: "20261001092000",
		up:      mig_20261001092000_updates_highlights_up,
		down:    mig_20261001092000_updates_highlights_down,
	})
}

func mig_20261001092000_updates_highlights_up(tx *sqlx.Tx) error {
	return execAll(tx,
		`CREATE TABLE IF NOT EXISTS project_updates (
            id TEXT PRIMARY KEY,
            project_id TEXT NOT NULL REFERENCES projects(id),
            author_id TEXT NOT NULL REFERENCES users(id),
            headline VARCHAR(160),
            is_draft BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMP NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_project_updates_project_id ON project_updates(project_id, is_draft, created_at);`,
		`CREATE TABLE IF NOT EXISTS update_blocks (
            id TEXT PRIMARY KEY,
            update_id TEXT NOT NULL REFERENCES project_updates(id) ON DELETE CASCADE,
            position INTEGER NOT NULL,
            type VARCHAR(16) NOT NULL CHECK (type IN ('PARAGRAPH', 'HEADING', 'IMAGE', 'VIDEO', 'LIST', 'QUOTE', 'CODE', 'EMBED')),
            text TEXT,
            data TEXT,
            UNIQUE(update_id, position)
        );`,
		`CREATE TABLE IF NOT EXISTS project_highlights (
            id TEXT PRIMARY KEY,
            project_id TEXT NOT NULL REFERENCES projects(id),
            update_id TEXT NOT NULL UNIQUE REFERENCES project_updates(id) ON DELETE CASCADE,
            created_at TIMESTAMP NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_project_highlights_project_id ON project_highlights(project_id);`,
	)
}

func mig_20261001092000_updates_highlights_down(tx *sqlx.Tx) error {
	return execAll(tx,
		`DROP TABLE IF EXISTS project_highlights;`,
		`DROP TABLE IF EXISTS update_blocks;`,
		`DROP TABLE IF EXISTS project_updates;`,
	)
}
