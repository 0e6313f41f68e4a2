package migrations

import "github.com/jmoiron/sqlx"

func init() {
	addMigration(&migration{
		version: "20261001091000",
		up:      mig_20261001091000_projects_tags_up,
		down:    mig_20261001091000_projects_tags_down,
	})
}

func mig_20261001091000_projects_tags_up(tx *sqlx.Tx) error {
	return execAll(tx,
		`CREATE TABLE IF NOT EXISTS projects (
            id TEXT PRIMARY KEY,
            owner_id TEXT NOT NULL REFERENCES users(id),
            title VARCHAR(160) NOT NULL,
            slug VARCHAR(255) NOT NULL UNIQUE,
            summary VARCHAR(500),
            visibility VARCHAR(16) NOT NULL DEFAULT 'PRIVATE' CHECK (visibility IN ('PRIVATE', 'PUBLIC')),
            cover_image_id TEXT,
            is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMP NOT NULL,
            updated_at TIMESTAMP NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_projects_owner_id ON projects(owner_id, is_deleted);`,
		`CREATE INDEX IF NOT EXISTS idx_projects_visibility ON projects(visibility, is_deleted);`,
		`CREATE TABLE IF NOT EXISTS tags (
            id TEXT PRIMARY KEY,
            name VARCHAR(32) NOT NULL UNIQUE
        );`,
		`CREATE TABLE IF NOT EXISTS project_tags (
            project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
            tag_id TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
            UNIQUE(project_id, tag_id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_project_tags_tag_id ON project_tags(tag_id);`,
	)
}

func mig_20261001091000_projects_tags_down(tx *sqlx.Tx) error {
	return execAll(tx,
		`DROP TABLE IF EXISTS project_tags;`,
		`DROP TABLE IF EXISTS tags;`,
		`DROP TABLE IF EXISTS projects;`,
	)
}
