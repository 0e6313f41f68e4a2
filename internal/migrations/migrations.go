package migrations

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"text/template"
	"time"

	"github.com/jmoiron/sqlx"
)

// migration ..
type migration struct {
	version string
	done    bool
	up      func(*sqlx.Tx) error
	down    func(*sqlx.Tx) error
}

// registry holds every migration registered from init() in this package.
var registry = map[string]*migration{}

// addMigration ..
func addMigration(mg *migration) {
	registry[mg.version] = mg
}

// Migrator ..
type Migrator struct {
	db         *sqlx.DB
	versions   []string
	migrations map[string]*migration
}

// NewMigrator builds a migrator for db and loads which versions already ran.
func NewMigrator(db *sqlx.DB) (*Migrator, error) {
	m := &Migrator{
		db:         db,
		migrations: make(map[string]*migration, len(registry)),
	}
	for version, mg := range registry {
		cp := *mg
		m.migrations[version] = &cp
		m.versions = append(m.versions, version)
	}
	sort.Strings(m.versions)

	_, err := m.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version varchar(255)
	);`)
	if err != nil {
		slog.Error("Unable to create `schema_migrations` table", slog.Any("error", err))
		return nil, err
	}

	var done []string
	if err := m.db.Select(&done, "SELECT version FROM schema_migrations;"); err != nil {
		slog.Error("Unable to fetch completed migrations", slog.Any("error", err))
		return nil, err
	}

	for _, version := range done {
		if m.migrations[version] != nil {
			m.migrations[version].done = true
		}
	}

	return m, nil
}

// MigrationStatus ..
func (m *Migrator) MigrationStatus() error {
	for _, v := range m.versions {
		mg := m.migrations[v]

		if mg.done {
			slog.Info(fmt.Sprintf("Migration %s... completed", v))
		} else {
			slog.Info(fmt.Sprintf("Migration %s... pending", v))
		}
	}

	return nil
}

const migrationTemplate = `package migrations

import "github.com/jmoiron/sqlx"

func init() {
	addMigration(&migration{
		version: "{{.Version}}",
		up:      mig_{{.Version}}_{{.Title}}_up,
		down:    mig_{{.Version}}_{{.Title}}_down,
	})
}

func mig_{{.Version}}_{{.Title}}_up(tx *sqlx.Tx) error {
	return nil
}

func mig_{{.Version}}_{{.Title}}_down(tx *sqlx.Tx) error {
	return nil
}
`

// CreateMigration ..
func (m *Migrator) CreateMigration(title string) error {
	var out bytes.Buffer

	version := time.Now().Format("20060102150405")

	in := struct {
		Version string
		Title   string
	}{
		Version: version,
		Title:   title,
	}

	t := template.Must(template.New("migration").Parse(migrationTemplate))
	err := t.Execute(&out, in)
	if err != nil {
		slog.Error("Unable to execute migration template", slog.Any("error", err))
		return err
	}

	f, err := os.Create(fmt.Sprintf("./internal/migrations/%s_%s.go", version, title))
	if err != nil {
		slog.Error("Unable to create the migration file", slog.Any("error", err))
		return err
	}
	defer f.Close()

	if _, err := f.WriteString(out.String()); err != nil {
		slog.Error("Unable to write to the migration file", slog.Any("error", err))
		return err
	}

	slog.Info("Generated new migration file...", slog.String("filename", f.Name()))
	return nil
}

// Up ..
func (m *Migrator) Up(step int) error {
	tx, err := m.db.BeginTxx(context.TODO(), nil)
	if err != nil {
		slog.Info("Unable to start transaction to run migrations", slog.Any("error", err))
		return err
	}

	defer func() {
		if err := recover(); err != nil {
			slog.Info("panic", slog.Any("details", err))
			tx.Rollback()
		}
	}()

	count := 0
	for _, v := range m.versions {
		if step > 0 && count == step {
			break
		}

		mg := m.migrations[v]
		l := slog.With(slog.String("version", mg.version))

		if mg.done {
			continue
		}

		l.Info("Running up migration...")
		if err := mg.up(tx); err != nil {
			tx.Rollback()
			l.Info("Error occured while running migration", slog.Any("error", err))
			return err
		}

		if _, err := tx.Exec(tx.Rebind("INSERT INTO schema_migrations VALUES(?);"), mg.version); err != nil {
			tx.Rollback()
			l.Error("Failed to insert completed migrations to `schema_migrations`", slog.Any("error", err))
			return err
		}

		mg.done = true
		count++
		l.Info("Finished up migration...")
	}

	return tx.Commit()
}

// Down ..
func (m *Migrator) Down(step int) error {
	tx, err := m.db.BeginTxx(context.TODO(), nil)
	if err != nil {
		slog.Info("Unable to start transaction to run migrations", slog.Any("error", err))
		return err
	}

	defer func() {
		if err := recover(); err != nil {
			slog.Info("panic", slog.Any("details", err))
			tx.Rollback()
		}
	}()

	count := 0
	for _, v := range reverse(m.versions) {
		if step > 0 && count == step {
			break
		}

		mg := m.migrations[v]
		l := slog.With(slog.String("version", mg.version))

		if !mg.done {
			continue
		}

		l.Info("Running down migration...")
		if err := mg.down(tx); err != nil {
			tx.Rollback()
			l.Info("Error occured while running migration", slog.Any("error", err))
			return err
		}

		if _, err := tx.Exec(tx.Rebind("DELETE FROM schema_migrations WHERE version = ?;"), mg.version); err != nil {
			tx.Rollback()
			l.Info("Failed to remove reverted migrations from `schema_migrations`", slog.Any("error", err))
			return err
		}

		mg.done = false
		count++
		l.Info("Finished down migration...")
	}

	return tx.Commit()
}

// reverse returns a reversed copy so m.versions keeps its order.
func reverse(arr []string) []string {
	out := make([]string, len(arr))
	for i, v := range arr {
		out[len(arr)-1-i] = v
	}
	return out
}
