package db

import (
	"fmt"
	"log"
	"log/slog"
	"strings"

	"github.com/curaious/projectchron/internal/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// NewConn opens the process-wide connection pool for the configured driver.
// It is created once at startup and closed on shutdown.
func NewConn(conf *config.Config) *sqlx.DB {
	slog.Info("Connecting to database", slog.String("driver", conf.DB_DRIVER))

	var (
		db  *sqlx.DB
		err error
	)
	switch conf.DB_DRIVER {
	case config.DriverSQLite:
		db, err = OpenSQLite(conf.DB_PATH + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	default:
		db, err = sqlx.Open("postgres", PostgresDSN(conf))
	}
	if err != nil {
		log.Fatal(err)
	}

	err = db.Ping()
	if err != nil {
		log.Fatalln("Unable to connect to database", err.Error())
	}

	slog.Info("Connected to database")

	return db
}

// PostgresDSN builds the connection string shared by the pool and the LISTEN connection.
func PostgresDSN(conf *config.Config) string {
	str := fmt.Sprintf("postgresql://%v:%v@%v:%v/%v", conf.DB_USERNAME, conf.DB_PASSWORD, conf.DB_HOST, conf.DB_PORT, conf.DB_NAME)
	if conf.DISABLE_TLS == "true" {
		str = str + "?sslmode=disable"
	}
	return str
}

// OpenSQLite opens an SQLite database with foreign keys enforced. SQLite allows
// a single writer, so the pool is capped at one connection; code running inside
// a transaction must only use that transaction.
func OpenSQLite(dsn string) (*sqlx.DB, error) {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)

	// Timestamps are written as "2006-01-02 15:04:05.999999999-07:00" so that
	// they sort as text.
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_time_format=sqlite"

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}
