package migrations

import "github.com/jmoiron/sqlx"

// execAll runs each statement in order. Statements are kept separate because
// not every driver accepts several statements in one Exec.
func execAll(tx *sqlx.Tx, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
