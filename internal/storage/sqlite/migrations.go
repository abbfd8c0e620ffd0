package sqlite

import "database/sql"

// schema mirrors the spreadsheet tabs. Cells are stored as text exactly as
// they would appear in the sheet; cleaning happens on read.
const schema = `
CREATE TABLE IF NOT EXISTS transactions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL DEFAULT '',
    amount_paid TEXT NOT NULL DEFAULT '',
    date TEXT NOT NULL DEFAULT '',
    week TEXT NOT NULL DEFAULT '',
    receipt_link TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS credentials (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL,
    password TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_name ON transactions(name);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
