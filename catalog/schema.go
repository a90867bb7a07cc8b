package catalog

import (
	"database/sql"
	"fmt"
)

// Schema is the catalog DDL. Idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS tools (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	url              TEXT NOT NULL,
	summary          TEXT NOT NULL,
	categories_json  TEXT NOT NULL DEFAULT '[]',
	embedding_json   TEXT,
	created_at       INTEGER NOT NULL,
	updated_at       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tools_url ON tools(url);
CREATE INDEX IF NOT EXISTS idx_tools_created ON tools(created_at);
`

// ApplySchema creates the catalog tables if they do not exist.
func ApplySchema(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("catalog: apply schema: %w", err)
	}
	return nil
}
