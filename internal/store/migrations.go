package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create exchanges",
		SQL: `
			CREATE TABLE exchanges (
				id            TEXT PRIMARY KEY,
				request_id    TEXT NOT NULL DEFAULT '',
				message       TEXT NOT NULL,
				chat_history  TEXT NOT NULL DEFAULT '',
				response      TEXT NOT NULL DEFAULT '',
				status        INTEGER NOT NULL,
				created_at    TEXT NOT NULL
			);

			CREATE INDEX idx_exchanges_created ON exchanges (created_at);
		`,
	},
	{
		Version: 2,
		Name:    "add exchange duration",
		SQL: `
			ALTER TABLE exchanges ADD COLUMN duration_ms INTEGER NOT NULL DEFAULT 0;
		`,
	},
}
