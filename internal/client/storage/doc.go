// Package storage bootstraps the local SQLite database used for upload
// history.
//
// InitDatabase opens the database with the pure-Go modernc.org/sqlite driver
// and applies the embedded goose migrations from internal/client/migrations.
// RunMigrations is exposed separately so callers holding an existing *sql.DB
// (tests, in-memory databases) can bring it up to date.
package storage
