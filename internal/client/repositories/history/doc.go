// Package history provides the local log of upload attempts.
//
// # Overview
//
// The package defines a Repository interface for recording and browsing
// HistoryItem values (see internal/client/models). A SQLite-backed
// implementation (SQLiteRepository) persists data using a dbx.DBTX (either
// *sql.DB or *sql.Tx).
//
// # Data Model
//
// Each row keeps the uploader name, the reported file name, the extracted
// links and the failure state of one upload. Key material of encrypted
// uploads is never stored; only the Encrypted flag is.
//
// Typical Usage
//
//	repo := history.NewSQLiteRepository(db)
//	_ = repo.Insert(ctx, item)
//	last, _ := repo.List(ctx, 20)
//	one, _ := repo.GetByID(ctx, id)
//	_ = repo.DeleteByID(ctx, id)
package history
