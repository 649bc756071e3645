package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/customuploader/internal/client/models"
	"github.com/dmitrijs2005/customuploader/internal/common"
	"github.com/dmitrijs2005/customuploader/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const columns = `id, uploader, file_name, url, thumbnail_url, deletion_url, encrypted, failed, error, created_at`

// Insert stores item. created_at is kept as UTC unix nanoseconds so rows
// sort by time without parsing.
func (r *SQLiteRepository) Insert(ctx context.Context, item *models.HistoryItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO history (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.Uploader, item.FileName, item.URL, item.ThumbnailURL, item.DeletionURL,
		item.Encrypted, item.Failed, item.Error, item.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert history item: %w", err)
	}
	return nil
}

// InsertAll stores items in one transaction when the repository is bound to
// a *sql.DB, or directly on the caller's transaction otherwise.
func (r *SQLiteRepository) InsertAll(ctx context.Context, items []*models.HistoryItem) error {
	if len(items) == 0 {
		return nil
	}

	insert := func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewSQLiteRepository(tx)
		for _, item := range items {
			if err := repo.Insert(ctx, item); err != nil {
				return err
			}
		}
		return nil
	}

	return dbx.Atomic(ctx, r.db, insert)
}

// List returns the newest items first.
func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]*models.HistoryItem, error) {
	if limit <= 0 {
		limit = -1
	}

	query := `SELECT ` + columns + ` FROM history ORDER BY created_at DESC, id LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select history: %w", err)
	}
	defer rows.Close()

	var result []*models.HistoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByID returns a single item.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.HistoryItem, error) {
	query := `SELECT ` + columns + ` FROM history WHERE id=?`
	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("history item %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return item, nil
}

// DeleteByID removes a single item. It expects exactly one row to be affected.
func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM history WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete history item: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("history item %s: %w", id, common.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*models.HistoryItem, error) {
	item := &models.HistoryItem{}
	var created int64
	err := s.Scan(&item.ID, &item.Uploader, &item.FileName, &item.URL, &item.ThumbnailURL,
		&item.DeletionURL, &item.Encrypted, &item.Failed, &item.Error, &created)
	if err != nil {
		return nil, err
	}
	item.CreatedAt = time.Unix(0, created).UTC()
	return item, nil
}
