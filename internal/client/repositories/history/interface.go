package history

import (
	"context"

	"github.com/dmitrijs2005/customuploader/internal/client/models"
)

// Repository describes storage of upload history items.
type Repository interface {
	// Insert stores item, assigning an ID when it has none.
	Insert(ctx context.Context, item *models.HistoryItem) error

	// InsertAll stores items atomically.
	InsertAll(ctx context.Context, items []*models.HistoryItem) error

	// List returns up to limit items, newest first. A limit of zero or less
	// returns everything.
	List(ctx context.Context, limit int) ([]*models.HistoryItem, error)

	// GetByID returns one item or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.HistoryItem, error)

	// DeleteByID removes one item or returns common.ErrNotFound.
	DeleteByID(ctx context.Context, id string) error
}
