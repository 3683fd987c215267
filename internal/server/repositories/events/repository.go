// Package events stores events and enforces ownership on mutation.
package events

import (
	"context"

	"github.com/dmitrijs2005/eventhub/internal/server/models"
)

// Repository persists events. Mutations are scoped to the owner: a row that
// does not exist and a row owned by someone else both yield common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, event *models.Event) (*models.Event, error)
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	// List returns events ordered by date, then id.
	List(ctx context.Context, page models.Page) ([]models.Event, error)
	Update(ctx context.Context, event *models.Event) (*models.Event, error)
	Delete(ctx context.Context, id, ownerID int64) error
	SetImage(ctx context.Context, id, ownerID int64, imageURL string) (*models.Event, error)
}
