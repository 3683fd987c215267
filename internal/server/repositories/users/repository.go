// Package users declares and implements the credential store: user accounts
// keyed by a unique, normalized email.
package users

import (
	"context"

	"github.com/dmitrijs2005/eventhub/internal/server/models"
)

// Repository persists users. Lookups return common.ErrorNotFound on a miss;
// Create and Update return common.ErrDuplicateEmail when the email is taken.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Update(ctx context.Context, user *models.User) (*models.User, error)
	// List returns all users ordered by id, without password hashes.
	List(ctx context.Context) ([]models.User, error)
}
