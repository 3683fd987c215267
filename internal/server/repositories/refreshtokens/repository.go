// Package refreshtokens is the refresh token ledger: the persisted record of
// which refresh tokens are currently honoured.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/eventhub/internal/server/models"
)

// Repository stores at most one refresh token per user.
type Repository interface {
	// Create records token for userID, replacing any token the user already had.
	Create(ctx context.Context, userID int64, token string, expiresAt time.Time) error

	// Find returns the ledger row for token with its owner attached (nil when
	// the owner is gone). A miss yields common.ErrorNotFound.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes token. Deleting an unknown token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteByUser removes every token of userID and reports how many were removed.
	DeleteByUser(ctx context.Context, userID int64) (int64, error)

	// DeleteExpired removes tokens whose expiry is before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
