package memory

import (
	"context"
	"time"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/dbx"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
)

// RefreshTokensRepository implements refreshtokens.Repository over a Store.
type RefreshTokensRepository struct {
	store *Store
	db    dbx.DBTX
}

func NewRefreshTokensRepository(store *Store, db dbx.DBTX) *RefreshTokensRepository {
	return &RefreshTokensRepository{store: store, db: db}
}

// Create replaces any token userID already holds, like the SQL upsert.
func (r *RefreshTokensRepository) Create(_ context.Context, userID int64, token string, expiresAt time.Time) error {
	defer r.store.lock(r.db)()

	for k, t := range r.store.tokens {
		if t.UserID == userID {
			delete(r.store.tokens, k)
		}
	}

	r.store.lastTokenID++
	r.store.tokens[token] = models.RefreshToken{
		ID:        r.store.lastTokenID,
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: r.store.now(),
	}
	return nil
}

func (r *RefreshTokensRepository) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	defer r.store.lock(r.db)()

	t, ok := r.store.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if u, ok := r.store.users[t.UserID]; ok {
		t.User = &models.User{ID: u.ID, Name: u.Name, Email: u.Email}
	}
	return &t, nil
}

func (r *RefreshTokensRepository) Delete(_ context.Context, token string) error {
	defer r.store.lock(r.db)()

	delete(r.store.tokens, token)
	return nil
}

func (r *RefreshTokensRepository) DeleteByUser(_ context.Context, userID int64) (int64, error) {
	defer r.store.lock(r.db)()

	return r.store.deleteTokens(func(t models.RefreshToken) bool { return t.UserID == userID }), nil
}

func (r *RefreshTokensRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	defer r.store.lock(r.db)()

	return r.store.deleteTokens(func(t models.RefreshToken) bool { return t.ExpiresAt.Before(now) }), nil
}

func (s *Store) deleteTokens(match func(models.RefreshToken) bool) int64 {
	var n int64
	for k, t := range s.tokens {
		if match(t) {
			delete(s.tokens, k)
			n++
		}
	}
	return n
}
