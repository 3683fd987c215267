package memory

import (
	"context"
	"sort"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/dbx"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
)

// UsersRepository implements users.Repository over a Store.
type UsersRepository struct {
	store *Store
	db    dbx.DBTX
}

func NewUsersRepository(store *Store, db dbx.DBTX) *UsersRepository {
	return &UsersRepository{store: store, db: db}
}

func (r *UsersRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	defer r.store.lock(r.db)()

	if r.store.emailTaken(user.Email, 0) {
		return nil, common.ErrDuplicateEmail
	}

	r.store.lastUserID++
	now := r.store.now()

	user.ID = r.store.lastUserID
	user.CreatedAt = now
	user.UpdatedAt = now
	r.store.users[user.ID] = cloneUser(*user)

	return user, nil
}

func (r *UsersRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	defer r.store.lock(r.db)()

	for _, u := range r.store.users {
		if u.Email == email {
			c := cloneUser(u)
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *UsersRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	defer r.store.lock(r.db)()

	u, ok := r.store.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := cloneUser(u)
	return &c, nil
}

func (r *UsersRepository) Update(_ context.Context, user *models.User) (*models.User, error) {
	defer r.store.lock(r.db)()

	existing, ok := r.store.users[user.ID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if r.store.emailTaken(user.Email, user.ID) {
		return nil, common.ErrDuplicateEmail
	}

	existing.Name = user.Name
	existing.FirstName = user.FirstName
	existing.LastName = user.LastName
	existing.Email = user.Email
	existing.Gender = user.Gender
	existing.BirthDate = user.BirthDate
	existing.UpdatedAt = r.store.now()
	r.store.users[user.ID] = cloneUser(existing)

	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = existing.UpdatedAt
	return user, nil
}

func (r *UsersRepository) List(_ context.Context) ([]models.User, error) {
	defer r.store.lock(r.db)()

	result := make([]models.User, 0, len(r.store.users))
	for _, u := range r.store.users {
		result = append(result, cloneUser(u).Sanitized())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) emailTaken(email string, exceptID int64) bool {
	for id, u := range s.users {
		if id != exceptID && u.Email == email {
			return true
		}
	}
	return false
}

func cloneUser(u models.User) models.User {
	if u.Gender != nil {
		g := *u.Gender
		u.Gender = &g
	}
	if u.BirthDate != nil {
		d := *u.BirthDate
		u.BirthDate = &d
	}
	return u
}
