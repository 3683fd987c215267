// Package memory keeps users, refresh tokens and events in process memory.
// It backs the "-d memory" development mode and the service tests.
//
// All repositories created from one Store share its data. Calls made with the
// handle passed to Store.WithTx run under the store lock held by the
// transaction; a failed transaction restores the state captured at its start.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/dmitrijs2005/eventhub/internal/dbx"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
)

var errNoSQL = errors.New("memory store does not execute SQL")

type Store struct {
	mu  sync.Mutex
	now func() time.Time

	lastUserID  int64
	lastTokenID int64
	lastEventID int64

	users  map[int64]models.User
	tokens map[string]models.RefreshToken
	events map[int64]models.Event
}

func NewStore() *Store {
	return &Store{
		now:    time.Now,
		users:  make(map[int64]models.User),
		tokens: make(map[string]models.RefreshToken),
		events: make(map[int64]models.Event),
	}
}

// SetClock replaces the clock used for created/updated timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Tx is the handle given to WithTx callbacks. It satisfies dbx.DBTX so it can
// flow through code written for SQL transactions, but it runs no SQL.
type Tx struct {
	store *Store
}

func (*Tx) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errNoSQL
}

func (*Tx) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errNoSQL
}

// QueryRowContext cannot build a *sql.Row outside database/sql; callers of the
// memory store never use it.
func (*Tx) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

// WithTx runs fn while holding the store lock. On error or panic the state
// captured before fn is restored.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.restore(snap)
			panic(p)
		}
		if err != nil {
			s.restore(snap)
		}
	}()

	return fn(ctx, &Tx{store: s})
}

// lock acquires the store lock unless db is a transaction of this store,
// which already holds it.
func (s *Store) lock(db dbx.DBTX) func() {
	if tx, ok := db.(*Tx); ok && tx.store == s {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type snapshot struct {
	lastUserID, lastTokenID, lastEventID int64

	users  map[int64]models.User
	tokens map[string]models.RefreshToken
	events map[int64]models.Event
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		lastUserID:  s.lastUserID,
		lastTokenID: s.lastTokenID,
		lastEventID: s.lastEventID,
		users:       maps.Clone(s.users),
		tokens:      maps.Clone(s.tokens),
		events:      maps.Clone(s.events),
	}
}

func (s *Store) restore(snap snapshot) {
	s.lastUserID = snap.lastUserID
	s.lastTokenID = snap.lastTokenID
	s.lastEventID = snap.lastEventID
	s.users = snap.users
	s.tokens = snap.tokens
	s.events = snap.events
}
