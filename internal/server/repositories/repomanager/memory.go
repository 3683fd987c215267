package repomanager

import (
	"context"

	"github.com/dmitrijs2005/eventhub/internal/dbx"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/events"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/memory"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/users"
)

// MemoryRepositoryManager vends repositories sharing one in-process store.
type MemoryRepositoryManager struct {
	store *memory.Store
}

func NewMemoryRepositoryManager(store *memory.Store) *MemoryRepositoryManager {
	if store == nil {
		store = memory.NewStore()
	}
	return &MemoryRepositoryManager{store: store}
}

func (m *MemoryRepositoryManager) Store() *memory.Store { return m.store }

func (m *MemoryRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return memory.NewUsersRepository(m.store, db)
}

func (m *MemoryRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return memory.NewRefreshTokensRepository(m.store, db)
}

func (m *MemoryRepositoryManager) Events(db dbx.DBTX) events.Repository {
	return memory.NewEventsRepository(m.store, db)
}

// DB returns nil; memory repositories treat any non-transaction handle alike.
func (m *MemoryRepositoryManager) DB() dbx.DBTX { return nil }

func (m *MemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return m.store.WithTx(ctx, fn)
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }
func (m *MemoryRepositoryManager) Ping(context.Context) error          { return nil }
func (m *MemoryRepositoryManager) Close() error                        { return nil }
