// Package repomanager vends repositories bound to a database handle and owns
// the transaction boundary and schema migrations for a backend.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/eventhub/internal/dbx"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/events"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error

	// DB returns the non-transactional handle.
	DB() dbx.DBTX
	// WithTx runs fn in one transaction; repositories built from tx join it.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error

	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Events(db dbx.DBTX) events.Repository
}
