//go:build integration

package repomanager

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/dbx"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
)

var pgManager RepositoryManager

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("eventhub"),
		postgres.WithUsername("eventhub"),
		postgres.WithPassword("eventhub"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Printf("failed to start container: %s", err)
		os.Exit(1)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("failed to get connection string: %v", err)
	}

	db, err := OpenPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}

	pgManager, _ = NewPostgresRepositoryManager(db)
	if err := pgManager.RunMigrations(ctx); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	code := m.Run()

	_ = pgManager.Close()
	if err := testcontainers.TerminateContainer(container); err != nil {
		log.Printf("failed to terminate container: %s", err)
	}
	os.Exit(code)
}

func createUser(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := pgManager.Users(pgManager.DB()).Create(context.Background(),
		&models.User{Name: "Test", Email: email, PasswordHash: "hash"})
	require.NoError(t, err)
	return u
}

func TestIntegration_DuplicateEmailIsRejectedConcurrently(t *testing.T) {
	ctx := context.Background()
	repo := pgManager.Users(pgManager.DB())

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		dups int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(ctx, &models.User{Name: "A", Email: "race@x.com", PasswordHash: "h"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, common.ErrDuplicateEmail):
				dups++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 9, dups)
}

func TestIntegration_RefreshTokenLedger(t *testing.T) {
	ctx := context.Background()
	u := createUser(t, "ledger@x.com")
	repo := pgManager.RefreshTokens(pgManager.DB())
	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond)

	require.NoError(t, repo.Create(ctx, u.ID, "ledger-1", exp))
	require.NoError(t, repo.Create(ctx, u.ID, "ledger-2", exp))

	_, err := repo.Find(ctx, "ledger-1")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	got, err := repo.Find(ctx, "ledger-2")
	require.NoError(t, err)
	assert.True(t, got.ExpiresAt.Equal(exp))
	require.NotNil(t, got.User)
	assert.Equal(t, "ledger@x.com", got.User.Email)

	n, err := repo.DeleteExpired(ctx, exp.Add(time.Second))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	n, err = repo.DeleteByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIntegration_TransactionRollsBack(t *testing.T) {
	ctx := context.Background()

	err := pgManager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := pgManager.Users(tx).Create(ctx, &models.User{Name: "T", Email: "tx@x.com", PasswordHash: "h"}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	_, err = pgManager.Users(pgManager.DB()).GetByEmail(ctx, "tx@x.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestIntegration_EventsOwnershipAndOrder(t *testing.T) {
	ctx := context.Background()
	owner := createUser(t, "owner@x.com")
	other := createUser(t, "other@x.com")
	repo := pgManager.Events(pgManager.DB())
	base := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	second, err := repo.Create(ctx, &models.Event{Title: "second", Date: base.Add(time.Hour), CreatedBy: owner.ID})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &models.Event{Title: "first", Date: base, CreatedBy: owner.ID})
	require.NoError(t, err)

	list, err := repo.List(ctx, models.Page{Limit: 2})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Title)

	_, err = repo.SetImage(ctx, second.ID, other.ID, "/uploads/x.png")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, second.ID, other.ID), common.ErrorNotFound)
	require.NoError(t, repo.Delete(ctx, second.ID, owner.ID))
}
