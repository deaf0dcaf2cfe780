//go:build integration

package persistence

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/infrastructure/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newPostgresTestDB starts a PostgreSQL container and applies the SQL migrations
func newPostgresTestDB(t *testing.T) *Database {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("storefront_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("admin123"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	gormDB, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(10)

	m, err := migration.New(sqlDB, findMigrationsPath(t), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())

	db := &Database{DB: gormDB}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func findMigrationsPath(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok)

	dir := filepath.Dir(filename)
	for i := 0; i < 5; i++ {
		candidate := filepath.Join(dir, "migrations")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		dir = filepath.Dir(dir)
	}
	t.Fatal("Could not find migrations directory")
	return ""
}

func TestPostgres_CompareAndSwapHasOneWinner(t *testing.T) {
	db := newPostgresTestDB(t)
	repo := NewGormOrderRepository(db.DB)
	ctx := context.Background()

	order := createTestOrder(t, "ORD-race", 1000)
	require.NoError(t, repo.Create(ctx, order))

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local, err := repo.FindByID(ctx, "ORD-race")
			if !assert.NoError(t, err) {
				return
			}
			if !assert.NoError(t, local.Apply(payment.EventPaymentInitiated)) {
				return
			}
			err = repo.CompareAndSwap(ctx, local, payment.PaymentStatusPending, 1)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case assert.ErrorIs(t, err, payment.ErrConcurrentUpdate):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, writers-1, conflicts)

	found, err := repo.FindByID(ctx, "ORD-race")
	require.NoError(t, err)
	assert.Equal(t, payment.PaymentStatusInitiated, found.PaymentStatus)
	assert.Equal(t, 2, found.Version)
}

func TestPostgres_ConcurrentDuplicateNotificationsKeepOneAttempt(t *testing.T) {
	db := newPostgresTestDB(t)
	repos := NewRepositories(db.DB)
	ctx := context.Background()

	order := createTestOrder(t, "ORD-dup", 1000)
	require.NoError(t, repos.Orders.Create(ctx, order))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a := payment.NewPaymentAttempt(order, payment.AttemptStatusCompleted, payment.SourceCallback, []byte(`{}`))
			a.GatewayTransactionID = "T123"
			assert.NoError(t, repos.Attempts.InsertOrUpdate(ctx, a))
		}()
	}
	wg.Wait()

	attempts, err := repos.Attempts.ListByOrder(ctx, "ORD-dup")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, "T123", attempts[0].GatewayTransactionID)
}

func TestPostgres_UnitOfWorkRollsBack(t *testing.T) {
	db := newPostgresTestDB(t)
	uow := NewGormUnitOfWork(db)
	ctx := context.Background()

	order := createTestOrder(t, "ORD-tx", 1000)
	require.NoError(t, NewGormOrderRepository(db.DB).Create(ctx, order))

	err := uow.Do(ctx, func(repos payment.Repositories) error {
		current, err := repos.Orders.FindByID(ctx, "ORD-tx")
		if err != nil {
			return err
		}
		if err := current.Apply(payment.EventPaymentInitiated); err != nil {
			return err
		}
		if err := repos.Orders.CompareAndSwap(ctx, current, payment.PaymentStatusPending, current.Version); err != nil {
			return err
		}
		// Second swap against the stale version must fail and undo the first
		return repos.Orders.CompareAndSwap(ctx, current, payment.PaymentStatusPending, 1)
	})
	assert.ErrorIs(t, err, payment.ErrConcurrentUpdate)

	found, err := NewGormOrderRepository(db.DB).FindByID(ctx, "ORD-tx")
	require.NoError(t, err)
	assert.Equal(t, payment.PaymentStatusPending, found.PaymentStatus)
	assert.Equal(t, 1, found.Version)
}
