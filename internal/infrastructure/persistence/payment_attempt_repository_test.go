package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormPaymentAttemptRepository_InsertOrUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("claims the open initiated attempt", func(t *testing.T) {
		db := setupPaymentTestDB(t)
		repo := NewGormPaymentAttemptRepository(db.DB)
		order := createTestOrder(t, "ORD-1", 1000)

		initiated := payment.NewPaymentAttempt(order, payment.AttemptStatusInitiated, payment.SourceInitiate, []byte(`{"success":true}`))
		require.NoError(t, repo.Create(ctx, initiated))

		outcome := payment.NewPaymentAttempt(order, payment.AttemptStatusCompleted, payment.SourceCallback, []byte(`{"code":"PAYMENT_SUCCESS"}`))
		outcome.GatewayTransactionID = "T123"
		require.NoError(t, repo.InsertOrUpdate(ctx, outcome))
		assert.Equal(t, initiated.ID, outcome.ID)

		attempts, err := repo.ListByOrder(ctx, "ORD-1")
		require.NoError(t, err)
		require.Len(t, attempts, 1)
		assert.Equal(t, payment.AttemptStatusCompleted, attempts[0].Status)
		assert.Equal(t, "T123", attempts[0].GatewayTransactionID)
		assert.Equal(t, payment.SourceCallback, attempts[0].Source)
		assert.JSONEq(t, `{"code":"PAYMENT_SUCCESS"}`, string(attempts[0].RawResponse))
	})

	t.Run("same key twice keeps one row", func(t *testing.T) {
		db := setupPaymentTestDB(t)
		repo := NewGormPaymentAttemptRepository(db.DB)
		order := createTestOrder(t, "ORD-2", 1000)

		for i := 0; i < 3; i++ {
			a := payment.NewPaymentAttempt(order, payment.AttemptStatusCompleted, payment.SourceCallback, nil)
			a.GatewayTransactionID = "T777"
			require.NoError(t, repo.InsertOrUpdate(ctx, a))
		}

		attempts, err := repo.ListByOrder(ctx, "ORD-2")
		require.NoError(t, err)
		require.Len(t, attempts, 1)
		assert.Equal(t, "T777", attempts[0].GatewayTransactionID)
	})

	t.Run("inserts when no row can be claimed", func(t *testing.T) {
		db := setupPaymentTestDB(t)
		repo := NewGormPaymentAttemptRepository(db.DB)
		order := createTestOrder(t, "ORD-3", 1000)

		first := payment.NewPaymentAttempt(order, payment.AttemptStatusFailed, payment.SourceCallback, nil)
		first.GatewayTransactionID = "T-A"
		require.NoError(t, repo.InsertOrUpdate(ctx, first))

		second := payment.NewPaymentAttempt(order, payment.AttemptStatusCompleted, payment.SourceCallback, nil)
		second.GatewayTransactionID = "T-B"
		require.NoError(t, repo.InsertOrUpdate(ctx, second))

		attempts, err := repo.ListByOrder(ctx, "ORD-3")
		require.NoError(t, err)
		require.Len(t, attempts, 2)
		assert.NotEqual(t, attempts[0].ID, attempts[1].ID)
	})

	t.Run("failed initiation rows are never claimed", func(t *testing.T) {
		db := setupPaymentTestDB(t)
		repo := NewGormPaymentAttemptRepository(db.DB)
		order := createTestOrder(t, "ORD-4", 1000)

		failed := payment.NewPaymentAttempt(order, payment.AttemptStatusFailed, payment.SourceInitiate, nil)
		require.NoError(t, repo.Create(ctx, failed))

		outcome := payment.NewPaymentAttempt(order, payment.AttemptStatusCompleted, payment.SourceCallback, nil)
		outcome.GatewayTransactionID = "T9"
		require.NoError(t, repo.InsertOrUpdate(ctx, outcome))
		assert.NotEqual(t, failed.ID, outcome.ID)

		stored, err := repo.FindByID(ctx, failed.ID)
		require.NoError(t, err)
		assert.Equal(t, payment.AttemptStatusFailed, stored.Status)
	})
}

func TestGormPaymentAttemptRepository_FindByID(t *testing.T) {
	db := setupPaymentTestDB(t)
	repo := NewGormPaymentAttemptRepository(db.DB)
	ctx := context.Background()

	found, err := repo.FindByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestGormPaymentAttemptRepository_Aggregate(t *testing.T) {
	db := setupPaymentTestDB(t)
	repo := NewGormPaymentAttemptRepository(db.DB)
	ctx := context.Background()

	seed := func(orderID string, amount int64, status payment.AttemptStatus, hour int) {
		order := createTestOrder(t, orderID, amount)
		a := payment.NewPaymentAttempt(order, status, payment.SourceCallback, nil)
		a.CreatedAt = utcTime(hour)
		a.UpdatedAt = a.CreatedAt
		require.NoError(t, repo.Create(ctx, a))
	}
	seed("ORD-a", 1000, payment.AttemptStatusCompleted, 1)
	seed("ORD-b", 500, payment.AttemptStatusFailed, 2)
	seed("ORD-c", 250, payment.AttemptStatusCompleted, 30) // next day
	seed("ORD-d", 999, payment.AttemptStatusCompleted, 80) // outside range

	t.Run("summarises attempts in range", func(t *testing.T) {
		stats, err := repo.Aggregate(ctx, payment.DateRange{From: utcTime(0), To: utcTime(48)})
		require.NoError(t, err)

		assert.Equal(t, int64(3), stats.Count)
		assert.Equal(t, int64(2), stats.Completed)
		assert.Equal(t, int64(1), stats.Failed)
		assert.True(t, decimal.NewFromInt(1250).Equal(stats.Revenue), "revenue %s", stats.Revenue)
		assert.InDelta(t, 2.0/3.0, stats.SuccessRate, 1e-9)
		require.Len(t, stats.Daily, 2)
		assert.Equal(t, "2026-03-01", stats.Daily[0].Date)
		assert.Equal(t, "2026-03-02", stats.Daily[1].Date)
		assert.True(t, decimal.NewFromInt(250).Equal(stats.Daily[1].Revenue))
	})

	t.Run("empty range has zero success rate", func(t *testing.T) {
		stats, err := repo.Aggregate(ctx, payment.DateRange{From: utcTime(200), To: utcTime(300)})
		require.NoError(t, err)
		assert.Equal(t, int64(0), stats.Count)
		assert.Equal(t, 0.0, stats.SuccessRate)
		assert.Empty(t, stats.Daily)
	})

	t.Run("rejects inverted range", func(t *testing.T) {
		_, err := repo.Aggregate(ctx, payment.DateRange{From: utcTime(10), To: utcTime(5)})
		assert.ErrorIs(t, err, payment.ErrInvalidDateRange)
	})
}
