package persistence

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupPaymentTestDB opens an in-memory SQLite database with the payment tables.
// A single connection keeps every query on the same in-memory database.
func setupPaymentTestDB(t *testing.T) *Database {
	t.Helper()

	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	db := &Database{DB: gormDB}
	require.NoError(t, db.AutoMigrate())

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func createTestOrder(t *testing.T, id string, amount int64) *payment.Order {
	t.Helper()
	order, err := payment.NewOrder(id, "cust-1", "+91 98765 43210", decimal.NewFromInt(amount), []payment.OrderItem{
		{SKU: "SKU-1", Name: "Tea", Quantity: 2, UnitPrice: decimal.NewFromInt(amount / 2)},
	})
	require.NoError(t, err)
	return order
}

func utcTime(hour int) time.Time {
	return time.Date(2026, 3, 1, hour, 0, 0, 0, time.UTC)
}
