package persistence

import (
	"context"

	"github.com/storefront/backend/internal/domain/payment"
	"gorm.io/gorm"
)

// GormUnitOfWork implements payment.UnitOfWork over a single database transaction
type GormUnitOfWork struct {
	db *Database
}

// NewGormUnitOfWork creates a new GormUnitOfWork
func NewGormUnitOfWork(db *Database) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Do runs fn with repositories bound to one transaction. Any error from fn rolls it back.
func (u *GormUnitOfWork) Do(ctx context.Context, fn func(repos payment.Repositories) error) error {
	return u.db.Transaction(ctx, func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// NewRepositories binds all payment repositories to db
func NewRepositories(db *gorm.DB) payment.Repositories {
	return payment.Repositories{
		Orders:   NewGormOrderRepository(db),
		Attempts: NewGormPaymentAttemptRepository(db),
		Refunds:  NewGormRefundRepository(db),
	}
}

var _ payment.UnitOfWork = (*GormUnitOfWork)(nil)
