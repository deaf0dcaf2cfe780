package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormOrderRepository implements payment.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: tx}
}

// FindByID finds an order by its ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*payment.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a new order
func (r *GormOrderRepository) Create(ctx context.Context, order *payment.Order) error {
	return r.db.WithContext(ctx).Create(models.OrderModelFromDomain(order)).Error
}

// CompareAndSwap writes the order's state columns guarded by the expected payment
// status and version. Zero affected rows means another writer got there first.
func (r *GormOrderRepository) CompareAndSwap(ctx context.Context, order *payment.Order, expected payment.PaymentStatus, expectedVersion int) error {
	model := models.OrderModelFromDomain(order)
	model.Version = expectedVersion + 1
	model.UpdatedAt = time.Now()

	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ? AND payment_status = ? AND version = ?", order.ID, expected, expectedVersion).
		Updates(model.StateColumns())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return payment.ErrConcurrentUpdate
	}

	order.Version = model.Version
	order.UpdatedAt = model.UpdatedAt
	return nil
}

// FindStuckInitiated lists initiated orders whose session was opened before cutoff, oldest first
func (r *GormOrderRepository) FindStuckInitiated(ctx context.Context, cutoff time.Time, limit int) ([]payment.Order, error) {
	var orderModels []models.OrderModel
	query := r.db.WithContext(ctx).
		Where("payment_status = ? AND payment_initiated_at < ?", payment.PaymentStatusInitiated, cutoff).
		Order("payment_initiated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&orderModels).Error; err != nil {
		return nil, err
	}

	orders := make([]payment.Order, len(orderModels))
	for i := range orderModels {
		orders[i] = *orderModels[i].ToDomain()
	}
	return orders, nil
}

var _ payment.OrderRepository = (*GormOrderRepository)(nil)
