package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormRefundRepository implements payment.RefundRepository using GORM
type GormRefundRepository struct {
	db *gorm.DB
}

// NewGormRefundRepository creates a new GormRefundRepository
func NewGormRefundRepository(db *gorm.DB) *GormRefundRepository {
	return &GormRefundRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormRefundRepository) WithTx(tx *gorm.DB) *GormRefundRepository {
	return &GormRefundRepository{db: tx}
}

// Create inserts a refund row
func (r *GormRefundRepository) Create(ctx context.Context, refund *payment.Refund) error {
	return r.db.WithContext(ctx).Create(models.RefundModelFromDomain(refund)).Error
}

// ListByAttempt lists the refunds recorded against an attempt, oldest first
func (r *GormRefundRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]payment.Refund, error) {
	var refundModels []models.RefundModel
	if err := r.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("created_at ASC").
		Find(&refundModels).Error; err != nil {
		return nil, err
	}

	refunds := make([]payment.Refund, len(refundModels))
	for i := range refundModels {
		refunds[i] = *refundModels[i].ToDomain()
	}
	return refunds, nil
}

// SumByAttempt returns the total refunded against an attempt
func (r *GormRefundRepository) SumByAttempt(ctx context.Context, attemptID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := r.db.WithContext(ctx).
		Model(&models.RefundModel{}).
		Select("SUM(amount)").
		Where("attempt_id = ?", attemptID).
		Row().
		Scan(&total); err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

var _ payment.RefundRepository = (*GormRefundRepository)(nil)
