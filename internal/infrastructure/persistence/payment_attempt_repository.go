package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentAttemptRepository implements payment.AttemptRepository using GORM.
// The ledger is append-oriented: rows are inserted or updated, never deleted.
type GormPaymentAttemptRepository struct {
	db *gorm.DB
}

// NewGormPaymentAttemptRepository creates a new GormPaymentAttemptRepository
func NewGormPaymentAttemptRepository(db *gorm.DB) *GormPaymentAttemptRepository {
	return &GormPaymentAttemptRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormPaymentAttemptRepository) WithTx(tx *gorm.DB) *GormPaymentAttemptRepository {
	return &GormPaymentAttemptRepository{db: tx}
}

// Create inserts a new attempt row
func (r *GormPaymentAttemptRepository) Create(ctx context.Context, attempt *payment.PaymentAttempt) error {
	return r.db.WithContext(ctx).Create(models.PaymentAttemptModelFromDomain(attempt)).Error
}

// InsertOrUpdate records a reconciled outcome keyed by (order ID, gateway transaction ID).
//
// Resolution order:
//  1. a row with the same key is updated in place
//  2. otherwise the newest initiated row of the order that has no gateway reference yet is claimed
//  3. otherwise a new row is inserted; a concurrent insert of the same key turns into an update
//
// On return attempt carries the ID and CreatedAt of the stored row.
func (r *GormPaymentAttemptRepository) InsertOrUpdate(ctx context.Context, attempt *payment.PaymentAttempt) error {
	db := r.db.WithContext(ctx)

	if attempt.GatewayTransactionID != "" {
		existing, err := r.findByKey(ctx, attempt.OrderID, attempt.GatewayTransactionID)
		if err != nil {
			return err
		}
		if existing != nil {
			return r.updateRow(ctx, existing, attempt)
		}
	}

	var open models.PaymentAttemptModel
	err := db.
		Where("order_id = ? AND status = ? AND gateway_transaction_id IS NULL", attempt.OrderID, payment.AttemptStatusInitiated).
		Order("created_at DESC").
		First(&open).Error
	if err == nil {
		return r.updateRow(ctx, &open, attempt)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now()
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = now
	}
	attempt.UpdatedAt = now

	model := models.PaymentAttemptModelFromDomain(attempt)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}, {Name: "gateway_transaction_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "raw_response", "source", "updated_at"}),
	}).Create(model).Error; err != nil {
		return err
	}

	if attempt.GatewayTransactionID == "" {
		return nil
	}
	stored, err := r.findByKey(ctx, attempt.OrderID, attempt.GatewayTransactionID)
	if err != nil {
		return err
	}
	if stored != nil {
		attempt.ID = stored.ID
		attempt.CreatedAt = stored.CreatedAt
	}
	return nil
}

func (r *GormPaymentAttemptRepository) findByKey(ctx context.Context, orderID, gatewayTxnID string) (*models.PaymentAttemptModel, error) {
	var model models.PaymentAttemptModel
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND gateway_transaction_id = ?", orderID, gatewayTxnID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &model, nil
}

func (r *GormPaymentAttemptRepository) updateRow(ctx context.Context, row *models.PaymentAttemptModel, attempt *payment.PaymentAttempt) error {
	now := time.Now()
	updates := map[string]any{
		"status":       attempt.Status,
		"raw_response": attempt.RawResponse,
		"source":       attempt.Source,
		"updated_at":   now,
	}
	if attempt.GatewayTransactionID != "" {
		updates["gateway_transaction_id"] = attempt.GatewayTransactionID
	}

	if err := r.db.WithContext(ctx).
		Model(&models.PaymentAttemptModel{}).
		Where("id = ?", row.ID).
		Updates(updates).Error; err != nil {
		return err
	}

	attempt.ID = row.ID
	attempt.CreatedAt = row.CreatedAt
	attempt.UpdatedAt = now
	return nil
}

// FindByID finds an attempt by its ID
func (r *GormPaymentAttemptRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.PaymentAttempt, error) {
	var model models.PaymentAttemptModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListByOrder lists an order's attempts, oldest first
func (r *GormPaymentAttemptRepository) ListByOrder(ctx context.Context, orderID string) ([]payment.PaymentAttempt, error) {
	var attemptModels []models.PaymentAttemptModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&attemptModels).Error; err != nil {
		return nil, err
	}

	attempts := make([]payment.PaymentAttempt, len(attemptModels))
	for i := range attemptModels {
		attempts[i] = *attemptModels[i].ToDomain()
	}
	return attempts, nil
}

// attemptStatRow is the projection Aggregate reads
type attemptStatRow struct {
	Status    payment.AttemptStatus
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// Aggregate summarises attempts created within the range
func (r *GormPaymentAttemptRepository) Aggregate(ctx context.Context, dateRange payment.DateRange) (*payment.PaymentStats, error) {
	if err := dateRange.Validate(); err != nil {
		return nil, err
	}

	var rows []attemptStatRow
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentAttemptModel{}).
		Select("status", "amount", "created_at").
		Where("created_at >= ? AND created_at < ?", dateRange.From, dateRange.To).
		Order("created_at ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	acc := payment.NewStatsAccumulator()
	for _, row := range rows {
		acc.Add(row.Status, row.Amount, row.CreatedAt)
	}
	return acc.Result(), nil
}

var _ payment.AttemptRepository = (*GormPaymentAttemptRepository)(nil)
