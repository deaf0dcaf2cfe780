package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderRepository persists orders. Find methods return nil, nil when nothing matches.
type OrderRepository interface {
	FindByID(ctx context.Context, id string) (*Order, error)
	Create(ctx context.Context, order *Order) error
	// CompareAndSwap writes the order's state only if the stored payment status
	// and version still equal expected. Returns ErrConcurrentUpdate otherwise.
	// On success order.Version is incremented.
	CompareAndSwap(ctx context.Context, order *Order, expected PaymentStatus, expectedVersion int) error
	// FindStuckInitiated lists orders in initiated whose session was opened before cutoff
	FindStuckInitiated(ctx context.Context, cutoff time.Time, limit int) ([]Order, error)
}

// AttemptRepository is the append-oriented payment ledger. It never deletes.
type AttemptRepository interface {
	Create(ctx context.Context, attempt *PaymentAttempt) error
	// InsertOrUpdate upserts keyed by (order ID, gateway transaction ID)
	InsertOrUpdate(ctx context.Context, attempt *PaymentAttempt) error
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentAttempt, error)
	ListByOrder(ctx context.Context, orderID string) ([]PaymentAttempt, error)
	Aggregate(ctx context.Context, dateRange DateRange) (*PaymentStats, error)
}

// RefundRepository stores refund audit rows
type RefundRepository interface {
	Create(ctx context.Context, refund *Refund) error
	ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]Refund, error)
	SumByAttempt(ctx context.Context, attemptID uuid.UUID) (decimal.Decimal, error)
}

// Repositories groups the repositories bound to one transaction
type Repositories struct {
	Orders   OrderRepository
	Attempts AttemptRepository
	Refunds  RefundRepository
}

// UnitOfWork runs fn atomically: either every write in fn commits or none does
type UnitOfWork interface {
	Do(ctx context.Context, fn func(repos Repositories) error) error
}

// DateRange is a half-open [From, To) interval
type DateRange struct {
	From time.Time
	To   time.Time
}

// Validate checks the range is well formed
func (r DateRange) Validate() error {
	if r.From.IsZero() || r.To.IsZero() || !r.From.Before(r.To) {
		return ErrInvalidDateRange
	}
	return nil
}

// PaymentStats is the admin analytics summary over attempts in a date range
type PaymentStats struct {
	Count       int64           `json:"count"`
	Completed   int64           `json:"completed"`
	Failed      int64           `json:"failed"`
	Revenue     decimal.Decimal `json:"revenue"`
	SuccessRate float64         `json:"success_rate"`
	Daily       []DailyStats    `json:"daily"`
}

// DailyStats is one UTC day of PaymentStats
type DailyStats struct {
	Date      string          `json:"date"` // YYYY-MM-DD
	Count     int64           `json:"count"`
	Completed int64           `json:"completed"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// StatsAccumulator builds PaymentStats one attempt at a time
type StatsAccumulator struct {
	stats PaymentStats
	days  map[string]*DailyStats
	order []string
}

// NewStatsAccumulator creates an empty accumulator
func NewStatsAccumulator() *StatsAccumulator {
	return &StatsAccumulator{
		stats: PaymentStats{Revenue: decimal.Zero},
		days:  make(map[string]*DailyStats),
	}
}

// Add records one attempt. Attempts must be added in created_at order.
func (a *StatsAccumulator) Add(status AttemptStatus, amount decimal.Decimal, createdAt time.Time) {
	key := createdAt.UTC().Format("2006-01-02")
	day, ok := a.days[key]
	if !ok {
		day = &DailyStats{Date: key, Revenue: decimal.Zero}
		a.days[key] = day
		a.order = append(a.order, key)
	}

	a.stats.Count++
	day.Count++
	switch status {
	case AttemptStatusCompleted:
		a.stats.Completed++
		a.stats.Revenue = a.stats.Revenue.Add(amount)
		day.Completed++
		day.Revenue = day.Revenue.Add(amount)
	case AttemptStatusFailed:
		a.stats.Failed++
	}
}

// Result returns the accumulated stats
func (a *StatsAccumulator) Result() *PaymentStats {
	out := a.stats
	if out.Count > 0 {
		out.SuccessRate = float64(out.Completed) / float64(out.Count)
	}
	out.Daily = make([]DailyStats, 0, len(a.order))
	for _, key := range a.order {
		out.Daily = append(out.Daily, *a.days[key])
	}
	return &out
}
