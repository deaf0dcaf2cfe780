package payment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// =============================================================================
// Mock Gateway
// =============================================================================

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Pay(ctx context.Context, req payment.PayRequest) (*payment.PayResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.PayResponse), args.Error(1)
}

func (m *MockGateway) CheckStatus(ctx context.Context, transactionID string) (*payment.StatusResponse, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.StatusResponse), args.Error(1)
}

// =============================================================================
// Recording collaborators
// =============================================================================

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type recordingMetrics struct {
	mu             sync.Mutex
	reconciliation []string
	initiation     []string
	sweep          []string
	gatewayCalls   []string
}

func (m *recordingMetrics) RecordReconciliation(_ context.Context, source, disposition string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconciliation = append(m.reconciliation, source+"/"+disposition)
}

func (m *recordingMetrics) RecordInitiation(_ context.Context, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initiation = append(m.initiation, outcome)
}

func (m *recordingMetrics) RecordSweep(_ context.Context, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep = append(m.sweep, outcome)
}

func (m *recordingMetrics) RecordGatewayCall(_ context.Context, operation string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.gatewayCalls = append(m.gatewayCalls, operation+"/"+outcome)
}

// conflictingUnitOfWork makes the first n compare-and-swaps lose
type conflictingUnitOfWork struct {
	inner     payment.UnitOfWork
	mu        sync.Mutex
	conflicts int
	calls     int
}

func (u *conflictingUnitOfWork) Do(ctx context.Context, fn func(repos payment.Repositories) error) error {
	return u.inner.Do(ctx, func(repos payment.Repositories) error {
		repos.Orders = &conflictingOrders{OrderRepository: repos.Orders, uow: u}
		return fn(repos)
	})
}

type conflictingOrders struct {
	payment.OrderRepository
	uow *conflictingUnitOfWork
}

func (o *conflictingOrders) CompareAndSwap(ctx context.Context, order *payment.Order, expected payment.PaymentStatus, version int) error {
	o.uow.mu.Lock()
	o.uow.calls++
	lose := o.uow.calls <= o.uow.conflicts
	o.uow.mu.Unlock()
	if lose {
		return payment.ErrConcurrentUpdate
	}
	return o.OrderRepository.CompareAndSwap(ctx, order, expected, version)
}

// =============================================================================
// Fixture
// =============================================================================

type fixture struct {
	db        *persistence.Database
	repos     payment.Repositories
	uow       payment.UnitOfWork
	gateway   *MockGateway
	publisher *recordingPublisher
	metrics   *recordingMetrics
}

// newFixture opens an in-memory SQLite database. A single connection keeps
// every query on the same database, so non-transactional repositories must not
// be used inside a unit of work callback.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	db := &persistence.Database{DB: gormDB}
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	return &fixture{
		db:        db,
		repos:     persistence.NewRepositories(gormDB),
		uow:       persistence.NewGormUnitOfWork(db),
		gateway:   new(MockGateway),
		publisher: &recordingPublisher{},
		metrics:   &recordingMetrics{},
	}
}

func (f *fixture) opts(extra ...Option) []Option {
	return append([]Option{WithEventPublisher(f.publisher), WithMetrics(f.metrics)}, extra...)
}

func (f *fixture) reconciler(extra ...Option) *Reconciler {
	return NewReconciler(f.uow, f.opts(extra...)...)
}

func (f *fixture) initiator(extra ...Option) *Initiator {
	return NewInitiator(f.repos.Orders, f.uow, f.gateway, f.opts(extra...)...)
}

func (f *fixture) poller() *StatusPoller {
	return NewStatusPoller(f.repos.Orders, f.gateway, f.reconciler(), f.opts()...)
}

// seedOrder stores a pending order of amount rupees for customer cust-1
func (f *fixture) seedOrder(t *testing.T, id string, amount int64) *payment.Order {
	t.Helper()
	order, err := payment.NewOrder(id, "cust-1", "+91 98765 43210", decimal.NewFromInt(amount), []payment.OrderItem{
		{SKU: "SKU-1", Name: "Tea", Quantity: 1, UnitPrice: decimal.NewFromInt(amount)},
	})
	require.NoError(t, err)
	require.NoError(t, f.repos.Orders.Create(context.Background(), order))
	return order
}

// seedInitiated stores an order that already has an open gateway session
func (f *fixture) seedInitiated(t *testing.T, id string, amount int64) *payment.Order {
	t.Helper()
	ctx := context.Background()
	order := f.seedOrder(t, id, amount)
	require.NoError(t, order.Apply(payment.EventPaymentInitiated))
	require.NoError(t, f.repos.Orders.CompareAndSwap(ctx, order, payment.PaymentStatusPending, 1))
	attempt := payment.NewPaymentAttempt(order, payment.AttemptStatusInitiated, payment.SourceInitiate, []byte(`{}`))
	require.NoError(t, f.repos.Attempts.Create(ctx, attempt))
	order.ClearDomainEvents()
	return order
}

func (f *fixture) order(t *testing.T, id string) *payment.Order {
	t.Helper()
	order, err := f.repos.Orders.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, order)
	return order
}

func (f *fixture) attempts(t *testing.T, orderID string) []payment.PaymentAttempt {
	t.Helper()
	attempts, err := f.repos.Attempts.ListByOrder(context.Background(), orderID)
	require.NoError(t, err)
	return attempts
}

func callback(orderID, code, ref string) Notification {
	return Notification{
		TransactionID:      orderID,
		ResultCode:         code,
		GatewayReferenceID: ref,
		RawPayload:         []byte(`{"code":"` + code + `"}`),
		Source:             payment.SourceCallback,
	}
}
