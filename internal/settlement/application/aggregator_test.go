package application_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	couriermemory "delivery-settlement/internal/courier/infrastructure/memory"
	fees "delivery-settlement/internal/fees/domain"
	feesmemory "delivery-settlement/internal/fees/infrastructure/memory"
	partnerapp "delivery-settlement/internal/partner/application"
	partnermemory "delivery-settlement/internal/partner/infrastructure/memory"
	feesadapter "delivery-settlement/internal/settlement/adapters/fees"
	"delivery-settlement/internal/settlement/adapters/partners"
	"delivery-settlement/internal/settlement/application"
	settlement "delivery-settlement/internal/settlement/domain"
	settlementmemory "delivery-settlement/internal/settlement/infrastructure/memory"
	"delivery-settlement/internal/settlement/infrastructure/orders"
	"delivery-settlement/internal/settlement/infrastructure/payables"
)

var (
	weekStart = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	weekEnd   = time.Date(2026, time.March, 8, 0, 0, 0, 0, time.UTC)
	runAt     = time.Date(2026, time.March, 9, 2, 0, 0, 0, time.UTC)
)

type fixture struct {
	aggregator *application.Aggregator
	service    *application.SettlementService
	repo       *settlementmemory.SettlementRepository
	source     *orders.MemorySource
	ledger     *payables.MemoryLedger
	calcs      *feesmemory.FeeCalculationRepository
	directory  *partnerapp.Service
	publisher  *recordingPublisher
	clock      fixedClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	clock := fixedClock{now: runAt}

	directory, err := partnerapp.NewService(partnermemory.NewPartnerRepository(), couriermemory.NewCourierRepository(), clock, logger)
	require.NoError(t, err)
	calcs := feesmemory.NewFeeCalculationRepository()
	bonuses, err := feesadapter.NewBonusReader(calcs)
	require.NoError(t, err)

	source := orders.NewMemorySource()
	resolver, err := partners.NewResolver(directory, source, logger)
	require.NoError(t, err)

	repo := settlementmemory.NewSettlementRepository()
	ledger := payables.NewMemoryLedger()
	publisher := &recordingPublisher{}
	service, err := application.NewSettlementService(repo, ledger, publisher, settlement.ExpenseAccounts{}, clock, logger)
	require.NoError(t, err)

	aggregator, err := application.NewAggregator(source, bonuses, resolver, service, clock, logger, application.WithConcurrency(1))
	require.NoError(t, err)

	return &fixture{
		aggregator: aggregator,
		service:    service,
		repo:       repo,
		source:     source,
		ledger:     ledger,
		calcs:      calcs,
		directory:  directory,
		publisher:  publisher,
		clock:      clock,
	}
}

func (f *fixture) calculation(t *testing.T, bonus bool) int64 {
	t.Helper()
	calc, err := fees.NewFeeCalculation(1, 3, bonus, weekStart)
	require.NoError(t, err)
	require.NoError(t, f.calcs.Create(context.Background(), calc))
	return calc.ID
}

// seedTwoOrders registers courier 1 and restaurant 7 with one regular and
// one bonus delivery.
func (f *fixture) seedTwoOrders(t *testing.T) {
	t.Helper()
	f.source.AddCourier(application.CourierDetails{ID: 1, FullName: "Ana Ruiz", Address: "Calle 1"})
	f.source.AddRestaurant(application.RestaurantDetails{ID: 7, Name: "Pizza Sol", Location: "Plaza 3"})
	f.source.AddOrders(
		application.DeliveredOrder{
			OrderID: 100, CourierID: 1, RestaurantID: 7,
			CreatedAt:  weekStart.Add(10 * time.Hour),
			OrderTotal: 20, DeliveryFee: 2, CourierShare: 1.2, CompanyShare: 0.8,
			CalculationID: f.calculation(t, false),
		},
		application.DeliveredOrder{
			OrderID: 101, CourierID: 1, RestaurantID: 7,
			CreatedAt:  weekStart.Add(26 * time.Hour),
			OrderTotal: 15.5, DeliveryFee: 2, CourierShare: 1.3, CompanyShare: 0.7,
			CalculationID: f.calculation(t, true),
		},
	)
}

func TestRun_TwoOrderCourierWeek(t *testing.T) {
	f := newFixture(t)
	f.seedTwoOrders(t)
	ctx := context.Background()

	produced, err := f.aggregator.Run(ctx, weekStart, weekEnd)
	require.NoError(t, err)
	require.Len(t, produced, 2)

	courierSettlement := produced[0]
	assert.Equal(t, settlement.PartnerKindCourier, courierSettlement.PartnerKind)
	assert.Equal(t, 2.5, courierSettlement.TotalAmountDue)
	assert.Equal(t, 2, courierSettlement.TotalOrders)
	assert.Equal(t, 1, courierSettlement.RegularCount)
	assert.Equal(t, 1, courierSettlement.HighVolumeCount)
	assert.Equal(t, "Ana Ruiz", courierSettlement.PartnerName)
	assert.NotEmpty(t, courierSettlement.BillRef)

	restaurantSettlement := produced[1]
	assert.Equal(t, settlement.PartnerKindRestaurant, restaurantSettlement.PartnerKind)
	assert.Equal(t, 31.5, restaurantSettlement.TotalAmountDue)
	assert.Equal(t, 35.5, restaurantSettlement.TotalOrderAmount)
	assert.Equal(t, 4.0, restaurantSettlement.TotalDeliveryFees)

	bill, ok := f.ledger.Bill(courierSettlement.BillRef)
	require.True(t, ok)
	assert.Equal(t, "Courier Settlement - Week 2026-03-02 to 2026-03-08", bill.Request.Reference)
	require.Len(t, bill.Request.Lines, 2)
	assert.Equal(t, "501000", bill.Request.Lines[0].ExpenseAccount)
	assert.Equal(t, 1.0, bill.Request.Lines[0].Quantity)

	view, err := f.service.Get(ctx, courierSettlement.ID)
	require.NoError(t, err)
	assert.Equal(t, settlement.StateAwaitingPayment, view.State)
	require.Len(t, view.Lines, 2)
	assert.Equal(t, int64(100), view.Lines[0].ExternalOrderID)
	assert.True(t, view.Lines[1].HighVolumeBonus)

	assert.Len(t, f.publisher.Events(), 2)
}

func TestRun_BillKeyIdentifiesPartnerWeek(t *testing.T) {
	f := newFixture(t)
	f.seedTwoOrders(t)

	produced, err := f.aggregator.Run(context.Background(), weekStart, weekEnd)
	require.NoError(t, err)
	require.Len(t, produced, 2)

	for _, s := range produced {
		bill, ok := f.ledger.Bill(s.BillRef)
		require.True(t, ok)
		name := fmt.Sprintf("%s:%d:2026-03-02", s.PartnerKind, s.PartnerID)
		assert.Equal(t, uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String(), bill.Request.IdempotencyKey)
	}
	first, _ := f.ledger.Bill(produced[0].BillRef)
	second, _ := f.ledger.Bill(produced[1].BillRef)
	assert.NotEqual(t, first.Request.IdempotencyKey, second.Request.IdempotencyKey)
}

func TestGenerateWeeklySettlements_OrderIndependent(t *testing.T) {
	f := newFixture(t)
	f.seedTwoOrders(t)
	ctx := context.Background()

	fetched, err := f.source.FetchDeliveredOrders(ctx, weekStart, weekEnd)
	require.NoError(t, err)
	reversed := []application.DeliveredOrder{fetched[1], fetched[0]}

	produced, err := f.aggregator.GenerateWeeklySettlements(ctx, reversed, weekStart, weekEnd)
	require.NoError(t, err)
	require.Len(t, produced, 2)
	assert.Equal(t, 2.5, produced[0].TotalAmountDue)
	assert.Equal(t, int64(100), produced[0].Lines[0].ExternalOrderID)
}

func TestRun_RerunSkipsExistingSettlements(t *testing.T) {
	f := newFixture(t)
	f.seedTwoOrders(t)
	ctx := context.Background()

	_, err := f.aggregator.Run(ctx, weekStart, weekEnd)
	require.NoError(t, err)
	again, err := f.aggregator.Run(ctx, weekStart, weekEnd)
	require.NoError(t, err)
	assert.Empty(t, again)

	stored, err := f.repo.List(ctx, settlement.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestRun_SkipsUnresolvableGroup(t *testing.T) {
	f := newFixture(t)
	f.source.AddRestaurant(application.RestaurantDetails{ID: 7, Name: "Pizza Sol"})
	f.source.AddOrders(application.DeliveredOrder{
		OrderID: 300, CourierID: 99, RestaurantID: 7,
		CreatedAt: weekStart.Add(5 * time.Hour), OrderTotal: 10, DeliveryFee: 2, CourierShare: 1.2,
	})

	produced, err := f.aggregator.Run(context.Background(), weekStart, weekEnd)
	require.NoError(t, err)
	require.Len(t, produced, 1)
	assert.Equal(t, settlement.PartnerKindRestaurant, produced[0].PartnerKind)
}

func TestRun_OrderWithoutCalculationIsRegular(t *testing.T) {
	f := newFixture(t)
	f.source.AddCourier(application.CourierDetails{ID: 2, FullName: "Luis"})
	f.source.AddRestaurant(application.RestaurantDetails{ID: 8, Name: "Taco"})
	f.source.AddOrders(application.DeliveredOrder{
		OrderID: 400, CourierID: 2, RestaurantID: 8,
		CreatedAt: weekStart, OrderTotal: 12, DeliveryFee: 3, CourierShare: 1.8, CalculationID: 12345,
	})

	produced, err := f.aggregator.Run(context.Background(), weekStart, weekEnd)
	require.NoError(t, err)
	require.Len(t, produced, 2)
	assert.Equal(t, 1, produced[0].RegularCount)
	assert.Zero(t, produced[0].HighVolumeCount)
}

func TestRun_BillFailureLeavesSettlementAwaitingPayment(t *testing.T) {
	f := newFixture(t)
	f.seedTwoOrders(t)
	f.ledger.FailWith(errors.New("payables unavailable"))
	ctx := context.Background()

	produced, err := f.aggregator.Run(ctx, weekStart, weekEnd)
	require.NoError(t, err)
	require.Len(t, produced, 2)
	for _, s := range produced {
		assert.Empty(t, s.BillRef)
	}

	view, err := f.service.Get(ctx, produced[0].ID)
	require.NoError(t, err)
	assert.Equal(t, settlement.StateAwaitingPayment, view.State)
	assert.Nil(t, view.Bill)

	f.ledger.FailWith(nil)
	retried, err := f.service.RetryBill(ctx, produced[0].ID)
	require.NoError(t, err)
	assert.NotEmpty(t, retried.BillRef)
	require.NotNil(t, retried.Bill)
	assert.Equal(t, settlement.BillStatusPosted, retried.Bill.Status)

	_, err = f.service.RetryBill(ctx, produced[0].ID)
	assert.ErrorIs(t, err, settlement.ErrBillAlreadyLinked)
}

func TestGet_DerivesStateFromBill(t *testing.T) {
	f := newFixture(t)
	f.seedTwoOrders(t)
	ctx := context.Background()

	produced, err := f.aggregator.Run(ctx, weekStart, weekEnd)
	require.NoError(t, err)
	require.Len(t, produced, 2)

	require.NoError(t, f.ledger.MarkPaid(produced[0].BillRef))
	view, err := f.service.Get(ctx, produced[0].ID)
	require.NoError(t, err)
	assert.Equal(t, settlement.StatePaid, view.State)

	require.NoError(t, f.ledger.Cancel(produced[1].BillRef))
	views, err := f.service.List(ctx, settlement.ListFilter{Kind: settlement.PartnerKindRestaurant})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, settlement.StateCancelled, views[0].State)
}

func TestGetAndList_LinkedBillMissingAtPayables(t *testing.T) {
	f := newFixture(t)
	f.seedTwoOrders(t)
	ctx := context.Background()

	produced, err := f.aggregator.Run(ctx, weekStart, weekEnd)
	require.NoError(t, err)
	require.Len(t, produced, 2)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	emptyLedger := payables.NewMemoryLedger()
	restarted, err := application.NewSettlementService(f.repo, emptyLedger, f.publisher, settlement.ExpenseAccounts{}, f.clock, logger)
	require.NoError(t, err)

	view, err := restarted.Get(ctx, produced[0].ID)
	require.NoError(t, err)
	assert.Equal(t, settlement.StateAwaitingPayment, view.State)
	assert.Nil(t, view.Bill)
	assert.Equal(t, produced[0].BillRef, view.BillRef)

	views, err := restarted.List(ctx, settlement.ListFilter{})
	require.NoError(t, err)
	require.Len(t, views, 2)
	for _, v := range views {
		assert.Equal(t, settlement.StateAwaitingPayment, v.State)
	}
}

func TestGetAndList_GatewayFailurePropagates(t *testing.T) {
	f := newFixture(t)
	f.seedTwoOrders(t)
	ctx := context.Background()

	produced, err := f.aggregator.Run(ctx, weekStart, weekEnd)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	unreachable := errors.New("payables unreachable")
	gateway := &unreachableStatus{MemoryLedger: f.ledger, err: unreachable}
	service, err := application.NewSettlementService(f.repo, gateway, f.publisher, settlement.ExpenseAccounts{}, f.clock, logger)
	require.NoError(t, err)

	_, err = service.Get(ctx, produced[0].ID)
	assert.ErrorIs(t, err, unreachable)
	_, err = service.List(ctx, settlement.ListFilter{})
	assert.ErrorIs(t, err, unreachable)
}

func TestPartnerSummary(t *testing.T) {
	f := newFixture(t)
	f.seedTwoOrders(t)
	ctx := context.Background()

	produced, err := f.aggregator.Run(ctx, weekStart, weekEnd)
	require.NoError(t, err)
	require.Len(t, produced, 2)

	summary, err := f.service.PartnerSummary(ctx, produced[0].PartnerID, settlement.PartnerKindCourier)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalSettlements)
	assert.Equal(t, 2.5, summary.TotalAmount)
	assert.Equal(t, 2, summary.TotalOrders)
	assert.Equal(t, 1.25, summary.AveragePerOrder)

	_, err = f.service.PartnerSummary(ctx, produced[0].PartnerID, settlement.PartnerKind("driver"))
	assert.ErrorIs(t, err, settlement.ErrInvalidKind)
}

func TestRun_SourceFailureYieldsNothing(t *testing.T) {
	f := newFixture(t)
	f.seedTwoOrders(t)
	f.source.FailWith(errors.New("orders db down"))

	produced, err := f.aggregator.Run(context.Background(), weekStart, weekEnd)
	require.NoError(t, err)
	assert.Empty(t, produced)
}

func TestRunPreviousWeek(t *testing.T) {
	f := newFixture(t)
	f.seedTwoOrders(t)

	produced, err := f.aggregator.RunPreviousWeek(context.Background())
	require.NoError(t, err)
	require.Len(t, produced, 2)
	assert.Equal(t, weekStart, produced[0].WeekStart)
	assert.Equal(t, weekEnd, produced[0].WeekEnd)
}

func TestRun_InvalidWeek(t *testing.T) {
	f := newFixture(t)
	_, err := f.aggregator.Run(context.Background(), weekEnd, weekStart)
	assert.ErrorIs(t, err, settlement.ErrInvalidWeek)
}

// unreachableStatus fails every status query.
type unreachableStatus struct {
	*payables.MemoryLedger
	err error
}

func (g *unreachableStatus) BillStatus(context.Context, string) (settlement.BillStatus, error) {
	return "", g.err
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type recordingPublisher struct {
	mu     sync.Mutex
	events []application.SettlementCreated
}

func (p *recordingPublisher) PublishSettlementCreated(ctx context.Context, event application.SettlementCreated) error {
	_ = ctx
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) Events() []application.SettlementCreated {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]application.SettlementCreated(nil), p.events...)
}
