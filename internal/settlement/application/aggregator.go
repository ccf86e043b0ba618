package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"delivery-settlement/internal/observability/metrics"
	settlement "delivery-settlement/internal/settlement/domain"
)

const defaultConcurrency = 4

// Aggregator turns a week of delivered orders into courier and restaurant
// settlements.
type Aggregator struct {
	source      OrderSource
	bonuses     BonusReader
	partners    PartnerResolver
	settlements *SettlementService
	clock       Clock
	logger      logrus.FieldLogger
	concurrency int
}

// AggregatorOption configures the aggregator.
type AggregatorOption func(*Aggregator)

// WithConcurrency bounds how many partner groups are processed at once.
func WithConcurrency(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// NewAggregator constructs the aggregator.
func NewAggregator(
	source OrderSource,
	bonuses BonusReader,
	partners PartnerResolver,
	settlements *SettlementService,
	clock Clock,
	logger logrus.FieldLogger,
	opts ...AggregatorOption,
) (*Aggregator, error) {
	if source == nil {
		return nil, errors.New("settlement aggregator: nil order source")
	}
	if bonuses == nil {
		return nil, errors.New("settlement aggregator: nil bonus reader")
	}
	if partners == nil {
		return nil, errors.New("settlement aggregator: nil partner resolver")
	}
	if settlements == nil {
		return nil, errors.New("settlement aggregator: nil settlement service")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	a := &Aggregator{
		source:      source,
		bonuses:     bonuses,
		partners:    partners,
		settlements: settlements,
		clock:       clock,
		logger:      logger,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// RunPreviousWeek settles last Monday to Sunday.
func (a *Aggregator) RunPreviousWeek(ctx context.Context) ([]*settlement.Settlement, error) {
	week := settlement.PreviousWeek(a.clock.Now())
	return a.Run(ctx, week.Start, week.End)
}

// Run fetches the week's delivered orders and settles them. An unreachable
// order source yields no settlements.
func (a *Aggregator) Run(ctx context.Context, weekStart, weekEnd time.Time) ([]*settlement.Settlement, error) {
	week, err := settlement.NewWeek(weekStart, weekEnd)
	if err != nil {
		return nil, err
	}
	log := a.logger.WithField("week", week.String())

	orders, err := a.source.FetchDeliveredOrders(ctx, week.Start, week.End)
	if err != nil {
		log.WithError(err).Error("fetch delivered orders failed")
		orders = nil
	}
	if len(orders) == 0 {
		log.Info("no delivered orders for settlement period")
		return nil, nil
	}
	return a.GenerateWeeklySettlements(ctx, orders, week.Start, week.End)
}

type groupJob struct {
	kind       settlement.PartnerKind
	externalID int64
	orders     []DeliveredOrder
}

// GenerateWeeklySettlements settles every courier and restaurant that
// appears in orders. Groups that fail are logged and skipped; the result
// holds courier settlements then restaurant settlements, each ordered by
// platform id.
func (a *Aggregator) GenerateWeeklySettlements(ctx context.Context, orders []DeliveredOrder, weekStart, weekEnd time.Time) ([]*settlement.Settlement, error) {
	week, err := settlement.NewWeek(weekStart, weekEnd)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	jobs := groupOrders(orders)

	results := make([]*settlement.Settlement, len(jobs))
	var skipped atomic.Int64
	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			log := a.logger.WithFields(logrus.Fields{
				"partner_kind": job.kind,
				"external_id":  job.externalID,
				"week_start":   week.Start.Format("2006-01-02"),
			})
			if err := ctx.Err(); err != nil {
				skipped.Add(1)
				return nil
			}
			s, err := a.settleGroup(ctx, job, week)
			if err != nil {
				skipped.Add(1)
				reason := skipReason(err)
				metrics.IncSettlementGroupSkipped(string(job.kind), reason)
				if reason == "duplicate" {
					log.Info("settlement already exists, group skipped")
				} else {
					log.WithError(err).Warn("settlement group skipped")
				}
				return nil
			}
			results[i] = s
			return nil
		})
	}
	_ = g.Wait()

	produced := make([]*settlement.Settlement, 0, len(results))
	for _, s := range results {
		if s != nil {
			produced = append(produced, s)
		}
	}
	metrics.ObserveSettlementRun(time.Since(start))
	a.logger.WithFields(logrus.Fields{
		"week":        week.String(),
		"orders":      len(orders),
		"settlements": len(produced),
		"skipped":     skipped.Load(),
	}).Info("weekly settlements generated")

	if err := ctx.Err(); err != nil {
		return produced, err
	}
	return produced, nil
}

func (a *Aggregator) settleGroup(ctx context.Context, job groupJob, week settlement.Week) (*settlement.Settlement, error) {
	var draft *settlement.Settlement
	switch job.kind {
	case settlement.PartnerKindCourier:
		ref, err := a.partners.ResolveCourier(ctx, job.externalID)
		if err != nil {
			return nil, err
		}
		orders, err := a.courierOrders(ctx, job.orders)
		if err != nil {
			return nil, err
		}
		draft, err = settlement.NewCourierSettlement(ref, week, orders, a.clock.Now())
		if err != nil {
			return nil, err
		}
	case settlement.PartnerKindRestaurant:
		ref, err := a.partners.ResolveRestaurant(ctx, job.externalID)
		if err != nil {
			return nil, err
		}
		draft, err = settlement.NewRestaurantSettlement(ref, week, restaurantOrders(job.orders), a.clock.Now())
		if err != nil {
			return nil, err
		}
	default:
		return nil, settlement.ErrInvalidKind
	}
	return a.settlements.CreateWithBill(ctx, draft)
}

// courierOrders marks each order with the bonus flag of its fee calculation.
// Orders without a known calculation count as regular.
func (a *Aggregator) courierOrders(ctx context.Context, orders []DeliveredOrder) ([]settlement.CourierOrder, error) {
	var ids []int64
	for _, order := range orders {
		if order.CalculationID > 0 {
			ids = append(ids, order.CalculationID)
		}
	}
	bonus := map[int64]bool{}
	if len(ids) > 0 {
		var err error
		bonus, err = a.bonuses.HighVolumeByCalculation(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("load fee calculations: %w", err)
		}
	}

	result := make([]settlement.CourierOrder, 0, len(orders))
	for _, order := range orders {
		result = append(result, settlement.CourierOrder{
			ExternalOrderID: order.OrderID,
			OrderDate:       order.CreatedAt,
			CourierShare:    order.CourierShare,
			HighVolumeBonus: order.CalculationID > 0 && bonus[order.CalculationID],
		})
	}
	return result, nil
}

func restaurantOrders(orders []DeliveredOrder) []settlement.RestaurantOrder {
	result := make([]settlement.RestaurantOrder, 0, len(orders))
	for _, order := range orders {
		result = append(result, settlement.RestaurantOrder{
			ExternalOrderID: order.OrderID,
			OrderDate:       order.CreatedAt,
			OrderTotal:      order.OrderTotal,
			DeliveryFee:     order.DeliveryFee,
		})
	}
	return result
}

// groupOrders partitions orders by courier and, independently, by
// restaurant.
func groupOrders(orders []DeliveredOrder) []groupJob {
	byCourier := map[int64][]DeliveredOrder{}
	byRestaurant := map[int64][]DeliveredOrder{}
	for _, order := range orders {
		byCourier[order.CourierID] = append(byCourier[order.CourierID], order)
		byRestaurant[order.RestaurantID] = append(byRestaurant[order.RestaurantID], order)
	}

	jobs := make([]groupJob, 0, len(byCourier)+len(byRestaurant))
	jobs = appendJobs(jobs, settlement.PartnerKindCourier, byCourier)
	jobs = appendJobs(jobs, settlement.PartnerKindRestaurant, byRestaurant)
	return jobs
}

func appendJobs(jobs []groupJob, kind settlement.PartnerKind, groups map[int64][]DeliveredOrder) []groupJob {
	ids := make([]int64, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		jobs = append(jobs, groupJob{kind: kind, externalID: id, orders: groups[id]})
	}
	return jobs
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, settlement.ErrDuplicateSettlement):
		return "duplicate"
	case errors.Is(err, settlement.ErrPartnerUnresolved):
		return "unresolved_partner"
	default:
		return "error"
	}
}
