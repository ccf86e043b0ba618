package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"delivery-settlement/internal/observability/metrics"
	settlement "delivery-settlement/internal/settlement/domain"
)

const billLookupConcurrency = 8

// SettlementView is a stored settlement with its derived state.
type SettlementView struct {
	*settlement.Settlement
	State settlement.State `json:"state"`
	Bill  *settlement.Bill `json:"bill,omitempty"`
}

// SettlementService stores settlements and drives their payable bills.
type SettlementService struct {
	repo      settlement.Repository
	payables  PayablesGateway
	publisher SettlementPublisher
	accounts  settlement.ExpenseAccounts
	clock     Clock
	logger    logrus.FieldLogger
}

// NewSettlementService constructs the service.
func NewSettlementService(
	repo settlement.Repository,
	payables PayablesGateway,
	publisher SettlementPublisher,
	accounts settlement.ExpenseAccounts,
	clock Clock,
	logger logrus.FieldLogger,
) (*SettlementService, error) {
	if repo == nil {
		return nil, errors.New("settlement service: nil repository")
	}
	if payables == nil {
		return nil, errors.New("settlement service: nil payables gateway")
	}
	defaults := settlement.DefaultExpenseAccounts()
	if accounts.CourierCommission == "" {
		accounts.CourierCommission = defaults.CourierCommission
	}
	if accounts.RestaurantPayment == "" {
		accounts.RestaurantPayment = defaults.RestaurantPayment
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SettlementService{
		repo:      repo,
		payables:  payables,
		publisher: publisher,
		accounts:  accounts,
		clock:     clock,
		logger:    logger,
	}, nil
}

// Create stores the settlement and its lines.
func (s *SettlementService) Create(ctx context.Context, draft *settlement.Settlement) error {
	if draft == nil {
		return settlement.ErrNilSettlement
	}
	if err := s.repo.Create(ctx, draft); err != nil {
		return err
	}
	metrics.IncSettlementCreated(string(draft.PartnerKind))
	return nil
}

// AttemptBill creates and posts the payable bill for a stored settlement
// and links its reference.
func (s *SettlementService) AttemptBill(ctx context.Context, stored *settlement.Settlement) error {
	if stored == nil {
		return settlement.ErrNilSettlement
	}
	if stored.HasBill() {
		return settlement.ErrBillAlreadyLinked
	}

	req := BillRequest{
		IdempotencyKey: billIdempotencyKey(stored),
		SettlementID:   stored.ID,
		PartnerID:      stored.PartnerID,
		PartnerName:    stored.PartnerName,
		Reference:      settlement.BillReference(stored),
		InvoiceDate:    stored.SettlementDate,
		Lines:          settlement.BillLines(stored, s.accounts),
	}
	ref, err := s.payables.CreateAndPostBill(ctx, req)
	if err != nil {
		metrics.IncBillCreation(metrics.ResultError)
		return fmt.Errorf("create bill: %w", err)
	}
	if err := s.repo.LinkBill(ctx, stored.ID, ref); err != nil {
		metrics.IncBillCreation(metrics.ResultError)
		return fmt.Errorf("link bill %s: %w", ref, err)
	}
	stored.BillRef = ref
	metrics.IncBillCreation(metrics.ResultSuccess)
	return nil
}

// CreateWithBill stores the settlement, then tries to bill it. A billing
// failure leaves the stored settlement without a bill and is not returned.
func (s *SettlementService) CreateWithBill(ctx context.Context, draft *settlement.Settlement) (*settlement.Settlement, error) {
	if err := s.Create(ctx, draft); err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logrus.Fields{
		"settlement_id": draft.ID,
		"partner_id":    draft.PartnerID,
		"partner_kind":  draft.PartnerKind,
		"week_start":    draft.WeekStart.Format("2006-01-02"),
	})
	if err := s.AttemptBill(ctx, draft); err != nil {
		log.WithError(err).Error("bill creation failed, settlement awaits manual remediation")
	} else {
		log.WithField("bill_ref", draft.BillRef).Info("settlement billed")
	}

	if s.publisher != nil {
		event := SettlementCreated{
			SettlementID: draft.ID,
			PartnerID:    draft.PartnerID,
			PartnerKind:  draft.PartnerKind,
			WeekStart:    draft.WeekStart,
			Amount:       draft.TotalAmountDue,
			BillRef:      draft.BillRef,
			OccurredAt:   s.clock.Now(),
		}
		if err := s.publisher.PublishSettlementCreated(ctx, event); err != nil {
			log.WithError(err).Warn("publish settlement created failed")
		}
	}
	return draft, nil
}

// Get loads a settlement with lines and its derived state.
func (s *SettlementService) Get(ctx context.Context, id int64) (*SettlementView, error) {
	stored, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, stored)
}

// List loads settlements matching filter with their derived state.
func (s *SettlementService) List(ctx context.Context, filter settlement.ListFilter) ([]SettlementView, error) {
	stored, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	views := make([]SettlementView, len(stored))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(billLookupConcurrency)
	for i := range stored {
		i := i
		g.Go(func() error {
			view, err := s.view(gctx, &stored[i])
			if err != nil {
				return err
			}
			views[i] = *view
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

// RetryBill bills a settlement whose earlier bill attempt failed.
func (s *SettlementService) RetryBill(ctx context.Context, id int64) (*SettlementView, error) {
	stored, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.AttemptBill(ctx, stored); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"settlement_id": stored.ID,
		"bill_ref":      stored.BillRef,
	}).Info("settlement bill retried")
	return s.view(ctx, stored)
}

// PartnerSummary totals a partner's settlements of the given kind.
func (s *SettlementService) PartnerSummary(ctx context.Context, partnerID int64, kind settlement.PartnerKind) (settlement.PartnerSummary, error) {
	if !kind.Valid() {
		return settlement.PartnerSummary{}, settlement.ErrInvalidKind
	}
	stored, err := s.repo.List(ctx, settlement.ListFilter{Kind: kind, PartnerID: partnerID})
	if err != nil {
		return settlement.PartnerSummary{}, err
	}
	return settlement.Summarize(partnerID, kind, stored), nil
}

func (s *SettlementService) view(ctx context.Context, stored *settlement.Settlement) (*SettlementView, error) {
	bill, err := s.lookupBill(ctx, stored.BillRef)
	if err != nil {
		return nil, fmt.Errorf("settlement %d bill status: %w", stored.ID, err)
	}
	return &SettlementView{Settlement: stored, State: settlement.DeriveState(bill), Bill: bill}, nil
}

// lookupBill returns nil when the settlement has no bill or the gateway no
// longer knows the linked one.
func (s *SettlementService) lookupBill(ctx context.Context, ref string) (*settlement.Bill, error) {
	if ref == "" {
		return nil, nil
	}
	status, err := s.payables.BillStatus(ctx, ref)
	if err == nil {
		var payment settlement.PaymentStatus
		payment, err = s.payables.PaymentStatus(ctx, ref)
		if err == nil {
			return &settlement.Bill{Ref: ref, Status: status, PaymentStatus: payment}, nil
		}
	}
	if errors.Is(err, settlement.ErrBillNotFound) {
		s.logger.WithField("bill_ref", ref).Warn("linked bill missing at payables")
		return nil, nil
	}
	return nil, err
}

// billIdempotencyKey identifies the partner week, so it survives the
// settlement being stored again under a new id.
func billIdempotencyKey(s *settlement.Settlement) string {
	name := strings.Join([]string{
		string(s.PartnerKind),
		strconv.FormatInt(s.PartnerID, 10),
		s.WeekStart.UTC().Format(time.DateOnly),
	}, ":")
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}
