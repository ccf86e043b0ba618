package payables

import (
	"context"
	"errors"
	"fmt"
	"sync"

	settlementapp "delivery-settlement/internal/settlement/application"
	settlement "delivery-settlement/internal/settlement/domain"
)

// LedgerBill is a bill held by the in-memory ledger.
type LedgerBill struct {
	Ref           string
	Request       settlementapp.BillRequest
	Status        settlement.BillStatus
	PaymentStatus settlement.PaymentStatus
}

// MemoryLedger is an in-process payables system for tests and local runs.
// Bills are posted on creation; repeated idempotency keys return the
// existing bill.
type MemoryLedger struct {
	mu     sync.Mutex
	nextID int
	bills  map[string]*LedgerBill
	byKey  map[string]string
	err    error
}

// NewMemoryLedger constructs an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		bills: make(map[string]*LedgerBill),
		byKey: make(map[string]string),
	}
}

// FailWith makes bill creation return err until cleared with nil.
func (l *MemoryLedger) FailWith(err error) {
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
}

// CreateAndPostBill stores a posted, unpaid bill.
func (l *MemoryLedger) CreateAndPostBill(ctx context.Context, req settlementapp.BillRequest) (string, error) {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return "", l.err
	}
	if len(req.Lines) == 0 {
		return "", errors.New("payables: bill without lines")
	}
	if ref, ok := l.byKey[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return ref, nil
	}
	l.nextID++
	ref := fmt.Sprintf("BILL/%05d", l.nextID)
	l.bills[ref] = &LedgerBill{
		Ref:           ref,
		Request:       req,
		Status:        settlement.BillStatusPosted,
		PaymentStatus: settlement.PaymentStatusNotPaid,
	}
	if req.IdempotencyKey != "" {
		l.byKey[req.IdempotencyKey] = ref
	}
	return ref, nil
}

// BillStatus returns the posting status of a bill.
func (l *MemoryLedger) BillStatus(ctx context.Context, billRef string) (settlement.BillStatus, error) {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()
	bill, ok := l.bills[billRef]
	if !ok {
		return "", ErrBillNotFound
	}
	return bill.Status, nil
}

// PaymentStatus returns the payment status of a bill.
func (l *MemoryLedger) PaymentStatus(ctx context.Context, billRef string) (settlement.PaymentStatus, error) {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()
	bill, ok := l.bills[billRef]
	if !ok {
		return "", ErrBillNotFound
	}
	return bill.PaymentStatus, nil
}

// MarkPaid registers full payment of a bill.
func (l *MemoryLedger) MarkPaid(billRef string) error {
	return l.update(billRef, func(bill *LedgerBill) { bill.PaymentStatus = settlement.PaymentStatusPaid })
}

// Cancel cancels a bill.
func (l *MemoryLedger) Cancel(billRef string) error {
	return l.update(billRef, func(bill *LedgerBill) { bill.Status = settlement.BillStatusCancelled })
}

// Bill returns a copy of a stored bill.
func (l *MemoryLedger) Bill(billRef string) (LedgerBill, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	bill, ok := l.bills[billRef]
	if !ok {
		return LedgerBill{}, false
	}
	return *bill, true
}

func (l *MemoryLedger) update(billRef string, fn func(*LedgerBill)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	bill, ok := l.bills[billRef]
	if !ok {
		return ErrBillNotFound
	}
	fn(bill)
	return nil
}
