package settlement

import "errors"

var (
	// ErrSettlementNotFound is returned when a settlement is not found.
	ErrSettlementNotFound = errors.New("settlement: not found")
	// ErrDuplicateSettlement is returned when the partner already has a settlement for the week.
	ErrDuplicateSettlement = errors.New("settlement: duplicate for partner and week")
	// ErrBillAlreadyLinked is returned when a settlement already carries a bill.
	ErrBillAlreadyLinked = errors.New("settlement: bill already linked")
	// ErrInvalidWeek is returned for zero or inverted week bounds.
	ErrInvalidWeek = errors.New("settlement: invalid week")
	// ErrInvalidKind is returned for an unknown partner kind.
	ErrInvalidKind = errors.New("settlement: invalid partner kind")
	// ErrInvalidPartner is returned when the partner reference is empty.
	ErrInvalidPartner = errors.New("settlement: invalid partner")
	// ErrPartnerUnresolved is returned when a partner is neither known locally nor at the order source.
	ErrPartnerUnresolved = errors.New("settlement: partner not resolvable")
	// ErrNoOrders is returned when building a settlement without orders.
	ErrNoOrders = errors.New("settlement: no orders")
	// ErrBillNotFound is returned by payables gateways that have no bill for a reference.
	ErrBillNotFound = errors.New("payables: bill not found")
	// ErrNilSettlement is returned when saving a nil settlement.
	ErrNilSettlement = errors.New("settlement: nil settlement")
)
