package settlement

// State is derived from the linked bill on every read.
type State string

const (
	StateAwaitingPayment State = "awaiting_payment"
	StatePaid            State = "paid"
	StateCancelled       State = "cancelled"
)

// BillStatus is the posting status of a payable bill.
type BillStatus string

const (
	BillStatusDraft     BillStatus = "draft"
	BillStatusPosted    BillStatus = "posted"
	BillStatusCancelled BillStatus = "cancelled"
)

// PaymentStatus is the payment progress of a payable bill.
type PaymentStatus string

const (
	PaymentStatusNotPaid   PaymentStatus = "not_paid"
	PaymentStatusInPayment PaymentStatus = "in_payment"
	PaymentStatusPartial   PaymentStatus = "partial"
	PaymentStatusPaid      PaymentStatus = "paid"
)

// Bill is the payables view of a settlement's bill.
type Bill struct {
	Ref           string        `json:"ref"`
	Status        BillStatus    `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
}

// DeriveState projects a bill onto the settlement lifecycle.
// A cancelled bill wins over its payment status.
func DeriveState(bill *Bill) State {
	switch {
	case bill == nil:
		return StateAwaitingPayment
	case bill.Status == BillStatusCancelled:
		return StateCancelled
	case bill.PaymentStatus == PaymentStatusPaid:
		return StatePaid
	default:
		return StateAwaitingPayment
	}
}
