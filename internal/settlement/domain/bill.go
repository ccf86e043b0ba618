package settlement

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Default expense accounts for settlement bills.
const (
	DefaultCommissionExpenseAccount = "501000"
	DefaultRestaurantExpenseAccount = "502000"
)

// ExpenseAccounts selects the accounts bill lines are booked against.
type ExpenseAccounts struct {
	CourierCommission string `yaml:"courier_commission"`
	RestaurantPayment string `yaml:"restaurant_payment"`
}

// DefaultExpenseAccounts returns the standard chart codes.
func DefaultExpenseAccounts() ExpenseAccounts {
	return ExpenseAccounts{
		CourierCommission: DefaultCommissionExpenseAccount,
		RestaurantPayment: DefaultRestaurantExpenseAccount,
	}
}

// BillLine is one itemized line of a payable bill.
type BillLine struct {
	Description    string  `json:"description"`
	Quantity       float64 `json:"quantity"`
	UnitPrice      float64 `json:"unit_price"`
	ExpenseAccount string  `json:"expense_account"`
}

// BillReference is the vendor reference printed on the bill.
func BillReference(s *Settlement) string {
	kind := "Courier"
	if s.PartnerKind == PartnerKindRestaurant {
		kind = "Restaurant"
	}
	return fmt.Sprintf("%s Settlement - Week %s", kind, s.Week())
}

// BillLines itemizes a settlement for the payables system.
//
// Courier settlements get one line per commission rate that has deliveries.
// Restaurant settlements get a single revenue-share line.
func BillLines(s *Settlement, accounts ExpenseAccounts) []BillLine {
	if s == nil {
		return nil
	}
	if s.PartnerKind == PartnerKindRestaurant {
		return []BillLine{{
			Description:    fmt.Sprintf("Food order revenue share - %d orders (Week %s)", s.TotalOrders, s.WeekStart.Format(dateLayout)),
			Quantity:       1,
			UnitPrice:      s.TotalAmountDue,
			ExpenseAccount: accounts.RestaurantPayment,
		}}
	}

	regular, bonus := decimal.Zero, decimal.Zero
	for _, line := range s.Lines {
		if line.HighVolumeBonus {
			bonus = bonus.Add(decimal.NewFromFloat(line.Amount))
		} else {
			regular = regular.Add(decimal.NewFromFloat(line.Amount))
		}
	}

	var lines []BillLine
	if s.RegularCount > 0 {
		lines = append(lines, BillLine{
			Description:    fmt.Sprintf("Delivery commissions - %d deliveries (60%%)", s.RegularCount),
			Quantity:       float64(s.RegularCount),
			UnitPrice:      unitPrice(regular, s.RegularCount),
			ExpenseAccount: accounts.CourierCommission,
		})
	}
	if s.HighVolumeCount > 0 {
		lines = append(lines, BillLine{
			Description:    fmt.Sprintf("High volume bonus - %d deliveries (65%%)", s.HighVolumeCount),
			Quantity:       float64(s.HighVolumeCount),
			UnitPrice:      unitPrice(bonus, s.HighVolumeCount),
			ExpenseAccount: accounts.CourierCommission,
		})
	}
	return lines
}

func unitPrice(amount decimal.Decimal, quantity int) float64 {
	return amount.Div(decimal.NewFromInt(int64(quantity))).InexactFloat64()
}
