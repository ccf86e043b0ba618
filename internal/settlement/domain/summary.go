package settlement

import "github.com/shopspring/decimal"

// PartnerSummary totals a partner's settlements.
type PartnerSummary struct {
	PartnerID        int64       `json:"partner_id"`
	PartnerKind      PartnerKind `json:"partner_kind"`
	TotalSettlements int         `json:"total_settlements"`
	TotalAmount      float64     `json:"total_amount"`
	TotalOrders      int         `json:"total_orders"`
	// AveragePerOrder is per delivery for couriers.
	AveragePerOrder float64 `json:"average_per_order"`
}

// Summarize totals the settlements of the given kind.
func Summarize(partnerID int64, kind PartnerKind, settlements []Settlement) PartnerSummary {
	summary := PartnerSummary{PartnerID: partnerID, PartnerKind: kind}
	total := decimal.Zero
	for _, s := range settlements {
		if s.PartnerID != partnerID || s.PartnerKind != kind {
			continue
		}
		summary.TotalSettlements++
		summary.TotalOrders += s.TotalOrders
		total = total.Add(decimal.NewFromFloat(s.TotalAmountDue))
	}
	summary.TotalAmount = money(total)
	if summary.TotalOrders > 0 {
		summary.AveragePerOrder = money(total.Div(decimal.NewFromInt(int64(summary.TotalOrders))))
	}
	return summary
}
