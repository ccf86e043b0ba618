package interfaces

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"delivery-settlement/internal/settlement/application"
	settlement "delivery-settlement/internal/settlement/domain"
)

const dateLayout = "2006-01-02"

var errNilView = errors.New("settlement export: nil settlement")

// BuildSettlementPDF renders a settlement and its lines as a PDF.
func BuildSettlementPDF(view *application.SettlementView) ([]byte, error) {
	if view == nil || view.Settlement == nil {
		return nil, errNilView
	}
	s := view.Settlement
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, s.Name)
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	for _, row := range summaryRows(view) {
		pdf.Cell(0, 6, fmt.Sprintf("%s: %v", row.label, row.value))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	headers, widths := lineHeaders(s.PartnerKind)
	pdf.SetFont("Arial", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, line := range s.Lines {
		for i, cell := range lineCells(s.PartnerKind, line) {
			align := "R"
			if i < 2 {
				align = "C"
			}
			pdf.CellFormat(widths[i], 6, cell, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildSettlementXLSX renders a settlement as a workbook with a summary and
// a lines sheet.
func BuildSettlementXLSX(view *application.SettlementView) ([]byte, error) {
	if view == nil || view.Settlement == nil {
		return nil, errNilView
	}
	s := view.Settlement
	f := excelize.NewFile()
	defer f.Close()
	summarySheet := "summary"
	linesSheet := "lines"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(linesSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", s.Name)
	for i, row := range summaryRows(view) {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", i+3), row.label)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+3), row.value)
	}

	headers, _ := lineHeaders(s.PartnerKind)
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(linesSheet, cell, h)
	}
	for r, line := range s.Lines {
		values := []any{line.ExternalOrderID, line.OrderDate.Format(dateLayout)}
		if s.PartnerKind == settlement.PartnerKindRestaurant {
			values = append(values, line.OrderAmount, line.DeliveryFee, line.Amount)
		} else {
			values = append(values, bonusLabel(line.HighVolumeBonus), line.Amount)
		}
		for c, v := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, err
			}
			_ = f.SetCellValue(linesSheet, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type summaryRow struct {
	label string
	value any
}

func summaryRows(view *application.SettlementView) []summaryRow {
	s := view.Settlement
	rows := []summaryRow{
		{"Partner", s.PartnerName},
		{"Partner type", string(s.PartnerKind)},
		{"Week", s.Week().String()},
		{"Settlement date", s.SettlementDate.Format(dateLayout)},
		{"State", string(view.State)},
		{"Orders", s.TotalOrders},
	}
	if s.PartnerKind == settlement.PartnerKindRestaurant {
		rows = append(rows,
			summaryRow{"Order revenue", s.TotalOrderAmount},
			summaryRow{"Delivery fees", s.TotalDeliveryFees},
		)
	} else {
		rows = append(rows,
			summaryRow{"Regular deliveries", s.RegularCount},
			summaryRow{"High-volume deliveries", s.HighVolumeCount},
		)
	}
	rows = append(rows, summaryRow{"Amount due", fmt.Sprintf("%.2f", s.TotalAmountDue)})
	if s.BillRef != "" {
		rows = append(rows, summaryRow{"Bill", s.BillRef})
	}
	rows = append(rows, summaryRow{"Generated", s.CreatedAt.Format(time.RFC3339)})
	return rows
}

func lineHeaders(kind settlement.PartnerKind) ([]string, []float64) {
	if kind == settlement.PartnerKindRestaurant {
		return []string{"Order", "Date", "Order total", "Delivery fee", "Amount"}, []float64{30, 30, 40, 40, 40}
	}
	return []string{"Order", "Date", "Rate", "Amount"}, []float64{35, 35, 45, 45}
}

func lineCells(kind settlement.PartnerKind, line settlement.Line) []string {
	cells := []string{fmt.Sprintf("%d", line.ExternalOrderID), line.OrderDate.Format(dateLayout)}
	if kind == settlement.PartnerKindRestaurant {
		return append(cells,
			fmt.Sprintf("%.2f", line.OrderAmount),
			fmt.Sprintf("%.2f", line.DeliveryFee),
			fmt.Sprintf("%.2f", line.Amount),
		)
	}
	return append(cells, bonusLabel(line.HighVolumeBonus), fmt.Sprintf("%.2f", line.Amount))
}

func bonusLabel(bonus bool) string {
	if bonus {
		return "high volume (65%)"
	}
	return "regular (60%)"
}
