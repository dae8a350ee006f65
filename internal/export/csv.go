package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"medstore/m/domain"
)

const dateLayout = "2006-01-02"

// TaxReportCSV writes the tax summary as a two-column CSV. Totals are
// written exactly as computed by the report engine.
func TaxReportCSV(w io.Writer, data domain.TaxData, from, to time.Time) error {
	cw := csv.NewWriter(w)
	rows := [][]string{
		{"period_start", formatDate(from)},
		{"period_end", formatDate(to)},
		{"total_sales", amount(data.TotalSales)},
		{"total_purchases", amount(data.TotalPurchases)},
		{"gst_collected", amount(data.GSTCollected)},
		{"gst_paid", amount(data.GSTPaid)},
		{"net_profit", amount(data.NetProfit)},
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// LowStockCSV writes the low-stock report, one medicine per row.
func LowStockCSV(w io.Writer, items []domain.InventoryItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "name", "batch_no", "supplier", "stock_quantity", "min_stock_level"}); err != nil {
		return err
	}
	for _, it := range items {
		m := it.Medicine
		row := []string{
			m.ID, m.Name, m.BatchNo, m.Supplier,
			fmt.Sprintf("%d", m.StockQuantity),
			fmt.Sprintf("%d", m.MinStockLevel),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExpiringCSV writes the expiry report, one medicine per row.
func ExpiringCSV(w io.Writer, medicines []domain.Medicine) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "name", "batch_no", "supplier", "expiry_date", "stock_quantity"}); err != nil {
		return err
	}
	for _, m := range medicines {
		row := []string{
			m.ID, m.Name, m.BatchNo, m.Supplier,
			m.ExpiryDate.Format(dateLayout),
			fmt.Sprintf("%d", m.StockQuantity),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func amount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
