package export

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"medstore/m/domain"
)

// InvoicePDF renders a transaction as a printable invoice. names maps
// medicine ids to display names; missing entries fall back to the id.
func InvoicePDF(w io.Writer, tx domain.Transaction, names map[string]string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	title := "Tax Invoice"
	if tx.Type == domain.TransactionPurchase {
		title = "Purchase Record"
	}
	pdf.Cell(0, 10, title)
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Invoice No: %s-%04d", invoicePrefix(tx.Type), tx.InvoiceNumber))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Date: "+tx.Date.Format("2006-01-02"))
	pdf.Ln(6)
	if tx.CustomerName != "" {
		pdf.Cell(0, 6, "Customer: "+tx.CustomerName)
		pdf.Ln(6)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(70, 7, "Item", "1", 0, "L", false, 0, "")
	pdf.CellFormat(30, 7, "Batch", "1", 0, "L", false, 0, "")
	pdf.CellFormat(20, 7, "Qty", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, "Unit Price", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, "Amount", "1", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, it := range tx.Items {
		name := names[it.MedicineID]
		if name == "" {
			name = it.MedicineID
		}
		pdf.CellFormat(70, 7, name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, it.BatchNo, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%d", it.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, amount(it.Price), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, amount(it.Price*float64(it.Quantity)), "1", 1, "R", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	if tx.GSTAmount > 0 {
		pdf.CellFormat(150, 7, "GST", "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, amount(tx.GSTAmount), "1", 1, "R", false, 0, "")
	}
	pdf.CellFormat(150, 7, "Total", "", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, amount(tx.TotalAmount), "1", 1, "R", false, 0, "")

	if len(tx.PrescriptionFiles) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Arial", "I", 9)
		pdf.Cell(0, 5, fmt.Sprintf("Prescriptions on file: %d", len(tx.PrescriptionFiles)))
	}

	return pdf.Output(w)
}

// TaxReportPDF renders the tax summary for a date range.
func TaxReportPDF(w io.Writer, data domain.TaxData, from, to time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "GST / Profit Summary")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	period := "Period: all time"
	if !from.IsZero() || !to.IsZero() {
		period = fmt.Sprintf("Period: %s to %s", formatDate(from), formatDate(to))
	}
	pdf.Cell(0, 6, period)
	pdf.Ln(10)

	rows := []struct {
		label string
		value float64
	}{
		{"Total Sales", data.TotalSales},
		{"Total Purchases", data.TotalPurchases},
		{"GST Collected", data.GSTCollected},
		{"GST Paid", data.GSTPaid},
		{"Net Profit", data.NetProfit},
	}
	for _, row := range rows {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(90, 7, row.label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, amount(row.value), "1", 1, "R", false, 0, "")
	}

	return pdf.Output(w)
}

func invoicePrefix(t domain.TransactionType) string {
	if t == domain.TransactionPurchase {
		return "PUR"
	}
	return "INV"
}
