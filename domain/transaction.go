package domain

import "time"

type TransactionType string

const (
	TransactionSell     TransactionType = "sell"
	TransactionPurchase TransactionType = "purchase"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == TransactionSell || t == TransactionPurchase
}

// TransactionItem is an immutable line of a transaction. Price and BatchNo
// are snapshots taken when the transaction was recorded.
type TransactionItem struct {
	MedicineID string  `db:"medicine_id" json:"medicine_id"`
	Quantity   int64   `db:"quantity" json:"quantity"`
	Price      float64 `db:"price" json:"price"`
	BatchNo    string  `db:"batch_no" json:"batch_no"`
}

// Transaction is an immutable ledger entry. Corrections are modeled by
// deleting the entry, which reverses its stock deltas.
type Transaction struct {
	ID                string            `db:"id" json:"id"`
	Type              TransactionType   `db:"type" json:"type"`
	Items             []TransactionItem `json:"items"`
	TotalAmount       float64           `db:"total_amount" json:"total_amount"`
	GSTAmount         float64           `db:"gst_amount" json:"gst_amount,omitempty"`
	Date              time.Time         `db:"date" json:"date"`
	InvoiceNumber     int64             `db:"invoice_number" json:"invoice_number"`
	CustomerName      string            `db:"customer_name" json:"customer_name,omitempty"`
	PrescriptionFiles []string          `json:"prescription_files,omitempty"`
}

// TaxData aggregates ledger totals over a date range.
type TaxData struct {
	TotalSales     float64 `json:"total_sales"`
	TotalPurchases float64 `json:"total_purchases"`
	GSTCollected   float64 `json:"gst_collected"`
	GSTPaid        float64 `json:"gst_paid"`
	NetProfit      float64 `json:"net_profit"`
}
