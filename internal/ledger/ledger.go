package ledger

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"medstore/m/domain"
	"medstore/m/internal/catalog"
)

// Ledger is the append-only transaction record. Every recorded transaction
// has already had its stock deltas applied to the catalog; deleting one
// reverses them.
type Ledger struct {
	mu           sync.RWMutex
	catalog      *catalog.Store
	transactions map[string]*domain.Transaction
	counters     map[domain.TransactionType]int64
	gstRate      float64
}

// New constructs an empty ledger over the given catalog. gstRate is the
// fraction added as GST when a request asks for tax, e.g. 0.12.
func New(cs *catalog.Store, gstRate float64) *Ledger {
	return &Ledger{
		catalog:      cs,
		transactions: make(map[string]*domain.Transaction),
		counters: map[domain.TransactionType]int64{
			domain.TransactionSell:     0,
			domain.TransactionPurchase: 0,
		},
		gstRate: gstRate,
	}
}

// ItemRequest is one requested transaction line. A nil UnitPrice means
// "snapshot the catalog price"; an explicit zero records a free line item.
type ItemRequest struct {
	MedicineID string   `json:"medicine_id"`
	Quantity   int64    `json:"quantity"`
	UnitPrice  *float64 `json:"unit_price,omitempty"`
}

// RecordRequest carries everything needed to record one transaction.
type RecordRequest struct {
	Type              domain.TransactionType `json:"type"`
	Items             []ItemRequest          `json:"items"`
	CustomerName      string                 `json:"customer_name,omitempty"`
	PrescriptionFiles []string               `json:"prescription_files,omitempty"`
	SkipPrescription  bool                   `json:"skip_prescription,omitempty"`
	ApplyGST          bool                   `json:"apply_gst,omitempty"`
	Date              time.Time              `json:"date,omitempty"`
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Type     domain.TransactionType
	From     time.Time
	To       time.Time
	Customer string
}

// Record validates the request against the catalog, applies all stock
// deltas as one all-or-nothing unit, assigns the next per-type invoice
// number and appends the immutable transaction. On any failure no stock
// is changed and no invoice number is consumed.
func (l *Ledger) Record(req RecordRequest) (domain.Transaction, error) {
	if !req.Type.Valid() {
		return domain.Transaction{}, fmt.Errorf("%w: transaction type %q", domain.ErrInvalidInput, req.Type)
	}
	if len(req.Items) == 0 {
		return domain.Transaction{}, fmt.Errorf("%w: transaction needs at least one item", domain.ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	items := make([]domain.TransactionItem, 0, len(req.Items))
	deltas := make([]catalog.StockDelta, 0, len(req.Items))
	scheduleH := false
	var subtotal float64

	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return domain.Transaction{}, fmt.Errorf("%w: quantity must be positive for medicine %s", domain.ErrInvalidInput, it.MedicineID)
		}
		if it.UnitPrice != nil && *it.UnitPrice < 0 {
			return domain.Transaction{}, fmt.Errorf("%w: unit price must not be negative for medicine %s", domain.ErrInvalidInput, it.MedicineID)
		}
		med, err := l.catalog.Get(it.MedicineID)
		if err != nil {
			return domain.Transaction{}, err
		}
		price := med.Price
		if it.UnitPrice != nil {
			price = *it.UnitPrice
		}
		delta := it.Quantity
		if req.Type == domain.TransactionSell {
			if med.StockQuantity < it.Quantity {
				return domain.Transaction{}, fmt.Errorf("%w: medicine %s has %d units, requested %d",
					domain.ErrInsufficientStock, med.ID, med.StockQuantity, it.Quantity)
			}
			delta = -it.Quantity
		}
		if med.IsScheduleH {
			scheduleH = true
		}
		items = append(items, domain.TransactionItem{
			MedicineID: med.ID,
			Quantity:   it.Quantity,
			Price:      price,
			BatchNo:    med.BatchNo,
		})
		deltas = append(deltas, catalog.StockDelta{MedicineID: med.ID, Delta: delta})
		subtotal += price * float64(it.Quantity)
	}

	if req.Type == domain.TransactionSell && scheduleH &&
		len(req.PrescriptionFiles) == 0 && !req.SkipPrescription {
		return domain.Transaction{}, fmt.Errorf("%w: sale includes a Schedule H medicine", domain.ErrPrescriptionRequired)
	}

	var gst float64
	if req.ApplyGST {
		gst = subtotal * l.gstRate
	}

	if err := l.catalog.ApplyDeltas(deltas); err != nil {
		return domain.Transaction{}, err
	}

	date := req.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	l.counters[req.Type]++
	tx := &domain.Transaction{
		ID:                uuid.NewString(),
		Type:              req.Type,
		Items:             items,
		TotalAmount:       subtotal + gst,
		GSTAmount:         gst,
		Date:              date,
		InvoiceNumber:     l.counters[req.Type],
		CustomerName:      req.CustomerName,
		PrescriptionFiles: append([]string(nil), req.PrescriptionFiles...),
	}
	l.transactions[tx.ID] = tx
	return cloneTransaction(tx), nil
}

// Get returns the transaction with the given id.
func (l *Ledger) Get(id string) (domain.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	tx, ok := l.transactions[id]
	if !ok {
		return domain.Transaction{}, fmt.Errorf("%w: transaction %s", domain.ErrNotFound, id)
	}
	return cloneTransaction(tx), nil
}

// Delete removes a transaction and reverses its stock deltas. Deleting a
// purchase fails with ErrInsufficientStock when the purchased units have
// since been sold; the transaction stays in the ledger in that case.
// Invoice counters are never rewound.
func (l *Ledger) Delete(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	tx, ok := l.transactions[id]
	if !ok {
		return fmt.Errorf("%w: transaction %s", domain.ErrNotFound, id)
	}
	deltas := make([]catalog.StockDelta, len(tx.Items))
	for i, it := range tx.Items {
		delta := it.Quantity
		if tx.Type == domain.TransactionPurchase {
			delta = -it.Quantity
		}
		deltas[i] = catalog.StockDelta{MedicineID: it.MedicineID, Delta: delta}
	}
	if err := l.catalog.ApplyDeltas(deltas); err != nil {
		return err
	}
	delete(l.transactions, id)
	return nil
}

// List returns detached copies of the transactions matching the filter,
// ordered by date ascending with ties broken by invoice number.
func (l *Ledger) List(f Filter) []domain.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.list(f)
}

func (l *Ledger) list(f Filter) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(l.transactions))
	for _, tx := range l.transactions {
		if f.Type != "" && tx.Type != f.Type {
			continue
		}
		if !inRange(tx.Date, f.From, f.To) {
			continue
		}
		if f.Customer != "" && !strings.EqualFold(tx.CustomerName, f.Customer) {
			continue
		}
		out = append(out, cloneTransaction(tx))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].InvoiceNumber < out[j].InvoiceNumber
	})
	return out
}

// Counters returns a copy of the per-type invoice counters.
func (l *Ledger) Counters() map[domain.TransactionType]int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.countersCopy()
}

// Snapshot returns a mutually consistent view of the catalog, transactions
// and invoice counters for persistence. The ledger lock is held across the
// catalog read, so no transaction can commit between the two captures and
// every captured transaction's stock delta is reflected in the captured
// catalog.
func (l *Ledger) Snapshot() ([]domain.Medicine, []domain.Transaction, map[domain.TransactionType]int64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.catalog.List(), l.list(Filter{}), l.countersCopy()
}

func (l *Ledger) countersCopy() map[domain.TransactionType]int64 {
	out := make(map[domain.TransactionType]int64, len(l.counters))
	for k, v := range l.counters {
		out[k] = v
	}
	return out
}

// Restore loads previously persisted transactions and counters into an
// empty ledger without touching catalog stock. Counters only move forward.
func (l *Ledger) Restore(txs []domain.Transaction, counters map[domain.TransactionType]int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range txs {
		tx := txs[i]
		l.transactions[tx.ID] = &tx
		if tx.InvoiceNumber > l.counters[tx.Type] {
			l.counters[tx.Type] = tx.InvoiceNumber
		}
	}
	for typ, v := range counters {
		if v > l.counters[typ] {
			l.counters[typ] = v
		}
	}
}

// cloneTransaction detaches a stored entry from the read path so callers
// cannot mutate ledger state through returned slices.
func cloneTransaction(tx *domain.Transaction) domain.Transaction {
	out := *tx
	out.Items = append([]domain.TransactionItem(nil), tx.Items...)
	if tx.PrescriptionFiles != nil {
		out.PrescriptionFiles = append([]string(nil), tx.PrescriptionFiles...)
	}
	return out
}

// inRange compares at day granularity with inclusive bounds. Zero bounds
// are open.
func inRange(t, from, to time.Time) bool {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if !from.IsZero() {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		if day.Before(f) {
			return false
		}
	}
	if !to.IsZero() {
		u := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
		if day.After(u) {
			return false
		}
	}
	return true
}
