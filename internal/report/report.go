package report

import (
	"fmt"
	"sort"
	"time"

	"medstore/m/domain"
	"medstore/m/internal/catalog"
	"medstore/m/internal/ledger"
)

// Engine derives reports from the catalog and ledger. It is read-only.
type Engine struct {
	catalog *catalog.Store
	ledger  *ledger.Ledger
}

func New(cs *catalog.Store, l *ledger.Ledger) *Engine {
	return &Engine{catalog: cs, ledger: l}
}

// LowStock returns every medicine below its minimum stock level, most
// critical first: ordered by (stock − minStock) ascending.
func (e *Engine) LowStock() []domain.InventoryItem {
	var out []domain.InventoryItem
	for _, m := range e.catalog.List() {
		if !catalog.IsLowStock(m) {
			continue
		}
		out = append(out, domain.InventoryItem{
			Medicine:   m,
			Quantity:   m.StockQuantity,
			IsLowStock: true,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		di := out[i].Medicine.StockQuantity - out[i].Medicine.MinStockLevel
		dj := out[j].Medicine.StockQuantity - out[j].Medicine.MinStockLevel
		if di != dj {
			return di < dj
		}
		return out[i].Medicine.Name < out[j].Medicine.Name
	})
	return out
}

// Expiring returns the medicines expiring within days of asOf, soonest
// first.
func (e *Engine) Expiring(days int, asOf time.Time) []domain.Medicine {
	var out []domain.Medicine
	for _, m := range e.catalog.List() {
		if catalog.IsExpiringWithin(m, days, asOf) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiryDate.Equal(out[j].ExpiryDate) {
			return out[i].ExpiryDate.Before(out[j].ExpiryDate)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Tax aggregates ledger totals over [from, to], both inclusive at day
// granularity. The bounds must be ordered when both are set.
func (e *Engine) Tax(from, to time.Time) (domain.TaxData, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return domain.TaxData{}, fmt.Errorf("%w: end date before start date", domain.ErrInvalidInput)
	}
	var data domain.TaxData
	for _, tx := range e.ledger.List(ledger.Filter{From: from, To: to}) {
		switch tx.Type {
		case domain.TransactionSell:
			data.TotalSales += tx.TotalAmount
			data.GSTCollected += tx.GSTAmount
		case domain.TransactionPurchase:
			data.TotalPurchases += tx.TotalAmount
			data.GSTPaid += tx.GSTAmount
		}
	}
	data.NetProfit = data.TotalSales - data.TotalPurchases
	return data, nil
}
