package report

import (
	"testing"
	"time"

	"medstore/m/domain"
	"medstore/m/internal/catalog"
	"medstore/m/internal/ledger"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func setup(t *testing.T) (*catalog.Store, *ledger.Ledger, *Engine) {
	t.Helper()
	cs := catalog.New()
	meds := []domain.Medicine{
		{ID: "m1", Name: "Paracetamol", BatchNo: "B1", ExpiryDate: day(2026, 2, 10), Price: 2, StockQuantity: 100, MinStockLevel: 5},
		{ID: "m2", Name: "Ibuprofen", BatchNo: "B2", ExpiryDate: day(2026, 1, 20), Price: 3, StockQuantity: 2, MinStockLevel: 10},
		{ID: "m3", Name: "Cetirizine", BatchNo: "B3", ExpiryDate: day(2027, 6, 1), Price: 1.5, StockQuantity: 4, MinStockLevel: 6},
	}
	for _, m := range meds {
		if err := cs.Add(m); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	l := ledger.New(cs, 0.1)
	return cs, l, New(cs, l)
}

func TestLowStockReport(t *testing.T) {
	_, _, e := setup(t)
	items := e.LowStock()
	if len(items) != 2 {
		t.Fatalf("expected 2 low-stock items, got %d", len(items))
	}
	// m2 is 8 under its minimum, m3 only 2 under; most critical first.
	if items[0].Medicine.ID != "m2" || items[1].Medicine.ID != "m3" {
		t.Fatalf("unexpected order: %s, %s", items[0].Medicine.ID, items[1].Medicine.ID)
	}
	for _, it := range items {
		if !it.IsLowStock {
			t.Fatalf("item %s not flagged low stock", it.Medicine.ID)
		}
		if it.Quantity != it.Medicine.StockQuantity {
			t.Fatalf("derived quantity mismatch for %s", it.Medicine.ID)
		}
	}
}

func TestLowStockReflectsSales(t *testing.T) {
	cs, l, e := setup(t)
	if err := cs.Delete("m2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := cs.Delete("m3"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// m1: stock 100, min 5. Sell down to 4 and it must appear.
	sell := func(qty int64) {
		t.Helper()
		if _, err := l.Record(ledger.RecordRequest{
			Type:  domain.TransactionSell,
			Items: []ledger.ItemRequest{{MedicineID: "m1", Quantity: qty}},
		}); err != nil {
			t.Fatalf("sell %d: %v", qty, err)
		}
	}
	sell(90)
	if got := e.LowStock(); len(got) != 0 {
		t.Fatalf("stock 10 of min 5 should not be low, got %d items", len(got))
	}
	sell(6)
	got := e.LowStock()
	if len(got) != 1 || got[0].Medicine.ID != "m1" {
		t.Fatalf("expected m1 low after selling down, got %+v", got)
	}
}

func TestExpiringReport(t *testing.T) {
	_, _, e := setup(t)
	asOf := day(2026, 1, 1)
	got := e.Expiring(60, asOf)
	if len(got) != 2 {
		t.Fatalf("expected 2 expiring medicines, got %d", len(got))
	}
	if got[0].ID != "m2" || got[1].ID != "m1" {
		t.Fatalf("expected soonest first, got %s, %s", got[0].ID, got[1].ID)
	}
	if got := e.Expiring(10, asOf); len(got) != 0 {
		t.Fatalf("expected none within 10 days, got %d", len(got))
	}
}

func TestTaxReport(t *testing.T) {
	_, l, e := setup(t)

	record := func(typ domain.TransactionType, qty int64, price float64, d time.Time) {
		t.Helper()
		if _, err := l.Record(ledger.RecordRequest{
			Type:     typ,
			Items:    []ledger.ItemRequest{{MedicineID: "m1", Quantity: qty, UnitPrice: &price}},
			ApplyGST: true,
			Date:     d,
		}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	record(domain.TransactionPurchase, 50, 1, day(2026, 1, 4))
	record(domain.TransactionSell, 10, 2, day(2026, 1, 10))
	record(domain.TransactionSell, 20, 2, day(2026, 1, 20))
	record(domain.TransactionPurchase, 30, 1, day(2026, 2, 2))

	jan, err := e.Tax(day(2026, 1, 1), day(2026, 1, 31))
	if err != nil {
		t.Fatalf("tax: %v", err)
	}
	// Sells: 20 and 40 + 10% GST each.
	if jan.TotalSales != 66 {
		t.Fatalf("expected sales 66, got %v", jan.TotalSales)
	}
	if jan.TotalPurchases != 55 {
		t.Fatalf("expected purchases 55, got %v", jan.TotalPurchases)
	}
	if jan.GSTCollected != 6 {
		t.Fatalf("expected gst collected 6, got %v", jan.GSTCollected)
	}
	if jan.GSTPaid != 5 {
		t.Fatalf("expected gst paid 5, got %v", jan.GSTPaid)
	}
	if jan.NetProfit != 11 {
		t.Fatalf("expected net profit 11, got %v", jan.NetProfit)
	}

	// Additivity over a non-overlapping partition of January.
	first, err := e.Tax(day(2026, 1, 1), day(2026, 1, 15))
	if err != nil {
		t.Fatalf("tax: %v", err)
	}
	second, err := e.Tax(day(2026, 1, 16), day(2026, 1, 31))
	if err != nil {
		t.Fatalf("tax: %v", err)
	}
	if first.TotalSales+second.TotalSales != jan.TotalSales {
		t.Fatalf("sales not additive: %v + %v != %v", first.TotalSales, second.TotalSales, jan.TotalSales)
	}
	if first.TotalPurchases+second.TotalPurchases != jan.TotalPurchases {
		t.Fatalf("purchases not additive")
	}

	if _, err := e.Tax(day(2026, 2, 1), day(2026, 1, 1)); err == nil {
		t.Fatal("expected error for inverted range")
	}
}

func TestScenarioSellUntilLowStock(t *testing.T) {
	cs := catalog.New()
	if err := cs.Add(domain.Medicine{
		ID: "m", Name: "Medicine M", ExpiryDate: day(2027, 1, 1),
		Price: 1, StockQuantity: 10, MinStockLevel: 5,
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	l := ledger.New(cs, 0)
	e := New(cs, l)

	sell := func(qty int64) error {
		_, err := l.Record(ledger.RecordRequest{
			Type:  domain.TransactionSell,
			Items: []ledger.ItemRequest{{MedicineID: "m", Quantity: qty}},
		})
		return err
	}

	if err := sell(3); err != nil {
		t.Fatalf("sell 3: %v", err)
	}
	m, _ := cs.Get("m")
	if m.StockQuantity != 7 || catalog.IsLowStock(m) {
		t.Fatalf("expected stock 7 not low, got %d", m.StockQuantity)
	}

	if err := sell(3); err != nil {
		t.Fatalf("sell 3: %v", err)
	}
	m, _ = cs.Get("m")
	if m.StockQuantity != 4 || !catalog.IsLowStock(m) {
		t.Fatalf("expected stock 4 low, got %d", m.StockQuantity)
	}
	low := e.LowStock()
	if len(low) != 1 || low[0].Medicine.ID != "m" {
		t.Fatalf("expected m in low-stock report, got %+v", low)
	}

	if err := sell(10); err == nil {
		t.Fatal("expected sell 10 to fail")
	}
	m, _ = cs.Get("m")
	if m.StockQuantity != 4 {
		t.Fatalf("failed sell must leave stock at 4, got %d", m.StockQuantity)
	}
}
