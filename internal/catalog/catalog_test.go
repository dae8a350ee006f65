package catalog

import (
	"errors"
	"testing"
	"time"

	"medstore/m/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func med(id, name string, stock, minStock int64) domain.Medicine {
	return domain.Medicine{
		ID:            id,
		Name:          name,
		BatchNo:       "B1",
		Supplier:      "Acme Pharma",
		ExpiryDate:    day(2027, 1, 1),
		Price:         5,
		StockQuantity: stock,
		MinStockLevel: minStock,
	}
}

func TestAddAndGet(t *testing.T) {
	s := New()
	if err := s.Add(med("m1", "Paracetamol", 10, 5)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Add(med("m1", "Paracetamol", 10, 5)); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
	got, err := s.Get("m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Paracetamol" {
		t.Fatalf("unexpected medicine %+v", got)
	}
	if _, err := s.Get("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddValidation(t *testing.T) {
	s := New()
	bad := []domain.Medicine{
		{ID: "", Name: "X"},
		{ID: "m1", Name: ""},
		{ID: "m1", Name: "X", Price: -1},
		{ID: "m1", Name: "X", StockQuantity: -1},
		{ID: "m1", Name: "X", MinStockLevel: -1},
	}
	for i, m := range bad {
		if err := s.Add(m); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestUpdatePreservesStock(t *testing.T) {
	s := New()
	if err := s.Add(med("m1", "Paracetamol", 10, 5)); err != nil {
		t.Fatalf("add: %v", err)
	}
	updated := med("m1", "Paracetamol 500mg", 99, 3)
	if err := s.Update(updated); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := s.Get("m1")
	if got.Name != "Paracetamol 500mg" || got.MinStockLevel != 3 {
		t.Fatalf("update not applied: %+v", got)
	}
	if got.StockQuantity != 10 {
		t.Fatalf("update must not change stock, got %d", got.StockQuantity)
	}
}

func TestAdjustStock(t *testing.T) {
	s := New()
	if err := s.Add(med("m1", "Paracetamol", 10, 5)); err != nil {
		t.Fatalf("add: %v", err)
	}
	m, err := s.AdjustStock("m1", -4)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if m.StockQuantity != 6 {
		t.Fatalf("expected 6, got %d", m.StockQuantity)
	}
	if _, err := s.AdjustStock("m1", -7); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if _, err := s.AdjustStock("missing", 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	got, _ := s.Get("m1")
	if got.StockQuantity != 6 {
		t.Fatalf("failed adjust must not change stock, got %d", got.StockQuantity)
	}
}

func TestApplyDeltasRollsBackOnFailure(t *testing.T) {
	s := New()
	if err := s.Add(med("m1", "Paracetamol", 10, 5)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Add(med("m2", "Ibuprofen", 3, 2)); err != nil {
		t.Fatalf("add: %v", err)
	}
	err := s.ApplyDeltas([]StockDelta{
		{MedicineID: "m1", Delta: -5},
		{MedicineID: "m2", Delta: -4},
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	m1, _ := s.Get("m1")
	m2, _ := s.Get("m2")
	if m1.StockQuantity != 10 || m2.StockQuantity != 3 {
		t.Fatalf("rollback failed: m1=%d m2=%d", m1.StockQuantity, m2.StockQuantity)
	}

	if err := s.ApplyDeltas([]StockDelta{
		{MedicineID: "m1", Delta: -5},
		{MedicineID: "m2", Delta: -3},
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	m1, _ = s.Get("m1")
	m2, _ = s.Get("m2")
	if m1.StockQuantity != 5 || m2.StockQuantity != 0 {
		t.Fatalf("apply failed: m1=%d m2=%d", m1.StockQuantity, m2.StockQuantity)
	}
}

func TestSearchRanksPrefixFirst(t *testing.T) {
	s := New()
	for _, m := range []domain.Medicine{
		med("m1", "Paracetamol", 1, 0),
		med("m2", "Dolo Para", 1, 0),
		med("m3", "Parvolex", 1, 0),
		med("m4", "Ibuprofen", 1, 0),
	} {
		if err := s.Add(m); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	got := s.Search("para")
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
	if got[0].Name != "Paracetamol" || got[1].Name != "Dolo Para" {
		t.Fatalf("unexpected order: %q, %q", got[0].Name, got[1].Name)
	}

	all := s.Search("")
	if len(all) != 4 {
		t.Fatalf("empty query should return everything, got %d", len(all))
	}
	if all[0].Name != "Dolo Para" {
		t.Fatalf("empty query should order by name, got %q first", all[0].Name)
	}
}

func TestIsLowStock(t *testing.T) {
	if IsLowStock(med("m1", "X", 4, 5)) != true {
		t.Fatal("4 of 5 should be low")
	}
	if IsLowStock(med("m1", "X", 5, 5)) != false {
		t.Fatal("5 of 5 should not be low")
	}
}

func TestIsExpiringWithin(t *testing.T) {
	asOf := day(2026, 3, 1)
	m := med("m1", "X", 1, 0)

	m.ExpiryDate = day(2026, 3, 31)
	if !IsExpiringWithin(m, 30, asOf) {
		t.Fatal("30 days out should qualify at the boundary")
	}
	m.ExpiryDate = day(2026, 4, 1)
	if IsExpiringWithin(m, 30, asOf) {
		t.Fatal("31 days out should not qualify")
	}
	m.ExpiryDate = day(2026, 3, 1)
	if !IsExpiringWithin(m, 30, asOf) {
		t.Fatal("expiring today should qualify")
	}
	m.ExpiryDate = day(2026, 2, 28)
	if IsExpiringWithin(m, 30, asOf) {
		t.Fatal("already expired should not qualify")
	}
}
