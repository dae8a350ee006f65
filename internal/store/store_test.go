package store

import (
	"errors"
	"testing"
	"time"

	"medstore/m/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := openTestStore(t)

	meds := []domain.Medicine{
		{ID: "m1", Name: "Paracetamol", BatchNo: "B1", Supplier: "Acme", ExpiryDate: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), IsScheduleH: false, Price: 2.5, StockQuantity: 10, MinStockLevel: 5},
		{ID: "m2", Name: "Amoxicillin", BatchNo: "B2", Supplier: "Zen", ExpiryDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), IsScheduleH: true, Price: 8, StockQuantity: 20, MinStockLevel: 4},
	}
	txs := []domain.Transaction{
		{
			ID:                "t1",
			Type:              domain.TransactionSell,
			TotalAmount:       11.2,
			GSTAmount:         1.2,
			Date:              time.Date(2026, 1, 5, 10, 30, 0, 0, time.UTC),
			InvoiceNumber:     1,
			CustomerName:      "Asha",
			PrescriptionFiles: []string{"rx/scan-001.jpg"},
			Items: []domain.TransactionItem{
				{MedicineID: "m2", Quantity: 1, Price: 8, BatchNo: "B2"},
				{MedicineID: "m1", Quantity: 1, Price: 2, BatchNo: "B1"},
			},
		},
	}
	counters := map[domain.TransactionType]int64{
		domain.TransactionSell:     3,
		domain.TransactionPurchase: 1,
	}

	if err := s.SaveSnapshot(meds, txs, counters); err != nil {
		t.Fatalf("save: %v", err)
	}

	gotMeds, err := s.LoadCatalog()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if len(gotMeds) != 2 {
		t.Fatalf("expected 2 medicines, got %d", len(gotMeds))
	}
	byID := map[string]domain.Medicine{}
	for _, m := range gotMeds {
		byID[m.ID] = m
	}
	if m := byID["m2"]; !m.IsScheduleH || m.StockQuantity != 20 || !m.ExpiryDate.Equal(meds[1].ExpiryDate) {
		t.Fatalf("medicine m2 mangled: %+v", m)
	}

	gotTxs, err := s.LoadTransactions()
	if err != nil {
		t.Fatalf("load transactions: %v", err)
	}
	if len(gotTxs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(gotTxs))
	}
	tx := gotTxs[0]
	if tx.Type != domain.TransactionSell || tx.TotalAmount != 11.2 || tx.InvoiceNumber != 1 {
		t.Fatalf("transaction mangled: %+v", tx)
	}
	if !tx.Date.Equal(txs[0].Date) {
		t.Fatalf("date mangled: %v", tx.Date)
	}
	if len(tx.Items) != 2 || tx.Items[0].MedicineID != "m2" {
		t.Fatalf("items mangled or reordered: %+v", tx.Items)
	}
	if len(tx.PrescriptionFiles) != 1 || tx.PrescriptionFiles[0] != "rx/scan-001.jpg" {
		t.Fatalf("prescription files mangled: %v", tx.PrescriptionFiles)
	}

	gotCounters, err := s.LoadCounters()
	if err != nil {
		t.Fatalf("load counters: %v", err)
	}
	if gotCounters[domain.TransactionSell] != 3 || gotCounters[domain.TransactionPurchase] != 1 {
		t.Fatalf("counters mangled: %v", gotCounters)
	}
}

func TestSaveSnapshotReplacesPreviousState(t *testing.T) {
	s := openTestStore(t)

	first := []domain.Medicine{{ID: "m1", Name: "Old", Price: 1, ExpiryDate: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)}}
	if err := s.SaveSnapshot(first, nil, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	second := []domain.Medicine{{ID: "m2", Name: "New", Price: 2, ExpiryDate: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)}}
	if err := s.SaveSnapshot(second, nil, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.LoadCatalog()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0].ID != "m2" {
		t.Fatalf("old snapshot not replaced: %+v", got)
	}
}

func TestUsers(t *testing.T) {
	s := openTestStore(t)

	id, err := s.CreateUser("asha", "Asha@Example.com", "hash1", "owner")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateUser("dup", "asha@example.com", "hash2", "employee"); err == nil {
		t.Fatal("expected duplicate email to fail")
	}

	u, err := s.GetUserByEmail("ASHA@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.ID != id || u.Role != "owner" || u.Password != "hash1" {
		t.Fatalf("user mangled: %+v", u)
	}

	if err := s.UpdatePassword(id, "hash3"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	u, _ = s.GetUserByEmail("asha@example.com")
	if u.Password != "hash3" {
		t.Fatalf("password not updated: %q", u.Password)
	}

	if _, err := s.GetUserByEmail("missing@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
