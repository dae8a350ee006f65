package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"medstore/m/domain"
)

// searchLimit caps search results the same way the medicine lookup
// endpoints cap theirs.
const searchLimit = 25

// Store owns the in-memory medicine catalog. It has no hidden process-wide
// state; construct one per test or per server.
type Store struct {
	mu        sync.RWMutex
	medicines map[string]*domain.Medicine
}

// New constructs an empty catalog store.
func New() *Store {
	return &Store{medicines: make(map[string]*domain.Medicine)}
}

// StockDelta is one medicine's stock change inside a logical unit of work.
type StockDelta struct {
	MedicineID string
	Delta      int64
}

// Add inserts a medicine. Fails with ErrInvalidInput on a duplicate or empty
// id, a negative price, or negative stock levels.
func (s *Store) Add(m domain.Medicine) error {
	if err := validate(m); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.medicines[m.ID]; ok {
		return fmt.Errorf("%w: medicine %s already exists", domain.ErrInvalidInput, m.ID)
	}
	stored := m
	s.medicines[m.ID] = &stored
	return nil
}

// Update replaces every field of an existing medicine except its stock
// quantity, which only stock adjustments may change.
func (s *Store) Update(m domain.Medicine) error {
	if err := validate(m); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.medicines[m.ID]
	if !ok {
		return fmt.Errorf("%w: medicine %s", domain.ErrNotFound, m.ID)
	}
	m.StockQuantity = current.StockQuantity
	*current = m
	return nil
}

// Delete removes a medicine from the catalog.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.medicines[id]; !ok {
		return fmt.Errorf("%w: medicine %s", domain.ErrNotFound, id)
	}
	delete(s.medicines, id)
	return nil
}

// Get returns the medicine with the given id.
func (s *Store) Get(id string) (domain.Medicine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.medicines[id]
	if !ok {
		return domain.Medicine{}, fmt.Errorf("%w: medicine %s", domain.ErrNotFound, id)
	}
	return *m, nil
}

// Search matches medicine names case-insensitively against the query.
// Prefix matches rank before substring matches, ties broken by name, capped
// at 25 results. An empty query returns the first 25 medicines by name.
func (s *Store) Search(query string) []domain.Medicine {
	q := strings.ToLower(strings.TrimSpace(query))
	s.mu.RLock()
	defer s.mu.RUnlock()

	type ranked struct {
		m      domain.Medicine
		prefix bool
	}
	var matches []ranked
	for _, m := range s.medicines {
		name := strings.ToLower(m.Name)
		switch {
		case q == "", strings.HasPrefix(name, q):
			matches = append(matches, ranked{*m, true})
		case strings.Contains(name, q):
			matches = append(matches, ranked{*m, false})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].prefix != matches[j].prefix {
			return matches[i].prefix
		}
		if matches[i].m.Name != matches[j].m.Name {
			return matches[i].m.Name < matches[j].m.Name
		}
		return matches[i].m.ID < matches[j].m.ID
	})
	if len(matches) > searchLimit {
		matches = matches[:searchLimit]
	}
	out := make([]domain.Medicine, len(matches))
	for i, r := range matches {
		out[i] = r.m
	}
	return out
}

// List returns every medicine ordered by name then id.
func (s *Store) List() []domain.Medicine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Medicine, 0, len(s.medicines))
	for _, m := range s.medicines {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// AdjustStock applies a single stock delta. Fails with ErrNotFound for an
// unknown id and ErrInsufficientStock if the result would be negative.
func (s *Store) AdjustStock(id string, delta int64) (domain.Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.adjustLocked(id, delta)
	if err != nil {
		return domain.Medicine{}, err
	}
	return *m, nil
}

// ApplyDeltas applies a set of stock deltas as one all-or-nothing unit under
// a single write lock. If any delta fails, the ones already applied are
// reversed before the error is returned, so readers never observe a
// partially applied transaction.
func (s *Store) ApplyDeltas(deltas []StockDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range deltas {
		if _, err := s.adjustLocked(d.MedicineID, d.Delta); err != nil {
			for j := i - 1; j >= 0; j-- {
				s.medicines[deltas[j].MedicineID].StockQuantity -= deltas[j].Delta
			}
			return err
		}
	}
	return nil
}

func (s *Store) adjustLocked(id string, delta int64) (*domain.Medicine, error) {
	m, ok := s.medicines[id]
	if !ok {
		return nil, fmt.Errorf("%w: medicine %s", domain.ErrNotFound, id)
	}
	if m.StockQuantity+delta < 0 {
		return nil, fmt.Errorf("%w: medicine %s has %d units", domain.ErrInsufficientStock, id, m.StockQuantity)
	}
	m.StockQuantity += delta
	return m, nil
}

// IsLowStock reports whether the medicine's stock is below its minimum level.
func IsLowStock(m domain.Medicine) bool {
	return m.StockQuantity < m.MinStockLevel
}

// IsExpiringWithin reports whether the medicine expires within the given
// number of days from asOf, inclusive. Already-expired medicines do not
// qualify; day granularity.
func IsExpiringWithin(m domain.Medicine, days int, asOf time.Time) bool {
	expiry := truncateDay(m.ExpiryDate)
	from := truncateDay(asOf)
	if expiry.Before(from) {
		return false
	}
	return !expiry.After(from.AddDate(0, 0, days))
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func validate(m domain.Medicine) error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("%w: medicine id is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: medicine name is required", domain.ErrInvalidInput)
	}
	if m.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", domain.ErrInvalidInput)
	}
	if m.StockQuantity < 0 || m.MinStockLevel < 0 {
		return fmt.Errorf("%w: stock levels must not be negative", domain.ErrInvalidInput)
	}
	return nil
}
