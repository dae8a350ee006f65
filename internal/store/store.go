package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"medstore/m/domain"
)

const dateLayout = time.RFC3339

// Store persists snapshots of the catalog, ledger and invoice counters in
// SQLite, plus the user accounts. The in-memory stores stay authoritative
// at runtime; this is the load-at-start / save-after-mutation medium.
type Store struct {
	db *sqlx.DB
}

// Open connects to the SQLite database at dsn and creates the schema.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect snapshot database: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            username TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            role TEXT NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS medicines (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            batch_no TEXT,
            supplier TEXT,
            expiry_date TEXT,
            is_schedule_h INTEGER NOT NULL DEFAULT 0,
            price REAL NOT NULL,
            stock_quantity INTEGER NOT NULL,
            min_stock_level INTEGER NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS transactions (
            id TEXT PRIMARY KEY,
            type TEXT NOT NULL,
            total_amount REAL NOT NULL,
            gst_amount REAL NOT NULL DEFAULT 0,
            date TEXT NOT NULL,
            invoice_number INTEGER NOT NULL,
            customer_name TEXT,
            prescription_files TEXT
        );`,
		`CREATE TABLE IF NOT EXISTS transaction_items (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            transaction_id TEXT NOT NULL,
            medicine_id TEXT NOT NULL,
            quantity INTEGER NOT NULL,
            price REAL NOT NULL,
            batch_no TEXT,
            FOREIGN KEY(transaction_id) REFERENCES transactions(id)
        );`,
		`CREATE TABLE IF NOT EXISTS counters (
            type TEXT PRIMARY KEY,
            value INTEGER NOT NULL
        );`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate snapshot schema: %w", err)
		}
	}
	return nil
}

type medicineRow struct {
	ID            string  `db:"id"`
	Name          string  `db:"name"`
	BatchNo       string  `db:"batch_no"`
	Supplier      string  `db:"supplier"`
	ExpiryDate    string  `db:"expiry_date"`
	IsScheduleH   bool    `db:"is_schedule_h"`
	Price         float64 `db:"price"`
	StockQuantity int64   `db:"stock_quantity"`
	MinStockLevel int64   `db:"min_stock_level"`
}

type transactionRow struct {
	ID                string  `db:"id"`
	Type              string  `db:"type"`
	TotalAmount       float64 `db:"total_amount"`
	GSTAmount         float64 `db:"gst_amount"`
	Date              string  `db:"date"`
	InvoiceNumber     int64   `db:"invoice_number"`
	CustomerName      string  `db:"customer_name"`
	PrescriptionFiles string  `db:"prescription_files"`
}

// LoadCatalog returns every persisted medicine.
func (s *Store) LoadCatalog() ([]domain.Medicine, error) {
	var rows []medicineRow
	if err := s.db.Select(&rows, `SELECT id, name, batch_no, supplier, expiry_date, is_schedule_h, price, stock_quantity, min_stock_level FROM medicines`); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	out := make([]domain.Medicine, 0, len(rows))
	for _, r := range rows {
		expiry, err := parseDate(r.ExpiryDate)
		if err != nil {
			return nil, fmt.Errorf("load catalog: medicine %s: %w", r.ID, err)
		}
		out = append(out, domain.Medicine{
			ID:            r.ID,
			Name:          r.Name,
			BatchNo:       r.BatchNo,
			Supplier:      r.Supplier,
			ExpiryDate:    expiry,
			IsScheduleH:   r.IsScheduleH,
			Price:         r.Price,
			StockQuantity: r.StockQuantity,
			MinStockLevel: r.MinStockLevel,
		})
	}
	return out, nil
}

// LoadTransactions returns every persisted transaction with its items.
func (s *Store) LoadTransactions() ([]domain.Transaction, error) {
	var rows []transactionRow
	if err := s.db.Select(&rows, `SELECT id, type, total_amount, gst_amount, date, invoice_number, COALESCE(customer_name, '') AS customer_name, COALESCE(prescription_files, '') AS prescription_files FROM transactions`); err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	var items []struct {
		TransactionID string `db:"transaction_id"`
		domain.TransactionItem
	}
	if err := s.db.Select(&items, `SELECT transaction_id, medicine_id, quantity, price, COALESCE(batch_no, '') AS batch_no FROM transaction_items ORDER BY id`); err != nil {
		return nil, fmt.Errorf("load transaction items: %w", err)
	}
	itemsByTx := make(map[string][]domain.TransactionItem)
	for _, it := range items {
		itemsByTx[it.TransactionID] = append(itemsByTx[it.TransactionID], it.TransactionItem)
	}

	out := make([]domain.Transaction, 0, len(rows))
	for _, r := range rows {
		date, err := time.Parse(dateLayout, r.Date)
		if err != nil {
			return nil, fmt.Errorf("load transactions: transaction %s: %w", r.ID, err)
		}
		var files []string
		if r.PrescriptionFiles != "" {
			if err := json.Unmarshal([]byte(r.PrescriptionFiles), &files); err != nil {
				return nil, fmt.Errorf("load transactions: transaction %s: %w", r.ID, err)
			}
		}
		out = append(out, domain.Transaction{
			ID:                r.ID,
			Type:              domain.TransactionType(r.Type),
			Items:             itemsByTx[r.ID],
			TotalAmount:       r.TotalAmount,
			GSTAmount:         r.GSTAmount,
			Date:              date,
			InvoiceNumber:     r.InvoiceNumber,
			CustomerName:      r.CustomerName,
			PrescriptionFiles: files,
		})
	}
	return out, nil
}

// LoadCounters returns the persisted invoice counters.
func (s *Store) LoadCounters() (map[domain.TransactionType]int64, error) {
	var rows []struct {
		Type  string `db:"type"`
		Value int64  `db:"value"`
	}
	if err := s.db.Select(&rows, `SELECT type, value FROM counters`); err != nil {
		return nil, fmt.Errorf("load counters: %w", err)
	}
	out := make(map[domain.TransactionType]int64, len(rows))
	for _, r := range rows {
		out[domain.TransactionType(r.Type)] = r.Value
	}
	return out, nil
}

// SaveSnapshot replaces the persisted catalog, ledger and counters with the
// given state in one database transaction.
func (s *Store) SaveSnapshot(medicines []domain.Medicine, txs []domain.Transaction, counters map[domain.TransactionType]int64) error {
	dbtx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	defer dbtx.Rollback()

	for _, table := range []string{"transaction_items", "transactions", "medicines", "counters"} {
		if _, err := dbtx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("save snapshot: clear %s: %w", table, err)
		}
	}

	for _, m := range medicines {
		_, err := dbtx.Exec(`INSERT INTO medicines (id, name, batch_no, supplier, expiry_date, is_schedule_h, price, stock_quantity, min_stock_level) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.Name, m.BatchNo, m.Supplier, m.ExpiryDate.Format(dateLayout), m.IsScheduleH, m.Price, m.StockQuantity, m.MinStockLevel)
		if err != nil {
			return fmt.Errorf("save snapshot: medicine %s: %w", m.ID, err)
		}
	}

	for _, tx := range txs {
		files := ""
		if len(tx.PrescriptionFiles) > 0 {
			raw, err := json.Marshal(tx.PrescriptionFiles)
			if err != nil {
				return fmt.Errorf("save snapshot: transaction %s: %w", tx.ID, err)
			}
			files = string(raw)
		}
		_, err := dbtx.Exec(`INSERT INTO transactions (id, type, total_amount, gst_amount, date, invoice_number, customer_name, prescription_files) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			tx.ID, string(tx.Type), tx.TotalAmount, tx.GSTAmount, tx.Date.Format(dateLayout), tx.InvoiceNumber, tx.CustomerName, files)
		if err != nil {
			return fmt.Errorf("save snapshot: transaction %s: %w", tx.ID, err)
		}
		for _, it := range tx.Items {
			_, err := dbtx.Exec(`INSERT INTO transaction_items (transaction_id, medicine_id, quantity, price, batch_no) VALUES (?, ?, ?, ?, ?)`,
				tx.ID, it.MedicineID, it.Quantity, it.Price, it.BatchNo)
			if err != nil {
				return fmt.Errorf("save snapshot: transaction %s items: %w", tx.ID, err)
			}
		}
	}

	for typ, v := range counters {
		if _, err := dbtx.Exec(`INSERT INTO counters (type, value) VALUES (?, ?)`, string(typ), v); err != nil {
			return fmt.Errorf("save snapshot: counters: %w", err)
		}
	}

	return dbtx.Commit()
}

// CreateUser inserts a user and returns its id. Fails on a duplicate email.
func (s *Store) CreateUser(username, email, hashedPassword, role string) (int64, error) {
	res, err := s.db.Exec(`INSERT INTO users (username, email, password, role) VALUES (?, ?, ?, ?)`,
		username, strings.ToLower(email), hashedPassword, role)
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return res.LastInsertId()
}

// GetUserByEmail returns the user with the given email.
func (s *Store) GetUserByEmail(email string) (domain.User, error) {
	var u domain.User
	err := s.db.Get(&u, `SELECT id, username, email, password, role, created_at FROM users WHERE email = ?`, strings.ToLower(email))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, fmt.Errorf("%w: user %s", domain.ErrNotFound, email)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// UpdatePassword replaces a user's password hash.
func (s *Store) UpdatePassword(userID int64, hashedPassword string) error {
	if _, err := s.db.Exec(`UPDATE users SET password = ? WHERE id = ?`, hashedPassword, userID); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dateLayout, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
