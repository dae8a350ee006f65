package domain

import "time"

// Medicine is a catalog entry. StockQuantity is mutated only through the
// catalog store's stock-adjustment operations.
type Medicine struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	BatchNo       string    `db:"batch_no" json:"batch_no"`
	Supplier      string    `db:"supplier" json:"supplier"`
	ExpiryDate    time.Time `db:"expiry_date" json:"expiry_date"`
	IsScheduleH   bool      `db:"is_schedule_h" json:"is_schedule_h"`
	Price         float64   `db:"price" json:"price"`
	StockQuantity int64     `db:"stock_quantity" json:"stock_quantity"`
	MinStockLevel int64     `db:"min_stock_level" json:"min_stock_level"`
}

// InventoryItem is a derived view of a medicine's stock position.
type InventoryItem struct {
	Medicine   Medicine `json:"medicine"`
	Quantity   int64    `json:"quantity"`
	IsLowStock bool     `json:"is_low_stock"`
}
