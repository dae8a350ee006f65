package seed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"medstore/m/domain"
	"medstore/m/internal/catalog"
)

// LoadCatalog ingests a medicine CSV into the catalog store, skipping rows
// that fail validation or duplicate an existing id. Returns the number of
// rows loaded. Expected columns:
// id,name,batch_no,supplier,expiry_date,schedule_h,price,stock_quantity,min_stock_level
func LoadCatalog(cs *catalog.Store, csvPath string) (int, error) {
	file, err := os.Open(csvPath)
	if err != nil {
		return 0, fmt.Errorf("open catalog csv: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Skip header
	if _, err := reader.Read(); err != nil {
		return 0, fmt.Errorf("read catalog header: %w", err)
	}

	loaded := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if len(record) < 9 {
			continue
		}
		expiry, err := time.Parse("2006-01-02", strings.TrimSpace(record[4]))
		if err != nil {
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(record[6]), 64)
		if err != nil {
			continue
		}
		stock, err := strconv.ParseInt(strings.TrimSpace(record[7]), 10, 64)
		if err != nil {
			continue
		}
		minStock, err := strconv.ParseInt(strings.TrimSpace(record[8]), 10, 64)
		if err != nil {
			continue
		}
		m := domain.Medicine{
			ID:            strings.TrimSpace(record[0]),
			Name:          strings.TrimSpace(record[1]),
			BatchNo:       strings.TrimSpace(record[2]),
			Supplier:      strings.TrimSpace(record[3]),
			ExpiryDate:    expiry,
			IsScheduleH:   isTrue(record[5]),
			Price:         price,
			StockQuantity: stock,
			MinStockLevel: minStock,
		}
		if err := cs.Add(m); err != nil {
			continue
		}
		loaded++
	}
	return loaded, nil
}

func isTrue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}
