package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds application configuration values.
type Config struct {
	Secret      string
	HTTPPort    string
	SnapshotDSN string
	CatalogCSV  string
	GSTRate     float64
}

// Load reads configuration from environment variables with reasonable defaults.
func Load() Config {
	secret := os.Getenv("SECRET")
	if secret == "" {
		secret = "dev_secret"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}
	// Validate that port is numeric.
	if _, err := strconv.Atoi(port); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", port)
		port = "8080"
	}

	dsn := os.Getenv("SNAPSHOT_DSN")
	if dsn == "" {
		dsn = "file:medstore.db"
	}

	csvPath := os.Getenv("CATALOG_CSV")
	if csvPath == "" {
		csvPath = "assets/catalog.csv"
	}

	gstRate := 0.12
	if raw := os.Getenv("GST_RATE"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			log.Printf("invalid GST_RATE value %q, defaulting to 0.12", raw)
		} else {
			gstRate = parsed
		}
	}

	return Config{
		Secret:      secret,
		HTTPPort:    port,
		SnapshotDSN: dsn,
		CatalogCSV:  csvPath,
		GSTRate:     gstRate,
	}
}
