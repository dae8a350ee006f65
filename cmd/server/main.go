package main

import (
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"medstore/m/internal/api"
	"medstore/m/internal/catalog"
	"medstore/m/internal/config"
	"medstore/m/internal/ledger"
	"medstore/m/internal/report"
	"medstore/m/internal/seed"
	"medstore/m/internal/store"
)

func main() {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	cfg := config.Load()

	st, err := store.Open(cfg.SnapshotDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to open snapshot store")
	}
	defer st.Close()

	cs := catalog.New()
	medicines, err := st.LoadCatalog()
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load catalog snapshot")
	}
	for _, m := range medicines {
		if err := cs.Add(m); err != nil {
			log.Fatal().Err(err).Str("medicine", m.ID).Msg("invalid catalog snapshot entry")
		}
	}

	if len(medicines) == 0 {
		if loaded, err := seed.LoadCatalog(cs, cfg.CatalogCSV); err != nil {
			log.Warn().Err(err).Str("path", cfg.CatalogCSV).Msg("catalog seed skipped")
		} else {
			log.Info().Int("rows", loaded).Msg("seeded medicine catalog")
		}
	}

	l := ledger.New(cs, cfg.GSTRate)
	txs, err := st.LoadTransactions()
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load ledger snapshot")
	}
	counters, err := st.LoadCounters()
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load invoice counters")
	}
	l.Restore(txs, counters)

	handler := api.New(cs, l, report.New(cs, l), st, cfg.Secret)

	log.Info().
		Str("port", cfg.HTTPPort).
		Int("medicines", len(cs.List())).
		Int("transactions", len(txs)).
		Msg("medstore server starting")
	if err := http.ListenAndServe(":"+cfg.HTTPPort, handler.Router()); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
