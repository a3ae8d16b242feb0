package main

import (
	"context"
	"os"
	"time"

	"github.com/mews-ugrads/mews-back-end/internal/importer"
	"github.com/mews-ugrads/mews-back-end/internal/store"
	"github.com/mews-ugrads/mews-back-end/pkg/config"
	"github.com/mews-ugrads/mews-back-end/pkg/database"
	"github.com/mews-ugrads/mews-back-end/pkg/logging"
)

// graphsync loads a relatedness dump produced by the offline image
// analysis stage into the canonical store.
func main() {
	logger := logging.NewLoggerWithService("graphsync")
	config.LoadEnv(logger)

	if len(os.Args) != 2 {
		logger.Fatal("usage: graphsync <dump-file>")
	}
	path := os.Args[1]

	dbConfig := database.DefaultConfig()
	dbConfig.URL = config.RequireEnv("DATABASE_URL")
	db := database.MustConnect(dbConfig, logger)
	defer func() { _ = db.Close() }()

	f, err := os.Open(path)
	if err != nil {
		logger.WithError(err).WithField("path", path).Fatal("Failed to open dump file")
	}
	defer func() { _ = f.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(),
		config.GetEnvDuration("GRAPHSYNC_TIMEOUT", 30*time.Minute))
	defer cancel()

	st := store.New(db, config.DefaultTuning().Weights, logger)
	report, err := importer.New(st, logger).Import(ctx, f)
	if err != nil {
		logger.WithError(err).Fatal("Import failed")
	}

	if report.EdgeFailures > 0 || report.ScoreFailures > 0 {
		logger.WithFields(logging.Fields{
			"edge_failures":  report.EdgeFailures,
			"score_failures": report.ScoreFailures,
		}).Warn("Import finished with failures")
		os.Exit(1)
	}
}
