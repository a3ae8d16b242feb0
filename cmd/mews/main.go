package main

import (
	"time"

	"github.com/mews-ugrads/mews-back-end/internal/cluster"
	"github.com/mews-ugrads/mews-back-end/internal/handlers"
	"github.com/mews-ugrads/mews-back-end/internal/metrics"
	"github.com/mews-ugrads/mews-back-end/internal/scheduler"
	"github.com/mews-ugrads/mews-back-end/internal/store"
	"github.com/mews-ugrads/mews-back-end/pkg/config"
	"github.com/mews-ugrads/mews-back-end/pkg/database"
	"github.com/mews-ugrads/mews-back-end/pkg/logging"
	"github.com/mews-ugrads/mews-back-end/pkg/middleware"
	"github.com/mews-ugrads/mews-back-end/pkg/monitoring"
	"github.com/mews-ugrads/mews-back-end/pkg/server"
	"github.com/mews-ugrads/mews-back-end/pkg/version"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("mews")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting Mews (Relatedness Graph API)")

	dbURL := config.RequireEnv("DATABASE_URL")
	serviceToken := config.RequireEnv("SERVICE_TOKEN")
	tuningPath := config.GetEnv("MEWS_TUNING_PATH", "")

	tuning, err := config.LoadTuning(tuningPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load tuning file")
	}

	// Connect to PostgreSQL
	dbConfig := database.DefaultConfig()
	dbConfig.URL = dbURL
	db := database.MustConnect(dbConfig, logger)
	defer func() { _ = db.Close() }()

	if config.GetEnvBool("MEWS_APPLY_SCHEMA", false) {
		if err := database.ApplySchema(db, logger); err != nil {
			logger.WithError(err).Fatal("Failed to apply schema")
		}
	}

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("mews", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("mews", version.Version, version.GitCommit)

	// Add health checks
	healthChecker.AddCheck("postgres", monitoring.DatabaseHealthCheck(db))
	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"DATABASE_URL":  dbURL,
		"SERVICE_TOKEN": serviceToken,
	}))

	// Create custom graph service metrics
	serviceMetrics := &metrics.Metrics{
		GraphQueries:       metricsCollector.NewCounter("graph_queries_total", "Graph queries executed", []string{"query_type", "status"}),
		QueryDuration:      metricsCollector.NewHistogram("graph_query_duration_seconds", "Graph query duration", []string{"query_type"}, nil),
		ClusteringRuns:     metricsCollector.NewCounter("clustering_runs_total", "Clustering runs executed", []string{"status"}),
		ClusteringDuration: metricsCollector.NewHistogram("clustering_stage_duration_seconds", "Clustering stage duration", []string{"stage"}, nil),
		LabelPropOutcomes:  metricsCollector.NewCounter("label_propagation_outcomes_total", "Label propagation convergence outcomes", []string{"outcome"}),
	}

	st := store.New(db, tuning.Weights, logger)
	pipeline := cluster.NewPipeline(st, tuning.Clustering, logger, serviceMetrics)
	handlers.Init(st, pipeline, logger, serviceMetrics)

	// Start the daily clustering job
	clusteringJob := scheduler.NewClusteringJob(scheduler.ClusteringConfig{
		Pipeline: pipeline,
		Logger:   logger,
		Tuning:   tuning.Clustering,
		Interval: config.GetEnvDuration("MEWS_CLUSTERING_INTERVAL", 24*time.Hour),
		Timeout:  config.GetEnvDuration("MEWS_CLUSTERING_TIMEOUT", 30*time.Minute),
	})
	if config.GetEnvBool("MEWS_SCHEDULER_ENABLED", true) {
		clusteringJob.Start()
		defer clusteringJob.Stop()
	}

	// Setup router with unified monitoring
	router := server.SetupServiceRouter(logger, "mews", healthChecker, metricsCollector)

	api := router.Group("/api")
	{
		api.GET("/posts/trending", handlers.GetTrendingPosts)
		api.GET("/posts/:id", handlers.GetPost)
		api.GET("/posts/:id/related", handlers.GetRelatedPosts)
		api.GET("/graphs/central", handlers.GetCentralGraph)
		api.GET("/graphs/clusters/recent", handlers.GetRecentClusterGraph)
		api.GET("/graphs/clusters/daily/:day", handlers.GetDailyClusterGraph)
		api.GET("/graphs/clusters/:runID", handlers.GetClusterGraph)
	}

	protected := router.Group("/api")
	protected.Use(middleware.ServiceAuthMiddleware(serviceToken))
	{
		protected.POST("/clusterings", handlers.TriggerClustering)
	}

	// Start HTTP server with graceful shutdown
	serverConfig := server.DefaultConfig("mews", "18090")
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server startup failed")
	}
}
