package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/mews-ugrads/mews-back-end/internal/cluster"
	"github.com/mews-ugrads/mews-back-end/pkg/config"
	"github.com/mews-ugrads/mews-back-end/pkg/logging"
)

// ClusteringJob periodically runs the clustering pipeline over the
// trailing window and indexes each run under its calendar day. Runs are
// serialized: a tick that fires while a run is still in flight waits for
// the ticker's next delivery.
type ClusteringJob struct {
	pipeline *cluster.Pipeline
	logger   logging.Logger
	interval time.Duration
	window   time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// ClusteringConfig holds configuration for the clustering job
type ClusteringConfig struct {
	Pipeline *cluster.Pipeline
	Logger   logging.Logger
	Tuning   config.ClusteringTuning
	Interval time.Duration // How often to run (default: 24 hours)
	Timeout  time.Duration // Per-run deadline (default: 30 minutes)
}

// NewClusteringJob creates a new clustering job
func NewClusteringJob(cfg ClusteringConfig) *ClusteringJob {
	interval := cfg.Interval
	if interval == 0 {
		interval = 24 * time.Hour
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Minute
	}
	return &ClusteringJob{
		pipeline: cfg.Pipeline,
		logger:   cfg.Logger,
		interval: interval,
		window:   time.Duration(cfg.Tuning.WindowDays) * 24 * time.Hour,
		timeout:  timeout,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background clustering loop
func (j *ClusteringJob) Start() {
	j.wg.Add(1)
	go j.run()
	j.logger.WithField("interval", j.interval).Info("Clustering job started")
}

// Stop gracefully stops the job
func (j *ClusteringJob) Stop() {
	close(j.stopCh)
	j.wg.Wait()
	j.logger.Info("Clustering job stopped")
}

func (j *ClusteringJob) run() {
	defer j.wg.Done()
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	// Run once at startup so a fresh deployment has a clustering
	// before the first tick.
	j.cluster()

	for {
		select {
		case <-ticker.C:
			j.cluster()
		case <-j.stopCh:
			return
		}
	}
}

func (j *ClusteringJob) cluster() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	now := time.Now()
	day := now
	runID, err := j.pipeline.Run(ctx, now.Add(-j.window), now, &day)
	if err != nil {
		j.logger.WithError(err).Error("Scheduled clustering run failed")
		return
	}
	j.logger.WithFields(logging.Fields{
		"run_id": runID,
		"day":    day.Format("2006-01-02"),
	}).Info("Scheduled clustering run finished")
}
