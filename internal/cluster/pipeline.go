package cluster

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mews-ugrads/mews-back-end/internal/graph"
	"github.com/mews-ugrads/mews-back-end/internal/metrics"
	"github.com/mews-ugrads/mews-back-end/internal/store"
	"github.com/mews-ugrads/mews-back-end/pkg/config"
	"github.com/mews-ugrads/mews-back-end/pkg/logging"
	"github.com/mews-ugrads/mews-back-end/pkg/models"
)

// Store is the persistence surface the batch path needs. All writes of
// one run go through a single store.RunTx: either every write commits or
// none do, so readers never observe a half-persisted run.
type Store interface {
	graph.EdgeSource
	BeginRun(ctx context.Context) (store.RunTx, error)
}

// Pipeline runs the offline clustering path: build the relatedness graph
// for a window, detect communities, score member centrality, persist the
// result as a new immutable clustering run.
//
// Run is not safe for concurrent self-invocation targeting the same day:
// the daily index replace is last-writer-wins. The scheduler serializes
// scheduled runs; manual triggers share that caveat.
type Pipeline struct {
	store   Store
	builder *graph.Builder
	tuning  config.ClusteringTuning
	logger  logging.Logger
	metrics *metrics.Metrics
}

// NewPipeline creates a clustering pipeline.
func NewPipeline(store Store, tuning config.ClusteringTuning, logger logging.Logger, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		store:   store,
		builder: graph.NewBuilder(store, logger),
		tuning:  tuning,
		logger:  logger,
		metrics: m,
	}
}

// Run executes one clustering over [windowStart, windowEnd]. When day is
// non-nil the new run also replaces the daily index entry for that
// calendar day. Returns the id of the persisted run.
func (p *Pipeline) Run(ctx context.Context, windowStart, windowEnd time.Time, day *time.Time) (int64, error) {
	started := time.Now()

	g, err := p.builder.Build(ctx, windowStart, windowEnd)
	if err != nil {
		p.countRun("error")
		return 0, err
	}
	p.observeStage("build", started)

	detectStart := time.Now()
	partition := LabelPropagation(g, p.tuning.MaxIterations)
	p.observeStage("detect", detectStart)
	if !partition.Converged {
		// Accepted as best effort, but operators should see it.
		p.logger.WithFields(logging.Fields{
			"iterations": partition.Iterations,
			"nodes":      g.NodeCount(),
		}).Warn("Label propagation hit iteration cap before converging")
		p.countOutcome("cap_reached")
	} else {
		p.countOutcome("converged")
	}

	kept := make([][]int64, 0, len(partition.Communities))
	for _, community := range partition.Communities {
		if len(community) >= p.tuning.MinClusterSize {
			kept = append(kept, community)
		}
	}
	p.logger.WithFields(logging.Fields{
		"communities": len(partition.Communities),
		"kept":        len(kept),
		"min_size":    p.tuning.MinClusterSize,
	}).Info("Communities detected")

	scoreStart := time.Now()
	scores, err := p.scoreCommunities(ctx, g, kept)
	if err != nil {
		p.countRun("error")
		return 0, err
	}
	p.observeStage("score", scoreStart)

	persistStart := time.Now()
	runID, err := p.persist(ctx, windowStart, windowEnd, kept, scores, day)
	if err != nil {
		p.countRun("error")
		return 0, fmt.Errorf("failed to persist clustering run: %w", err)
	}
	p.observeStage("persist", persistStart)
	p.countRun("success")

	p.logger.WithFields(logging.Fields{
		"run_id":   runID,
		"clusters": len(kept),
		"elapsed":  time.Since(started),
	}).Info("Clustering run persisted")

	return runID, nil
}

// scoreCommunities computes betweenness centrality per community. The
// computation is pure and independent across communities, so it runs with
// bounded parallelism; results land in community order regardless of
// completion order.
func (p *Pipeline) scoreCommunities(ctx context.Context, g *graph.Graph, communities [][]int64) ([]map[int64]float64, error) {
	scores := make([]map[int64]float64, len(communities))

	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(p.tuning.Parallelism)
	for i, community := range communities {
		i, community := i, community
		eg.Go(func() error {
			scores[i] = Betweenness(g, community)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

func (p *Pipeline) persist(ctx context.Context, windowStart, windowEnd time.Time, communities [][]int64, scores []map[int64]float64, day *time.Time) (int64, error) {
	tx, err := p.store.BeginRun(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() //nolint:errcheck // rollback is best-effort

	description := fmt.Sprintf("window %s to %s",
		windowStart.Format(time.RFC3339), windowEnd.Format(time.RFC3339))
	runID, err := tx.InsertClusteringRun(ctx, time.Now(), description)
	if err != nil {
		return 0, err
	}

	for i, community := range communities {
		clusterID, err := tx.InsertCluster(ctx, runID)
		if err != nil {
			return 0, err
		}

		members := make([]models.ClusterMember, 0, len(community))
		for _, postID := range community {
			members = append(members, models.ClusterMember{
				PostID:     postID,
				Centrality: scores[i][postID],
			})
		}
		if err := tx.InsertClusterMembers(ctx, clusterID, members); err != nil {
			return 0, err
		}
	}

	if day != nil {
		if err := tx.ReplaceDailyIndex(ctx, *day, runID); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

func (p *Pipeline) countRun(status string) {
	if p.metrics != nil {
		p.metrics.ClusteringRuns.WithLabelValues(status).Inc()
	}
}

func (p *Pipeline) countOutcome(outcome string) {
	if p.metrics != nil {
		p.metrics.LabelPropOutcomes.WithLabelValues(outcome).Inc()
	}
}

func (p *Pipeline) observeStage(stage string, start time.Time) {
	if p.metrics != nil {
		p.metrics.ClusteringDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}
