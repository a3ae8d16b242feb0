package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/mews-ugrads/mews-back-end/pkg/logging"
	"github.com/mews-ugrads/mews-back-end/pkg/models"
)

// EdgeSource supplies positive-weight relatedness edges whose both
// endpoint posts fall inside a time window.
type EdgeSource interface {
	EdgesInWindow(ctx context.Context, windowStart, windowEnd time.Time) ([]models.RelatednessEdge, error)
}

// Builder assembles the in-memory relatedness graph for a batch run.
type Builder struct {
	src    EdgeSource
	logger logging.Logger
}

// NewBuilder creates a graph builder reading from src.
func NewBuilder(src EdgeSource, logger logging.Logger) *Builder {
	return &Builder{src: src, logger: logger}
}

// Build loads every edge whose endpoints were both posted inside
// [windowStart, windowEnd] and whose total weight is positive, and returns
// the resulting graph. The node set is exactly the ids appearing on at
// least one included edge; an empty window yields an empty graph.
func (b *Builder) Build(ctx context.Context, windowStart, windowEnd time.Time) (*Graph, error) {
	edges, err := b.src.EdgesInWindow(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load relatedness edges: %w", err)
	}

	g := New()
	for _, edge := range edges {
		if edge.TotalWt <= 0 {
			continue
		}
		g.AddEdge(edge.Post1ID, edge.Post2ID, edge.TotalWt)
	}

	b.logger.WithFields(logging.Fields{
		"window_start": windowStart,
		"window_end":   windowEnd,
		"nodes":        g.NodeCount(),
		"edges":        g.EdgeCount(),
	}).Info("Relatedness graph built")

	return g, nil
}
