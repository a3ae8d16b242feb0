package handlers

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mews-ugrads/mews-back-end/internal/store"
	"github.com/mews-ugrads/mews-back-end/pkg/models"
)

// GetClusterGraph returns the node/link payload for one clustering run
func GetClusterGraph(c *gin.Context) {
	start := time.Now()
	defer observeQuery("cluster_graph", start)

	runID, err := strconv.ParseInt(c.Param("runID"), 10, 64)
	if err != nil || runID < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run id"})
		return
	}

	maxClusters := -1
	if raw := c.Query("amount"); raw != "" {
		parsed, convErr := strconv.Atoi(raw)
		if convErr != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parameter `amount`"})
			return
		}
		maxClusters = parsed
	}

	respondClusterGraph(c, runID, maxClusters)
}

// GetRecentClusterGraph resolves the most recent clustering run and
// returns its graph
func GetRecentClusterGraph(c *gin.Context) {
	start := time.Now()
	defer observeQuery("cluster_graph", start)

	maxClusters := -1
	if raw := c.Query("amount"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parameter `amount`"})
			return
		}
		maxClusters = parsed
	}

	runID, err := db.MostRecentRunID(c.Request.Context())
	if errors.Is(err, store.ErrNotFound) {
		// No clustering available yet; display consumers get an empty graph.
		countQuery("cluster_graph", "empty")
		c.JSON(http.StatusOK, models.EmptyGraphPayload())
		return
	}
	if err != nil {
		countQuery("cluster_graph", "error")
		logger.WithError(err).Error("Failed to resolve most recent clustering run")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service unavailable"})
		return
	}

	respondClusterGraph(c, runID, maxClusters)
}

// GetDailyClusterGraph resolves the clustering run indexed under a
// calendar day and returns its graph
func GetDailyClusterGraph(c *gin.Context) {
	start := time.Now()
	defer observeQuery("cluster_graph", start)

	day, err := time.Parse("2006-01-02", c.Param("day"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parameter `day`"})
		return
	}

	maxClusters := -1
	if raw := c.Query("amount"); raw != "" {
		parsed, convErr := strconv.Atoi(raw)
		if convErr != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parameter `amount`"})
			return
		}
		maxClusters = parsed
	}

	runID, err := db.DailyRunID(c.Request.Context(), day)
	if errors.Is(err, store.ErrNotFound) {
		countQuery("cluster_graph", "empty")
		c.JSON(http.StatusOK, models.EmptyGraphPayload())
		return
	}
	if err != nil {
		countQuery("cluster_graph", "error")
		logger.WithError(err).Error("Failed to resolve daily clustering run")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service unavailable"})
		return
	}

	respondClusterGraph(c, runID, maxClusters)
}

// respondClusterGraph assembles and writes the graph payload for a run.
// maxClusters < 0 means no limit.
func respondClusterGraph(c *gin.Context, runID int64, maxClusters int) {
	payload, err := assembleClusterGraph(c.Request.Context(), runID, maxClusters)
	if errors.Is(err, store.ErrNotFound) {
		countQuery("cluster_graph", "empty")
		c.JSON(http.StatusOK, models.EmptyGraphPayload())
		return
	}
	if err != nil {
		countQuery("cluster_graph", "error")
		logger.WithError(err).WithField("run_id", runID).Error("Failed to assemble cluster graph")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service unavailable"})
		return
	}

	countQuery("cluster_graph", "success")
	c.JSON(http.StatusOK, payload)
}

// assembleClusterGraph builds the display payload for a clustering run:
// the largest maxClusters clusters (all when maxClusters < 0), one node
// per retained member, every positive intra-cluster edge as a weighted
// link, and one self-loop per cluster marking its representative.
func assembleClusterGraph(ctx context.Context, runID int64, maxClusters int) (models.GraphPayload, error) {
	payload := models.EmptyGraphPayload()

	records, err := db.ClusterRun(ctx, runID)
	if err != nil {
		return payload, err
	}

	// Largest clusters first; equal sizes keep ascending cluster id order.
	sort.SliceStable(records, func(i, j int) bool {
		if len(records[i].Members) != len(records[j].Members) {
			return len(records[i].Members) > len(records[j].Members)
		}
		return records[i].ClusterID < records[j].ClusterID
	})
	if maxClusters >= 0 && len(records) > maxClusters {
		records = records[:maxClusters]
	}

	seen := make(map[int64]bool)
	for _, record := range records {
		for _, member := range record.Members {
			if seen[member.PostID] {
				continue
			}
			seen[member.PostID] = true

			display, err := db.PostDisplay(ctx, member.PostID)
			if errors.Is(err, store.ErrNotFound) {
				// Member post vanished from the canonical store; skip the
				// node rather than failing the whole payload.
				logger.WithField("post_id", member.PostID).Warn("Cluster member has no post row")
				continue
			}
			if err != nil {
				return payload, err
			}

			centrality := member.Centrality
			payload.Nodes = append(payload.Nodes, models.GraphNode{
				ID:         member.PostID,
				Centrality: &centrality,
				PostURL:    display.PostURL,
				ImageURL:   display.ImageURL,
			})
		}
	}

	for _, record := range records {
		edges, err := db.IntraClusterEdges(ctx, record.ClusterID)
		if err != nil {
			return payload, err
		}
		for _, edge := range edges {
			weight := edge.TotalWt
			payload.Links = append(payload.Links, models.GraphLink{
				Source: edge.Post1ID,
				Target: edge.Post2ID,
				Weight: &weight,
			})
		}

		// The self-loop marks the cluster's visual center; it is a marker,
		// not an edge, and is never deduplicated against stored edges.
		representative := representativeOf(record.Members)
		payload.Links = append(payload.Links, models.GraphLink{
			Source: representative,
			Target: representative,
		})
	}

	return payload, nil
}

// representativeOf picks the member with the highest centrality score,
// breaking ties toward the lowest post id.
func representativeOf(members []models.ClusterMember) int64 {
	best := members[0]
	for _, member := range members[1:] {
		if member.Centrality > best.Centrality ||
			(member.Centrality == best.Centrality && member.PostID < best.PostID) {
			best = member
		}
	}
	return best.PostID
}
