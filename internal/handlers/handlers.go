package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mews-ugrads/mews-back-end/internal/cluster"
	"github.com/mews-ugrads/mews-back-end/internal/metrics"
	"github.com/mews-ugrads/mews-back-end/internal/store"
	"github.com/mews-ugrads/mews-back-end/pkg/logging"
	"github.com/mews-ugrads/mews-back-end/pkg/models"
)

var (
	db             *store.Store
	pipeline       *cluster.Pipeline
	logger         logging.Logger
	serviceMetrics *metrics.Metrics
)

// Init initializes the handlers package with its collaborators
func Init(st *store.Store, pipe *cluster.Pipeline, log logging.Logger, m *metrics.Metrics) {
	db = st
	pipeline = pipe
	logger = log
	serviceMetrics = m
}

func countQuery(queryType, status string) {
	if serviceMetrics != nil {
		serviceMetrics.GraphQueries.WithLabelValues(queryType, status).Inc()
	}
}

func observeQuery(queryType string, start time.Time) {
	if serviceMetrics != nil {
		serviceMetrics.QueryDuration.WithLabelValues(queryType).Observe(time.Since(start).Seconds())
	}
}

// parseWindow reads the lower/upper window query parameters, defaulting
// to the trailing defaultSpan ending now.
func parseWindow(c *gin.Context, defaultSpan time.Duration) (time.Time, time.Time, bool) {
	now := time.Now()
	lowerRaw := c.DefaultQuery("lower", now.Add(-defaultSpan).Format(time.RFC3339))
	upperRaw := c.DefaultQuery("upper", now.Format(time.RFC3339))

	lower, err := time.Parse(time.RFC3339, lowerRaw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parameter `lower`"})
		return time.Time{}, time.Time{}, false
	}
	upper, err := time.Parse(time.RFC3339, upperRaw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parameter `upper`"})
		return time.Time{}, time.Time{}, false
	}
	return lower, upper, true
}

// parseCount reads a non-negative integer query parameter.
func parseCount(c *gin.Context, name string, defaultValue int) (int, bool) {
	raw := c.DefaultQuery(name, strconv.Itoa(defaultValue))
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parameter `" + name + "`"})
		return 0, false
	}
	return value, true
}

// parsePostID reads the post id path parameter.
func parsePostID(c *gin.Context) (int64, bool) {
	postID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || postID < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post id"})
		return 0, false
	}
	return postID, true
}

// GetPost returns one post by id
func GetPost(c *gin.Context) {
	postID, ok := parsePostID(c)
	if !ok {
		return
	}

	post, err := db.Post(c.Request.Context(), postID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		logger.WithError(err).WithField("post_id", postID).Error("Failed to fetch post")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service unavailable"})
		return
	}

	c.JSON(http.StatusOK, post)
}

// GetTrendingPosts returns posts in a window ranked by engagement
func GetTrendingPosts(c *gin.Context) {
	start := time.Now()
	defer observeQuery("trending", start)

	lower, upper, ok := parseWindow(c, 24*time.Hour)
	if !ok {
		return
	}
	skip, ok := parseCount(c, "skip", 0)
	if !ok {
		return
	}
	amount, ok := parseCount(c, "amount", 20)
	if !ok {
		return
	}

	posts, err := db.TrendingPosts(c.Request.Context(), lower, upper, skip, amount)
	if err != nil {
		countQuery("trending", "error")
		logger.WithError(err).Error("Failed to fetch trending posts")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service unavailable"})
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}

	countQuery("trending", "success")
	c.JSON(http.StatusOK, posts)
}

// GetRelatedPosts returns the posts related to one post, strongest first
func GetRelatedPosts(c *gin.Context) {
	start := time.Now()
	defer observeQuery("related", start)

	postID, ok := parsePostID(c)
	if !ok {
		return
	}
	skip, ok := parseCount(c, "skip", 0)
	if !ok {
		return
	}
	amount, ok := parseCount(c, "amount", 10)
	if !ok {
		return
	}

	related, err := db.RelatedPosts(c.Request.Context(), postID, skip, amount)
	if err != nil {
		countQuery("related", "error")
		logger.WithError(err).WithField("post_id", postID).Error("Failed to fetch related posts")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service unavailable"})
		return
	}
	if related == nil {
		related = []models.RelatedPost{}
	}

	countQuery("related", "success")
	c.JSON(http.StatusOK, related)
}

// TriggerClustering runs the clustering pipeline for a window and
// optionally indexes the run under a calendar day
func TriggerClustering(c *gin.Context) {
	lower, upper, ok := parseWindow(c, 365*24*time.Hour)
	if !ok {
		return
	}

	var day *time.Time
	if dayRaw := c.Query("day"); dayRaw != "" {
		parsed, err := time.Parse("2006-01-02", dayRaw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parameter `day`"})
			return
		}
		day = &parsed
	}

	runID, err := pipeline.Run(c.Request.Context(), lower, upper, day)
	if err != nil {
		logger.WithError(err).Error("Clustering run failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"run_id": runID})
}
