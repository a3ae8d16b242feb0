package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mews-ugrads/mews-back-end/pkg/models"
)

// GetCentralGraph returns the most central posts of a window plus each
// one's strongest related posts, as a node/link payload. Central posts
// carry their centrality evaluation and engagement fields; related
// posts carry the edge weights connecting them to their central post.
func GetCentralGraph(c *gin.Context) {
	start := time.Now()
	defer observeQuery("central_graph", start)

	lower, upper, ok := parseWindow(c, 365*24*time.Hour)
	if !ok {
		return
	}
	centralCount, ok := parseCount(c, "central_amount", 5)
	if !ok {
		return
	}
	relatedCount, ok := parseCount(c, "related_amount", 5)
	if !ok {
		return
	}

	central, err := db.CentralPosts(c.Request.Context(), lower, upper, centralCount)
	if err != nil {
		countQuery("central_graph", "error")
		logger.WithError(err).Error("Failed to fetch central posts")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service unavailable"})
		return
	}

	payload := models.EmptyGraphPayload()
	seen := make(map[int64]bool)

	// Central nodes first so a post that is both central and related to
	// another central post keeps its central attributes.
	isCentral := true
	for _, post := range central {
		seen[post.ID] = true

		score := post.Score
		evaluated := post.Evaluated
		whenPosted := post.WhenPosted
		reposts := post.Reposts
		replies := post.Replies
		likes := post.Likes
		payload.Nodes = append(payload.Nodes, models.GraphNode{
			ID:         post.ID,
			Central:    &isCentral,
			Score:      &score,
			Evaluated:  &evaluated,
			WhenPosted: whenPosted,
			Reposts:    &reposts,
			Replies:    &replies,
			Likes:      &likes,
			PostURL:    post.PostURL,
			ImageURL:   post.ImageURL,
			Username:   post.Username,
			Platform:   post.Platform,
		})

		// The self-loop anchors the central post visually.
		payload.Links = append(payload.Links, models.GraphLink{
			Source: post.ID,
			Target: post.ID,
		})
	}

	isRelated := false
	for _, post := range central {
		related, err := db.RelatedPosts(c.Request.Context(), post.ID, 0, relatedCount)
		if err != nil {
			countQuery("central_graph", "error")
			logger.WithError(err).WithField("post_id", post.ID).Error("Failed to fetch related posts for central graph")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service unavailable"})
			return
		}

		for _, rel := range related {
			if !seen[rel.ID] {
				seen[rel.ID] = true

				display, err := db.PostDisplay(c.Request.Context(), rel.ID)
				if err != nil {
					countQuery("central_graph", "error")
					logger.WithError(err).WithField("post_id", rel.ID).Error("Failed to fetch related post display")
					c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service unavailable"})
					return
				}

				total := rel.TotalWt
				payload.Nodes = append(payload.Nodes, models.GraphNode{
					ID:         rel.ID,
					Central:    &isRelated,
					PostURL:    display.PostURL,
					ImageURL:   display.ImageURL,
					RelTxtWt:   rel.RelTxtWt,
					RelTxtMeta: rel.RelTxtMeta,
					SubImgWt:   rel.SubImgWt,
					SubImgMeta: rel.SubImgMeta,
					OCRWt:      rel.OCRWt,
					OCRMeta:    rel.OCRMeta,
					TotalWt:    &total,
				})
			}

			weight := rel.TotalWt
			payload.Links = append(payload.Links, models.GraphLink{
				Source: post.ID,
				Target: rel.ID,
				Weight: &weight,
			})
		}
	}

	countQuery("central_graph", "success")
	c.JSON(http.StatusOK, payload)
}
