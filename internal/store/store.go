package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mews-ugrads/mews-back-end/pkg/config"
	"github.com/mews-ugrads/mews-back-end/pkg/logging"
	"github.com/mews-ugrads/mews-back-end/pkg/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// totalWeight is the SQL expression deriving an edge's total weight from
// its three optional signals; a missing signal contributes zero. The
// three placeholders are the configured signal multipliers.
const totalWeight = "(COALESCE(e.rel_txt_wt, 0) * %s + COALESCE(e.sub_img_wt, 0) * %s + COALESCE(e.ocr_wt, 0) * %s)"

// Store gives the service its view of the canonical post store and the
// relatedness graph. All methods are safe for concurrent use; reads hold
// no state between calls.
type Store struct {
	db      *sql.DB
	weights config.SignalWeights
	logger  logging.Logger
}

// New creates a store over db using the given signal weights.
func New(db *sql.DB, weights config.SignalWeights, logger logging.Logger) *Store {
	return &Store{db: db, weights: weights, logger: logger}
}

func (s *Store) totalWeightExpr(firstParam int) string {
	return fmt.Sprintf(totalWeight,
		fmt.Sprintf("$%d", firstParam),
		fmt.Sprintf("$%d", firstParam+1),
		fmt.Sprintf("$%d", firstParam+2))
}

// EdgesInWindow returns every relatedness edge whose endpoint posts were
// both posted inside [windowStart, windowEnd] and whose total weight is
// positive, ordered by (post1_id, post2_id).
func (s *Store) EdgesInWindow(ctx context.Context, windowStart, windowEnd time.Time) ([]models.RelatednessEdge, error) {
	expr := s.totalWeightExpr(3)
	query := fmt.Sprintf(`
		SELECT
			e.post1_id, e.post2_id,
			e.rel_txt_wt, e.rel_txt_meta,
			e.sub_img_wt, e.sub_img_meta,
			e.ocr_wt, e.ocr_meta,
			%s AS total_wt
		FROM post_relatedness e
		JOIN posts p1 ON p1.id = e.post1_id
		JOIN posts p2 ON p2.id = e.post2_id
		WHERE p1.when_posted BETWEEN $1 AND $2
		  AND p2.when_posted BETWEEN $1 AND $2
		  AND %s > 0
		ORDER BY e.post1_id, e.post2_id`, expr, expr)

	rows, err := s.db.QueryContext(ctx, query,
		windowStart, windowEnd,
		s.weights.RelatedText, s.weights.SubImage, s.weights.OCR)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges in window: %w", err)
	}
	defer rows.Close()

	var edges []models.RelatednessEdge
	for rows.Next() {
		var e models.RelatednessEdge
		if err := rows.Scan(
			&e.Post1ID, &e.Post2ID,
			&e.RelTxtWt, &e.RelTxtMeta,
			&e.SubImgWt, &e.SubImgMeta,
			&e.OCRWt, &e.OCRMeta,
			&e.TotalWt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// RelatedPosts returns the posts related to postID ordered by total
// weight descending, with skip/limit pagination. The non-queried endpoint
// is resolved regardless of which slot postID occupies; degenerate
// self-edges and non-positive edges are excluded.
func (s *Store) RelatedPosts(ctx context.Context, postID int64, skip, limit int) ([]models.RelatedPost, error) {
	expr := s.totalWeightExpr(2)
	query := fmt.Sprintf(`
		SELECT
			e.post1_id, e.post2_id,
			e.rel_txt_wt, e.rel_txt_meta,
			e.sub_img_wt, e.sub_img_meta,
			e.ocr_wt, e.ocr_meta,
			%s AS total_wt
		FROM post_relatedness e
		WHERE (e.post1_id = $1 OR e.post2_id = $1)
		  AND e.post1_id <> e.post2_id
		  AND %s > 0
		ORDER BY total_wt DESC, e.post1_id, e.post2_id
		OFFSET $5 LIMIT $6`, expr, expr)

	rows, err := s.db.QueryContext(ctx, query,
		postID,
		s.weights.RelatedText, s.weights.SubImage, s.weights.OCR,
		skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query related posts: %w", err)
	}
	defer rows.Close()

	var related []models.RelatedPost
	for rows.Next() {
		var e models.RelatednessEdge
		if err := rows.Scan(
			&e.Post1ID, &e.Post2ID,
			&e.RelTxtWt, &e.RelTxtMeta,
			&e.SubImgWt, &e.SubImgMeta,
			&e.OCRWt, &e.OCRMeta,
			&e.TotalWt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan related post: %w", err)
		}
		other, ok := e.Other(postID)
		if !ok {
			continue
		}
		related = append(related, models.RelatedPost{
			ID:         other,
			RelTxtWt:   e.RelTxtWt,
			RelTxtMeta: e.RelTxtMeta,
			SubImgWt:   e.SubImgWt,
			SubImgMeta: e.SubImgMeta,
			OCRWt:      e.OCRWt,
			OCRMeta:    e.OCRMeta,
			TotalWt:    e.TotalWt,
		})
	}
	return related, rows.Err()
}

// Post returns one post by id.
func (s *Store) Post(ctx context.Context, postID int64) (models.Post, error) {
	var p models.Post
	err := s.db.QueryRowContext(ctx, `
		SELECT
			id, post_url, image_url,
			reposts, replies, likes,
			when_posted, user_id,
			related_text, ocr_text,
			when_scraped, when_updated
		FROM posts
		WHERE id = $1`, postID).Scan(
		&p.ID, &p.PostURL, &p.ImageURL,
		&p.Reposts, &p.Replies, &p.Likes,
		&p.WhenPosted, &p.UserID,
		&p.RelatedText, &p.OCRText,
		&p.WhenScraped, &p.WhenUpdated,
	)
	if err == sql.ErrNoRows {
		return models.Post{}, ErrNotFound
	}
	if err != nil {
		return models.Post{}, fmt.Errorf("failed to query post %d: %w", postID, err)
	}
	return p, nil
}

// PostDisplay returns the display attributes for one post.
func (s *Store) PostDisplay(ctx context.Context, postID int64) (models.PostDisplay, error) {
	var d models.PostDisplay
	err := s.db.QueryRowContext(ctx, `
		SELECT id, post_url, image_url
		FROM posts
		WHERE id = $1`, postID).Scan(&d.ID, &d.PostURL, &d.ImageURL)
	if err == sql.ErrNoRows {
		return models.PostDisplay{}, ErrNotFound
	}
	if err != nil {
		return models.PostDisplay{}, fmt.Errorf("failed to query post display %d: %w", postID, err)
	}
	return d, nil
}

// TrendingPosts returns posts inside the window ranked by the engagement
// equation 10*reposts + 10*replies + likes, with skip/limit pagination.
func (s *Store) TrendingPosts(ctx context.Context, windowStart, windowEnd time.Time, skip, limit int) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			id, post_url, image_url,
			reposts, replies, likes,
			when_posted, user_id,
			related_text, ocr_text,
			when_scraped, when_updated
		FROM posts
		WHERE when_posted BETWEEN $1 AND $2
		ORDER BY (10 * reposts + 10 * replies + likes) DESC, id ASC
		OFFSET $3 LIMIT $4`, windowStart, windowEnd, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trending posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(
			&p.ID, &p.PostURL, &p.ImageURL,
			&p.Reposts, &p.Replies, &p.Likes,
			&p.WhenPosted, &p.UserID,
			&p.RelatedText, &p.OCRText,
			&p.WhenScraped, &p.WhenUpdated,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trending post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// CentralPosts returns up to limit posts ranked by their most recent
// centrality evaluation inside [windowStart, windowEnd], highest score
// first, ties broken by post id ascending. Owning-user display fields
// default to UNKNOWN when the user record is missing.
func (s *Store) CentralPosts(ctx context.Context, windowStart, windowEnd time.Time, limit int) ([]models.CentralPost, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			p.id, p.post_url, p.image_url,
			p.reposts, p.replies, p.likes,
			p.when_posted, c.score, c.evaluated,
			COALESCE(u.username, 'UNKNOWN'), COALESCE(u.platform, 'UNKNOWN')
		FROM (
			SELECT DISTINCT ON (post_id) post_id, score, evaluated
			FROM post_centrality
			WHERE evaluated BETWEEN $1 AND $2
			ORDER BY post_id, evaluated DESC
		) c
		JOIN posts p ON p.id = c.post_id
		LEFT JOIN users u ON u.id = p.user_id
		ORDER BY c.score DESC, p.id ASC
		LIMIT $3`, windowStart, windowEnd, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query central posts: %w", err)
	}
	defer rows.Close()

	var posts []models.CentralPost
	for rows.Next() {
		var p models.CentralPost
		if err := rows.Scan(
			&p.ID, &p.PostURL, &p.ImageURL,
			&p.Reposts, &p.Replies, &p.Likes,
			&p.WhenPosted, &p.Score, &p.Evaluated,
			&p.Username, &p.Platform,
		); err != nil {
			return nil, fmt.Errorf("failed to scan central post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// ClusterRun returns every cluster of a run with its membership rows,
// ordered by cluster id then post id. Returns ErrNotFound when the run
// id itself is unknown; a run with zero clusters yields an empty slice.
func (s *Store) ClusterRun(ctx context.Context, runID int64) ([]models.ClusterRecord, error) {
	var exists int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM clustering_runs WHERE id = $1`, runID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query clustering run %d: %w", runID, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, m.post_id, m.centrality
		FROM clusters c
		JOIN cluster_members m ON m.cluster_id = c.id
		WHERE c.clustering_id = $1
		ORDER BY c.id, m.post_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query clusters for run %d: %w", runID, err)
	}
	defer rows.Close()

	var records []models.ClusterRecord
	var current *models.ClusterRecord
	for rows.Next() {
		var clusterID int64
		var member models.ClusterMember
		if err := rows.Scan(&clusterID, &member.PostID, &member.Centrality); err != nil {
			return nil, fmt.Errorf("failed to scan cluster member: %w", err)
		}
		if current == nil || current.ClusterID != clusterID {
			records = append(records, models.ClusterRecord{ClusterID: clusterID})
			current = &records[len(records)-1]
		}
		current.Members = append(current.Members, member)
	}
	return records, rows.Err()
}

// IntraClusterEdges returns the positive-weight edges whose endpoints are
// both members of the given cluster, ordered by (post1_id, post2_id).
func (s *Store) IntraClusterEdges(ctx context.Context, clusterID int64) ([]models.RelatednessEdge, error) {
	expr := s.totalWeightExpr(2)
	query := fmt.Sprintf(`
		SELECT e.post1_id, e.post2_id, %s AS total_wt
		FROM post_relatedness e
		JOIN cluster_members m1 ON m1.post_id = e.post1_id AND m1.cluster_id = $1
		JOIN cluster_members m2 ON m2.post_id = e.post2_id AND m2.cluster_id = $1
		WHERE %s > 0
		ORDER BY e.post1_id, e.post2_id`, expr, expr)

	rows, err := s.db.QueryContext(ctx, query,
		clusterID, s.weights.RelatedText, s.weights.SubImage, s.weights.OCR)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges for cluster %d: %w", clusterID, err)
	}
	defer rows.Close()

	var edges []models.RelatednessEdge
	for rows.Next() {
		var e models.RelatednessEdge
		if err := rows.Scan(&e.Post1ID, &e.Post2ID, &e.TotalWt); err != nil {
			return nil, fmt.Errorf("failed to scan cluster edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// DailyRunID returns the clustering run indexed under the given calendar
// day, or ErrNotFound when no run has been recorded for that day.
func (s *Store) DailyRunID(ctx context.Context, day time.Time) (int64, error) {
	var runID int64
	err := s.db.QueryRowContext(ctx, `
		SELECT clustering_id FROM daily_clusterings
		WHERE day = $1`, day.Format("2006-01-02")).Scan(&runID)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query daily clustering: %w", err)
	}
	return runID, nil
}

// MostRecentRunID returns the id of the newest clustering run, or
// ErrNotFound when no clustering has been persisted yet.
func (s *Store) MostRecentRunID(ctx context.Context) (int64, error) {
	var runID int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM clustering_runs
		ORDER BY when_created DESC, id DESC
		LIMIT 1`).Scan(&runID)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query most recent run: %w", err)
	}
	return runID, nil
}
