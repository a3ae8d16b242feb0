package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/mews-ugrads/mews-back-end/pkg/config"
	"github.com/mews-ugrads/mews-back-end/pkg/logging"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	weights := config.SignalWeights{RelatedText: 1, SubImage: 1, OCR: 1}
	st := New(db, weights, logging.NewLogger())
	return st, mock, func() { _ = db.Close() }
}

func edgeColumns() []string {
	return []string{
		"post1_id", "post2_id",
		"rel_txt_wt", "rel_txt_meta",
		"sub_img_wt", "sub_img_meta",
		"ocr_wt", "ocr_meta",
		"total_wt",
	}
}

func TestEdgesInWindow(t *testing.T) {
	st, mock, closeDB := newTestStore(t)
	defer closeDB()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(edgeColumns()).
		AddRow(1, 2, 0.5, "meme", nil, nil, nil, nil, 0.5).
		AddRow(2, 3, nil, nil, 0.8, "crop", nil, nil, 0.8)

	mock.ExpectQuery(`FROM post_relatedness e\s+JOIN posts p1 ON p1\.id = e\.post1_id`).
		WithArgs(start, end, 1.0, 1.0, 1.0).
		WillReturnRows(rows)

	edges, err := st.EdgesInWindow(context.Background(), start, end)
	if err != nil {
		t.Fatalf("EdgesInWindow: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(edges))
	}
	if edges[0].Post1ID != 1 || edges[0].Post2ID != 2 || edges[0].TotalWt != 0.5 {
		t.Fatalf("unexpected first edge: %+v", edges[0])
	}
	if edges[1].SubImgWt == nil || *edges[1].SubImgWt != 0.8 {
		t.Fatalf("unexpected second edge signal: %+v", edges[1])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRelatedPostsResolvesEitherSlot(t *testing.T) {
	st, mock, closeDB := newTestStore(t)
	defer closeDB()

	// Post 5 appears in both slots across its edges.
	rows := sqlmock.NewRows(edgeColumns()).
		AddRow(5, 9, 0.9, "caption", nil, nil, nil, nil, 0.9).
		AddRow(2, 5, nil, nil, 0.4, "crop", nil, nil, 0.4)

	mock.ExpectQuery(`WHERE \(e\.post1_id = \$1 OR e\.post2_id = \$1\)`).
		WithArgs(int64(5), 1.0, 1.0, 1.0, 0, 10).
		WillReturnRows(rows)

	related, err := st.RelatedPosts(context.Background(), 5, 0, 10)
	if err != nil {
		t.Fatalf("RelatedPosts: %v", err)
	}
	if len(related) != 2 {
		t.Fatalf("expected 2 related posts, got %d", len(related))
	}
	if related[0].ID != 9 {
		t.Fatalf("expected other endpoint 9, got %d", related[0].ID)
	}
	if related[1].ID != 2 {
		t.Fatalf("expected other endpoint 2, got %d", related[1].ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRelatedPostsPagination(t *testing.T) {
	st, mock, closeDB := newTestStore(t)
	defer closeDB()

	mock.ExpectQuery(`OFFSET \$5 LIMIT \$6`).
		WithArgs(int64(7), 1.0, 1.0, 1.0, 20, 5).
		WillReturnRows(sqlmock.NewRows(edgeColumns()))

	related, err := st.RelatedPosts(context.Background(), 7, 20, 5)
	if err != nil {
		t.Fatalf("RelatedPosts: %v", err)
	}
	if len(related) != 0 {
		t.Fatalf("expected no rows, got %d", len(related))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostNotFound(t *testing.T) {
	st, mock, closeDB := newTestStore(t)
	defer closeDB()

	mock.ExpectQuery(`FROM posts\s+WHERE id = \$1`).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := st.Post(context.Background(), 404)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTrendingPostsEngagementOrder(t *testing.T) {
	st, mock, closeDB := newTestStore(t)
	defer closeDB()

	start := time.Now().Add(-24 * time.Hour)
	end := time.Now()
	posted := time.Now().Add(-2 * time.Hour)

	rows := sqlmock.NewRows([]string{
		"id", "post_url", "image_url",
		"reposts", "replies", "likes",
		"when_posted", "user_id",
		"related_text", "ocr_text",
		"when_scraped", "when_updated",
	}).AddRow(3, "https://example.com/3", "https://img.example.com/3.jpg",
		10, 5, 100, posted, 1, nil, nil, posted, posted)

	mock.ExpectQuery(`ORDER BY \(10 \* reposts \+ 10 \* replies \+ likes\) DESC, id ASC`).
		WithArgs(start, end, 0, 20).
		WillReturnRows(rows)

	posts, err := st.TrendingPosts(context.Background(), start, end, 0, 20)
	if err != nil {
		t.Fatalf("TrendingPosts: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != 3 || posts[0].Likes != 100 {
		t.Fatalf("unexpected posts: %+v", posts)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCentralPostsUnknownUser(t *testing.T) {
	st, mock, closeDB := newTestStore(t)
	defer closeDB()

	start := time.Now().Add(-365 * 24 * time.Hour)
	end := time.Now()
	posted := time.Now().Add(-48 * time.Hour)
	evaluated := time.Now().Add(-time.Hour)

	rows := sqlmock.NewRows([]string{
		"id", "post_url", "image_url",
		"reposts", "replies", "likes",
		"when_posted", "score", "evaluated",
		"username", "platform",
	}).AddRow(8, "https://example.com/8", "https://img.example.com/8.jpg",
		1, 2, 3, posted, 0.75, evaluated, "UNKNOWN", "UNKNOWN")

	mock.ExpectQuery(`SELECT DISTINCT ON \(post_id\) post_id, score, evaluated`).
		WithArgs(start, end, 5).
		WillReturnRows(rows)

	posts, err := st.CentralPosts(context.Background(), start, end, 5)
	if err != nil {
		t.Fatalf("CentralPosts: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 central post, got %d", len(posts))
	}
	if posts[0].Username != "UNKNOWN" || posts[0].Platform != "UNKNOWN" {
		t.Fatalf("expected UNKNOWN user fields, got %+v", posts[0])
	}
	if posts[0].Score != 0.75 {
		t.Fatalf("expected score 0.75, got %v", posts[0].Score)
	}
}

func TestClusterRunUnknownRun(t *testing.T) {
	st, mock, closeDB := newTestStore(t)
	defer closeDB()

	mock.ExpectQuery(`SELECT id FROM clustering_runs WHERE id = \$1`).
		WithArgs(int64(999)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := st.ClusterRun(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClusterRunGroupsMembers(t *testing.T) {
	st, mock, closeDB := newTestStore(t)
	defer closeDB()

	mock.ExpectQuery(`SELECT id FROM clustering_runs WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	memberRows := sqlmock.NewRows([]string{"id", "post_id", "centrality"}).
		AddRow(100, 1, 0.5).
		AddRow(100, 2, 0.1).
		AddRow(101, 3, 0.9)

	mock.ExpectQuery(`JOIN cluster_members m ON m\.cluster_id = c\.id`).
		WithArgs(int64(7)).
		WillReturnRows(memberRows)

	records, err := st.ClusterRun(context.Background(), 7)
	if err != nil {
		t.Fatalf("ClusterRun: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(records))
	}
	if records[0].ClusterID != 100 || len(records[0].Members) != 2 {
		t.Fatalf("unexpected first cluster: %+v", records[0])
	}
	if records[1].ClusterID != 101 || records[1].Members[0].Centrality != 0.9 {
		t.Fatalf("unexpected second cluster: %+v", records[1])
	}
}

func TestClusterRunEmptyRun(t *testing.T) {
	st, mock, closeDB := newTestStore(t)
	defer closeDB()

	mock.ExpectQuery(`SELECT id FROM clustering_runs WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(`JOIN cluster_members m ON m\.cluster_id = c\.id`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id", "centrality"}))

	records, err := st.ClusterRun(context.Background(), 7)
	if err != nil {
		t.Fatalf("ClusterRun: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("run with no clusters should yield an empty slice, got %+v", records)
	}
}

func TestDailyRunID(t *testing.T) {
	st, mock, closeDB := newTestStore(t)
	defer closeDB()

	day := time.Date(2026, 8, 30, 15, 4, 5, 0, time.UTC)
	mock.ExpectQuery(`SELECT clustering_id FROM daily_clusterings`).
		WithArgs("2026-08-30").
		WillReturnRows(sqlmock.NewRows([]string{"clustering_id"}).AddRow(12))

	runID, err := st.DailyRunID(context.Background(), day)
	if err != nil {
		t.Fatalf("DailyRunID: %v", err)
	}
	if runID != 12 {
		t.Fatalf("expected run 12, got %d", runID)
	}
}

func TestDailyRunIDNotFound(t *testing.T) {
	st, mock, closeDB := newTestStore(t)
	defer closeDB()

	mock.ExpectQuery(`SELECT clustering_id FROM daily_clusterings`).
		WithArgs("2026-01-01").
		WillReturnRows(sqlmock.NewRows([]string{"clustering_id"}))

	_, err := st.DailyRunID(context.Background(), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMostRecentRunIDNotFound(t *testing.T) {
	st, mock, closeDB := newTestStore(t)
	defer closeDB()

	mock.ExpectQuery(`SELECT id FROM clustering_runs\s+ORDER BY when_created DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := st.MostRecentRunID(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
