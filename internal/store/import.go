package store

import (
	"context"
	"fmt"
	"time"
)

// Signal methods accepted by UpsertRelatednessSignal. Each maps to its
// weight/metadata column pair; anything else is rejected before touching
// the database.
const (
	MethodRelatedText = "related_text"
	MethodSubImage    = "subimage"
	MethodOCR         = "ocr"
)

var signalColumns = map[string][2]string{
	MethodRelatedText: {"rel_txt_wt", "rel_txt_meta"},
	MethodSubImage:    {"sub_img_wt", "sub_img_meta"},
	MethodOCR:         {"ocr_wt", "ocr_meta"},
}

// UpsertRelatednessSignal writes one signal of the edge between the posts
// identified by the two scrape ids, creating the edge row if it does not
// exist. Endpoints are normalized so the lower post id always occupies the
// first slot regardless of argument order. Returns ErrNotFound when either
// scrape id has no post row.
func (s *Store) UpsertRelatednessSignal(ctx context.Context, scrape1ID, scrape2ID, method string, weight float64, meta string) error {
	cols, ok := signalColumns[method]
	if !ok {
		return fmt.Errorf("unknown relatedness method %q", method)
	}
	wtCol, metaCol := cols[0], cols[1]

	query := fmt.Sprintf(`
		INSERT INTO post_relatedness (post1_id, post2_id, %s, %s)
		SELECT LEAST(p1.id, p2.id), GREATEST(p1.id, p2.id), $3, $4
		FROM posts p1, posts p2
		WHERE p1.scrape_id = $1 AND p2.scrape_id = $2 AND p1.id <> p2.id
		ON CONFLICT (post1_id, post2_id)
		DO UPDATE SET %s = EXCLUDED.%s, %s = EXCLUDED.%s`,
		wtCol, metaCol, wtCol, wtCol, metaCol, metaCol)

	result, err := s.db.ExecContext(ctx, query, scrape1ID, scrape2ID, weight, meta)
	if err != nil {
		return fmt.Errorf("failed to upsert %s signal: %w", method, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read upsert result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertPostCentrality records one centrality evaluation for the post
// identified by scrapeID. Returns ErrNotFound when the scrape id has no
// post row.
func (s *Store) InsertPostCentrality(ctx context.Context, scrapeID string, score float64, evaluated time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO post_centrality (post_id, score, evaluated)
		SELECT id, $2, $3 FROM posts WHERE scrape_id = $1`,
		scrapeID, score, evaluated)
	if err != nil {
		return fmt.Errorf("failed to insert post centrality: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read centrality insert result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
