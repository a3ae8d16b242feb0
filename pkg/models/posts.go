package models

import (
	"time"
)

// Post represents a canonical post row. Rows are created and refreshed by
// the ingestion collaborator; this service only reads them.
type Post struct {
	ID          int64      `json:"id"`
	PostURL     string     `json:"post_url"`
	ImageURL    string     `json:"image_url"`
	Reposts     int        `json:"reposts"`
	Replies     int        `json:"replies"`
	Likes       int        `json:"likes"`
	WhenPosted  *time.Time `json:"when_posted"`
	UserID      *int64     `json:"user_id"`
	RelatedText *string    `json:"related_text"`
	OCRText     *string    `json:"ocr_text"`
	WhenScraped *time.Time `json:"when_scraped"`
	WhenUpdated *time.Time `json:"when_updated"`
}

// RelatedPost is one entry of a relatedness lookup: the non-queried
// endpoint of an edge plus the edge's signal weights and match metadata.
type RelatedPost struct {
	ID         int64    `json:"id"`
	RelTxtWt   *float64 `json:"rel_txt_wt"`
	RelTxtMeta *string  `json:"rel_txt_meta"`
	SubImgWt   *float64 `json:"sub_img_wt"`
	SubImgMeta *string  `json:"sub_img_meta"`
	OCRWt      *float64 `json:"ocr_wt"`
	OCRMeta    *string  `json:"ocr_meta"`
	TotalWt    float64  `json:"total_wt"`
}

// CentralPost is a post joined with its most recent centrality evaluation
// inside a query window, plus owning-user display fields.
type CentralPost struct {
	ID         int64      `json:"id"`
	PostURL    string     `json:"post_url"`
	ImageURL   string     `json:"image_url"`
	Reposts    int        `json:"reposts"`
	Replies    int        `json:"replies"`
	Likes      int        `json:"likes"`
	WhenPosted *time.Time `json:"when_posted"`
	Score      float64    `json:"score"`
	Evaluated  time.Time  `json:"evaluated"`
	Username   string     `json:"username"`
	Platform   string     `json:"platform"`
}

// PostDisplay carries the display attributes emitted for cluster graph nodes.
type PostDisplay struct {
	ID       int64  `json:"id"`
	PostURL  string `json:"post_url"`
	ImageURL string `json:"image_url"`
}
