package models

import (
	"time"
)

// RelatednessEdge is a stored pairwise association between two posts. The
// post1/post2 slot assignment is arbitrary but fixed; use Other to resolve
// the endpoint opposite a given post.
type RelatednessEdge struct {
	Post1ID    int64    `json:"post1_id"`
	Post2ID    int64    `json:"post2_id"`
	RelTxtWt   *float64 `json:"rel_txt_wt"`
	RelTxtMeta *string  `json:"rel_txt_meta"`
	SubImgWt   *float64 `json:"sub_img_wt"`
	SubImgMeta *string  `json:"sub_img_meta"`
	OCRWt      *float64 `json:"ocr_wt"`
	OCRMeta    *string  `json:"ocr_meta"`
	TotalWt    float64  `json:"total_wt"`
}

// Other returns the endpoint opposite postID. The second return is false
// for a degenerate self-edge or when postID is not an endpoint at all.
func (e RelatednessEdge) Other(postID int64) (int64, bool) {
	if e.Post1ID == e.Post2ID {
		return 0, false
	}
	switch postID {
	case e.Post1ID:
		return e.Post2ID, true
	case e.Post2ID:
		return e.Post1ID, true
	}
	return 0, false
}

// ClusterMember is one post's membership in a persisted cluster, with the
// betweenness centrality computed on the cluster's induced subgraph.
type ClusterMember struct {
	PostID     int64   `json:"post_id"`
	Centrality float64 `json:"centrality"`
}

// ClusterRecord is a persisted cluster with its membership rows.
type ClusterRecord struct {
	ClusterID int64           `json:"cluster_id"`
	Members   []ClusterMember `json:"members"`
}

// ClusteringRun identifies one execution of the clustering pipeline.
type ClusteringRun struct {
	ID          int64     `json:"id"`
	WhenCreated time.Time `json:"when_created"`
	Description string    `json:"description"`
}

// GraphNode is a node of a graph-shaped API payload. Only the fields
// relevant to the producing endpoint are populated.
type GraphNode struct {
	ID         int64      `json:"id"`
	Central    *bool      `json:"central,omitempty"`
	Centrality *float64   `json:"centrality,omitempty"`
	Score      *float64   `json:"score,omitempty"`
	Evaluated  *time.Time `json:"evaluated,omitempty"`
	WhenPosted *time.Time `json:"when_posted,omitempty"`
	Reposts    *int       `json:"reposts,omitempty"`
	Replies    *int       `json:"replies,omitempty"`
	Likes      *int       `json:"likes,omitempty"`
	PostURL    string     `json:"post_url,omitempty"`
	ImageURL   string     `json:"image_url,omitempty"`
	Username   string     `json:"username,omitempty"`
	Platform   string     `json:"platform,omitempty"`
	RelTxtWt   *float64   `json:"rel_txt_wt,omitempty"`
	RelTxtMeta *string    `json:"rel_txt_meta,omitempty"`
	SubImgWt   *float64   `json:"sub_img_wt,omitempty"`
	SubImgMeta *string    `json:"sub_img_meta,omitempty"`
	OCRWt      *float64   `json:"ocr_wt,omitempty"`
	OCRMeta    *string    `json:"ocr_meta,omitempty"`
	TotalWt    *float64   `json:"total_wt,omitempty"`
}

// GraphLink is a link of a graph-shaped API payload. A self-loop
// (Source == Target) marks a visual anchor and carries no weight.
type GraphLink struct {
	Source int64    `json:"source"`
	Target int64    `json:"target"`
	Weight *float64 `json:"weight,omitempty"`
}

// GraphPayload is the node/link structure consumed by the display layer.
type GraphPayload struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// EmptyGraphPayload returns a payload with empty (non-nil) slices so
// consumers always see arrays rather than nulls.
func EmptyGraphPayload() GraphPayload {
	return GraphPayload{Nodes: []GraphNode{}, Links: []GraphLink{}}
}
