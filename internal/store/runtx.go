package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mews-ugrads/mews-back-end/pkg/models"
)

// RunTx scopes every write of one clustering run to a single database
// transaction, so readers see either the whole run or nothing.
type RunTx interface {
	InsertClusteringRun(ctx context.Context, createdAt time.Time, description string) (int64, error)
	InsertCluster(ctx context.Context, runID int64) (int64, error)
	InsertClusterMembers(ctx context.Context, clusterID int64, members []models.ClusterMember) error
	ReplaceDailyIndex(ctx context.Context, day time.Time, runID int64) error
	Commit() error
	Rollback() error
}

// BeginRun opens the transaction for one clustering run's writes.
func (s *Store) BeginRun(ctx context.Context) (RunTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin run transaction: %w", err)
	}
	return &runTx{tx: tx}, nil
}

type runTx struct {
	tx *sql.Tx
}

func (t *runTx) InsertClusteringRun(ctx context.Context, createdAt time.Time, description string) (int64, error) {
	var runID int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO clustering_runs (when_created, description)
		VALUES ($1, $2)
		RETURNING id`, createdAt, description).Scan(&runID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert clustering run: %w", err)
	}
	return runID, nil
}

func (t *runTx) InsertCluster(ctx context.Context, runID int64) (int64, error) {
	var clusterID int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO clusters (clustering_id)
		VALUES ($1)
		RETURNING id`, runID).Scan(&clusterID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert cluster for run %d: %w", runID, err)
	}
	return clusterID, nil
}

func (t *runTx) InsertClusterMembers(ctx context.Context, clusterID int64, members []models.ClusterMember) error {
	for _, member := range members {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO cluster_members (cluster_id, post_id, centrality)
			VALUES ($1, $2, $3)`, clusterID, member.PostID, member.Centrality)
		if err != nil {
			return fmt.Errorf("failed to insert member %d of cluster %d: %w", member.PostID, clusterID, err)
		}
	}
	return nil
}

// ReplaceDailyIndex points the daily index entry for day at runID,
// removing any prior entry first. Delete-then-insert is not atomic
// against a concurrent writer for the same day; callers serialize runs
// per day (last writer wins otherwise).
func (t *runTx) ReplaceDailyIndex(ctx context.Context, day time.Time, runID int64) error {
	dayDate := day.Format("2006-01-02")
	if _, err := t.tx.ExecContext(ctx, `
		DELETE FROM daily_clusterings WHERE day = $1`, dayDate); err != nil {
		return fmt.Errorf("failed to clear daily index for %s: %w", dayDate, err)
	}
	if _, err := t.tx.ExecContext(ctx, `
		INSERT INTO daily_clusterings (day, clustering_id)
		VALUES ($1, $2)`, dayDate, runID); err != nil {
		return fmt.Errorf("failed to insert daily index for %s: %w", dayDate, err)
	}
	return nil
}

func (t *runTx) Commit() error {
	return t.tx.Commit()
}

func (t *runTx) Rollback() error {
	return t.tx.Rollback()
}
