package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/swarmtree/swarmtree/internal/coordinator"
	"github.com/swarmtree/swarmtree/pkg/models"
)

// ErrNoSnapshot is returned when no snapshot has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

// SaveSnapshot persists a coordination snapshot as a single JSON document.
// Completed features in the snapshot are also upserted into the history
// table so they survive snapshot purging.
func (db *DB) SaveSnapshot(snap coordinator.Snapshot) error {
	doc, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	return db.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			INSERT INTO snapshots (taken_at, document) VALUES (?, ?)
		`, formatTime(snap.TakenAt), string(doc)); err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}

		for _, f := range snap.Completed {
			if _, err := tx.Exec(`
				INSERT INTO completed_features
					(id, name, priority, agent_id, duration_seconds, changed_files, completed_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO NOTHING
			`, f.ID, f.Name, string(f.Priority), f.AssignedAgent,
				f.DurationSeconds, len(f.ChangedFiles), formatTime(f.CompletedAt)); err != nil {
				return fmt.Errorf("record completed feature %s: %w", f.ID, err)
			}
		}
		return nil
	})
}

// LoadLatestSnapshot returns the most recently saved snapshot.
func (db *DB) LoadLatestSnapshot() (coordinator.Snapshot, error) {
	var doc string
	row := db.QueryRow(`
		SELECT document FROM snapshots ORDER BY id DESC LIMIT 1
	`)
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return coordinator.Snapshot{}, ErrNoSnapshot
		}
		return coordinator.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}

	var snap coordinator.Snapshot
	if err := json.Unmarshal([]byte(doc), &snap); err != nil {
		return coordinator.Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}

// SnapshotCount returns the number of stored snapshots.
func (db *DB) SnapshotCount() (int, error) {
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&n); err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return n, nil
}

// PurgeOldSnapshots deletes snapshots taken before the cutoff, keeping the
// most recent one regardless of age. Returns the number deleted.
func (db *DB) PurgeOldSnapshots(olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))

	result, err := db.Exec(`
		DELETE FROM snapshots
		WHERE taken_at < ?
		  AND id != (SELECT MAX(id) FROM snapshots)
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge old snapshots: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return count, nil
}

// CompletedFeatureRecord is one row of durable completion history.
type CompletedFeatureRecord struct {
	ID              string
	Name            string
	Priority        models.Priority
	AgentID         string
	DurationSeconds float64
	ChangedFiles    int
	CompletedAt     time.Time
}

// CompletionHistory returns completed features in completion order,
// newest first, up to limit rows. A limit of 0 returns everything.
func (db *DB) CompletionHistory(limit int) ([]CompletedFeatureRecord, error) {
	query := `
		SELECT id, name, priority, agent_id, duration_seconds, changed_files, completed_at
		FROM completed_features
		ORDER BY completed_at DESC
	`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = db.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("query completion history: %w", err)
	}
	defer rows.Close()

	var records []CompletedFeatureRecord
	for rows.Next() {
		var r CompletedFeatureRecord
		var priority, completedAt string
		if err := rows.Scan(&r.ID, &r.Name, &priority, &r.AgentID,
			&r.DurationSeconds, &r.ChangedFiles, &completedAt); err != nil {
			return nil, fmt.Errorf("scan completion row: %w", err)
		}
		r.Priority = models.Priority(priority)
		if t, err := parseTime(completedAt); err == nil {
			r.CompletedAt = t
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
