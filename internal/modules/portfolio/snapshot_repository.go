package portfolio

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// SnapshotRepository persists daily portfolio summaries
type SnapshotRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSnapshotRepository creates a snapshot repository
func NewSnapshotRepository(db *sql.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:  db,
		log: log.With().Str("repo", "snapshots").Logger(),
	}
}

// Save upserts the snapshot for its date. Re-running the snapshot job
// on the same day overwrites the earlier row.
func (r *SnapshotRepository) Save(s Snapshot) error {
	_, err := r.db.Exec(`
		INSERT INTO portfolio_snapshots (date, total_value, total_cost, unrealized_pnl, position_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			total_value = excluded.total_value,
			total_cost = excluded.total_cost,
			unrealized_pnl = excluded.unrealized_pnl,
			position_count = excluded.position_count,
			created_at = excluded.created_at`,
		s.Date, s.TotalValue, s.TotalCost, s.UnrealizedPnL, s.PositionCount,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving snapshot for %s: %w", s.Date, err)
	}
	r.log.Debug().Str("date", s.Date).Float64("total_value", s.TotalValue).Msg("snapshot saved")
	return nil
}

// List returns snapshots within [start, end] ordered by date ascending.
func (r *SnapshotRepository) List(start, end string) ([]Snapshot, error) {
	rows, err := r.db.Query(`
		SELECT id, date, total_value, total_cost, unrealized_pnl, position_count, created_at
		FROM portfolio_snapshots
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC`, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.ID, &s.Date, &s.TotalValue, &s.TotalCost, &s.UnrealizedPnL, &s.PositionCount, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}
