package scheduler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/foliotrader/folio/internal/modules/portfolio"
)

// SnapshotJob values the portfolio and stores the daily summary row.
type SnapshotJob struct {
	service   *portfolio.Service
	snapshots *portfolio.SnapshotRepository
	log       zerolog.Logger
}

// NewSnapshotJob creates the nightly valuation snapshot job
func NewSnapshotJob(service *portfolio.Service, snapshots *portfolio.SnapshotRepository, log zerolog.Logger) *SnapshotJob {
	return &SnapshotJob{
		service:   service,
		snapshots: snapshots,
		log:       log.With().Str("job", "snapshot").Logger(),
	}
}

// Name returns the job name
func (j *SnapshotJob) Name() string {
	return "portfolio_snapshot"
}

// Run values the portfolio as of today and upserts the snapshot row.
func (j *SnapshotJob) Run() error {
	today := time.Now().UTC().Format("2006-01-02")

	summary, err := j.service.GetSummary(today)
	if err != nil {
		return fmt.Errorf("valuing portfolio: %w", err)
	}

	snapshot := portfolio.Snapshot{
		Date:          today,
		TotalValue:    summary.TotalValue,
		TotalCost:     summary.TotalCost,
		UnrealizedPnL: summary.UnrealizedPnL,
		PositionCount: len(summary.Holdings),
	}
	if err := j.snapshots.Save(snapshot); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}

	if len(summary.Warnings) > 0 {
		j.log.Warn().Int("warnings", len(summary.Warnings)).Msg("snapshot computed with data-quality warnings")
	}
	j.log.Info().
		Str("date", today).
		Float64("total_value", summary.TotalValue).
		Int("positions", len(summary.Holdings)).
		Msg("Portfolio snapshot stored")

	return nil
}
