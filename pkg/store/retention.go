package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RetentionReport aggregates what one sweep deleted.
type RetentionReport struct {
	MaintenancesSwept int            `json:"maintenances_swept"`
	RowsDeleted       map[string]int64 `json:"rows_deleted"`
}

// SweepRetention deletes collection data for maintenances that have been
// inactive longer than grace. Batch deletion cascades into the typed record
// tables. The maintenance row itself is never touched here; only operators
// delete maintenances.
func (s *Store) SweepRetention(ctx context.Context, grace time.Duration) (*RetentionReport, error) {
	cutoff := s.clock.Now().UTC().Add(-grace)

	var ids []string
	if err := s.db.SelectContext(ctx, &ids, `
		SELECT id FROM maintenances
		WHERE is_active = FALSE AND updated_at <= $1`, cutoff); err != nil {
		return nil, fmt.Errorf("find expired maintenances: %w", err)
	}

	report := &RetentionReport{RowsDeleted: map[string]int64{}}
	for _, id := range ids {
		if err := s.purgeCollectionData(ctx, id, report); err != nil {
			s.logger.Error("retention purge failed",
				zap.String("maintenance_id", id), zap.Error(err))
			continue
		}
		report.MaintenancesSwept++
	}

	if report.MaintenancesSwept > 0 {
		s.logger.Info("retention sweep complete",
			zap.Int("maintenances", report.MaintenancesSwept),
			zap.Int64("batches", report.RowsDeleted["collection_batches"]),
		)
	}
	return report, nil
}

func (s *Store) purgeCollectionData(ctx context.Context, maintenanceID string, report *RetentionReport) error {
	// Pointer rows first so no pointer ever dangles mid-purge, then batches
	// (cascading typed rows), then the error log.
	for _, table := range []string{"latest_collection_batches", "collection_batches", "collection_errors"} {
		res, err := s.db.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE maintenance_id = $1", table), maintenanceID)
		if err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			report.RowsDeleted[table] += n
			s.metrics.RetentionDeleted.WithLabelValues(table).Add(float64(n))
		}
	}
	return nil
}
