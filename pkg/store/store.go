// Package store persists parsed collection items under the baseline +
// change-point strategy: a new append-only batch is written only when the
// hashed payload differs from the latest stored one; otherwise only the
// latest-batch pointer's last_checked_at moves.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/netauto/maintcheck/pkg/canonical"
	"github.com/netauto/maintcheck/pkg/metrics"
	"github.com/netauto/maintcheck/pkg/models"
	"github.com/netauto/maintcheck/pkg/parsers"
)

// Store mediates every write to the collection tables.
type Store struct {
	db      *sqlx.DB
	logger  *zap.Logger
	metrics *metrics.Metrics
	clock   clock.Clock

	retryMax  int
	retryBase time.Duration
}

func New(db *sqlx.DB, logger *zap.Logger, m *metrics.Metrics, clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.New()
	}
	return &Store{
		db:        db,
		logger:    logger,
		metrics:   m,
		clock:     clk,
		retryMax:  3,
		retryBase: 100 * time.Millisecond,
	}
}

// DB exposes the pool for read-model queries layered on the store.
func (s *Store) DB() *sqlx.DB { return s.db }

// Result reports what SaveBatch did.
type Result struct {
	Changed bool
	BatchID int64
	Hash    string
}

// SaveBatch canonicalises and hashes the parsed items for one device and
// either touches the latest pointer (unchanged) or writes a new batch, its
// typed rows, and the pointer upsert in one transaction. Serialisation and
// uniqueness conflicts caused by concurrent ticks are retried up to three
// times with exponential backoff.
func (s *Store) SaveBatch(
	ctx context.Context,
	maintenanceID string,
	ctype models.CollectionType,
	hostname string,
	rawData string,
	items parsers.ItemList,
) (Result, error) {
	items.Canonicalize()
	hash, err := canonical.Hash(items.Raw())
	if err != nil {
		return Result{}, fmt.Errorf("hash %s items for %s: %w", ctype, hostname, err)
	}

	op := func() (Result, error) {
		res, err := s.saveOnce(ctx, maintenanceID, ctype, hostname, rawData, hash, items)
		if err != nil {
			if isRetryableConflict(err) {
				return Result{}, err // retryable as-is
			}
			return Result{}, backoff.Permanent(err)
		}
		return res, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.retryBase
	res, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(s.retryMax)),
	)
	if err != nil {
		s.logger.Error("save batch failed",
			zap.String("maintenance_id", maintenanceID),
			zap.String("collection_type", string(ctype)),
			zap.String("switch_hostname", hostname),
			zap.Error(err),
		)
		return Result{}, err
	}

	if res.Changed {
		s.metrics.BatchesWritten.WithLabelValues(string(ctype)).Inc()
	} else {
		s.metrics.BatchesUnchanged.WithLabelValues(string(ctype)).Inc()
	}
	return res, nil
}

func (s *Store) saveOnce(
	ctx context.Context,
	maintenanceID string,
	ctype models.CollectionType,
	hostname, rawData, hash string,
	items parsers.ItemList,
) (Result, error) {
	now := s.clock.Now().UTC()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Result{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var latest models.LatestCollectionBatch
	err = tx.GetContext(ctx, &latest, `
		SELECT * FROM latest_collection_batches
		WHERE maintenance_id = $1 AND collection_type = $2 AND switch_hostname = $3
		FOR UPDATE`,
		maintenanceID, ctype, hostname)
	found := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Result{}, fmt.Errorf("load latest pointer: %w", err)
	}

	if found && latest.DataHash == hash {
		if _, err := tx.ExecContext(ctx,
			`UPDATE latest_collection_batches SET last_checked_at = $1 WHERE id = $2`,
			now, latest.ID); err != nil {
			return Result{}, fmt.Errorf("touch latest pointer: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return Result{}, fmt.Errorf("commit: %w", err)
		}
		return Result{Changed: false, BatchID: latest.BatchID, Hash: hash}, nil
	}

	var batchID int64
	err = tx.GetContext(ctx, &batchID, `
		INSERT INTO collection_batches
		    (maintenance_id, collection_type, switch_hostname, raw_data, item_count, collected_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		maintenanceID, ctype, hostname, rawData, items.Len(), now)
	if err != nil {
		return Result{}, fmt.Errorf("insert batch: %w", err)
	}

	if err := insertRows(ctx, tx, batchID, maintenanceID, hostname, now, items); err != nil {
		return Result{}, fmt.Errorf("insert %s rows: %w", ctype, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO latest_collection_batches
		    (maintenance_id, collection_type, switch_hostname, batch_id, data_hash, collected_at, last_checked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (maintenance_id, collection_type, switch_hostname)
		DO UPDATE SET batch_id = EXCLUDED.batch_id,
		              data_hash = EXCLUDED.data_hash,
		              collected_at = EXCLUDED.collected_at,
		              last_checked_at = EXCLUDED.last_checked_at`,
		maintenanceID, ctype, hostname, batchID, hash, now); err != nil {
		return Result{}, fmt.Errorf("upsert latest pointer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("commit: %w", err)
	}
	return Result{Changed: true, BatchID: batchID, Hash: hash}, nil
}

// RecordCollectionError notes a single device's fetch or parse failure.
func (s *Store) RecordCollectionError(ctx context.Context, maintenanceID string, ctype models.CollectionType, hostname, message string) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collection_errors
		    (maintenance_id, collection_type, switch_hostname, error_message, occurred_at)
		VALUES ($1, $2, $3, $4, $5)`,
		maintenanceID, ctype, hostname, message, s.clock.Now().UTC())
	if err != nil {
		s.logger.Error("record collection error failed",
			zap.String("maintenance_id", maintenanceID),
			zap.String("collection_type", string(ctype)),
			zap.Error(err),
		)
	}
}

// isRetryableConflict matches serialisation failures, deadlocks, and the
// unique-key race on the latest pointer.
func isRetryableConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "23505":
			return true
		}
	}
	return false
}
