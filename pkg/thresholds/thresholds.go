// Package thresholds resolves the indicator tunables for one maintenance:
// process-wide defaults from the configuration, with per-maintenance overrides
// from the database layered on top.
package thresholds

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/netauto/maintcheck/pkg/config"
	"github.com/netauto/maintcheck/pkg/models"
)

// Override keys accepted by Set; anything else is rejected so typos do not
// silently become dead rows.
const (
	KeyTxPowerMin     = "tx_power_min"
	KeyTxPowerMax     = "tx_power_max"
	KeyRxPowerMin     = "rx_power_min"
	KeyRxPowerMax     = "rx_power_max"
	KeyTemperatureMin = "temperature_min"
	KeyTemperatureMax = "temperature_max"
	KeyVoltageMin     = "voltage_min"
	KeyVoltageMax     = "voltage_max"
	KeyFanHealthy     = "fan_healthy"
	KeyPowerHealthy   = "power_healthy"
)

var knownKeys = map[string]bool{
	KeyTxPowerMin: true, KeyTxPowerMax: true,
	KeyRxPowerMin: true, KeyRxPowerMax: true,
	KeyTemperatureMin: true, KeyTemperatureMax: true,
	KeyVoltageMin: true, KeyVoltageMax: true,
	KeyFanHealthy: true, KeyPowerHealthy: true,
}

// Snapshot is a fully resolved set of tunables for one evaluation pass.
type Snapshot struct {
	TxPower      config.Range
	RxPower      config.Range
	Temperature  config.Range
	Voltage      config.Range
	FanHealthy   []string
	PowerHealthy []string
}

// Service reads overrides and merges them onto the defaults.
type Service struct {
	db     *sqlx.DB
	logger *zap.Logger

	mu       sync.RWMutex
	defaults config.ThresholdDefaults
}

func New(db *sqlx.DB, defaults config.ThresholdDefaults, logger *zap.Logger) *Service {
	return &Service{db: db, defaults: defaults, logger: logger}
}

// SetDefaults swaps the process-wide defaults, for config hot reload.
// Overrides already stored per maintenance are unaffected.
func (s *Service) SetDefaults(defaults config.ThresholdDefaults) {
	s.mu.Lock()
	s.defaults = defaults
	s.mu.Unlock()
}

// Snapshot resolves the tunables for one maintenance. Malformed override
// values are logged and skipped so one bad row cannot blank an indicator.
func (s *Service) Snapshot(ctx context.Context, maintenanceID string) (Snapshot, error) {
	s.mu.RLock()
	snap := Snapshot{
		TxPower:      s.defaults.TxPower,
		RxPower:      s.defaults.RxPower,
		Temperature:  s.defaults.Temperature,
		Voltage:      s.defaults.Voltage,
		FanHealthy:   s.defaults.FanHealthy,
		PowerHealthy: s.defaults.PowerHealthy,
	}
	s.mu.RUnlock()

	overrides, err := s.List(ctx, maintenanceID)
	if err != nil {
		return snap, fmt.Errorf("list threshold overrides: %w", err)
	}
	for _, o := range overrides {
		if err := snap.apply(o.Key, o.Value); err != nil {
			s.logger.Warn("skipping malformed threshold override",
				zap.String("maintenance_id", maintenanceID),
				zap.String("key", o.Key),
				zap.String("value", o.Value),
				zap.Error(err),
			)
		}
	}
	return snap, nil
}

func (snap *Snapshot) apply(key, value string) error {
	setBound := func(r *config.Range, min bool) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return err
		}
		if min {
			r.Min = f
		} else {
			r.Max = f
		}
		return nil
	}
	switch key {
	case KeyTxPowerMin:
		return setBound(&snap.TxPower, true)
	case KeyTxPowerMax:
		return setBound(&snap.TxPower, false)
	case KeyRxPowerMin:
		return setBound(&snap.RxPower, true)
	case KeyRxPowerMax:
		return setBound(&snap.RxPower, false)
	case KeyTemperatureMin:
		return setBound(&snap.Temperature, true)
	case KeyTemperatureMax:
		return setBound(&snap.Temperature, false)
	case KeyVoltageMin:
		return setBound(&snap.Voltage, true)
	case KeyVoltageMax:
		return setBound(&snap.Voltage, false)
	case KeyFanHealthy:
		snap.FanHealthy = splitList(value)
	case KeyPowerHealthy:
		snap.PowerHealthy = splitList(value)
	default:
		return fmt.Errorf("unknown threshold key %q", key)
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// List returns the raw overrides of a maintenance.
func (s *Service) List(ctx context.Context, maintenanceID string) ([]models.ThresholdOverride, error) {
	var rows []models.ThresholdOverride
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM threshold_overrides WHERE maintenance_id = $1 ORDER BY key`,
		maintenanceID)
	return rows, err
}

// Validate reports whether key names a known threshold and value parses for
// it, without touching the database.
func Validate(key, value string) error {
	if !knownKeys[key] {
		return fmt.Errorf("unknown threshold key %q", key)
	}
	var probe Snapshot
	if err := probe.apply(key, value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}

// Set upserts one override. Numeric keys must parse as floats; list keys take
// comma-separated statuses.
func (s *Service) Set(ctx context.Context, maintenanceID, key, value string) error {
	if err := Validate(key, value); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO threshold_overrides (maintenance_id, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (maintenance_id, key) DO UPDATE SET value = EXCLUDED.value`,
		maintenanceID, key, value)
	return err
}

// Delete removes one override, reverting that key to the process default.
func (s *Service) Delete(ctx context.Context, maintenanceID, key string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM threshold_overrides WHERE maintenance_id = $1 AND key = $2`,
		maintenanceID, key)
	return err
}
