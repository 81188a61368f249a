// Package fetch retrieves raw collection payloads from the upstream HTTP
// gateways and drives them through parser and store.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/netauto/maintcheck/pkg/config"
)

// Source names used in fetcher specs.
const (
	SourceFNA  = "fna"
	SourceDNA  = "dna"
	SourceGNMS = "gnms_ping"
)

// Source is one upstream gateway: base URL, bearer token, its own timeout,
// and a circuit breaker so a dead gateway fails fast instead of eating the
// whole tick's concurrency budget.
type Source struct {
	name    string
	cfg     config.SourceConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewSource(name string, cfg config.SourceConfig, logger *zap.Logger) *Source {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	s := &Source{
		name:   name,
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("source breaker state change",
				zap.String("source", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return s
}

// Get fetches one path relative to the source base URL.
func (s *Source) Get(ctx context.Context, path string) ([]byte, error) {
	return s.do(ctx, http.MethodGet, path, nil)
}

// PostJSON posts a JSON body to one path.
func (s *Source) PostJSON(ctx context.Context, path string, body any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", s.name, err)
	}
	return s.do(ctx, http.MethodPost, path, raw)
}

func (s *Source) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	out, err := s.breaker.Execute(func() (any, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, s.cfg.BaseURL+path, reader)
		if err != nil {
			return nil, err
		}
		if s.cfg.Token != "" {
			req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
		}
		return data, nil
	})
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", s.name, err)
	}
	return out.([]byte), nil
}

// AppName is carried in GNMS bulk requests.
func (s *Source) AppName() string { return s.cfg.AppName }

// Token is carried in GNMS bulk request bodies, which authenticate in-band.
func (s *Source) Token() string { return s.cfg.Token }

// Sources bundles the three gateway families.
type Sources struct {
	FNA  *Source
	DNA  *Source
	GNMS *Source
}

func NewSources(cfg config.SourcesConfig, logger *zap.Logger) *Sources {
	return &Sources{
		FNA:  NewSource(SourceFNA, cfg.FNA, logger),
		DNA:  NewSource(SourceDNA, cfg.DNA, logger),
		GNMS: NewSource(SourceGNMS, cfg.GNMSPing, logger),
	}
}

func (s *Sources) byName(name string) *Source {
	switch name {
	case SourceFNA:
		return s.FNA
	case SourceDNA:
		return s.DNA
	case SourceGNMS:
		return s.GNMS
	}
	return nil
}
