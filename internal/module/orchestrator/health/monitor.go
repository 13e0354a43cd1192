// Package health tracks per-provider availability using periodic
// credential probes behind circuit breakers.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/mediaforge/server/internal/domain/generation"
	"github.com/mediaforge/server/internal/module/orchestrator"
	"github.com/mediaforge/server/internal/shared/logger"
	"github.com/mediaforge/server/internal/utils/metrics"
)

// Status represents the observed health of a provider.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CredentialSource supplies the credentials to probe a provider with.
// Providers without configured credentials are skipped rather than
// marked unhealthy.
type CredentialSource func(providerID string) (generation.Credentials, bool)

// Monitor periodically probes each provider that can validate
// credentials and tracks the outcome behind a circuit breaker.
type Monitor struct {
	mu sync.RWMutex

	registry *orchestrator.Registry
	creds    CredentialSource
	log      *logger.Logger
	metrics  *metrics.Metrics

	breakers  map[string]*gobreaker.CircuitBreaker[any]
	statuses  map[string]Status
	lastCheck map[string]time.Time

	checkInterval    time.Duration
	probeTimeout     time.Duration
	failureThreshold uint32
	stop             chan struct{}
	stopOnce         sync.Once
}

// Config contains monitor tuning knobs.
type Config struct {
	CheckInterval    time.Duration
	ProbeTimeout     time.Duration
	FailureThreshold uint32
}

// DefaultConfig returns the default monitor configuration.
func DefaultConfig() *Config {
	return &Config{
		CheckInterval:    30 * time.Second,
		ProbeTimeout:     10 * time.Second,
		FailureThreshold: 5,
	}
}

// NewMonitor creates a health monitor over the given registry.
func NewMonitor(registry *orchestrator.Registry, creds CredentialSource, log *logger.Logger, m *metrics.Metrics, cfg *Config) *Monitor {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logger.Discard()
	}

	mon := &Monitor{
		registry:      registry,
		creds:         creds,
		log:           log,
		metrics:       m,
		breakers:      make(map[string]*gobreaker.CircuitBreaker[any]),
		statuses:      make(map[string]Status),
		lastCheck:     make(map[string]time.Time),
		checkInterval:    cfg.CheckInterval,
		probeTimeout:     cfg.ProbeTimeout,
		failureThreshold: cfg.FailureThreshold,
		stop:             make(chan struct{}),
	}
	for _, id := range registry.IDs() {
		mon.getOrCreateBreaker(id)
		mon.statuses[id] = StatusHealthy
	}
	return mon
}

// Start launches the background probe loop.
func (m *Monitor) Start() {
	go m.loop()
}

// Stop ends the background probe loop.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.CheckAll()
		}
	}
}

// CheckAll probes every registered provider once.
func (m *Monitor) CheckAll() {
	for _, id := range m.registry.IDs() {
		ctx, cancel := context.WithTimeout(context.Background(), m.probeTimeout)
		m.CheckProvider(ctx, id)
		cancel()
	}
}

// CheckProvider probes a single provider and records the outcome.
// Providers that cannot validate credentials, or have none configured,
// keep their current status.
func (m *Monitor) CheckProvider(ctx context.Context, providerID string) error {
	adapter, ok := m.registry.Get(providerID)
	if !ok {
		return nil
	}
	validator, ok := adapter.(orchestrator.CredentialValidator)
	if !ok {
		return nil
	}
	credMap, ok := m.creds(providerID)
	if !ok {
		return nil
	}

	breaker := m.getOrCreateBreaker(providerID)
	_, err := breaker.Execute(func() (any, error) {
		valid, reason, probeErr := validator.ValidateCredentials(ctx, credMap)
		if probeErr != nil {
			return nil, probeErr
		}
		if !valid {
			return nil, &invalidCredentials{reason: reason}
		}
		return nil, nil
	})

	m.mu.Lock()
	m.lastCheck[providerID] = time.Now()
	switch {
	case err == nil:
		m.statuses[providerID] = StatusHealthy
	case breaker.State() == gobreaker.StateOpen:
		m.statuses[providerID] = StatusUnhealthy
	default:
		m.statuses[providerID] = StatusDegraded
	}
	status := m.statuses[providerID]
	m.mu.Unlock()

	if m.metrics != nil {
		var gauge float64
		switch status {
		case StatusHealthy:
			gauge = 1.0
		case StatusDegraded:
			gauge = 0.5
		}
		m.metrics.ProviderHealth.WithLabelValues(providerID).Set(gauge)
	}
	if err != nil {
		m.log.Warn("provider health probe failed",
			"provider", providerID,
			"status", string(status),
			logger.Err(err),
		)
	}
	return err
}

type invalidCredentials struct{ reason string }

func (e *invalidCredentials) Error() string {
	if e.reason == "" {
		return "credentials rejected"
	}
	return "credentials rejected: " + e.reason
}

// StatusOf returns the current status of a provider. Unknown providers
// are reported healthy.
func (m *Monitor) StatusOf(providerID string) Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status, ok := m.statuses[providerID]
	if !ok {
		return StatusHealthy
	}
	return status
}

// Snapshot returns the status of every tracked provider along with the
// time of its last probe.
func (m *Monitor) Snapshot() map[string]ProviderHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]ProviderHealth, len(m.statuses))
	for id, status := range m.statuses {
		out[id] = ProviderHealth{Status: status, LastCheck: m.lastCheck[id]}
	}
	return out
}

// ProviderHealth is one provider's entry in a health snapshot.
type ProviderHealth struct {
	Status    Status    `json:"status"`
	LastCheck time.Time `json:"last_check,omitzero"`
}

func (m *Monitor) getOrCreateBreaker(providerID string) *gobreaker.CircuitBreaker[any] {
	m.mu.Lock()
	defer m.mu.Unlock()

	if breaker, ok := m.breakers[providerID]; ok {
		return breaker
	}

	settings := gobreaker.Settings{
		Name:        providerID,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= m.failureThreshold
		},
	}
	breaker := gobreaker.NewCircuitBreaker[any](settings)
	m.breakers[providerID] = breaker
	return breaker
}
