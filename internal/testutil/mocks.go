package testutil

import (
	"context"
	"pasosd/internal/models"
	"pasosd/internal/providers"
	"sync"
	"sync/atomic"
	"time"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Count returns how many entries were logged at level.
func (m *MockLogger) Count(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.Logs {
		if l.Level == level {
			n++
		}
	}
	return n
}

// MockMetrics implements providers.MetricsProviderInterface and keeps the
// last value or running count of each series.
type MockMetrics struct {
	mu              sync.Mutex
	CacheHits       int
	CacheMisses     int
	FetchFailures   int
	FetchDurations  int
	Refreshes       map[string]int
	SnapshotEntries int
	CatalogEntries  int
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}

func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}

func (m *MockMetrics) ObserveFetchDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchDurations++
}

func (m *MockMetrics) IncFetchFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchFailures++
}

func (m *MockMetrics) IncRefreshes(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Refreshes == nil {
		m.Refreshes = make(map[string]int)
	}
	m.Refreshes[outcome]++
}

func (m *MockMetrics) SetSnapshotEntries(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SnapshotEntries = count
}

func (m *MockMetrics) SetCatalogEntries(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CatalogEntries = count
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

// MockFetcher implements upstream.Fetcher. When Release is non-nil every
// call blocks until it is closed or the context ends.
type MockFetcher struct {
	mu      sync.Mutex
	Records []models.RemoteRecord
	Err     error
	Release chan struct{}
	calls   atomic.Int32
}

func (m *MockFetcher) Fetch(ctx context.Context) ([]models.RemoteRecord, error) {
	m.calls.Add(1)
	if m.Release != nil {
		select {
		case <-m.Release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.RemoteRecord, len(m.Records))
	copy(out, m.Records)
	return out, nil
}

// Set replaces the canned result of subsequent calls.
func (m *MockFetcher) Set(records []models.RemoteRecord, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = records
	m.Err = err
}

func (m *MockFetcher) Calls() int {
	return int(m.calls.Load())
}

// Str returns a pointer to s, for building records with optional fields.
func Str(s string) *string {
	return &s
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}
