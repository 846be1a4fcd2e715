package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pasosd/internal/models"
	"pasosd/internal/services"
	"pasosd/internal/structures"
	"pasosd/internal/testutil"
)

type mockSnapshotService struct {
	mu        sync.Mutex
	refreshes int
	err       error
}

func (m *mockSnapshotService) Get(ctx context.Context) (*models.Snapshot, error) {
	return m.Refresh(ctx)
}

func (m *mockSnapshotService) Refresh(_ context.Context) (*models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes++
	if m.err != nil {
		return nil, m.err
	}
	return &models.Snapshot{ID: "snap", CapturedAt: time.Now()}, nil
}

func (m *mockSnapshotService) Peek() (*models.Snapshot, services.State) {
	return nil, services.StateEmpty
}

func (m *mockSnapshotService) CatalogSize() int { return 1 }
func (m *mockSnapshotService) Close()           {}

func (m *mockSnapshotService) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshes
}

func testConfig(interval time.Duration) *structures.Config {
	return &structures.Config{
		Upstream: structures.UpstreamConfig{Timeout: time.Second},
		Snapshot: structures.SnapshotConfig{TTL: time.Minute, WarmInterval: interval},
	}
}

func TestScheduler_Warm_Success(t *testing.T) {
	svc := &mockSnapshotService{}
	s := NewScheduler(testConfig(0), &testutil.MockLogger{}, svc)

	require.NoError(t, s.Warm())
	assert.Equal(t, 1, svc.count())
}

func TestScheduler_Warm_Error(t *testing.T) {
	svc := &mockSnapshotService{err: errors.New("upstream down")}
	s := NewScheduler(testConfig(0), &testutil.MockLogger{}, svc)

	assert.EqualError(t, s.Warm(), "upstream down")
}

func TestScheduler_DisabledWithZeroInterval(t *testing.T) {
	svc := &mockSnapshotService{}
	logger := &testutil.MockLogger{}
	s := NewScheduler(testConfig(0), logger, svc)

	s.Init()
	defer s.Stop()

	assert.Nil(t, s.(*Scheduler).cron)
	assert.Equal(t, 0, svc.count())
	assert.Equal(t, 1, logger.Count("info"))
}

func TestScheduler_StopNilCron(t *testing.T) {
	s := NewScheduler(testConfig(0), &testutil.MockLogger{}, &mockSnapshotService{})
	// Should not panic with nil cron
	s.Stop()
}

func TestScheduler_InitRunsWarmUp(t *testing.T) {
	svc := &mockSnapshotService{}
	s := NewScheduler(testConfig(time.Second), &testutil.MockLogger{}, svc)

	s.Init()
	defer s.Stop()

	assert.Eventually(t, func() bool { return svc.count() >= 1 }, 3*time.Second, 50*time.Millisecond)
}
