package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pasosd/internal/catalog"
	"pasosd/internal/models"
	"pasosd/internal/providers"
	"pasosd/internal/structures"
	"pasosd/internal/testutil"
	"pasosd/internal/upstream"
)

const testTTL = 15 * time.Minute

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var testCatalog = []models.CatalogEntry{
	{ID: 1, Name: "Cristo Redentor"},
	{ID: 2, Name: "Pehuenche"},
}

var testRecords = []models.RemoteRecord{
	{ID: testutil.Int(1), Name: "Cristo Redentor", PriorityStatus: testutil.Str("Abierto")},
	{ID: testutil.Int(2), Name: "Pehuenche", PriorityStatus: testutil.Str("Cerrado")},
}

type serviceFixture struct {
	svc     *SnapshotService
	fetcher *testutil.MockFetcher
	clock   *fakeClock
	metrics *testutil.MockMetrics
}

func newServiceFixture(t *testing.T, entries []models.CatalogEntry) *serviceFixture {
	t.Helper()
	conf := &structures.Config{Snapshot: structures.SnapshotConfig{TTL: testTTL}}
	logger := &testutil.MockLogger{}
	metrics := &testutil.MockMetrics{}
	fetcher := &testutil.MockFetcher{Records: testRecords}
	clock := &fakeClock{now: capturedAt}

	svc := NewSnapshotService(conf, catalog.NewStore(entries), fetcher, NewAggregatorWithPolicy(AggregatorPolicy{}, logger), logger, metrics).(*SnapshotService)
	svc.now = clock.Now
	t.Cleanup(svc.Close)

	return &serviceFixture{svc: svc, fetcher: fetcher, clock: clock, metrics: metrics}
}

func fetchFailure() error {
	return &upstream.FetchError{Op: "fetch", StatusCode: 503, Err: errors.New("service unavailable")}
}

func TestGet_FirstCallFetches(t *testing.T) {
	f := newServiceFixture(t, testCatalog)

	snap, err := f.svc.Get(context.Background())

	require.NoError(t, err)
	require.Len(t, snap.Entries, 2)
	assert.Equal(t, capturedAt, snap.CapturedAt)
	assert.Equal(t, 1, f.fetcher.Calls())
	assert.Equal(t, 2, f.metrics.SnapshotEntries)
	assert.Equal(t, 1, f.metrics.Refreshes[providers.RefreshSuccess])
}

func TestGet_ServesFromMemoryWithinTTL(t *testing.T) {
	f := newServiceFixture(t, testCatalog)

	first, err := f.svc.Get(context.Background())
	require.NoError(t, err)

	f.clock.Advance(testTTL - time.Second)
	second, err := f.svc.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.fetcher.Calls())
}

func TestGet_RefreshesOnceExpired(t *testing.T) {
	f := newServiceFixture(t, testCatalog)

	first, err := f.svc.Get(context.Background())
	require.NoError(t, err)

	f.clock.Advance(testTTL)
	second, err := f.svc.Get(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, f.fetcher.Calls())
}

func TestGet_CoalescesConcurrentRefreshes(t *testing.T) {
	f := newServiceFixture(t, testCatalog)
	f.fetcher.Release = make(chan struct{})

	const callers = 32
	var wg sync.WaitGroup
	ids := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap, err := f.svc.Get(context.Background())
			errs[i] = err
			if snap != nil {
				ids[i] = snap.ID
			}
		}(i)
	}

	require.Eventually(t, func() bool { return f.fetcher.Calls() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(f.fetcher.Release)
	wg.Wait()

	assert.Equal(t, 1, f.fetcher.Calls())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
}

func TestGet_CoalescesRefreshAtExpiry(t *testing.T) {
	f := newServiceFixture(t, testCatalog)

	first, err := f.svc.Get(context.Background())
	require.NoError(t, err)

	f.clock.Advance(testTTL)
	f.fetcher.Release = make(chan struct{})

	const callers = 32
	var wg sync.WaitGroup
	ids := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap, err := f.svc.Get(context.Background())
			errs[i] = err
			if snap != nil {
				ids[i] = snap.ID
			}
		}(i)
	}

	require.Eventually(t, func() bool { return f.fetcher.Calls() == 2 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(f.fetcher.Release)
	wg.Wait()

	assert.Equal(t, 2, f.fetcher.Calls())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.NotEqual(t, first.ID, ids[0])
}

func TestGet_ServesStaleSnapshotWhenRefreshFails(t *testing.T) {
	f := newServiceFixture(t, testCatalog)

	first, err := f.svc.Get(context.Background())
	require.NoError(t, err)

	f.clock.Advance(testTTL + time.Minute)
	f.fetcher.Set(nil, fetchFailure())

	stale, err := f.svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.ID, stale.ID)
	assert.Equal(t, first.CapturedAt, stale.CapturedAt)

	current, state := f.svc.Peek()
	assert.Equal(t, StateStale, state)
	assert.Equal(t, first.ID, current.ID)
	assert.Equal(t, 1, f.metrics.Refreshes[providers.RefreshFailure])
}

func TestGet_RecoversAfterFailure(t *testing.T) {
	f := newServiceFixture(t, testCatalog)

	first, err := f.svc.Get(context.Background())
	require.NoError(t, err)

	f.clock.Advance(testTTL)
	f.fetcher.Set(nil, fetchFailure())
	_, err = f.svc.Get(context.Background())
	require.NoError(t, err)

	f.fetcher.Set(testRecords, nil)
	fresh, err := f.svc.Get(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, fresh.ID)
	_, state := f.svc.Peek()
	assert.Equal(t, StateValid, state)
	assert.Equal(t, 3, f.fetcher.Calls())
}

func TestGet_NoSnapshotAndFailingUpstream(t *testing.T) {
	f := newServiceFixture(t, testCatalog)
	f.fetcher.Set(nil, fetchFailure())

	snap, err := f.svc.Get(context.Background())

	assert.Nil(t, snap)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSnapshot)
	var fetchErr *upstream.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, 503, fetchErr.StatusCode)

	_, state := f.svc.Peek()
	assert.Equal(t, StateEmpty, state)
}

func TestGet_EmptyCatalogSkipsUpstream(t *testing.T) {
	f := newServiceFixture(t, nil)

	snap, err := f.svc.Get(context.Background())

	assert.Nil(t, snap)
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
	assert.Equal(t, 0, f.fetcher.Calls())
	assert.Equal(t, 0, f.svc.CatalogSize())

	_, err = f.svc.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
	assert.Equal(t, 0, f.fetcher.Calls())
}

func TestGet_ZeroMatchesIsCached(t *testing.T) {
	f := newServiceFixture(t, []models.CatalogEntry{{ID: 99, Name: "Nowhere"}})

	snap, err := f.svc.Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Entries)

	_, err = f.svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.fetcher.Calls())
}

func TestGet_CallerCancellationDoesNotAbortRefresh(t *testing.T) {
	f := newServiceFixture(t, testCatalog)
	f.fetcher.Release = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Get(ctx)
		done <- err
	}()

	require.Eventually(t, func() bool { return f.fetcher.Calls() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(f.fetcher.Release)
	require.Eventually(t, func() bool {
		_, state := f.svc.Peek()
		return state == StateValid
	}, time.Second, time.Millisecond)

	snap, err := f.svc.Get(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Entries, 2)
	assert.Equal(t, 1, f.fetcher.Calls())
}

func TestClose_ReleasesWaiters(t *testing.T) {
	f := newServiceFixture(t, testCatalog)
	f.fetcher.Release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Get(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return f.fetcher.Calls() == 1 }, time.Second, time.Millisecond)
	f.svc.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrNoSnapshot)
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("waiter was not released by Close")
	}

	_, err := f.svc.Get(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, 1, f.fetcher.Calls())
}

func TestClose_KeepsStoredSnapshot(t *testing.T) {
	f := newServiceFixture(t, testCatalog)

	first, err := f.svc.Get(context.Background())
	require.NoError(t, err)

	f.svc.Close()
	f.clock.Advance(testTTL)

	snap, err := f.svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.ID, snap.ID)
}

func TestRefresh_FetchesEvenWhenValid(t *testing.T) {
	f := newServiceFixture(t, testCatalog)

	first, err := f.svc.Get(context.Background())
	require.NoError(t, err)

	second, err := f.svc.Refresh(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, f.fetcher.Calls())

	current, state := f.svc.Peek()
	assert.Equal(t, StateValid, state)
	assert.Equal(t, second.ID, current.ID)
}

func TestPeek_Empty(t *testing.T) {
	f := newServiceFixture(t, testCatalog)

	snap, state := f.svc.Peek()

	assert.Nil(t, snap)
	assert.Equal(t, StateEmpty, state)
	assert.Equal(t, 2, f.svc.CatalogSize())
}
