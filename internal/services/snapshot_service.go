package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"

	"pasosd/internal/catalog"
	"pasosd/internal/models"
	"pasosd/internal/providers"
	"pasosd/internal/structures"
	"pasosd/internal/upstream"
)

var (
	ErrCatalogUnavailable = errors.New("local catalog unavailable")
	ErrNoSnapshot         = errors.New("no snapshot available")
	ErrClosed             = errors.New("snapshot service closed")
)

type State string

const (
	StateEmpty State = "empty"
	StateValid State = "valid"
	StateStale State = "stale"
)

const refreshKey = "snapshot"

type SnapshotServiceInterface interface {
	Get(ctx context.Context) (*models.Snapshot, error)
	Refresh(ctx context.Context) (*models.Snapshot, error)
	Peek() (*models.Snapshot, State)
	CatalogSize() int
	Close()
}

// SnapshotService owns the published snapshot. Reads within the TTL are
// served from memory; once it expires, concurrent readers share a single
// upstream refresh. A failed refresh keeps the previous snapshot.
type SnapshotService struct {
	catalog    catalog.StoreInterface
	fetcher    upstream.Fetcher
	aggregator AggregatorInterface
	logger     providers.Logger
	metrics    providers.MetricsProviderInterface
	ttl        time.Duration
	now        func() time.Time

	current atomic.Pointer[models.Snapshot]
	group   singleflight.Group

	// refreshes run under ctx rather than the first caller's context, so a
	// departing client never aborts a fetch other clients are waiting on
	ctx    context.Context
	cancel context.CancelFunc
}

func NewSnapshotService(conf *structures.Config, store catalog.StoreInterface, fetcher upstream.Fetcher, aggregator AggregatorInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) SnapshotServiceInterface {
	ctx, cancel := context.WithCancel(context.Background())
	return &SnapshotService{
		catalog:    store,
		fetcher:    fetcher,
		aggregator: aggregator,
		logger:     logger,
		metrics:    metrics,
		ttl:        conf.Snapshot.TTL,
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Get returns the current snapshot, refreshing it first when it is missing
// or older than the TTL. If the refresh fails, a previous snapshot is
// returned without error; with none available the error wraps ErrNoSnapshot
// and the fetch failure.
func (s *SnapshotService) Get(ctx context.Context) (*models.Snapshot, error) {
	if s.catalog.Len() == 0 {
		return nil, ErrCatalogUnavailable
	}
	if current := s.current.Load(); current != nil && !current.Expired(s.now(), s.ttl) {
		return current, nil
	}
	return s.wait(ctx, false)
}

// Refresh fetches a new snapshot even if the current one is still valid.
// It joins a refresh already in flight instead of starting another.
func (s *SnapshotService) Refresh(ctx context.Context) (*models.Snapshot, error) {
	if s.catalog.Len() == 0 {
		return nil, ErrCatalogUnavailable
	}
	return s.wait(ctx, true)
}

func (s *SnapshotService) wait(ctx context.Context, force bool) (*models.Snapshot, error) {
	ch := s.group.DoChan(refreshKey, func() (interface{}, error) {
		return s.refresh(force)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			if stale := s.current.Load(); stale != nil {
				return stale, nil
			}
			return nil, fmt.Errorf("%w: %w", ErrNoSnapshot, res.Err)
		}
		return res.Val.(*models.Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *SnapshotService) refresh(force bool) (*models.Snapshot, error) {
	// a flight that finished just before this one may already have stored
	// a fresh snapshot
	if current := s.current.Load(); !force && current != nil && !current.Expired(s.now(), s.ttl) {
		return current, nil
	}
	if s.ctx.Err() != nil {
		return nil, ErrClosed
	}

	records, err := s.fetcher.Fetch(s.ctx)
	if err != nil {
		s.metrics.IncRefreshes(providers.RefreshFailure)
		if s.ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrClosed, err)
		}
		if stale := s.current.Load(); stale != nil {
			s.logger.Warnf(providers.TypeApp, "Refresh failed, serving snapshot from %s: %s", stale.CapturedAt.Format(time.RFC3339), err)
		}
		return nil, err
	}

	snapshot := s.aggregator.Aggregate(s.catalog.Entries(), records, s.now())
	s.current.Store(snapshot)

	s.metrics.IncRefreshes(providers.RefreshSuccess)
	s.metrics.SetSnapshotEntries(len(snapshot.Entries))
	s.logger.Infof(providers.TypeApp, "Snapshot %s refreshed with %d crossings", snapshot.ID, len(snapshot.Entries))

	return snapshot, nil
}

// Peek returns the stored snapshot without triggering a refresh.
func (s *SnapshotService) Peek() (*models.Snapshot, State) {
	current := s.current.Load()
	switch {
	case current == nil:
		return nil, StateEmpty
	case current.Expired(s.now(), s.ttl):
		return current, StateStale
	default:
		return current, StateValid
	}
}

func (s *SnapshotService) CatalogSize() int {
	return s.catalog.Len()
}

// Close cancels any refresh in flight; its waiters receive the failure
// outcome. Later refreshes fail with ErrClosed.
func (s *SnapshotService) Close() {
	s.cancel()
}
