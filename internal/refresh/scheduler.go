// Package refresh keeps the snapshot warm in the background so that
// requests rarely pay for an upstream round trip.
package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/roylee0704/gron"

	"pasosd/internal/providers"
	"pasosd/internal/refresh/interfaces"
	"pasosd/internal/services"
	"pasosd/internal/structures"
)

type Scheduler struct {
	config  *structures.Config
	logger  providers.Logger
	service services.SnapshotServiceInterface
	cron    *gron.Cron
	opsMu   sync.Mutex
}

// Init starts the warm-up job. A zero warm interval leaves refreshes to
// incoming requests.
func (s *Scheduler) Init() {
	interval := s.config.Snapshot.WarmInterval
	if interval <= 0 {
		s.logger.Infof(providers.TypeApp, "Snapshot warm-up disabled")
		return
	}

	s.cron = gron.New()
	s.cron.AddFunc(gron.Every(interval), func() {
		if err := s.Warm(); err != nil {
			s.logger.Errorf(providers.TypeApp, "Snapshot warm-up failed: %s", err)
		}
	})
	s.cron.Start()

	s.logger.Infof(providers.TypeApp, "Snapshot warm-up every %s", interval)
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Warm forces one refresh. A failure leaves the stored snapshot in place.
func (s *Scheduler) Warm() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Upstream.Timeout+time.Second)
	defer cancel()

	snapshot, err := s.service.Refresh(ctx)
	if err != nil {
		return err
	}
	s.logger.Debugf(providers.TypeApp, "Snapshot %s warm (%d crossings)", snapshot.ID, len(snapshot.Entries))
	return nil
}

func NewScheduler(config *structures.Config, logger providers.Logger, service services.SnapshotServiceInterface) interfaces.SchedulerInterface {
	return &Scheduler{
		config:  config,
		logger:  logger,
		service: service,
	}
}
