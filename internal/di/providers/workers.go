package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/askhub/askhub-server/internal/config"
	"github.com/askhub/askhub-server/internal/logger"
	"github.com/askhub/askhub-server/internal/service"
)

// TagSyncJob recomputes tag counts on an interval.
type TagSyncJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *TagSyncJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideTagSyncJob provides the periodic tag sync. A zero interval leaves
// it off; admins can still sync on demand.
func ProvideTagSyncJob(i do.Injector) (*TagSyncJob, error) {
	cfg := do.MustInvoke[*config.Config](i)
	tags := do.MustInvoke[*service.TagService](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())
	interval := cfg.Jobs.TagSyncInterval
	if interval == 0 {
		log.Info("Tag sync job disabled")
		return &TagSyncJob{cancel: cancel}, nil
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				// The service logs each run's report.
				if _, err := tags.Sync(ctx); err != nil && ctx.Err() == nil {
					log.Warn("Tag sync failed", "error", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Tag sync job started", "interval", interval)

	return &TagSyncJob{cancel: cancel}, nil
}
