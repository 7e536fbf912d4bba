package snapshot

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultPruneSchedule runs retention once a minute.
const DefaultPruneSchedule = "@every 1m"

// Pruner applies the store's retention policy on a cron schedule, off the
// request path.
type Pruner struct {
	store  *Store
	cron   *cron.Cron
	logger *zap.Logger
}

// NewPruner validates schedule (standard five-field cron or a descriptor
// such as "@every 5m") and registers the retention job.
func NewPruner(store *Store, schedule string, logger *zap.Logger) (*Pruner, error) {
	if schedule == "" {
		schedule = DefaultPruneSchedule
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pruner{
		store:  store,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: logger,
	}
	if _, err := p.cron.AddFunc(schedule, p.run); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}
	return p, nil
}

// Start begins running the schedule in the background.
func (p *Pruner) Start() {
	p.logger.Info("snapshot pruner started", zap.String("dir", p.store.Dir()))
	p.cron.Start()
}

// Stop stops the schedule and waits for a running prune, or for ctx.
func (p *Pruner) Stop(ctx context.Context) {
	done := p.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		p.logger.Warn("snapshot pruner did not stop in time")
	}
}

func (p *Pruner) run() {
	removed, err := p.store.Prune()
	if err != nil {
		p.logger.Error("pruning snapshots", zap.Error(err))
	}
	if removed > 0 {
		p.logger.Debug("pruned snapshots", zap.Int("removed", removed))
	}
}
