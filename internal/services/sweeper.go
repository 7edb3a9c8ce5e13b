package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Expirer purges records whose TTL elapsed before now.
type Expirer interface {
	Sweep(now time.Time) (int, error)
}

// KVSweeper periodically purges expired keys from the bolt and memory stores,
// which do not expire keys on their own.
type KVSweeper struct {
	store  Expirer
	logger *zap.Logger
	cron   *cron.Cron
	now    func() time.Time
	total  atomic.Int64
}

func NewKVSweeper(store Expirer, interval time.Duration, logger *zap.Logger) *KVSweeper {
	if interval < time.Second {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &KVSweeper{
		store:  store,
		logger: logger,
		cron:   cron.New(cron.WithSeconds()),
		now:    time.Now,
	}

	schedule := fmt.Sprintf("@every %ds", int(interval.Seconds()))
	_, _ = s.cron.AddFunc(schedule, func() {
		if _, err := s.Sweep(); err != nil {
			s.logger.Error("kv sweep failed", zap.Error(err))
		}
	})

	return s
}

// Start launches the cron scheduler.
func (s *KVSweeper) Start() {
	if s == nil || s.cron == nil {
		return
	}
	s.cron.Start()
	s.logger.Info("kv sweeper started")
}

// Stop waits for a running sweep or for ctx, whichever ends first.
func (s *KVSweeper) Stop(ctx context.Context) {
	if s == nil || s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	s.logger.Info("kv sweeper stopped", zap.Int64("purged_total", s.total.Load()))
}

// Sweep runs one purge synchronously.
func (s *KVSweeper) Sweep() (int, error) {
	if s == nil || s.store == nil {
		return 0, nil
	}
	removed, err := s.store.Sweep(s.now())
	if err != nil {
		return removed, err
	}
	if removed > 0 {
		s.total.Add(int64(removed))
		s.logger.Debug("expired keys purged", zap.Int("count", removed))
	}
	return removed, nil
}

// Purged returns the number of keys removed since start.
func (s *KVSweeper) Purged() int64 {
	return s.total.Load()
}
