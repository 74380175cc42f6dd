package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ExpiredPurger drops pending registrations whose code expired before the cutoff.
type ExpiredPurger interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type Config struct {
	PollInterval time.Duration
	// Grace keeps expired rows around so verify can still answer "expired".
	Grace time.Duration
}

// Sweeper periodically purges stale pending registrations.
type Sweeper struct {
	cfg   Config
	store ExpiredPurger
	log   *slog.Logger
	now   func() time.Time

	readyMu  sync.RWMutex
	ready    bool
	failures int
}

func NewSweeper(cfg Config, store ExpiredPurger, log *slog.Logger) *Sweeper {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Minute
	}
	if cfg.Grace <= 0 {
		cfg.Grace = 24 * time.Hour
	}
	return &Sweeper{cfg: cfg, store: store, log: log, now: time.Now}
}

func (s *Sweeper) Run(ctx context.Context) {
	s.setReady(true)
	defer s.setReady(false)

	wait := s.cfg.PollInterval
	for {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("sweeper received shutdown signal")
			return
		case <-timer.C:
		}

		if _, err := s.SweepOnce(ctx); err != nil {
			s.failures++
			wait = ExponentialBackoff(s.failures - 1)
			if wait > s.cfg.PollInterval {
				wait = s.cfg.PollInterval
			}
			s.log.Error("sweep failed", "err", err, "attempt", s.failures, "retry_in", wait.String())
			continue
		}
		s.failures = 0
		wait = s.cfg.PollInterval
	}
}

// SweepOnce runs a single purge pass.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	cctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := s.store.DeleteExpired(cctx, s.now().Add(-s.cfg.Grace))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("purged expired pending registrations", "count", n)
	}
	return n, nil
}

func (s *Sweeper) Ready() bool {
	s.readyMu.RLock()
	defer s.readyMu.RUnlock()
	return s.ready
}

func (s *Sweeper) setReady(v bool) {
	s.readyMu.Lock()
	s.ready = v
	s.readyMu.Unlock()
}
