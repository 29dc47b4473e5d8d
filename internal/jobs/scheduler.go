package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// SessionStore purges sessions whose expiry has passed.
type SessionStore interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// UserStore clears lockouts whose window has elapsed.
type UserStore interface {
	ClearElapsedLockouts(ctx context.Context) (int64, error)
}

// LogStore prunes activity logs older than the retention window.
type LogStore interface {
	PruneOlderThan(ctx context.Context, cutoffDays int) (int64, error)
}

type Scheduler struct {
	cron          *cron.Cron
	sessions      SessionStore
	users         UserStore
	logs          LogStore
	retentionDays int
	log           zerolog.Logger
}

func NewScheduler(sessions SessionStore, users UserStore, logs LogStore, retention time.Duration, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	days := int(retention / (24 * time.Hour))
	if days <= 0 {
		days = 90
	}
	return &Scheduler{
		cron:          c,
		sessions:      sessions,
		users:         users,
		logs:          logs,
		retentionDays: days,
		log:           log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 0 */1 * * *", s.purgeSessions); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 */5 * * * *", s.clearLockouts); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 0 0 * * *", s.pruneLogs); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits for running jobs, bounded at five seconds.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) purgeSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.sessions.PurgeExpired(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("session purge failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("purged", n).Msg("expired sessions removed")
	}
}

func (s *Scheduler) clearLockouts() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.users.ClearElapsedLockouts(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("lockout sweep failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("cleared", n).Msg("elapsed lockouts cleared")
	}
}

func (s *Scheduler) pruneLogs() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	n, err := s.logs.PruneOlderThan(ctx, s.retentionDays)
	if err != nil {
		s.log.Error().Err(err).Msg("activity log prune failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("pruned", n).Msg("old activity logs removed")
	}
}
