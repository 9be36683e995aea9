// Package worker runs periodic maintenance jobs.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	q "github.com/gecilind/University-Management-System/internal/queue"
)

// ExpiredTokenDeleter removes refresh tokens that expired before now.
type ExpiredTokenDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// EventPublisher is the subset of the session event publisher the sweeper uses.
type EventPublisher interface {
	Publish(ctx context.Context, ev q.SessionEvent) error
}

// Sweeper periodically deletes expired refresh tokens. Renewal already
// deletes an expired token when it sees one; the sweeper catches tokens
// that are never presented again.
type Sweeper struct {
	Tokens  ExpiredTokenDeleter
	Events  EventPublisher
	Log     *logrus.Logger
	Timeout time.Duration

	Now func() time.Time
}

func NewSweeper(tokens ExpiredTokenDeleter, events EventPublisher, log *logrus.Logger) *Sweeper {
	return &Sweeper{Tokens: tokens, Events: events, Log: log, Timeout: 30 * time.Second}
}

// Start schedules the sweep with a standard cron spec or descriptor such
// as "@every 1h". The returned stop function waits for a running sweep.
func (s *Sweeper) Start(spec string) (stop func(), err error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("schedule sweeper %q: %w", spec, err)
	}
	c.Start()
	s.Log.WithField("schedule", spec).Info("refresh token sweeper started")
	return func() {
		<-c.Stop().Done()
	}, nil
}

// RunOnce performs a single sweep and returns the number of deleted rows.
func (s *Sweeper) RunOnce(ctx context.Context) int64 {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	n, err := s.Tokens.DeleteExpired(ctx, now)
	if err != nil {
		s.Log.WithError(err).Error("refresh token sweep failed")
		return 0
	}
	s.Log.WithField("deleted", n).Info("refresh token sweep finished")
	if n > 0 && s.Events != nil {
		ev := q.SessionEvent{
			ID:         uuid.NewString(),
			Type:       q.EventTokensSwept,
			Count:      n,
			OccurredAt: now.UTC().Format(time.RFC3339),
		}
		if err := s.Events.Publish(ctx, ev); err != nil {
			s.Log.WithError(err).Warn("publish sweep event failed")
		}
	}
	return n
}

