package scheduler

import (
	"context"
	"time"

	"wicked-backend/internal/events"

	"github.com/robfig/cron"
	"github.com/rs/zerolog/log"
)

// Runner is the engine entry point the scheduler drives.
type Runner interface {
	Run(ctx context.Context) error
}

// Scheduler ticks the notification engine every five minutes and nudges it
// shortly after invoice/settings events. Nudges are fire-and-forget: they
// never block the publisher and overlapping runs fall out at the engine's
// run lock.
type Scheduler struct {
	Engine Runner
	Bus    *events.Manager

	cron *cron.Cron
	stop chan struct{}
}

// Event-driven nudge delays. Each event type gets its own offset so bursts
// of edits coalesce into one engine run.
const (
	createdDelay  = 30 * time.Second
	statusDelay   = 60 * time.Second
	settingsDelay = 30 * time.Second
)

// Start registers the periodic tick and event listeners. Call Stop to shut
// down.
func (s *Scheduler) Start() error {
	s.cron = cron.New()
	if err := s.cron.AddFunc("@every 5m", s.tick); err != nil {
		return err
	}
	s.cron.Start()

	s.stop = make(chan struct{})
	created := make(chan interface{}, 16)
	status := make(chan interface{}, 16)
	saved := make(chan interface{}, 16)
	s.Bus.Register(events.TypeInvoiceCreated, created)
	s.Bus.Register(events.TypeInvoiceStatusChanged, status)
	s.Bus.Register(events.TypeSettingsSaved, saved)

	go func() {
		for {
			select {
			case data := <-created:
				// New invoices sit in temp until sent; no rule can match yet.
				if e, ok := data.(events.InvoiceCreated); ok && e.Status != "temp" {
					s.Nudge(createdDelay)
				}
			case <-status:
				s.Nudge(statusDelay)
			case <-saved:
				s.Nudge(settingsDelay)
			case <-s.stop:
				return
			}
		}
	}()
	return nil
}

// Nudge schedules a one-shot engine run after delay.
func (s *Scheduler) Nudge(delay time.Duration) {
	time.AfterFunc(delay, s.tick)
}

// Stop halts the periodic tick and event handling.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.stop != nil {
		close(s.stop)
	}
}

func (s *Scheduler) tick() {
	if err := s.Engine.Run(context.Background()); err != nil {
		log.Error().Err(err).Msg("scheduler: engine run failed")
	}
}
