package app

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper ends overdue active sessions on a fixed schedule, so a session
// whose host walked away still closes once its duration elapses.
type Sweeper struct {
	log  *zap.Logger
	live *LiveService
	cron *cron.Cron
}

func NewSweeper(live *LiveService, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{log: log, live: live, cron: cron.New()}
}

// Start schedules the expiry sweep every minute.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc("@every 1m", func() {
		if expired := s.live.ExpireOverdue(time.Now().UTC()); expired > 0 {
			s.log.Info("expired overdue sessions", zap.Int("count", expired))
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
