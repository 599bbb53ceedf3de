package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler fires the periodic catalog sync and, when a session TTL is set,
// the idle-session sweep.
type Scheduler struct {
	cron      *cron.Cron
	syncer    *Syncer
	syncSpec  string
	chat      *ChatService
	sweepSpec string
	ttl       time.Duration
}

func NewScheduler(syncer *Syncer, syncSpec string) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		syncer:   syncer,
		syncSpec: syncSpec,
	}
}

// WithSessionSweep drops chat sessions idle for longer than ttl on every
// tick of spec. A non-positive ttl disables the sweep.
func (s *Scheduler) WithSessionSweep(chat *ChatService, spec string, ttl time.Duration) *Scheduler {
	s.chat = chat
	s.sweepSpec = spec
	s.ttl = ttl
	return s
}

func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.syncSpec, func() {
		if _, err := s.syncer.Run(context.Background()); err != nil {
			log.Printf("scheduler: scheduled sync failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", s.syncSpec, err)
	}

	if s.chat != nil && s.ttl > 0 {
		_, err := s.cron.AddFunc(s.sweepSpec, func() {
			if n := s.chat.SweepIdle(time.Now(), s.ttl); n > 0 {
				log.Printf("scheduler: dropped %d idle sessions", n)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid session sweep schedule %q: %w", s.sweepSpec, err)
		}
	}

	s.cron.Start()
	log.Printf("Sync scheduler started (%s)", s.syncSpec)
	return nil
}

// Stop halts the cron ticker and waits for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Entries reports how many jobs are registered.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
