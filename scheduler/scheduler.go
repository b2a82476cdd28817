package scheduler

import (
	"log"
	"time"

	"go_scanner_project/services/prefilter"
	"go_scanner_project/services/scanner"

	"github.com/go-co-op/gocron"
)

// Scheduler manages scheduled maintenance jobs
type Scheduler struct {
	cron         *gocron.Scheduler
	prefilter    *prefilter.VolumeFilter
	scanner      *scanner.Service
	jobRetention time.Duration
}

// NewScheduler creates a new scheduler instance
func NewScheduler(vf *prefilter.VolumeFilter, svc *scanner.Service, jobRetention time.Duration) *Scheduler {
	return &Scheduler{
		cron:         gocron.NewScheduler(time.UTC),
		prefilter:    vf,
		scanner:      svc,
		jobRetention: jobRetention,
	}
}

// Start starts all scheduled jobs
func (s *Scheduler) Start() {
	log.Println("Starting scheduler...")

	// Purge expired volume cache entries hourly
	s.cron.Every(1).Hour().Do(func() {
		s.purgeVolumeCache()
	})

	// Evict old terminal scan jobs daily at 01:00
	s.cron.Every(1).Day().At("01:00").Do(func() {
		s.evictTerminalScans()
	})

	s.cron.StartAsync()
	log.Println("Scheduler started successfully")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Scheduler stopped")
}

func (s *Scheduler) purgeVolumeCache() {
	if purged := s.prefilter.PurgeExpired(); purged > 0 {
		log.Printf("Purged %d expired volume cache entries", purged)
	}
}

func (s *Scheduler) evictTerminalScans() {
	if evicted := s.scanner.EvictTerminal(s.jobRetention); evicted > 0 {
		log.Printf("Evicted %d finished scan jobs older than %s", evicted, s.jobRetention)
	}
}
