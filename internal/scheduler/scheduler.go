package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/homepulse/housing-market-data/internal/market"
)

// Scheduler periodically force-refreshes stats for tracked locations so the
// dashboard's hot keys stay warm.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *market.Service
	locations []string
	interval  time.Duration
}

// New creates a new Scheduler.
func New(locations []string, interval time.Duration, service *market.Service) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		service:   service,
		locations: locations,
		interval:  interval,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.locations) == 0 {
		log.Println("scheduler: no tracked locations configured; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 30
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		log.Println("scheduler: running market refresh job")

		var wg sync.WaitGroup
		for _, loc := range s.locations {
			loc := loc
			wg.Add(1)
			go func() {
				defer wg.Done()

				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if _, err := s.service.GetStats(ctx, loc, true); err != nil {
					log.Printf("scheduler: refresh failed for %s: %v", loc, err)
				}
			}()
		}
		wg.Wait()
		log.Println("scheduler: completed market refresh job")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
