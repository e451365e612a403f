package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"growthline/internal/engine"
)

// Scheduler drives the periodic maintenance of a running session: daily
// and weekly task resets plus the expired inventory sweep.
type Scheduler struct {
	svc   *engine.Service
	sched gocron.Scheduler
}

// New builds the scheduler; Start arms the jobs.
func New(svc *engine.Service) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Scheduler{svc: svc, sched: sched}, nil
}

// Start arms the maintenance jobs and runs the resets once right away,
// so a session opened after midnight still rolls over.
func (s *Scheduler) Start(ctx context.Context, cleanupInterval time.Duration) error {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Hour
	}

	// Daily reset shortly after midnight. ResetDaily guards itself
	// against same-day reruns, so the extra immediate run is safe.
	_, err := s.sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 5, 0))),
		gocron.NewTask(func() {
			if err := s.svc.Tasks.ResetDaily(ctx); err != nil {
				log.Printf("scheduler: daily reset: %v", err)
			}
			if err := s.svc.Tasks.ResetWeekly(ctx); err != nil {
				log.Printf("scheduler: weekly reset: %v", err)
			}
		}),
	)
	if err != nil {
		return err
	}

	_, err = s.sched.NewJob(
		gocron.DurationJob(cleanupInterval),
		gocron.NewTask(func() {
			n, err := s.svc.Inventory.CleanupExpiredItems(ctx)
			if err != nil {
				log.Printf("scheduler: inventory sweep: %v", err)
				return
			}
			if n > 0 {
				log.Printf("scheduler: expired %d inventory rows", n)
			}
		}),
	)
	if err != nil {
		return err
	}

	s.sched.Start()

	if err := s.svc.Tasks.ResetDaily(ctx); err != nil {
		return err
	}
	if err := s.svc.Tasks.ResetWeekly(ctx); err != nil {
		return err
	}
	return nil
}

func (s *Scheduler) Stop() error {
	return s.sched.Shutdown()
}
