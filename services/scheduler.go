// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartMaintenanceScheduler runs the background housekeeping: a periodic
// standings recompute (submissions already recompute inline, this catches
// drift) and deactivation of event dates whose calendar day has passed.
func (s *AttendanceService) StartMaintenanceScheduler(dates *EventDateService) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every 15 minutes: recompute tiers over the whole ledger
	_, _ = sched.NewJob(
		gocron.DurationJob(15*time.Minute),
		gocron.NewTask(func() {
			changed, err := s.Engine.Recompute(context.Background())
			if err != nil {
				log.Printf("[Scheduler] Recompute failed: %v", err)
				return
			}
			if changed > 0 {
				log.Printf("[Scheduler] Recompute moved %d player(s) between tiers", changed)
			}
		}),
	)

	// Every hour: deactivate past event dates
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			n, err := dates.DeactivatePastDates()
			if err != nil {
				log.Printf("[Scheduler] Failed to deactivate past dates: %v", err)
				return
			}
			if n > 0 {
				log.Printf("[Scheduler] Deactivated %d past event date(s)", n)
			}
		}),
	)
}
