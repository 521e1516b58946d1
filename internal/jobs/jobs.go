package jobs

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

const (
	NotificationPruneJob = "notification-prune"
	StatusResyncJob      = "status-resync"
)

// RegisterAll registers every background job with jm.
func RegisterAll(jm *JobManager) {
	jm.Register(NotificationPruneJob, "Prune read notifications", PruneNotifications)
	jm.Register(StatusResyncJob, "Republish pending statuses", ResyncStatuses)
}

// StartJobs starts the background job scheduler. The returned scheduler
// is already running.
func StartJobs(app JobContext) *gocron.Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	interval := app.Config().Jobs.Interval
	if interval == 0 {
		log.Println("Jobs interval is 0, scheduled jobs are disabled.")
		return s
	}
	for _, jobID := range []string{StatusResyncJob, NotificationPruneJob} {
		schedule(s, app, jobID, interval)
	}

	log.Println("Starting background job scheduler...")
	s.StartAsync()
	return s
}

func schedule(s *gocron.Scheduler, app JobContext, jobID string, interval int) {
	log.Printf("Scheduling job: '%s' to run every %d minutes.", jobID, interval)

	_, err := s.Every(interval).Minutes().WaitForSchedule().Do(func() {
		log.Println("Scheduler is triggering job:", jobID)
		// Submit the job to the manager instead of running it directly.
		// This prevents conflicts with manually triggered jobs.
		if err := app.JobManager().RunJob(jobID, app); err != nil {
			log.Printf("Scheduled job '%s' could not start: %v", jobID, err)
		}
	})
	if err != nil {
		log.Printf("Error scheduling '%s' job: %v", jobID, err)
	}
}
