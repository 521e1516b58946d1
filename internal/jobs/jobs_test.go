package jobs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vrsandeep/intake-go/internal/jobs"
	"github.com/vrsandeep/intake-go/internal/testutil"
)

func TestRegisterAll(t *testing.T) {
	app := testutil.SetupTestApp(t)

	var ids []string
	for _, s := range app.JobManager().GetStatus() {
		ids = append(ids, s.ID)
		assert.Equal(t, "idle", s.Status)
	}
	assert.Equal(t, []string{jobs.NotificationPruneJob, jobs.StatusResyncJob}, ids)
}

func TestStartJobsSchedulesEveryJob(t *testing.T) {
	app := testutil.SetupTestApp(t)
	app.Config().Jobs.Interval = 5

	s := jobs.StartJobs(app)
	defer s.Stop()

	assert.True(t, s.IsRunning())
	assert.Len(t, s.Jobs(), 2)
}
