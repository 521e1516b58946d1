package jobs_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/intake-go/internal/config"
	"github.com/vrsandeep/intake-go/internal/jobs"
	"github.com/vrsandeep/intake-go/internal/models"
	"github.com/vrsandeep/intake-go/internal/store"
	"github.com/vrsandeep/intake-go/internal/testutil"
	"github.com/vrsandeep/intake-go/internal/websocket"
)

func TestPruneNotifications(t *testing.T) {
	db := testutil.SetupTestDB(t)
	st := store.New(db)
	n, err := st.CreateNotification("u1", "old", "", "")
	require.NoError(t, err)
	require.NoError(t, st.MarkNotificationRead(n.ID))
	_, err = db.Exec("UPDATE notifications SET created_at = ? WHERE id = ?", time.Now().UTC().AddDate(0, 0, -40), n.ID)
	require.NoError(t, err)
	_, err = st.CreateNotification("u1", "fresh", "", "")
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Jobs.NotificationRetentionDays = 30
	ctx := &fakeJobContext{db: db, cfg: cfg}

	require.NoError(t, jobs.PruneNotifications(ctx))
	left, err := st.ListNotifications("u1", false)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "fresh", left[0].Message)
}

func TestResyncStatuses(t *testing.T) {
	db := testutil.SetupTestDB(t)
	st := store.New(db)
	app, err := st.CreateApplication("GM-1", "org1", "jane")
	require.NoError(t, err)
	applicant, err := st.CreateApplicant(app.ID, "GM-1-A", "")
	require.NoError(t, err)
	file, err := st.AddFile(applicant.ID, models.CategoryCreditReports, "cr.pdf", "", "")
	require.NoError(t, err)
	pct := 40.0
	_, _, err = st.UpdateFileStatus(file.ID, models.StatusPatch{Percent: &pct})
	require.NoError(t, err)

	hub := websocket.NewHub()
	go hub.Run()
	srv := httptest.NewServer(hub.ServeWs(models.ChannelFile))
	defer srv.Close()

	conn, _, err := gws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.WriteJSON(models.Handshake{ApplicantID: applicant.ID}))
	require.Eventually(t, func() bool {
		return hub.Subscribers(models.ChannelFile, applicant.ID) == 1
	}, time.Second, 5*time.Millisecond)

	ctx := &fakeJobContext{db: db, cfg: &config.Config{}, ws: hub}
	require.NoError(t, jobs.ResyncStatuses(ctx))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg models.FileStatusMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, file.ID, msg.FileID)
	require.NotNil(t, msg.Status.Percent)
	assert.Equal(t, 40.0, *msg.Status.Percent)
}

func TestStartJobsDisabled(t *testing.T) {
	ctx := newFakeContext()
	s := jobs.StartJobs(ctx)
	assert.False(t, s.IsRunning())
}
