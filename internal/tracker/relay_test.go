package tracker_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/intake-go/internal/channel"
	"github.com/vrsandeep/intake-go/internal/client"
	"github.com/vrsandeep/intake-go/internal/models"
	"github.com/vrsandeep/intake-go/internal/testutil"
	"github.com/vrsandeep/intake-go/internal/tracker"
)

func post(t *testing.T, url, body string) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Less(t, resp.StatusCode, 300)
}

func TestTrackersAgainstRelay(t *testing.T) {
	server, _, app := testutil.SetupTestServer(t)
	fx := testutil.SeedFixture(t, server.Store())
	srv := httptest.NewServer(server.Router())
	defer srv.Close()

	api := client.New(srv.URL, nil)
	require.NoError(t, api.CheckVersion(context.Background(), "^1.0"))

	manager := channel.NewManager(channel.Options{
		BaseURL:        "ws" + strings.TrimPrefix(srv.URL, "http"),
		ReconnectDelay: 20 * time.Millisecond,
	})
	defer manager.Shutdown()
	deps := tracker.Deps{Subscriber: manager, Debounce: 10 * time.Millisecond}

	applicants := tracker.NewApplicants(tracker.FetchApplicants(api, client.Filter{ApplicationID: fx.Application.ID}), deps)
	defer applicants.Close()
	require.NoError(t, applicants.Refresh(context.Background()))

	require.Eventually(t, func() bool {
		return app.WsHub().Subscribers(models.ChannelFile, fx.Applicant.ID) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{fx.Applicant.ID}, applicants.Subscriptions())

	post(t, srv.URL+"/api/files/"+fx.File.ID+"/status", `{"percent":40}`)
	require.Eventually(t, func() bool {
		return applicants.Items()[0].FileInputs[models.CategoryCreditReports][0].Status.Percent == 40
	}, 2*time.Second, 10*time.Millisecond)

	post(t, srv.URL+"/api/files/"+fx.File.ID+"/status", `{"percent":100}`)
	require.Eventually(t, func() bool {
		return len(applicants.Subscriptions()) == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return app.WsHub().Subscribers(models.ChannelFile, "") == 0
	}, 2*time.Second, 10*time.Millisecond)

	inbox := tracker.NewInbox("jane", tracker.FetchNotifications(api.ListNotifications, "jane"), deps, nil)
	require.NoError(t, inbox.Open(context.Background()))
	defer inbox.Close()
	require.Eventually(t, func() bool {
		return app.WsHub().Subscribers(models.ChannelNotification, "jane") == 1
	}, 2*time.Second, 10*time.Millisecond)

	reports := tracker.NewReports(tracker.FetchReports(api, client.Filter{ApplicationID: fx.Application.ID}), deps)
	defer reports.Close()
	require.NoError(t, reports.Refresh(context.Background()))
	require.Eventually(t, func() bool {
		return app.WsHub().Subscribers(models.ChannelReport, fx.Application.ID) == 1
	}, 2*time.Second, 10*time.Millisecond)

	post(t, srv.URL+"/api/reports/"+fx.Report.ID+"/status", `{"percent":100,"text":"Done"}`)
	require.Eventually(t, func() bool {
		return reports.Items()[0].StatusText == "Done"
	}, 2*time.Second, 10*time.Millisecond)
	// Complete but not validated: still subscribed.
	assert.Equal(t, []string{fx.Application.ID}, reports.Subscriptions())
	assert.Eventually(t, func() bool { return inbox.Unread() == 1 }, 2*time.Second, 10*time.Millisecond)

	post(t, srv.URL+"/api/reports/"+fx.Report.ID+"/validate", `{}`)
	require.Eventually(t, func() bool {
		return len(reports.Subscriptions()) == 0 && reports.Items()[0].Status.Validated
	}, 2*time.Second, 10*time.Millisecond)
}

func TestApplicantResubscribesAfterNormalClose(t *testing.T) {
	var handshakes atomic.Int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		if handshakes.Add(1) == 1 {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "restarting")
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	manager := channel.NewManager(channel.Options{
		BaseURL:        "ws" + strings.TrimPrefix(srv.URL, "http"),
		ReconnectDelay: 10 * time.Millisecond,
	})
	defer manager.Shutdown()

	var percent atomic.Int32
	percent.Store(40)
	fetch := func(context.Context) ([]models.Applicant, error) {
		return []models.Applicant{{
			ID: "a1",
			FileInputs: map[string][]models.File{
				models.CategoryCreditReports: {{ID: "f1", Status: models.AsyncStatus{Percent: float64(percent.Load())}}},
			},
		}}, nil
	}
	applicants := tracker.NewApplicants(fetch, tracker.Deps{Subscriber: manager, Debounce: 10 * time.Millisecond})
	defer applicants.Close()

	require.NoError(t, applicants.Refresh(context.Background()))
	require.Eventually(t, func() bool {
		return handshakes.Load() == 1 && manager.Active() == 0
	}, 2*time.Second, 10*time.Millisecond, "relay closes the first socket normally")
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, handshakes.Load(), "a normal close is not redialed by the manager")

	percent.Store(50)
	require.NoError(t, applicants.Refresh(context.Background()))
	require.Eventually(t, func() bool {
		return handshakes.Load() == 2 && manager.Active() == 1
	}, 2*time.Second, 10*time.Millisecond, "the next sync subscribes the pending applicant again")
	assert.Equal(t, []string{"a1"}, applicants.Subscriptions())
}
