package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/intake-go/internal/config"
	"github.com/vrsandeep/intake-go/internal/listview"
	"github.com/vrsandeep/intake-go/internal/models"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.API.URL = "http://relay:8080"
	cfg.Relay.URL = "ws://relay:8080"
	return cfg
}

func TestParseFlagsDefaults(t *testing.T) {
	o, err := parseFlags(testConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, "http://relay:8080", o.apiURL)
	assert.Equal(t, "ws://relay:8080", o.relayURL)
	assert.Equal(t, "all", o.watch)
	assert.Equal(t, time.Minute, o.refresh)
}

func TestParseFlags(t *testing.T) {
	o, err := parseFlags(testConfig(), []string{"-w", "reports", "-a", "app1", "-s", "reportId", "-s", "reportId", "--refresh", "0", "--once"})
	require.NoError(t, err)
	assert.Equal(t, "reports", o.watch)
	assert.Equal(t, "app1", o.application)
	assert.Equal(t, []string{"reportId", "reportId"}, o.sortKeys)
	assert.Zero(t, o.refresh)
	assert.True(t, o.once)

	_, err = parseFlags(testConfig(), []string{"--watch", "everything"})
	assert.Error(t, err)
}

func TestConfigureViewTogglesSort(t *testing.T) {
	var query string
	var current *listview.SortConfig
	requestSort := func(key string) listview.SortConfig {
		next := listview.RequestSort(current, key)
		current = &next
		return next
	}
	configureView(func(q string) { query = q }, requestSort, options{query: "gm", sortKeys: []string{"reportId", "reportId"}})

	assert.Equal(t, "gm", query)
	assert.Equal(t, listview.Descending, current.Direction)
}

func TestFileSummary(t *testing.T) {
	a := models.Applicant{FileInputs: map[string][]models.File{
		models.CategoryPaystubs:      {{Name: "stub.pdf", Status: models.AsyncStatus{Percent: 100}}},
		models.CategoryCreditReports: {{Name: "cr.pdf", Status: models.AsyncStatus{Percent: 40, Error: true}}},
	}}
	assert.Equal(t, "cr.pdf:error stub.pdf:100%", fileSummary(a))
	assert.Equal(t, "-", fileSummary(models.Applicant{}))
}

func relayStub(t *testing.T, listStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/version", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"version":"1.2.0"}`))
	})
	list := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(listStatus)
		if listStatus == http.StatusOK {
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(`{"error":"database unavailable"}`))
	}
	mux.HandleFunc("/api/applicants", list)
	mux.HandleFunc("/api/reports", list)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRunOnceExitCode(t *testing.T) {
	t.Run("All lists fetched", func(t *testing.T) {
		srv := relayStub(t, http.StatusOK)
		relay := "ws" + strings.TrimPrefix(srv.URL, "http")
		assert.Equal(t, 0, run([]string{"--once", "--api", srv.URL, "--relay", relay}))
	})

	t.Run("Fetch failure", func(t *testing.T) {
		srv := relayStub(t, http.StatusInternalServerError)
		relay := "ws" + strings.TrimPrefix(srv.URL, "http")
		assert.Equal(t, 1, run([]string{"--once", "--api", srv.URL, "--relay", relay}))
	})

	t.Run("Bad flag", func(t *testing.T) {
		assert.Equal(t, 2, run([]string{"--watch", "everything"}))
	})
}
