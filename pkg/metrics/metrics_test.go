package metrics

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/latoulicious/Baguetta/pkg/playback"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_CountsLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	track := playback.Track{Locator: "a"}
	c.SessionStarted("g1")
	c.SessionStarted("g2")
	c.FetchAttemptFailed("g1", "a", 1, errors.New("boom"))
	c.TrackStarted("g1", track)
	c.TrackFinished("g1", track, false)
	c.TrackStarted("g1", track)
	c.TrackFinished("g1", track, true)
	c.TrackFailed("g2", track, errors.New("boom"))
	c.SessionClosed("g1")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.sessionsActive))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.sessionsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.tracksStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tracksEnded.WithLabelValues("finished")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tracksEnded.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tracksEnded.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fetchFailures))
}

func TestNewCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)

	_, err = NewCollector(reg)
	assert.Error(t, err)
}

type fixedSessions int

func (f fixedSessions) Len() int { return int(f) }

func TestServer_Routes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)
	c.SessionStarted("g1")

	srv := httptest.NewServer(NewServer(":0", reg, fixedSessions(3), zerolog.Nop()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health struct {
		Status   string `json:"status"`
		Sessions int    `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 3, health.Sessions)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "baguetta_sessions_active 1")

	resp, err = http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
