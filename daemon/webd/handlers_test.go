package webd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rotblauer/tripd/app"
	"github.com/rotblauer/tripd/geo/trip"
	"github.com/rotblauer/tripd/settings"
	"github.com/rotblauer/tripd/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func do(t *testing.T, h http.Handler, method, target, body string, header ...string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "http://tripd.local"+target, rd)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Result()
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return b
}

func TestWebDaemon_ping(t *testing.T) {
	req := httptest.NewRequest("GET", "http://tripd.local/ping", nil)
	w := httptest.NewRecorder()
	pingPong(w, req)
	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 {
		t.Fatalf("status code not 200")
	}
	if string(body) != "pong" {
		t.Errorf("body is not pong: %s", string(body))
	}
}

func TestWebDaemon_statusReport(t *testing.T) {
	d := newTestWebDaemon(t, "")
	resp := do(t, d.NewRouter(), http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := webDaemonStatus{}
	require.NoError(t, json.Unmarshal(readBody(t, resp), &status))
	assert.NotEmpty(t, status.Uptime)
	assert.Equal(t, "idle", status.TripState)
}

func TestWebDaemon_LocationAndSnapshot(t *testing.T) {
	d := newTestWebDaemon(t, "")
	router := d.NewRouter()

	resp := do(t, router, http.MethodPost, "/location", `{"speed":10,"lat":51.5074,"lon":-0.1278}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		return d.Session.Engine.State() == trip.Active
	}, time.Second, 5*time.Millisecond)

	resp = do(t, router, http.MethodGet, "/snapshot", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	body := readBody(t, resp)
	assert.Equal(t, "22.4", gjson.GetBytes(body, "speed").String())
	assert.Equal(t, "Max: 22.4 mph", gjson.GetBytes(body, "max_speed").String())
	assert.Equal(t, "active", gjson.GetBytes(body, "state").String())
}

func TestWebDaemon_BadBodies(t *testing.T) {
	d := newTestWebDaemon(t, "")
	router := d.NewRouter()
	for _, c := range []struct {
		path, body string
	}{
		{"/location", `{"speed":10}`},
		{"/location", `not json`},
		{"/heading", `{}`},
		{"/satellites", `[`},
	} {
		resp := do(t, router, http.MethodPost, c.path, c.body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "%s %s", c.path, c.body)
	}
	assert.Equal(t, State(d), trip.Idle)
}

// State reads the engine state, for brevity.
func State(d *WebDaemon) trip.State {
	return d.Session.Engine.State()
}

func TestWebDaemon_HeadingAndSatellites(t *testing.T) {
	d := newTestWebDaemon(t, "")
	router := d.NewRouter()
	require.Equal(t, http.StatusAccepted, do(t, router, http.MethodPost, "/heading", `{"azimuth":90}`).StatusCode)
	require.Equal(t, http.StatusAccepted, do(t, router, http.MethodPost, "/satellites", `{"visible":10,"used":5}`).StatusCode)
	require.Eventually(t, func() bool {
		return d.Session.Engine.Value(trip.KeySatellites).Text == "Satellites: 10 (5 used)" &&
			d.Session.Engine.Value(trip.KeyDirection).Text == "E"
	}, time.Second, 5*time.Millisecond)
}

func TestWebDaemon_Token(t *testing.T) {
	d := newTestWebDaemon(t, "secret")
	router := d.NewRouter()

	resp := do(t, router, http.MethodPost, "/reset", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = do(t, router, http.MethodPost, "/reset", "", "Authorization", "secret")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = do(t, router, http.MethodPost, "/reset?api_token=secret", "")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	// Reads are open.
	resp = do(t, router, http.MethodGet, "/snapshot", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebDaemon_Settings(t *testing.T) {
	d := newTestWebDaemon(t, "")
	router := d.NewRouter()

	resp := do(t, router, http.MethodGet, "/settings", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got settings.Settings
	require.NoError(t, json.Unmarshal(readBody(t, resp), &got))
	assert.Equal(t, settings.Defaults(), got)

	resp = do(t, router, http.MethodPut, "/settings", `{"isMetric":true,"showSatellites":false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(readBody(t, resp), &got))
	assert.True(t, got.IsMetric)
	assert.False(t, got.ShowSatellites)

	require.Eventually(t, func() bool {
		return d.Session.Engine.Unit() == units.Metric
	}, time.Second, 5*time.Millisecond)

	resp = do(t, router, http.MethodPut, "/settings", `{"isMetric":false,"nightMode":true}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	// Rejected as a whole.
	assert.True(t, d.Session.Settings.Settings(context.Background()).IsMetric)
}

func TestWebDaemon_Samples(t *testing.T) {
	d := newTestWebDaemon(t, "")
	router := d.NewRouter()
	body := strings.Join([]string{
		`{"type":"location","speed":10,"lat":51.5074,"lon":-0.1278}`,
		`{"type":"bogus"}`,
		`{"type":"location","speed":20,"lat":48.8566,"lon":2.3522}`,
	}, "\n")
	resp := do(t, router, http.MethodPost, "/samples", body)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var ack acceptedResponse
	require.NoError(t, json.Unmarshal(readBody(t, resp), &ack))
	assert.Equal(t, acceptedResponse{Accepted: 2, Skipped: 1}, ack)

	require.Eventually(t, func() bool {
		return d.Session.Engine.Value(trip.KeyDistance).Text == "Dist: 213.7 mi"
	}, time.Second, 5*time.Millisecond)
}

func TestWebDaemon_Trips(t *testing.T) {
	d := newTestWebDaemon(t, "")
	router := d.NewRouter()

	require.Equal(t, http.StatusAccepted, do(t, router, http.MethodPost, "/location", `{"speed":3,"lat":1,"lon":1}`).StatusCode)
	require.Eventually(t, func() bool {
		return State(d) == trip.Active
	}, time.Second, 5*time.Millisecond)

	resp := do(t, router, http.MethodGet, "/trips", "")
	body := readBody(t, resp)
	assert.True(t, gjson.GetBytes(body, "current").Exists())
	assert.Zero(t, gjson.GetBytes(body, "recent.#").Int())

	id := d.Session.Engine.Snapshot().TripID
	require.Equal(t, http.StatusAccepted, do(t, router, http.MethodPost, "/reset", "").StatusCode)
	require.Eventually(t, func() bool {
		return len(d.Session.RecentTrips()) == 1
	}, time.Second, 5*time.Millisecond)

	resp = do(t, router, http.MethodGet, "/trips", "")
	body = readBody(t, resp)
	assert.False(t, gjson.GetBytes(body, "current").Exists())
	assert.Equal(t, id.String(), gjson.GetBytes(body, "recent.0.trip_id").String())

	resp = do(t, router, http.MethodGet, "/trips/"+id.String(), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sum app.TripSummary
	require.NoError(t, json.Unmarshal(readBody(t, resp), &sum))
	assert.Equal(t, 1, sum.Samples)

	resp = do(t, router, http.MethodGet, "/trips/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebDaemon_Metrics(t *testing.T) {
	d := newTestWebDaemon(t, "")
	router := d.NewRouter()
	require.Equal(t, http.StatusAccepted, do(t, router, http.MethodPost, "/heading", `{"azimuth":1}`).StatusCode)
	do(t, router, http.MethodPost, "/heading", `{}`)

	body := string(readBody(t, do(t, router, http.MethodGet, "/metrics", "")))
	assert.Contains(t, body, `tripd_samples_total{kind="heading"} 1`)
	assert.Contains(t, body, `tripd_samples_rejected_total{route="/heading"} 1`)
	assert.Contains(t, body, "tripd_websocket_sessions 0")
}

func TestWebDaemon_SocketGetsSnapshots(t *testing.T) {
	d := newTestWebDaemon(t, "")
	srv := httptest.NewServer(d.NewRouter())
	defer srv.Close()

	// The relay subscribes asynchronously; keep nudging the engine until it caches.
	azimuth := 0
	require.Eventually(t, func() bool {
		azimuth += 10
		do(t, d.NewRouter(), http.MethodPost, "/heading", fmt.Sprintf(`{"azimuth":%d}`, azimuth))
		return d.lastSnapshot.Get(lastSnapshotKey) != nil
	}, 2*time.Second, 20*time.Millisecond)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/socket"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "snapshot", gjson.GetBytes(msg, "action").String())
	assert.True(t, gjson.GetBytes(msg, "snapshot.heading").Exists())

	// Later changes are broadcast.
	require.Equal(t, http.StatusAccepted, do(t, d.NewRouter(), http.MethodPost, "/satellites", `{"visible":7,"used":3}`).StatusCode)
	require.Eventually(t, func() bool {
		_, msg, err = conn.ReadMessage()
		return err == nil && gjson.GetBytes(msg, "snapshot.satellites").String() == "Satellites: 7 (3 used)"
	}, 2*time.Second, time.Millisecond)
}
