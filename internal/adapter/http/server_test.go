package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/watchlink/internal/adapter/http"
	"github.com/couchcryptid/watchlink/internal/domain"
	"github.com/couchcryptid/watchlink/internal/feed"
	"github.com/couchcryptid/watchlink/internal/overlay"
	"github.com/couchcryptid/watchlink/internal/radio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockRadio struct {
	connectErr   error
	state        radio.State
	disconnected bool
}

func (m *mockRadio) Connect(context.Context) error {
	if m.connectErr != nil {
		m.state = radio.State{Status: radio.StatusFailed, LastError: m.connectErr.Error()}
		return m.connectErr
	}
	m.state = radio.State{Status: radio.StatusConnected, SessionID: "session-1", Device: "AA:BB"}
	return nil
}

func (m *mockRadio) Disconnect(context.Context) {
	m.disconnected = true
	m.state = radio.State{Status: radio.StatusDisconnected}
}

func (m *mockRadio) State() radio.State { return m.state }

type mockFeed struct {
	err    error
	result domain.FeedResult
	loads  int
}

func (m *mockFeed) Load(context.Context) (domain.FeedResult, error) {
	m.loads++
	return m.result, m.err
}

func (m *mockFeed) Status() feed.Status {
	return feed.Status{Points: len(m.result.Records), Dropped: m.result.Dropped}
}

type mockHistory struct {
	rec *domain.SampleRecord
}

func (m mockHistory) LastRecord() (domain.SampleRecord, bool) {
	if m.rec == nil {
		return domain.SampleRecord{}, false
	}
	return *m.rec, true
}

type fixture struct {
	srv     *httpadapter.Server
	overlay *overlay.Overlay
	radio   *mockRadio
	feed    *mockFeed
}

func newFixture(readyErr error, withRadio bool) *fixture {
	f := &fixture{
		overlay: overlay.New(""),
		feed: &mockFeed{result: domain.FeedResult{
			Records: domain.ParseFeed("lat,lon,value\n40.7,-74.0,0.5\n"),
			Rows:    2,
			Dropped: 1,
		}},
	}
	deps := httpadapter.Deps{
		Ready:   &mockReadiness{err: readyErr},
		Overlay: f.overlay,
		Feed:    f.feed,
		Samples: mockHistory{},
	}
	if withRadio {
		f.radio = &mockRadio{state: radio.State{Status: radio.StatusDisconnected}}
		deps.Radio = f.radio
	}
	f.srv = httpadapter.NewServer(":0", deps, slog.Default())
	return f
}

func (f *fixture) do(method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthzReturns200(t *testing.T) {
	rec := newFixture(nil, false).do(http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := newFixture(nil, false).do(http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := newFixture(fmt.Errorf("not ready yet"), false).do(http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := newFixture(nil, false).do(http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestOverlayReturnsGeoJSON(t *testing.T) {
	f := newFixture(nil, false)
	f.overlay.SetPointLayer(domain.ParseFeed("lat,lon,value,label\n40.7,-74.0,1,Hot\n"), time.Now())
	f.overlay.UpdateLivePosition(domain.PositionSample{Coordinate: domain.Coordinate{Lat: 40.71, Lon: -74.01}})

	rec := f.do(http.MethodGet, "/api/overlay")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))

	var fc overlay.FeatureCollection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, []float64{-74.0, 40.7}, fc.Features[0].Geometry.Coordinates)
	assert.Equal(t, "rgb(255,0,0)", fc.Features[0].Properties["color"])
	assert.Equal(t, "live", fc.Features[1].Properties["kind"])
}

func TestToggleLayer(t *testing.T) {
	f := newFixture(nil, false)

	rec := f.do(http.MethodPost, "/api/layer/toggle")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["points_visible"])

	rec = f.do(http.MethodPost, "/api/layer/toggle")
	assert.Equal(t, true, decode(t, rec)["points_visible"])
}

func TestToggleLayerRequiresPost(t *testing.T) {
	rec := newFixture(nil, false).do(http.MethodGet, "/api/layer/toggle")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatus(t *testing.T) {
	f := newFixture(nil, true)

	rec := f.do(http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	radioState, ok := body["radio"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Disconnected", radioState["status"])
	assert.NotContains(t, body, "last_fix")

	view, ok := body["view"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, view["points_visible"])
	assert.InDelta(t, float64(overlay.DefaultZoom), view["zoom"], 0)
}

func TestStatusWithoutRadio(t *testing.T) {
	rec := newFixture(nil, false).do(http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	radioState, ok := decode(t, rec)["radio"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Disconnected", radioState["status"])
}

func TestRadioConnectAndDisconnect(t *testing.T) {
	f := newFixture(nil, true)

	rec := f.do(http.MethodPost, "/api/radio/connect")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Connected", decode(t, rec)["status"])

	rec = f.do(http.MethodPost, "/api/radio/disconnect")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Disconnected", decode(t, rec)["status"])
	assert.True(t, f.radio.disconnected)
}

func TestRadioConnectFailure(t *testing.T) {
	f := newFixture(nil, true)
	f.radio.connectErr = errors.New("no matching device found")

	rec := f.do(http.MethodPost, "/api/radio/connect")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "no matching device found", decode(t, rec)["error"])
}

func TestRadioDisabled(t *testing.T) {
	f := newFixture(nil, false)

	for _, path := range []string{"/api/radio/connect", "/api/radio/disconnect"} {
		rec := f.do(http.MethodPost, path)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
		assert.Equal(t, "radio link disabled", decode(t, rec)["error"])
	}
}

func TestFeedReload(t *testing.T) {
	f := newFixture(nil, false)

	rec := f.do(http.MethodPost, "/api/feed/reload")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.InDelta(t, 1.0, body["points"], 0)
	assert.InDelta(t, 1.0, body["dropped"], 0)
	assert.Equal(t, 1, f.feed.loads)
}

func TestFeedReloadFailure(t *testing.T) {
	f := newFixture(nil, false)
	f.feed.err = feed.ErrCircuitOpen

	rec := f.do(http.MethodPost, "/api/feed/reload")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "circuit breaker open")
}
