package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/martinbsolomon/philoca/internal/config"
	"github.com/martinbsolomon/philoca/internal/model"
	"github.com/martinbsolomon/philoca/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func testConfig() *config.Config {
	return &config.Config{
		Engine: config.EngineConfig{Resolution: 20, Padding: 0.05},
		Server: config.ServerConfig{Port: 0, AllowedOrigins: []string{"*"}},
		Source: config.SourceConfig{CacheTTLMins: 10},
	}
}

func newTestServer(t *testing.T, ingest bool) (*httptest.Server, store.Store) {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	if ingest {
		_, err = st.CreateSnapshot(context.Background(), "test", "v1",
			[]string{"latitude", "longitude", "pco2"},
			[][]string{
				{"10.0", "120.0", "380"},
				{"10.5", "120.5", "420"},
				{"11.0", "120.0", "405"},
				{"10.5", "119.5", "395"},
				{"10.2", "120.2", "400"},
			},
		)
		require.NoError(t, err)
	}

	srv := New(testConfig(), st, nil, model.DefaultParameters())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, st
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, false)

	var body map[string]string
	code := getJSON(t, ts.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestParametersEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, false)

	var params []model.ParameterMeta
	code := getJSON(t, ts.URL+"/api/parameters", &params)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, params, 4)
	assert.Equal(t, "pco2", params[0].Name)
}

func TestFieldEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, true)

	var body struct {
		SnapshotID string        `json:"snapshot_id"`
		Parameter  string        `json:"parameter"`
		Threshold  float64       `json:"threshold"`
		Field      model.Field   `json:"field"`
		Summary    model.Summary `json:"summary"`
	}
	code := getJSON(t, ts.URL+"/api/field?parameter=pco2&threshold=400&resolution=10", &body)
	require.Equal(t, http.StatusOK, code)

	assert.NotEmpty(t, body.SnapshotID)
	assert.Equal(t, "pco2", body.Parameter)
	assert.Equal(t, 400.0, body.Threshold)
	assert.Equal(t, 10, body.Field.Grid.Resolution())
	assert.Len(t, body.Field.Values, 100)
	assert.Greater(t, body.Field.DefinedCount(), 0)
	assert.Equal(t, 5, body.Summary.Count)
}

func TestFieldEndpointCaches(t *testing.T) {
	ts, st := newTestServer(t, true)

	url := ts.URL + "/api/field?parameter=pco2&threshold=400&resolution=10"
	require.Equal(t, http.StatusOK, getJSON(t, url, nil))

	snap, _, err := st.LatestSnapshot(context.Background())
	require.NoError(t, err)

	cached, err := st.GetCachedResult(context.Background(), store.ResultKey{
		SnapshotID: snap.ID,
		Parameter:  "pco2",
		Resolution: 10,
		Threshold:  400,
		Padding:    0.05,
	})
	require.NoError(t, err)
	assert.NotNil(t, cached, "first request populates the cache")

	// Second request is served from the cache and still parses.
	var body map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, url, &body))
	assert.Equal(t, "pco2", body["parameter"])
}

func TestFieldEndpointErrors(t *testing.T) {
	ts, _ := newTestServer(t, true)

	cases := []struct {
		name string
		path string
		code int
	}{
		{"missing parameter", "/api/field?threshold=400", http.StatusBadRequest},
		{"unknown parameter", "/api/field?parameter=salinity&threshold=35", http.StatusNotFound},
		{"missing threshold", "/api/field?parameter=pco2", http.StatusBadRequest},
		{"bad threshold", "/api/field?parameter=pco2&threshold=abc", http.StatusBadRequest},
		{"bad resolution", "/api/field?parameter=pco2&threshold=400&resolution=-5", http.StatusBadRequest},
		{"bad padding", "/api/field?parameter=pco2&threshold=400&padding=oops", http.StatusBadRequest},
		{"insufficient data", "/api/field?parameter=temp_ctd&threshold=30", http.StatusUnprocessableEntity},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.code, getJSON(t, ts.URL+c.path, nil))
		})
	}
}

func TestFieldEndpointNoSnapshot(t *testing.T) {
	ts, _ := newTestServer(t, false)

	code := getJSON(t, ts.URL+"/api/field?parameter=pco2&threshold=400", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestStatsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, true)

	var sum model.Summary
	code := getJSON(t, ts.URL+"/api/stats?parameter=pco2&threshold=400", &sum)
	require.Equal(t, http.StatusOK, code)

	assert.Equal(t, "pco2", sum.Parameter)
	assert.Equal(t, 5, sum.Count)
	assert.Equal(t, 2, sum.AboveCount)
	assert.Equal(t, 3, sum.BelowCount)
	assert.InDelta(t, 1.0, sum.AboveFraction+sum.BelowFraction, 1e-12)
}

func TestSamplesEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, true)

	resp, err := http.Get(ts.URL + "/api/samples?parameter=pco2&threshold=400")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/geo+json", resp.Header.Get("Content-Type"))

	var fc struct {
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fc))
	assert.Len(t, fc.Features, 5)
}

func TestHullEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, true)

	// No threshold needed for the hull.
	resp, err := http.Get(ts.URL + "/api/hull?parameter=pco2")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fc struct {
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fc))
	assert.Len(t, fc.Features, 1)
}
