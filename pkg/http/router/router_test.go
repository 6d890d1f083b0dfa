package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lintang-b-s/bridgeroute/pkg/config"
	"github.com/lintang-b-s/bridgeroute/pkg/datastructure"
	"github.com/lintang-b-s/bridgeroute/pkg/engine/routing"
	"github.com/lintang-b-s/bridgeroute/pkg/http/usecases"
	"github.com/lintang-b-s/bridgeroute/pkg/predictor"
	"github.com/lintang-b-s/bridgeroute/pkg/scoring"
	"github.com/lintang-b-s/bridgeroute/pkg/spatialindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	nodes := []datastructure.Node{
		datastructure.NewNode("A", "", 47.6400, -122.3600),
		datastructure.NewNode("B", "", 47.6475, -122.3497),
		datastructure.NewNode("C", "", 47.6600, -122.3600),
		datastructure.NewNode("D", "", 47.6560, -122.3763),
	}
	g, err := datastructure.NewGraph(nodes, []datastructure.Edge{
		datastructure.NewEdge("A", "B", 60, 1000),
		datastructure.NewBridgeEdge("B", "C", 60, 1500, "fremont"),
		datastructure.NewEdge("A", "D", 90, 2100),
		datastructure.NewBridgeEdge("D", "C", 90, 1700, "ballard"),
	})
	require.NoError(t, err)

	cfg := config.Testing()
	p := predictor.NewMockPredictor(1,
		predictor.WithBridgeProbability("fremont", 0.9),
		predictor.WithBridgeProbability("ballard", 0.2))
	rt := spatialindex.NewRtree()
	rt.Build(g, 0.05, zap.NewNop())

	svc := usecases.NewRoutingService(zap.NewNop(), g,
		routing.NewPathEnumerationService(cfg.PathEnum, cfg.Performance, nil, nil),
		scoring.NewPathScoringService(p, cfg, nil, nil),
		rt, 0.5)
	return NewAPI(zap.NewNop()).Handler(false, svc)
}

type routesBody struct {
	Data struct {
		JourneyID          string  `json:"journey_id"`
		StartNode          string  `json:"start_node"`
		EndNode            string  `json:"end_node"`
		TotalPathsAnalyzed int     `json:"total_paths_analyzed"`
		NetworkProbability float64 `json:"network_probability"`
		Routes             []struct {
			Rank       int      `json:"rank"`
			Nodes      []string `json:"nodes"`
			TravelTime int      `json:"travel_time"`
			Path       string   `json:"path"`
			Bridges    []struct {
				BridgeID        string    `json:"bridge_id"`
				ETA             time.Time `json:"eta"`
				OpenProbability float64   `json:"open_probability"`
			} `json:"bridges"`
		} `json:"routes"`
	} `json:"data"`
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestBridgeRoutesByNode(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodGet, "/api/bridgeRoutesByNode?from=A&to=C&departure_time=2025-03-14T08:00:00Z")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body routesBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Data.JourneyID)
	assert.Equal(t, 2, body.Data.TotalPathsAnalyzed)
	assert.InDelta(t, 0.92, body.Data.NetworkProbability, 1e-9)
	require.Len(t, body.Data.Routes, 2)
	assert.Equal(t, []string{"A", "B", "C"}, body.Data.Routes[0].Nodes)
	assert.NotEmpty(t, body.Data.Routes[0].Path)
	require.Len(t, body.Data.Routes[0].Bridges, 1)
	assert.Equal(t, "fremont", body.Data.Routes[0].Bridges[0].BridgeID)
	assert.True(t, time.Date(2025, 3, 14, 8, 2, 0, 0, time.UTC).Equal(body.Data.Routes[0].Bridges[0].ETA))
}

func TestComputeBridgeRoutes(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodGet,
		"/api/computeBridgeRoutes?origin_lat=47.6401&origin_lon=-122.3601&destination_lat=47.6599&destination_lon=-122.3599&k=1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body routesBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "A", body.Data.StartNode)
	assert.Equal(t, "C", body.Data.EndNode)
	require.Len(t, body.Data.Routes, 1)
	assert.Equal(t, 1, body.Data.Routes[0].Rank)
}

func TestRoutingErrors(t *testing.T) {
	h := newTestHandler(t)

	cases := []struct {
		name   string
		target string
		status int
		code   string
	}{
		{"missing origin", "/api/computeBridgeRoutes?origin_lon=1&destination_lat=1&destination_lon=1", http.StatusBadRequest, "bad_request"},
		{"latitude out of range", "/api/computeBridgeRoutes?origin_lat=95&origin_lon=1&destination_lat=1&destination_lon=1", http.StatusBadRequest, "bad_request"},
		{"bad departure", "/api/bridgeRoutesByNode?from=A&to=C&departure_time=tomorrow", http.StatusBadRequest, "bad_request"},
		{"bad k", "/api/bridgeRoutesByNode?from=A&to=C&k=x", http.StatusBadRequest, "bad_request"},
		{"missing to", "/api/bridgeRoutesByNode?from=A", http.StatusBadRequest, "bad_request"},
		{"unknown node", "/api/bridgeRoutesByNode?from=A&to=Z", http.StatusNotFound, "not_found"},
		{"no nearby node", "/api/computeBridgeRoutes?origin_lat=0&origin_lon=0&destination_lat=47.66&destination_lon=-122.36", http.StatusNotFound, "not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tc.target)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Error.Code)
			assert.NotEmpty(t, body.Error.Message)
		})
	}
}

func TestCacheEndpoints(t *testing.T) {
	h := newTestHandler(t)

	for i := 0; i < 2; i++ {
		rec := do(t, h, http.MethodGet, "/api/bridgeRoutesByNode?from=A&to=C&departure_time=2025-03-14T08:00:00Z")
		require.Equal(t, http.StatusOK, rec.Code)
	}

	var stats struct {
		Data scoring.CacheStatistics `json:"data"`
	}
	rec := do(t, h, http.MethodGet, "/api/cacheStatistics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(2), stats.Data.Hits)
	assert.Equal(t, int64(2), stats.Data.Misses)
	assert.InDelta(t, 0.5, stats.Data.HitRate, 1e-9)

	rec = do(t, h, http.MethodDelete, "/api/cache")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/cacheStatistics")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, scoring.CacheStatistics{}, stats.Data)
}

func TestMiddleware(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ".", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/cacheStatistics", nil)
	req.Header.Set("X-Request-ID", "0b7a5f5e-3c38-4a0f-9f55-8c2f4d2c9d10")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "0b7a5f5e-3c38-4a0f-9f55-8c2f4d2c9d10", rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodDelete, "/api/cache", http.NoBody)
	req.ContentLength = 3
	req.Header.Set("Content-Type", "text/plain")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestRecoverPanic(t *testing.T) {
	api := NewAPI(nil)
	h := api.recoverPanic(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := do(t, h, http.MethodGet, "/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "close", rec.Header().Get("Connection"))
}

func TestRealIP(t *testing.T) {
	var got string
	h := RealIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.RemoteAddr
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "203.0.113.7", got)
}
