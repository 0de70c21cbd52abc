package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	httpadapter "github.com/couchcryptid/pop-status-service/internal/adapter/http"
	"github.com/couchcryptid/pop-status-service/internal/adapter/memory"
	"github.com/couchcryptid/pop-status-service/internal/domain"
	"github.com/couchcryptid/pop-status-service/internal/observability"
	"github.com/couchcryptid/pop-status-service/internal/statuspage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type staticCatalog []domain.PopRecord

func (c staticCatalog) FetchPops(_ context.Context) ([]domain.PopRecord, error) { return c, nil }

type staticLive struct {
	live domain.LiveStatus
	err  error
}

func (l staticLive) FetchStatuses(_ context.Context) (domain.LiveStatus, error) { return l.live, l.err }

// stubService returns fixed results so error mapping can be tested directly.
type stubService struct {
	reportErr error
	mutateErr error
}

func (s stubService) Report(_ context.Context, _ bool) (domain.StatusReport, error) {
	return domain.StatusReport{}, s.reportErr
}

func (s stubService) Mutate(_ context.Context, _ string) (domain.OverrideMap, error) {
	return nil, s.mutateErr
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, store *memory.Store, live staticLive) *httpadapter.Server {
	t.Helper()
	catalog := staticCatalog{
		{Code: "ABC", Name: "Alpha", Group: "Europe", Latitude: 52.3, Longitude: 4.8},
		{Code: "XYZ", Name: "Zulu", Group: "Asia", Latitude: 1.3, Longitude: 103.8},
	}
	metrics := observability.NewMetricsForTesting()
	svc := statuspage.New(catalog, live, store, discard(), metrics).WithCurrentPOP("ABC")
	return httpadapter.NewServer(":0", svc, &mockReadiness{}, metrics, discard())
}

func do(srv http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decodeReport(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body domain.StatusReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	out := map[string]string{}
	for _, p := range body.PopStatusData {
		out[p.Code] = p.Status
	}
	return out
}

func TestReportRoute(t *testing.T) {
	srv := newTestServer(t, memory.NewStoreWithValue(`{}`), staticLive{live: domain.LiveStatus{"ABC": "Operational"}})

	rec := do(srv, http.MethodGet, "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Body.String(), `"current_pop":"ABC"`)
	assert.Equal(t, map[string]string{"ABC": "Operational", "XYZ": "Not Available"}, decodeReport(t, rec))
}

func TestReportRoute_JSONShape(t *testing.T) {
	srv := newTestServer(t, memory.NewStoreWithValue(`{}`), staticLive{live: domain.LiveStatus{}})

	rec := do(srv, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		CurrentPOP string           `json:"current_pop"`
		Data       []map[string]any `json:"pop_status_data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	for _, field := range []string{"code", "name", "latitude", "longitude", "group", "shield", "status"} {
		assert.Contains(t, body.Data[0], field)
	}
	assert.Equal(t, "", body.Data[0]["shield"])
}

func TestNoScrapeRoute(t *testing.T) {
	srv := newTestServer(t, memory.NewStoreWithValue(`{"XYZ":2}`), staticLive{err: errors.New("should not be called")})

	rec := do(srv, http.MethodGet, "/noscrape")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"ABC": "Not Available", "XYZ": "Partial Outage"}, decodeReport(t, rec))
}

func TestHeadRequest(t *testing.T) {
	srv := newTestServer(t, memory.NewStoreWithValue(`{}`), staticLive{})

	rec := do(srv, http.MethodHead, "/noscrape")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSetPopRoute_ReadOnly(t *testing.T) {
	store := memory.NewStoreWithValue(`{"ABC":1}`)
	srv := newTestServer(t, store, staticLive{})

	rec := do(srv, http.MethodGet, "/set_pop")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ABC":1}`, rec.Body.String())
	_, puts := store.Calls()
	assert.Equal(t, 0, puts)
}

func TestSetPopRoute_ThenReport(t *testing.T) {
	srv := newTestServer(t, memory.NewStore(), staticLive{live: domain.LiveStatus{"ABC": "Operational"}})

	rec := do(srv, http.MethodGet, "/set_pop?ABC=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ABC":2}`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(srv, http.MethodGet, "/")
	assert.Equal(t, "Partial Outage", decodeReport(t, rec)["ABC"])

	rec = do(srv, http.MethodGet, "/set_pop?%2A=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"*":3,"ABC":2}`, rec.Body.String())

	rec = do(srv, http.MethodGet, "/")
	assert.Equal(t, map[string]string{"ABC": "Major Outage", "XYZ": "Major Outage"}, decodeReport(t, rec))

	rec = do(srv, http.MethodGet, "/set_pop?*=-")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
}

func TestSetPopRoute_InvalidDirective(t *testing.T) {
	store := memory.NewStoreWithValue(`{}`)
	srv := newTestServer(t, store, staticLive{})

	rec := do(srv, http.MethodGet, "/set_pop?ABC=2&XYZ=high")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "XYZ")
	_, puts := store.Calls()
	assert.Equal(t, 0, puts)
}

func TestSetPopRoute_IndexOutOfRange(t *testing.T) {
	srv := newTestServer(t, memory.NewStoreWithValue(`{}`), staticLive{})

	rec := do(srv, http.MethodGet, "/set_pop?ABC=256")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "0..255")
}

func TestStoreUnavailable(t *testing.T) {
	store := memory.NewStore()
	store.Fail = errors.New("connection refused")
	srv := newTestServer(t, store, staticLive{})

	for _, target := range []string{"/", "/noscrape", "/set_pop", "/set_pop?ABC=1"} {
		rec := do(srv, http.MethodGet, target)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain", target)
		assert.NotContains(t, rec.Body.String(), "connection refused", target)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"catalog unreachable", &domain.SourceError{Source: domain.SourceCatalog, Err: domain.ErrUpstreamUnreachable}, http.StatusBadGateway},
		{"live feed malformed", &domain.SourceError{Source: domain.SourceLiveStatus, Err: domain.ErrMalformedPayload}, http.StatusBadGateway},
		{"store malformed", &domain.SourceError{Source: domain.SourceOverrideStore, Err: domain.ErrMalformedPayload}, http.StatusBadGateway},
		{"store unreachable", &domain.SourceError{Source: domain.SourceOverrideStore, Err: domain.ErrUpstreamUnreachable}, http.StatusServiceUnavailable},
		{"conflict", &domain.SourceError{Source: domain.SourceOverrideStore, Err: domain.ErrOverrideConflict}, http.StatusConflict},
		{"invalid directive", fmt.Errorf("%w: bad", domain.ErrInvalidDirective), http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := stubService{reportErr: tt.err, mutateErr: tt.err}
			srv := httpadapter.NewServer(":0", stub, &mockReadiness{}, observability.NewMetricsForTesting(), discard())

			assert.Equal(t, tt.want, do(srv, http.MethodGet, "/").Code)
			assert.Equal(t, tt.want, do(srv, http.MethodGet, "/set_pop?ABC=1").Code)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, memory.NewStore(), staticLive{})

	for _, target := range []string{"/", "/noscrape", "/set_pop"} {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			rec := do(srv, method, target)
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method+" "+target)
			assert.Equal(t, "GET, HEAD", rec.Header().Get("Allow"))
			assert.Equal(t, "This method is not allowed\n", rec.Body.String())
		}
	}
}

func TestNotFound(t *testing.T) {
	srv := newTestServer(t, memory.NewStore(), staticLive{})

	rec := do(srv, http.MethodGet, "/nope")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, "The page you requested could not be found\n", rec.Body.String())
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(t, memory.NewStore(), staticLive{})
	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/healthz").Code)
}

func TestReadyz(t *testing.T) {
	metrics := observability.NewMetricsForTesting()

	ready := httpadapter.NewServer(":0", stubService{}, &mockReadiness{}, metrics, discard())
	assert.Equal(t, http.StatusOK, do(ready, http.MethodGet, "/readyz").Code)

	notReady := httpadapter.NewServer(":0", stubService{}, &mockReadiness{err: errors.New("store down")}, metrics, discard())
	assert.Equal(t, http.StatusServiceUnavailable, do(notReady, http.MethodGet, "/readyz").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, memory.NewStore(), staticLive{})

	rec := do(srv, http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
