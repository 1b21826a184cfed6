package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/api"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/config"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/logging"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/model"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/scheduler"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/testutil"
)

type noopLoader struct{}

func (noopLoader) Load(_ context.Context, seeds []string) model.LoadSummary {
	return model.LoadSummary{RunID: "run", Seeds: seeds}
}

func (noopLoader) DefaultSeeds() []string { return []string{"MDIZX"} }

func newTestRouter(t *testing.T, apiKey string) http.Handler {
	t.Helper()
	db := testutil.SetupTestDB(t)
	testutil.CreateFund(t, db, "MDIZX")

	cfg := &config.Config{
		Server: config.ServerConfig{APIKey: apiKey},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
	return api.NewRouter(
		testutil.NewTestSystemService(t, db),
		testutil.NewTestQueryService(t, db),
		scheduler.NewRunner(noopLoader{}, logging.Discard()),
		nil,
		cfg,
		logging.Discard(),
	)
}

// TestNewRouter checks that routes reach the right handlers with the
// expected middleware applied.
func TestNewRouter(t *testing.T) {
	testCases := []struct {
		name       string
		method     string
		path       string
		body       string
		apiKey     string
		header     string
		wantStatus int
	}{
		{name: "health", method: http.MethodGet, path: "/api/system/health", wantStatus: http.StatusOK},
		{name: "version", method: http.MethodGet, path: "/api/system/version", wantStatus: http.StatusOK},
		{name: "fund list", method: http.MethodGet, path: "/api/fund", wantStatus: http.StatusOK},
		{name: "top-level is not a ticker", method: http.MethodGet, path: "/api/fund/top-level", wantStatus: http.StatusOK},
		{name: "fund detail", method: http.MethodGet, path: "/api/fund/mdizx", wantStatus: http.StatusOK},
		{name: "unknown fund", method: http.MethodGet, path: "/api/fund/NOPE", wantStatus: http.StatusNotFound},
		{name: "malformed ticker", method: http.MethodGet, path: "/api/fund/TOOLONGTICKER/holdings", wantStatus: http.StatusBadRequest},
		{name: "unknown fund holdings", method: http.MethodGet, path: "/api/fund/NOPE/holdings", wantStatus: http.StatusOK},
		{name: "overlap needs two", method: http.MethodGet, path: "/api/overlap?tickers=MDIZX", wantStatus: http.StatusBadRequest},
		{name: "no run yet", method: http.MethodGet, path: "/api/load", wantStatus: http.StatusNotFound},
		{name: "load without key configured", method: http.MethodPost, path: "/api/load", body: `{"wait":true}`, wantStatus: http.StatusOK},
		{name: "load missing key", method: http.MethodPost, path: "/api/load", body: `{"wait":true}`, apiKey: "secret", wantStatus: http.StatusUnauthorized},
		{name: "load wrong key", method: http.MethodPost, path: "/api/load", body: `{"wait":true}`, apiKey: "secret", header: "nope", wantStatus: http.StatusUnauthorized},
		{name: "load with key", method: http.MethodPost, path: "/api/load", body: `{"wait":true}`, apiKey: "secret", header: "secret", wantStatus: http.StatusOK},
		{name: "chat disabled", method: http.MethodPost, path: "/api/chat", body: `{"message":"hi"}`, wantStatus: http.StatusServiceUnavailable},
		{name: "unknown route", method: http.MethodGet, path: "/api/securities", wantStatus: http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(t, tc.apiKey)

			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			if tc.header != "" {
				req.Header.Set("X-API-Key", tc.header)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Errorf("%s %s: expected %d, got %d: %s", tc.method, tc.path, tc.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestNewRouter_CORS(t *testing.T) {
	router := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodOptions, "/api/fund", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Expected allowed origin header, got %q", got)
	}
}
