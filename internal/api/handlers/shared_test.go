package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/api/request"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/validation"
)

// TestRespondJSON tests the respondJSON helper function.
// This is an internal test (package handlers, not handlers_test) because
// respondJSON is unexported.
func TestRespondJSON(t *testing.T) {
	t.Run("sets content-type and status code correctly", func(t *testing.T) {
		w := httptest.NewRecorder()

		respondJSON(w, http.StatusOK, map[string]string{"message": "success"})

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
		if w.Header().Get("Content-Type") != "application/json" {
			t.Errorf("Expected Content-Type 'application/json', got '%s'", w.Header().Get("Content-Type"))
		}
	})

	t.Run("handles nil data without error", func(t *testing.T) {
		w := httptest.NewRecorder()

		respondJSON(w, http.StatusNoContent, nil)

		if w.Code != http.StatusNoContent {
			t.Errorf("Expected status 204, got %d", w.Code)
		}
		if w.Body.Len() != 0 {
			t.Errorf("Expected empty body, got %q", w.Body.String())
		}
	})

	t.Run("handles un-encodable data gracefully", func(t *testing.T) {
		w := httptest.NewRecorder()

		// Channels cannot be JSON encoded; should not panic, just log the error
		respondJSON(w, http.StatusOK, map[string]interface{}{"channel": make(chan int)})

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})
}

func TestParseJSON(t *testing.T) {
	t.Run("decodes a valid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/load", strings.NewReader(`{"seeds":["MDIZX"],"wait":true}`))

		got, err := parseJSON[request.LoadRequest](req)
		if err != nil {
			t.Fatalf("parseJSON() returned unexpected error: %v", err)
		}
		if len(got.Seeds) != 1 || !got.Wait {
			t.Errorf("Expected decoded request, got %+v", got)
		}
	})

	t.Run("empty body is the zero value", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/load", http.NoBody)

		got, err := parseJSON[request.LoadRequest](req)
		if err != nil {
			t.Fatalf("parseJSON() returned unexpected error: %v", err)
		}
		if len(got.Seeds) != 0 {
			t.Errorf("Expected no seeds, got %v", got.Seeds)
		}
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/load", strings.NewReader(`{"tickers":["MDIZX"]}`))

		if _, err := parseJSON[request.LoadRequest](req); err == nil {
			t.Error("Expected error for unknown field")
		}
	})
}

func TestQueryInt(t *testing.T) {
	tests := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{"", 10, false},
		{"n=25", 25, false},
		{"n=0", 0, true},
		{"n=1000", 0, true},
		{"n=ten", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/top?"+tt.query, nil)

			got, err := queryInt(req, "n", 10, 1, 500)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestRespondValidation(t *testing.T) {
	w := httptest.NewRecorder()

	respondValidation(w, &validation.Error{Fields: map[string]string{"seeds": "invalid"}})

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
	var body struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Details["seeds"] != "invalid" {
		t.Errorf("Expected field details, got %+v", body)
	}
}
