package handlers

import (
	"net/http"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/api/request"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/api/response"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/apperrors"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/scheduler"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/validation"
)

// LoadHandler handles HTTP requests that trigger and inspect loader runs.
type LoadHandler struct {
	runner *scheduler.Runner
}

// NewLoadHandler creates a new LoadHandler
func NewLoadHandler(runner *scheduler.Runner) *LoadHandler {
	return &LoadHandler{runner: runner}
}

// LoadStartedResponse is returned when a run was started in the background.
type LoadStartedResponse struct {
	Status string   `json:"status"`
	Seeds  []string `json:"seeds"`
}

// Load handles POST requests that run the loader for a seed list.
// An empty seed list loads the configured default seeds. With "wait" the
// request blocks until the run finishes and returns its summary.
//
// Endpoint: POST /api/load
// Response: 202 Accepted with LoadStartedResponse, or 200 OK with model.LoadSummary when waiting
// Error: 400 Bad Request for invalid seeds, 409 Conflict when a run is in progress
func (h *LoadHandler) Load(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.LoadRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateLoadRequest(req); err != nil {
		respondValidation(w, err)
		return
	}
	seeds := make([]string, 0, len(req.Seeds))
	for _, s := range req.Seeds {
		seeds = append(seeds, validation.NormalizeTicker(s))
	}

	if req.Wait {
		summary, _ := h.runner.Run(r.Context(), seeds)
		respondJSON(w, http.StatusOK, summary)
		return
	}

	if err := h.runner.Start(seeds); err != nil {
		response.RespondError(w, http.StatusConflict, apperrors.ErrLoadInProgress.Error(), err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, LoadStartedResponse{Status: "started", Seeds: seeds})
}

// LastRun handles GET requests for the summary of the most recent run.
//
// Endpoint: GET /api/load
// Response: 200 OK with model.LoadSummary
// Error: 404 Not Found when no run has completed yet
func (h *LoadHandler) LastRun(w http.ResponseWriter, _ *http.Request) {
	summary, ok := h.runner.LastRun()
	if !ok {
		response.RespondError(w, http.StatusNotFound, "no load run has completed", map[string]bool{"running": h.runner.Running()})
		return
	}

	respondJSON(w, http.StatusOK, summary)
}
