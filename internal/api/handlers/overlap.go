package handlers

import (
	"net/http"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/api/response"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/apperrors"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/service"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/validation"
)

// OverlapHandler handles HTTP requests comparing the holdings of several funds.
type OverlapHandler struct {
	queryService *service.QueryService
}

// NewOverlapHandler creates a new OverlapHandler
func NewOverlapHandler(queryService *service.QueryService) *OverlapHandler {
	return &OverlapHandler{queryService: queryService}
}

// Overlap handles GET requests comparing the holdings of several funds.
//
// Endpoint: GET /api/overlap?tickers=MDIZX,TSVPX
// Response: 200 OK with model.OverlapAnalysis
// Error: 400 Bad Request when fewer than two valid tickers are given
func (h *OverlapHandler) Overlap(w http.ResponseWriter, r *http.Request) {
	tickers := validation.SplitTickers(r.URL.Query().Get("tickers"))
	if err := validation.ValidateOverlapTickers(tickers); err != nil {
		respondValidation(w, err)
		return
	}

	analysis, err := h.queryService.OverlapAnalysis(r.Context(), tickers...)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToComputeOverlap.Error(), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, analysis)
}
