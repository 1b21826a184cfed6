package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/api/response"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/apperrors"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/model"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/service"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/validation"
)

const (
	defaultTopHoldings = 10
	maxTopHoldings     = 500
)

// FundHandler handles HTTP requests for fund endpoints.
// It serves as the HTTP layer adapter, parsing requests and delegating
// to the query service. Unknown tickers yield empty results except on the
// fund detail and data quality endpoints, which answer 404.
type FundHandler struct {
	queryService *service.QueryService
}

// NewFundHandler creates a new FundHandler with the provided service dependency.
func NewFundHandler(queryService *service.QueryService) *FundHandler {
	return &FundHandler{
		queryService: queryService,
	}
}

func tickerParam(r *http.Request) string {
	return validation.NormalizeTicker(chi.URLParam(r, "ticker"))
}

// Funds handles GET requests to retrieve all funds with their latest filing metadata.
//
// Endpoint: GET /api/fund?type=fund_of_funds
// Response: 200 OK with array of model.FundSummary
// Error: 400 Bad Request for an unknown type, 500 if retrieval fails
func (h *FundHandler) Funds(w http.ResponseWriter, r *http.Request) {
	fundType := r.URL.Query().Get("type")
	if err := validation.ValidateFundType(fundType); err != nil {
		respondValidation(w, err)
		return
	}

	funds, err := h.queryService.ListFunds(r.Context(), model.FundType(fundType))
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveFunds.Error(), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, funds)
}

// TopLevelFunds handles GET requests for funds that are not held by any stored fund.
//
// Endpoint: GET /api/fund/top-level
func (h *FundHandler) TopLevelFunds(w http.ResponseWriter, r *http.Request) {
	funds, err := h.queryService.TopLevelFunds(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveFunds.Error(), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, funds)
}

// Fund handles GET requests for a single fund.
//
// Endpoint: GET /api/fund/{ticker}
// Response: 200 OK with model.Fund
// Error: 404 Not Found for unknown tickers
func (h *FundHandler) Fund(w http.ResponseWriter, r *http.Request) {
	ticker := tickerParam(r)

	fund, found, err := h.queryService.GetFund(r.Context(), ticker)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveFunds.Error(), err.Error())
		return
	}
	if !found {
		response.RespondError(w, http.StatusNotFound, apperrors.ErrFundNotFound.Error(), ticker)
		return
	}

	respondJSON(w, http.StatusOK, fund)
}

// Holdings handles GET requests for the latest filing of a fund and all its holdings.
//
// Endpoint: GET /api/fund/{ticker}/holdings
// Response: 200 OK with model.FilingHoldings, holdings empty for unknown tickers
func (h *FundHandler) Holdings(w http.ResponseWriter, r *http.Request) {
	latest, err := h.queryService.LatestFilingHoldings(r.Context(), tickerParam(r))
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveHoldings.Error(), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, latest)
}

// TopHoldings handles GET requests for the n largest holdings of a fund.
//
// Endpoint: GET /api/fund/{ticker}/top?n=10
// Response: 200 OK with array of model.Holding
// Error: 400 Bad Request when n is not between 1 and 500
func (h *FundHandler) TopHoldings(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "n", defaultTopHoldings, 1, maxTopHoldings)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid query parameter", err.Error())
		return
	}

	holdings, err := h.queryService.TopHoldings(r.Context(), tickerParam(r), n)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveHoldings.Error(), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, holdings)
}

// Allocation handles GET requests for a fund's allocation by asset category.
//
// Endpoint: GET /api/fund/{ticker}/allocation
// Response: 200 OK with model.Allocation
func (h *FundHandler) Allocation(w http.ResponseWriter, r *http.Request) {
	allocation, err := h.queryService.AllocationByCategory(r.Context(), tickerParam(r))
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveHoldings.Error(), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, allocation)
}

// Structure handles GET requests for the Sankey diagram of a fund.
//
// Endpoint: GET /api/fund/{ticker}/structure
// Response: 200 OK with model.FundStructure
func (h *FundHandler) Structure(w http.ResponseWriter, r *http.Request) {
	structure, err := h.queryService.FundStructure(r.Context(), tickerParam(r))
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveFunds.Error(), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, structure)
}

// Quality handles GET requests for the data quality report of a fund's latest filing.
//
// Endpoint: GET /api/fund/{ticker}/quality
// Response: 200 OK with model.DataQuality
// Error: 404 Not Found when the fund or its filing is not stored
func (h *FundHandler) Quality(w http.ResponseWriter, r *http.Request) {
	ticker := tickerParam(r)

	report, found, err := h.queryService.DataQuality(r.Context(), ticker)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveHoldings.Error(), err.Error())
		return
	}
	if !found {
		response.RespondError(w, http.StatusNotFound, apperrors.ErrFilingNotFound.Error(), ticker)
		return
	}

	respondJSON(w, http.StatusOK, report)
}
