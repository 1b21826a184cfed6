package validation

import (
	"fmt"
	"strings"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/api/request"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/model"
)

// maxChatMessageLength bounds a single chat question.
const maxChatMessageLength = 4000

// ValidateLoadRequest checks a load trigger. An empty seed list selects the
// configured default seeds.
func ValidateLoadRequest(req request.LoadRequest) error {
	errors := make(map[string]string)

	if len(req.Seeds) > MaxTickersPerRequest {
		errors["seeds"] = fmt.Sprintf("at most %d seeds are allowed", MaxTickersPerRequest)
	} else {
		for _, s := range req.Seeds {
			if err := ValidateTicker(s); err != nil {
				errors["seeds"] = err.Error()
				break
			}
		}
	}

	return errorOrNil(errors)
}

// ValidateOverlapTickers checks the ticker list of an overlap query.
func ValidateOverlapTickers(tickers []string) error {
	errors := make(map[string]string)

	switch {
	case len(tickers) < 2:
		errors["tickers"] = "at least two tickers are required"
	case len(tickers) > MaxTickersPerRequest:
		errors["tickers"] = fmt.Sprintf("at most %d tickers are allowed", MaxTickersPerRequest)
	default:
		for _, t := range tickers {
			if err := ValidateTicker(t); err != nil {
				errors["tickers"] = err.Error()
				break
			}
		}
	}

	return errorOrNil(errors)
}

// ValidateChatRequest checks a chat question and its history.
func ValidateChatRequest(req request.ChatRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Message) == "" {
		errors["message"] = "message is required"
	} else if len(req.Message) > maxChatMessageLength {
		errors["message"] = fmt.Sprintf("message must be %d characters or less", maxChatMessageLength)
	}

	for i, m := range req.History {
		if m.Role != "user" && m.Role != "assistant" {
			errors[fmt.Sprintf("history[%d].role", i)] = fmt.Sprintf("invalid role: %s", m.Role)
		}
	}

	for _, t := range req.OverlapTickers {
		if err := ValidateTicker(t); err != nil {
			errors["overlapTickers"] = err.Error()
			break
		}
	}

	return errorOrNil(errors)
}

// ValidateFundType checks an optional fund type filter.
func ValidateFundType(fundType string) error {
	if fundType == "" || model.FundType(fundType).Valid() {
		return nil
	}
	return &Error{Fields: map[string]string{"type": fmt.Sprintf("invalid fund type: %s", fundType)}}
}
