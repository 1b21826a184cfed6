package handlers

import (
	"net/http"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/api/middleware"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/api/request"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/api/response"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/apperrors"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/chat"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/validation"
)

// ChatHandler handles questions to the fund assistant.
type ChatHandler struct {
	assistant *chat.Assistant
	apiKey    string
}

// NewChatHandler creates a new ChatHandler. A nil assistant answers every
// request with 503. Only requests carrying apiKey may load unknown funds.
func NewChatHandler(assistant *chat.Assistant, apiKey string) *ChatHandler {
	return &ChatHandler{assistant: assistant, apiKey: apiKey}
}

// Chat handles POST requests with a question about stored funds.
//
// Endpoint: POST /api/chat
// Response: 200 OK with chat.Reply
// Error: 400 Bad Request for invalid input, 503 when the assistant is not configured,
// 502 Bad Gateway when the model call fails
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	if h.assistant == nil {
		response.RespondError(w, http.StatusServiceUnavailable, apperrors.ErrChatDisabled.Error(), "GEMINI_API_KEY is not set")
		return
	}

	req, err := parseJSON[request.ChatRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := validation.ValidateChatRequest(req); err != nil {
		respondValidation(w, err)
		return
	}

	history := make([]chat.Message, len(req.History))
	for i, m := range req.History {
		history[i] = chat.Message{Role: m.Role, Content: m.Content}
	}

	reply, err := h.assistant.Ask(r.Context(), chat.Request{
		Message:        req.Message,
		History:        history,
		OverlapTickers: req.OverlapTickers,
		AllowLoad:      middleware.HasAPIKey(r, h.apiKey),
	})
	if err != nil {
		response.RespondError(w, http.StatusBadGateway, "failed to answer question", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, reply)
}
