package request

// ChatMessage is one prior turn of a chat conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents the request body for a chat question
type ChatRequest struct {
	Message        string        `json:"message"`
	History        []ChatMessage `json:"history,omitempty"`
	OverlapTickers []string      `json:"overlapTickers,omitempty"`
}
