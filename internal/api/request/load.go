package request

// LoadRequest represents the request body for triggering a loader run
type LoadRequest struct {
	Seeds []string `json:"seeds"`
	Wait  bool     `json:"wait"`
}
