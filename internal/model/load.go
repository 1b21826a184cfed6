package model

import "time"

// LoadState is the per-ticker state of a loader run.
type LoadState string

const (
	LoadStateQueued        LoadState = "queued"
	LoadStateFetched       LoadState = "fetched"
	LoadStatePersisted     LoadState = "persisted"
	LoadStateUnchanged     LoadState = "unchanged"
	LoadStateFetchFailed   LoadState = "fetch_failed"
	LoadStatePersistFailed LoadState = "persist_failed"
)

// Terminal reports whether no further transition is possible from s.
func (s LoadState) Terminal() bool {
	switch s {
	case LoadStatePersisted, LoadStateUnchanged, LoadStateFetchFailed, LoadStatePersistFailed:
		return true
	}
	return false
}

// TickerOutcome records what happened to one ticker during a run.
type TickerOutcome struct {
	Ticker   string    `json:"ticker"`
	Depth    int       `json:"depth"`
	State    LoadState `json:"state"`
	NewFund  bool      `json:"newFund"`
	Holdings int       `json:"holdings"`
	Children []string  `json:"children,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// LoadSummary is the report of one loader run.
// Succeeded lists funds created by the run, Updated lists existing funds that
// received a new filing, Unchanged lists funds whose latest filing was already stored.
type LoadSummary struct {
	RunID      string          `json:"runId"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
	Seeds      []string        `json:"seeds"`
	MaxDepth   int             `json:"maxDepth"`
	Succeeded  []string        `json:"succeeded"`
	Updated    []string        `json:"updated"`
	Unchanged  []string        `json:"unchanged"`
	Failed     []string        `json:"failed"`
	Outcomes   []TickerOutcome `json:"outcomes"`
}

// Duration returns the wall time of the run.
func (s LoadSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Outcome returns the recorded outcome for ticker, if any.
func (s LoadSummary) Outcome(ticker string) (TickerOutcome, bool) {
	for _, o := range s.Outcomes {
		if o.Ticker == ticker {
			return o, true
		}
	}
	return TickerOutcome{}, false
}

// RelinkSummary is the report of a ticker back-fill and edge rebuild.
type RelinkSummary struct {
	CUSIPsQueried  int `json:"cusipsQueried"`
	TickersFilled  int `json:"tickersFilled"`
	HoldingsLinked int `json:"holdingsLinked"`
	Relationships  int `json:"relationships"`
}
