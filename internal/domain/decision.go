package domain

import "time"

// Decision is the daily rebalancing decision returned by the LLM.
type Decision struct {
	DailySummary string  `json:"daily_summary"`
	Orders       []Order `json:"orders"`
	Explanation  string  `json:"explanation"`
}

// WeeklyResearch is the output of the weekly deep-research run. Research is
// free-form markdown; Orders may be empty.
type WeeklyResearch struct {
	Research string  `json:"research"`
	Orders   []Order `json:"orders"`
}

// DecisionEvent is the journal record of one decision-source invocation,
// written after the resulting orders have been applied.
type DecisionEvent struct {
	Timestamp    time.Time `json:"ts"`
	Job          string    `json:"job"`
	Model        string    `json:"model,omitempty"`
	Summary      string    `json:"summary,omitempty"`
	Explanation  string    `json:"explanation,omitempty"`
	Orders       []Order   `json:"orders,omitempty"`
	PreviousCash float64   `json:"previous_cash,omitempty"`
	NewCash      float64   `json:"new_cash,omitempty"`
}

// DecisionEventRecord bundles a journaled decision event with its WAL index.
type DecisionEventRecord struct {
	Index uint64
	Event DecisionEvent
}
