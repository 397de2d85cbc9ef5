package harness

import "github.com/brplusa/spacelink/internal/space"

// OutcomeOK is the outcome of a step that succeeded.
const OutcomeOK = "ok"

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq     int64    `json:"seq"`
	Op      string   `json:"op"`
	IDs     []string `json:"ids"`
	Outcome string   `json:"outcome"`
	Drifted []string `json:"drifted,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step matched its expectation and every
	// assertion held.
	Pass bool `json:"pass"`

	// Trace contains the executed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is every record in the store after the flow, ordered by id.
	State []space.Record `json:"state"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  []space.Record{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(op string, ids []string, outcome string, drifted []string) {
	if ids == nil {
		ids = []string{}
	}
	r.Trace = append(r.Trace, TraceEvent{
		Seq:     int64(len(r.Trace) + 1),
		Op:      op,
		IDs:     ids,
		Outcome: outcome,
		Drifted: drifted,
	})
}
