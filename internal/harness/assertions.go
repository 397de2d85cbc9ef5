package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/brplusa/spacelink/internal/relate"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %v -> %s\n", event.Seq, event.Op, event.IDs, event.Outcome)
		}
	}

	return buf.String()
}

// AssertionContext gives assertions access to the engine after the flow.
type AssertionContext struct {
	Engine *relate.Engine
	Ctx    context.Context
}

// EvaluateAssertions runs all assertions and returns their failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertPeers:
			err = assertPeers(actx, a)
		case AssertTracked:
			err = assertTracked(actx, a)
		case AssertSpecified:
			err = assertSpecified(actx, a)
		case AssertConsistent:
			err = assertConsistent(actx)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// assertPeers checks the record's peers, ignoring order of the expectation.
func assertPeers(actx *AssertionContext, a Assertion) error {
	rec, found, err := actx.Engine.Find(actx.Ctx, a.ID)
	if err != nil {
		return err
	}
	if !found {
		return &AssertionError{
			Type:     AssertPeers,
			Expected: fmt.Sprintf("%s connected to %v", a.ID, a.Peers),
			Actual:   "space not tracked",
		}
	}

	want := slices.Clone(a.Peers)
	slices.Sort(want)
	if !slices.Equal(want, rec.ConnectedIDs) {
		return &AssertionError{
			Type:     AssertPeers,
			Expected: fmt.Sprintf("%s connected to %v", a.ID, want),
			Actual:   fmt.Sprintf("connected to %v", rec.ConnectedIDs),
		}
	}
	return nil
}

func assertTracked(actx *AssertionContext, a Assertion) error {
	tracked, err := actx.Engine.IsTracked(actx.Ctx, a.ID)
	if err != nil {
		return err
	}
	if tracked != *a.Tracked {
		return &AssertionError{
			Type:     AssertTracked,
			Expected: fmt.Sprintf("%s tracked=%t", a.ID, *a.Tracked),
			Actual:   fmt.Sprintf("tracked=%t", tracked),
		}
	}
	return nil
}

func assertSpecified(actx *AssertionContext, a Assertion) error {
	rec, found, err := actx.Engine.Find(actx.Ctx, a.ID)
	if err != nil {
		return err
	}
	if !found {
		return &AssertionError{
			Type:     AssertSpecified,
			Expected: fmt.Sprintf("%s specified %+v", a.ID, *a.Airflow),
			Actual:   "space not tracked",
		}
	}
	if rec.Specified != *a.Airflow {
		return &AssertionError{
			Type:     AssertSpecified,
			Expected: fmt.Sprintf("%s specified %+v", a.ID, *a.Airflow),
			Actual:   fmt.Sprintf("specified %+v", rec.Specified),
		}
	}
	return nil
}

func assertConsistent(actx *AssertionContext) error {
	violations, err := actx.Engine.Verify(actx.Ctx)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		msgs := make([]string, len(violations))
		for i, v := range violations {
			msgs[i] = v.String()
		}
		return &AssertionError{
			Type:     AssertConsistent,
			Expected: "no violations",
			Actual:   strings.Join(msgs, "; "),
		}
	}
	return nil
}

// assertTraceCount checks if the op appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Op == a.Op {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Op),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceOrder checks if ops appear in the specified order.
// Ops don't need to be consecutive (intervening steps are allowed).
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, event := range trace {
		if next < len(a.Ops) && event.Op == a.Ops[next] {
			next++
		}
	}

	if next < len(a.Ops) {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("ops in order: %v", a.Ops),
			Actual:   fmt.Sprintf("matched %d of %d, missing %s", next, len(a.Ops), a.Ops[next]),
			Trace:    trace,
		}
	}
	return nil
}
