package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/brplusa/spacelink/internal/drift"
	"github.com/brplusa/spacelink/internal/relate"
	"github.com/brplusa/spacelink/internal/space"
	"github.com/brplusa/spacelink/internal/store"
	"github.com/brplusa/spacelink/internal/testutil"
)

// OutcomeNotTracked is the outcome of a drift or sync step on an untracked space.
const OutcomeNotTracked = "NOT_TRACKED"

// Harness executes scenario steps against one store.
type Harness struct {
	engine   *relate.Engine
	detector *drift.Detector
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh store in its own temporary directory,
// removed before Run returns. The returned error reports harness failures
// (temp dir, store) only; step and assertion failures are recorded in the
// result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "spacelink-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario directory: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, space.StoreFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario store: %w", err)
	}
	defer st.Close()

	var tokens relate.GroupTokenGenerator
	switch len(scenario.GroupTokens) {
	case 0:
		tokens = testutil.NewSequentialGroupGenerator()
	case 1:
		tokens = testutil.NewFixedGroupGenerator(scenario.GroupTokens[0])
	default:
		tokens = relate.NewFixedGenerator(scenario.GroupTokens...)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in scenario runs
	h := &Harness{
		engine:   relate.New(st, relate.WithGroupTokens(tokens), relate.WithLogger(logger)),
		detector: drift.New(st, drift.WithTolerance(scenario.Tolerance), drift.WithLogger(logger)),
		logger:   logger,
	}

	result := NewResult()
	for i, step := range scenario.Flow {
		h.executeStep(ctx, i, step, result)
	}

	state, err := st.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read final state: %w", err)
	}
	result.State = state

	actx := &AssertionContext{Engine: h.engine, Ctx: ctx}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeStep runs one step, traces it and checks its expect clause.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) {
	var (
		err     error
		drifted []string
	)
	switch step.Op {
	case OpConnect:
		err = h.engine.CreateGroup(ctx, step.Spaces)
	case OpDisconnect:
		err = h.engine.BreakGroup(ctx, step.IDs...)
	case OpRemove:
		err = h.engine.BreakOne(ctx, step.ID)
	case OpDrift:
		drifted, err = h.drifted(ctx, step.Spaces)
	case OpSync:
		drifted, err = h.drifted(ctx, step.Spaces)
		for _, sp := range step.Spaces {
			if err != nil {
				break
			}
			if slices.Contains(drifted, sp.ID) {
				err = h.detector.ApplyUpdate(ctx, sp.ID, sp.Design)
			}
		}
	}

	got := Outcome(err)
	result.AddTrace(step.Op, step.ids(), got, drifted)
	h.logger.Info("step executed", "step", index, "op", step.Op, "outcome", got)

	want := OutcomeOK
	if step.Expect != nil {
		want = step.Expect.Outcome
	}
	if got != want {
		msg := fmt.Sprintf("flow[%d] %s: expected outcome %s, got %s", index, step.Op, want, got)
		if err != nil {
			msg += fmt.Sprintf(" (%v)", err)
		}
		result.AddError(msg)
		return
	}

	if step.Expect != nil && step.Expect.Drifted != nil && !slices.Equal(step.Expect.Drifted, drifted) {
		result.AddError(fmt.Sprintf("flow[%d] drift: expected drifted %v, got %v", index, step.Expect.Drifted, drifted))
	}
}

// drifted returns the ids of spaces whose cached values differ from their
// design values, in input order.
func (h *Harness) drifted(ctx context.Context, spaces []space.External) ([]string, error) {
	ids := []string{}
	for _, sp := range spaces {
		needs, err := h.detector.NeedsUpdate(ctx, sp.ID, sp.Design)
		if err != nil {
			return ids, err
		}
		if needs {
			ids = append(ids, sp.ID)
		}
	}
	return ids, nil
}

// Outcome names the result of an operation: OutcomeOK for nil, the engine
// error code for engine errors, OutcomeNotTracked for drift lookups of
// untracked spaces, and "ERROR" otherwise.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	var be *relate.BatchError
	if errors.As(err, &be) {
		return string(be.Code())
	}
	if errors.Is(err, drift.ErrNotTracked) {
		return OutcomeNotTracked
	}
	if code := relate.CodeOf(err); code != "" {
		return string(code)
	}
	return "ERROR"
}
