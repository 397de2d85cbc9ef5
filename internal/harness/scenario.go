package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/brplusa/spacelink/internal/space"
)

// Scenario defines a scripted run against a fresh store.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// GroupTokens are handed out in order, one per connect step. A single
	// token is reused for every connect. If empty, tokens are "group-1",
	// "group-2", ...
	GroupTokens []string `yaml:"group_tokens,omitempty"`

	// Tolerance is the absolute tolerance for drift and sync steps.
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Flow contains the steps, executed in order.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final state and trace.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is a single operation in the flow.
type Step struct {
	// Op is one of connect, disconnect, remove, drift, sync.
	Op string `yaml:"op"`

	// Spaces is the input of connect, drift and sync.
	Spaces []space.External `yaml:"spaces,omitempty"`

	// IDs is the input of disconnect.
	IDs []string `yaml:"ids,omitempty"`

	// ID is the input of remove.
	ID string `yaml:"id,omitempty"`

	// Expect specifies the expected outcome. If nil the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ids returns the space ids the step operates on.
func (s Step) ids() []string {
	switch {
	case len(s.Spaces) > 0:
		ids := make([]string, len(s.Spaces))
		for i, sp := range s.Spaces {
			ids[i] = sp.ID
		}
		return ids
	case len(s.IDs) > 0:
		return s.IDs
	case s.ID != "":
		return []string{s.ID}
	}
	return nil
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Outcome is "ok" or an error code such as GROUP_MERGE_UNSUPPORTED.
	Outcome string `yaml:"outcome"`

	// Drifted lists the ids a drift step must report, in input order.
	// Ignored when nil.
	Drifted []string `yaml:"drifted,omitempty"`
}

// Assertion validates the final state or the trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "peers": ConnectedIDs of ID equal Peers
	// - "tracked": ID is tracked iff Tracked
	// - "specified": specified airflows of ID equal Airflow
	// - "consistent": no invariant violations
	// - "trace_count": Op appears exactly Count times
	// - "trace_order": Ops appear in order
	Type string `yaml:"type"`

	ID      string         `yaml:"id,omitempty"`
	Peers   []string       `yaml:"peers,omitempty"`
	Tracked *bool          `yaml:"tracked,omitempty"`
	Airflow *space.Airflow `yaml:"airflow,omitempty"`
	Op      string         `yaml:"op,omitempty"`
	Count   int            `yaml:"count,omitempty"`
	Ops     []string       `yaml:"ops,omitempty"`
}

// Operation names.
const (
	OpConnect    = "connect"
	OpDisconnect = "disconnect"
	OpRemove     = "remove"
	OpDrift      = "drift"
	OpSync       = "sync"
)

// Assertion type constants.
const (
	AssertPeers      = "peers"
	AssertTracked    = "tracked"
	AssertSpecified  = "specified"
	AssertConsistent = "consistent"
	AssertTraceCount = "trace_count"
	AssertTraceOrder = "trace_order"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Tolerance < 0 {
		return fmt.Errorf("tolerance must be non-negative")
	}

	connects := 0
	for i, step := range s.Flow {
		if err := validateStep(i, &step); err != nil {
			return err
		}
		if step.Op == OpConnect {
			connects++
		}
	}

	if len(s.GroupTokens) > 1 && len(s.GroupTokens) < connects {
		return fmt.Errorf("group_tokens has %d entries but flow has %d connect steps", len(s.GroupTokens), connects)
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep validates a single step based on its op.
func validateStep(index int, s *Step) error {
	switch s.Op {
	case "":
		return fmt.Errorf("flow[%d]: op is required", index)
	case OpConnect, OpDrift, OpSync:
		if len(s.Spaces) == 0 {
			return fmt.Errorf("flow[%d]: spaces is required for %s", index, s.Op)
		}
	case OpDisconnect:
		if len(s.IDs) == 0 {
			return fmt.Errorf("flow[%d]: ids is required for disconnect", index)
		}
	case OpRemove:
		if s.ID == "" {
			return fmt.Errorf("flow[%d]: id is required for remove", index)
		}
	default:
		return fmt.Errorf("flow[%d]: unknown op %q", index, s.Op)
	}

	if s.Expect != nil {
		if s.Expect.Outcome == "" {
			return fmt.Errorf("flow[%d].expect: outcome is required", index)
		}
		if s.Expect.Drifted != nil && s.Op != OpDrift {
			return fmt.Errorf("flow[%d].expect: drifted is only valid for drift", index)
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertPeers:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for peers", index)
		}
	case AssertTracked:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for tracked", index)
		}
		if a.Tracked == nil {
			return fmt.Errorf("assertions[%d]: tracked is required for tracked", index)
		}
	case AssertSpecified:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for specified", index)
		}
		if a.Airflow == nil {
			return fmt.Errorf("assertions[%d]: airflow is required for specified", index)
		}
	case AssertConsistent:
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
