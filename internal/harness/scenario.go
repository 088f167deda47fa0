package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: a program to execute, extra
// facts to append afterward, and assertions over the resulting log.
type Scenario struct {
	// Name uniquely identifies this scenario. Doubles as the golden file
	// name for trace comparison.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Program is inline CUE source compiled and executed first. Optional;
	// a scenario may exercise appends alone.
	Program string `yaml:"program,omitempty"`

	// Appends are fact rows appended one at a time after the program runs.
	// Each row has 3 fields (context auto-assigned) or 4. Field strings
	// use the same syntax as program fields but must be ground.
	Appends [][]any `yaml:"appends,omitempty"`

	// Queries are named one-shot patterns evaluated after all appends,
	// in addition to any queries the program declares.
	Queries map[string][][]any `yaml:"queries,omitempty"`

	// TokenPrefix seeds deterministic context tokens. Defaults to "tok",
	// yielding tok-1, tok-2, ... in assignment order.
	TokenPrefix string `yaml:"token_prefix,omitempty"`

	// Assertions validate the final log, query results, and rule states.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Assertion validates one aspect of a scenario run.
type Assertion struct {
	// Type selects the check:
	// - "fact_count": the log holds exactly Count facts
	// - "fact_present": some fact matches Fact (3 fields, any context, or 4)
	// - "fact_absent": no fact matches Fact
	// - "query_count": query Query produced exactly Count bindings
	// - "rule_active": rule Rule is active (or retracted if Active is false)
	Type string `yaml:"type"`

	Count  int    `yaml:"count,omitempty"`
	Fact   []any  `yaml:"fact,omitempty"`
	Query  string `yaml:"query,omitempty"`
	Rule   string `yaml:"rule,omitempty"`
	Active *bool  `yaml:"active,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so a typo like "assertion:" fails loudly instead of silently
// checking nothing.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

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

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Program == "" && len(s.Appends) == 0 {
		return fmt.Errorf("scenario %q has neither a program nor appends", s.Name)
	}
	for i, a := range s.Assertions {
		switch a.Type {
		case "fact_count", "query_count":
			// Count of zero is a legitimate expectation.
		case "fact_present", "fact_absent":
			if len(a.Fact) != 3 && len(a.Fact) != 4 {
				return fmt.Errorf("assertion %d: fact needs 3 or 4 fields, got %d", i, len(a.Fact))
			}
		case "rule_active":
			if a.Rule == "" {
				return fmt.Errorf("assertion %d: rule name is required", i)
			}
		default:
			return fmt.Errorf("assertion %d: unknown type %q", i, a.Type)
		}
	}
	return nil
}
