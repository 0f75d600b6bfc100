package ghost

import (
	_ "embed"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

//go:embed historical.yaml
var historicalYAML []byte

type historicalFile struct {
	Version string           `yaml:"version"`
	Rules   []historicalRule `yaml:"rules"`
}

type historicalRule struct {
	Name        string `yaml:"name"`
	Kind        Kind   `yaml:"kind"`
	Condition   string `yaml:"condition"`
	Explanation string `yaml:"explanation"`
}

// CELRule is a historical rule whose predicate is a compiled CEL expression
// over the variables input, zone, year, month, day, hour and minute.
type CELRule struct {
	name        string
	kind        Kind
	explanation string
	program     cel.Program
}

var _ Rule = (*CELRule)(nil)

func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("input", cel.StringType),
		cel.Variable("zone", cel.StringType),
		cel.Variable("year", cel.IntType),
		cel.Variable("month", cel.IntType),
		cel.Variable("day", cel.IntType),
		cel.Variable("hour", cel.IntType),
		cel.Variable("minute", cel.IntType),
	)
}

// LoadHistorical compiles the rules in a historical table. Every condition
// is compiled once here; evaluation never re-parses.
func LoadHistorical(data []byte) ([]Rule, error) {
	var file historicalFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "failed to parse historical ghost rules")
	}
	if !semver.IsValid(file.Version) {
		return nil, errors.Errorf("historical ghost rules: invalid version %q", file.Version)
	}

	env, err := newEnv()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create CEL environment")
	}

	rules := make([]Rule, 0, len(file.Rules))
	seen := make(map[string]bool, len(file.Rules))
	for _, r := range file.Rules {
		if r.Name == "" || seen[r.Name] {
			return nil, errors.Errorf("historical ghost rules: missing or duplicate name %q", r.Name)
		}
		seen[r.Name] = true
		if r.Kind != KindSkippedHistorical && r.Kind != KindDeletedHistorical {
			return nil, errors.Errorf("historical ghost rule %s: kind %q is not historical", r.Name, r.Kind)
		}

		ast, iss := env.Compile(r.Condition)
		if iss != nil && iss.Err() != nil {
			return nil, errors.Wrapf(iss.Err(), "historical ghost rule %s", r.Name)
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, errors.Errorf("historical ghost rule %s: condition must be boolean, got %s", r.Name, ast.OutputType())
		}
		program, err := env.Program(ast)
		if err != nil {
			return nil, errors.Wrapf(err, "historical ghost rule %s", r.Name)
		}
		rules = append(rules, &CELRule{name: r.Name, kind: r.Kind, explanation: r.Explanation, program: program})
	}
	return rules, nil
}

func (r *CELRule) Name() string { return r.name }

func (r *CELRule) Kind() Kind { return r.kind }

// Check evaluates the predicate. Evaluation errors count as no match.
func (r *CELRule) Check(s Subject) (*Match, bool) {
	out, _, err := r.program.Eval(map[string]any{
		"input":  s.Input,
		"zone":   s.Zone,
		"year":   int64(s.Year),
		"month":  int64(s.Month),
		"day":    int64(s.Day),
		"hour":   int64(s.Hour),
		"minute": int64(s.Minute),
	})
	if err != nil {
		return nil, false
	}
	if hit, ok := out.Value().(bool); !ok || !hit {
		return nil, false
	}
	return &Match{Rule: r.name, Kind: r.kind, Explanation: r.explanation}, true
}
