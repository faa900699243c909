// Package celrules compiles operator-defined CEL expressions into review rules.
package celrules

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/review"
)

// ErrInvalidRule is returned for definitions that cannot be compiled.
var ErrInvalidRule = errors.New("invalid custom rule")

// Definition is a custom rule as written in the reference file.
type Definition struct {
	ID             string          `json:"id" yaml:"id"`
	Name           string          `json:"name" yaml:"name"`
	Vertical       string          `json:"vertical" yaml:"vertical"`
	Category       string          `json:"category" yaml:"category"`
	Severity       domain.Severity `json:"severity" yaml:"severity"`
	Expression     string          `json:"expression" yaml:"expression"`
	Impact         string          `json:"impact,omitempty" yaml:"impact,omitempty"`
	Description    string          `json:"description" yaml:"description"`
	Recommendation string          `json:"recommendation" yaml:"recommendation"`
}

// Compiled holds the programs of one definition.
type Compiled struct {
	Def      Definition
	variable string
	cond     cel.Program
	impact   cel.Program
}

// Engine owns the CEL environment for one entity variable.
type Engine struct {
	variable string
	env      *cel.Env
}

// NewEngine creates an engine whose expressions see the entity as variable,
// a map keyed by the entity's JSON field names.
func NewEngine(variable string) (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable(variable, cel.MapType(cel.StringType, cel.DynType)),
		// JSON numbers decode as doubles; let them compare with int literals.
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Engine{variable: variable, env: env}, nil
}

// Variable returns the name expressions use for the entity.
func (e *Engine) Variable() string {
	return e.variable
}

// Compile validates and compiles def. categories is the vocabulary the
// definition's category must belong to.
func Compile[C ~string](e *Engine, def Definition, categories []C) (*Compiled, error) {
	switch {
	case strings.TrimSpace(def.ID) == "":
		return nil, fmt.Errorf("%w: id is required", ErrInvalidRule)
	case strings.TrimSpace(def.Expression) == "":
		return nil, fmt.Errorf("%w: rule %s: expression is required", ErrInvalidRule, def.ID)
	case !def.Severity.Valid():
		return nil, fmt.Errorf("%w: rule %s: unknown severity %q", ErrInvalidRule, def.ID, def.Severity)
	case !slices.Contains(categories, C(def.Category)):
		return nil, fmt.Errorf("%w: rule %s: category %q is not valid for vertical %s", ErrInvalidRule, def.ID, def.Category, def.Vertical)
	}

	cond, err := e.program(def.ID, def.Expression, cel.BoolType)
	if err != nil {
		return nil, err
	}
	c := &Compiled{Def: def, variable: e.variable, cond: cond}
	if def.Impact != "" {
		if c.impact, err = e.program(def.ID, def.Impact, cel.DoubleType, cel.IntType); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (e *Engine) program(id, expr string, want ...*cel.Type) (cel.Program, error) {
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: failed to compile rule %s: %v", ErrInvalidRule, id, issues.Err())
	}

	// Field access on the map is dynamic; the concrete type is checked at
	// evaluation time.
	outputType := ast.OutputType()
	if outputType != cel.DynType && !slices.Contains(want, outputType) {
		return nil, fmt.Errorf("%w: rule %s: expression must return %v, got %s", ErrInvalidRule, id, want, outputType)
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", id, err)
	}
	return program, nil
}

// Match evaluates the condition and impact against facts.
func (c *Compiled) Match(facts map[string]any) (matched bool, impact *float64, err error) {
	activation := map[string]any{c.variable: facts}

	out, _, err := c.cond.Eval(activation)
	if err != nil {
		return false, nil, fmt.Errorf("rule %s: evaluation error: %w", c.Def.ID, err)
	}
	b, ok := out.(types.Bool)
	if !ok {
		return false, nil, fmt.Errorf("rule %s: expression returned %s, not bool", c.Def.ID, out.Type())
	}
	if !b || c.impact == nil {
		return bool(b), nil, nil
	}

	out, _, err = c.impact.Eval(activation)
	if err != nil {
		return true, nil, fmt.Errorf("rule %s: impact evaluation error: %w", c.Def.ID, err)
	}
	v, ok := toFloat(out)
	if !ok {
		return true, nil, fmt.Errorf("rule %s: impact returned %s, not a number", c.Def.ID, out.Type())
	}
	return true, &v, nil
}

func toFloat(val ref.Val) (float64, bool) {
	switch v := val.(type) {
	case types.Double:
		return float64(v), true
	case types.Int:
		return float64(v), true
	case types.Uint:
		return float64(v), true
	default:
		return 0, false
	}
}

// Rule adapts c to a review rule. facts converts the entity to the map the
// expression sees.
func Rule[E any, C ~string](c *Compiled, facts func(E) (map[string]any, error)) review.Rule[E, C] {
	def := c.Def
	desc := def.Description
	if desc == "" {
		desc = def.Name
	}
	return review.Rule[E, C]{
		ID:       def.ID,
		Name:     def.Name,
		Category: C(def.Category),
		Check: func(e E) (*domain.Finding[C], error) {
			m, err := facts(e)
			if err != nil {
				return nil, err
			}
			matched, impact, err := c.Match(m)
			if err != nil || !matched {
				return nil, err
			}
			return &domain.Finding[C]{
				Severity:        def.Severity,
				Description:     desc,
				Recommendation:  def.Recommendation,
				FinancialImpact: impact,
			}, nil
		},
	}
}

// Build compiles the definitions belonging to vertical into rules.
// Any invalid definition fails the whole build.
func Build[E any, C ~string](vertical, variable string, defs []Definition, categories []C, facts func(E) (map[string]any, error)) ([]review.Rule[E, C], error) {
	var engine *Engine
	var out []review.Rule[E, C]
	for _, def := range defs {
		if def.Vertical != vertical {
			continue
		}
		if engine == nil {
			var err error
			if engine, err = NewEngine(variable); err != nil {
				return nil, err
			}
		}
		c, err := Compile(engine, def, categories)
		if err != nil {
			return nil, err
		}
		out = append(out, Rule[E, C](c, facts))
	}
	return out, nil
}

// Facts converts v to a map through its JSON encoding. Numbers become doubles.
func Facts[E any](v E) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode facts: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode facts: %w", err)
	}
	return m, nil
}
