package policy

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/applylens/inbox-policy/internal/core"
)

var (
	// ErrUnknownOperator is returned for leaf operators outside the supported set
	ErrUnknownOperator = errors.New("unknown operator")
	// ErrMalformedCondition is returned for nodes that are neither a leaf nor a combinator
	ErrMalformedCondition = errors.New("malformed condition")
)

// Operator is a leaf comparison operator
type Operator string

const (
	OpEq       Operator = "="
	OpNe       Operator = "!="
	OpGt       Operator = ">"
	OpLt       Operator = "<"
	OpGte      Operator = ">="
	OpLte      Operator = "<="
	OpIn       Operator = "in"
	OpNotIn    Operator = "not_in"
	OpContains Operator = "contains"
	OpRegex    Operator = "regex"
)

var supportedOperators = map[Operator]bool{
	OpEq: true, OpNe: true, OpGt: true, OpLt: true, OpGte: true, OpLte: true,
	OpIn: true, OpNotIn: true, OpContains: true, OpRegex: true,
}

// Special leaf values
const (
	ValueNow  = "now"
	ValueNull = "null"
)

// Node is a compiled condition tree node
type Node interface {
	Eval(ctx Context) bool
}

// Leaf compares one context field against a literal value
type Leaf struct {
	Field    string
	Operator Operator
	Value    interface{}

	pattern *regexp.Regexp
}

// CombinatorKind selects how child results are combined
type CombinatorKind string

const (
	All CombinatorKind = "all"
	Any CombinatorKind = "any"
)

// Combinator joins child nodes with all/any semantics
type Combinator struct {
	Kind     CombinatorKind
	Children []Node
}

// Compile turns a serialized condition into a node tree
func Compile(c core.Condition) (Node, error) {
	isLeaf := c.Field != "" || c.OperatorName() != ""
	isAll := c.All != nil
	isAny := c.Any != nil

	kinds := 0
	for _, set := range []bool{isLeaf, isAll, isAny} {
		if set {
			kinds++
		}
	}
	if kinds != 1 {
		return nil, fmt.Errorf("%w: node must be exactly one of leaf, all, any", ErrMalformedCondition)
	}

	switch {
	case isAll:
		return compileCombinator(All, c.All)
	case isAny:
		return compileCombinator(Any, c.Any)
	default:
		return compileLeaf(c)
	}
}

func compileCombinator(kind CombinatorKind, children []core.Condition) (Node, error) {
	if len(children) == 0 {
		return nil, fmt.Errorf("%w: empty %s", ErrMalformedCondition, kind)
	}
	node := &Combinator{Kind: kind, Children: make([]Node, 0, len(children))}
	for i, child := range children {
		n, err := Compile(child)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", kind, i, err)
		}
		node.Children = append(node.Children, n)
	}
	return node, nil
}

func compileLeaf(c core.Condition) (Node, error) {
	if c.Field == "" {
		return nil, fmt.Errorf("%w: leaf without field", ErrMalformedCondition)
	}
	op := Operator(strings.ToLower(strings.TrimSpace(c.OperatorName())))
	if op == "==" {
		op = OpEq
	}
	if !supportedOperators[op] {
		return nil, fmt.Errorf("%w %q on field %q", ErrUnknownOperator, c.OperatorName(), c.Field)
	}

	leaf := &Leaf{Field: c.Field, Operator: op, Value: c.Value}
	if op == OpRegex {
		pattern, ok := c.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: regex value for %q must be a string", ErrMalformedCondition, c.Field)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid regex for %q: %v", ErrMalformedCondition, c.Field, err)
		}
		leaf.pattern = re
	}
	return leaf, nil
}

// Eval combines child results. Evaluation is pure, so short-circuiting is
// not observable.
func (c *Combinator) Eval(ctx Context) bool {
	switch c.Kind {
	case All:
		for _, child := range c.Children {
			if !child.Eval(ctx) {
				return false
			}
		}
		return true
	case Any:
		for _, child := range c.Children {
			if child.Eval(ctx) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Eval applies the operator to the context field. A missing field is false,
// except for comparisons against "null".
func (l *Leaf) Eval(ctx Context) bool {
	actual, present := ctx.Lookup(l.Field)

	if s, ok := l.Value.(string); ok && s == ValueNull {
		switch l.Operator {
		case OpEq:
			return !present
		case OpNe:
			return present
		default:
			return false
		}
	}

	if !present {
		return false
	}

	expected := l.Value
	if s, ok := expected.(string); ok && s == ValueNow {
		expected = ctx.Now()
	}

	switch l.Operator {
	case OpEq:
		return equal(actual, expected)
	case OpNe:
		return !equal(actual, expected)
	case OpGt, OpLt, OpGte, OpLte:
		cmp, ok := compare(actual, expected)
		if !ok {
			return false
		}
		switch l.Operator {
		case OpGt:
			return cmp > 0
		case OpLt:
			return cmp < 0
		case OpGte:
			return cmp >= 0
		default:
			return cmp <= 0
		}
	case OpIn:
		return in(actual, expected)
	case OpNotIn:
		list, ok := toList(expected)
		if !ok {
			return false
		}
		return !in(actual, list)
	case OpContains:
		return contains(actual, expected)
	case OpRegex:
		s, ok := actual.(string)
		return ok && l.pattern.MatchString(s)
	default:
		return false
	}
}

// Context resolves field names during evaluation
type Context interface {
	Lookup(field string) (interface{}, bool)
	Now() time.Time
}
