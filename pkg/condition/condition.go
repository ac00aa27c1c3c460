// Package condition evaluates the comparison lists of if/else steps.
package condition

import (
	"math"
	"reflect"
	"strings"

	"github.com/common-fate/flow/pkg/expr"
	"github.com/spf13/cast"
)

type Operator string

const (
	Equals      Operator = "equals"
	NotEquals   Operator = "notEquals"
	Contains    Operator = "contains"
	GreaterThan Operator = "greaterThan"
	LessThan    Operator = "lessThan"
	IsEmpty     Operator = "isEmpty"
)

type ValueType string

const (
	String  ValueType = "string"
	Number  ValueType = "number"
	Boolean ValueType = "boolean"
)

// LogicalOp joins a condition onto the result of the conditions before it.
type LogicalOp string

const (
	And LogicalOp = "AND"
	Or  LogicalOp = "OR"
)

// Branch labels, matching the if/else output handles.
const (
	BranchTrue  = "true"
	BranchFalse = "false"
)

type Condition struct {
	// Field is a path into the run, e.g. 'body.status'.
	Field     string    `mapstructure:"field"`
	Operator  Operator  `mapstructure:"operator"`
	ValueType ValueType `mapstructure:"valueType,omitempty"`
	Value     any       `mapstructure:"value,omitempty"`
	// LogicalOp is ignored on the first condition.
	LogicalOp LogicalOp `mapstructure:"logicalOp,omitempty"`
}

// Outcome of a single condition.
type Outcome struct {
	Field  string
	Actual any
	Found  bool
	Result bool
}

type Result struct {
	Result       bool
	PerCondition []Outcome
	// Branch is BranchTrue or BranchFalse.
	Branch string
}

// Evaluate a list of conditions against the scope.
//
// Conditions are folded strictly left to right: the first result seeds
// the accumulator and each following condition is combined with AND or OR
// according to its own LogicalOp. There is no precedence, so
// 'a OR b AND c' means '(a OR b) AND c'.
//
// An empty list evaluates to true.
func Evaluate(conds []Condition, scope expr.Scope) Result {
	res := Result{Result: true, Branch: BranchTrue}
	for i, c := range conds {
		actual, found := scope.Lookup(c.Field)
		o := Outcome{
			Field:  c.Field,
			Actual: actual,
			Found:  found,
			Result: compare(c, actual, found),
		}
		res.PerCondition = append(res.PerCondition, o)

		switch {
		case i == 0:
			res.Result = o.Result
		case strings.EqualFold(string(c.LogicalOp), string(Or)):
			res.Result = res.Result || o.Result
		default:
			res.Result = res.Result && o.Result
		}
	}
	if !res.Result {
		res.Branch = BranchFalse
	}
	return res
}

func compare(c Condition, actual any, found bool) bool {
	if c.Operator == IsEmpty {
		return !found || empty(actual)
	}
	if !found || actual == nil {
		return false
	}

	switch c.Operator {
	case Equals:
		return equal(c.ValueType, actual, c.Value)
	case NotEquals:
		return !equal(c.ValueType, actual, c.Value)
	case Contains:
		want := expr.Stringify(c.Value)
		if s, ok := actual.(string); ok {
			return strings.Contains(s, want)
		}
		rv := reflect.ValueOf(actual)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			for i := 0; i < rv.Len(); i++ {
				if expr.Stringify(rv.Index(i).Interface()) == want {
					return true
				}
			}
			return false
		}
		return strings.Contains(expr.Stringify(actual), want)
	case GreaterThan, LessThan:
		a, aok := toNumber(actual)
		b, bok := toNumber(c.Value)
		if !aok || !bok {
			return false
		}
		if c.Operator == GreaterThan {
			return a > b
		}
		return a < b
	}
	return false
}

func equal(vt ValueType, actual, want any) bool {
	switch vt {
	case Number:
		a, aok := toNumber(actual)
		b, bok := toNumber(want)
		return aok && bok && a == b
	case Boolean:
		a, aok := toBool(actual)
		b, bok := toBool(want)
		return aok && bok && a == b
	}
	return expr.Stringify(actual) == expr.Stringify(want)
}

func empty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	}
	return false
}

// toNumber coerces a decoded value to a float. Strings are trimmed
// first; NaN is never a number.
func toNumber(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// toBool coerces a decoded value to a boolean. Numbers are true when non-zero.
func toBool(v any) (bool, bool) {
	if v == nil {
		return false, false
	}
	if f, ok := v.(float64); ok && math.IsNaN(f) {
		return false, false
	}
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}
	if b, err := cast.ToBoolE(v); err == nil {
		return b, true
	}
	if _, ok := v.(string); ok {
		return false, false
	}
	if f, ok := toNumber(v); ok {
		return f != 0, true
	}
	return false, false
}
