package condition

import (
	"math"
	"testing"

	"github.com/common-fate/flow/pkg/expr"
	"github.com/stretchr/testify/assert"
)

func scope(m map[string]any) expr.Scope {
	return expr.ScopeFunc(func(path string) (any, bool) {
		return expr.Lookup(m, path)
	})
}

func TestEvaluate_Operators(t *testing.T) {
	ctx := map[string]any{
		"name":   "alice",
		"count":  5,
		"ratio":  "2.5",
		"active": true,
		"tags":   []any{"a", "b"},
		"blank":  "  ",
		"empty":  []any{},
		"null":   nil,
	}

	tests := []struct {
		name string
		give Condition
		want bool
	}{
		{"equals string", Condition{Field: "name", Operator: Equals, ValueType: String, Value: "alice"}, true},
		{"equals string mismatch", Condition{Field: "name", Operator: Equals, ValueType: String, Value: "bob"}, false},
		{"equals number coerces", Condition{Field: "count", Operator: Equals, ValueType: Number, Value: "5"}, true},
		{"equals boolean coerces", Condition{Field: "active", Operator: Equals, ValueType: Boolean, Value: "true"}, true},
		{"not equals", Condition{Field: "name", Operator: NotEquals, ValueType: String, Value: "bob"}, true},
		{"contains substring", Condition{Field: "name", Operator: Contains, Value: "lic"}, true},
		{"contains list element", Condition{Field: "tags", Operator: Contains, Value: "b"}, true},
		{"contains missing element", Condition{Field: "tags", Operator: Contains, Value: "c"}, false},
		{"greater than", Condition{Field: "count", Operator: GreaterThan, ValueType: Number, Value: 3}, true},
		{"greater than string number", Condition{Field: "ratio", Operator: GreaterThan, ValueType: Number, Value: "2"}, true},
		{"less than", Condition{Field: "count", Operator: LessThan, ValueType: Number, Value: 3}, false},
		{"greater than non number", Condition{Field: "name", Operator: GreaterThan, ValueType: Number, Value: 3}, false},
		{"is empty blank string", Condition{Field: "blank", Operator: IsEmpty}, true},
		{"is empty list", Condition{Field: "empty", Operator: IsEmpty}, true},
		{"is empty null", Condition{Field: "null", Operator: IsEmpty}, true},
		{"is empty with value", Condition{Field: "name", Operator: IsEmpty}, false},
		{"missing field is empty", Condition{Field: "nope", Operator: IsEmpty}, true},
		{"missing field never equals", Condition{Field: "nope", Operator: Equals, Value: ""}, false},
		{"missing field never not equals", Condition{Field: "nope", Operator: NotEquals, Value: "x"}, false},
		{"missing field never contains", Condition{Field: "nope", Operator: Contains, Value: ""}, false},
		{"null never greater than", Condition{Field: "null", Operator: GreaterThan, Value: -1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate([]Condition{tt.give}, scope(ctx))
			assert.Equal(t, tt.want, got.Result)
			if tt.want {
				assert.Equal(t, BranchTrue, got.Branch)
			} else {
				assert.Equal(t, BranchFalse, got.Branch)
			}
		})
	}
}

func TestEvaluate_Folding(t *testing.T) {
	ctx := map[string]any{"a": "1"}
	yes := Condition{Field: "a", Operator: Equals, Value: "1"}
	no := Condition{Field: "a", Operator: Equals, Value: "2"}
	or := func(c Condition) Condition { c.LogicalOp = Or; return c }
	and := func(c Condition) Condition { c.LogicalOp = And; return c }

	tests := []struct {
		name string
		give []Condition
		want bool
	}{
		{"no conditions", nil, true},
		{"single", []Condition{no}, false},
		{"and", []Condition{yes, and(no)}, false},
		{"or", []Condition{no, or(yes)}, true},
		{"default is and", []Condition{yes, no}, false},
		// strictly left to right: (yes OR yes) AND no
		{"or then and", []Condition{yes, or(yes), and(no)}, false},
		// (no AND no) OR yes
		{"and then or", []Condition{no, and(no), or(yes)}, true},
		// (yes OR no) AND yes, where precedence would give the same
		{"mixed", []Condition{yes, or(no), and(yes)}, true},
		{"lowercase or", []Condition{no, {Field: "a", Operator: Equals, Value: "1", LogicalOp: "or"}}, true},
		// the first condition's operator is ignored
		{"leading or ignored", []Condition{or(no), yes}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.give, scope(ctx))
			assert.Equal(t, tt.want, got.Result)
			assert.Len(t, got.PerCondition, len(tt.give))
		})
	}
}

func TestEvaluate_PerCondition(t *testing.T) {
	got := Evaluate([]Condition{
		{Field: "body.status", Operator: Equals, ValueType: Number, Value: 200},
		{Field: "body.missing", Operator: IsEmpty, LogicalOp: And},
	}, scope(map[string]any{"body": map[string]any{"status": 200}}))

	assert.Equal(t, []Outcome{
		{Field: "body.status", Actual: 200, Found: true, Result: true},
		{Field: "body.missing", Actual: nil, Found: false, Result: true},
	}, got.PerCondition)
	assert.Equal(t, BranchTrue, got.Branch)
}

func TestCoercion(t *testing.T) {
	tests := []struct {
		name     string
		give     any
		wantNum  float64
		numOK    bool
		wantBool bool
		boolOK   bool
	}{
		{name: "int", give: 3, wantNum: 3, numOK: true, wantBool: true, boolOK: true},
		{name: "float", give: 2.5, wantNum: 2.5, numOK: true, wantBool: true, boolOK: true},
		{name: "zero float", give: 0.0, numOK: true, boolOK: true},
		{name: "padded string", give: " 7 ", wantNum: 7, numOK: true, wantBool: false, boolOK: false},
		{name: "bool string", give: "true", numOK: false, wantBool: true, boolOK: true},
		{name: "bool", give: true, wantNum: 1, numOK: true, wantBool: true, boolOK: true},
		{name: "word", give: "maybe"},
		{name: "nil", give: nil},
		{name: "NaN", give: math.NaN(), numOK: false, boolOK: false},
		{name: "map", give: map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := toNumber(tt.give)
			assert.Equal(t, tt.numOK, ok)
			if tt.numOK {
				assert.Equal(t, tt.wantNum, n)
			}
			b, ok := toBool(tt.give)
			assert.Equal(t, tt.boolOK, ok)
			if tt.boolOK {
				assert.Equal(t, tt.wantBool, b)
			}
		})
	}
}
