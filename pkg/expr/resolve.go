package expr

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Scope looks up a path in the current run.
type Scope interface {
	Lookup(path string) (any, bool)
}

// ScopeFunc adapts a function to a Scope.
type ScopeFunc func(path string) (any, bool)

func (f ScopeFunc) Lookup(path string) (any, bool) { return f(path) }

var placeholder = regexp.MustCompile(`\{\{(.+?)\}\}`)

// Resolve replaces each {{ path }} placeholder in the template with
// the string form of the value it resolves to.
//
// Placeholders which don't resolve (or resolve to null) are left in
// place verbatim, so that a broken reference stays visible in the output.
func Resolve(template string, scope Scope) string {
	if !strings.Contains(template, "{{") {
		return template
	}
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		path := strings.TrimSpace(m[2 : len(m)-2])
		if path == "" {
			return m
		}
		v, ok := scope.Lookup(path)
		if !ok || v == nil {
			return m
		}
		return Stringify(v)
	})
}

// Placeholders returns the paths referenced by a template, in order.
func Placeholders(template string) []string {
	var paths []string
	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		paths = append(paths, strings.TrimSpace(m[1]))
	}
	return paths
}

// Stringify renders a value for substitution into a string.
// Numbers are rendered without trailing zeros, and maps and
// lists are rendered as JSON.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case time.Time:
		return t.Format(time.RFC3339)
	case time.Duration:
		return t.String()
	case []byte:
		return string(t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
