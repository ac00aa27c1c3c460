package runctx

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContext_Record(t *testing.T) {
	c := New()
	c.Record("a", map[string]any{"x": 1})
	c.Record("b", "out")

	assert.Equal(t, []string{"a", "b"}, c.Path())
	assert.Equal(t, 1, c.PathIndex("b"))
	assert.Equal(t, -1, c.PathIndex("c"))

	out, ok := c.Output("b")
	assert.True(t, ok)
	assert.Equal(t, "out", out)

	// copies can't mutate the context
	outputs := c.Outputs()
	delete(outputs, "a")
	_, ok = c.Output("a")
	assert.True(t, ok)
}

func TestContext_Lookup(t *testing.T) {
	c := New()
	c.Record("http", map[string]any{"body": map[string]any{"id": 42}})
	c.SetVariables(map[string]any{"userId": "u1", "http": "shadowed"})
	input := map[string]any{"status": 200, "body": map[string]any{"id": 1}}

	tests := []struct {
		path   string
		want   any
		wantOK bool
	}{
		{"userId", "u1", true},
		{"http", "shadowed", true},
		{"status", 200, true},
		{"body.id", 1, true},
		{"response.body.id", 1, true},
		{"nope", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := c.Lookup(tt.path, input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	c2 := New()
	c2.Record("http", map[string]any{"body": map[string]any{"id": 42}})
	got, ok := c2.Scope(nil).Lookup("http.body.id")
	assert.True(t, ok)
	assert.Equal(t, 42, got)
}

func TestContext_Fail(t *testing.T) {
	c := New()
	c.Fail("a", "boom")
	assert.Equal(t, []NodeError{{NodeID: "a", Message: "boom"}}, c.Errors())
}

func TestContext_Concurrent(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.SetVariables(map[string]any{"v": i})
			c.Variables()
			c.Path()
		}(i)
	}
	wg.Wait()
	_, ok := c.Variable("v")
	assert.True(t, ok)
}

func TestStatuses(t *testing.T) {
	s := NewStatuses()
	assert.Equal(t, Idle, s.Get("a"))

	assert.NoError(t, s.Transition("a", Running))
	assert.NoError(t, s.Transition("a", Success))
	assert.Error(t, s.Transition("a", Running))

	assert.NoError(t, s.Transition("b", Skipped))
	assert.Error(t, s.Transition("b", Running))

	assert.Error(t, s.Transition("c", Success))

	assert.Equal(t, map[string]Status{"a": Success, "b": Skipped}, s.Map())
	assert.True(t, Skipped.Terminal())
	assert.False(t, Running.Terminal())

	s.Reset()
	assert.Empty(t, s.Map())
}
