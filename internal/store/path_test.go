package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetGetPath(t *testing.T) {
	data := map[string]any{"a": "scalar"}

	SetPath(data, "a.b.c", 1)
	v, ok := GetPath(data, "a.b.c")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = GetPath(data, "a.x")
	assert.False(t, ok)

	SetPath(data, "top", "v")
	v, ok = GetPath(data, "top")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestAppendPath(t *testing.T) {
	data := map[string]any{}
	assert.NoError(t, appendPath(data, "log", "a"))
	assert.NoError(t, appendPath(data, "log", "b", "c"))
	assert.Equal(t, []any{"a", "b", "c"}, data["log"])

	data["scalar"] = "x"
	assert.Error(t, appendPath(data, "scalar", "y"))
}

func TestMatches(t *testing.T) {
	data := map[string]any{"status": "open", "n": float64(3), "nested": map[string]any{"k": "v"}}

	assert.True(t, matches(data, []Predicate{Eq("status", "open")}))
	assert.True(t, matches(data, []Predicate{Eq("n", "3")}))
	assert.True(t, matches(data, []Predicate{Eq("nested.k", "v")}))
	assert.True(t, matches(data, []Predicate{In("status", []string{"closed", "open"})}))
	assert.False(t, matches(data, []Predicate{Eq("status", "closed")}))
	assert.False(t, matches(data, []Predicate{Eq("missing", "")}))
}

func TestCheckField(t *testing.T) {
	assert.NoError(t, CheckField("agent_contact_back.timestamps"))
	assert.NoError(t, CheckField("Agent_chat"))
	assert.Error(t, CheckField(""))
	assert.Error(t, CheckField("a..b"))
	assert.Error(t, CheckField("a'b"))
}
