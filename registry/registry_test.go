package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoHandler(callerID string, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	return args, nil
}

func TestLookupPrefersNonDefaultDomain(t *testing.T) {
	r := New(nil)
	r.Register("greet", DefaultDomain, echoHandler, false)
	r.Register("greet", "restricted", echoHandler, false)

	predicates := map[string]Predicate{
		"restricted": func(callerID string, entry *Entry) bool { return callerID == "alice" },
	}

	entry, ok := r.Lookup("greet", "alice", predicates)
	require.True(t, ok)
	assert.Equal(t, "restricted", entry.Domain)

	entry, ok = r.Lookup("greet", "mallory", predicates)
	require.True(t, ok)
	assert.Equal(t, DefaultDomain, entry.Domain)
}

func TestLookupFallsBackToParent(t *testing.T) {
	parent := New(nil)
	parent.Register("shared", DefaultDomain, echoHandler, false)

	child := New(parent)
	_, ok := child.Lookup("shared", "anyone", nil)
	require.True(t, ok)
}

func TestLookupMissingReturnsFalse(t *testing.T) {
	r := New(nil)
	_, ok := r.Lookup("nope", "anyone", nil)
	assert.False(t, ok)
}

func TestListIsStableAndDeduplicated(t *testing.T) {
	r := New(nil)
	r.Register("a", DefaultDomain, echoHandler, false)
	r.Register("b", "restricted", echoHandler, false)
	r.Register("a", "restricted", echoHandler, false)

	names := r.List()
	assert.Equal(t, []string{"b", "a"}, names)
}

func TestRegisterReplacesSameNameDomain(t *testing.T) {
	r := New(nil)
	calls := 0
	r.Register("n", DefaultDomain, func(string, []interface{}, map[string]interface{}) (interface{}, error) {
		calls = 1
		return nil, nil
	}, false)
	r.Register("n", DefaultDomain, func(string, []interface{}, map[string]interface{}) (interface{}, error) {
		calls = 2
		return nil, nil
	}, false)

	entry, ok := r.Lookup("n", "x", nil)
	require.True(t, ok)
	_, _ = entry.Handler("x", nil, nil)
	assert.Equal(t, 2, calls)
	assert.Len(t, r.List(), 1)
}
