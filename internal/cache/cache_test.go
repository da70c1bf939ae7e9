package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	s := New(time.Minute)
	s.Set("k", "v")

	v, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestOverwrite(t *testing.T) {
	s := New(time.Minute)
	s.Set("k", "old")
	s.Set("k", "new")

	v, _ := s.Get("k")
	assert.Equal(t, "new", v)
	assert.Equal(t, 1, s.Len())
}

func TestExpiry(t *testing.T) {
	s := New(10 * time.Millisecond)
	s.Set("k", "v")

	time.Sleep(25 * time.Millisecond)

	_, ok := s.Get("k")
	assert.False(t, ok, "stale entry must not be served")
}

func TestReset(t *testing.T) {
	s := New(time.Minute)
	s.Set("a", 1)
	s.Set("b", 2)

	s.Reset()

	_, ok := s.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}
