package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func newTestCache(ttl time.Duration) (*Cache[int], *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New[int](ttl, WithClock(clk.now), WithoutCleanup()), clk
}

func TestGetSetExpiry(t *testing.T) {
	c, clk := newTestCache(time.Minute)

	c.Set("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	clk.advance(59 * time.Second)
	_, ok = c.Get("a")
	assert.True(t, ok)

	clk.advance(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Len(t, c.items, 1)

	c.removeExpired()
	assert.Empty(t, c.items)
}

func TestZeroTTLNeverRetains(t *testing.T) {
	c, _ := newTestCache(0)
	c.Set("k", 1)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestDelete(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.True(t, ok)
}

func TestCloseTwice(t *testing.T) {
	c := New[string](time.Millisecond)
	c.Close()
	c.Close()
}
