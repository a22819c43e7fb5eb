package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

type countingObserver struct {
	hits, misses int
}

func (o *countingObserver) ObserveCacheLookup(hit bool) {
	if hit {
		o.hits++
	} else {
		o.misses++
	}
}

func TestNormalizeAndKey(t *testing.T) {
	assert.Equal(t, "where is my order", Normalize("  Can you please tell me WHERE is   my order "))
	assert.Equal(t, Key("show the refund status"), Key("refund   status please"))
	assert.Len(t, Key("anything"), 16)
	// whole words only
	assert.Equal(t, "cancel order", Normalize("cancel the order"))
}

func TestRoundTripUntilTTL(t *testing.T) {
	clock := newClock()
	c := New(10, time.Hour, WithClock(clock.Now))

	c.Set("where is my refund", model.CachedIntent{
		Intent:     model.IntentRefundRequest,
		Confidence: 0.9,
		Services:   []model.ServiceName{model.ServiceOrder, model.ServicePayment},
	})

	got, ok := c.Get("Where is my refund")
	require.True(t, ok)
	assert.Equal(t, model.IntentRefundRequest, got.Intent)
	assert.Equal(t, time.Hour, got.TTL)

	clock.Advance(time.Hour + time.Second)
	_, ok = c.Get("where is my refund")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestEvictsExactlyOneOldest(t *testing.T) {
	clock := newClock()
	c := New(3, time.Hour, WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("query %d", i), model.CachedIntent{Intent: fmt.Sprint(i)})
		clock.Advance(time.Second)
	}
	// touching the oldest does not refresh it
	_, ok := c.Get("query 0")
	require.True(t, ok)

	c.Set("query 3", model.CachedIntent{Intent: "3"})
	assert.Equal(t, 3, c.Len())

	_, ok = c.Get("query 0")
	assert.False(t, ok)
	for _, q := range []string{"query 1", "query 2", "query 3"} {
		_, ok := c.Get(q)
		assert.True(t, ok, q)
	}
}

func TestOverwriteDoesNotEvict(t *testing.T) {
	c := New(2, time.Hour)
	c.Set("a1", model.CachedIntent{Intent: "x"})
	c.Set("b1", model.CachedIntent{Intent: "y"})
	c.Set("a1", model.CachedIntent{Intent: "z"})
	assert.Equal(t, 2, c.Len())
	got, ok := c.Get("a1")
	require.True(t, ok)
	assert.Equal(t, "z", got.Intent)
}

func TestStatsAndObserver(t *testing.T) {
	obs := &countingObserver{}
	c := New(5, time.Hour, WithObserver(obs))
	c.Set("q1", model.CachedIntent{Intent: "x"})
	c.Get("q1")
	c.Get("q2")
	c.Get("q3")

	s := c.Stats()
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(2), s.Misses)
	assert.InDelta(t, 1.0/3.0, s.HitRate, 1e-9)
	assert.Equal(t, 1, s.Size)
	assert.Equal(t, 5, s.MaxSize)
	assert.Equal(t, 1, obs.hits)
	assert.Equal(t, 2, obs.misses)
}

func TestConcurrentSetRespectsBound(t *testing.T) {
	c := New(16, time.Hour)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q := fmt.Sprintf("g%d q%d", g, i)
				c.Set(q, model.CachedIntent{Intent: q})
				c.Get(q)
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 16)
}
