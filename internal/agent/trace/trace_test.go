package trace

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChainConfidenceIsProduct(t *testing.T) {
	c := New("where is my order", "s1")
	assert.Equal(t, 0.0, c.Confidence())

	c.Add(StepQueryReceived, "received", "analyse", 1.0, nil)
	c.Add(StepPatternMatch, "matched", "pattern path", 0.85, nil)
	c.Add(StepExecutionPlanning, "planned", "1 batch", 0.5, nil)

	assert.InDelta(t, 0.425, c.Confidence(), 1e-9)
	snap := c.Snapshot()
	assert.Len(t, snap.Steps, 3)
	assert.Equal(t, 3, snap.Steps[2].Number)
	assert.Contains(t, c.Summary(), "pattern_match")
}

func TestChainConcurrentAdd(t *testing.T) {
	c := New("q", "s")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Add(StepErrorRecovery, "retry", "direct", 1, nil)
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, c.Len())
}
