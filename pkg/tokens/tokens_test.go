package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimate(t *testing.T) {
	assert.Equal(t, 0, Estimate(""))
	assert.Equal(t, 25, Estimate(strings.Repeat("a", 100)))
}

func TestCounterCount(t *testing.T) {
	c := NewCounter()
	assert.Equal(t, 0, c.Count(""))
	assert.Greater(t, c.Count("where is my order for the gaming monitor"), 0)
}

func TestNilCounterFallsBack(t *testing.T) {
	var c *Counter
	assert.Equal(t, 10, c.Count(strings.Repeat("x", 40)))
}
