package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDimensionCache_MarkAndSeen(t *testing.T) {
	c := NewDimensionCache(time.Minute)

	assert.False(t, c.Seen("genre:28"))
	c.Mark("genre:28")
	assert.True(t, c.Seen("genre:28"))
	assert.False(t, c.Seen("genre:12"))
}

func TestDimensionCache_Expiry(t *testing.T) {
	c := NewDimensionCache(time.Minute)
	current := time.Now()
	c.now = func() time.Time { return current }

	c.Mark("person:500")
	assert.True(t, c.Seen("person:500"))

	current = current.Add(2 * time.Minute)
	assert.False(t, c.Seen("person:500"))
}

func TestDimensionCache_Invalidate(t *testing.T) {
	c := NewDimensionCache(time.Minute)

	c.Mark("company:7")
	c.Invalidate("company:7")
	assert.False(t, c.Seen("company:7"))
}

func TestDimensionCache_ZeroTTLDisables(t *testing.T) {
	c := NewDimensionCache(0)

	c.Mark("language:en")
	assert.False(t, c.Seen("language:en"))
}

func TestDimensionCache_NilSafe(t *testing.T) {
	var c *DimensionCache

	assert.NotPanics(t, func() {
		c.Mark("genre:1")
		c.Invalidate("genre:1")
		c.Reset()
		assert.False(t, c.Seen("genre:1"))
	})
}
