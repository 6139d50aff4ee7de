package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantiq/climatechat/config"
	"github.com/verdantiq/climatechat/schema"
)

func TestFingerprintNormalizesQuery(t *testing.T) {
	a := Fingerprint("  What is  Climate Change? ", "en", "nova-pro")
	b := Fingerprint("what is climate change?", "en", "nova-pro")
	assert.Equal(t, a, b)
}

func TestFingerprintVariesByLanguageAndModel(t *testing.T) {
	base := Fingerprint("what is climate change", "en", "nova-pro")
	assert.NotEqual(t, base, Fingerprint("what is climate change", "es", "nova-pro"))
	assert.NotEqual(t, base, Fingerprint("what is climate change", "en", "command-a-03-2025"))
}

func TestLRUEviction(t *testing.T) {
	c := NewLRU(2, time.Minute)
	c.Set("a", &schema.PipelineResult{ResponseText: "one"}, 0)
	c.Set("b", &schema.PipelineResult{ResponseText: "two"}, 0)
	c.Set("c", &schema.PipelineResult{ResponseText: "three"}, 0)

	_, ok := c.Get("a")
	assert.False(t, ok)
	v, ok := c.Get("c")
	require.True(t, ok)
	assert.Equal(t, "three", v.ResponseText)
}

func TestLRURecentUseSurvivesEviction(t *testing.T) {
	c := NewLRU(2, time.Minute)
	c.Set("a", &schema.PipelineResult{ResponseText: "one"}, 0)
	c.Set("b", &schema.PipelineResult{ResponseText: "two"}, 0)
	_, ok := c.Get("a")
	require.True(t, ok)
	c.Set("c", &schema.PipelineResult{ResponseText: "three"}, 0)

	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestLRUExpiry(t *testing.T) {
	c := NewLRU(8, time.Minute)
	c.Set("k", &schema.PipelineResult{ResponseText: "short lived"}, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestResponseCacheClonesEntries(t *testing.T) {
	rc, err := NewResponseCache(context.Background(), config.CacheConfig{
		L1: &config.L1CacheConfig{Enable: true, MaxEntries: 16, TTLSeconds: 60},
	})
	require.NoError(t, err)

	key := Fingerprint("what is the greenhouse effect", "en", "nova-pro")
	rc.Set(context.Background(), key, &schema.PipelineResult{ResponseText: "original"})

	got, ok := rc.Get(context.Background(), key)
	require.True(t, ok)
	got.ResponseText = "mutated"

	again, ok := rc.Get(context.Background(), key)
	require.True(t, ok)
	assert.Equal(t, "original", again.ResponseText)
}

func TestResponseCacheDisabledTiersMiss(t *testing.T) {
	rc, err := NewResponseCache(context.Background(), config.CacheConfig{})
	require.NoError(t, err)
	_, ok := rc.Get(context.Background(), "anything")
	assert.False(t, ok)
}
