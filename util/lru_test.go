package util_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wkalt/bindec/util"
)

func TestLRU(t *testing.T) {
	t.Run("simple inserts", func(t *testing.T) {
		lru := util.NewLRU[int, string](100)
		lru.Put(1, "a")
		lru.Put(2, "b")
		v, ok := lru.Get(2)
		assert.True(t, ok)
		assert.Equal(t, "b", v)
	})
	t.Run("eviction", func(t *testing.T) {
		lru := util.NewLRU[int, string](2)
		lru.Put(1, "a")
		lru.Put(2, "b")
		lru.Put(3, "c")
		_, ok := lru.Get(1)
		assert.False(t, ok)
		_, ok = lru.Get(3)
		assert.True(t, ok)
	})
	t.Run("get key that does not exist", func(t *testing.T) {
		lru := util.NewLRU[int, string](100)
		_, ok := lru.Get(1)
		assert.False(t, ok)
	})
	t.Run("reset the cache", func(t *testing.T) {
		lru := util.NewLRU[int, string](100)
		lru.Put(1, "a")
		lru.Reset()
		_, ok := lru.Get(1)
		assert.False(t, ok)
	})
	t.Run("get protects from eviction", func(t *testing.T) {
		lru := util.NewLRU[int, string](2)
		lru.Put(1, "a")
		lru.Put(2, "b")
		_, ok := lru.Get(1)
		assert.True(t, ok)
		lru.Put(3, "c")
		_, ok = lru.Get(1)
		assert.True(t, ok)
		_, ok = lru.Get(2)
		assert.False(t, ok)
	})
	t.Run("overwrite updates the value", func(t *testing.T) {
		lru := util.NewLRU[int, string](100)
		lru.Put(1, "a")
		lru.Put(1, "ab")
		v, ok := lru.Get(1)
		assert.True(t, ok)
		assert.Equal(t, "ab", v)
	})
}
