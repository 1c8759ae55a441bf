package util

import (
	"sync"
)

/*
A small LRU cache, used to hold compiled schemas keyed by definition hash.
*/

////////////////////////////////////////////////////////////////////////////////

// LRU is a fixed-capacity LRU cache. It is safe for concurrent use.
type LRU[K comparable, V any] struct {
	cache      map[K]*listNode[K, V]
	head, tail *listNode[K, V]
	count      int64
	cap        int64
	mtx        *sync.Mutex
}

type listNode[K comparable, V any] struct {
	key        K
	value      V
	prev, next *listNode[K, V]
}

// NewLRU returns a new LRU cache with the given capacity.
func NewLRU[K comparable, V any](capacity int64) *LRU[K, V] {
	head, tail := &listNode[K, V]{}, &listNode[K, V]{}
	head.next = tail
	tail.prev = head
	return &LRU[K, V]{
		cache: make(map[K]*listNode[K, V]),
		head:  head,
		tail:  tail,
		cap:   capacity,
		mtx:   &sync.Mutex{},
	}
}

// Reset clears the cache.
func (lru *LRU[K, V]) Reset() {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	lru.cache = make(map[K]*listNode[K, V])
	lru.head.next = lru.tail
	lru.tail.prev = lru.head
	lru.count = 0
}

func (lru *LRU[K, V]) addToFront(node *listNode[K, V]) {
	node.next = lru.head.next
	node.prev = lru.head
	lru.head.next.prev = node
	lru.head.next = node
}

func (lru *LRU[K, V]) removeNode(node *listNode[K, V]) {
	node.prev.next = node.next
	node.next.prev = node.prev
}

// Put adds a key-value pair to the cache, updating the value if the key
// already exists.
func (lru *LRU[K, V]) Put(key K, value V) {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	if node, exists := lru.cache[key]; exists {
		node.value = value
		lru.removeNode(node)
		lru.addToFront(node)
		return
	}
	node := &listNode[K, V]{key: key, value: value}
	lru.cache[key] = node
	lru.addToFront(node)
	lru.count++
	for lru.count > lru.cap {
		lru.evict()
	}
}

// Get returns the value associated with the given key. The second return
// value is true if the key exists in the cache.
func (lru *LRU[K, V]) Get(key K) (V, bool) {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	if node, exists := lru.cache[key]; exists {
		lru.removeNode(node)
		lru.addToFront(node)
		return node.value, true
	}
	var v V
	return v, false
}

func (lru *LRU[K, V]) evict() {
	if lru.tail.prev == lru.head {
		return
	}
	lru.count--
	delete(lru.cache, lru.tail.prev.key)
	lru.removeNode(lru.tail.prev)
}
