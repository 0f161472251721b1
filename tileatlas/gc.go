package tileatlas

import (
	"container/list"
	"sync"
)

// retainBatch is a set of keys an upper layer (document) has promised are
// still in use, submitted via RetainKeysNewBatch. A batch is a unit of
// eviction: when the atlas needs space it discards the whole oldest batch,
// never a partial one, so a caller can reason about what got evicted as a
// single event.
type retainBatch struct {
	id   uint64
	keys []TileKey
}

// evictedBatch is a batch the gc discarded to make room, queued for the
// caller to observe via DrainEvictedRetainBatches.
type evictedBatch struct {
	id   uint64
	keys []TileKey
}

// retainGC tracks retained batches in LRU order (front = most recently
// retained) and records what it evicts until the caller drains it. It
// never evicts on its own schedule; Atlas.Allocate calls evictOldest only
// when allocation would otherwise fail.
//
// Grounded on gpu.MemoryManager's container/list LRU (internal/gpu/memory.go):
// same front-push/back-evict shape, adapted from a byte budget to a batch
// count since tile identity, not size, is what the atlas is short on.
type retainGC struct {
	mu      sync.Mutex
	order   *list.List
	elems   map[uint64]*list.Element
	evicted []evictedBatch
	nextID  uint64
}

func newRetainGC() *retainGC {
	return &retainGC{
		order: list.New(),
		elems: make(map[uint64]*list.Element),
	}
}

func (g *retainGC) retainKeysNewBatch(keys []TileKey) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID
	g.nextID++
	b := &retainBatch{id: id, keys: append([]TileKey(nil), keys...)}
	g.elems[id] = g.order.PushFront(b)
	return id
}

// evictOldest discards the least-recently-retained batch and returns its
// keys, or ok=false if no batch remains to evict.
func (g *retainGC) evictOldest() (keys []TileKey, id uint64, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e := g.order.Back()
	if e == nil {
		return nil, 0, false
	}
	b := e.Value.(*retainBatch)
	g.order.Remove(e)
	delete(g.elems, b.id)
	g.evicted = append(g.evicted, evictedBatch{id: b.id, keys: b.keys})
	return b.keys, b.id, true
}

func (g *retainGC) drainEvicted() []evictedBatch {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := g.evicted
	g.evicted = nil
	return out
}

func (g *retainGC) batchCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.order.Len()
}
