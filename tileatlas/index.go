package tileatlas

import "sync"

// indexShardCount mirrors cache.ShardedCache's sharding: a small fixed power
// of two spreads lock contention across concurrent allocate/resolve/release
// calls from the engine and GPU threads without the bookkeeping of a
// dynamically sized shard table.
const indexShardCount = 16

type indexShard struct {
	mu sync.RWMutex
	m  map[TileKey]TileAddress
}

// index is the key→address map backing Resolve. It never evicts: entries
// live exactly as long as their key is allocated, and are removed by
// Release, not by any capacity pressure.
type index struct {
	shards [indexShardCount]*indexShard
}

func newIndex() *index {
	idx := &index{}
	for i := range idx.shards {
		idx.shards[i] = &indexShard{m: make(map[TileKey]TileAddress)}
	}
	return idx
}

func (idx *index) shardFor(k TileKey) *indexShard {
	return idx.shards[uint64(k)&(indexShardCount-1)]
}

func (idx *index) set(k TileKey, a TileAddress) {
	sh := idx.shardFor(k)
	sh.mu.Lock()
	sh.m[k] = a
	sh.mu.Unlock()
}

func (idx *index) get(k TileKey) (TileAddress, bool) {
	sh := idx.shardFor(k)
	sh.mu.RLock()
	a, ok := sh.m[k]
	sh.mu.RUnlock()
	return a, ok
}

func (idx *index) delete(k TileKey) bool {
	sh := idx.shardFor(k)
	sh.mu.Lock()
	_, ok := sh.m[k]
	delete(sh.m, k)
	sh.mu.Unlock()
	return ok
}
