package tileatlas

import (
	"fmt"
	"sync/atomic"
)

// nextOwnerTag is a process-wide monotonic counter stamping every Atlas
// with a tag unique among atlases in this process, so a TileSetHandle
// minted by one atlas is rejected by another (ErrForeignTileSet) rather
// than silently misinterpreting its slot indices.
var nextOwnerTag atomic.Uint64

func allocOwnerTag() uint64 {
	return nextOwnerTag.Add(1)
}

// Atlas is the tile store: a fixed number of fixed-size layers, each a grid
// of TileStride x TileStride slots, addressed by opaque TileKeys that
// outlive any particular slot assignment.
type Atlas struct {
	cfg      Config
	ownerTag uint64
	idx      *index
	layers   []*slotState
	queue    *opQueue
	gc       *retainGC

	nextKey atomic.Uint64
	rrHint  atomic.Uint32
}

// New validates cfg and constructs an empty Atlas with every slot in every
// layer free.
func New(cfg Config) (*Atlas, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	totalPerLayer := cfg.TilesPerRow * cfg.TilesPerColumn
	a := &Atlas{
		cfg:      cfg,
		ownerTag: allocOwnerTag(),
		idx:      newIndex(),
		layers:   make([]*slotState, cfg.MaxLayers),
		queue:    newOpQueue(),
		gc:       newRetainGC(),
	}
	for i := range a.layers {
		a.layers[i] = newSlotState(totalPerLayer)
	}
	return a, nil
}

func (a *Atlas) Config() Config { return a.cfg }

// nextTileKey issues the next never-reused key. Add wraps a uint64 back to
//0 on overflow; since 0 is reserved and never issued, that wrap is exactly
// the exhaustion condition.
func (a *Atlas) nextTileKey() (TileKey, error) {
	v := a.nextKey.Add(1)
	if v == 0 {
		return 0, ErrKeySpaceExhausted
	}
	return TileKey(v), nil
}

// allocateSlot finds a free slot in some layer, spreading successive
// allocations round-robin across layers so no single layer is preferred
// and starved while others sit empty.
func (a *Atlas) allocateSlot() (layer int, slot uint32, ok bool) {
	n := len(a.layers)
	start := int(a.rrHint.Add(1)-1) % n
	for i := 0; i < n; i++ {
		l := (start + i) % n
		if s, got := a.layers[l].popFree(); got {
			return l, s, true
		}
	}
	return 0, 0, false
}

// evictForSpace discards the single oldest retained batch, releasing its
// keys back to their layers' free pools. Returns false if no batch remains
// to evict.
func (a *Atlas) evictForSpace() bool {
	keys, _, ok := a.gc.evictOldest()
	if !ok {
		return false
	}
	for _, k := range keys {
		a.releaseKey(k)
	}
	return true
}

func (a *Atlas) releaseKey(key TileKey) bool {
	addr, ok := a.idx.get(key)
	if !ok {
		return false
	}
	a.idx.delete(key)
	a.layers[addr.Layer].pushFree(addr.TileIndex)
	return true
}

// Allocate reserves a fresh slot and mints a new key bound to it. If every
// layer is full, Allocate evicts retained batches (oldest first) until a
// slot frees up or no batch remains, in which case it returns
// ErrAtlasFull. If the freed slot was still marked dirty from a prior
// occupant, Allocate enqueues a clear for it so the GPU thread scrubs
// stale content before anything samples the new key.
func (a *Atlas) Allocate() (TileKey, error) {
	layer, slot, ok := a.allocateSlot()
	for !ok {
		if !a.evictForSpace() {
			return 0, ErrAtlasFull
		}
		layer, slot, ok = a.allocateSlot()
	}

	key, err := a.nextTileKey()
	if err != nil {
		a.layers[layer].pushFree(slot)
		return 0, err
	}

	addr := TileAddress{Layer: uint32(layer), TileIndex: slot}
	if a.layers[layer].takeDirty(slot) {
		gen := a.layers[layer].currentGeneration(slot)
		a.queue.pushClear(addr, gen)
	}
	a.idx.set(key, addr)
	return key, nil
}

// Release frees key's slot immediately. No GPU work is enqueued: the slot
// is simply marked dirty so a future Allocate clears it before reuse.
// Release reports false if key does not currently resolve.
func (a *Atlas) Release(key TileKey) bool {
	return a.releaseKey(key)
}

// Resolve returns the atlas address currently bound to key.
func (a *Atlas) Resolve(key TileKey) (TileAddress, bool) {
	return a.idx.get(key)
}

// IngestTile allocates a key and enqueues an upload of a tightly packed
// (unstrided) TileSize x TileSize RGBA8 payload. It is IngestTileRGBA8Strided
// with stride fixed to TileSize*BytesPerTexelRGBA8.
func (a *Atlas) IngestTile(payload []byte) (TileKey, bool, error) {
	return a.IngestTileRGBA8Strided(payload, TileSize*BytesPerTexelRGBA8)
}

// IngestTileRGBA8Strided allocates a key and enqueues an upload of a
// TileSize x TileSize RGBA8 region read from payload at the given row
// stride (letting the caller ingest directly out of a larger buffer
// without first repacking it).
//
// An all-zero payload is coalesced to "no tile": IngestTileRGBA8Strided
// allocates nothing and returns ok=false, since a fully transparent tile is
// indistinguishable from an absent one at composite time.
func (a *Atlas) IngestTileRGBA8Strided(payload []byte, stride int) (TileKey, bool, error) {
	if !a.cfg.PayloadKind.Ingestable() {
		return 0, false, fmt.Errorf("%w: %v", ErrIngestNotSupported, a.cfg.PayloadKind)
	}
	const bpp = BytesPerTexelRGBA8
	if stride < TileSize*bpp {
		return 0, false, ErrIngestStrideTooSmall
	}
	want := stride*(TileSize-1) + TileSize*bpp
	if len(payload) < want {
		return 0, false, ErrIngestBufferTooShort
	}
	if isAllZeroStrided(payload, stride, bpp) {
		return 0, false, nil
	}

	key, err := a.Allocate()
	if err != nil {
		return 0, false, err
	}
	addr, _ := a.Resolve(key)
	gen := a.layers[addr.Layer].currentGeneration(addr.TileIndex)
	a.queue.pushUpload(addr, gen, packTileWithGutter(payload, stride, bpp))
	return key, true, nil
}

func (a *Atlas) checkOwner(h TileSetHandle) error {
	if h.owner != a.ownerTag {
		return ErrForeignTileSet
	}
	return nil
}

// ReserveTileSet allocates count fresh keys as one handle. If any
// individual allocation fails partway through, every key allocated so far
// in this call is rolled back and the error from the failing allocation is
// returned: ReserveTileSet is all-or-nothing.
func (a *Atlas) ReserveTileSet(count int) (TileSetHandle, error) {
	keys := make([]TileKey, 0, count)
	for i := 0; i < count; i++ {
		k, err := a.Allocate()
		if err != nil {
			for _, got := range keys {
				a.releaseKey(got)
			}
			return TileSetHandle{}, err
		}
		keys = append(keys, k)
	}
	return TileSetHandle{owner: a.ownerTag, keys: keys}, nil
}

// ReleaseTileSet releases every key in h. It fails closed: if h belongs to
// a different atlas, or any key in it no longer resolves (already
// released), no key is released and an error is returned.
func (a *Atlas) ReleaseTileSet(h TileSetHandle) error {
	if err := a.checkOwner(h); err != nil {
		return err
	}
	for _, k := range h.keys {
		if _, ok := a.idx.get(k); !ok {
			return ErrTileSetIncomplete
		}
	}
	for _, k := range h.keys {
		a.releaseKey(k)
	}
	return nil
}

// ClearTileSet enqueues a single batched clear covering every key in h,
// without releasing the keys themselves. Like ReleaseTileSet it fails
// closed on a foreign or partially-stale handle.
func (a *Atlas) ClearTileSet(h TileSetHandle) error {
	if err := a.checkOwner(h); err != nil {
		return err
	}
	addrs := make([]TileAddress, 0, len(h.keys))
	gens := make([]uint64, 0, len(h.keys))
	for _, k := range h.keys {
		addr, ok := a.idx.get(k)
		if !ok {
			return ErrTileSetIncomplete
		}
		addrs = append(addrs, addr)
		gens = append(gens, a.layers[addr.Layer].currentGeneration(addr.TileIndex))
	}
	a.queue.pushClearBatch(addrs, gens)
	return nil
}

// RetainKeysNewBatch registers keys as in-use, returning a batch id. The
// atlas's retain-GC never inspects key contents; it only ever evicts a
// whole batch, oldest-retained first, to make room for Allocate.
func (a *Atlas) RetainKeysNewBatch(keys []TileKey) uint64 {
	return a.gc.retainKeysNewBatch(keys)
}

// EvictedRetainBatch is a batch the atlas discarded under capacity
// pressure, reported so the caller (document) can drop its own references
// to the now-released keys.
type EvictedRetainBatch struct {
	BatchID uint64
	Keys    []TileKey
}

// DrainEvictedRetainBatches returns and clears every batch evicted by
// Allocate's capacity pressure since the last drain.
func (a *Atlas) DrainEvictedRetainBatches() []EvictedRetainBatch {
	raw := a.gc.drainEvicted()
	if len(raw) == 0 {
		return nil
	}
	out := make([]EvictedRetainBatch, len(raw))
	for i, b := range raw {
		out[i] = EvictedRetainBatch{BatchID: b.id, Keys: b.keys}
	}
	return out
}

// DrainAndExecute drains the pending op queue and applies each op to w, in
// enqueue order. An op whose generation snapshot no longer matches its
// slot's current generation is stale — the slot was released and
// reallocated after the op was enqueued — and is skipped rather than
// applied, since applying it would clobber unrelated content. It returns
// the count of ops actually applied.
func (a *Atlas) DrainAndExecute(w SlotWriter) (int, error) {
	ops := a.queue.drain()
	applied := 0
	tilesPerRow := a.cfg.TilesPerRow
	for _, op := range ops {
		switch op.Kind {
		case OpClear:
			if a.layers[op.Target.Layer].currentGeneration(op.Target.TileIndex) != op.Generation {
				continue
			}
			ox, oy := SlotOrigin(op.Target.TileIndex, tilesPerRow)
			if err := w.ClearSlot(op.Target.Layer, ox, oy); err != nil {
				return applied, err
			}
			applied++
		case OpClearBatch:
			for i, target := range op.Targets {
				if a.layers[target.Layer].currentGeneration(target.TileIndex) != op.Generations[i] {
					continue
				}
				ox, oy := SlotOrigin(target.TileIndex, tilesPerRow)
				if err := w.ClearSlot(target.Layer, ox, oy); err != nil {
					return applied, err
				}
				applied++
			}
		case OpUpload:
			if a.layers[op.Target.Layer].currentGeneration(op.Target.TileIndex) != op.Generation {
				continue
			}
			ox, oy := SlotOrigin(op.Target.TileIndex, tilesPerRow)
			if err := w.WriteSlotRGBA8(op.Target.Layer, ox, oy, op.Payload, TileStride*BytesPerTexelRGBA8); err != nil {
				return applied, err
			}
			applied++
		}
	}
	return applied, nil
}

// PendingOpCount reports the number of ops queued but not yet drained,
// useful for tests and for frame-budget diagnostics.
func (a *Atlas) PendingOpCount() int {
	return a.queue.len()
}

// FreeSlotCount reports the number of unallocated slots remaining across
// every layer.
func (a *Atlas) FreeSlotCount() int {
	total := 0
	for _, l := range a.layers {
		total += l.freeCount()
	}
	return total
}
