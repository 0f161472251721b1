package tileatlas

import "sync"

// OpKind discriminates the three GPU-thread operations an op-queue entry
// can carry.
type OpKind int

const (
	OpClear OpKind = iota
	OpClearBatch
	OpUpload
)

// Op is one pending GPU-side mutation of an atlas slot. Generation (and,
// for OpClearBatch, Generations) snapshots the slot's generation counter
// at the moment the op was enqueued; DrainAndExecute skips an op whose
// snapshot no longer matches the slot's current generation, since the slot
// has since been released and reallocated to different content.
type Op struct {
	Kind        OpKind
	Target      TileAddress
	Generation  uint64
	Targets     []TileAddress
	Generations []uint64
	Payload     []byte
}

// opQueue is a simple mutex-guarded MPSC queue: many allocate/ingest/clear
// calls append from the engine thread, one DrainAndExecute call on the GPU
// thread drains the whole backlog at once per frame.
type opQueue struct {
	mu    sync.Mutex
	items []Op
}

func newOpQueue() *opQueue {
	return &opQueue{}
}

func (q *opQueue) pushClear(addr TileAddress, gen uint64) {
	q.mu.Lock()
	q.items = append(q.items, Op{Kind: OpClear, Target: addr, Generation: gen})
	q.mu.Unlock()
}

func (q *opQueue) pushClearBatch(addrs []TileAddress, gens []uint64) {
	q.mu.Lock()
	q.items = append(q.items, Op{
		Kind:        OpClearBatch,
		Targets:     append([]TileAddress(nil), addrs...),
		Generations: append([]uint64(nil), gens...),
	})
	q.mu.Unlock()
}

func (q *opQueue) pushUpload(addr TileAddress, gen uint64, payload []byte) {
	q.mu.Lock()
	q.items = append(q.items, Op{Kind: OpUpload, Target: addr, Generation: gen, Payload: payload})
	q.mu.Unlock()
}

// drain returns and clears the whole backlog. Ops are returned in
// enqueue order; DrainAndExecute relies on that order to let a later
// upload win over an earlier clear of the same slot.
func (q *opQueue) drain() []Op {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()
	return items
}

func (q *opQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
