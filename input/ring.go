package input

import "sync/atomic"

// Ring is a lock-free single-producer/single-consumer ring buffer of
// SampleChunks. Push fails with ErrRingFull when the consumer hasn't
// caught up; Pop fails with ErrRingEmpty when there's nothing queued.
// Neither blocks.
//
// Grounded on spec.md §5 "lock-free SPSC ring buffers: push/pop is
// wait-free; on full/empty they return an error, not block", implemented
// as an atomic head/tail index pair (atomic load/store/CAS, no mutex on
// the hot path).
type Ring struct {
	buf  []SampleChunk
	mask uint64

	head atomic.Uint64 // next slot the consumer will read
	tail atomic.Uint64 // next slot the producer will write
}

// NewRing constructs a Ring with capacity rounded up to the next power of
// two (so index masking replaces modulo on the hot path).
func NewRing(capacity int) *Ring {
	n := nextPowerOfTwo(capacity)
	return &Ring{buf: make([]SampleChunk, n), mask: uint64(n - 1)}
}

func nextPowerOfTwo(n int) int {
	if n < 1 {
		n = 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Push appends chunk to the ring. Returns ErrRingFull if the producer has
// caught up to the consumer (no free slot).
func (r *Ring) Push(chunk SampleChunk) error {
	tail := r.tail.Load()
	head := r.head.Load()
	if tail-head >= uint64(len(r.buf)) {
		return ErrRingFull
	}
	r.buf[tail&r.mask] = chunk
	r.tail.Store(tail + 1)
	return nil
}

// Pop removes and returns the oldest queued chunk. Returns ErrRingEmpty if
// the consumer has caught up to the producer.
func (r *Ring) Pop() (SampleChunk, error) {
	for {
		head := r.head.Load()
		tail := r.tail.Load()
		if head == tail {
			return SampleChunk{}, ErrRingEmpty
		}
		chunk := r.buf[head&r.mask]
		if r.head.CompareAndSwap(head, head+1) {
			return chunk, nil
		}
	}
}

// dropOldest advances head past one entry via CAS, so a producer-side
// caller (RealTimeRing.Push) can safely race an independent consumer
// goroutine calling Pop: whichever of them observes the current head value
// first wins the CAS; the loser re-reads and tries again, giving up (and
// returning false) only if the ring has become empty.
func (r *Ring) dropOldest() (ok bool) {
	for {
		head := r.head.Load()
		tail := r.tail.Load()
		if head == tail {
			return false
		}
		if r.head.CompareAndSwap(head, head+1) {
			return true
		}
	}
}

// Len reports how many chunks are currently queued. Approximate under
// concurrent access from the opposite end; exact when called from either
// the sole producer or sole consumer goroutine about its own side.
func (r *Ring) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// RealTimeRing is the lossy-newest-wins variant spec.md §4.6 requires for
// real-time pen/audio delivery: Push never fails with Full by refusing
// new data — instead, on a full ring, it drops the oldest entry to make
// room, tagging the newly pushed chunk so downstream consumers can detect
// the gap.
type RealTimeRing struct {
	inner *Ring
}

// NewRealTimeRing constructs a RealTimeRing with capacity rounded up to
// the next power of two.
func NewRealTimeRing(capacity int) *RealTimeRing {
	return &RealTimeRing{inner: NewRing(capacity)}
}

// Push appends chunk, dropping the oldest queued chunk first if the ring
// is full. If the drop races a concurrent consumer Pop down to empty (the
// consumer already took the slot this call meant to free), Push fails with
// ErrRingFull rather than guessing at a drop count — the caller should
// retry, since the ring now has room.
func (r *RealTimeRing) Push(chunk SampleChunk) error {
	if err := r.inner.Push(chunk); err == nil {
		return nil
	}
	if !r.inner.dropOldest() {
		return ErrRingFull
	}
	chunk.DiscontinuityBefore = true
	chunk.DroppedChunkCountBefore++
	return r.inner.Push(chunk)
}

// Pop removes and returns the oldest queued chunk.
func (r *RealTimeRing) Pop() (SampleChunk, error) {
	return r.inner.Pop()
}

// Len reports how many chunks are currently queued.
func (r *RealTimeRing) Len() int {
	return r.inner.Len()
}
