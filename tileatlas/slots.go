package tileatlas

import "sync"

// slotState is the free-list and per-slot metadata for one atlas layer.
// Slots are never allocated in any particular spatial order; free is a
// simple LIFO stack, which keeps recently released slots warm for reuse.
type slotState struct {
	mu         sync.Mutex
	free       []uint32
	generation []uint64
	dirty      []bool
}

func newSlotState(totalSlots int) *slotState {
	s := &slotState{
		free:       make([]uint32, totalSlots),
		generation: make([]uint64, totalSlots),
		dirty:      make([]bool, totalSlots),
	}
	for i := range s.free {
		s.free[i] = uint32(totalSlots - 1 - i)
	}
	return s
}

func (s *slotState) popFree() (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.free)
	if n == 0 {
		return 0, false
	}
	slot := s.free[n-1]
	s.free = s.free[:n-1]
	return slot, true
}

// pushFree returns a slot to the pool. The slot's generation is bumped so
// any op-queue entry enqueued against its previous occupant is recognized
// as stale by DrainAndExecute, and the slot is marked dirty so its next
// allocation enqueues a clear before anything samples it.
func (s *slotState) pushFree(slot uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation[slot]++
	s.dirty[slot] = true
	s.free = append(s.free, slot)
}

// takeDirty reports whether slot needs a clear and resets the flag.
func (s *slotState) takeDirty(slot uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.dirty[slot]
	s.dirty[slot] = false
	return was
}

func (s *slotState) currentGeneration(slot uint32) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation[slot]
}

func (s *slotState) freeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.free)
}
