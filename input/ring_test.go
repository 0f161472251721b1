package input

import "testing"

func TestRingPushPopFIFO(t *testing.T) {
	r := NewRing(4)
	for i := 0; i < 4; i++ {
		if err := r.Push(SampleChunk{Count: i}); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if err := r.Push(SampleChunk{Count: 99}); err != ErrRingFull {
		t.Fatalf("push into full ring: err = %v, want ErrRingFull", err)
	}
	for i := 0; i < 4; i++ {
		c, err := r.Pop()
		if err != nil {
			t.Fatalf("pop %d: %v", i, err)
		}
		if c.Count != i {
			t.Fatalf("pop %d = %d, want %d", i, c.Count, i)
		}
	}
	if _, err := r.Pop(); err != ErrRingEmpty {
		t.Fatalf("pop from empty ring: err = %v, want ErrRingEmpty", err)
	}
}

func TestRealTimeRingDropsOldestOnFull(t *testing.T) {
	// Queue capacity 1, push 17 samples worth of chunks through — here
	// modeled directly as 17 chunk pushes, per spec.md §8 test 4: "push 17
	// samples through splitter -> one final chunk with sample_count=1,
	// discontinuity_before=true, dropped_chunk_count_before=1".
	r := NewRealTimeRing(1)
	for i := 0; i < 17; i++ {
		if err := r.Push(SampleChunk{Count: 1}); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if r.Len() != 1 {
		t.Fatalf("ring len = %d, want 1", r.Len())
	}
	c, err := r.Pop()
	if err != nil {
		t.Fatal(err)
	}
	if !c.DiscontinuityBefore || c.DroppedChunkCountBefore != 1 {
		t.Fatalf("final chunk = %+v, want DiscontinuityBefore=true DroppedChunkCountBefore=1", c)
	}
}

func TestRealTimeRingNoDropWhenNotFull(t *testing.T) {
	r := NewRealTimeRing(4)
	if err := r.Push(SampleChunk{Count: 1}); err != nil {
		t.Fatal(err)
	}
	c, err := r.Pop()
	if err != nil {
		t.Fatal(err)
	}
	if c.DiscontinuityBefore || c.DroppedChunkCountBefore != 0 {
		t.Fatalf("chunk = %+v, want no discontinuity", c)
	}
}
