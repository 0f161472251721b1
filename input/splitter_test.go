package input

import "testing"

type recordingSink struct {
	chunks []SampleChunk
}

func (r *recordingSink) Push(chunk SampleChunk) error {
	r.chunks = append(r.chunks, chunk)
	return nil
}

func feedSamples(t *testing.T, splitter *StrokeChunkSplitter, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		splitter.Emit(StrokeSample{TimestampMicros: uint64(i)})
	}
}

func TestSplitterSingleSampleFlushesOneChunkOnEnd(t *testing.T) {
	sink := &recordingSink{}
	s := NewStrokeChunkSplitter(sink, 1, 1)
	feedSamples(t, s, 1)
	s.End()

	if len(sink.chunks) != 1 {
		t.Fatalf("chunk count = %d, want 1", len(sink.chunks))
	}
	c := sink.chunks[0]
	if c.Count != 1 || !c.StartsStroke || !c.EndsStroke {
		t.Fatalf("chunk = %+v, want Count=1 StartsStroke=true EndsStroke=true", c)
	}
}

func TestSplitterSixteenSamplesFlushOneFullChunk(t *testing.T) {
	sink := &recordingSink{}
	s := NewStrokeChunkSplitter(sink, 1, 1)
	feedSamples(t, s, SampleChunkCapacity)
	s.End()

	if len(sink.chunks) != 1 {
		t.Fatalf("chunk count = %d, want 1", len(sink.chunks))
	}
	c := sink.chunks[0]
	if c.Count != SampleChunkCapacity || !c.StartsStroke || !c.EndsStroke {
		t.Fatalf("chunk = %+v, want full chunk starting and ending the stroke", c)
	}
}

func TestSplitterSeventeenSamplesFlushTwoChunks(t *testing.T) {
	sink := &recordingSink{}
	s := NewStrokeChunkSplitter(sink, 1, 1)
	feedSamples(t, s, SampleChunkCapacity+1)
	s.End()

	if len(sink.chunks) != 2 {
		t.Fatalf("chunk count = %d, want 2", len(sink.chunks))
	}
	first, second := sink.chunks[0], sink.chunks[1]
	if first.Count != SampleChunkCapacity || !first.StartsStroke || first.EndsStroke {
		t.Fatalf("first chunk = %+v, want full, starts, not ends", first)
	}
	if second.Count != 1 || second.StartsStroke || !second.EndsStroke {
		t.Fatalf("second chunk = %+v, want partial, not starts, ends", second)
	}
}

func TestSplitterThirtyTwoSamplesFlushTwoFullChunks(t *testing.T) {
	sink := &recordingSink{}
	s := NewStrokeChunkSplitter(sink, 1, 1)
	feedSamples(t, s, 2*SampleChunkCapacity)
	s.End()

	if len(sink.chunks) != 2 {
		t.Fatalf("chunk count = %d, want 2", len(sink.chunks))
	}
	if sink.chunks[0].EndsStroke || sink.chunks[0].Count != SampleChunkCapacity {
		t.Fatalf("first chunk = %+v, want full, not ending", sink.chunks[0])
	}
	if !sink.chunks[1].EndsStroke || sink.chunks[1].Count != SampleChunkCapacity {
		t.Fatalf("final chunk = %+v, want full, EndsStroke=true", sink.chunks[1])
	}
}
