package input

// StrokeChunkSplitter buffers StrokeSamples from one stroke session into
// fixed-capacity SampleChunks (16 samples each), flushing a chunk to sink
// whenever it is known not to be the stroke's last one. A chunk that
// fills exactly on End's boundary is held back one step (in ready) rather
// than flushed immediately, since only End (or the next Emit, proving
// more data follows) can tell whether it was actually the final chunk —
// EndsStroke must land on the true last chunk, full or not.
//
// Emit's signature matches Emitter (no error return) so a splitter can
// stand in directly as a Sampler's emit target; a sink push failure (the
// real-time ring reporting Full) is recorded rather than propagated
// through Emit, and surfaced via Err after the fact.
type StrokeChunkSplitter struct {
	sink ChunkSink

	sessionID StrokeSessionID
	pointerID PointerID

	ready      *SampleChunk
	pending    SampleChunk
	anyEmitted bool
	lastErr    error
}

// ChunkSink receives completed chunks from a StrokeChunkSplitter. Both
// Ring and RealTimeRing satisfy it directly.
type ChunkSink interface {
	Push(chunk SampleChunk) error
}

// NewStrokeChunkSplitter constructs a splitter for one stroke, writing
// completed chunks to sink.
func NewStrokeChunkSplitter(sink ChunkSink, sessionID StrokeSessionID, pointerID PointerID) *StrokeChunkSplitter {
	s := &StrokeChunkSplitter{sink: sink, sessionID: sessionID, pointerID: pointerID}
	s.resetPending()
	return s
}

func (s *StrokeChunkSplitter) resetPending() {
	s.pending = SampleChunk{StrokeSessionID: s.sessionID, PointerID: s.pointerID}
}

// Emit implements Emitter: each resampled StrokeSample is appended to the
// pending chunk. If the pending chunk fills, it becomes the held "ready"
// chunk — flushed (as non-final) on the next Emit, or finalized by End.
func (s *StrokeChunkSplitter) Emit(sample StrokeSample) {
	if s.ready != nil {
		s.flush(*s.ready, false)
		s.ready = nil
	}

	i := s.pending.Count
	s.pending.TimestampMicros[i] = sample.TimestampMicros
	s.pending.CanvasX[i] = sample.CanvasX
	s.pending.CanvasY[i] = sample.CanvasY
	s.pending.Pressure[i] = sample.Pressure
	s.pending.VelocityPixelsPerSecond[i] = sample.VelocityPixelsPerSecond
	s.pending.TiltX[i] = sample.TiltX
	s.pending.TiltY[i] = sample.TiltY
	s.pending.Twist[i] = sample.Twist
	s.pending.Count++

	if s.pending.Count == SampleChunkCapacity {
		full := s.pending
		s.ready = &full
		s.resetPending()
	}
}

// End finalizes the stroke: whichever chunk is still held (the ready
// chunk if pending is empty, otherwise pending) is flushed with
// EndsStroke set.
func (s *StrokeChunkSplitter) End() {
	if s.ready != nil && s.pending.Count == 0 {
		s.flush(*s.ready, true)
		s.ready = nil
		return
	}
	if s.ready != nil {
		s.flush(*s.ready, false)
		s.ready = nil
	}
	s.flush(s.pending, true)
}

// Err returns the most recent sink push failure, if any, clearing it.
func (s *StrokeChunkSplitter) Err() error {
	err := s.lastErr
	s.lastErr = nil
	return err
}

func (s *StrokeChunkSplitter) flush(chunk SampleChunk, ends bool) {
	chunk.StartsStroke = !s.anyEmitted
	chunk.EndsStroke = ends
	s.anyEmitted = true
	if err := s.sink.Push(chunk); err != nil {
		s.lastErr = err
	}
}
