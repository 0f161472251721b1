package input

import "sync/atomic"

// FrameSignal tags a dispatch_frame call with the frame sequence id every
// chunk drained during that call is stamped with.
type FrameSignal struct {
	FrameSequenceID uint64
}

// DrainedChunk is one chunk drained by DriverEngine.DispatchFrame, tagged
// with the frame sequence id that drained it.
type DrainedChunk struct {
	Chunk           SampleChunk
	FrameSequenceID uint64
}

// DriverEngine is the input thread's state machine: it owns the active
// stroke's Sampler and StrokeChunkSplitter, dispatching each
// RawPointerInput to one of {Hover, Down, Move, Up, Cancel} per spec.md
// §4.6, and draining completed chunks out through a ChunkSink (typically
// backed by a RealTimeRing).
//
// Grounded on document's activeMerge "at most one in flight" shape
// (document/document.go) for the single-active-stroke invariant, adapted
// from a merge-transaction guard to a pointer-phase state machine.
type DriverEngine struct {
	newSampler func() Sampler
	sink       ChunkSink
	nextID     atomic.Uint64

	active    bool
	pointerID PointerID
	sampler   Sampler
	splitter  *StrokeChunkSplitter
}

// NewDriverEngine constructs a DriverEngine dispatching completed chunks
// to sink, minting a fresh Sampler (via newSampler) for each new stroke.
func NewDriverEngine(newSampler func() Sampler, sink ChunkSink) *DriverEngine {
	return &DriverEngine{newSampler: newSampler, sink: sink}
}

// Dispatch feeds one RawPointerInput through the state machine.
//
//   - Idle + Down: mints a new stroke session, begins the sampler, feeds
//     the initial sample.
//   - Active + Move(pointer_id): feeds the sample; a mismatched pointer id
//     returns ErrPointerIDMismatch, leaving the active stroke untouched.
//   - Active + Up(pointer_id): feeds the sample, ends the stroke, flushes
//     remaining samples, and clears the active stroke.
//   - Active + Cancel(pointer_id): ends the stroke without a final sample
//     and clears the active stroke.
//   - Hover is always a no-op.
func (d *DriverEngine) Dispatch(raw RawPointerInput) (StrokeSessionID, error) {
	switch raw.Phase {
	case Hover:
		return 0, nil

	case Down:
		if d.active {
			// A new Down while a stroke is active ends the stale one
			// without a final sample, then starts fresh — mirrors Cancel's
			// handling of an interrupted stroke.
			d.endActive()
		}
		sessionID := StrokeSessionID(d.nextID.Add(1))
		d.active = true
		d.pointerID = raw.PointerID
		d.sampler = d.newSampler()
		d.splitter = NewStrokeChunkSplitter(d.sink, sessionID, raw.PointerID)
		d.sampler.BeginStroke(raw)
		d.sampler.FeedInput(raw, d.splitter)
		return sessionID, d.splitter.Err()

	case Move:
		if !d.active {
			return 0, nil
		}
		if raw.PointerID != d.pointerID {
			return 0, ErrPointerIDMismatch
		}
		d.sampler.FeedInput(raw, d.splitter)
		return 0, d.splitter.Err()

	case Up:
		if !d.active {
			return 0, nil
		}
		if raw.PointerID != d.pointerID {
			return 0, ErrPointerIDMismatch
		}
		d.sampler.FeedInput(raw, d.splitter)
		d.sampler.EndStroke(d.splitter)
		d.splitter.End()
		err := d.splitter.Err()
		d.active = false
		d.sampler = nil
		d.splitter = nil
		return 0, err

	case Cancel:
		if !d.active {
			return 0, nil
		}
		if raw.PointerID != d.pointerID {
			return 0, ErrPointerIDMismatch
		}
		d.endActive()
		return 0, nil

	default:
		return 0, nil
	}
}

func (d *DriverEngine) endActive() {
	d.sampler.EndStroke(d.splitter)
	d.splitter.End()
	d.active = false
	d.sampler = nil
	d.splitter = nil
}

// Active reports whether a stroke is currently in progress.
func (d *DriverEngine) Active() bool { return d.active }

// DispatchFrame drains every currently-available chunk from source,
// tagging each with signal's frame sequence id, per spec.md §4.6.
func DispatchFrame(source interface{ Pop() (SampleChunk, error) }, signal FrameSignal) []DrainedChunk {
	var out []DrainedChunk
	for {
		chunk, err := source.Pop()
		if err != nil {
			break
		}
		out = append(out, DrainedChunk{Chunk: chunk, FrameSequenceID: signal.FrameSequenceID})
	}
	return out
}
