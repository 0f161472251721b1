// Package bridge implements the cross-thread command/feedback channel
// pair joining the engine thread (owns Document and the merge engine) to
// the main GPU thread (owns the renderer and the tile atlas's GPU-side
// drain): RuntimeCommands flow one way over a bounded buffered Go channel,
// FeedbackFrames flow back through a single-slot mailbox guarded by a
// mutex, whose max-merge policy collapses feedback the engine thread
// hasn't yet drained. Neither path is a lock-free ring.
//
// Grounded on gogpu-gg/internal/gpu/memory.go's Stats() atomic-fold idiom
// (several independent counters merged into one snapshot) for the
// waterline merge, and gogpu-gg/render/device.go's pattern of passing
// opaque handles across a boundary without the boundary depending on
// their concrete type, applied here to command/feedback payloads instead
// of device handles.
package bridge

import "github.com/glaphica/engine/merge"

// RuntimeCommandKind tags what a RuntimeCommand asks the main thread to
// do.
type RuntimeCommandKind int

const (
	// CommandSubmitMerge asks the main thread to encode and submit the GPU
	// merge ops for one merge.MergeJob.
	CommandSubmitMerge RuntimeCommandKind = iota
	// CommandPlanFrame asks the main thread to run a composite+view pass
	// for the current document state.
	CommandPlanFrame
	// CommandShutdown asks the main thread to acknowledge and tear down.
	CommandShutdown
)

func (k RuntimeCommandKind) String() string {
	switch k {
	case CommandSubmitMerge:
		return "SubmitMerge"
	case CommandPlanFrame:
		return "PlanFrame"
	case CommandShutdown:
		return "Shutdown"
	default:
		return "RuntimeCommandKind(?)"
	}
}

// RuntimeCommand is one unit of work the engine thread hands to the main
// GPU thread.
type RuntimeCommand struct {
	Kind RuntimeCommandKind

	// MergeJob is set when Kind is CommandSubmitMerge.
	MergeJob merge.MergeJob

	// FrameSequenceID is set when Kind is CommandPlanFrame: the frame
	// sequence id input chunks drained for this frame were tagged with.
	FrameSequenceID uint64
}

// ReceiptKey names a feedback receipt's merge identity for "key-based
// last-wins" mailbox merging: two receipts about the same receipt id
// collapse to the latest; receipts about different ids are both kept.
type ReceiptKey uint64

// Waterlines are the four monotonic progress counters a FeedbackFrame
// carries. Max-merging across collapsed frames never lets one regress.
type Waterlines struct {
	PresentFrameID       uint64
	SubmitWaterline      uint64
	ExecutedBatchWaterline uint64
	CompleteWaterline    uint64
}

// mergeMax replaces each of w's fields with the larger of itself and o's,
// per spec.md §5 "Waterlines are max-merged, never decreasing."
func (w Waterlines) mergeMax(o Waterlines) Waterlines {
	return Waterlines{
		PresentFrameID:         maxU64(w.PresentFrameID, o.PresentFrameID),
		SubmitWaterline:        maxU64(w.SubmitWaterline, o.SubmitWaterline),
		ExecutedBatchWaterline: maxU64(w.ExecutedBatchWaterline, o.ExecutedBatchWaterline),
		CompleteWaterline:      maxU64(w.CompleteWaterline, o.CompleteWaterline),
	}
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// FeedbackFrame is what the main thread pushes back to the engine thread
// after a dispatch_frame call: the advanced waterlines plus every receipt/
// error produced since the last frame was drained.
type FeedbackFrame struct {
	Waterlines Waterlines
	Receipts   map[ReceiptKey]merge.CompletionNotice
	Errors     map[ReceiptKey]error
	// ShutdownAcked is set once the main thread has acknowledged a
	// CommandShutdown; the engine thread's loop treats this as terminal.
	ShutdownAcked bool
}

// merge collapses next into f per the mailbox policy: waterlines max-
// merge, and receipts/errors key-based-last-win (next's entries replace
// f's for any shared key; entries unique to either side are kept).
func (f FeedbackFrame) merge(next FeedbackFrame) FeedbackFrame {
	out := FeedbackFrame{
		Waterlines:    f.Waterlines.mergeMax(next.Waterlines),
		Receipts:      make(map[ReceiptKey]merge.CompletionNotice, len(f.Receipts)+len(next.Receipts)),
		Errors:        make(map[ReceiptKey]error, len(f.Errors)+len(next.Errors)),
		ShutdownAcked: f.ShutdownAcked || next.ShutdownAcked,
	}
	for k, v := range f.Receipts {
		out.Receipts[k] = v
	}
	for k, v := range next.Receipts {
		out.Receipts[k] = v
	}
	for k, v := range f.Errors {
		out.Errors[k] = v
	}
	for k, v := range next.Errors {
		out.Errors[k] = v
	}
	return out
}
