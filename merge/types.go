// Package merge implements the tile merge engine: the submission,
// GPU-completion handshake, and finalize/abort protocol that turns a set
// of source tiles into a freshly reserved, atlas-resident output tile set.
//
// merge never touches pixels itself. Submit reserves output tiles and
// emits a MergeJob describing the GPU-side compute to perform; the actual
// compute dispatch and completion reporting happen outside this package,
// in whatever caller drains the jobs and calls back into ReportCompletion
// once the GPU work finishes. Neither bridge nor frame does this.
package merge

import (
	"fmt"

	"github.com/glaphica/engine/tileatlas"
)

// TxToken is a caller-supplied single-use token identifying one merge
// submission (mirroring the document layer's stroke-session tokens).
// Submitting the same token twice is always rejected, even after the
// first submission's receipt has been finalized or aborted.
type TxToken uint64

// ReceiptState is one of the five states a merge receipt passes through.
//
//	Pending -> Succeeded -> Finalized
//	Pending -> Failed    -> Aborted
//
// No other transition is legal.
type ReceiptState int

const (
	Pending ReceiptState = iota
	Succeeded
	Failed
	Finalized
	Aborted
)

func (s ReceiptState) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Succeeded:
		return "Succeeded"
	case Failed:
		return "Failed"
	case Finalized:
		return "Finalized"
	case Aborted:
		return "Aborted"
	default:
		return fmt.Sprintf("ReceiptState(%d)", int(s))
	}
}

// MergePlanRequest describes one merge submission.
type MergePlanRequest struct {
	Tx TxToken
	// SourceKeys names every tile contributing to the merge, in the order
	// the GPU compute should composite them (bottom to top).
	SourceKeys []tileatlas.TileKey
	// OutputTileCount is how many fresh output tiles Submit should reserve
	// from the atlas to hold the merged result.
	OutputTileCount int
	// OpTraceID correlates this submission with the caller's own audit
	// trail (e.g. the document revision that triggered it). Opaque to merge.
	OpTraceID string
}

// MergeSubmission is what Submit returns on success: a receipt to track
// and the freshly reserved output tile set the GPU work will populate.
type MergeSubmission struct {
	ReceiptID uint64
	Output    tileatlas.TileSetHandle
}

// Receipt is merge's bookkeeping record for one submission.
type Receipt struct {
	ID            uint64
	Tx            TxToken
	Output        tileatlas.TileSetHandle
	State         ReceiptState
	FailureReason string
	OpTraceID     string
}

// MergeJob is the GPU-side work Submit emits: composite SourceKeys into
// Output. The caller that owns GPU submission drains these via
// DrainPendingJobs and calls ReportCompletion once the compute finishes;
// the frame executor does not drain them.
type MergeJob struct {
	ReceiptID  uint64
	SourceKeys []tileatlas.TileKey
	Output     tileatlas.TileSetHandle
}

// CompletionNotice is a GPU-reported outcome, held by PollCompletion until
// AckMergeResult commits it to the receipt's state.
type CompletionNotice struct {
	ReceiptID uint64
	Success   bool
	Reason    string
}

// BusinessResultKind tells the caller what to do with a receipt once its
// completion has been acked.
type BusinessResultKind int

const (
	CanFinalize BusinessResultKind = iota
	RequiresAbort
)

// BusinessResult is what DrainBusinessResults reports for each
// newly-settled (Succeeded or Failed) receipt, exactly once.
type BusinessResult struct {
	ReceiptID uint64
	Kind      BusinessResultKind
	Receipt   Receipt
}
