package merge

import (
	"sync"

	"github.com/glaphica/engine/tileatlas"
)

// Engine is the merge engine: one per atlas. It is safe for concurrent
// use — Submit from the engine thread, ReportCompletion from the GPU
// thread, Poll/Ack/Drain/Finalize/Abort from whichever thread owns
// document state.
//
// Grounded on gogpu-gg/internal/gpu/memory.go's precondition-checked
// guarded-mutation idiom (a call that fails a precondition returns a
// sentinel/structured error and leaves state untouched) and
// gogpu-gg/internal/gpu/atlas.go's structured-error-with-typed-fields
// style, both generalized here from a single guarded release to the
// five-state receipt machine.
type Engine struct {
	atlas *tileatlas.Atlas

	submitMu sync.Mutex // upstream-phase reentrancy guard (see Submit)

	mu            sync.Mutex
	nextReceiptID uint64
	receipts      map[uint64]*Receipt
	txSeen        map[TxToken]struct{}
	pendingJobs   []MergeJob
	completions   map[uint64]CompletionNotice
	polled        map[uint64]struct{} // receipt IDs whose completion has been polled but not yet acked
	settled       map[uint64]struct{} // receipt IDs whose business result has not yet been drained
}

// New constructs an Engine submitting output reservations against atlas.
func New(atlas *tileatlas.Atlas) *Engine {
	return &Engine{
		atlas:       atlas,
		receipts:    make(map[uint64]*Receipt),
		txSeen:      make(map[TxToken]struct{}),
		completions: make(map[uint64]CompletionNotice),
		polled:      make(map[uint64]struct{}),
		settled:     make(map[uint64]struct{}),
	}
}

// Submit validates req, reserves its output tile set, registers a Pending
// receipt, and emits a MergeJob for the GPU thread to pick up via
// DrainPendingJobs. Everything from step (3) on runs under submitMu: two concurrent
// Submit calls never interleave their atlas reservation with their job
// emission, so a job drained by the GPU thread always corresponds to a
// receipt already visible to PollCompletion/AckMergeResult callers.
//
// Steps: (1) validate source keys and output count, (2) reject a
// previously seen Tx, (3) acquire the reentrancy guard, (4) reserve the
// output tile set from the atlas, (5) mint a receipt ID and register a
// Pending receipt, (6) mark Tx seen, (7) emit the MergeJob and release the
// guard.
func (e *Engine) Submit(req MergePlanRequest) (MergeSubmission, error) {
	if len(req.SourceKeys) == 0 {
		return MergeSubmission{}, ErrEmptySourceKeys
	}
	if req.OutputTileCount <= 0 {
		return MergeSubmission{}, ErrZeroOutputTiles
	}

	e.mu.Lock()
	_, seen := e.txSeen[req.Tx]
	e.mu.Unlock()
	if seen {
		return MergeSubmission{}, &DuplicateTxTokenError{Tx: req.Tx}
	}

	e.submitMu.Lock()
	defer e.submitMu.Unlock()

	// Re-check under the guard: two Submits racing on the same Tx must
	// not both pass the outer check and both reserve output tiles.
	e.mu.Lock()
	if _, seen := e.txSeen[req.Tx]; seen {
		e.mu.Unlock()
		return MergeSubmission{}, &DuplicateTxTokenError{Tx: req.Tx}
	}
	e.mu.Unlock()

	output, err := e.atlas.ReserveTileSet(req.OutputTileCount)
	if err != nil {
		return MergeSubmission{}, err
	}

	e.mu.Lock()
	id := e.nextReceiptID
	e.nextReceiptID++
	e.receipts[id] = &Receipt{
		ID:        id,
		Tx:        req.Tx,
		Output:    output,
		State:     Pending,
		OpTraceID: req.OpTraceID,
	}
	e.txSeen[req.Tx] = struct{}{}
	e.pendingJobs = append(e.pendingJobs, MergeJob{
		ReceiptID:  id,
		SourceKeys: append([]tileatlas.TileKey(nil), req.SourceKeys...),
		Output:     output,
	})
	e.mu.Unlock()

	return MergeSubmission{ReceiptID: id, Output: output}, nil
}

// DrainPendingJobs returns and clears every MergeJob emitted by Submit
// since the last drain, for the frame executor to dispatch to the GPU.
func (e *Engine) DrainPendingJobs() []MergeJob {
	e.mu.Lock()
	defer e.mu.Unlock()
	jobs := e.pendingJobs
	e.pendingJobs = nil
	return jobs
}

// ReportCompletion records a GPU-reported outcome for receiptID, to be
// observed via PollCompletion and committed via AckMergeResult. Calling it
// twice for the same receipt before it is acked replaces the pending
// notice; only the most recent report is kept.
func (e *Engine) ReportCompletion(receiptID uint64, success bool, reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.completions[receiptID] = CompletionNotice{ReceiptID: receiptID, Success: success, Reason: reason}
}

// PollCompletion returns every completion notice reported and not yet
// acked, without committing it to receipt state. It is safe to call
// repeatedly; a notice not yet acked is returned again on the next poll.
func (e *Engine) PollCompletion() []CompletionNotice {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]CompletionNotice, 0, len(e.completions))
	for id, n := range e.completions {
		out = append(out, n)
		e.polled[id] = struct{}{}
	}
	return out
}

// AckMergeResult commits a previously reported completion to receiptID's
// state: Pending -> Succeeded on success, Pending -> Failed otherwise. It
// requires both that the receipt exists and is Pending, and that
// ReportCompletion has recorded an outcome for it; acking clears the
// pending notice so it is not committed twice.
func (e *Engine) AckMergeResult(receiptID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.receipts[receiptID]
	if !ok {
		return ErrReceiptNotFound
	}
	notice, ok := e.completions[receiptID]
	if !ok {
		return ErrCompletionNotReported
	}
	if r.State != Pending {
		return &IllegalStateTransitionError{ReceiptID: receiptID, From: r.State, To: Succeeded}
	}

	delete(e.completions, receiptID)
	delete(e.polled, receiptID)

	if notice.Success {
		r.State = Succeeded
	} else {
		r.State = Failed
		r.FailureReason = notice.Reason
	}
	e.settled[receiptID] = struct{}{}
	return nil
}

// DrainBusinessResults reports, exactly once per receipt, whether a
// newly-acked receipt CanFinalize (Succeeded) or RequiresAbort (Failed).
func (e *Engine) DrainBusinessResults() []BusinessResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.settled) == 0 {
		return nil
	}
	out := make([]BusinessResult, 0, len(e.settled))
	for id := range e.settled {
		r := e.receipts[id]
		kind := CanFinalize
		if r.State == Failed {
			kind = RequiresAbort
		}
		out = append(out, BusinessResult{ReceiptID: id, Kind: kind, Receipt: *r})
	}
	e.settled = make(map[uint64]struct{})
	return out
}

// FinalizeReceipt transitions a Succeeded receipt to Finalized. The
// reserved output tile set is left exactly as it is — ownership passes to
// the caller (document), which is expected to bind it into the layer tree.
func (e *Engine) FinalizeReceipt(receiptID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.receipts[receiptID]
	if !ok {
		return ErrReceiptNotFound
	}
	if r.State != Succeeded {
		return &IllegalStateTransitionError{ReceiptID: receiptID, From: r.State, To: Finalized}
	}
	r.State = Finalized
	return nil
}

// AbortReceipt transitions a Failed receipt to Aborted and releases its
// reserved (but never populated with valid content) output tile set back
// to the atlas.
func (e *Engine) AbortReceipt(receiptID uint64) error {
	e.mu.Lock()
	r, ok := e.receipts[receiptID]
	if !ok {
		e.mu.Unlock()
		return ErrReceiptNotFound
	}
	if r.State != Failed {
		e.mu.Unlock()
		return &IllegalStateTransitionError{ReceiptID: receiptID, From: r.State, To: Aborted}
	}
	r.State = Aborted
	output := r.Output
	e.mu.Unlock()

	return e.atlas.ReleaseTileSet(output)
}

// Receipt returns a copy of the current receipt state for receiptID.
func (e *Engine) Receipt(receiptID uint64) (Receipt, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.receipts[receiptID]
	if !ok {
		return Receipt{}, false
	}
	return *r, true
}
