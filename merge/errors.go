package merge

import (
	"errors"
	"fmt"
)

var (
	ErrEmptySourceKeys       = errors.New("merge: source key set must be non-empty")
	ErrZeroOutputTiles       = errors.New("merge: output tile count must be > 0")
	ErrReceiptNotFound       = errors.New("merge: receipt not found")
	ErrCompletionNotReported = errors.New("merge: no GPU completion reported for this receipt yet")
)

// DuplicateTxTokenError is returned by Submit when Tx has already been
// submitted, at any point in that submission's lifetime — including after
// it finalized or aborted. Tx tokens are single-use forever.
type DuplicateTxTokenError struct {
	Tx TxToken
}

func (e *DuplicateTxTokenError) Error() string {
	return fmt.Sprintf("merge: tx token %d has already been submitted", e.Tx)
}

// IllegalStateTransitionError is returned by AckMergeResult, FinalizeReceipt,
// or AbortReceipt when the receipt is not in the state the call requires.
type IllegalStateTransitionError struct {
	ReceiptID uint64
	From      ReceiptState
	To        ReceiptState
}

func (e *IllegalStateTransitionError) Error() string {
	return fmt.Sprintf("merge: receipt %d cannot transition %s -> %s", e.ReceiptID, e.From, e.To)
}
