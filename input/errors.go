package input

import "errors"

var (
	// ErrPointerIDMismatch is returned by DriverEngine.Dispatch when a
	// Move/Up/Cancel event's pointer id doesn't match the active stroke's.
	// The active stroke is preserved; the mismatched event is ignored.
	ErrPointerIDMismatch = errors.New("input: pointer id does not match the active stroke")

	// ErrRingFull is returned by a ring's Push when the ring has no free
	// slot and (for Ring, the non-real-time variant) the caller must back
	// off rather than overwrite unconsumed data.
	ErrRingFull = errors.New("input: ring is full")

	// ErrRingEmpty is returned by a ring's Pop when there is nothing to
	// consume.
	ErrRingEmpty = errors.New("input: ring is empty")
)
