// Package frame implements the per-frame planning and execution pipeline:
// FrameSync's epoch/revision/frame_id consistency token, the
// CompositeNodePlan builder that folds dirty tile masks and cache state
// into per-node rebuild/reuse decisions, and the two-pass GPU encoder that
// realizes a plan against a gpucontext device.
package frame

import "sync"

// FrameSync issues and validates the consistency token a built plan must
// still match at commit time. Epoch advances on any state change that
// invalidates outstanding plans wholesale (a resize, e.g.); a plan built
// against one epoch is never committed against another.
//
// Grounded on spec.md §3 "Frame sync epoch" / §4.5 step 5 and §7's
// "a frame whose commit is rejected by FrameSync is silently discarded".
type FrameSync struct {
	mu          sync.Mutex
	epoch       uint64
	nextFrameID uint64
}

// NewFrameSync returns a FrameSync starting at epoch 0.
func NewFrameSync() *FrameSync {
	return &FrameSync{}
}

// BumpEpoch advances the epoch, invalidating every plan token issued
// against the prior epoch. Called on document-wide composite invalidation
// (resize, surface reconfiguration).
func (f *FrameSync) BumpEpoch() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.epoch++
	return f.epoch
}

// Epoch returns the current epoch.
func (f *FrameSync) Epoch() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.epoch
}

// PlanToken is the (epoch, snapshot_revision, frame_id) triple a built
// plan carries. Commit succeeds only if epoch and snapshot_revision are
// still current; frame_id is carried for diagnostics only (it never
// repeats, so it is not itself part of the validity check).
type PlanToken struct {
	Epoch            uint64
	SnapshotRevision uint64
	FrameID          uint64
}

// BeginPlan mints a fresh PlanToken for a plan built against the document
// at snapshotRevision, at the FrameSync's current epoch.
func (f *FrameSync) BeginPlan(snapshotRevision uint64) PlanToken {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextFrameID++
	return PlanToken{Epoch: f.epoch, SnapshotRevision: snapshotRevision, FrameID: f.nextFrameID}
}

// Commit reports whether tok is still valid against the current epoch and
// snapshotRevision. A false result means the plan must be discarded
// without applying any of its cache mutations; dirty state is preserved
// so the next frame re-plans from scratch.
func (f *FrameSync) Commit(tok PlanToken, snapshotRevision uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return tok.Epoch == f.epoch && tok.SnapshotRevision == snapshotRevision
}
