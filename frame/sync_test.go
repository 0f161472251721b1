package frame

import "testing"

func TestFrameSyncCommitAcceptsMatchingToken(t *testing.T) {
	fs := NewFrameSync()
	tok := fs.BeginPlan(5)
	if !fs.Commit(tok, 5) {
		t.Fatal("expected commit to succeed against the epoch/revision it was built from")
	}
}

func TestFrameSyncCommitRejectsStaleRevision(t *testing.T) {
	fs := NewFrameSync()
	tok := fs.BeginPlan(5)
	if fs.Commit(tok, 6) {
		t.Fatal("expected commit to reject a snapshot revision that has since moved on")
	}
}

func TestFrameSyncCommitRejectsStaleEpoch(t *testing.T) {
	fs := NewFrameSync()
	tok := fs.BeginPlan(5)
	fs.BumpEpoch()
	if fs.Commit(tok, 5) {
		t.Fatal("expected commit to reject a token built against a since-bumped epoch")
	}
}

func TestFrameSyncFrameIDNeverRepeats(t *testing.T) {
	fs := NewFrameSync()
	a := fs.BeginPlan(1)
	b := fs.BeginPlan(1)
	if a.FrameID == b.FrameID {
		t.Fatalf("frame ids collided: %d", a.FrameID)
	}
}
