package document

// dirtyEntry is one revision's accumulated dirty rect for a layer.
type dirtyEntry struct {
	revision uint64
	rect     Rect
}

// dirtyRing is a bounded FIFO of dirtyEntry, one per layer. Grounded on
// gogpu-gg/scene/cache.go's bounded-ring bookkeeping idiom (oldest entry
// silently drops once the ring is at capacity) adapted from an LRU of
// cached render targets to a revision-ordered history of dirty rects.
type dirtyRing struct {
	entries []dirtyEntry // ordered oldest-first
	// evictedThrough is the revision of the newest entry dropped for
	// capacity, or 0 if nothing has been dropped yet.
	evictedThrough uint64
}

func newDirtyRing() *dirtyRing {
	return &dirtyRing{}
}

// push merges rect into the current revision's entry if one already
// exists (the same-version bitset merge the spec requires — multiple
// marks within one uncommitted revision accumulate instead of each
// costing a ring slot), or appends a new entry otherwise. Pushing an
// empty rect is a no-op.
func (r *dirtyRing) push(revision uint64, rect Rect) {
	if rect.Empty() {
		return
	}
	if n := len(r.entries); n > 0 && r.entries[n-1].revision == revision {
		r.entries[n-1].rect = r.entries[n-1].rect.Union(rect)
		return
	}
	r.entries = append(r.entries, dirtyEntry{revision: revision, rect: rect})
	if len(r.entries) > dirtyHistoryCapacity {
		drop := len(r.entries) - dirtyHistoryCapacity
		r.evictedThrough = r.entries[drop-1].revision
		r.entries = r.entries[drop:]
	}
}

// since reports what has changed after sinceRevision.
func (r *dirtyRing) since(sinceRevision, currentRevision uint64) (DirtyStatus, Rect) {
	if sinceRevision >= currentRevision {
		return UpToDate, Rect{}
	}
	if len(r.entries) == 0 {
		return UpToDate, Rect{}
	}
	if sinceRevision < r.evictedThrough {
		return HistoryTruncated, Rect{}
	}
	var union Rect
	found := false
	for _, e := range r.entries {
		if e.revision > sinceRevision {
			union = union.Union(e.rect)
			found = true
		}
	}
	if !found {
		return UpToDate, Rect{}
	}
	return HasChanges, union
}
