package document

import (
	"sync"

	"github.com/glaphica/engine/merge"
	"github.com/glaphica/engine/virtualimage"
)

// activeMerge is document's record of the single in-flight merge it will
// allow at a time.
type activeMerge struct {
	tx      merge.TxToken
	layers  []LayerID
	preview ImageHandle
}

// Document is the top-level mutable state: the layer tree, the image slot
// map every leaf's content handle resolves into, revision counters, the
// bounded per-layer dirty history, and the at-most-one-active-merge and
// consumed-stroke-session bookkeeping.
//
// Grounded on gogpu-gg/scene/layer.go's LayerState reset/update-bounds
// style for per-layer mutation, and gogpu-gg/scene/cache.go's bounded-
// history idiom for the dirty ring (see dirty_history.go).
type Document struct {
	mu sync.Mutex

	tree   *Tree
	images map[ImageHandle]*imageSlot

	revision           uint64
	renderTreeRevision uint64

	dirtyHistory map[LayerID]*dirtyRing
	layerRevision map[LayerID]uint64

	active  *activeMerge
	consumed map[StrokeSessionID]struct{}

	nextImageHandle uint64
}

// New constructs an empty document: a bare layer tree with only its Root.
func New() *Document {
	return &Document{
		tree:          NewTree(),
		images:        make(map[ImageHandle]*imageSlot),
		dirtyHistory:  make(map[LayerID]*dirtyRing),
		layerRevision: make(map[LayerID]uint64),
		consumed:      make(map[StrokeSessionID]struct{}),
	}
}

func (d *Document) Revision() uint64           { return d.revision }
func (d *Document) RenderTreeRevision() uint64 { return d.renderTreeRevision }

// Tree exposes the layer tree for read-only inspection by the frame
// planner. Mutating the tree must go through Document's own methods, so
// that every structural change bumps the right revision counters.
func (d *Document) Tree() *Tree { return d.tree }

func (d *Document) bumpRevision() uint64 {
	d.revision++
	return d.revision
}

// AllocateImage reserves a fresh image handle bound to a new empty
// VirtualImage of the given tile-grid dimensions.
func (d *Document) AllocateImage(tilesPerRow, tilesPerColumn int) (ImageHandle, error) {
	img, err := virtualimage.New(tilesPerRow, tilesPerColumn)
	if err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextImageHandle++
	h := ImageHandle(d.nextImageHandle)
	d.images[h] = &imageSlot{image: img}
	return h, nil
}

func (d *Document) Image(h ImageHandle) (*virtualimage.VirtualImage, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.images[h]
	if !ok {
		return nil, false
	}
	return s.image, true
}

// MarkLayerDirty bumps the document revision, records that rect changed
// on layer at that new revision, and sets the layer's own last-changed
// revision to it. Each call gets its own revision, so each call adds its
// own history entry.
func (d *Document) MarkLayerDirty(layer LayerID, rect Rect) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tree.Kind(layer); !ok {
		return ErrNodeNotFound
	}
	rev := d.bumpRevision()
	ring, ok := d.dirtyHistory[layer]
	if !ok {
		ring = newDirtyRing()
		d.dirtyHistory[layer] = ring
	}
	ring.push(rev, rect)
	d.layerRevision[layer] = rev
	return nil
}

// LayerDirtySince reports what changed on layer after sinceRevision.
func (d *Document) LayerDirtySince(layer LayerID, sinceRevision uint64) (DirtyStatus, Rect, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tree.Kind(layer); !ok {
		return 0, Rect{}, ErrNodeNotFound
	}
	current := d.layerRevision[layer]
	ring, ok := d.dirtyHistory[layer]
	if !ok {
		if sinceRevision >= current {
			return UpToDate, Rect{}, nil
		}
		return HistoryTruncated, Rect{}, nil
	}
	status, rect := ring.since(sinceRevision, current)
	return status, rect, nil
}

// LayerRevision returns the document revision at which layer was last
// marked dirty (0 if it has never been marked), for callers (the frame
// planner) that need to remember "as of revision N" across frames without
// reaching into dirty-history internals.
func (d *Document) LayerRevision(layer LayerID) (uint64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tree.Kind(layer); !ok {
		return 0, false
	}
	return d.layerRevision[layer], true
}

// ConsumeStrokeSession marks id as used. It is an error to consume the
// same session twice: stroke session tokens are single-use.
func (d *Document) ConsumeStrokeSession(id StrokeSessionID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.consumed[id]; ok {
		return ErrStrokeSessionReused
	}
	d.consumed[id] = struct{}{}
	return nil
}

// BeginMerge records layers as under merge with preview standing in for
// their eventual merged content, and bumps render_tree_revision so
// frame snapshots pick up the preview substitution. Only one merge may be
// active at a time.
func (d *Document) BeginMerge(tx merge.TxToken, layers []LayerID, preview ImageHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active != nil {
		return ErrMergeAlreadyActive
	}
	for _, l := range layers {
		if _, ok := d.tree.Kind(l); !ok {
			return ErrNodeNotFound
		}
	}
	d.active = &activeMerge{tx: tx, layers: append([]LayerID(nil), layers...), preview: preview}
	d.renderTreeRevision++
	return nil
}

// ApplyMergeImage binds a finalized merge's output image to replace the
// merged layers with a single leaf carrying result, clearing the active
// merge. tx must match the active merge's token.
func (d *Document) ApplyMergeImage(tx merge.TxToken, result ImageHandle) (LayerID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == nil {
		return 0, ErrNoActiveMerge
	}
	if d.active.tx != tx {
		return 0, ErrMergeTxMismatch
	}

	var target LayerID
	if len(d.active.layers) == 1 {
		target = d.active.layers[0]
		if err := d.tree.SetImage(target, result); err != nil {
			return 0, err
		}
	} else {
		leafID, err := d.tree.FlattenLayers(d.active.layers, result)
		if err != nil {
			return 0, err
		}
		target = leafID
	}

	d.active = nil
	d.renderTreeRevision++
	return target, nil
}

// AbortMerge discards the active merge without touching the layer tree.
// tx must match the active merge's token.
func (d *Document) AbortMerge(tx merge.TxToken) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == nil {
		return ErrNoActiveMerge
	}
	if d.active.tx != tx {
		return ErrMergeTxMismatch
	}
	d.active = nil
	d.renderTreeRevision++
	return nil
}

// ActiveMergePreview returns the preview image handle standing in for the
// active merge's layers, if any.
func (d *Document) ActiveMergePreview() (ImageHandle, []LayerID, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == nil {
		return 0, nil, false
	}
	return d.active.preview, append([]LayerID(nil), d.active.layers...), true
}
