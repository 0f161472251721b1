package document

// ImageSourceKind discriminates what content a leaf's render-tree snapshot
// entry should sample: its committed layer image, or — while a merge
// covering it is active — the in-progress preview buffer standing in for
// the eventual merged result.
type ImageSourceKind int

const (
	LayerImageSource ImageSourceKind = iota
	BrushBufferSource
)

// ImageSource names where a leaf's pixels currently come from.
type ImageSource struct {
	Kind   ImageSourceKind
	Handle ImageHandle
}

// NodeSnapshot is one node's immutable, self-contained view in a
// RenderTreeSnapshot: no parent back-pointer, so a snapshot can be handed
// to the frame planner without aliasing the live tree.
type NodeSnapshot struct {
	ID       LayerID
	Kind     NodeKind
	Blend    BlendMode
	Children []LayerID
	Image    *ImageSource // non-nil only for Leaf nodes
}

// RenderTreeSnapshot is an immutable point-in-time view of the layer
// tree, tagged with the document revisions it was built from.
//
// Grounded on gogpu-gg/scene's build-once encoding convention (a Scene is
// assembled then treated as read-only); this snapshot goes further and
// substitutes BrushBufferSource for any leaf under an active merge, so the
// frame planner never needs to know about merge state itself.
type RenderTreeSnapshot struct {
	Revision           uint64
	RenderTreeRevision uint64
	RootID             LayerID
	Nodes              map[LayerID]NodeSnapshot
}

// Snapshot builds an immutable RenderTreeSnapshot of the current layer
// tree. Leaves covered by an active merge report BrushBufferSource
// against the merge's preview image instead of their own (unchanged,
// pre-merge) committed image.
func (d *Document) Snapshot() *RenderTreeSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	preview := make(map[LayerID]ImageHandle)
	if d.active != nil {
		for _, l := range d.active.layers {
			preview[l] = d.active.preview
		}
	}

	nodes := make(map[LayerID]NodeSnapshot, len(d.tree.nodes))
	for id, n := range d.tree.nodes {
		ns := NodeSnapshot{
			ID:       id,
			Kind:     n.kind,
			Blend:    n.blend,
			Children: append([]LayerID(nil), n.children...),
		}
		if n.kind == NodeLeaf {
			if previewHandle, under := preview[id]; under {
				ns.Image = &ImageSource{Kind: BrushBufferSource, Handle: previewHandle}
			} else {
				ns.Image = &ImageSource{Kind: LayerImageSource, Handle: n.image}
			}
		}
		nodes[id] = ns
	}

	return &RenderTreeSnapshot{
		Revision:           d.revision,
		RenderTreeRevision: d.renderTreeRevision,
		RootID:             d.tree.root,
		Nodes:              nodes,
	}
}
