// Package document implements the layer tree and document state: the
// Root/Branch/Leaf layer hierarchy, revision counters, the bounded
// per-layer dirty history, and the begin/apply/abort merge protocol that
// binds a finalized merge.Receipt's output into the tree.
package document

import "github.com/glaphica/engine/virtualimage"

// LayerID names a node in the layer tree. The zero value never names a
// real node.
type LayerID uint64

// StrokeSessionID is a caller-minted single-use token naming one input
// stroke. ConsumeStrokeSession rejects a token it has already seen.
type StrokeSessionID uint64

// NodeKind discriminates the two shapes a layer tree node can take: a
// Leaf holds content directly; a Branch groups children (and, per
// spec.md's layer tree, the Root is simply the Branch with no parent).
type NodeKind int

const (
	NodeLeaf NodeKind = iota
	NodeBranch
)

func (k NodeKind) String() string {
	if k == NodeLeaf {
		return "Leaf"
	}
	return "Branch"
}

// Rect is an axis-aligned integer pixel rectangle, half-open on the
// high edge: [MinX,MaxX) x [MinY,MaxY).
type Rect struct {
	MinX, MinY, MaxX, MaxY int
}

// Empty reports whether r covers no area.
func (r Rect) Empty() bool {
	return r.MaxX <= r.MinX || r.MaxY <= r.MinY
}

// Union returns the smallest rectangle containing both r and o. Unioning
// with an empty rectangle returns the other operand unchanged.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	out := Rect{MinX: r.MinX, MinY: r.MinY, MaxX: r.MaxX, MaxY: r.MaxY}
	if o.MinX < out.MinX {
		out.MinX = o.MinX
	}
	if o.MinY < out.MinY {
		out.MinY = o.MinY
	}
	if o.MaxX > out.MaxX {
		out.MaxX = o.MaxX
	}
	if o.MaxY > out.MaxY {
		out.MaxY = o.MaxY
	}
	return out
}

// BlendMode names how a node composites over whatever is beneath it.
// Carried by both Leaf and Branch nodes, per spec.md's layer tree
// ("Branch{id, blend, children}", "Leaf{id, blend, image_handle}").
// Grounded on gogpu-gg/scene's BlendMode enumeration (scene/layer.go),
// trimmed to the subset a tile-merge compositor needs; the teacher's full
// separable/advanced blend-mode table lives in the deleted vector/paint
// surface and has no SPEC_FULL.md component left to serve.
type BlendMode int

const (
	BlendNormal BlendMode = iota
	BlendMultiply
	BlendScreen
	BlendOverlay
	BlendAdd
)

func (b BlendMode) String() string {
	switch b {
	case BlendNormal:
		return "Normal"
	case BlendMultiply:
		return "Multiply"
	case BlendScreen:
		return "Screen"
	case BlendOverlay:
		return "Overlay"
	case BlendAdd:
		return "Add"
	default:
		return "BlendMode(?)"
	}
}

// DirtyStatus is LayerDirtySince's answer to "what changed since
// revision X".
type DirtyStatus int

const (
	// UpToDate means sinceRevision is the layer's current revision: no
	// change to report.
	UpToDate DirtyStatus = iota
	// HistoryTruncated means sinceRevision predates the oldest entry the
	// bounded dirty history still retains; the caller must treat the
	// whole layer as dirty, since the specific changed region is no
	// longer known.
	HistoryTruncated
	// HasChanges means the union of every dirty rect recorded after
	// sinceRevision is available in Rect.
	HasChanges
)

func (s DirtyStatus) String() string {
	switch s {
	case UpToDate:
		return "UpToDate"
	case HistoryTruncated:
		return "HistoryTruncated"
	case HasChanges:
		return "HasChanges"
	default:
		return "DirtyStatus(?)"
	}
}

// dirtyHistoryCapacity bounds each layer's dirty-history ring. A consumer
// that falls more than this many recorded entries behind on a layer is
// told HistoryTruncated rather than walking an unbounded backlog.
const dirtyHistoryCapacity = 200

// ImageHandle names an entry in the document's image slot map. The
// virtualimage package has no handle type of its own (a VirtualImage is
// addressed by whatever key the owner picks), so document defines and
// owns the handle space.
type ImageHandle uint64

// imageSlot is one entry of the document's image slot map: the
// VirtualImage bound to an ImageHandle. Grid dimensions are read from the
// VirtualImage itself.
type imageSlot struct {
	image *virtualimage.VirtualImage
}
