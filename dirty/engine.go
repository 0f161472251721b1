package dirty

import "github.com/glaphica/engine/document"

// DirtyRectResolver is the propagate_layer_dirty_rects hook: a chance to
// expand a layer's raw dirty rect before it is turned into a tile mask
// (e.g. a blur filter's dirty region is larger than its input's). The
// only implementation this package provides is IdentityResolver; no
// filter-node expansion logic exists in this engine (see DESIGN.md).
type DirtyRectResolver interface {
	PropagateLayerDirtyRects(layer document.LayerID, rect document.Rect) document.Rect
}

// IdentityResolver returns its input unchanged.
type IdentityResolver struct{}

func (IdentityResolver) PropagateLayerDirtyRects(_ document.LayerID, rect document.Rect) document.Rect {
	return rect
}

// SinceRevisions maps a layer to the revision a caller last observed it
// at, the input to ResolveLayerDirtyRectMasks.
type SinceRevisions map[document.LayerID]uint64

// ResolveLayerDirtyRectMasks converts each layer's dirty-since-revision
// rectangle into a per-tile TileMask sized tilesPerRow x tilesPerCol,
// running every rect through resolver first. A layer reported
// HistoryTruncated gets every tile marked (the specific changed region is
// no longer known, so the whole layer must be treated as dirty); a layer
// reported UpToDate gets a clean (all-zero) mask.
func ResolveLayerDirtyRectMasks(doc *document.Document, resolver DirtyRectResolver, since SinceRevisions, tileSize, tilesPerRow, tilesPerCol int) (map[document.LayerID]*TileMask, error) {
	if resolver == nil {
		resolver = IdentityResolver{}
	}
	out := make(map[document.LayerID]*TileMask, len(since))
	for layer, sinceRev := range since {
		mask := NewTileMask(tilesPerRow, tilesPerCol)
		status, rect, err := doc.LayerDirtySince(layer, sinceRev)
		if err != nil {
			return nil, err
		}
		switch status {
		case document.HistoryTruncated:
			mask.MarkAll()
		case document.HasChanges:
			rect = resolver.PropagateLayerDirtyRects(layer, rect)
			mask.MarkRect(rect.MinX, rect.MinY, rect.MaxX-rect.MinX, rect.MaxY-rect.MinY, tileSize)
		case document.UpToDate:
			// mask stays clean.
		}
		out[layer] = mask
	}
	return out, nil
}

// NodeMaskStatus reports whether a node's fold-up mask should be consumed
// tile-by-tile (Partial) or treated as "recomposite the whole node"
// (Full), per the occupancy-ratio promotion rule.
type NodeMaskStatus int

const (
	Partial NodeMaskStatus = iota
	Full
)

// NodeMask is CollectNodeTileMasks' result for one tree node.
type NodeMask struct {
	Status NodeMaskStatus
	Mask   *TileMask
}

// CollectNodeTileMasks folds per-leaf dirty masks up the layer tree:
// a Leaf's node mask is its own leaf mask (clean if absent from
// leafMasks); a Branch's node mask is the union of its children's node
// masks. Any node whose resulting occupancy ratio reaches
// fullDirtyPromotionThreshold is promoted to Full.
//
// Grounded on gogpu-gg/internal/parallel/dirty.go's DirtyRegion bitmap (via
// TileMask.Union) combined with a post-order tree walk over
// document.Tree, the shape document's layer tree already provides.
func CollectNodeTileMasks(tree *document.Tree, leafMasks map[document.LayerID]*TileMask, tilesPerRow, tilesPerCol int) map[document.LayerID]NodeMask {
	out := make(map[document.LayerID]NodeMask)
	var walk func(id document.LayerID) *TileMask
	walk = func(id document.LayerID) *TileMask {
		kind, ok := tree.Kind(id)
		if !ok {
			return NewTileMask(tilesPerRow, tilesPerCol)
		}
		var mask *TileMask
		if kind == document.NodeLeaf {
			if m, ok := leafMasks[id]; ok {
				mask = m.Clone()
			} else {
				mask = NewTileMask(tilesPerRow, tilesPerCol)
			}
		} else {
			mask = NewTileMask(tilesPerRow, tilesPerCol)
			children, _ := tree.Children(id)
			for _, c := range children {
				mask.Union(walk(c))
			}
		}
		status := Partial
		if mask.occupancyRatio() >= fullDirtyPromotionThreshold {
			status = Full
		}
		out[id] = NodeMask{Status: status, Mask: mask}
		return mask
	}
	walk(tree.RootID())
	return out
}
