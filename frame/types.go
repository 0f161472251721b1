package frame

import (
	"github.com/glaphica/engine/document"
	"github.com/glaphica/engine/tileatlas"
)

// TileCoord is a tile grid coordinate, shared by dirty masks, group
// caches, and tile instance vectors.
type TileCoord struct {
	X, Y int
}

// TileInstance is one tile's draw entry: where it sits in the node's
// grid and which atlas-resident tile supplies its pixels. The renderer
// executor turns a slice of these into a GPU instance buffer; frame
// itself never touches GPU resources directly.
type TileInstance struct {
	Coord     TileCoord
	Source    tileatlas.TileKey
	SourceDir tileatlas.TileAddress
}

// GroupAction is what the planner decided for one Branch node.
type GroupAction int

const (
	// GroupUseCache means the group's cached composite is still valid:
	// no dirty tiles, a cache entry exists, and force-rerender is off.
	GroupUseCache GroupAction = iota
	// GroupRerender means the group (or the tile subset in RerenderTiles)
	// must be recomposited from its children before the view pass reads
	// its cache.
	GroupRerender
)

func (a GroupAction) String() string {
	if a == GroupUseCache {
		return "UseCache"
	}
	return "Rerender"
}

// GroupPlan is the planner's decision for one Branch node.
type GroupPlan struct {
	GroupID document.LayerID
	Blend   document.BlendMode
	Action  GroupAction
	// RerenderTiles is the tile set to recomposite when Action is
	// GroupRerender: the group's own dirty tiles when its mask is Partial.
	// Empty means "the whole group" (mask promoted to Full, or a rerender
	// forced or caused by a missing cache entry).
	RerenderTiles []TileCoord
	Children      []NodePlan
}

// LeafPlan is the planner's decision for one Leaf node.
type LeafPlan struct {
	LayerID document.LayerID
	Blend   document.BlendMode
	Image   document.ImageSource
	// FullRebuild means the leaf's whole instance vector must be
	// recomputed (no prior cache, the cache's blend/image source has
	// changed since, or the leaf's dirty mask was promoted to Full). When
	// false, only the tiles in PartialTiles replace
	// their corresponding entries in the cached instance vector.
	FullRebuild  bool
	PartialTiles []TileCoord
}

// NodePlan is a tagged union over {LeafPlan, GroupPlan}, mirroring
// document's Leaf/Branch node kinds.
type NodePlan struct {
	Kind  document.NodeKind
	Leaf  *LeafPlan
	Group *GroupPlan
}

// CompositeNodePlan is Planner.Plan's result: a full rebuild/reuse
// decision tree rooted at the render tree's root group, tagged with the
// FrameSync token it must still match at commit time.
type CompositeNodePlan struct {
	Token PlanToken
	Root  NodePlan
}
