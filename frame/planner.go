package frame

import (
	"sync"

	"github.com/glaphica/engine/dirty"
	"github.com/glaphica/engine/document"
	"github.com/glaphica/engine/tileatlas"
)

// Planner walks a document's render tree snapshot plus its per-layer
// dirty history and produces a CompositeNodePlan: which groups can reuse
// their cached composite, which must rerender (and over which tile
// subset), and which leaves need a full or partial instance-vector
// rebuild.
//
// Grounded on gogpu-gg/scene/cache.go's LayerCache for the group/leaf
// caches (see cache.go) and spec.md §4.5's five numbered per-frame steps.
type Planner struct {
	doc     *document.Document
	atlas   *tileatlas.Atlas
	fs      *FrameSync
	groups  *GroupCache
	leaves  *LeafCache
	resolver dirty.DirtyRectResolver

	tilesPerRow int
	tilesPerCol int

	mu              sync.Mutex
	lastLayerRev    map[document.LayerID]uint64
	cachedSnapshot  *document.RenderTreeSnapshot
	forceGroupRerender bool
}

// NewPlanner constructs a Planner over doc, reading committed tile
// content from atlas and caching composited results in groups/leaves.
// tilesPerRow/tilesPerCol describe the document-wide tile grid every
// layer's VirtualImage shares.
func NewPlanner(doc *document.Document, atlas *tileatlas.Atlas, fs *FrameSync, groups *GroupCache, leaves *LeafCache, tilesPerRow, tilesPerCol int) *Planner {
	return &Planner{
		doc:          doc,
		atlas:        atlas,
		fs:           fs,
		groups:       groups,
		leaves:       leaves,
		resolver:     dirty.IdentityResolver{},
		tilesPerRow:  tilesPerRow,
		tilesPerCol:  tilesPerCol,
		lastLayerRev: make(map[document.LayerID]uint64),
	}
}

// SetDirtyRectResolver installs a non-default propagate_layer_dirty_rects
// hook (see dirty.DirtyRectResolver); the identity resolver is used until
// this is called.
func (p *Planner) SetDirtyRectResolver(r dirty.DirtyRectResolver) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r == nil {
		r = dirty.IdentityResolver{}
	}
	p.resolver = r
}

// ForceGroupRerenderNextFrame marks every group dirty for the next Plan
// call regardless of its own dirty tile set, per §4.5 "document-wide
// composite invalidation, e.g. resize".
func (p *Planner) ForceGroupRerenderNextFrame() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.forceGroupRerender = true
}

// CommitFunc advances the dirty-tracking state a successfully executed
// plan consumed. Call it only after FrameSync.Commit(plan.Token, ...)
// reports true; on a rejected commit, simply discard it so the next
// Plan call re-resolves the same dirty state.
type CommitFunc func()

// Plan builds a CompositeNodePlan against the document's current state.
// The returned CommitFunc must be invoked (after a successful
// FrameSync.Commit) to advance the per-layer since-revision tracking;
// leaving it uncalled safely discards the frame's dirty-tracking advance.
func (p *Planner) Plan() (CompositeNodePlan, CommitFunc, error) {
	p.mu.Lock()
	resolver := p.resolver
	force := p.forceGroupRerender
	p.mu.Unlock()

	snapshot := p.doc.Snapshot()

	since := make(dirty.SinceRevisions)
	p.mu.Lock()
	for id, n := range snapshot.Nodes {
		if n.Kind != document.NodeLeaf {
			continue
		}
		since[id] = p.lastLayerRev[id]
	}
	p.mu.Unlock()

	leafMasks, err := dirty.ResolveLayerDirtyRectMasks(p.doc, resolver, since, tileatlas.TileSize, p.tilesPerRow, p.tilesPerCol)
	if err != nil {
		return CompositeNodePlan{}, nil, err
	}
	nodeMasks := dirty.CollectNodeTileMasks(p.doc.Tree(), leafMasks, p.tilesPerRow, p.tilesPerCol)

	live := make(map[document.LayerID]struct{}, len(snapshot.Nodes))
	for id := range snapshot.Nodes {
		live[id] = struct{}{}
	}
	p.groups.Prune(live)
	p.leaves.Prune(live)

	token := p.fs.BeginPlan(snapshot.Revision)
	root := p.planNode(snapshot, snapshot.RootID, nodeMasks, force)

	commit := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for id, n := range snapshot.Nodes {
			if n.Kind != document.NodeLeaf {
				continue
			}
			if rev, ok := p.doc.LayerRevision(id); ok {
				p.lastLayerRev[id] = rev
			}
		}
		if force {
			p.forceGroupRerender = false
		}
	}

	return CompositeNodePlan{Token: token, Root: root}, commit, nil
}

func (p *Planner) planNode(snapshot *document.RenderTreeSnapshot, id document.LayerID, nodeMasks map[document.LayerID]dirty.NodeMask, force bool) NodePlan {
	n := snapshot.Nodes[id]
	if n.Kind == document.NodeLeaf {
		return NodePlan{Kind: document.NodeLeaf, Leaf: p.planLeaf(n, nodeMasks)}
	}
	return NodePlan{Kind: document.NodeBranch, Group: p.planGroup(snapshot, n, nodeMasks, force)}
}

func (p *Planner) planLeaf(n document.NodeSnapshot, nodeMasks map[document.LayerID]dirty.NodeMask) *LeafPlan {
	plan := &LeafPlan{LayerID: n.ID, Blend: n.Blend}
	if n.Image != nil {
		plan.Image = *n.Image
	}

	cachedBlend, cachedImage, _, _, found := p.leaves.Get(n.ID)
	mask, hasMask := nodeMasks[n.ID]
	dirtyNode := hasMask && !mask.Mask.IsEmpty()

	needsFull := !found || cachedBlend != plan.Blend || cachedImage != plan.Image
	if needsFull || (dirtyNode && mask.Status == dirty.Full) {
		plan.FullRebuild = true
		instances := p.buildLeafInstances(n, nil)
		p.leaves.Put(n.ID, plan.Blend, plan.Image, instances)
		return plan
	}

	if dirtyNode && mask.Status == dirty.Partial {
		var coords []TileCoord
		mask.Mask.ForEachDirty(func(tx, ty int) {
			coords = append(coords, TileCoord{X: tx, Y: ty})
		})
		plan.PartialTiles = coords
		replacements := p.buildLeafInstances(n, coords)
		p.leaves.ReplaceTiles(n.ID, replacements)
	}
	return plan
}

// buildLeafInstances resolves tile keys from the leaf's bound VirtualImage
// into draw instances. When coords is non-nil only those tiles are
// resolved (a partial rebuild); otherwise every occupied tile is resolved
// (a full rebuild).
func (p *Planner) buildLeafInstances(n document.NodeSnapshot, coords []TileCoord) []TileInstance {
	if n.Image == nil {
		return nil
	}
	vimg, ok := p.doc.Image(n.Image.Handle)
	if !ok {
		return nil
	}

	var out []TileInstance
	resolve := func(tx, ty int) {
		key, occupied := vimg.TileAt(tx, ty)
		inst := TileInstance{Coord: TileCoord{X: tx, Y: ty}}
		if occupied {
			inst.Source = key
			if addr, ok := p.atlas.Resolve(key); ok {
				inst.SourceDir = addr
			}
		}
		out = append(out, inst)
	}

	if coords != nil {
		for _, c := range coords {
			resolve(c.X, c.Y)
		}
		return out
	}
	vimg.IterTiles(func(tx, ty int, _ tileatlas.TileKey) {
		resolve(tx, ty)
	})
	return out
}

func (p *Planner) planGroup(snapshot *document.RenderTreeSnapshot, n document.NodeSnapshot, nodeMasks map[document.LayerID]dirty.NodeMask, force bool) *GroupPlan {
	plan := &GroupPlan{GroupID: n.ID, Blend: n.Blend}

	mask, hasMask := nodeMasks[n.ID]
	dirtyNode := hasMask && !mask.Mask.IsEmpty()
	_, _, cachedFound := p.groups.Get(n.ID)
	useCache := cachedFound && !force && !dirtyNode

	if useCache {
		plan.Action = GroupUseCache
	} else {
		plan.Action = GroupRerender
		if dirtyNode && mask.Status == dirty.Partial {
			var coords []TileCoord
			mask.Mask.ForEachDirty(func(tx, ty int) {
				coords = append(coords, TileCoord{X: tx, Y: ty})
			})
			plan.RerenderTiles = coords
		}
	}

	// force (a document-wide composite invalidation) propagates to every
	// descendant; a group's own rerender decision, driven by its own
	// dirty tiles, does not by itself force an unrelated clean sibling
	// subtree to rerender.
	for _, childID := range n.Children {
		plan.Children = append(plan.Children, p.planNode(snapshot, childID, nodeMasks, force))
	}
	return plan
}
