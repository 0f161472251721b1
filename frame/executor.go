package frame

import (
	"fmt"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"

	engine "github.com/glaphica/engine"
	"github.com/glaphica/engine/document"
	"github.com/glaphica/engine/internal/parallel"
	"github.com/glaphica/engine/tileatlas"
	"github.com/glaphica/engine/virtualimage"
)

// ShaderModules holds the two externally supplied WGSL programs the
// executor encodes passes against. Authoring the shader text itself is a
// boundary input (spec.md §1 non-goal: "the specific WGSL fragment
// shaders"); this package only compiles/reflects what it is handed.
type ShaderModules struct {
	CompositeToGroupCache string
	GroupCacheToSurface   string
}

// CompiledShaders is the naga-validated SPIR-V for both modules.
//
// Grounded on gogpu-gg/internal/native/shader_helper.go's
// naga.Compile(wgslSource) usage.
type CompiledShaders struct {
	CompositeToGroupCache []byte
	GroupCacheToSurface   []byte
}

// CompileShaders validates both externally supplied WGSL modules with
// naga, the same compiler the teacher's internal/native package reaches
// for ahead of pipeline creation.
func CompileShaders(mods ShaderModules) (CompiledShaders, error) {
	composite, err := naga.Compile(mods.CompositeToGroupCache)
	if err != nil {
		return CompiledShaders{}, fmt.Errorf("frame: compile composite-to-group-cache shader: %w", err)
	}
	view, err := naga.Compile(mods.GroupCacheToSurface)
	if err != nil {
		return CompiledShaders{}, fmt.Errorf("frame: compile group-cache-to-surface shader: %w", err)
	}
	return CompiledShaders{CompositeToGroupCache: composite, GroupCacheToSurface: view}, nil
}

// CompositeTarget is the narrow capability the composite pass needs: a
// scratch render target it can clear, draw tile instances into, and copy
// slot-sized (gutter-preserving) regions out of into a group's cache
// atlas.
//
// Grounded on gogpu-gg/render/device.go's pattern of depending on a
// narrow capability interface rather than a concrete GPU handle
// (DeviceHandle itself is one), mirrored here for the pass-encoding
// surface instead of device/texture creation.
type CompositeTarget interface {
	ClearScratch() error
	DrawTileInstances(instances []TileInstance, blend document.BlendMode) error
	CopySlotRegion(srcOriginX, srcOriginY int, dstLayer uint32, dstOriginX, dstOriginY int) error
}

// SurfaceTarget is the narrow capability the view pass needs: drawing the
// root group's tile instances to the presentable surface and presenting.
type SurfaceTarget interface {
	SetViewMatrix(upscales bool) error
	DrawTileInstances(instances []TileInstance, blend document.BlendMode) error
	Present() error
}

// Executor encodes a CompositeNodePlan's two GPU passes: composite-to-
// group-cache (recursive, only for groups the planner marked Rerender),
// then group-cache-to-surface (always, for the root).
//
// Grounded on gogpu-gg/render/device.go's DeviceHandle/gpucontext usage
// for device plumbing, and gogpu-gg/internal/parallel/pool.go's
// WorkerPool (used directly, not reimplemented) for fanning out
// concurrent per-group tile-copy jobs when a composite pass rerenders
// several dirty groups at once.
type Executor struct {
	device     gpucontext.DeviceProvider
	groupAtlas *tileatlas.Atlas
	shaders    CompiledShaders
	pool       *parallel.WorkerPool

	tilesPerRow int
	tilesPerCol int
}

// NewExecutor constructs an Executor drawing through device, caching
// composited groups in groupAtlas (a secondary atlas distinct from the
// one holding committed layer content), with workers concurrent tile-copy
// jobs (0 uses GOMAXPROCS, matching parallel.NewWorkerPool's default).
func NewExecutor(device gpucontext.DeviceProvider, groupAtlas *tileatlas.Atlas, shaders CompiledShaders, workers int, tilesPerRow, tilesPerCol int) *Executor {
	return &Executor{
		device:      device,
		groupAtlas:  groupAtlas,
		shaders:     shaders,
		pool:        parallel.NewWorkerPool(workers),
		tilesPerRow: tilesPerRow,
		tilesPerCol: tilesPerCol,
	}
}

// Close shuts down the executor's worker pool.
func (e *Executor) Close() {
	e.pool.Close()
}

// SurfaceFormat reports the format the host's device was configured with,
// per gpucontext.DeviceProvider.
func (e *Executor) SurfaceFormat() gputypes.TextureFormat {
	if e.device == nil {
		return gputypes.TextureFormatUndefined
	}
	return e.device.SurfaceFormat()
}

// Execute runs the composite pass over every group plan.Root's subtree
// marks Rerender, then the view pass drawing plan.Root to surface.
// upscales selects the sampler the view pass binds: linear when the
// view-space transform magnifies beyond 1:1, nearest otherwise.
func (e *Executor) Execute(plan CompositeNodePlan, groups *GroupCache, leaves *LeafCache, composite CompositeTarget, surface SurfaceTarget, upscales bool) error {
	var start time.Time
	if engine.PerfLogEnabled() {
		start = time.Now()
	}

	if plan.Root.Kind == document.NodeBranch {
		if err := e.encodeCompositePass(plan.Root, groups, leaves, composite); err != nil {
			return err
		}
	}
	if err := e.encodeViewPass(plan.Root, groups, leaves, surface, upscales); err != nil {
		return err
	}

	if engine.PerfLogEnabled() {
		engine.Logger().Debug("frame executed", "frame_id", plan.Token.FrameID, "elapsed", time.Since(start))
	}
	return nil
}

// encodeCompositePass recursively composites node (a Branch) into its
// group cache when the planner marked it Rerender, fanning child-group
// rerenders out across the worker pool before compositing node itself
// (every child must be current before node reads its instances).
func (e *Executor) encodeCompositePass(node NodePlan, groups *GroupCache, leaves *LeafCache, target CompositeTarget) error {
	g := node.Group
	if g.Action == GroupUseCache {
		return nil
	}

	childGroups := make([]NodePlan, 0, len(g.Children))
	for _, c := range g.Children {
		if c.Kind == document.NodeBranch && c.Group.Action == GroupRerender {
			childGroups = append(childGroups, c)
		}
	}
	if len(childGroups) > 0 {
		errs := make([]error, len(childGroups))
		jobs := make([]func(), len(childGroups))
		for i, c := range childGroups {
			i, c := i, c
			jobs[i] = func() { errs[i] = e.encodeCompositePass(c, groups, leaves, target) }
		}
		e.pool.ExecuteAll(jobs)
		for _, err := range errs {
			if err != nil {
				return err
			}
		}
	}

	if err := target.ClearScratch(); err != nil {
		return err
	}
	for _, c := range g.Children {
		instances, blend := e.childInstances(c, groups, leaves)
		if len(instances) == 0 {
			continue
		}
		if err := target.DrawTileInstances(instances, blend); err != nil {
			return err
		}
	}

	return e.commitGroupCache(g, groups, target)
}

// commitGroupCache copies the scratch texture's dirty tile slots (or,
// when RerenderTiles is empty, every tile of the grid)
// into the group's cache atlas, preserving the gutter per tile, then
// refreshes groups' cached instance vector for this group.
func (e *Executor) commitGroupCache(g *GroupPlan, groups *GroupCache, target CompositeTarget) error {
	img, ok := groups.Image(g.GroupID)
	if !ok || img == nil {
		var err error
		img, err = virtualimage.New(e.tilesPerRow, e.tilesPerCol)
		if err != nil {
			return err
		}
	}

	tiles := g.RerenderTiles
	if len(tiles) == 0 {
		tiles = allTileCoords(e.tilesPerRow, e.tilesPerCol)
	}

	var instances []TileInstance
	for _, t := range tiles {
		key, existing := img.TileAt(t.X, t.Y)
		if !existing {
			var err error
			key, err = e.groupAtlas.Allocate()
			if err != nil {
				return fmt.Errorf("frame: allocate group cache tile for group %d at (%d,%d): %w", g.GroupID, t.X, t.Y, err)
			}
			if _, err := img.SetTile(t.X, t.Y, key); err != nil {
				return err
			}
		}
		addr, ok := e.groupAtlas.Resolve(key)
		if !ok {
			return fmt.Errorf("frame: group cache tile key %d unresolvable for group %d", key, g.GroupID)
		}
		dstX, dstY := tileatlas.SlotOrigin(addr.TileIndex, e.tilesPerRow)
		srcX, srcY := tileatlas.SlotOrigin(uint32(t.Y*e.tilesPerRow+t.X), e.tilesPerRow)
		if err := target.CopySlotRegion(srcX, srcY, addr.Layer, dstX, dstY); err != nil {
			return err
		}
		instances = append(instances, TileInstance{Coord: t, Source: key, SourceDir: addr})
	}

	// preserve instances for tiles not touched this pass.
	_, existing, found := groups.Get(g.GroupID)
	if found {
		seen := make(map[TileCoord]bool, len(instances))
		for _, inst := range instances {
			seen[inst.Coord] = true
		}
		for _, inst := range existing {
			if !seen[inst.Coord] {
				instances = append(instances, inst)
			}
		}
	}

	groups.Put(g.GroupID, g.Blend, img, instances)
	return nil
}

// encodeViewPass draws the composited root to surface. A Branch root is
// drawn from its (now-current) group cache; a tree consisting of a single
// Leaf (no grouping at all) draws the leaf's own instances directly.
func (e *Executor) encodeViewPass(root NodePlan, groups *GroupCache, leaves *LeafCache, surface SurfaceTarget, upscales bool) error {
	if err := surface.SetViewMatrix(upscales); err != nil {
		return err
	}
	instances, blend := e.childInstances(root, groups, leaves)
	if len(instances) > 0 {
		if err := surface.DrawTileInstances(instances, blend); err != nil {
			return err
		}
	}
	return surface.Present()
}

// childInstances resolves one child node's draw instances and blend mode:
// a leaf reads its cached instance vector (already current, since the
// planner rebuilt it during planning), a group reads its group-cache
// instance vector (current only after encodeCompositePass has visited it,
// which Execute guarantees by composite-passing before view-passing).
func (e *Executor) childInstances(n NodePlan, groups *GroupCache, leaves *LeafCache) ([]TileInstance, document.BlendMode) {
	if n.Kind == document.NodeLeaf {
		blend, _, instances, _, ok := leaves.Get(n.Leaf.LayerID)
		if !ok {
			return nil, n.Leaf.Blend
		}
		return instances, blend
	}
	blend, instances, ok := groups.Get(n.Group.GroupID)
	if !ok {
		return nil, n.Group.Blend
	}
	return instances, blend
}

func allTileCoords(tilesPerRow, tilesPerCol int) []TileCoord {
	out := make([]TileCoord, 0, tilesPerRow*tilesPerCol)
	for y := 0; y < tilesPerCol; y++ {
		for x := 0; x < tilesPerRow; x++ {
			out = append(out, TileCoord{X: x, Y: y})
		}
	}
	return out
}
