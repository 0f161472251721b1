package frame

import (
	"container/list"
	"sync"

	"github.com/glaphica/engine/document"
	"github.com/glaphica/engine/tileatlas"
	"github.com/glaphica/engine/virtualimage"
)

// defaultCacheCapacity bounds how many group/leaf cache entries are kept
// before the least-recently-touched one is evicted. Grounded on
// gogpu-gg/scene/cache.go's LayerCache (container/list front=most-recent,
// evict from the back); unlike LayerCache this cache is keyed by stable
// group_id/layer_id rather than content hash, and eviction of a group
// entry releases its backing atlas tile keys rather than just dropping a
// pixmap, since a group cache is itself atlas-resident (§4.5 "Group
// target cache").
const defaultCacheCapacity = 256

// groupCacheEntry is one Branch node's composited-subtree cache: the
// VirtualImage of tile keys backing its rendered content in a secondary
// atlas, plus the precomputed per-tile instance vector the view pass
// draws from.
type groupCacheEntry struct {
	groupID   document.LayerID
	blend     document.BlendMode
	image     *virtualimage.VirtualImage
	instances []TileInstance
	element   *list.Element
}

// GroupCache holds one entry per live group (Branch) node, backed by a
// secondary atlas distinct from the one holding committed layer content.
//
// Grounded on gogpu-gg/scene/cache.go's LayerCache LRU shape, adapted from
// content-hash keying to stable group_id keying and from "evict drops a
// pixmap" to "evict releases atlas tile keys" (§9 "Ownership graphs":
// "Renderer exclusively owns its group target cache... reconstructed on
// mismatch, never repaired in place").
type GroupCache struct {
	mu       sync.Mutex
	atlas    *tileatlas.Atlas
	entries  map[document.LayerID]*groupCacheEntry
	lru      *list.List
	capacity int
}

// NewGroupCache constructs a GroupCache whose virtual images draw tile
// keys from atlas (the group-cache secondary atlas, distinct from the
// atlas holding committed layer content).
func NewGroupCache(atlas *tileatlas.Atlas) *GroupCache {
	return &GroupCache{
		atlas:    atlas,
		entries:  make(map[document.LayerID]*groupCacheEntry),
		lru:      list.New(),
		capacity: defaultCacheCapacity,
	}
}

// Get returns groupID's cache entry and touches its LRU position, or
// reports ok=false if no entry exists yet.
func (c *GroupCache) Get(groupID document.LayerID) (blend document.BlendMode, instances []TileInstance, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, found := c.entries[groupID]
	if !found {
		return 0, nil, false
	}
	c.lru.MoveToFront(e.element)
	return e.blend, e.instances, true
}

// Image returns the VirtualImage backing groupID's composited content, if
// cached.
func (c *GroupCache) Image(groupID document.LayerID) (*virtualimage.VirtualImage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[groupID]
	if !ok {
		return nil, false
	}
	return e.image, true
}

// Put installs or replaces groupID's cache entry, evicting whatever
// tile-grid image previously occupied it. Re-putting the image the entry
// already holds keeps its tile keys.
func (c *GroupCache) Put(groupID document.LayerID, blend document.BlendMode, image *virtualimage.VirtualImage, instances []TileInstance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[groupID]; ok {
		c.lru.Remove(existing.element)
		if existing.image != image {
			c.releaseImage(existing.image)
		}
	}
	e := &groupCacheEntry{groupID: groupID, blend: blend, image: image, instances: instances}
	e.element = c.lru.PushFront(e)
	c.entries[groupID] = e
	c.evictOverCapacity()
}

// SetInstances replaces groupID's cached instance vector in place,
// without touching its backing image. It does nothing if groupID has no
// entry.
func (c *GroupCache) SetInstances(groupID document.LayerID, instances []TileInstance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[groupID]; ok {
		e.instances = instances
		c.lru.MoveToFront(e.element)
	}
}

// Prune releases every cached group not present in live, per §4.5
// "Groups absent from the current snapshot have their virtual images
// released (every tile key returned to the backing atlas)".
func (c *GroupCache) Prune(live map[document.LayerID]struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, e := range c.entries {
		if _, ok := live[id]; ok {
			continue
		}
		c.lru.Remove(e.element)
		c.releaseImage(e.image)
		delete(c.entries, id)
	}
}

func (c *GroupCache) evictOverCapacity() {
	for len(c.entries) > c.capacity {
		back := c.lru.Back()
		if back == nil {
			return
		}
		e := back.Value.(*groupCacheEntry)
		c.lru.Remove(back)
		c.releaseImage(e.image)
		delete(c.entries, e.groupID)
	}
}

func (c *GroupCache) releaseImage(img *virtualimage.VirtualImage) {
	if img == nil || c.atlas == nil {
		return
	}
	img.IterTiles(func(tx, ty int, key tileatlas.TileKey) {
		c.atlas.Release(key)
	})
}

// leafCacheEntry is one Leaf node's most recent instance vector, plus an
// index from tile coordinate back into that vector so a partial dirty-tile
// replacement need not rebuild the whole thing.
type leafCacheEntry struct {
	layerID   document.LayerID
	blend     document.BlendMode
	image     document.ImageSource
	instances []TileInstance
	tileIndex map[TileCoord]int
	element   *list.Element
}

// LeafCache holds one entry per live Leaf node.
//
// Grounded on the same gogpu-gg/scene/cache.go LRU shape as GroupCache,
// keyed by layer_id; unlike GroupCache a leaf cache entry owns no atlas
// tiles of its own (a leaf samples straight from the layer's committed
// VirtualImage, owned by document), so eviction here only drops the
// instance vector — nothing to release.
type LeafCache struct {
	mu       sync.Mutex
	entries  map[document.LayerID]*leafCacheEntry
	lru      *list.List
	capacity int
}

func NewLeafCache() *LeafCache {
	return &LeafCache{
		entries:  make(map[document.LayerID]*leafCacheEntry),
		lru:      list.New(),
		capacity: defaultCacheCapacity,
	}
}

// Get returns layerID's cached (blend, image source, instances), touching
// its LRU position.
func (c *LeafCache) Get(layerID document.LayerID) (blend document.BlendMode, image document.ImageSource, instances []TileInstance, tileIndex map[TileCoord]int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, found := c.entries[layerID]
	if !found {
		return 0, document.ImageSource{}, nil, nil, false
	}
	c.lru.MoveToFront(e.element)
	return e.blend, e.image, e.instances, e.tileIndex, true
}

// Put installs or replaces layerID's cache entry.
func (c *LeafCache) Put(layerID document.LayerID, blend document.BlendMode, image document.ImageSource, instances []TileInstance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tileIndex := make(map[TileCoord]int, len(instances))
	for i, inst := range instances {
		tileIndex[inst.Coord] = i
	}
	if existing, ok := c.entries[layerID]; ok {
		c.lru.Remove(existing.element)
	}
	e := &leafCacheEntry{layerID: layerID, blend: blend, image: image, instances: instances, tileIndex: tileIndex}
	e.element = c.lru.PushFront(e)
	c.entries[layerID] = e
	c.evictOverCapacity()
}

// ReplaceTiles swaps the instance-vector entries named by coords in place
// on layerID's cached entry (a partial rebuild), leaving every other entry
// untouched.
func (c *LeafCache) ReplaceTiles(layerID document.LayerID, replacements []TileInstance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[layerID]
	if !ok {
		return
	}
	for _, r := range replacements {
		if idx, ok := e.tileIndex[r.Coord]; ok {
			e.instances[idx] = r
			continue
		}
		e.tileIndex[r.Coord] = len(e.instances)
		e.instances = append(e.instances, r)
	}
	c.lru.MoveToFront(e.element)
}

// Prune drops every cached leaf not present in live.
func (c *LeafCache) Prune(live map[document.LayerID]struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, e := range c.entries {
		if _, ok := live[id]; ok {
			continue
		}
		c.lru.Remove(e.element)
		delete(c.entries, id)
	}
}

func (c *LeafCache) evictOverCapacity() {
	for len(c.entries) > c.capacity {
		back := c.lru.Back()
		if back == nil {
			return
		}
		e := back.Value.(*leafCacheEntry)
		c.lru.Remove(back)
		delete(c.entries, e.layerID)
	}
}
