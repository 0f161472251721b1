// Package tileatlas implements the content-addressed tile store: a slot
// allocator over a 2D-array texture, a CPU-side key→address index, a
// GPU-side op queue, and a gutter discipline that keeps linear sampling at
// tile seams free of bleed.
//
// Nothing in this package touches a real GPU texture. Allocation, release,
// resolve, and ingest are CPU-side bookkeeping; the actual pixel write
// happens when the GPU thread calls DrainAndExecute against a caller-
// supplied SlotWriter (typically backed by a gpucontext.Device/Queue pair
// the host handed the renderer).
package tileatlas

import "fmt"

// TileSize is the edge length of a tile's content region, in pixels.
const TileSize = 128

// TileGutter is the width of the duplicated-edge border around a tile's
// content region, in pixels.
const TileGutter = 1

// TileStride is the edge length of a tile's full atlas slot (content plus
// gutter on both sides), in pixels.
const TileStride = TileSize + 2*TileGutter

// BytesPerTexelRGBA8 is the per-texel byte size of the RGBA8 payload kinds.
const BytesPerTexelRGBA8 = 4

// TileKey is an opaque identifier naming a particular committed tile's
// content. Keys are never reused: releasing a key does not recycle its
// numeric value. The zero value is never issued and denotes "no tile".
type TileKey uint64

// TileAddress is a tile's location in the atlas: a layer index and a
// flattened (tile_x, tile_y) slot index within that layer.
type TileAddress struct {
	Layer     uint32
	TileIndex uint32
}

// TileCoord returns (tile_x, tile_y) for this address given the atlas's
// tiles-per-row.
func (a TileAddress) TileCoord(tilesPerRow int) (x, y int) {
	return int(a.TileIndex) % tilesPerRow, int(a.TileIndex) / tilesPerRow
}

// PayloadKind enumerates the texel formats an atlas can be created with.
type PayloadKind int

const (
	RGBA8Unorm PayloadKind = iota
	RGBA8UnormSRGB
	R32Float
	R8Uint
)

func (k PayloadKind) String() string {
	switch k {
	case RGBA8Unorm:
		return "RGBA8Unorm"
	case RGBA8UnormSRGB:
		return "RGBA8UnormSRGB"
	case R32Float:
		return "R32Float"
	case R8Uint:
		return "R8Uint"
	default:
		return fmt.Sprintf("PayloadKind(%d)", int(k))
	}
}

// Ingestable reports whether ingest_tile/ingest_tile_rgba8_strided is
// defined for this payload kind. Float/uint variants are allocate+clear
// only.
func (k PayloadKind) Ingestable() bool {
	return k == RGBA8Unorm || k == RGBA8UnormSRGB
}

// UsageFlags mirrors the WebGPU texture usage bits relevant to atlas
// construction validation. Bits are independent and combine with OR.
type UsageFlags uint32

const (
	UsageCopyDst UsageFlags = 1 << iota
	UsageTextureBinding
	UsageStorageBinding
)

func (u UsageFlags) Has(bit UsageFlags) bool { return u&bit != 0 }

// Config describes the static shape of an Atlas, as handed to New.
type Config struct {
	MaxLayers      int
	TilesPerRow    int
	TilesPerColumn int
	PayloadKind    PayloadKind
	Usage          UsageFlags
}

func (c Config) validate() error {
	if c.MaxLayers <= 0 {
		return ErrMaxLayersZero
	}
	if c.TilesPerRow <= 0 || c.TilesPerColumn <= 0 {
		return ErrTileGridZero
	}
	if c.TilesPerRow*c.TilesPerColumn > 65535 {
		return ErrTileGridTooLarge
	}
	switch c.PayloadKind {
	case RGBA8Unorm, RGBA8UnormSRGB:
		if !c.Usage.Has(UsageCopyDst) || !c.Usage.Has(UsageTextureBinding) {
			return ErrMissingRequiredUsage
		}
	case R32Float, R8Uint:
		if !c.Usage.Has(UsageStorageBinding) {
			return ErrMissingRequiredUsage
		}
	default:
		return fmt.Errorf("tileatlas: %w: %v", ErrUnsupportedPayloadKind, c.PayloadKind)
	}
	return nil
}

// TileSetHandle names a set of keys reserved together via ReserveTileSet.
// It carries an owner tag stamped at reservation time; passing a handle
// from a different Atlas to ReleaseTileSet/ClearTileSet is rejected.
type TileSetHandle struct {
	owner uint64
	keys  []TileKey
}

// Keys returns the tile keys in this set.
func (h TileSetHandle) Keys() []TileKey { return h.keys }
