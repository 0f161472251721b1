package virtualimage

import (
	"github.com/glaphica/engine/pixelbuf"
	"github.com/glaphica/engine/tileatlas"
)

// ContentReader reads back a resolved tile's content region (the
// TileSize x TileSize interior, gutter excluded) as tightly packed RGBA8.
// Implemented by whatever owns the real GPU texture; ExportRGBA8 never
// touches GPU state directly.
type ContentReader interface {
	ReadTileContent(addr tileatlas.TileAddress) ([]byte, error)
}

// ExportRGBA8 composites every occupied cell of v into a single
// pixelbuf.Buffer sized tiles_per_row*TileSize x tiles_per_column*TileSize,
// using atlas to resolve each bound key to its physical address and reader
// to fetch the tile's pixels. Empty cells are left at their buffer's zero
// value (transparent black), matching the "no tile = empty canvas"
// invariant.
func ExportRGBA8(v *VirtualImage, atlas *tileatlas.Atlas, reader ContentReader) (*pixelbuf.Buffer, error) {
	width := v.tilesPerRow * tileatlas.TileSize
	height := v.tilesPerColumn * tileatlas.TileSize
	buf := pixelbuf.New(width, height)

	var exportErr error
	v.IterTiles(func(tx, ty int, key tileatlas.TileKey) {
		if exportErr != nil {
			return
		}
		addr, ok := atlas.Resolve(key)
		if !ok {
			// A key the virtual image still names but the atlas no longer
			// resolves is a caller bug (it should have been released from
			// the grid first); skip rather than fail the whole export.
			return
		}
		pixels, err := reader.ReadTileContent(addr)
		if err != nil {
			exportErr = err
			return
		}
		buf.CopyRect(tx*tileatlas.TileSize, ty*tileatlas.TileSize, tileatlas.TileSize, tileatlas.TileSize, pixels, tileatlas.TileSize*tileatlas.BytesPerTexelRGBA8)
	})
	if exportErr != nil {
		return nil, exportErr
	}
	return buf, nil
}
