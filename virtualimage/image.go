// Package virtualimage implements the sparse per-layer tile grid: a
// tiles_per_row x tiles_per_column map from grid coordinate to an optional
// tileatlas.TileKey. A grid cell with no key is empty canvas — fully
// transparent — and costs nothing in the atlas.
package virtualimage

import (
	"fmt"

	"github.com/glaphica/engine/tileatlas"
)

// VirtualImage is one layer's tile grid. It owns no atlas slots itself —
// SetTile/ClearTile only rebind which key a grid cell names; allocating
// and releasing the underlying atlas tile is the caller's responsibility
// (document), since only document knows when a key is safe to release
// (no other reference, no in-flight merge).
//
// Grounded on gogpu-gg/internal/parallel/tile_grid.go's flat row-major tile slice
// and ty*tilesX+tx indexing, generalized from a dense pixel-tile grid to a
// sparse key grid (most cells are empty canvas, represented as TileKey 0).
type VirtualImage struct {
	tilesPerRow    int
	tilesPerColumn int
	tiles          []tileatlas.TileKey
}

// New constructs an empty VirtualImage of the given grid dimensions.
func New(tilesPerRow, tilesPerColumn int) (*VirtualImage, error) {
	if tilesPerRow <= 0 || tilesPerColumn <= 0 {
		return nil, ErrGridDimensionZero
	}
	return &VirtualImage{
		tilesPerRow:    tilesPerRow,
		tilesPerColumn: tilesPerColumn,
		tiles:          make([]tileatlas.TileKey, tilesPerRow*tilesPerColumn),
	}, nil
}

func (v *VirtualImage) TilesPerRow() int    { return v.tilesPerRow }
func (v *VirtualImage) TilesPerColumn() int { return v.tilesPerColumn }

func (v *VirtualImage) inBounds(tx, ty int) bool {
	return tx >= 0 && tx < v.tilesPerRow && ty >= 0 && ty < v.tilesPerColumn
}

func (v *VirtualImage) index(tx, ty int) int {
	return ty*v.tilesPerRow + tx
}

// TileAt returns the key bound to (tx, ty) and whether the cell is
// occupied. A cell with no bound key (including any out-of-bounds
// coordinate) reports ok=false.
func (v *VirtualImage) TileAt(tx, ty int) (tileatlas.TileKey, bool) {
	if !v.inBounds(tx, ty) {
		return 0, false
	}
	k := v.tiles[v.index(tx, ty)]
	return k, k != 0
}

// SetTile binds key to grid cell (tx, ty), replacing whatever was there.
// It returns the previously bound key (0 if the cell was empty) so the
// caller can decide whether to release it.
func (v *VirtualImage) SetTile(tx, ty int, key tileatlas.TileKey) (tileatlas.TileKey, error) {
	if !v.inBounds(tx, ty) {
		return 0, fmt.Errorf("%w: (%d,%d) outside %dx%d grid", ErrOutOfBounds, tx, ty, v.tilesPerRow, v.tilesPerColumn)
	}
	idx := v.index(tx, ty)
	prev := v.tiles[idx]
	v.tiles[idx] = key
	return prev, nil
}

// ClearTile unbinds whatever key occupies (tx, ty), returning it (0 if
// already empty).
func (v *VirtualImage) ClearTile(tx, ty int) (tileatlas.TileKey, error) {
	return v.SetTile(tx, ty, 0)
}

// IterTiles calls fn for every occupied cell, in row-major order.
func (v *VirtualImage) IterTiles(fn func(tx, ty int, key tileatlas.TileKey)) {
	for ty := 0; ty < v.tilesPerColumn; ty++ {
		for tx := 0; tx < v.tilesPerRow; tx++ {
			if k := v.tiles[v.index(tx, ty)]; k != 0 {
				fn(tx, ty, k)
			}
		}
	}
}

// OccupiedCount returns the number of cells with a bound key.
func (v *VirtualImage) OccupiedCount() int {
	n := 0
	v.IterTiles(func(int, int, tileatlas.TileKey) { n++ })
	return n
}

// Resize changes the grid's dimensions in place. Cells that fall outside
// the new bounds are dropped and their keys returned so the caller can
// release them from the atlas; cells within both the old and new bounds
// keep their bound key.
func (v *VirtualImage) Resize(newTilesPerRow, newTilesPerColumn int) ([]tileatlas.TileKey, error) {
	if newTilesPerRow <= 0 || newTilesPerColumn <= 0 {
		return nil, ErrGridDimensionZero
	}
	newTiles := make([]tileatlas.TileKey, newTilesPerRow*newTilesPerColumn)
	var dropped []tileatlas.TileKey
	minRow := min(v.tilesPerColumn, newTilesPerColumn)
	minCol := min(v.tilesPerRow, newTilesPerRow)
	for ty := 0; ty < v.tilesPerColumn; ty++ {
		for tx := 0; tx < v.tilesPerRow; tx++ {
			k := v.tiles[v.index(tx, ty)]
			if k == 0 {
				continue
			}
			if tx < minCol && ty < minRow {
				newTiles[ty*newTilesPerRow+tx] = k
			} else {
				dropped = append(dropped, k)
			}
		}
	}
	v.tiles = newTiles
	v.tilesPerRow = newTilesPerRow
	v.tilesPerColumn = newTilesPerColumn
	return dropped, nil
}
