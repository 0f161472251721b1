package tileatlas

import "testing"

func TestSlotAndContentOrigin(t *testing.T) {
	const tilesPerRow = 3
	sx, sy := SlotOrigin(4, tilesPerRow) // index 4 -> (x=1, y=1)
	if sx != TileStride || sy != TileStride {
		t.Fatalf("SlotOrigin(4) = (%d,%d), want (%d,%d)", sx, sy, TileStride, TileStride)
	}
	cx, cy := ContentOrigin(4, tilesPerRow)
	if cx != TileStride+TileGutter || cy != TileStride+TileGutter {
		t.Fatalf("ContentOrigin(4) = (%d,%d), want (%d,%d)", cx, cy, TileStride+TileGutter, TileStride+TileGutter)
	}
}

func TestTileCoord(t *testing.T) {
	addr := TileAddress{TileIndex: 7}
	x, y := addr.TileCoord(3)
	if x != 1 || y != 2 {
		t.Fatalf("TileCoord = (%d,%d), want (1,2)", x, y)
	}
}
