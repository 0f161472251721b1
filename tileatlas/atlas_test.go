package tileatlas

import (
	"bytes"
	"testing"
)

func testConfig() Config {
	return Config{
		MaxLayers:      2,
		TilesPerRow:    2,
		TilesPerColumn: 2,
		PayloadKind:    RGBA8Unorm,
		Usage:          UsageCopyDst | UsageTextureBinding,
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want error
	}{
		{"zero layers", Config{MaxLayers: 0, TilesPerRow: 1, TilesPerColumn: 1, PayloadKind: RGBA8Unorm, Usage: UsageCopyDst | UsageTextureBinding}, ErrMaxLayersZero},
		{"zero grid", Config{MaxLayers: 1, TilesPerRow: 0, TilesPerColumn: 1, PayloadKind: RGBA8Unorm, Usage: UsageCopyDst | UsageTextureBinding}, ErrTileGridZero},
		{"missing usage", Config{MaxLayers: 1, TilesPerRow: 1, TilesPerColumn: 1, PayloadKind: RGBA8Unorm, Usage: UsageCopyDst}, ErrMissingRequiredUsage},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := New(c.cfg); err != c.want {
				t.Fatalf("New() error = %v, want %v", err, c.want)
			}
		})
	}
}

func TestAllocateResolveRelease(t *testing.T) {
	a, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	key, err := a.Allocate()
	if err != nil {
		t.Fatal(err)
	}
	if key == 0 {
		t.Fatal("Allocate returned the reserved zero key")
	}
	addr, ok := a.Resolve(key)
	if !ok {
		t.Fatal("Resolve failed for freshly allocated key")
	}
	if addr.TileIndex >= 4 {
		t.Fatalf("tile index %d out of range for 2x2 grid", addr.TileIndex)
	}
	if !a.Release(key) {
		t.Fatal("Release returned false for a live key")
	}
	if _, ok := a.Resolve(key); ok {
		t.Fatal("Resolve succeeded after Release")
	}
	if a.Release(key) {
		t.Fatal("double Release returned true")
	}
}

func TestAllocateFillsThenFails(t *testing.T) {
	a, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	total := testConfig().MaxLayers * testConfig().TilesPerRow * testConfig().TilesPerColumn
	seen := make(map[TileKey]bool)
	for i := 0; i < total; i++ {
		k, err := a.Allocate()
		if err != nil {
			t.Fatalf("allocation %d failed: %v", i, err)
		}
		if seen[k] {
			t.Fatalf("duplicate key %d", k)
		}
		seen[k] = true
	}
	if _, err := a.Allocate(); err != ErrAtlasFull {
		t.Fatalf("Allocate on full atlas = %v, want ErrAtlasFull", err)
	}
}

func TestAllocateEvictsOldestRetainBatchWhenFull(t *testing.T) {
	a, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	total := testConfig().MaxLayers * testConfig().TilesPerRow * testConfig().TilesPerColumn
	var keys []TileKey
	for i := 0; i < total; i++ {
		k, err := a.Allocate()
		if err != nil {
			t.Fatal(err)
		}
		keys = append(keys, k)
	}
	a.RetainKeysNewBatch(keys)

	newKey, err := a.Allocate()
	if err != nil {
		t.Fatalf("Allocate after retain-batch eviction failed: %v", err)
	}
	if newKey == 0 {
		t.Fatal("got reserved zero key")
	}

	for _, k := range keys {
		if _, ok := a.Resolve(k); ok {
			t.Fatalf("evicted key %d still resolves", k)
		}
	}

	evicted := a.DrainEvictedRetainBatches()
	if len(evicted) != 1 {
		t.Fatalf("len(evicted) = %d, want 1", len(evicted))
	}
	if len(evicted[0].Keys) != total {
		t.Fatalf("evicted batch has %d keys, want %d", len(evicted[0].Keys), total)
	}
	if len(a.DrainEvictedRetainBatches()) != 0 {
		t.Fatal("second drain was not empty")
	}
}

func TestIngestAllZeroCoalescesToNoTile(t *testing.T) {
	a, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	payload := make([]byte, TileSize*TileSize*BytesPerTexelRGBA8)
	key, ok, err := a.IngestTile(payload)
	if err != nil {
		t.Fatal(err)
	}
	if ok || key != 0 {
		t.Fatalf("all-zero ingest: ok=%v key=%d, want ok=false key=0", ok, key)
	}
	if a.PendingOpCount() != 0 {
		t.Fatalf("PendingOpCount = %d, want 0", a.PendingOpCount())
	}
}

func TestIngestNonZeroAllocatesAndQueuesUpload(t *testing.T) {
	a, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	payload := make([]byte, TileSize*TileSize*BytesPerTexelRGBA8)
	payload[0] = 0xFF
	key, ok, err := a.IngestTile(payload)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || key == 0 {
		t.Fatalf("ingest: ok=%v key=%d, want ok=true key!=0", ok, key)
	}
	if a.PendingOpCount() != 1 {
		t.Fatalf("PendingOpCount = %d, want 1", a.PendingOpCount())
	}
}

func TestIngestValidatesStrideAndLength(t *testing.T) {
	a, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	shortStride := TileSize*BytesPerTexelRGBA8 - 1
	if _, _, err := a.IngestTileRGBA8Strided(make([]byte, 1), shortStride); err != ErrIngestStrideTooSmall {
		t.Fatalf("short stride error = %v, want ErrIngestStrideTooSmall", err)
	}
	stride := TileSize * BytesPerTexelRGBA8
	if _, _, err := a.IngestTileRGBA8Strided(make([]byte, 4), stride); err != ErrIngestBufferTooShort {
		t.Fatalf("short buffer error = %v, want ErrIngestBufferTooShort", err)
	}
}

type fakeWriter struct {
	cleared []TileAddress
	written map[TileAddress][]byte
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{written: make(map[TileAddress][]byte)}
}

func (f *fakeWriter) ClearSlot(layer uint32, originX, originY int) error {
	f.cleared = append(f.cleared, TileAddress{Layer: layer, TileIndex: uint32(originY/TileStride)*2 + uint32(originX/TileStride)})
	return nil
}

func (f *fakeWriter) WriteSlotRGBA8(layer uint32, originX, originY int, pixels []byte, stride int) error {
	addr := TileAddress{Layer: layer, TileIndex: uint32(originY/TileStride)*2 + uint32(originX/TileStride)}
	f.written[addr] = append([]byte(nil), pixels...)
	return nil
}

func (f *fakeWriter) WriteSlotEdge(layer uint32, originX, originY int, dir Direction, pixels []byte) error {
	return nil
}

func TestDrainAndExecuteAppliesUploadAndSkipsStale(t *testing.T) {
	a, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	payload := make([]byte, TileSize*TileSize*BytesPerTexelRGBA8)
	payload[0] = 0xAB
	key, ok, err := a.IngestTile(payload)
	if err != nil || !ok {
		t.Fatalf("ingest failed: ok=%v err=%v", ok, err)
	}

	// Release immediately, before draining: the enqueued upload's
	// generation snapshot is now stale and must be skipped.
	a.Release(key)

	w := newFakeWriter()
	applied, err := a.DrainAndExecute(w)
	if err != nil {
		t.Fatal(err)
	}
	if applied != 0 {
		t.Fatalf("applied = %d, want 0 (stale op must be skipped)", applied)
	}
	if len(w.written) != 0 {
		t.Fatalf("writer received %d writes for a stale op", len(w.written))
	}
}

func TestDrainAndExecuteAppliesFreshUpload(t *testing.T) {
	a, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	payload := make([]byte, TileSize*TileSize*BytesPerTexelRGBA8)
	for i := range payload {
		payload[i] = 0x7F
	}
	key, ok, err := a.IngestTile(payload)
	if err != nil || !ok {
		t.Fatalf("ingest failed: ok=%v err=%v", ok, err)
	}
	addr, _ := a.Resolve(key)

	w := newFakeWriter()
	applied, err := a.DrainAndExecute(w)
	if err != nil {
		t.Fatal(err)
	}
	if applied != 1 {
		t.Fatalf("applied = %d, want 1", applied)
	}
	got, ok := w.written[addr]
	if !ok {
		t.Fatal("writer did not receive the upload for the resolved address")
	}
	if len(got) != TileStride*TileStride*BytesPerTexelRGBA8 {
		t.Fatalf("upload payload length = %d, want %d", len(got), TileStride*TileStride*BytesPerTexelRGBA8)
	}
	// content region should be untouched 0x7F; corner gutter duplicates it.
	contentOff := (TileGutter*TileStride + TileGutter) * BytesPerTexelRGBA8
	if !bytes.Equal(got[contentOff:contentOff+4], []byte{0x7F, 0x7F, 0x7F, 0x7F}) {
		t.Fatalf("content origin texel = % x, want 7f7f7f7f", got[contentOff:contentOff+4])
	}
	if !bytes.Equal(got[0:4], []byte{0x7F, 0x7F, 0x7F, 0x7F}) {
		t.Fatalf("corner gutter texel = % x, want duplicated content", got[0:4])
	}
}

func TestReserveReleaseTileSet(t *testing.T) {
	a, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	h, err := a.ReserveTileSet(3)
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Keys()) != 3 {
		t.Fatalf("len(Keys()) = %d, want 3", len(h.Keys()))
	}
	if err := a.ClearTileSet(h); err != nil {
		t.Fatal(err)
	}
	if a.PendingOpCount() != 1 {
		t.Fatalf("PendingOpCount = %d, want 1 (one batched clear op)", a.PendingOpCount())
	}
	if err := a.ReleaseTileSet(h); err != nil {
		t.Fatal(err)
	}
	for _, k := range h.Keys() {
		if _, ok := a.Resolve(k); ok {
			t.Fatalf("key %d still resolves after ReleaseTileSet", k)
		}
	}
}

func TestForeignTileSetRejected(t *testing.T) {
	a1, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	a2, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	h, err := a1.ReserveTileSet(1)
	if err != nil {
		t.Fatal(err)
	}
	if err := a2.ReleaseTileSet(h); err != ErrForeignTileSet {
		t.Fatalf("ReleaseTileSet across atlases = %v, want ErrForeignTileSet", err)
	}
	if err := a2.ClearTileSet(h); err != ErrForeignTileSet {
		t.Fatalf("ClearTileSet across atlases = %v, want ErrForeignTileSet", err)
	}
}

func TestReleaseTileSetIncompleteFailsClosed(t *testing.T) {
	a, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	h, err := a.ReserveTileSet(2)
	if err != nil {
		t.Fatal(err)
	}
	a.Release(h.Keys()[0])
	if err := a.ReleaseTileSet(h); err != ErrTileSetIncomplete {
		t.Fatalf("ReleaseTileSet with a stale key = %v, want ErrTileSetIncomplete", err)
	}
	// the still-live key must not have been released by the failed call.
	if _, ok := a.Resolve(h.Keys()[1]); !ok {
		t.Fatal("ReleaseTileSet released a key despite failing closed")
	}
}
