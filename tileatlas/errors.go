package tileatlas

import "errors"

// Construction errors, returned by New.
var (
	ErrMaxLayersZero        = errors.New("tileatlas: max layers must be > 0")
	ErrTileGridZero         = errors.New("tileatlas: tiles_per_row and tiles_per_column must be > 0")
	ErrTileGridTooLarge     = errors.New("tileatlas: tiles_per_row * tiles_per_column exceeds 65535")
	ErrMissingRequiredUsage = errors.New("tileatlas: usage flags missing bits required by payload kind")
	ErrUnsupportedPayloadKind = errors.New("tileatlas: unsupported payload kind")
)

// Capacity/exhaustion errors.
var (
	// ErrAtlasFull is returned by Allocate when every layer's slot pool is
	// exhausted and no retained batch could be evicted to make room.
	ErrAtlasFull = errors.New("tileatlas: atlas full")
	// ErrKeySpaceExhausted is returned by Allocate if the 64-bit tile key
	// counter wraps. Reaching this requires allocating 2^64 tiles over the
	// atlas's lifetime and is not expected in practice.
	ErrKeySpaceExhausted = errors.New("tileatlas: tile key space exhausted")
)

// Contract-violation errors: caller passed a key, handle, or payload the
// atlas does not recognize or cannot accept.
var (
	ErrKeyNotFound          = errors.New("tileatlas: key not found")
	ErrForeignTileSet       = errors.New("tileatlas: tile set handle belongs to a different atlas")
	ErrTileSetIncomplete    = errors.New("tileatlas: one or more keys in the tile set no longer resolve")
	ErrIngestNotSupported   = errors.New("tileatlas: ingest is not defined for this atlas's payload kind")
	ErrIngestStrideTooSmall = errors.New("tileatlas: ingest stride is smaller than one tile row")
	ErrIngestBufferTooShort = errors.New("tileatlas: ingest payload shorter than stride * (tile_size-1) + one row")
)
