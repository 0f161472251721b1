package document

import "errors"

var (
	// ErrNotSameLevel is returned by GroupLayers when the requested layers
	// do not all share the same parent and tree depth: grouping is only
	// defined across siblings, never across levels.
	ErrNotSameLevel = errors.New("document: layers to group are not siblings at the same level")
	ErrNodeNotFound = errors.New("document: layer id not found")
	ErrNotLeaf      = errors.New("document: operation requires a leaf node")
	ErrEmptyGroup   = errors.New("document: GroupLayers requires at least one layer")

	ErrImageHandleNotFound = errors.New("document: image handle not found")

	ErrMergeAlreadyActive = errors.New("document: a merge is already active; only one may be in flight")
	ErrNoActiveMerge      = errors.New("document: no merge is active")
	ErrMergeTxMismatch    = errors.New("document: tx token does not match the active merge")

	ErrStrokeSessionReused = errors.New("document: stroke session token has already been consumed")
)
