// Package engine implements the core of a tile-based 2D raster painting
// system: the pipeline that turns a stream of pointer-input samples into
// committed pixels on a layered document.
//
// The core is three tightly coupled subsystems, each with its own
// sub-package: the input driver ([github.com/glaphica/engine/input]), the
// tile atlas and merge engine ([github.com/glaphica/engine/tileatlas],
// [github.com/glaphica/engine/merge]), and the document/renderer
// composition core ([github.com/glaphica/engine/document],
// [github.com/glaphica/engine/dirty], [github.com/glaphica/engine/frame]).
// [github.com/glaphica/engine/bridge] ties an engine thread to a GPU/main
// thread through a buffered command channel and a mutex-guarded feedback
// mailbox.
//
// engine itself holds only the ambient concerns shared by every
// sub-package: logging, the perf-log flag, and the few error values used
// across packages.
package engine
