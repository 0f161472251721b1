package engine

import (
	"os"
	"sync"
)

const perfLogEnvVar = "GLAPHICA_PERF_LOG"

var (
	perfLogOnce    sync.Once
	perfLogEnabled bool
)

// PerfLogEnabled reports whether GLAPHICA_PERF_LOG is set. The environment
// is read once and cached; later changes to the process environment have
// no effect. It gates only whether per-frame timing is logged at Debug
// level (see [github.com/glaphica/engine/frame]) — it has no effect on
// behavior.
func PerfLogEnabled() bool {
	perfLogOnce.Do(func() {
		_, perfLogEnabled = os.LookupEnv(perfLogEnvVar)
	})
	return perfLogEnabled
}
