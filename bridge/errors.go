package bridge

import "errors"

// ErrCommandQueueFull is returned by PushCommand when the main thread
// hasn't drained the command ring fast enough. The channel is bounded and
// push never blocks: the caller (engine thread) must back off and retry
// on its own schedule.
var ErrCommandQueueFull = errors.New("bridge: command queue is full")
