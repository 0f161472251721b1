package bridge

import (
	"sync"

	engine "github.com/glaphica/engine"
	"github.com/glaphica/engine/merge"
)

// DispatchBudget bounds how many commands one DispatchFrame call drains,
// per spec.md §4.7 "Main thread dispatch_frame drains one bounded budget
// (256) of commands".
const DispatchBudget = 256

// Bridge is the channel pair joining the engine thread to the main GPU
// thread: a bounded command ring the engine thread pushes into and the
// main thread drains, and a single-slot feedback mailbox the main thread
// pushes into (merging with whatever's already waiting) and the engine
// thread drains.
type Bridge struct {
	commands chan RuntimeCommand

	feedbackMu sync.Mutex
	pending    *FeedbackFrame
}

// NewBridge constructs a Bridge whose command ring holds up to
// commandCapacity unconsumed commands before PushCommand starts returning
// ErrCommandQueueFull.
func NewBridge(commandCapacity int) *Bridge {
	return &Bridge{commands: make(chan RuntimeCommand, commandCapacity)}
}

// PushCommand is the engine thread's half: a non-blocking send into the
// command ring.
func (b *Bridge) PushCommand(cmd RuntimeCommand) error {
	select {
	case b.commands <- cmd:
		return nil
	default:
		return ErrCommandQueueFull
	}
}

// RequestShutdown pushes a CommandShutdown, per spec.md §5 "Shutdown":
// "dropping the engine bridge's channels disconnects the command sender".
// The engine thread should stop calling PushCommand after this succeeds.
func (b *Bridge) RequestShutdown() error {
	return b.PushCommand(RuntimeCommand{Kind: CommandShutdown})
}

// DrainFeedback is the engine thread's half: takes whatever FeedbackFrame
// is currently waiting in the mailbox (already mailbox-merged by however
// many PushFeedback calls happened since the last drain), leaving the
// mailbox empty. ok is false if nothing is waiting.
func (b *Bridge) DrainFeedback() (frame FeedbackFrame, ok bool) {
	b.feedbackMu.Lock()
	defer b.feedbackMu.Unlock()
	if b.pending == nil {
		return FeedbackFrame{}, false
	}
	frame = *b.pending
	b.pending = nil
	return frame, true
}

// PushFeedback is the main thread's half: installs frame into the
// mailbox, merging with whatever FeedbackFrame is already waiting (per
// spec.md §4.7's mailbox merge policy) rather than queueing a second slot.
func (b *Bridge) PushFeedback(frame FeedbackFrame) {
	b.feedbackMu.Lock()
	defer b.feedbackMu.Unlock()
	if b.pending == nil {
		f := frame
		b.pending = &f
		return
	}
	merged := b.pending.merge(frame)
	b.pending = &merged
}

// CommandResult is what CommandExecutor.Execute reports for one executed
// RuntimeCommand: the waterline state it advanced to, and, if the command
// produced a merge completion notice or failed outright, which receipt key
// it belongs under.
type CommandResult struct {
	Waterlines Waterlines
	Key        ReceiptKey
	Notice     *merge.CompletionNotice
	Err        error
}

// CommandExecutor is the main thread's callback for executing one
// RuntimeCommand (submitting GPU merge ops, running a frame plan+execute).
// Bridge itself knows nothing about GPU submission; DispatchFrame just
// sequences calls into whatever CommandExecutor the host supplies.
type CommandExecutor interface {
	Execute(cmd RuntimeCommand) CommandResult
}

// DispatchFrame is the main thread's per-frame entry point: drains up to
// DispatchBudget currently-queued commands, executes each via exec,
// accumulates their results into one FeedbackFrame, and pushes it to the
// mailbox.
//
// A CommandShutdown is special-cased: it is acknowledged (ShutdownAcked
// set, folded into the pushed frame) and DispatchFrame returns
// engine.ErrShutdownRequested immediately, without draining further
// commands this call.
func (b *Bridge) DispatchFrame(exec CommandExecutor) (FeedbackFrame, error) {
	frame := FeedbackFrame{
		Receipts: make(map[ReceiptKey]merge.CompletionNotice),
		Errors:   make(map[ReceiptKey]error),
	}

	var shutdownErr error
drain:
	for i := 0; i < DispatchBudget; i++ {
		select {
		case cmd, ok := <-b.commands:
			if !ok {
				shutdownErr = engine.ErrShutdownRequested
				frame.ShutdownAcked = true
				break drain
			}
			if cmd.Kind == CommandShutdown {
				frame.ShutdownAcked = true
				shutdownErr = engine.ErrShutdownRequested
				break drain
			}
			res := exec.Execute(cmd)
			frame.Waterlines = frame.Waterlines.mergeMax(res.Waterlines)
			if res.Notice != nil {
				frame.Receipts[res.Key] = *res.Notice
			}
			if res.Err != nil {
				frame.Errors[res.Key] = res.Err
			}
		default:
			break drain
		}
	}

	b.PushFeedback(frame)
	return frame, shutdownErr
}
