// Package input implements the input driver: admission of raw pointer
// events, resampling into StrokeSamples, chunking into fixed-size
// SampleChunks, and real-time delivery of those chunks across a lock-free
// ring to the engine thread.
//
// Grounded on gogpu-gg's capability-set style for pluggable algorithms
// (the accelerator registry in accelerator.go) for the Sampler interface,
// and gogpu-gg/internal/parallel/pool.go's atomic-counter SPSC bookkeeping
// style for Ring.
package input

// PointerID names one physical pointer (mouse button stream, pen, or
// touch contact) across its whole Hover/Down/.../Up lifecycle.
type PointerID uint64

// DeviceKind names the physical input device class a RawPointerInput
// originated from.
type DeviceKind int

const (
	Mouse DeviceKind = iota
	Pen
	Touch
)

func (k DeviceKind) String() string {
	switch k {
	case Mouse:
		return "Mouse"
	case Pen:
		return "Pen"
	case Touch:
		return "Touch"
	default:
		return "DeviceKind(?)"
	}
}

// Phase is a pointer's lifecycle stage, shared by RawPointerInput and the
// DriverEngine state machine.
type Phase int

const (
	Hover Phase = iota
	Down
	Move
	Up
	Cancel
)

func (p Phase) String() string {
	switch p {
	case Hover:
		return "Hover"
	case Down:
		return "Down"
	case Move:
		return "Move"
	case Up:
		return "Up"
	case Cancel:
		return "Cancel"
	default:
		return "Phase(?)"
	}
}

// RawPointerInput is one raw sample from the platform's pointer event
// stream, before resampling.
type RawPointerInput struct {
	PointerID       PointerID
	DeviceKind      DeviceKind
	Phase           Phase
	TimestampMicros uint64
	ScreenX         float32
	ScreenY         float32

	// Pressure, TiltX, TiltY, and Twist are optional: HasPressure/HasTilt/
	// HasTwist report whether the platform supplied them for this sample.
	Pressure   float32
	HasPressure bool
	TiltX      float32
	TiltY      float32
	HasTilt    bool
	Twist      float32
	HasTwist   bool
}

// StrokeSample is one resampled point along a stroke, in canvas space,
// after the sampling algorithm has smoothed/derived it from one or more
// RawPointerInputs.
type StrokeSample struct {
	TimestampMicros         uint64
	CanvasX, CanvasY        float32
	Pressure                float32
	VelocityPixelsPerSecond float32
	TiltX, TiltY, Twist     float32
}

// StrokeSessionID names one input stroke from Down to its terminating
// Up/Cancel. Matches document.StrokeSessionID's underlying type so a
// driver-minted id can be handed straight to Document.ConsumeStrokeSession
// without conversion.
type StrokeSessionID uint64

// SampleChunkCapacity is the fixed number of samples a SampleChunk holds,
// chosen for SIMD-friendly fixed-stride downstream processing.
const SampleChunkCapacity = 16

// SampleChunk is a fixed-capacity batch of StrokeSamples from one stroke
// session, stored as parallel arrays per spec.md §4.6.
type SampleChunk struct {
	StrokeSessionID StrokeSessionID
	PointerID       PointerID

	// StartsStroke is true only on the first chunk emitted for a stroke.
	StartsStroke bool
	// EndsStroke is true only on the chunk that flushes a stroke's final
	// samples (on Up) or is the last chunk before a Cancel.
	EndsStroke bool
	// DiscontinuityBefore is true iff one or more chunks were dropped by a
	// real-time ring immediately before this one was delivered.
	DiscontinuityBefore bool
	// DroppedChunkCountBefore counts how many chunks were dropped
	// immediately before this one; 0 iff DiscontinuityBefore is false.
	DroppedChunkCountBefore uint32

	Count int

	TimestampMicros         [SampleChunkCapacity]uint64
	CanvasX                 [SampleChunkCapacity]float32
	CanvasY                 [SampleChunkCapacity]float32
	Pressure                [SampleChunkCapacity]float32
	VelocityPixelsPerSecond [SampleChunkCapacity]float32
	TiltX                   [SampleChunkCapacity]float32
	TiltY                   [SampleChunkCapacity]float32
	Twist                   [SampleChunkCapacity]float32
}

// Samples returns chunk's first Count entries as a slice of StrokeSample,
// for callers that would rather not address the parallel arrays directly.
func (c *SampleChunk) Samples() []StrokeSample {
	out := make([]StrokeSample, c.Count)
	for i := 0; i < c.Count; i++ {
		out[i] = StrokeSample{
			TimestampMicros:         c.TimestampMicros[i],
			CanvasX:                 c.CanvasX[i],
			CanvasY:                 c.CanvasY[i],
			Pressure:                c.Pressure[i],
			VelocityPixelsPerSecond: c.VelocityPixelsPerSecond[i],
			TiltX:                   c.TiltX[i],
			TiltY:                   c.TiltY[i],
			Twist:                   c.Twist[i],
		}
	}
	return out
}
