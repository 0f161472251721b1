package input

import "math"

// Emitter is how a Sampler delivers resampled points back to the driver.
// The driver's own Emitter implementation forwards each sample into a
// StrokeChunkSplitter; tests can substitute a recording Emitter.
type Emitter interface {
	Emit(sample StrokeSample)
}

// EmitterFunc adapts a plain function to Emitter.
type EmitterFunc func(StrokeSample)

func (f EmitterFunc) Emit(sample StrokeSample) { f(sample) }

// Sampler is the algorithm boundary named in spec.md §4.6: a capability
// set of {begin_stroke, feed_input, end_stroke}. Exactly one
// implementation runs per active stroke, selected once at Down and held
// for the stroke's lifetime.
//
// Grounded on gogpu-gg's accelerator-registry pattern (accelerator.go) of
// naming a small capability interface rather than a sealed enum, so a
// second resampling algorithm (the spec anticipates "two variants") can
// be added without touching DriverEngine.
type Sampler interface {
	// BeginStroke resets the sampler's internal state (velocity history,
	// smoothing window) for a new stroke starting at first.
	BeginStroke(first RawPointerInput)
	// FeedInput consumes one raw event, possibly emitting zero or more
	// StrokeSamples through emit as it resolves them.
	FeedInput(raw RawPointerInput, emit Emitter)
	// EndStroke flushes any samples the sampler is still holding back
	// (e.g. pending smoothing lookahead) through emit.
	EndStroke(emit Emitter)
}

// NoSmoothingSampler is the baseline Sampler: every RawPointerInput is
// forwarded as a StrokeSample unchanged (aside from velocity derivation
// from the previous sample), no smoothing window held across calls.
type NoSmoothingSampler struct {
	have bool
	last RawPointerInput
}

// NewNoSmoothingSampler constructs a NoSmoothingSampler.
func NewNoSmoothingSampler() *NoSmoothingSampler {
	return &NoSmoothingSampler{}
}

func (s *NoSmoothingSampler) BeginStroke(first RawPointerInput) {
	s.have = false
}

func (s *NoSmoothingSampler) FeedInput(raw RawPointerInput, emit Emitter) {
	emit.Emit(s.resample(raw))
}

func (s *NoSmoothingSampler) EndStroke(emit Emitter) {
	// No held-back samples: nothing to flush.
}

func (s *NoSmoothingSampler) resample(raw RawPointerInput) StrokeSample {
	var velocity float32
	if s.have {
		dtMicros := raw.TimestampMicros - s.last.TimestampMicros
		if dtMicros > 0 {
			dx := float64(raw.ScreenX - s.last.ScreenX)
			dy := float64(raw.ScreenY - s.last.ScreenY)
			dist := math.Sqrt(dx*dx + dy*dy)
			velocity = float32(dist * 1e6 / float64(dtMicros))
		}
	}
	s.have = true
	s.last = raw

	sample := StrokeSample{
		TimestampMicros:         raw.TimestampMicros,
		CanvasX:                 raw.ScreenX,
		CanvasY:                 raw.ScreenY,
		VelocityPixelsPerSecond: velocity,
	}
	if raw.HasPressure {
		sample.Pressure = raw.Pressure
	} else {
		sample.Pressure = 1
	}
	if raw.HasTilt {
		sample.TiltX = raw.TiltX
		sample.TiltY = raw.TiltY
	}
	if raw.HasTwist {
		sample.Twist = raw.Twist
	}
	return sample
}
