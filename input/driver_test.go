package input

import "testing"

func TestDriverEngineDownThenMoveThenUp(t *testing.T) {
	sink := &recordingSink{}
	d := NewDriverEngine(func() Sampler { return NewNoSmoothingSampler() }, sink)

	sessionID, err := d.Dispatch(RawPointerInput{PointerID: 1, Phase: Down, TimestampMicros: 0, ScreenX: 0, ScreenY: 0})
	if err != nil {
		t.Fatal(err)
	}
	if sessionID == 0 {
		t.Fatal("expected non-zero session id on Down")
	}
	if !d.Active() {
		t.Fatal("expected Active() true after Down")
	}

	if _, err := d.Dispatch(RawPointerInput{PointerID: 1, Phase: Move, TimestampMicros: 1000, ScreenX: 5, ScreenY: 5}); err != nil {
		t.Fatal(err)
	}

	if _, err := d.Dispatch(RawPointerInput{PointerID: 1, Phase: Up, TimestampMicros: 2000, ScreenX: 10, ScreenY: 10}); err != nil {
		t.Fatal(err)
	}
	if d.Active() {
		t.Fatal("expected Active() false after Up")
	}

	if len(sink.chunks) != 1 {
		t.Fatalf("chunk count = %d, want 1", len(sink.chunks))
	}
	c := sink.chunks[0]
	if c.Count != 3 || !c.StartsStroke || !c.EndsStroke {
		t.Fatalf("chunk = %+v, want Count=3 StartsStroke=true EndsStroke=true", c)
	}
}

func TestDriverEngineMoveWithMismatchedPointerID(t *testing.T) {
	sink := &recordingSink{}
	d := NewDriverEngine(func() Sampler { return NewNoSmoothingSampler() }, sink)

	if _, err := d.Dispatch(RawPointerInput{PointerID: 1, Phase: Down}); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Dispatch(RawPointerInput{PointerID: 2, Phase: Move}); err != ErrPointerIDMismatch {
		t.Fatalf("mismatched move err = %v, want ErrPointerIDMismatch", err)
	}
	if !d.Active() {
		t.Fatal("active stroke should survive a mismatched pointer id")
	}
}

func TestDriverEngineHoverIsNoop(t *testing.T) {
	sink := &recordingSink{}
	d := NewDriverEngine(func() Sampler { return NewNoSmoothingSampler() }, sink)

	if _, err := d.Dispatch(RawPointerInput{PointerID: 1, Phase: Hover}); err != nil {
		t.Fatal(err)
	}
	if d.Active() {
		t.Fatal("Hover should never start a stroke")
	}
	if len(sink.chunks) != 0 {
		t.Fatalf("chunk count = %d, want 0", len(sink.chunks))
	}
}

func TestDriverEngineCancelEndsWithoutFinalSample(t *testing.T) {
	sink := &recordingSink{}
	d := NewDriverEngine(func() Sampler { return NewNoSmoothingSampler() }, sink)

	if _, err := d.Dispatch(RawPointerInput{PointerID: 1, Phase: Down}); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Dispatch(RawPointerInput{PointerID: 1, Phase: Cancel}); err != nil {
		t.Fatal(err)
	}
	if d.Active() {
		t.Fatal("expected Active() false after Cancel")
	}
	if len(sink.chunks) != 1 || sink.chunks[0].Count != 1 {
		t.Fatalf("chunks = %+v, want one chunk carrying only the Down sample", sink.chunks)
	}
}

func TestDispatchFrameDrainsAllAvailable(t *testing.T) {
	r := NewRing(8)
	for i := 0; i < 3; i++ {
		if err := r.Push(SampleChunk{Count: i + 1}); err != nil {
			t.Fatal(err)
		}
	}
	drained := DispatchFrame(r, FrameSignal{FrameSequenceID: 42})
	if len(drained) != 3 {
		t.Fatalf("drained = %d, want 3", len(drained))
	}
	for _, d := range drained {
		if d.FrameSequenceID != 42 {
			t.Fatalf("frame sequence id = %d, want 42", d.FrameSequenceID)
		}
	}
}
