package ghost

import(
	"errors"
	"image"
	"testing"
)

func capturedAt(o DeviceOrientation, f Facing) CapturedFrame {
	return CapturedFrame{
		Bitmap:      image.NewRGBA64(image.Rect(0, 0, 2, 2)),
		Orientation: o,
		Facing:      f,
	}
}

func TestSetLatchesFirstFrame(t *testing.T) {
	es := NewExposureSet()

	if err := es.Append(capturedAt(LandscapeRight, FrontFacing)); err != nil {
		t.Fatal(err)
	}
	// The user reorients mid-burst; the latch must not move.
	if err := es.Append(capturedAt(Portrait, BackFacing)); err != nil {
		t.Fatal(err)
	}

	o, f := es.Burst()
	if o != LandscapeRight || f != FrontFacing {
		t.Errorf("burst = %s/%s, want landscapeRight/front", o, f)
	}
	if es.Count() != 2 {
		t.Errorf("count = %d, want 2", es.Count())
	}
}

func TestSetClearStartsFreshBurst(t *testing.T) {
	es := NewExposureSet()
	es.Append(capturedAt(LandscapeLeft, BackFacing))

	if err := es.Clear(); err != nil {
		t.Fatal(err)
	}
	if !es.IsEmpty() {
		t.Fatalf("count = %d after clear, want 0", es.Count())
	}

	// The next append re-latches from its own metadata.
	es.Append(capturedAt(PortraitUpsideDown, FrontFacing))
	o, f := es.Burst()
	if o != PortraitUpsideDown || f != FrontFacing {
		t.Errorf("fresh burst latched %s/%s, want portraitUpsideDown/front", o, f)
	}
	if es.frames[0].Seq != 0 {
		t.Errorf("fresh burst should restart sequence at 0, got %d", es.frames[0].Seq)
	}
}

func TestSetFrozenDuringSave(t *testing.T) {
	es := NewExposureSet()
	es.Append(capturedAt(Portrait, BackFacing))

	if err := es.beginSave(); err != nil {
		t.Fatal(err)
	}

	if err := es.Append(capturedAt(Portrait, BackFacing)); !errors.Is(err, ErrSetFrozen) {
		t.Errorf("append while saving: err = %v, want ErrSetFrozen", err)
	}
	if err := es.Clear(); !errors.Is(err, ErrSetFrozen) {
		t.Errorf("clear while saving: err = %v, want ErrSetFrozen", err)
	}
	if err := es.beginSave(); !errors.Is(err, ErrSaveInProgress) {
		t.Errorf("second save: err = %v, want ErrSaveInProgress", err)
	}

	// An aborted save thaws the set without draining it.
	es.endSave(false)
	if es.Count() != 1 {
		t.Errorf("failed save should keep the burst, count = %d", es.Count())
	}
	if err := es.Append(capturedAt(Portrait, BackFacing)); err != nil {
		t.Errorf("append after thaw: %v", err)
	}
}

func TestSetDrainsOnCommittedSave(t *testing.T) {
	es := NewExposureSet()
	es.Append(capturedAt(LandscapeLeft, BackFacing))
	es.Append(capturedAt(LandscapeLeft, BackFacing))

	if err := es.beginSave(); err != nil {
		t.Fatal(err)
	}
	es.endSave(true)

	if !es.IsEmpty() {
		t.Errorf("committed save should drain the set, count = %d", es.Count())
	}
	if o, _ := es.Burst(); o != OrientationUnknown {
		t.Errorf("committed save should reset the latch, got %s", o)
	}
}

func TestSetBeginSaveEmpty(t *testing.T) {
	es := NewExposureSet()
	if err := es.beginSave(); !errors.Is(err, ErrEmptyBurst) {
		t.Errorf("err = %v, want ErrEmptyBurst", err)
	}
}
