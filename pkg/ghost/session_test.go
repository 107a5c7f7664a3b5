package ghost

import(
	"context"
	"errors"
	"fmt"
	"testing"
)

type fakeDevice struct {
	authorized bool
	frames     []CapturedFrame
	next       int
	facing     Facing
	err        error
}

func (d *fakeDevice)Authorized() bool { return d.authorized }

func (d *fakeDevice)CaptureFrame(ctx context.Context) (CapturedFrame, error) {
	if d.err != nil {
		return CapturedFrame{}, d.err
	}
	if d.next >= len(d.frames) {
		return CapturedFrame{}, fmt.Errorf("out of frames")
	}
	cf := d.frames[d.next]
	d.next++
	return cf, nil
}

func (d *fakeDevice)SwitchFacing() error {
	if d.facing == BackFacing {
		d.facing = FrontFacing
	} else {
		d.facing = BackFacing
	}
	return nil
}

func (d *fakeDevice)SetFocusPoint(x, y float64) error { return nil }

func burstDevice(n int) *fakeDevice {
	d := &fakeDevice{authorized: true}
	for i := 0; i < n; i++ {
		d.frames = append(d.frames, CapturedFrame{
			Bitmap:      grayStrip(0.2*float64(i+1), 0.4),
			Orientation: Portrait,
			Facing:      BackFacing,
		})
	}
	return d
}

func startSession(t *testing.T, dev CaptureDevice) (*Session, *fakeStore, *fakeSurface) {
	t.Helper()
	st := &fakeStore{}
	surf := &fakeSurface{}
	cfg := NewConfig()
	cfg.Finalize()
	s := NewSession(dev, st, surf, cfg)
	s.Start(context.Background())
	t.Cleanup(s.Stop)
	return s, st, surf
}

func TestSessionCaptureSaveRound(t *testing.T) {
	s, st, surf := startSession(t, burstDevice(3))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.Capture(ctx); err != nil {
			t.Fatalf("capture %d: %v", i, err)
		}
	}
	if s.Set.Count() != 3 {
		t.Fatalf("count = %d after 3 captures", s.Set.Count())
	}

	saved, err := s.Save(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if saved.ID == "" || st.saves != 1 {
		t.Errorf("saved id %q after %d store calls", saved.ID, st.saves)
	}
	if !s.Set.IsEmpty() {
		t.Errorf("set not drained after save")
	}

	// The overlay was dropped along with the burst.
	s.Compositor.WaitIdle()
	content, _ := surf.snapshot()
	if content != nil {
		t.Errorf("surface still holds an overlay after save")
	}

	// The latch reset: the next burst may be shot at a new attitude.
	if o, _ := s.Set.Burst(); o != OrientationUnknown {
		t.Errorf("burst orientation %s survived the save", o)
	}
}

func TestSessionCaptureUnauthorized(t *testing.T) {
	s, st, _ := startSession(t, &fakeDevice{authorized: false})

	err := s.Capture(context.Background())
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
	if s.Set.Count() != 0 || st.saves != 0 {
		t.Errorf("unauthorized capture mutated state")
	}
}

func TestSessionCaptureFailureKeepsBurst(t *testing.T) {
	dev := burstDevice(1)
	s, _, _ := startSession(t, dev)
	ctx := context.Background()

	if err := s.Capture(ctx); err != nil {
		t.Fatal(err)
	}
	dev.err = fmt.Errorf("sensor wedged")
	err := s.Capture(ctx)
	if !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("err = %v, want ErrCaptureFailed", err)
	}
	if s.Set.Count() != 1 {
		t.Errorf("failed capture disturbed the burst, count = %d", s.Set.Count())
	}
}

func TestSessionClear(t *testing.T) {
	s, _, surf := startSession(t, burstDevice(2))
	ctx := context.Background()

	s.Capture(ctx)
	s.Capture(ctx)
	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if !s.Set.IsEmpty() {
		t.Errorf("clear left %d frames", s.Set.Count())
	}
	s.Compositor.WaitIdle()
	if content, _ := surf.snapshot(); content != nil {
		t.Errorf("surface still holds an overlay after clear")
	}
}

func TestSessionSaveEmpty(t *testing.T) {
	s, st, _ := startSession(t, burstDevice(0))

	_, err := s.Save(context.Background())
	if !errors.Is(err, ErrEmptyBurst) {
		t.Fatalf("err = %v, want ErrEmptyBurst", err)
	}
	if st.saves != 0 {
		t.Errorf("store contacted for an empty save")
	}
}

func TestSessionOpacityFastPath(t *testing.T) {
	s, _, surf := startSession(t, burstDevice(1))
	ctx := context.Background()

	s.Capture(ctx)
	s.Compositor.WaitIdle()

	before := s.Compositor.Recomputes()
	for i := 0; i < 100; i++ {
		s.SetOverlayOpacity(float64(i) / 100)
	}
	if got := s.Compositor.Recomputes(); got != before {
		t.Errorf("opacity drag triggered %d recomputes", got-before)
	}
	if _, op := surf.snapshot(); op != 0.99 {
		t.Errorf("surface opacity = %v, want the last dragged value", op)
	}
}

func TestSessionAlphaChangeRecomposites(t *testing.T) {
	s, _, _ := startSession(t, burstDevice(2))
	ctx := context.Background()

	s.Capture(ctx)
	s.Capture(ctx)
	s.Compositor.WaitIdle()

	before := s.Compositor.Recomputes()
	if err := s.SetExposureAlpha(ctx, 0.5); err != nil {
		t.Fatal(err)
	}
	s.Compositor.WaitIdle()
	if got := s.Compositor.Recomputes(); got != before+1 {
		t.Errorf("alpha change caused %d recomputes, want 1", got-before)
	}
}
