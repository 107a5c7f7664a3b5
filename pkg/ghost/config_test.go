package ghost

import(
	"math"
	"strings"
	"testing"
)

func TestConfigDefaults(t *testing.T) {
	c := NewConfig()
	if err := c.Finalize(); err != nil {
		t.Fatal(err)
	}
	if c.ExposureAlpha != 0.8 || c.OverlayOpacity != 1.0 {
		t.Errorf("defaults: alpha %v, opacity %v", c.ExposureAlpha, c.OverlayOpacity)
	}
	if w, h := c.AspectWH(); w != 3 || h != 4 {
		t.Errorf("aspect %d:%d, want 3:4", w, h)
	}
}

func TestConfigFromYaml(t *testing.T) {
	yaml := `
exposurealpha: 0.5
croptoviewfinder: true
viewfinderaspect: 9:16
`
	c, err := newConfigFromYaml([]byte(yaml))
	if err != nil {
		t.Fatal(err)
	}
	if c.ExposureAlpha != 0.5 || !c.CropToViewfinder {
		t.Errorf("yaml not applied: %+v", c)
	}
	if w, h := c.AspectWH(); w != 9 || h != 16 {
		t.Errorf("aspect %d:%d, want 9:16", w, h)
	}
	// Unset keys keep their defaults.
	if c.ThumbnailMaxDim != 256 {
		t.Errorf("thumbnailmaxdim default lost: %d", c.ThumbnailMaxDim)
	}
}

func TestConfigFinalizeRejectsBadValues(t *testing.T) {
	bad := []Config{
		{ExposureAlpha: 1.2, OverlayOpacity: 1, ViewfinderAspect: "3:4"},
		{ExposureAlpha: -0.1, OverlayOpacity: 1, ViewfinderAspect: "3:4"},
		{ExposureAlpha: 0.8, OverlayOpacity: 2, ViewfinderAspect: "3:4"},
		{ExposureAlpha: 0.8, OverlayOpacity: 1, ViewfinderAspect: "square"},
		{ExposureAlpha: 0.8, OverlayOpacity: 1, ViewfinderAspect: "0:4"},
		{ExposureAlpha: 0.8, OverlayOpacity: 1, ViewfinderAspect: "3:-4"},
	}
	for i, c := range bad {
		if err := c.Finalize(); err == nil {
			t.Errorf("config %d passed finalize: %+v", i, c)
		}
	}
}

func TestConfigEffectiveAlpha(t *testing.T) {
	c := NewConfig()

	// Scaling off: alpha is flat regardless of burst length.
	for _, n := range []int{1, 4, 20} {
		if got := c.EffectiveAlpha(n); got != 0.8 {
			t.Errorf("n=%d: alpha %v, want 0.8", n, got)
		}
	}

	c.ScaleAlphaByFrameCount = true
	if got := c.EffectiveAlpha(4); got != 0.8 {
		t.Errorf("scaling kicked in at n=4: %v", got)
	}
	if got := c.EffectiveAlpha(8); math.Abs(got-0.8/1.6) > 1e-12 {
		t.Errorf("n=8: alpha %v, want 0.5", got)
	}
	// Monotonic: longer bursts never blend harder.
	prev := 1.0
	for n := 1; n <= 30; n++ {
		got := c.EffectiveAlpha(n)
		if got > prev {
			t.Fatalf("alpha rose from %v to %v at n=%d", prev, got, n)
		}
		prev = got
	}
}

func TestConfigAsYamlRoundTrip(t *testing.T) {
	c := NewConfig()
	c.Diagnostics = true
	out := c.AsYaml()
	if !strings.Contains(out, "diagnostics: true") {
		t.Errorf("yaml dump missing fields:\n%s", out)
	}
	back, err := newConfigFromYaml([]byte(out))
	if err != nil {
		t.Fatal(err)
	}
	if !back.Diagnostics || back.ExposureAlpha != c.ExposureAlpha {
		t.Errorf("round trip lost settings: %+v", back)
	}
}
