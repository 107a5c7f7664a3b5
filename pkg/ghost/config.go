package ghost

import(
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
	"k8s.io/klog/v2"
)

/* Example config file ...

verbosity: 1
exposurealpha: 0.8
overlayopacity: 0.6
scalealphabyframecount: false
croptoviewfinder: true
viewfinderaspect: 3:4
thumbnailmaxdim: 256
diagnostics: true

*/

// Config holds the tunables for a capture session. ExposureAlpha and
// OverlayOpacity are independent controls serving different purposes:
// alpha shapes the composite's pixel content, opacity only scales how
// strongly the whole ghost overlay is shown over the live feed.
type Config struct {
	Verbosity              int

	// ExposureAlpha is the per-frame contribution strength used by the
	// lighten-style accumulation. 0.8 matches observed behavior; it is
	// a tunable, not a derived invariant.
	ExposureAlpha          float64

	// OverlayOpacity is the display-only strength of the ghost overlay.
	// It never affects saved pixel content.
	OverlayOpacity         float64

	// ScaleAlphaByFrameCount dampens the effective alpha as the burst
	// grows, to postpone saturation on long bursts. Off by default.
	ScaleAlphaByFrameCount bool

	// CropToViewfinder crops the save to the centered region matching
	// the viewfinder's displayed aspect, so what was framed live is
	// what gets saved.
	CropToViewfinder       bool
	ViewfinderAspect       string  // e.g. "3:4"

	ThumbnailMaxDim        int
	Diagnostics            bool

	// Values we derive in Finalize
	aspectW, aspectH       int
}

func NewConfig() Config {
	return Config{
		ExposureAlpha:    0.8,
		OverlayOpacity:   1.0,
		ViewfinderAspect: "3:4",
		ThumbnailMaxDim:  256,
	}
}

func LoadConfig(filename string) (Config, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return NewConfig(), fmt.Errorf("config read '%s': %v", filename, err)
	}
	return newConfigFromYaml(contents)
}

func newConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("config parse: %v", err)
	}
	return c, c.Finalize()
}

func (c Config)AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		klog.Fatalf("can't marshal config yaml: %v", err)
	}
	return string(b)
}

// Finalize does sanity checks and derives the viewfinder aspect pair.
func (c *Config)Finalize() error {
	if c.ExposureAlpha < 0.0 || c.ExposureAlpha > 1.0 {
		return fmt.Errorf("exposurealpha %.2f outside [0,1]", c.ExposureAlpha)
	}
	if c.OverlayOpacity < 0.0 || c.OverlayOpacity > 1.0 {
		return fmt.Errorf("overlayopacity %.2f outside [0,1]", c.OverlayOpacity)
	}
	if c.ThumbnailMaxDim <= 0 {
		c.ThumbnailMaxDim = 256
	}

	parts := strings.Split(c.ViewfinderAspect, ":")
	if len(parts) != 2 {
		return fmt.Errorf("viewfinderaspect '%s' is not W:H", c.ViewfinderAspect)
	}
	w, errW := strconv.Atoi(parts[0])
	h, errH := strconv.Atoi(parts[1])
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return fmt.Errorf("viewfinderaspect '%s' is not W:H", c.ViewfinderAspect)
	}
	c.aspectW, c.aspectH = w, h

	return nil
}

func (c Config)AspectWH() (int, int) { return c.aspectW, c.aspectH }

// EffectiveAlpha is the alpha actually fed to the blend. With scaling
// off it is just ExposureAlpha; with scaling on, bursts past four
// frames get progressively damped.
func (c Config)EffectiveAlpha(frameCount int) float64 {
	if !c.ScaleAlphaByFrameCount || frameCount <= 4 {
		return c.ExposureAlpha
	}
	return c.ExposureAlpha / (1.0 + 0.15*float64(frameCount-4))
}
