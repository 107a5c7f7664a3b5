// Package display provides display-surface collaborators. The core
// only sees the ghost.Surface interface; the surface here keeps the
// overlay state in memory and can render a snapshot of the composed
// view (live frame under ghost overlay) for the CLI and for tests.
package display

import(
	"image"
	"image/color"
	"math"
	"sync"
	"sync/atomic"

	"github.com/anthonynsimon/bild/transform"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"k8s.io/klog/v2"
)

// FitMode is how content is anchored inside the surface. The overlay
// is always drawn with the same mode and the same fitted rectangle as
// the live feed, so ghost content can never drift relative to the
// live image beneath it - a mismatch there is a correctness bug, not
// a cosmetic one.
type FitMode int

const (
	FitCover   FitMode = iota // fill the surface, cropping overflow
	FitContain                // letterbox inside the surface
)

// An Offscreen surface. SetOpacity is deliberately lock-free (one
// atomic store), since the compositor's fast path hammers it at
// interactive-input frequency; SetContent is the full content
// mutator and takes the lock.
type Offscreen struct {
	w, h int
	fit  FitMode

	mu      sync.Mutex
	content image.Image

	opacityBits uint64 // atomic float64 bits

	contentSets uint64 // atomic; observability for tests
	opacitySets uint64
}

func NewOffscreen(w, h int, fit FitMode) *Offscreen {
	s := &Offscreen{w: w, h: h, fit: fit}
	atomic.StoreUint64(&s.opacityBits, math.Float64bits(1.0))
	return s
}

func (s *Offscreen)SetContent(img image.Image) {
	s.mu.Lock()
	s.content = img
	s.mu.Unlock()
	atomic.AddUint64(&s.contentSets, 1)
}

func (s *Offscreen)SetOpacity(op float64) {
	atomic.StoreUint64(&s.opacityBits, math.Float64bits(op))
	atomic.AddUint64(&s.opacitySets, 1)
}

func (s *Offscreen)Content() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

func (s *Offscreen)Opacity() float64 {
	return math.Float64frombits(atomic.LoadUint64(&s.opacityBits))
}

func (s *Offscreen)ContentSets() uint64 { return atomic.LoadUint64(&s.contentSets) }
func (s *Offscreen)OpacitySets() uint64 { return atomic.LoadUint64(&s.opacitySets) }

// FittedRect is the anchor rule, shared by the live feed and the
// overlay: where a bitmap of the given size lands on the surface.
func (s *Offscreen)FittedRect(iw, ih int) image.Rectangle {
	if iw <= 0 || ih <= 0 {
		return image.Rectangle{}
	}

	sx := float64(s.w) / float64(iw)
	sy := float64(s.h) / float64(ih)

	var scale float64
	if s.fit == FitCover {
		scale = math.Max(sx, sy)
	} else {
		scale = math.Min(sx, sy)
	}

	dw := int(float64(iw)*scale + 0.5)
	dh := int(float64(ih)*scale + 0.5)
	x0 := (s.w - dw) / 2
	y0 := (s.h - dh) / 2
	return image.Rect(x0, y0, x0+dw, y0+dh)
}

var(
	captionFace     font.Face
	captionFaceOnce sync.Once
)

func loadCaptionFace() font.Face {
	captionFaceOnce.Do(func() {
		f, err := truetype.Parse(goregular.TTF)
		if err != nil {
			klog.Warningf("caption font: %v", err)
			return
		}
		captionFace = truetype.NewFace(f, &truetype.Options{Size: 13})
	})
	return captionFace
}

// Snapshot renders what the user would be seeing: the live frame
// fitted to the surface, the ghost overlay at its current opacity on
// the identical fitted rect, rule-of-thirds guides, and a caption.
func (s *Offscreen)Snapshot(live image.Image, caption string) image.Image {
	dc := gg.NewContext(s.w, s.h)
	dc.SetRGB(0.07, 0.07, 0.08)
	dc.Clear()

	if live != nil {
		r := s.FittedRect(live.Bounds().Dx(), live.Bounds().Dy())
		dc.DrawImage(transform.Resize(live, r.Dx(), r.Dy(), transform.Linear), r.Min.X, r.Min.Y)
	}

	if overlay := s.Content(); overlay != nil {
		r := s.FittedRect(overlay.Bounds().Dx(), overlay.Bounds().Dy())
		faded := withAlpha(transform.Resize(overlay, r.Dx(), r.Dy(), transform.Linear), s.Opacity())
		dc.DrawImage(faded, r.Min.X, r.Min.Y)
	}

	// Rule-of-thirds guides
	dc.SetRGBA(1, 1, 1, 0.25)
	dc.SetLineWidth(1)
	for i := 1; i <= 2; i++ {
		dc.DrawLine(float64(s.w*i)/3.0, 0, float64(s.w*i)/3.0, float64(s.h))
		dc.DrawLine(0, float64(s.h*i)/3.0, float64(s.w), float64(s.h*i)/3.0)
	}
	dc.Stroke()

	if caption != "" {
		if face := loadCaptionFace(); face != nil {
			dc.SetFontFace(face)
			dc.SetRGBA(1, 1, 1, 0.9)
			dc.DrawString(caption, 8, float64(s.h)-10)
		}
	}

	return dc.Image()
}

// withAlpha rescales every pixel's alpha, which is how overlay
// opacity becomes a plain source-over draw.
func withAlpha(src *image.RGBA, op float64) *image.NRGBA {
	if op < 0 {
		op = 0
	}
	if op > 1 {
		op = 1
	}

	b := src.Bounds()
	dst := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			c.A = uint8(float64(c.A)*op + 0.5)
			dst.SetNRGBA(x, y, c)
		}
	}
	return dst
}
