package ghost

import(
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/hdrcolor"
	"k8s.io/klog/v2"
)

// An Accumulator is the working canvas for a blend: one float64 per
// channel per texel, in [0,1] scale, starting fully transparent
// (all zero). It implements hdr.Image, so the raw pre-quantization
// blend can be dumped to a Radiance .hdr file and inspected in HDR
// tooling.
type Accumulator struct {
	bounds image.Rectangle
	vals   []float64 // 3 per texel, RGB
}

func NewAccumulator(w, h int) *Accumulator {
	return &Accumulator{
		bounds: image.Rect(0, 0, w, h),
		vals:   make([]float64, w*h*3),
	}
}

// Implement image.Image
func (a *Accumulator)ColorModel() color.Model { return hdrcolor.RGBModel }
func (a *Accumulator)Bounds() image.Rectangle { return a.bounds }
func (a *Accumulator)At(x, y int) color.Color { return a.HDRAt(x, y) }

// Implement hdr.Image
func (a *Accumulator)HDRAt(x, y int) hdrcolor.Color {
	i := (y*a.bounds.Dx() + x) * 3
	return hdrcolor.RGB{R: a.vals[i], G: a.vals[i+1], B: a.vals[i+2]}
}
func (a *Accumulator)Size() int { return a.bounds.Dx() * a.bounds.Dy() }

// Accumulate composites one frame onto the canvas using the
// lighten-style rule, applied independently per channel:
//
//	acc = (1-alpha)*acc + alpha*max(acc, frame)
//
// Applied sequentially in frame order - deliberately not an
// associative average. Later frames partially win ties via the max,
// while still being damped by alpha, which is what produces the
// ghost-trail look.
func (a *Accumulator)Accumulate(frame image.Image, alpha float64) {
	fb := frame.Bounds()
	dx, dy := a.bounds.Dx(), a.bounds.Dy()

	for y := 0; y < dy; y++ {
		for x := 0; x < dx; x++ {
			r, g, b, _ := frame.At(fb.Min.X+x, fb.Min.Y+y).RGBA()
			i := (y*dx + x) * 3
			a.vals[i] = blendChannel(a.vals[i], float64(r)/0xFFFF, alpha)
			a.vals[i+1] = blendChannel(a.vals[i+1], float64(g)/0xFFFF, alpha)
			a.vals[i+2] = blendChannel(a.vals[i+2], float64(b)/0xFFFF, alpha)
		}
	}
}

func blendChannel(acc, frame, alpha float64) float64 {
	m := frame
	if acc > m {
		m = acc
	}
	return (1.0-alpha)*acc + alpha*m
}

// Publish quantizes the accumulator into a 16-bit output image. This
// is the only place the blend path does clipping.
func (a *Accumulator)Publish() *image.RGBA64 {
	out := image.NewRGBA64(a.bounds)
	for y := 0; y < a.bounds.Dy(); y++ {
		for x := 0; x < a.bounds.Dx(); x++ {
			i := (y*a.bounds.Dx() + x) * 3
			out.SetRGBA64(x, y, color.RGBA64{
				R: quantize(a.vals[i]),
				G: quantize(a.vals[i+1]),
				B: quantize(a.vals[i+2]),
				A: 0xffff,
			})
		}
	}
	return out
}

func quantize(v float64) uint16 {
	if v < 0.0 {
		v = 0.0
	}
	if v > 1.0 {
		v = 1.0
	}
	return uint16(v * float64(0xFFFF))
}

// WriteHDR dumps the raw accumulator as a Radiance RGBE file.
func (a *Accumulator)WriteHDR(filename string) error {
	writer, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	}
	defer writer.Close()
	return rgbe.Encode(writer, a)
}

// BlendEngine turns an ordered frame sequence into one composite
// bitmap. It is deterministic: a fixed frame sequence and alpha
// produce bit-for-bit identical output, which is what lets the save
// path reproduce exactly what the live preview showed.
type BlendEngine struct {
	Diagnose bool // analyze the composite after each full blend
}

// Blend runs the accumulation over the frames in order. A sequence of
// exactly one frame short-circuits: the frame is copied through at
// full opacity, no blend formula applied. Frames that are nil, empty,
// or don't match the canvas size are skipped with a warning and
// blending continues - soft degradation, not abort.
func (be *BlendEngine)Blend(frames []image.Image, alpha float64) (*image.RGBA64, error) {
	acc, n, err := be.accumulate(frames, alpha)
	if err != nil {
		return nil, err
	}

	var out *image.RGBA64
	if n == 1 {
		out = flattenToRGBA64(firstUsable(frames))
	} else {
		out = acc.Publish()
	}

	if be.Diagnose {
		AnalyzeComposite(out).LogSummary()
	}
	return out, nil
}

// BlendAccumulator is Blend without the quantization step; the CLI
// uses it for HDR dumps of the raw blend.
func (be *BlendEngine)BlendAccumulator(frames []image.Image, alpha float64) (*Accumulator, error) {
	acc, _, err := be.accumulate(frames, alpha)
	return acc, err
}

func (be *BlendEngine)accumulate(frames []image.Image, alpha float64) (*Accumulator, int, error) {
	var acc *Accumulator
	used := 0

	for i, frame := range frames {
		if !usable(frame) {
			klog.Warningf("blend: skipping frame %d: %v", i, ErrDecodeFailed)
			continue
		}

		if acc == nil {
			b := frame.Bounds()
			acc = NewAccumulator(b.Dx(), b.Dy())
		} else if !frame.Bounds().Size().Eq(acc.Bounds().Size()) {
			klog.Warningf("blend: skipping frame %d: is %v, canvas is %v",
				i, frame.Bounds().Size(), acc.Bounds().Size())
			continue
		}

		acc.Accumulate(frame, alpha)
		used++
	}

	if acc == nil {
		return nil, 0, fmt.Errorf("blend over %d frames: %w", len(frames), ErrDecodeFailed)
	}
	return acc, used, nil
}

func usable(img image.Image) bool {
	return img != nil && img.Bounds().Dx() > 0 && img.Bounds().Dy() > 0
}

func firstUsable(frames []image.Image) image.Image {
	for _, f := range frames {
		if usable(f) {
			return f
		}
	}
	return nil
}
