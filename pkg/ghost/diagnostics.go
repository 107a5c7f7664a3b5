package ghost

import(
	"fmt"
	"image"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/skypies/util/histogram"
	"gonum.org/v1/gonum/stat"
	"k8s.io/klog/v2"
)

// Channels at or above this count as clipped. Set well below 0xFFFF,
// since the lighten accumulation converges on full-scale from below.
const clipThreshold = 0xF000

// CompositeStats describes one blended composite: a luminance
// histogram, its moments, the average color, and how much of the
// image is clipping. The interesting signal is the clipped fraction -
// long bursts at high alpha drive the lighten accumulation towards
// full scale, and this is how we notice.
type CompositeStats struct {
	LumHist      histogram.Histogram
	MeanLum      float64
	StdDevLum    float64
	AverageColor colorful.Color
	ClippedFrac  float64
	Pixels       int
}

// AnalyzeComposite samples the composite (every pixel on a small
// image, strided on a large one) and builds its stats.
func AnalyzeComposite(img *image.RGBA64) *CompositeStats {
	cs := &CompositeStats{
		LumHist: histogram.Histogram{NumBuckets: 64, ValMin: 0, ValMax: 256},
	}

	b := img.Bounds()
	stride := 1
	if b.Dx()*b.Dy() > 1<<20 {
		stride = 4
	}

	lums := []float64{}
	var sumR, sumG, sumB float64
	clipped := 0

	for y := b.Min.Y; y < b.Max.Y; y += stride {
		for x := b.Min.X; x < b.Max.X; x += stride {
			c := img.RGBA64At(x, y)
			if c.R >= clipThreshold || c.G >= clipThreshold || c.B >= clipThreshold {
				clipped++
			}

			lum := (float64(c.R) + float64(c.G) + float64(c.B)) / 3.0 / float64(0xFFFF)
			lums = append(lums, lum)
			cs.LumHist.Add(histogram.ScalarVal(int(lum * 255)))

			sumR += float64(c.R) / float64(0xFFFF)
			sumG += float64(c.G) / float64(0xFFFF)
			sumB += float64(c.B) / float64(0xFFFF)
		}
	}

	cs.Pixels = len(lums)
	if cs.Pixels > 0 {
		cs.MeanLum = stat.Mean(lums, nil)
		cs.StdDevLum = stat.StdDev(lums, nil)
		n := float64(cs.Pixels)
		cs.AverageColor = colorful.Color{R: sumR / n, G: sumG / n, B: sumB / n}
		cs.ClippedFrac = float64(clipped) / n
	}

	return cs
}

func (cs *CompositeStats)String() string {
	_, sat, _ := cs.AverageColor.Hsl()
	return fmt.Sprintf("composite: lum %.3f +/- %.3f, avg %s (sat %.2f), clipped %.1f%%",
		cs.MeanLum, cs.StdDevLum, cs.AverageColor.Hex(), sat, cs.ClippedFrac*100.0)
}

// LogSummary logs the stats, and warns when the burst looks like it
// is saturating the accumulator.
func (cs *CompositeStats)LogSummary() {
	klog.Infof("%s", cs)
	klog.V(2).Infof("composite luminance histogram: %v", cs.LumHist)

	if cs.ClippedFrac > 0.05 {
		klog.Warningf("composite is %.0f%% clipped; consider a lower exposure alpha (or scalealphabyframecount)",
			cs.ClippedFrac*100.0)
	}
}
