package ghost

import(
	"image"

	"github.com/anthonynsimon/bild/transform"
	"k8s.io/klog/v2"
)

// Thumbnail downscales the composite so its longest side is bounded
// by maxDim, preserving aspect. Used for the transient "saved!"
// feedback after a committed save; never written to the asset store.
func Thumbnail(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	x, y := maxDim, maxDim
	if w > h {
		y = h * maxDim / w
	} else {
		x = w * maxDim / h
	}

	klog.V(1).Infof("thumbnail: %dx%d -> %dx%d", w, h, x, y)
	return transform.Resize(img, x, y, transform.Lanczos)
}
