package ghost

// A few helper routines for golang's image libraries

import(
	"fmt"
	"image"
	"image/png"
	"os"
)

func RectCenter(b image.Rectangle) image.Point {
	return image.Point{(b.Min.X + b.Max.X) / 2, (b.Min.Y + b.Max.Y) / 2}
}

func WritePNG(img image.Image, filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		return png.Encode(writer, img)
	}
}

// flattenToRGBA64 copies any image into a fresh zero-based 16-bit
// buffer, pixel values untouched.
func flattenToRGBA64(src image.Image) *image.RGBA64 {
	b := src.Bounds()
	dst := image.NewRGBA64(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.Set(x, y, src.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

// CropToAspect takes the largest centered rectangle of the target
// w:h ratio that fits inside the image, and returns it as a fresh
// zero-based bitmap. A source wider than the ratio keeps its full
// height and gets trimmed horizontally; a source taller than the
// ratio keeps its full width and gets trimmed vertically.
func CropToAspect(src *image.RGBA64, ratioW, ratioH int) *image.RGBA64 {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	cropW, cropH := w, h
	if w*ratioH > h*ratioW {
		cropW = h * ratioW / ratioH // too wide; full height, trim sides
	} else {
		cropH = w * ratioH / ratioW // too tall; full width, trim top+bottom
	}

	center := RectCenter(b)
	crop := image.Rectangle{
		Min: image.Point{center.X - cropW/2, center.Y - cropH/2},
		Max: image.Point{center.X - cropW/2 + cropW, center.Y - cropH/2 + cropH},
	}

	return flattenToRGBA64(src.SubImage(crop))
}
