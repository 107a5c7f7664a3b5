package ghost

import(
	"fmt"
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/mcull/expexp/pkg/emath"
)

// DeviceOrientation is the attitude the device was held at when a
// frame was captured. It is reported by the capture collaborator at
// capture time; we never re-query it afterwards, since the user may
// have reoriented the device since the shot.
type DeviceOrientation int

const (
	OrientationUnknown DeviceOrientation = iota
	Portrait
	PortraitUpsideDown
	LandscapeLeft
	LandscapeRight
	FaceUp
	FaceDown
)

func (o DeviceOrientation)String() string {
	switch o {
	case Portrait:           return "portrait"
	case PortraitUpsideDown: return "portraitUpsideDown"
	case LandscapeLeft:      return "landscapeLeft"
	case LandscapeRight:     return "landscapeRight"
	case FaceUp:             return "faceUp"
	case FaceDown:           return "faceDown"
	}
	return "unknown"
}

// Facing says which way the camera that took the frame was pointing.
type Facing int

const (
	BackFacing Facing = iota
	FrontFacing
)

func (f Facing)String() string {
	if f == FrontFacing {
		return "front"
	}
	return "back"
}

// A Rotation is a signed quarter-turn, in degrees clockwise, to apply
// to a raw frame so its content appears upright as the user perceived
// it. Only 0, +-90 and 180 ever occur.
type Rotation int

const (
	Rotate0   Rotation = 0
	RotateCW  Rotation = 90
	Rotate180 Rotation = 180
	RotateCCW Rotation = -90
)

func (r Rotation)String() string { return fmt.Sprintf("%+ddeg", int(r)) }

// SwapsDimensions reports whether applying the rotation exchanges the
// width and height of the frame.
func (r Rotation)SwapsDimensions() bool { return r == RotateCW || r == RotateCCW }

// Resolve maps the latched device attitude and camera facing to the
// corrective rotation for every frame of the burst. The front camera
// mirrors landscape left/right relative to the back camera, because
// the sensor is physically mirrored relative to on-screen
// presentation. Face up/down and unknown attitudes get no correction.
func Resolve(o DeviceOrientation, f Facing) Rotation {
	switch o {
	case PortraitUpsideDown:
		return Rotate180
	case LandscapeLeft:
		if f == FrontFacing {
			return RotateCW
		}
		return RotateCCW
	case LandscapeRight:
		if f == FrontFacing {
			return RotateCCW
		}
		return RotateCW
	}
	return Rotate0
}

// Apply rotates the image by the quarter turn. The transform is an
// exact integer affine resampled with NearestNeighbor, so pixel
// values move without being touched - the save path depends on this
// being lossless.
func (r Rotation)Apply(src image.Image) image.Image {
	if r == Rotate0 {
		return src
	}

	b := src.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	var m emath.Aff3
	var dst *image.RGBA64

	// Remember the rightmost operation is performed first: shift the
	// source to the origin, rotate, then shift back into the output box.
	switch r {
	case RotateCW:
		m = emath.Identity().Translate(h, 0).Rotate(90).Translate(float64(-b.Min.X), float64(-b.Min.Y))
		dst = image.NewRGBA64(image.Rect(0, 0, b.Dy(), b.Dx()))
	case RotateCCW:
		m = emath.Identity().Translate(0, w).Rotate(-90).Translate(float64(-b.Min.X), float64(-b.Min.Y))
		dst = image.NewRGBA64(image.Rect(0, 0, b.Dy(), b.Dx()))
	case Rotate180:
		m = emath.Identity().Translate(w, h).Rotate(180).Translate(float64(-b.Min.X), float64(-b.Min.Y))
		dst = image.NewRGBA64(image.Rect(0, 0, b.Dx(), b.Dy()))
	}

	draw.NearestNeighbor.Transform(dst, f64.Aff3(m), src, b, draw.Src, nil)
	return dst
}
