package ghost

import(
	"context"
	"fmt"
	"image"
)

// A Frame is one exposure inside an ExposureSet. The bitmap is
// treated as immutable, and is owned exclusively by the set that
// created the frame; it is never handed out for mutation.
type Frame struct {
	Bitmap image.Image
	Seq    int    // 0-based insertion order; insertion order is blend order
	Facing Facing // which camera took this exposure
}

func (f Frame)String() string {
	if f.Bitmap == nil {
		return fmt.Sprintf("frame[%d, %s, no bitmap]", f.Seq, f.Facing)
	}
	b := f.Bitmap.Bounds()
	return fmt.Sprintf("frame[%d, %s, %dx%d]", f.Seq, f.Facing, b.Dx(), b.Dy())
}

// A CapturedFrame is what the capture collaborator hands us: the raw
// bitmap plus the device attitude and camera facing at the instant of
// capture.
type CapturedFrame struct {
	Bitmap      image.Image
	Orientation DeviceOrientation
	Facing      Facing
}

// CaptureDevice is the capture collaborator. The core is agnostic to
// how it is implemented; see pkg/capture for a file-backed one.
type CaptureDevice interface {
	Authorized() bool
	CaptureFrame(ctx context.Context) (CapturedFrame, error)
	SwitchFacing() error
	SetFocusPoint(x, y float64) error
}

// AssetID is the opaque identifier an asset store hands back for a
// committed bitmap.
type AssetID string

// AssetStore is the asset store collaborator. Failure is reported as
// an error, not a boolean; the store enforces its own permission gate.
type AssetStore interface {
	Save(ctx context.Context, img image.Image) (AssetID, error)
}

// Surface is the display collaborator the compositor paints into. It
// must anchor content identically to the live feed beneath it.
// SetOpacity is the fast opacity-only mutator, distinct from the full
// content mutator, and must be cheap enough to call at
// interactive-input frequency.
type Surface interface {
	SetContent(img image.Image)
	SetOpacity(op float64)
}
