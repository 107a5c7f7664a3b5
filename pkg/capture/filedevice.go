// Package capture provides capture-device collaborators for the
// composition core. The core only sees the ghost.CaptureDevice
// interface; the device here replays image files from disk, which is
// what the CLI uses to rebuild a burst after the fact and what the
// tests use for hardware-free capture.
package capture

import(
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/tiff"
	"k8s.io/klog/v2"

	"github.com/mcull/expexp/pkg/ghost"
)

// A FileDevice yields one capture event per image file, in argument
// order (directories are walked recursively). The device attitude for
// each frame comes from the file's EXIF Orientation tag, stamped at
// capture time like a real capture session would; files without EXIF
// (e.g. PNG) read as held-portrait.
type FileDevice struct {
	mu     sync.Mutex
	files  []string
	next   int
	facing ghost.Facing
}

func NewFileDevice(args ...string) (*FileDevice, error) {
	d := &FileDevice{}
	if err := d.load(args...); err != nil {
		return nil, err
	}
	klog.V(1).Infof("file device: %d frames queued", len(d.files))
	return d, nil
}

func (d *FileDevice)load(args ...string) error {
	for _, arg := range args {
		item, err := os.Stat(arg)

		switch {

		case err != nil:
			return fmt.Errorf("load %s: %v", arg, err)

		case item.IsDir():
			contents, err := os.ReadDir(arg)
			if err != nil {
				return fmt.Errorf("readdir %s: %v", arg, err)
			}
			for _, content := range contents {
				if err := d.load(filepath.Join(arg, content.Name())); err != nil {
					return err
				}
			}

		default:
			switch strings.ToLower(filepath.Ext(arg)) {
			case ".jpg", ".jpeg", ".png", ".tif", ".tiff":
				d.files = append(d.files, arg)
			}
		}
	}

	return nil
}

// Remaining reports how many capture events are left to replay.
func (d *FileDevice)Remaining() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.files) - d.next
}

// Authorized probes that the next frame's file is actually readable;
// a permission failure here is the file-device version of a camera
// access denial.
func (d *FileDevice)Authorized() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.next >= len(d.files) {
		return true // nothing left to deny
	}
	f, err := os.Open(d.files[d.next])
	if err != nil {
		return false
	}
	f.Close()
	return true
}

func (d *FileDevice)CaptureFrame(ctx context.Context) (ghost.CapturedFrame, error) {
	if err := ctx.Err(); err != nil {
		return ghost.CapturedFrame{}, err
	}

	d.mu.Lock()
	if d.next >= len(d.files) {
		d.mu.Unlock()
		return ghost.CapturedFrame{}, fmt.Errorf("file device: no frames left")
	}
	path := d.files[d.next]
	d.next++
	facing := d.facing
	d.mu.Unlock()

	img, err := decodeFile(path)
	if err != nil {
		return ghost.CapturedFrame{}, fmt.Errorf("file device %s: %v", path, err)
	}

	orientation := readOrientation(path, facing)
	klog.V(1).Infof("file device: captured %s (%s, %s)", filepath.Base(path), orientation, facing)

	return ghost.CapturedFrame{
		Bitmap:      img,
		Orientation: orientation,
		Facing:      facing,
	}, nil
}

func (d *FileDevice)SwitchFacing() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.facing == ghost.BackFacing {
		d.facing = ghost.FrontFacing
	} else {
		d.facing = ghost.BackFacing
	}
	return nil
}

func (d *FileDevice)SetFocusPoint(x, y float64) error {
	klog.V(1).Infof("file device: focus (%.2f,%.2f) ignored, no optics here", x, y)
	return nil
}

func decodeFile(path string) (image.Image, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		reader, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open+r '%s': %v", path, err)
		}
		defer reader.Close()
		return tiff.Decode(reader)
	default:
		return imgio.Open(path)
	}
}

// readOrientation maps the EXIF Orientation tag to the device
// attitude that would have produced it. EXIF 6 means "rotate 90 CW to
// display", which for the back camera is a landscapeRight hold; with
// the front camera the sensor is mirrored relative to presentation,
// so left/right swap. Anything unreadable reads as portrait (no
// correction), same as faceUp/unknown in the resolver.
func readOrientation(path string, facing ghost.Facing) ghost.DeviceOrientation {
	reader, err := os.Open(path)
	if err != nil {
		return ghost.Portrait
	}
	defer reader.Close()

	ex, err := exif.Decode(reader)
	if err != nil {
		klog.V(1).Infof("no exif in %s: %v", filepath.Base(path), err)
		return ghost.Portrait
	}
	tag, err := ex.Get(exif.Orientation)
	if err != nil {
		return ghost.Portrait
	}
	val, err := tag.Int(0)
	if err != nil {
		return ghost.Portrait
	}

	switch val {
	case 3:
		return ghost.PortraitUpsideDown
	case 6:
		if facing == ghost.FrontFacing {
			return ghost.LandscapeLeft
		}
		return ghost.LandscapeRight
	case 8:
		if facing == ghost.FrontFacing {
			return ghost.LandscapeRight
		}
		return ghost.LandscapeLeft
	}
	return ghost.Portrait
}
