// expexp replays a burst of exposures (image files, in order) through
// the ghost composition core: each file becomes a capture event, the
// live ghost preview is recomputed as the burst grows, and the final
// composite is committed to a disk-backed asset store exactly as the
// preview showed it.
package main

import(
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"

	"github.com/mcull/expexp/pkg/capture"
	"github.com/mcull/expexp/pkg/display"
	"github.com/mcull/expexp/pkg/ghost"
	"github.com/mcull/expexp/pkg/store"
)

var(
	fConfig string
	fAlpha float64
	fOpacity float64
	fScaleAlpha bool
	fCrop bool
	fAspect string
	fFront bool
	fDiagnostics bool

	fOutDir string
	fFormat string
	fQuality int

	fViewW int
	fViewH int
	fPreviewDir string
	fDumpHDR string
	fThumb string
)

func init() {
	flag.StringVar(&fConfig, "config", "", "optional YAML config file (flags override it)")
	flag.Float64Var(&fAlpha, "alpha", 0.8, "per-exposure contribution strength (0.0->1.0)")
	flag.Float64Var(&fOpacity, "opacity", 1.0, "ghost overlay opacity over the live feed (0.0->1.0)")
	flag.BoolVar(&fScaleAlpha, "scalealpha", false, "dampen alpha as the burst grows, to postpone saturation")
	flag.BoolVar(&fCrop, "crop", false, "crop the save to the viewfinder aspect")
	flag.StringVar(&fAspect, "aspect", "3:4", "viewfinder aspect, W:H")
	flag.BoolVar(&fFront, "front", false, "pretend the frames came from the front camera")
	flag.BoolVar(&fDiagnostics, "diag", false, "log composite diagnostics after each blend")

	flag.StringVar(&fOutDir, "o", "out", "directory the asset store writes into")
	flag.StringVar(&fFormat, "format", "png", "asset format: png or jpeg")
	flag.IntVar(&fQuality, "quality", 90, "jpeg quality")

	flag.IntVar(&fViewW, "vieww", 768, "viewfinder surface width")
	flag.IntVar(&fViewH, "viewh", 1024, "viewfinder surface height")
	flag.StringVar(&fPreviewDir, "previews", "", "if set, write a viewfinder snapshot here after each capture")
	flag.StringVar(&fDumpHDR, "dumphdr", "", "if set, dump the raw blend accumulator to this .hdr file")
	flag.StringVar(&fThumb, "thumb", "", "if set, write the post-save thumbnail here")

	klog.InitFlags(nil)
	flag.Parse()

	klog.Infof("expexp starting")
}

func main() {
	cfg := ghost.NewConfig()
	if fConfig != "" {
		var err error
		if cfg, err = ghost.LoadConfig(fConfig); err != nil {
			klog.Fatal(err)
		}
	}

	// Override the config file with command line args, if relevant
	cfg.ExposureAlpha = fAlpha
	cfg.OverlayOpacity = fOpacity
	cfg.ScaleAlphaByFrameCount = fScaleAlpha
	cfg.CropToViewfinder = fCrop
	cfg.ViewfinderAspect = fAspect
	cfg.Diagnostics = fDiagnostics
	if err := cfg.Finalize(); err != nil {
		klog.Fatal(err)
	}

	if flag.NArg() == 0 {
		klog.Fatalf("usage: expexp [flags] <image files or dirs>")
	}

	dev, err := capture.NewFileDevice(flag.Args()...)
	if err != nil {
		klog.Fatal(err)
	}
	if fFront {
		dev.SwitchFacing()
	}

	st, err := store.NewDiskStore(fOutDir, fFormat, fQuality)
	if err != nil {
		klog.Fatal(err)
	}

	surf := display.NewOffscreen(fViewW, fViewH, display.FitCover)
	sess := ghost.NewSession(dev, st, surf, cfg)

	ctx := context.Background()
	sess.Start(ctx)
	defer sess.Stop()

	for dev.Remaining() > 0 {
		if err := sess.Capture(ctx); err != nil {
			klog.Fatalf("capture failed: %v", err)
		}

		if fPreviewDir != "" {
			sess.Compositor.WaitIdle() // make sure the overlay caught up
			writePreview(sess, surf)
		}
	}

	if fDumpHDR != "" {
		alpha := cfg.EffectiveAlpha(sess.Set.Count())
		if acc, err := sess.Saver.Engine.BlendAccumulator(sess.Set.Bitmaps(), alpha); err != nil {
			klog.Errorf("hdr dump: %v", err)
		} else if err := acc.WriteHDR(fDumpHDR); err != nil {
			klog.Errorf("hdr dump: %v", err)
		} else {
			klog.Infof("raw accumulator written to '%s'", fDumpHDR)
		}
	}

	saved, err := sess.Save(ctx)
	if err != nil {
		klog.Fatalf("save failed: %v", err)
	}
	klog.Infof("committed asset %s (%v)", saved.ID, saved.Final.Bounds().Size())

	if fThumb != "" {
		if err := ghost.WritePNG(saved.Thumb, fThumb); err != nil {
			klog.Errorf("thumbnail: %v", err)
		}
	}

	klog.Infof("preview compositor: %s", sess.Compositor.Stats())
}

func writePreview(sess *ghost.Session, surf *display.Offscreen) {
	bitmaps := sess.Set.Bitmaps()
	if len(bitmaps) == 0 {
		return
	}

	if err := os.MkdirAll(fPreviewDir, 0o755); err != nil {
		klog.Errorf("previews: %v", err)
		return
	}

	caption := fmt.Sprintf("%d exposures @ a=%.2f", len(bitmaps), fAlpha)
	snap := surf.Snapshot(bitmaps[len(bitmaps)-1], caption)
	name := filepath.Join(fPreviewDir, fmt.Sprintf("preview-%02d.png", len(bitmaps)))
	if err := ghost.WritePNG(snap, name); err != nil {
		klog.Errorf("previews: %v", err)
	}
}
