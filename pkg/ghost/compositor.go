package ghost

import(
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/codahale/hdrhistogram"
	"k8s.io/klog/v2"
)

// cacheKey says when the cached composite is reusable: the cached
// bitmap is valid if and only if the frame count and exposure alpha
// both match. Any mismatch forces a recompute before the next serve.
type cacheKey struct {
	frameCount int
	alpha      float64
}

// A PreviewCompositor is the incremental, cached wrapper around the
// BlendEngine that serves the interactive ghost overlay. It
// recomputes only when the frame set or exposure alpha changes;
// overall overlay opacity is a cheap, separately-applied property of
// the display surface, never a reason to re-blend.
//
// Recomputes run off the caller's goroutine, stamped with a
// generation counter. A result that was superseded by a newer
// generation before it finished is discarded, never applied - so a
// fast-path opacity change can never be clobbered by a stale blend
// that started before it.
type PreviewCompositor struct {
	engine  *BlendEngine
	surface Surface

	mu     sync.Mutex
	key    cacheKey
	cached *image.RGBA64
	gen    uint64

	wg         sync.WaitGroup
	recomputes uint64 // atomic; observable so tests can prove the fast path never blends
	latency    *hdrhistogram.Histogram
}

func NewPreviewCompositor(engine *BlendEngine, surface Surface) *PreviewCompositor {
	return &PreviewCompositor{
		engine:  engine,
		surface: surface,
		key:     cacheKey{frameCount: -1},
		// recompute latencies from 1us to 30s
		latency: hdrhistogram.New(1, 30_000_000, 3),
	}
}

// Update serves the overlay for the current frame set. The overlay
// opacity is always re-applied (it is cheap); the composite itself is
// only recomputed when the cache key changed.
func (pc *PreviewCompositor)Update(frames []image.Image, alpha, opacity float64) {
	pc.surface.SetOpacity(opacity)

	pc.mu.Lock()
	want := cacheKey{frameCount: len(frames), alpha: alpha}
	if want == pc.key {
		cached := pc.cached
		pc.mu.Unlock()
		pc.surface.SetContent(cached)
		return
	}

	if len(frames) == 0 {
		// Nothing to blend; drop the overlay. The generation still
		// advances, so a recompute of the old burst that is in flight
		// right now gets discarded instead of resurrecting its composite.
		pc.key = want
		pc.cached = nil
		pc.gen++
		pc.mu.Unlock()
		pc.surface.SetContent(nil)
		return
	}

	pc.gen++
	gen := pc.gen
	pc.mu.Unlock()

	pc.wg.Add(1)
	go pc.recompute(gen, want, frames)
}

func (pc *PreviewCompositor)recompute(gen uint64, key cacheKey, frames []image.Image) {
	defer pc.wg.Done()

	start := time.Now()
	img, err := pc.engine.Blend(frames, key.alpha)
	atomic.AddUint64(&pc.recomputes, 1)

	pc.mu.Lock()
	pc.latency.RecordValue(time.Since(start).Microseconds())
	if err != nil {
		pc.mu.Unlock()
		klog.Warningf("preview recompute failed: %v", err)
		return
	}
	if gen != pc.gen {
		pc.mu.Unlock()
		klog.V(1).Infof("preview recompute gen %d superseded, discarding", gen)
		return
	}
	pc.key = key
	pc.cached = img
	pc.mu.Unlock()

	pc.surface.SetContent(img)
}

// SetOverlayOpacity is the fast path used while the user drags the
// opacity control. It touches only the display surface's opacity
// property: constant time regardless of frame count, and it never
// invokes the BlendEngine.
func (pc *PreviewCompositor)SetOverlayOpacity(opacity float64) {
	pc.surface.SetOpacity(opacity)
}

// SetExposureAlpha invalidates the cache and recomposites right away,
// since a new alpha changes the composite's pixel content, not just
// its display strength.
func (pc *PreviewCompositor)SetExposureAlpha(alpha float64, frames []image.Image, opacity float64) {
	pc.mu.Lock()
	pc.key = cacheKey{frameCount: -1}
	pc.cached = nil
	pc.mu.Unlock()

	pc.Update(frames, alpha, opacity)
}

// Recomputes reports how many times the blend engine has been run.
func (pc *PreviewCompositor)Recomputes() uint64 {
	return atomic.LoadUint64(&pc.recomputes)
}

// WaitIdle blocks until no recompute is in flight.
func (pc *PreviewCompositor)WaitIdle() {
	pc.wg.Wait()
}

// Stats summarizes recompute latency for the session so far.
func (pc *PreviewCompositor)Stats() string {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	n := pc.latency.TotalCount()
	if n == 0 {
		return "no recomputes"
	}
	return fmt.Sprintf("%d recomputes, latency p50=%dus p99=%dus max=%dus",
		n, pc.latency.ValueAtQuantile(50), pc.latency.ValueAtQuantile(99), pc.latency.Max())
}
