package ghost

import(
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"k8s.io/klog/v2"
)

// A Session ties the collaborators together for one capture run. All
// exposure-set mutation - capture, alpha changes, clear, save - goes
// through a single command loop goroutine, so the single-writer
// discipline holds by construction: a capture can never interleave
// with a save's read of the set. The one deliberate bypass is the
// overlay-opacity fast path, which goes straight to the display
// surface and so stays responsive even while a save or recompute is
// in the queue.
type Session struct {
	Device     CaptureDevice
	Set        *ExposureSet
	Compositor *PreviewCompositor
	Saver      *SaveProcessor
	Config     Config

	cmds chan sessionCmd
	stop context.CancelFunc
	wg   sync.WaitGroup

	// loop-local; only the loop goroutine touches it
	alpha float64

	// shared with the opacity fast path, so atomic
	opacityBits uint64
}

func (s *Session)opacityLoad() float64     { return math.Float64frombits(atomic.LoadUint64(&s.opacityBits)) }
func (s *Session)opacityStore(op float64)  { atomic.StoreUint64(&s.opacityBits, math.Float64bits(op)) }

type cmdKind int

const (
	cmdCapture cmdKind = iota
	cmdSetAlpha
	cmdClear
	cmdSave
)

type sessionCmd struct {
	kind  cmdKind
	alpha float64
	reply chan cmdResult
}

type cmdResult struct {
	saved *SavedAsset
	err   error
}

func NewSession(dev CaptureDevice, store AssetStore, surface Surface, cfg Config) *Session {
	engine := &BlendEngine{Diagnose: cfg.Diagnostics}
	s := &Session{
		Device:     dev,
		Set:        NewExposureSet(),
		Compositor: NewPreviewCompositor(engine, surface),
		Saver:      &SaveProcessor{Store: store, Engine: engine, Config: cfg},
		Config:     cfg,
		cmds:       make(chan sessionCmd),
		alpha:      cfg.ExposureAlpha,
	}
	s.opacityStore(cfg.OverlayOpacity)
	return s
}

// Start spawns the command loop. The session is unusable before this.
func (s *Session)Start(ctx context.Context) {
	ctx, s.stop = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop shuts the loop down and drains any in-flight preview work.
func (s *Session)Stop() {
	s.stop()
	s.wg.Wait()
	s.Compositor.WaitIdle()
}

func (s *Session)loop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-s.cmds:
			var res cmdResult
			switch cmd.kind {
			case cmdCapture:
				res.err = s.capture(ctx)
			case cmdSetAlpha:
				s.alpha = cmd.alpha
				s.Compositor.SetExposureAlpha(s.effectiveAlpha(), s.Set.Bitmaps(), s.opacityLoad())
			case cmdClear:
				res.err = s.Set.Clear()
				if res.err == nil {
					s.Compositor.Update(nil, s.effectiveAlpha(), s.opacityLoad())
				}
			case cmdSave:
				res.saved, res.err = s.Saver.Save(ctx, s.Set)
				if res.err == nil {
					// The set drained; drop the overlay too.
					s.Compositor.Update(nil, s.effectiveAlpha(), s.opacityLoad())
				}
			}
			cmd.reply <- res
		}
	}
}

func (s *Session)capture(ctx context.Context) error {
	if !s.Device.Authorized() {
		return fmt.Errorf("capture: %w", ErrPermissionDenied)
	}

	cf, err := s.Device.CaptureFrame(ctx)
	if err != nil {
		// Surfaced, but the burst is kept; the user may retry the shot.
		return fmt.Errorf("capture: %w: %v", ErrCaptureFailed, err)
	}

	if err := s.Set.Append(cf); err != nil {
		return err
	}

	klog.V(1).Infof("captured exposure %d", s.Set.Count())
	s.Compositor.Update(s.Set.Bitmaps(), s.effectiveAlpha(), s.opacityLoad())
	return nil
}

func (s *Session)effectiveAlpha() float64 {
	c := s.Config
	c.ExposureAlpha = s.alpha
	return c.EffectiveAlpha(s.Set.Count())
}

func (s *Session)send(ctx context.Context, cmd sessionCmd) cmdResult {
	cmd.reply = make(chan cmdResult, 1)
	select {
	case s.cmds <- cmd:
		return <-cmd.reply
	case <-ctx.Done():
		return cmdResult{err: ctx.Err()}
	}
}

// Capture takes one exposure and appends it to the current burst.
func (s *Session)Capture(ctx context.Context) error {
	return s.send(ctx, sessionCmd{kind: cmdCapture}).err
}

// SetExposureAlpha changes the per-frame contribution strength, which
// forces a recomposite.
func (s *Session)SetExposureAlpha(ctx context.Context, alpha float64) error {
	return s.send(ctx, sessionCmd{kind: cmdSetAlpha, alpha: alpha}).err
}

// SetOverlayOpacity is the interactive fast path: straight to the
// display surface, never queued behind captures or saves.
func (s *Session)SetOverlayOpacity(opacity float64) {
	s.opacityStore(opacity)
	s.Compositor.SetOverlayOpacity(opacity)
}

// Clear discards the burst without saving.
func (s *Session)Clear(ctx context.Context) error {
	return s.send(ctx, sessionCmd{kind: cmdClear}).err
}

// Save commits the burst to the asset store.
func (s *Session)Save(ctx context.Context) (*SavedAsset, error) {
	res := s.send(ctx, sessionCmd{kind: cmdSave})
	return res.saved, res.err
}
