package ghost

import(
	"context"
	"fmt"
	"image"

	"k8s.io/klog/v2"
)

// SavedAsset is what a committed save produces: the store's opaque id
// for the final bitmap, plus a small thumbnail for transient user
// feedback.
type SavedAsset struct {
	ID    AssetID
	Final *image.RGBA64
	Thumb image.Image
}

// SaveProcessor runs the save-time pipeline: per-frame orientation
// correction, the final blend, the optional centered viewfinder crop,
// the store handoff, and the thumbnail.
type SaveProcessor struct {
	Store  AssetStore
	Engine *BlendEngine
	Config Config
}

// Save commits the burst. The empty-set precondition is checked
// before any collaborator is contacted, and the set is frozen for the
// duration - a concurrent capture or clear gets ErrSetFrozen rather
// than racing the save.
//
// On store failure the set is left intact so the user can retry the
// save without re-shooting; nothing is retried automatically, since a
// save is an unbounded user action.
func (sp *SaveProcessor)Save(ctx context.Context, set *ExposureSet) (*SavedAsset, error) {
	if err := set.beginSave(); err != nil {
		return nil, err
	}
	committed := false
	defer func() { set.endSave(committed) }()

	// Every frame gets the one rotation computed from the latched burst
	// attitude - not a per-frame re-evaluation. This is also what keeps
	// a single-exposure save orientation-consistent with a
	// multi-exposure one: N=1 takes the same corrective rotation, then
	// skips the blend formula.
	orientation, facing := set.Burst()
	rot := Resolve(orientation, facing)
	klog.V(1).Infof("save: %d frames, correcting %s/%s by %s", set.Count(), orientation, facing, rot)

	frames := set.Bitmaps()
	rotated := make([]image.Image, len(frames))
	for i, f := range frames {
		rotated[i] = rot.Apply(f)
	}

	combined, err := sp.Engine.Blend(rotated, sp.Config.EffectiveAlpha(len(rotated)))
	if err != nil {
		return nil, fmt.Errorf("save blend: %w", err)
	}

	if sp.Config.CropToViewfinder {
		w, h := sp.Config.AspectWH()
		combined = CropToAspect(combined, w, h)
		klog.V(1).Infof("save: cropped to %d:%d -> %v", w, h, combined.Bounds().Size())
	}

	id, err := sp.Store.Save(ctx, combined)
	if err != nil {
		return nil, fmt.Errorf("save store: %w", err)
	}

	committed = true // drains the set on the way out
	return &SavedAsset{
		ID:    id,
		Final: combined,
		Thumb: Thumbnail(combined, sp.Config.ThumbnailMaxDim),
	}, nil
}
