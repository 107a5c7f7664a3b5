package ghost

import(
	"fmt"
	"image"
	"sync"

	"k8s.io/klog/v2"
)

// An ExposureSet is the ordered collection of frames for one burst.
// Insertion order is semantically meaningful - it is blend order. The
// set is append-only until a wholesale Clear; no frame is ever
// removed individually, so blend order is always capture order and
// there is no index-shifting logic anywhere.
//
// The device attitude and camera facing are latched from the first
// frame of the burst and fixed for the whole set, even if the user
// reorients mid-burst: every frame gets corrected with the same
// reference attitude at save time.
//
// Capture, save and clear all mutate the set, so all three serialize
// on the one mutex here. While a save is in flight the set is frozen:
// appends and clears are refused until the save settles.
type ExposureSet struct {
	mu sync.Mutex

	frames           []Frame
	burstOrientation DeviceOrientation
	burstFacing      Facing
	saving           bool
}

func NewExposureSet() *ExposureSet {
	return &ExposureSet{}
}

func (es *ExposureSet)String() string {
	es.mu.Lock()
	defer es.mu.Unlock()
	str := fmt.Sprintf("ExposureSet[%s/%s\n", es.burstOrientation, es.burstFacing)
	for _, f := range es.frames {
		str += fmt.Sprintf("  %s\n", f)
	}
	return str + "]"
}

// Append adds a captured frame at the end of the set. The first frame
// of a fresh burst latches the burst attitude and facing from the
// capture-time metadata.
func (es *ExposureSet)Append(cf CapturedFrame) error {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.saving {
		return ErrSetFrozen
	}

	if len(es.frames) == 0 {
		es.burstOrientation = cf.Orientation
		es.burstFacing = cf.Facing
		klog.V(1).Infof("burst latched: orientation=%s facing=%s", cf.Orientation, cf.Facing)
	}

	es.frames = append(es.frames, Frame{
		Bitmap: cf.Bitmap,
		Seq:    len(es.frames),
		Facing: cf.Facing,
	})
	return nil
}

// Clear empties the set, so the next Append starts a fresh burst with
// a fresh latched attitude. It only fails if a save is in flight.
func (es *ExposureSet)Clear() error {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.saving {
		return ErrSetFrozen
	}
	es.clearLocked()
	return nil
}

func (es *ExposureSet)clearLocked() {
	es.frames = nil
	es.burstOrientation = OrientationUnknown
	es.burstFacing = BackFacing
}

func (es *ExposureSet)Count() int {
	es.mu.Lock()
	defer es.mu.Unlock()
	return len(es.frames)
}

func (es *ExposureSet)IsEmpty() bool { return es.Count() == 0 }

// Burst returns the latched attitude and facing for the current burst.
func (es *ExposureSet)Burst() (DeviceOrientation, Facing) {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.burstOrientation, es.burstFacing
}

// Bitmaps returns the frame bitmaps in blend order. The slice is
// fresh, but the bitmaps themselves stay owned by the set and must be
// treated as read-only.
func (es *ExposureSet)Bitmaps() []image.Image {
	es.mu.Lock()
	defer es.mu.Unlock()
	out := make([]image.Image, len(es.frames))
	for i, f := range es.frames {
		out[i] = f.Bitmap
	}
	return out
}

// beginSave freezes the set for the duration of a save. It fails
// before any collaborator is contacted if the set is empty or a save
// is already outstanding.
func (es *ExposureSet)beginSave() error {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.saving {
		return ErrSaveInProgress
	}
	if len(es.frames) == 0 {
		return ErrEmptyBurst
	}
	es.saving = true
	return nil
}

// endSave thaws the set; on a committed save it also drains it, so
// the next capture starts a fresh burst.
func (es *ExposureSet)endSave(committed bool) {
	es.mu.Lock()
	defer es.mu.Unlock()

	es.saving = false
	if committed {
		es.clearLocked()
	}
}
