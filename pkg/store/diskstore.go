// Package store provides asset-store collaborators. The core only
// sees the ghost.AssetStore interface; the store here commits
// composites to a directory on disk and hands back the filename as
// the opaque asset id.
package store

import(
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/anthonynsimon/bild/imgio"
	"k8s.io/klog/v2"

	"github.com/mcull/expexp/pkg/ghost"
)

// DiskStore writes each committed bitmap into Dir. Failures map onto
// the core's taxonomy: a filesystem permission refusal is
// ErrPermissionDenied, a serialization failure is ErrEncodingFailed,
// anything else on the write path is ErrStoreWriteFailed. Nothing
// here retries; that is the caller's (i.e. the user's) call.
type DiskStore struct {
	Dir     string
	Format  string // "jpeg" or "png"
	Quality int    // jpeg only

	enc     imgio.Encoder // overrides the format-selected encoder when set
	counter uint64
}

func NewDiskStore(dir, format string, quality int) (*DiskStore, error) {
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		format = "jpg"
	case "png", "":
		format = "png"
	default:
		return nil, fmt.Errorf("no store format named '%s'", format)
	}
	if quality <= 0 {
		quality = 90
	}
	return &DiskStore{Dir: dir, Format: format, Quality: quality}, nil
}

func (ds *DiskStore)encoder() imgio.Encoder {
	if ds.enc != nil {
		return ds.enc
	}
	if ds.Format == "jpg" {
		return imgio.JPEGEncoder(ds.Quality)
	}
	return imgio.PNGEncoder()
}

func (ds *DiskStore)Save(ctx context.Context, img image.Image) (ghost.AssetID, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("store: %w: %v", ghost.ErrStoreWriteFailed, err)
	}

	if err := os.MkdirAll(ds.Dir, 0o755); err != nil {
		if os.IsPermission(err) {
			return "", fmt.Errorf("store mkdir '%s': %w", ds.Dir, ghost.ErrPermissionDenied)
		}
		return "", fmt.Errorf("store mkdir '%s': %w: %v", ds.Dir, ghost.ErrStoreWriteFailed, err)
	}

	n := atomic.AddUint64(&ds.counter, 1)
	name := fmt.Sprintf("ghost-%s-%03d.%s", time.Now().Format("20060102-150405"), n, ds.Format)
	path := filepath.Join(ds.Dir, name)

	f, err := os.Create(path)
	if err != nil {
		if os.IsPermission(err) {
			return "", fmt.Errorf("store open+w '%s': %w", path, ghost.ErrPermissionDenied)
		}
		return "", fmt.Errorf("store open+w '%s': %w: %v", path, ghost.ErrStoreWriteFailed, err)
	}

	if err := ds.encoder()(f, img); err != nil {
		f.Close()
		os.Remove(path) // don't leave a half-written asset behind
		return "", fmt.Errorf("store encode '%s': %w: %v", path, ghost.ErrEncodingFailed, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("store close '%s': %w: %v", path, ghost.ErrStoreWriteFailed, err)
	}

	klog.Infof("stored asset %s", name)
	return ghost.AssetID(name), nil
}
