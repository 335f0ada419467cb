// Package preview generates and caches thumbnails: texture decode with a
// bounded decode-timeout, and material placeholders rendered parametrically
// when no usable source texture exists. Every outcome is terminal and
// recorded on the Asset row — either a cache path or one of the sentinel
// strings in internal/model (TOO_LARGE, UNSUPPORTED) that block automatic
// retry until the caller explicitly clears it.
package preview

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/assetlib/internal/logging"
	"github.com/standardbeagle/assetlib/internal/model"
)

var log = logging.New("preview")

const (
	maxSourceBytes = 50 * 1024 * 1024
	maxDimension   = 2048
	maxPixelCount  = 4_194_304
	decodeTimeout  = 3 * time.Second

	// thumbnailConcurrency bounds how many assets are decoded/resized at
	// once: enough to overlap I/O and CPU work across a batch without
	// flooding the disk cache with concurrent writers.
	thumbnailConcurrency = 4
)

// Store is the subset of internal/store.Store the preview pipeline needs.
type Store interface {
	GetAssetsNeedingThumbnails(projectID string, limit int) ([]model.Asset, error)
	GetAssetByGUID(projectID, guid string) (*model.Asset, error)
	UpdateAssetThumbnail(assetID, value string) error
}

// Generator produces and caches thumbnails under a single cache directory.
type Generator struct {
	store        Store
	cacheDir     string
	thumbnailMax uint
}

// New builds a Generator writing into cacheDir, capping thumbnails at
// thumbnailMax on their longer axis.
func New(store Store, cacheDir string, thumbnailMax uint) *Generator {
	return &Generator{store: store, cacheDir: cacheDir, thumbnailMax: thumbnailMax}
}

// cacheKey derives the on-disk cache filename for a texture source file:
// <hashhex>_<modtime>.png, where hashhex is the absolute path hashed alone.
// Folding modifiedTime into the visible suffix (rather than the hash) keeps
// the filename inspectable while still invalidating the cache entry the
// moment the source file changes.
func cacheKey(absolutePath string, modifiedTime int64) string {
	h := xxhash.New()
	_, _ = h.Write([]byte(absolutePath))
	return fmt.Sprintf("%016x_%d.png", h.Sum64(), modifiedTime)
}

// materialCacheKey derives the on-disk cache filename for a material
// placeholder/copy: mat_<hashhex>_<modtime>.png, mirroring cacheKey with a
// "mat_" prefix so the two asset kinds never collide in the shared cache
// directory.
func materialCacheKey(absolutePath string, modifiedTime int64) string {
	return "mat_" + cacheKey(absolutePath, modifiedTime)
}

// GenerateThumbnailsForProject pulls up to limit eligible assets and
// processes them with bounded concurrency, recording each outcome. Returns
// the number of assets for which a thumbnail_path write (cache path or
// sentinel) was made. Library.RegenerateThumbnails calls this repeatedly
// until it returns zero; a scan does not call it.
func (g *Generator) GenerateThumbnailsForProject(projectID string, limit int) (int, error) {
	assets, err := g.store.GetAssetsNeedingThumbnails(projectID, limit)
	if err != nil {
		return 0, err
	}

	var group errgroup.Group
	group.SetLimit(thumbnailConcurrency)
	var generated atomic.Int64

	for _, asset := range assets {
		asset := asset
		switch asset.AssetType {
		case model.AssetTypeTexture, model.AssetTypeMaterial:
		default:
			continue
		}

		group.Go(func() error {
			var outcome string
			switch asset.AssetType {
			case model.AssetTypeTexture:
				outcome = g.generateTexture(asset)
			case model.AssetTypeMaterial:
				outcome = g.generateMaterial(projectID, asset)
			}

			if err := g.store.UpdateAssetThumbnail(asset.ID, outcome); err != nil {
				return err
			}
			generated.Add(1)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return int(generated.Load()), err
	}
	return int(generated.Load()), nil
}

// generateTexture implements the texture guard sequence: size, decode
// timeout, dimension/pixel-count, resize+encode.
func (g *Generator) generateTexture(asset model.Asset) string {
	key := cacheKey(asset.AbsolutePath, asset.ModifiedTime)
	cachePath := filepath.Join(g.cacheDir, key)
	if _, err := os.Stat(cachePath); err == nil {
		return cachePath
	}

	info, err := os.Stat(asset.AbsolutePath)
	if err != nil {
		return model.ThumbnailUnsupported
	}
	if info.Size() > maxSourceBytes {
		return model.ThumbnailTooLarge
	}

	img, err := decodeWithTimeout(asset.AbsolutePath, decodeTimeout)
	if err != nil {
		log.Warnf("decode %s: %v", asset.AbsolutePath, err)
		return model.ThumbnailUnsupported
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return model.ThumbnailUnsupported
	}
	if w > maxDimension || h > maxDimension || w*h > maxPixelCount {
		return model.ThumbnailTooLarge
	}

	thumb := resizeToFit(img, g.thumbnailMax)

	if err := writeAtomicPNG(cachePath, thumb); err != nil {
		log.Warnf("write thumbnail %s: %v", cachePath, err)
		return model.ThumbnailUnsupported
	}

	return cachePath
}

// decodeResult carries a single-shot decode outcome across the
// helper-worker channel.
type decodeResult struct {
	img image.Image
	err error
}

// decodeWithTimeout decodes path on a throwaway goroutine and waits with a
// deadline. If the deadline elapses the goroutine is abandoned (its result,
// if it ever arrives, is discarded into a buffered channel of size 1 so it
// does not leak blocked forever).
func decodeWithTimeout(path string, timeout time.Duration) (image.Image, error) {
	resultCh := make(chan decodeResult, 1)

	go func() {
		f, err := os.Open(path)
		if err != nil {
			resultCh <- decodeResult{err: err}
			return
		}
		defer f.Close()

		img, _, err := image.Decode(f)
		resultCh <- decodeResult{img: img, err: err}
	}()

	select {
	case res := <-resultCh:
		return res.img, res.err
	case <-time.After(timeout):
		return nil, fmt.Errorf("decode timed out after %s", timeout)
	}
}

func resizeToFit(img image.Image, maxAxis uint) image.Image {
	bounds := img.Bounds()
	w, h := uint(bounds.Dx()), uint(bounds.Dy())
	if maxAxis == 0 {
		maxAxis = 128
	}

	var targetW, targetH uint
	if w >= h {
		targetW = maxAxis
		targetH = uint(math.Round(float64(h) * float64(maxAxis) / float64(w)))
	} else {
		targetH = maxAxis
		targetW = uint(math.Round(float64(w) * float64(maxAxis) / float64(h)))
	}
	if targetW == 0 {
		targetW = 1
	}
	if targetH == 0 {
		targetH = 1
	}

	return resize.Resize(targetW, targetH, img, resize.Lanczos3)
}

// writeAtomicPNG encodes img as PNG to a temp file in the same directory as
// path and renames it into place, so a reader never observes a partially
// written cache entry.
func writeAtomicPNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-thumb-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := encodePNG(tmp, img); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}

func encodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}
