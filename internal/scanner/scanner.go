// Package scanner performs pure filesystem traversal under ignore rules: a
// two-phase walk (count, then batch-emit) that is cancellable and decides
// per-file whether its content looks unchanged versus a stored baseline.
// Scanner owns no state beyond the cursor of a single traversal call.
package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/standardbeagle/assetlib/internal/logging"
)

var log = logging.New("scanner")

// CancelFunc reports whether the caller requested cancellation. It is
// polled at batch/file boundaries, never inside tight loops, so response
// latency is bounded by one file's stat cost.
type CancelFunc func() bool

// FileDescriptor is the raw output of a traversal: what Scanner knows about
// a file without reading its body.
type FileDescriptor struct {
	AbsolutePath string
	RelativePath string
	FileName     string
	Extension    string
	SizeBytes    int64
	ModifiedTime int64 // unix seconds
	Unchanged    bool  // true when size+mtime matched the existing baseline
}

// ExistingInfo is the change-detection baseline Store hands back via
// get_existing_asset_info: for each known absolute path, its last known
// size, mtime, and asset id.
type ExistingInfo struct {
	SizeBytes    int64
	ModifiedTime int64
	AssetID      string
}

// ScanStats accumulates counts across a batch scan.
type ScanStats struct {
	TotalFiles      int
	UnchangedSkipped int
	NewOrChanged    int
}

// CountScannableFiles performs a full traversal counting non-ignored
// regular files. It emits progress via report at most ~4 times per second
// and returns the partial count reached if cancel fires mid-walk.
func CountScannableFiles(root string, ignore *IgnoreSet, cancel CancelFunc, report func(count int)) int {
	count := 0
	lastReport := time.Time{}
	const reportInterval = 250 * time.Millisecond

	_ = walk(root, ignore, cancel, func(path string, info os.FileInfo) bool {
		count++
		if report != nil && time.Since(lastReport) >= reportInterval {
			report(count)
			lastReport = time.Now()
		}
		return true
	})

	if report != nil {
		report(count)
	}
	return count
}

// BatchFunc receives one batch of descriptors, the running total scanned so
// far, and the path currently being visited. It returns false to abort the
// scan (e.g. the host cancelled it).
type BatchFunc func(batch []FileDescriptor, scannedSoFar int, currentPath string) bool

// ScanFilesBatch walks the tree again, collecting up to batchSize
// descriptors before invoking onBatch. existing is the change-detection
// baseline (nil when the project has never been scanned). Returns the total
// number of files visited and the accumulated stats.
func ScanFilesBatch(root string, ignore *IgnoreSet, batchSize int, cancel CancelFunc, existing map[string]ExistingInfo, onBatch BatchFunc) (int, ScanStats) {
	var (
		batch []FileDescriptor
		total int
		stats ScanStats
	)

	aborted := walk(root, ignore, cancel, func(path string, info os.FileInfo) bool {
		desc := describe(root, path, info, existing)
		stats.TotalFiles++
		if desc.Unchanged {
			stats.UnchangedSkipped++
		} else {
			stats.NewOrChanged++
		}

		batch = append(batch, desc)
		total++

		if len(batch) >= batchSize {
			keepGoing := onBatch(batch, total, path)
			batch = nil
			return keepGoing
		}
		return true
	})

	if !aborted && len(batch) > 0 {
		onBatch(batch, total, "")
	}

	return total, stats
}

func describe(root, path string, info os.FileInfo, existing map[string]ExistingInfo) FileDescriptor {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	mtime := info.ModTime().Unix()
	size := info.Size()

	desc := FileDescriptor{
		AbsolutePath: path,
		RelativePath: filepath.ToSlash(rel),
		FileName:     info.Name(),
		Extension:    filepath.Ext(info.Name()),
		SizeBytes:    size,
		ModifiedTime: mtime,
	}

	if existing != nil {
		if base, ok := existing[path]; ok && base.SizeBytes == size && base.ModifiedTime == mtime {
			desc.Unchanged = true
		}
	}

	return desc
}

// visitFunc is called for every non-ignored regular file found during a
// walk; it returns false to stop the walk early.
type visitFunc func(path string, info os.FileInfo) bool

// walk performs one ignore-aware, non-symlink-following traversal of root.
// It returns true if the walk was aborted (by cancel or by visit returning
// false).
func walk(root string, ignore *IgnoreSet, cancel CancelFunc, visit visitFunc) bool {
	aborted := false
	var recurse func(dir string) bool
	recurse = func(dir string) bool {
		if cancel != nil && cancel() {
			return true
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			log.Warnf("read dir %s: %v", dir, err)
			return false
		}

		// Deterministic traversal order keeps scans reproducible.
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		for _, entry := range entries {
			if cancel != nil && cancel() {
				return true
			}

			name := entry.Name()
			isDir := entry.IsDir()

			// Symlinks are not followed (cycle avoidance); a symlinked
			// regular file is also skipped since os.DirEntry can't tell us
			// its target type without a stat we deliberately avoid here.
			if entry.Type()&os.ModeSymlink != 0 {
				continue
			}

			if ignore.MatchSegment(name, isDir) {
				continue
			}

			path := filepath.Join(dir, name)

			if isDir {
				if recurse(path) {
					aborted = true
					return true
				}
				continue
			}

			info, err := entry.Info()
			if err != nil {
				log.Warnf("stat %s: %v", path, err)
				continue
			}
			if !info.Mode().IsRegular() {
				continue
			}

			if !visit(path, info) {
				aborted = true
				return true
			}
		}
		return false
	}

	if recurse(root) {
		aborted = true
	}
	return aborted
}
