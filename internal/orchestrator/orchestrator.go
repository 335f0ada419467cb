// Package orchestrator drives one scan at a time through its phases
// (counting, indexing, dependency resolution, completion) over a project,
// reporting throttled progress and tolerating cancellation and worker
// panics without corrupting Store state.
package orchestrator

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	aerrors "github.com/standardbeagle/assetlib/internal/errors"
	"github.com/standardbeagle/assetlib/internal/extractor"
	"github.com/standardbeagle/assetlib/internal/logging"
	"github.com/standardbeagle/assetlib/internal/model"
	"github.com/standardbeagle/assetlib/internal/resolver"
	"github.com/standardbeagle/assetlib/internal/scanner"
)

// contentFingerprint is the cheap, non-cryptographic change-detection hash
// described in the data model: deterministic over (size, mtime), not file
// content — two files sharing both are treated as unchanged regardless of
// their bytes.
func contentFingerprint(sizeBytes, modifiedTime int64) uint64 {
	h := xxhash.New()
	_, _ = fmt.Fprintf(h, "%d|%d", sizeBytes, modifiedTime)
	return h.Sum64()
}

var log = logging.New("orchestrator")

// Phase names a scan's position in its lifecycle.
type Phase string

const (
	PhaseCounting     Phase = "counting"
	PhaseIndexing     Phase = "indexing"
	PhaseDependencies Phase = "dependencies"
	PhaseComplete     Phase = "complete"
	PhaseCancelled    Phase = "cancelled"
	PhaseError        Phase = "error"
)

// Progress is one scan-progress event.
type Progress struct {
	Phase       Phase
	Scanned     int
	Total       int
	CurrentPath string
	Skipped     int
	Changed     int
	Err         error
}

// ProgressFunc receives scan-progress events; calls may be throttled.
type ProgressFunc func(Progress)

// Store is the subset of internal/store.Store the orchestrator drives.
type Store interface {
	GetOrCreateProject(rootPath, name string) (model.Project, error)
	GetExistingAssetInfo(projectID string) (map[string]scanner.ExistingInfo, error)
	UpsertAssets(assets []model.Asset) ([]model.Asset, error)
	TombstoneMissing(projectID string, keepPaths map[string]bool, now int64) error
	UpdateProjectScanTime(projectID string, fileCount int) error
}

const batchSize = 200

// progressThrottle bounds how often indexing assets-updated events fire.
const progressThrottle = 200 * time.Millisecond

// cancelWait is how long a new scan request waits for a prior scan to
// observe cancellation before proceeding anyway.
const cancelWait = 5 * time.Second

// Orchestrator runs at most one scan at a time per process.
type Orchestrator struct {
	store    Store
	resolver *resolver.Resolver

	mu        sync.Mutex
	running   bool
	cancelled atomic.Bool
	doneCh    chan struct{}
}

// New builds an Orchestrator over the given store and resolver.
func New(store Store, res *resolver.Resolver) *Orchestrator {
	return &Orchestrator{store: store, resolver: res}
}

// CancelOperation sets the cancellation flag for the currently running
// scan, if any. It is a no-op if no scan is running.
func (o *Orchestrator) CancelOperation() {
	o.cancelled.Store(true)
}

// StartScan begins a scan of rootPath in the background, invoking onProgress
// for every phase transition and throttled per-asset tick. ignorePatterns is
// the caller's current settings.ignore_patterns; a nil or empty slice means
// no directory is ignored (the caller, not the orchestrator, decides
// whether that means "use the defaults" or "ignore nothing"). If a scan is
// already running, it is signalled to cancel and StartScan waits up to
// cancelWait for it to exit before starting the new one; if the wait times
// out, the new scan proceeds anyway (the old one will settle eventually).
func (o *Orchestrator) StartScan(rootPath, projectName string, ignorePatterns []string, onProgress ProgressFunc) {
	o.mu.Lock()
	if o.running {
		o.cancelled.Store(true)
		prevDone := o.doneCh
		o.mu.Unlock()

		select {
		case <-prevDone:
		case <-time.After(cancelWait):
			log.Warnf("previous scan did not exit within %s; starting new scan anyway", cancelWait)
		}

		o.mu.Lock()
	}

	o.running = true
	o.cancelled.Store(false)
	doneCh := make(chan struct{})
	o.doneCh = doneCh
	o.mu.Unlock()

	go o.runScan(rootPath, projectName, ignorePatterns, onProgress, doneCh)
}

// runScan is the guarded body of a scan: a recover() ensures a panic never
// leaves the running flag set, converting it into a terminal error event
// instead.
func (o *Orchestrator) runScan(rootPath, projectName string, ignorePatterns []string, onProgress ProgressFunc, doneCh chan struct{}) {
	defer close(doneCh)
	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("scan panicked: %v", r)
			if onProgress != nil {
				onProgress(Progress{Phase: PhaseError, Err: aerrors.NewCustomError("scan worker panicked")})
			}
		}
	}()

	if err := o.scan(rootPath, projectName, ignorePatterns, onProgress); err != nil {
		if _, ok := err.(*aerrors.CancelledError); ok {
			if onProgress != nil {
				onProgress(Progress{Phase: PhaseCancelled})
			}
			return
		}
		if onProgress != nil {
			onProgress(Progress{Phase: PhaseError, Err: err})
		}
	}
}

func (o *Orchestrator) cancel() bool {
	return o.cancelled.Load()
}

func (o *Orchestrator) scan(rootPath, projectName string, ignorePatterns []string, onProgress ProgressFunc) error {
	project, err := o.store.GetOrCreateProject(rootPath, projectName)
	if err != nil {
		return err
	}

	ignore := scanner.NewIgnoreSet(ignorePatterns)

	total := scanner.CountScannableFiles(rootPath, ignore, o.cancel, func(count int) {
		if onProgress != nil {
			onProgress(Progress{Phase: PhaseCounting, Scanned: count})
		}
	})
	if o.cancel() {
		return aerrors.NewCancelledError("counting")
	}

	existing, err := o.store.GetExistingAssetInfo(project.ID)
	if err != nil {
		return err
	}

	keepPaths := make(map[string]bool, total)
	var lastEmit time.Time
	var totalSkipped, totalChanged int

	_, stats := scanner.ScanFilesBatch(rootPath, ignore, batchSize, o.cancel, existing, func(batch []scanner.FileDescriptor, scanned int, current string) bool {
		assets := make([]model.Asset, 0, len(batch))
		for _, desc := range batch {
			keepPaths[desc.AbsolutePath] = true
			if desc.Unchanged {
				totalSkipped++
				continue
			}
			totalChanged++
			hash := contentFingerprint(desc.SizeBytes, desc.ModifiedTime)
			asset := extractor.Extract(project.ID, desc.AbsolutePath, desc.RelativePath, desc.FileName, desc.Extension, desc.SizeBytes, desc.ModifiedTime, hash)
			assets = append(assets, asset)
		}

		if len(assets) > 0 {
			if _, err := o.store.UpsertAssets(assets); err != nil {
				log.Errorf("upsert batch failed: %v", err)
			}
		}

		if onProgress != nil && time.Since(lastEmit) >= progressThrottle {
			onProgress(Progress{Phase: PhaseIndexing, Scanned: scanned, Total: total, CurrentPath: current, Skipped: totalSkipped, Changed: totalChanged})
			lastEmit = time.Now()
		}

		return !o.cancel()
	})

	if o.cancel() {
		return aerrors.NewCancelledError("indexing")
	}

	if onProgress != nil {
		onProgress(Progress{Phase: PhaseIndexing, Scanned: stats.TotalFiles, Total: total, Skipped: stats.UnchangedSkipped, Changed: stats.NewOrChanged})
	}

	if err := o.store.TombstoneMissing(project.ID, keepPaths, time.Now().Unix()); err != nil {
		log.Warnf("tombstone missing assets: %v", err)
	}

	if o.resolver != nil {
		err := o.resolver.ResolveAllForProject(project.ID, rootPath, o.cancel, func(processed, totalAssets int) {
			if onProgress != nil && time.Since(lastEmit) >= progressThrottle {
				onProgress(Progress{Phase: PhaseDependencies, Scanned: processed, Total: totalAssets})
				lastEmit = time.Now()
			}
		})
		if err != nil {
			if _, ok := err.(*aerrors.CancelledError); ok {
				return err
			}
			log.Errorf("dependency resolution failed: %v", err)
		}
	}

	if err := o.store.UpdateProjectScanTime(project.ID, stats.TotalFiles); err != nil {
		log.Warnf("update scan time: %v", err)
	}

	if onProgress != nil {
		onProgress(Progress{Phase: PhaseComplete, Scanned: stats.TotalFiles, Total: total})
	}

	return nil
}
