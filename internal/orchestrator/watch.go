package orchestrator

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce bounds how often a burst of filesystem events collapses
// into a single re-scan trigger.
const watchDebounce = 750 * time.Millisecond

// WatchProject is an additive, optional mode beyond the spec's core scan
// lifecycle: it watches rootPath for changes and triggers a debounced
// StartScan on activity, stopping when stop is closed. Watch failures (e.g.
// the platform lacks inotify/FSEvents support) are logged and the watch
// exits; they never affect a scan already in flight.
func (o *Orchestrator) WatchProject(rootPath, projectName string, ignorePatterns []string, onProgress ProgressFunc, stop <-chan struct{}) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warnf("watch %s: create watcher: %v", rootPath, err)
		return
	}
	defer watcher.Close()

	if err := addRecursive(watcher, rootPath); err != nil {
		log.Warnf("watch %s: %v", rootPath, err)
		return
	}

	var timer *time.Timer
	trigger := make(chan struct{}, 1)

	for {
		select {
		case <-stop:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			if timer == nil {
				timer = time.AfterFunc(watchDebounce, func() {
					select {
					case trigger <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(watchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warnf("watch %s: %v", rootPath, err)
		case <-trigger:
			o.StartScan(rootPath, projectName, ignorePatterns, onProgress)
		}
	}
}

// addRecursive registers every directory under root with watcher, since
// fsnotify watches are not recursive by default.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if err := watcher.Add(path); err != nil {
				log.Warnf("watch add %s: %v", path, err)
			}
		}
		return nil
	})
}
