// Package config holds the process-wide Settings (project root, output
// folder, ignore patterns, thumbnail size) read at scan start and persisted
// to a JSON file next to the store database. Settings are shared and
// read-mostly: writes go through a single-writer lock and flush to disk
// before the lock releases, mirroring the teacher codebase's config layer.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	aerrors "github.com/standardbeagle/assetlib/internal/errors"
)

// DefaultIgnorePatterns matches the original application's defaults: a
// fixed set of path fragments that are almost always noise for a 3D content
// project (VCS metadata, editor caches, build output).
var DefaultIgnorePatterns = []string{
	"Library/", "Temp/", "obj/", "Logs/", "UserSettings/", ".git/", ".vs/",
	"Builds/", "Build/", "node_modules/", "__pycache__/", ".svn/", ".hg/",
	"packages/", "ProjectSettings/", ".idea/", "bin/",
}

const DefaultThumbnailSize = 128

// Settings is the persisted, process-wide configuration. Unknown JSON
// fields are ignored on load — encoding/json already does this when
// unmarshalling into a concrete struct, so old settings files stay
// loadable across schema growth without extra code.
type Settings struct {
	ProjectRoot    string   `json:"project_root,omitempty"`
	OutputFolder   string   `json:"output_folder,omitempty"`
	IgnorePatterns []string `json:"ignore_patterns"`
	ThumbnailSize  uint     `json:"thumbnail_size"`
	ScanOnFocus    bool     `json:"scan_on_focus"`

	path string // where save writes; not serialized
}

// Default returns the settings a fresh installation starts with.
func Default() *Settings {
	patterns := make([]string, len(DefaultIgnorePatterns))
	copy(patterns, DefaultIgnorePatterns)
	return &Settings{
		IgnorePatterns: patterns,
		ThumbnailSize:  DefaultThumbnailSize,
		ScanOnFocus:    true,
	}
}

// Store guards Settings with a single-writer lock: reads take RLock, writes
// take Lock and always call save before releasing it.
type Store struct {
	mu       sync.RWMutex
	settings *Settings
}

// Load reads settings from path, writing out the defaults (and creating
// parent directories) if the file doesn't exist yet.
func Load(path string) (*Store, error) {
	s := &Store{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		defaults := Default()
		defaults.path = path
		if err := defaults.save(); err != nil {
			return nil, err
		}
		s.settings = defaults
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, aerrors.NewIoError("read", path, err)
	}

	loaded := Default()
	if err := json.Unmarshal(data, loaded); err != nil {
		return nil, aerrors.NewCustomError("failed to parse settings file: " + err.Error())
	}
	loaded.path = path
	s.settings = loaded
	return s, nil
}

func (s *Settings) save() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return aerrors.NewIoError("mkdir", filepath.Dir(s.path), err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return aerrors.NewCustomError("failed to encode settings: " + err.Error())
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return aerrors.NewIoError("write", s.path, err)
	}
	return nil
}

// Snapshot returns a copy of the current settings, safe to read without
// holding the lock afterwards. A running scan reads its settings once at
// start via Snapshot, so mid-scan writes never affect it.
func (s *Store) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := *s.settings
	cp.IgnorePatterns = append([]string(nil), s.settings.IgnorePatterns...)
	return cp
}

// SetProjectRoot persists a new project root.
func (s *Store) SetProjectRoot(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.ProjectRoot = path
	return s.settings.save()
}

// SetOutputFolder persists a new output folder.
func (s *Store) SetOutputFolder(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.OutputFolder = path
	return s.settings.save()
}
