// Package assetlib is the facade over the indexing pipeline: it wires
// Settings, Store, Scanner, Extractor, Resolver, Preview and Orchestrator
// together and exposes the command surface a host UI drives (§6 of the
// design: set_project_root, start_scan, get_assets, and the rest).
//
// Command dispatch, IPC transport, and on-disk path resolution for the
// settings/database files are intentionally left to the caller — this
// package owns the pipeline, not how a process wires it to a UI.
package assetlib

import (
	"encoding/base64"
	"os"

	"github.com/standardbeagle/assetlib/internal/config"
	aerrors "github.com/standardbeagle/assetlib/internal/errors"
	"github.com/standardbeagle/assetlib/internal/model"
	"github.com/standardbeagle/assetlib/internal/orchestrator"
	"github.com/standardbeagle/assetlib/internal/preview"
	"github.com/standardbeagle/assetlib/internal/resolver"
	"github.com/standardbeagle/assetlib/internal/store"
)

// Library is the top-level handle a host process creates once per run.
type Library struct {
	settings *config.Store
	store    *store.Store
	resolver *resolver.Resolver
	preview  *preview.Generator
	orch     *orchestrator.Orchestrator
}

// Open wires a Library over a settings file, a database file, and a
// thumbnail cache directory, all paths the caller resolves (typically a
// system per-user data directory).
func Open(settingsPath, dbPath, cacheDir string) (*Library, error) {
	settingsStore, err := config.Load(settingsPath)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}

	res := resolver.New(st)
	snap := settingsStore.Snapshot()
	gen := preview.New(st, cacheDir, snap.ThumbnailSize)
	orch := orchestrator.New(st, res)

	return &Library{
		settings: settingsStore,
		store:    st,
		resolver: res,
		preview:  gen,
		orch:     orch,
	}, nil
}

// Close releases the underlying database handle.
func (l *Library) Close() error {
	return l.store.Close()
}

// SettingsView mirrors get_settings's JSON-serializable output.
type SettingsView struct {
	ProjectRoot  string `json:"project_root,omitempty"`
	OutputFolder string `json:"output_folder,omitempty"`
}

// SetProjectRoot validates path is an existing directory, persists it, and
// returns the Project row for it (creating one if no project exists for
// this root yet).
func (l *Library) SetProjectRoot(path string) (model.Project, error) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return model.Project{}, aerrors.NewInvalidProjectError(path, "not an existing directory")
	}
	if err := l.settings.SetProjectRoot(path); err != nil {
		return model.Project{}, err
	}
	return l.store.GetOrCreateProject(path, projectNameFromPath(path))
}

// SetOutputFolder persists the output folder setting.
func (l *Library) SetOutputFolder(path string) error {
	return l.settings.SetOutputFolder(path)
}

// GetSettings returns the current project_root/output_folder pair.
func (l *Library) GetSettings() SettingsView {
	snap := l.settings.Snapshot()
	return SettingsView{ProjectRoot: snap.ProjectRoot, OutputFolder: snap.OutputFolder}
}

// GetCurrentProject resolves the project from settings, or nil if no
// project root has been set yet.
func (l *Library) GetCurrentProject() (*model.Project, error) {
	root := l.settings.Snapshot().ProjectRoot
	if root == "" {
		return nil, nil
	}
	return l.store.GetProjectByPath(root)
}

// StartScan begins an asynchronous scan of the given project's root,
// invoking onProgress for every scan-progress event. The scan honors the
// caller's current ignore_patterns setting, falling back to
// config.DefaultIgnorePatterns if it has been cleared to empty.
func (l *Library) StartScan(projectID string, onProgress func(orchestrator.Progress)) error {
	project, err := l.projectByID(projectID)
	if err != nil {
		return err
	}
	ignorePatterns := l.settings.Snapshot().IgnorePatterns
	if len(ignorePatterns) == 0 {
		ignorePatterns = config.DefaultIgnorePatterns
	}
	l.orch.StartScan(project.RootPath, project.Name, ignorePatterns, onProgress)
	return nil
}

// CancelOperation signals the running scan (if any) to stop.
func (l *Library) CancelOperation() {
	l.orch.CancelOperation()
}

// GetAssetsPage is the paginated, filterable result of get_assets.
type GetAssetsPage struct {
	Assets []model.Asset
	Total  int
}

// GetAssets returns one page (0-indexed) of a project's assets, optionally
// filtered by a substring search and/or a set of asset types (OR'd together;
// an empty or nil typeFilters matches every type).
func (l *Library) GetAssets(projectID, searchQuery string, typeFilters []model.AssetType, page, pageSize int) (GetAssetsPage, error) {
	assets, total, err := l.store.GetAssets(projectID, searchQuery, typeFilters, page, pageSize)
	if err != nil {
		return GetAssetsPage{}, err
	}
	return GetAssetsPage{Assets: assets, Total: total}, nil
}

// GetAsset fetches a single asset by id.
func (l *Library) GetAsset(id string) (model.Asset, error) {
	a, err := l.store.GetAsset(id)
	if err != nil {
		return model.Asset{}, err
	}
	return *a, nil
}

// GetDependencies returns assetID's outbound edges.
func (l *Library) GetDependencies(assetID string) ([]model.Dependency, error) {
	return l.store.GetDependencies(assetID)
}

// GetDependents returns assetID's inbound edges.
func (l *Library) GetDependents(assetID string) ([]model.Dependency, error) {
	return l.store.GetDependents(assetID)
}

// GetTypeCounts summarizes a project's asset population by type.
func (l *Library) GetTypeCounts(projectID string) ([]model.TypeCount, error) {
	return l.store.GetTypeCounts(projectID)
}

// GetMaterialInfo returns an asset's material metadata, or nil if the asset
// is not a material.
func (l *Library) GetMaterialInfo(assetID string) (*model.MaterialInfo, error) {
	a, err := l.store.GetAsset(assetID)
	if err != nil {
		return nil, err
	}
	return a.Material, nil
}

// GetModelInfo returns an asset's model metadata, or nil if the asset is
// not a model.
func (l *Library) GetModelInfo(assetID string) (*model.ModelInfo, error) {
	a, err := l.store.GetAsset(assetID)
	if err != nil {
		return nil, err
	}
	return a.Model, nil
}

// BundlePreview is the result of get_bundle_preview: the root asset plus
// its transitive dependency closure (depth-bounded) and their combined size.
type BundlePreview struct {
	Root           model.Asset
	Dependencies   []model.Asset
	TotalSizeBytes int64
}

const defaultBundleDepth = 5

// GetBundlePreview expands rootAssetID's dependency tree up to
// defaultBundleDepth levels and reports the combined size of everything
// pulled in.
func (l *Library) GetBundlePreview(rootAssetID string) (BundlePreview, error) {
	root, err := l.store.GetAsset(rootAssetID)
	if err != nil {
		return BundlePreview{}, err
	}

	ids, err := l.resolver.GetDependencyTree(rootAssetID, defaultBundleDepth)
	if err != nil {
		return BundlePreview{}, err
	}

	deps := make([]model.Asset, 0, len(ids))
	total := root.SizeBytes
	for _, id := range ids {
		a, err := l.store.GetAsset(id)
		if err != nil {
			continue
		}
		deps = append(deps, *a)
		total += a.SizeBytes
	}

	return BundlePreview{Root: *root, Dependencies: deps, TotalSizeBytes: total}, nil
}

// GetThumbnailBase64 returns a data: URL for asset's cached thumbnail, or
// the sentinel string as-is when generation previously failed terminally,
// or nil when no thumbnail has been attempted yet.
func (l *Library) GetThumbnailBase64(assetID string) (*string, error) {
	a, err := l.store.GetAsset(assetID)
	if err != nil {
		return nil, err
	}
	if a.ThumbnailPath == "" {
		return nil, nil
	}
	if a.ThumbnailPath == model.ThumbnailTooLarge || a.ThumbnailPath == model.ThumbnailUnsupported {
		v := a.ThumbnailPath
		return &v, nil
	}

	data, err := os.ReadFile(a.ThumbnailPath)
	if err != nil {
		return nil, aerrors.NewIoError("read_thumbnail", a.ThumbnailPath, err)
	}
	url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
	return &url, nil
}

// RegenerateThumbnails clears every cached thumbnail path for a project and
// re-runs the preview batch loop until it is exhausted, invoking
// onProgress after each batch.
func (l *Library) RegenerateThumbnails(projectID string, onProgress func(generated int)) error {
	if err := l.store.ClearThumbnailPaths(projectID); err != nil {
		return err
	}

	const batchLimit = 50
	for {
		n, err := l.preview.GenerateThumbnailsForProject(projectID, batchLimit)
		if err != nil {
			return err
		}
		if onProgress != nil {
			onProgress(n)
		}
		if n == 0 {
			return nil
		}
	}
}

func (l *Library) projectByID(projectID string) (model.Project, error) {
	root := l.settings.Snapshot().ProjectRoot
	if root == "" {
		return model.Project{}, aerrors.NewInvalidProjectError("", "no project root configured")
	}
	p, err := l.store.GetProjectByPath(root)
	if err != nil {
		return model.Project{}, err
	}
	if p == nil || p.ID != projectID {
		return model.Project{}, aerrors.NewInvalidProjectError(projectID, "unknown project id")
	}
	return *p, nil
}

func projectNameFromPath(path string) string {
	clean := path
	for len(clean) > 1 && clean[len(clean)-1] == '/' {
		clean = clean[:len(clean)-1]
	}
	for i := len(clean) - 1; i >= 0; i-- {
		if clean[i] == '/' || clean[i] == '\\' {
			return clean[i+1:]
		}
	}
	return clean
}
