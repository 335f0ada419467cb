package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/assetlib/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetOrCreateProjectIsIdempotent(t *testing.T) {
	s := openTestStore(t)

	p1, err := s.GetOrCreateProject("/projects/demo", "demo")
	require.NoError(t, err)
	assert.NotEmpty(t, p1.ID)

	p2, err := s.GetOrCreateProject("/projects/demo", "demo")
	require.NoError(t, err)
	assert.Equal(t, p1.ID, p2.ID)
}

func TestUpsertAssetsPreservesThumbnailWhenUnchanged(t *testing.T) {
	s := openTestStore(t)
	p, err := s.GetOrCreateProject("/projects/demo", "demo")
	require.NoError(t, err)

	asset := model.Asset{
		ProjectID:    p.ID,
		AbsolutePath: "/projects/demo/tex.png",
		RelativePath: "tex.png",
		FileName:     "tex.png",
		Extension:    ".png",
		AssetType:    model.AssetTypeTexture,
		SizeBytes:    100,
		ModifiedTime: 1000,
		ContentHash:  42,
	}
	out, err := s.UpsertAssets([]model.Asset{asset})
	require.NoError(t, err)
	require.Len(t, out, 1)
	id := out[0].ID

	require.NoError(t, s.UpdateAssetThumbnail(id, "/cache/thumb.png"))

	asset.ID = id
	asset.ModifiedTime = 1000 // unchanged
	_, err = s.UpsertAssets([]model.Asset{asset})
	require.NoError(t, err)

	got, err := s.GetAsset(id)
	require.NoError(t, err)
	assert.Equal(t, "/cache/thumb.png", got.ThumbnailPath)
}

func TestUpsertAssetsClearsThumbnailWhenModifiedTimeChanges(t *testing.T) {
	s := openTestStore(t)
	p, err := s.GetOrCreateProject("/projects/demo", "demo")
	require.NoError(t, err)

	asset := model.Asset{
		ProjectID:    p.ID,
		AbsolutePath: "/projects/demo/tex.png",
		RelativePath: "tex.png",
		FileName:     "tex.png",
		Extension:    ".png",
		AssetType:    model.AssetTypeTexture,
		SizeBytes:    100,
		ModifiedTime: 1000,
	}
	out, err := s.UpsertAssets([]model.Asset{asset})
	require.NoError(t, err)
	id := out[0].ID
	require.NoError(t, s.UpdateAssetThumbnail(id, "/cache/thumb.png"))

	asset.ID = id
	asset.ModifiedTime = 2000
	_, err = s.UpsertAssets([]model.Asset{asset})
	require.NoError(t, err)

	got, err := s.GetAsset(id)
	require.NoError(t, err)
	assert.Equal(t, "", got.ThumbnailPath)
}

func TestUpsertAssetsPersistsReferences(t *testing.T) {
	s := openTestStore(t)
	p, err := s.GetOrCreateProject("/projects/demo", "demo")
	require.NoError(t, err)

	asset := model.Asset{
		ProjectID:    p.ID,
		AbsolutePath: "/projects/demo/hero.mat",
		RelativePath: "hero.mat",
		FileName:     "hero.mat",
		Extension:    ".mat",
		AssetType:    model.AssetTypeMaterial,
		References: []model.ReferenceToken{
			{Kind: model.ReferenceKindGUID, TargetGUID: "abc123", SlotName: "_MainTex"},
		},
	}
	out, err := s.UpsertAssets([]model.Asset{asset})
	require.NoError(t, err)

	got, err := s.GetAsset(out[0].ID)
	require.NoError(t, err)
	require.Len(t, got.References, 1)
	assert.Equal(t, "abc123", got.References[0].TargetGUID)
	assert.Equal(t, "_MainTex", got.References[0].SlotName)
}

func TestGetAssetByGUID(t *testing.T) {
	s := openTestStore(t)
	p, err := s.GetOrCreateProject("/projects/demo", "demo")
	require.NoError(t, err)

	asset := model.Asset{
		ProjectID:    p.ID,
		AbsolutePath: "/projects/demo/tex.png",
		RelativePath: "tex.png",
		FileName:     "tex.png",
		AssetType:    model.AssetTypeTexture,
		GUID:         "deadbeef",
	}
	_, err = s.UpsertAssets([]model.Asset{asset})
	require.NoError(t, err)

	got, err := s.GetAssetByGUID(p.ID, "deadbeef")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tex.png", got.RelativePath)

	none, err := s.GetAssetByGUID(p.ID, "missing")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestTombstoneMissingExcludesFromGetAssets(t *testing.T) {
	s := openTestStore(t)
	p, err := s.GetOrCreateProject("/projects/demo", "demo")
	require.NoError(t, err)

	a1 := model.Asset{ProjectID: p.ID, AbsolutePath: "/p/a.png", RelativePath: "a.png", FileName: "a.png", AssetType: model.AssetTypeTexture}
	a2 := model.Asset{ProjectID: p.ID, AbsolutePath: "/p/b.png", RelativePath: "b.png", FileName: "b.png", AssetType: model.AssetTypeTexture}
	_, err = s.UpsertAssets([]model.Asset{a1, a2})
	require.NoError(t, err)

	require.NoError(t, s.TombstoneMissing(p.ID, map[string]bool{"/p/a.png": true}, 999))

	assets, total, err := s.GetAssets(p.ID, "", nil, 0, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, assets, 1)
	assert.Equal(t, "a.png", assets[0].RelativePath)
}

func TestGetAssetsSearchAndTypeFilter(t *testing.T) {
	s := openTestStore(t)
	p, err := s.GetOrCreateProject("/projects/demo", "demo")
	require.NoError(t, err)

	assets := []model.Asset{
		{ProjectID: p.ID, AbsolutePath: "/p/hero.png", RelativePath: "hero.png", FileName: "hero.png", AssetType: model.AssetTypeTexture},
		{ProjectID: p.ID, AbsolutePath: "/p/hero.mat", RelativePath: "hero.mat", FileName: "hero.mat", AssetType: model.AssetTypeMaterial},
		{ProjectID: p.ID, AbsolutePath: "/p/villain.png", RelativePath: "villain.png", FileName: "villain.png", AssetType: model.AssetTypeTexture},
	}
	_, err = s.UpsertAssets(assets)
	require.NoError(t, err)

	results, total, err := s.GetAssets(p.ID, "hero", nil, 0, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, results, 2)

	results, total, err = s.GetAssets(p.ID, "", []model.AssetType{model.AssetTypeTexture}, 0, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, results, 2)
}

func TestGetAssetsMultiTypeFilterIsOred(t *testing.T) {
	s := openTestStore(t)
	p, err := s.GetOrCreateProject("/projects/demo", "demo")
	require.NoError(t, err)

	assets := []model.Asset{
		{ProjectID: p.ID, AbsolutePath: "/p/hero.png", RelativePath: "hero.png", FileName: "hero.png", AssetType: model.AssetTypeTexture},
		{ProjectID: p.ID, AbsolutePath: "/p/hero.mat", RelativePath: "hero.mat", FileName: "hero.mat", AssetType: model.AssetTypeMaterial},
		{ProjectID: p.ID, AbsolutePath: "/p/hero.fbx", RelativePath: "hero.fbx", FileName: "hero.fbx", AssetType: model.AssetTypeModel},
	}
	_, err = s.UpsertAssets(assets)
	require.NoError(t, err)

	results, total, err := s.GetAssets(p.ID, "", []model.AssetType{model.AssetTypeTexture, model.AssetTypeMaterial}, 0, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, results, 2)

	results, total, err = s.GetAssets(p.ID, "", nil, 0, 50)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, results, 3)
}

func TestReplaceDependenciesAndLookups(t *testing.T) {
	s := openTestStore(t)
	p, err := s.GetOrCreateProject("/projects/demo", "demo")
	require.NoError(t, err)

	assets := []model.Asset{
		{ProjectID: p.ID, AbsolutePath: "/p/hero.prefab", RelativePath: "hero.prefab", FileName: "hero.prefab", AssetType: model.AssetTypePrefab},
		{ProjectID: p.ID, AbsolutePath: "/p/hero.mat", RelativePath: "hero.mat", FileName: "hero.mat", AssetType: model.AssetTypeMaterial},
	}
	out, err := s.UpsertAssets(assets)
	require.NoError(t, err)
	prefabID, matID := out[0].ID, out[1].ID

	err = s.ReplaceDependencies(prefabID, []model.Dependency{
		{SourceAssetID: prefabID, TargetAssetID: matID, Kind: model.ReferenceKindGUID, SlotName: "material"},
	})
	require.NoError(t, err)

	deps, err := s.GetDependencies(prefabID)
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, matID, deps[0].TargetAssetID)

	dependents, err := s.GetDependents(matID)
	require.NoError(t, err)
	require.Len(t, dependents, 1)
	assert.Equal(t, prefabID, dependents[0].SourceAssetID)

	// Replacing with an empty edge set clears prior edges.
	require.NoError(t, s.ReplaceDependencies(prefabID, nil))
	deps, err = s.GetDependencies(prefabID)
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestThumbnailQueriesRespectAssetType(t *testing.T) {
	s := openTestStore(t)
	p, err := s.GetOrCreateProject("/projects/demo", "demo")
	require.NoError(t, err)

	assets := []model.Asset{
		{ProjectID: p.ID, AbsolutePath: "/p/a.png", RelativePath: "a.png", FileName: "a.png", AssetType: model.AssetTypeTexture},
		{ProjectID: p.ID, AbsolutePath: "/p/a.cs", RelativePath: "a.cs", FileName: "a.cs", AssetType: model.AssetTypeScript},
	}
	_, err = s.UpsertAssets(assets)
	require.NoError(t, err)

	count, err := s.CountThumbnailAssets(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	needing, err := s.GetAssetsNeedingThumbnails(p.ID, 10)
	require.NoError(t, err)
	require.Len(t, needing, 1)
	assert.Equal(t, "a.png", needing[0].RelativePath)
}

func TestUpdateProjectScanTime(t *testing.T) {
	s := openTestStore(t)
	p, err := s.GetOrCreateProject("/projects/demo", "demo")
	require.NoError(t, err)

	require.NoError(t, s.UpdateProjectScanTime(p.ID, 42))

	reloaded, err := s.GetProjectByPath("/projects/demo")
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	assert.Equal(t, 42, reloaded.FileCount)
	assert.Greater(t, reloaded.LastScanTime, int64(0))
}
