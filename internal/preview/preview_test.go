package preview

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/assetlib/internal/model"
)

type fakeStore struct {
	needing    []model.Asset
	byGUID     map[string]*model.Asset
	thumbnails map[string]string
}

func (f *fakeStore) GetAssetsNeedingThumbnails(projectID string, limit int) ([]model.Asset, error) {
	if limit < len(f.needing) {
		return f.needing[:limit], nil
	}
	return f.needing, nil
}

func (f *fakeStore) GetAssetByGUID(projectID, guid string) (*model.Asset, error) {
	return f.byGUID[guid], nil
}

func (f *fakeStore) UpdateAssetThumbnail(assetID, value string) error {
	if f.thumbnails == nil {
		f.thumbnails = make(map[string]string)
	}
	f.thumbnails[assetID] = value
	return nil
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 255), G: uint8(y % 255), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestGenerateTextureProducesThumbnail(t *testing.T) {
	dir := t.TempDir()
	texPath := filepath.Join(dir, "tex.png")
	writePNG(t, texPath, 64, 64)

	asset := model.Asset{ID: "tex-1", AbsolutePath: texPath, AssetType: model.AssetTypeTexture, ModifiedTime: 100}
	store := &fakeStore{needing: []model.Asset{asset}}
	gen := New(store, filepath.Join(dir, "cache"), 32)

	count, err := gen.GenerateThumbnailsForProject("proj-1", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	outcome := store.thumbnails["tex-1"]
	require.NotEmpty(t, outcome)
	assert.NotEqual(t, model.ThumbnailTooLarge, outcome)
	assert.NotEqual(t, model.ThumbnailUnsupported, outcome)
	assert.FileExists(t, outcome)
}

func TestGenerateTextureRejectsOversizedDimensions(t *testing.T) {
	dir := t.TempDir()
	texPath := filepath.Join(dir, "huge.png")
	writePNG(t, texPath, 3000, 10)

	asset := model.Asset{ID: "tex-1", AbsolutePath: texPath, AssetType: model.AssetTypeTexture}
	store := &fakeStore{needing: []model.Asset{asset}}
	gen := New(store, filepath.Join(dir, "cache"), 32)

	_, err := gen.GenerateThumbnailsForProject("proj-1", 10)
	require.NoError(t, err)
	assert.Equal(t, model.ThumbnailTooLarge, store.thumbnails["tex-1"])
}

func TestGenerateTextureUnsupportedOnBadFile(t *testing.T) {
	dir := t.TempDir()
	texPath := filepath.Join(dir, "notreally.png")
	require.NoError(t, os.WriteFile(texPath, []byte("not an image"), 0o644))

	asset := model.Asset{ID: "tex-1", AbsolutePath: texPath, AssetType: model.AssetTypeTexture}
	store := &fakeStore{needing: []model.Asset{asset}}
	gen := New(store, filepath.Join(dir, "cache"), 32)

	_, err := gen.GenerateThumbnailsForProject("proj-1", 10)
	require.NoError(t, err)
	assert.Equal(t, model.ThumbnailUnsupported, store.thumbnails["tex-1"])
}

func TestGenerateMaterialRendersPlaceholderWhenNoTexture(t *testing.T) {
	dir := t.TempDir()
	asset := model.Asset{
		ID:           "mat-1",
		AbsolutePath: filepath.Join(dir, "hero.mat"),
		AssetType:    model.AssetTypeMaterial,
		Material:     &model.MaterialInfo{ShaderName: "Standard"},
	}
	store := &fakeStore{needing: []model.Asset{asset}, byGUID: map[string]*model.Asset{}}
	gen := New(store, filepath.Join(dir, "cache"), 32)

	count, err := gen.GenerateThumbnailsForProject("proj-1", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.FileExists(t, store.thumbnails["mat-1"])
}

func TestGenerateMaterialCopiesMainTextureThumbnail(t *testing.T) {
	dir := t.TempDir()
	texThumb := filepath.Join(dir, "cache", "tex-thumb.png")
	writePNG(t, texThumb, 16, 16)

	texAsset := &model.Asset{ID: "tex-1", GUID: "guid-tex", ThumbnailPath: texThumb}
	matAsset := model.Asset{
		ID:           "mat-1",
		AbsolutePath: filepath.Join(dir, "hero.mat"),
		AssetType:    model.AssetTypeMaterial,
		Material: &model.MaterialInfo{
			ShaderName: "Standard",
			Textures:   []model.MaterialTexture{{SlotName: "_MainTex", TextureGUID: "guid-tex"}},
		},
	}
	store := &fakeStore{
		needing: []model.Asset{matAsset},
		byGUID:  map[string]*model.Asset{"guid-tex": texAsset},
	}
	gen := New(store, filepath.Join(dir, "cache"), 32)

	_, err := gen.GenerateThumbnailsForProject("proj-1", 10)
	require.NoError(t, err)
	assert.FileExists(t, store.thumbnails["mat-1"])
}

func TestCacheKeyChangesWithModifiedTime(t *testing.T) {
	k1 := cacheKey("/a/b.png", 100)
	k2 := cacheKey("/a/b.png", 200)
	assert.NotEqual(t, k1, k2)
}

func TestCacheKeyNamingScheme(t *testing.T) {
	key := cacheKey("/a/b.png", 100)
	assert.Regexp(t, `^[0-9a-f]{16}_100\.png$`, key)

	matKey := materialCacheKey("/a/b.png", 100)
	assert.Equal(t, "mat_"+key, matKey)
	assert.Regexp(t, `^mat_[0-9a-f]{16}_100\.png$`, matKey)
}
