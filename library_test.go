package assetlib

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/assetlib/internal/orchestrator"
)

func writeProjectFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func openTestLibrary(t *testing.T) *Library {
	t.Helper()
	dir := t.TempDir()
	lib, err := Open(
		filepath.Join(dir, "settings.json"),
		filepath.Join(dir, "library.db"),
		filepath.Join(dir, "thumbnails"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = lib.Close() })
	return lib
}

func waitForScan(t *testing.T, lib *Library, projectID string) {
	t.Helper()
	done := make(chan orchestrator.Phase, 1)
	err := lib.StartScan(projectID, func(p orchestrator.Progress) {
		switch p.Phase {
		case orchestrator.PhaseComplete, orchestrator.PhaseError, orchestrator.PhaseCancelled:
			select {
			case done <- p.Phase:
			default:
			}
		}
	})
	require.NoError(t, err)

	select {
	case phase := <-done:
		require.Equal(t, orchestrator.PhaseComplete, phase)
	case <-time.After(10 * time.Second):
		t.Fatal("scan did not complete in time")
	}
}

func TestSetProjectRootRejectsMissingDirectory(t *testing.T) {
	lib := openTestLibrary(t)
	_, err := lib.SetProjectRoot(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}

func TestSetProjectRootPersistsAndReturnsProject(t *testing.T) {
	lib := openTestLibrary(t)
	root := t.TempDir()

	project, err := lib.SetProjectRoot(root)
	require.NoError(t, err)
	assert.Equal(t, root, project.RootPath)

	settings := lib.GetSettings()
	assert.Equal(t, root, settings.ProjectRoot)

	current, err := lib.GetCurrentProject()
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, project.ID, current.ID)
}

func TestGetCurrentProjectNilBeforeRootIsSet(t *testing.T) {
	lib := openTestLibrary(t)
	current, err := lib.GetCurrentProject()
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestScanIndexesAssetsAndCountsByType(t *testing.T) {
	lib := openTestLibrary(t)
	root := t.TempDir()
	writeProjectFile(t, root, "Textures/wall.png", "pngdata")
	writeProjectFile(t, root, "Models/crate.obj", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n")

	project, err := lib.SetProjectRoot(root)
	require.NoError(t, err)

	waitForScan(t, lib, project.ID)

	page, err := lib.GetAssets(project.ID, "", nil, 0, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	counts, err := lib.GetTypeCounts(project.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, counts)
}

func TestGetBundlePreviewSumsDependencySizes(t *testing.T) {
	lib := openTestLibrary(t)
	root := t.TempDir()
	writeProjectFile(t, root, "a.obj", "v 0 0 0\n")

	project, err := lib.SetProjectRoot(root)
	require.NoError(t, err)
	waitForScan(t, lib, project.ID)

	page, err := lib.GetAssets(project.ID, "", nil, 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Assets, 1)

	preview, err := lib.GetBundlePreview(page.Assets[0].ID)
	require.NoError(t, err)
	assert.Equal(t, page.Assets[0].SizeBytes, preview.TotalSizeBytes)
	assert.Empty(t, preview.Dependencies)
}

func TestGetThumbnailBase64NilWhenUnattempted(t *testing.T) {
	lib := openTestLibrary(t)
	root := t.TempDir()
	writeProjectFile(t, root, "a.obj", "v 0 0 0\n")

	project, err := lib.SetProjectRoot(root)
	require.NoError(t, err)
	waitForScan(t, lib, project.ID)

	page, err := lib.GetAssets(project.ID, "", nil, 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Assets, 1)

	thumb, err := lib.GetThumbnailBase64(page.Assets[0].ID)
	require.NoError(t, err)
	assert.Nil(t, thumb)
}

func TestStartScanRejectsUnknownProjectID(t *testing.T) {
	lib := openTestLibrary(t)
	root := t.TempDir()
	_, err := lib.SetProjectRoot(root)
	require.NoError(t, err)

	err = lib.StartScan("not-the-real-id", nil)
	assert.Error(t, err)
}
