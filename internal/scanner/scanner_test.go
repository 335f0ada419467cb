package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func TestCountScannableFilesRespectsIgnore(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.png":              "x",
		"obj/b.png":          "x",
		"Library/c.png":      "x",
		"sub/d.mat":          "x",
	})

	ignore := NewIgnoreSet([]string{"obj/", "Library/"})
	count := CountScannableFiles(root, ignore, nil, nil)
	assert.Equal(t, 2, count)
}

func TestCountScannableFilesNoIgnoreIndexesEverything(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.png":         "x",
		"obj/b.png":     "x",
		"Library/c.png": "x",
	})

	count := CountScannableFiles(root, NewIgnoreSet(nil), nil, nil)
	assert.Equal(t, 3, count)
}

func TestScanFilesBatchMarksUnchanged(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.png": "hello"})

	abs := filepath.Join(root, "a.png")
	info, err := os.Stat(abs)
	require.NoError(t, err)

	existing := map[string]ExistingInfo{
		abs: {SizeBytes: info.Size(), ModifiedTime: info.ModTime().Unix(), AssetID: "asset-1"},
	}

	var collected []FileDescriptor
	total, stats := ScanFilesBatch(root, NewIgnoreSet(nil), 25, nil, existing, func(batch []FileDescriptor, scanned int, current string) bool {
		collected = append(collected, batch...)
		return true
	})

	require.Equal(t, 1, total)
	assert.Equal(t, 1, stats.TotalFiles)
	assert.Equal(t, 1, stats.UnchangedSkipped)
	assert.Equal(t, 0, stats.NewOrChanged)
	require.Len(t, collected, 1)
	assert.True(t, collected[0].Unchanged)
}

func TestScanFilesBatchAbortsOnFalse(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.png": "1", "b.png": "2", "c.png": "3",
	})

	calls := 0
	total, _ := ScanFilesBatch(root, NewIgnoreSet(nil), 1, nil, nil, func(batch []FileDescriptor, scanned int, current string) bool {
		calls++
		return calls < 2
	})

	assert.Equal(t, 2, total)
	assert.Equal(t, 2, calls)
}

func TestScanFilesBatchCancelStopsEarly(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 10; i++ {
		writeTree(t, root, map[string]string{filepath.Join("dir", string(rune('a'+i))+".png"): "x"})
	}

	cancelled := false
	cancel := func() bool { return cancelled }

	calls := 0
	ScanFilesBatch(root, NewIgnoreSet(nil), 1, cancel, nil, func(batch []FileDescriptor, scanned int, current string) bool {
		calls++
		if calls == 2 {
			cancelled = true
		}
		return true
	})

	assert.LessOrEqual(t, calls, 3)
}

func TestIgnoreSetGlobPattern(t *testing.T) {
	set := NewIgnoreSet([]string{"*.tmp"})
	assert.True(t, set.MatchSegment("foo.tmp", false))
	assert.False(t, set.MatchSegment("foo.png", false))
}

func TestIgnoreSetCaseSensitivity(t *testing.T) {
	set := NewIgnoreSet([]string{"Library/"})
	// case-sensitive/insensitive behavior is platform dependent; exact case
	// must always match.
	assert.True(t, set.MatchSegment("Library", true))
}
