package resolver

import (
	"path/filepath"
	"strings"

	"github.com/standardbeagle/assetlib/internal/model"
)

// resolvePathTarget turns a path-style reference token into its owning
// asset. A token starting with "/" is project-rooted (resolved against
// rootPath); otherwise it is resolved relative to the referencing asset's
// own directory, per spec semantics.
func resolvePathTarget(rootPath string, source model.Asset, targetPath string, byAbsolutePath map[string]*model.Asset) *model.Asset {
	var candidate string
	if strings.HasPrefix(targetPath, "/") {
		candidate = filepath.Join(rootPath, targetPath)
	} else {
		candidate = filepath.Join(filepath.Dir(source.AbsolutePath), targetPath)
	}
	candidate = filepath.Clean(candidate)

	if a, ok := byAbsolutePath[candidate]; ok {
		return a
	}
	return nil
}
