// Package resolver turns an asset's outbound reference tokens into
// Dependency edges against other assets in the same project, and answers
// bounded-depth transitive "what does this bundle pull in" queries over the
// resolved graph.
//
// Resolution is idempotent: running it twice against an unchanged token set
// produces the same edge set, since ReplaceDependencies always starts from a
// clean slate for the asset being resolved.
package resolver

import (
	"github.com/standardbeagle/assetlib/internal/errors"
	"github.com/standardbeagle/assetlib/internal/logging"
	"github.com/standardbeagle/assetlib/internal/model"
)

var log = logging.New("resolver")

// Store is the subset of internal/store.Store the resolver depends on.
// Declaring it here (rather than importing store's concrete type) keeps
// the resolver testable against a fake without a real SQLite file.
type Store interface {
	GetAllAssets(projectID string) ([]model.Asset, error)
	GetAssetByGUID(projectID, guid string) (*model.Asset, error)
	GetDependencies(assetID string) ([]model.Dependency, error)
	ReplaceDependencies(sourceAssetID string, edges []model.Dependency) error
}

// CancelFunc reports whether the caller requested cancellation; polled
// between assets.
type CancelFunc func() bool

// ProgressFunc is invoked once per asset processed, after its dependencies
// have been replaced.
type ProgressFunc func(processed, total int)

// Resolver resolves reference tokens against a project's asset index.
type Resolver struct {
	store Store
}

// New builds a Resolver over the given store.
func New(store Store) *Resolver {
	return &Resolver{store: store}
}

// ResolveAllForProject enumerates every asset in the project and, for each,
// turns its persisted outbound tokens into Dependency edges: guid tokens
// resolve via GetAssetByGUID, path tokens resolve by joining the source
// asset's directory (falling back to the project root for a leading-slash
// path) against the target and matching on absolute path. Unresolved
// tokens are dropped silently — an unresolved reference is not an error.
func (r *Resolver) ResolveAllForProject(projectID string, rootPath string, cancel CancelFunc, report ProgressFunc) error {
	assets, err := r.store.GetAllAssets(projectID)
	if err != nil {
		return err
	}

	byAbsolutePath := make(map[string]*model.Asset, len(assets))
	for i := range assets {
		byAbsolutePath[assets[i].AbsolutePath] = &assets[i]
	}

	total := len(assets)
	for i, asset := range assets {
		if cancel != nil && cancel() {
			return errors.NewCancelledError("resolve_all_for_project")
		}

		edges := resolveAsset(r.store, projectID, rootPath, asset, byAbsolutePath)
		if err := r.store.ReplaceDependencies(asset.ID, edges); err != nil {
			return err
		}

		if report != nil {
			report(i+1, total)
		}
	}
	return nil
}

func resolveAsset(store Store, projectID, rootPath string, asset model.Asset, byAbsolutePath map[string]*model.Asset) []model.Dependency {
	seen := make(map[string]bool)
	var edges []model.Dependency

	for _, token := range asset.References {
		var target *model.Asset

		switch token.Kind {
		case model.ReferenceKindGUID:
			t, err := store.GetAssetByGUID(projectID, token.TargetGUID)
			if err != nil {
				log.Warnf("resolve guid %s for %s: %v", token.TargetGUID, asset.AbsolutePath, err)
				continue
			}
			target = t
		case model.ReferenceKindPath:
			target = resolvePathTarget(rootPath, asset, token.TargetPath, byAbsolutePath)
		}

		if target == nil {
			continue
		}

		key := target.ID + "|" + string(token.Kind) + "|" + token.SlotName
		if seen[key] {
			continue
		}
		seen[key] = true

		edges = append(edges, model.Dependency{
			SourceAssetID: asset.ID,
			TargetAssetID: target.ID,
			Kind:          token.Kind,
			SlotName:      token.SlotName,
		})
	}

	return edges
}

// GetDependencyTree performs a breadth-first expansion from rootAssetID,
// following outgoing edges up to maxDepth levels, de-duplicating visited
// assets and breaking cycles via the visited set. The root itself is never
// included in the result.
func (r *Resolver) GetDependencyTree(rootAssetID string, maxDepth int) ([]string, error) {
	if maxDepth <= 0 {
		maxDepth = 5
	}

	visited := map[string]bool{rootAssetID: true}
	var result []string

	frontier := []string{rootAssetID}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			deps, err := r.store.GetDependencies(id)
			if err != nil {
				return nil, err
			}
			for _, d := range deps {
				if visited[d.TargetAssetID] {
					continue
				}
				visited[d.TargetAssetID] = true
				result = append(result, d.TargetAssetID)
				next = append(next, d.TargetAssetID)
			}
		}
		frontier = next
	}

	return result, nil
}
