package store

import (
	"github.com/standardbeagle/assetlib/internal/model"
)

// ReplaceDependencies atomically swaps the outbound dependency edges for one
// source asset: all prior edges from sourceAssetID are deleted, then the
// given edges are inserted. Called once per asset during resolution so a
// partial/failed resolve never leaves stale and fresh edges mixed together.
func (s *Store) ReplaceDependencies(sourceAssetID string, edges []model.Dependency) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return wrapStoreErr("replace_dependencies", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM dependencies WHERE source_asset_id = ?`, sourceAssetID); err != nil {
		return wrapStoreErr("replace_dependencies", err)
	}

	if len(edges) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO dependencies (source_asset_id, target_asset_id, kind, slot_name) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return wrapStoreErr("replace_dependencies", err)
		}
		defer stmt.Close()

		for _, e := range edges {
			if _, err := stmt.Exec(sourceAssetID, e.TargetAssetID, string(e.Kind), e.SlotName); err != nil {
				return wrapStoreErr("replace_dependencies", err)
			}
		}
	}

	return wrapStoreErr("replace_dependencies", tx.Commit())
}

// GetDependencies returns the assets that sourceAssetID references.
func (s *Store) GetDependencies(assetID string) ([]model.Dependency, error) {
	return s.queryDependencies(`SELECT source_asset_id, target_asset_id, kind, slot_name FROM dependencies WHERE source_asset_id = ?`, assetID)
}

// GetDependents returns the assets that reference assetID.
func (s *Store) GetDependents(assetID string) ([]model.Dependency, error) {
	return s.queryDependencies(`SELECT source_asset_id, target_asset_id, kind, slot_name FROM dependencies WHERE target_asset_id = ?`, assetID)
}

func (s *Store) queryDependencies(query, assetID string) ([]model.Dependency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(query, assetID)
	if err != nil {
		return nil, wrapStoreErr("query_dependencies", err)
	}
	defer rows.Close()

	var out []model.Dependency
	for rows.Next() {
		var d model.Dependency
		var kind string
		if err := rows.Scan(&d.SourceAssetID, &d.TargetAssetID, &kind, &d.SlotName); err != nil {
			return nil, wrapStoreErr("query_dependencies", err)
		}
		d.Kind = model.ReferenceKind(kind)
		out = append(out, d)
	}
	return out, wrapStoreErr("query_dependencies", rows.Err())
}
