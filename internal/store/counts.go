package store

import "github.com/standardbeagle/assetlib/internal/model"

// GetTypeCounts returns the number of live assets per asset_type in a
// project, for the type-count summary query.
func (s *Store) GetTypeCounts(projectID string) ([]model.TypeCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT asset_type, COUNT(*) FROM assets WHERE project_id = ? AND deleted_at = 0 GROUP BY asset_type ORDER BY asset_type`, projectID)
	if err != nil {
		return nil, wrapStoreErr("get_type_counts", err)
	}
	defer rows.Close()

	var out []model.TypeCount
	for rows.Next() {
		var tc model.TypeCount
		if err := rows.Scan(&tc.AssetType, &tc.Count); err != nil {
			return nil, wrapStoreErr("get_type_counts", err)
		}
		out = append(out, tc)
	}
	return out, wrapStoreErr("get_type_counts", rows.Err())
}
