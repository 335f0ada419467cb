package store

import (
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	aerrors "github.com/standardbeagle/assetlib/internal/errors"
	"github.com/standardbeagle/assetlib/internal/model"
	"github.com/standardbeagle/assetlib/internal/scanner"
)

// GetExistingAssetInfo returns the change-detection baseline for a project:
// for every known, non-tombstoned asset, its absolute path mapped to the
// size/mtime/id triple scanner.ScanFilesBatch needs to classify files as
// unchanged.
func (s *Store) GetExistingAssetInfo(projectID string) (map[string]scanner.ExistingInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT absolute_path, size_bytes, modified_time, id FROM assets WHERE project_id = ? AND deleted_at = 0`, projectID)
	if err != nil {
		return nil, wrapStoreErr("get_existing_asset_info", err)
	}
	defer rows.Close()

	out := make(map[string]scanner.ExistingInfo)
	for rows.Next() {
		var path string
		var info scanner.ExistingInfo
		if err := rows.Scan(&path, &info.SizeBytes, &info.ModifiedTime, &info.AssetID); err != nil {
			return nil, wrapStoreErr("get_existing_asset_info", err)
		}
		out[path] = info
	}
	return out, wrapStoreErr("get_existing_asset_info", rows.Err())
}

// UpsertAssets writes a batch of assets in a single transaction. Each asset's
// id is reused as given; when empty, the id of the existing row at the same
// (project_id, absolute_path) is used, or a new one is generated for a new
// asset, so references are always stored under the row's real id. The
// thumbnail_path is preserved across an
// upsert unless modified_time changed from the stored value, in which case
// it is cleared so the preview pipeline regenerates it.
func (s *Store) UpsertAssets(assets []model.Asset) ([]model.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, wrapStoreErr("upsert_assets", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO assets (id, project_id, absolute_path, relative_path, file_name, extension, asset_type,
			size_bytes, modified_time, content_hash, guid, thumbnail_path, material_json, model_json, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '', ?, ?, 0)
		ON CONFLICT(project_id, absolute_path) DO UPDATE SET
			relative_path = excluded.relative_path,
			file_name = excluded.file_name,
			extension = excluded.extension,
			asset_type = excluded.asset_type,
			size_bytes = excluded.size_bytes,
			content_hash = excluded.content_hash,
			guid = excluded.guid,
			material_json = excluded.material_json,
			model_json = excluded.model_json,
			deleted_at = 0,
			thumbnail_path = CASE WHEN assets.modified_time != excluded.modified_time THEN '' ELSE assets.thumbnail_path END,
			modified_time = excluded.modified_time
	`)
	if err != nil {
		return nil, wrapStoreErr("upsert_assets", err)
	}
	defer stmt.Close()

	refDel, err := tx.Prepare(`DELETE FROM asset_references WHERE asset_id = ?`)
	if err != nil {
		return nil, wrapStoreErr("upsert_assets", err)
	}
	defer refDel.Close()

	refIns, err := tx.Prepare(`INSERT INTO asset_references (asset_id, kind, target_guid, target_path, slot_name) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, wrapStoreErr("upsert_assets", err)
	}
	defer refIns.Close()

	out := make([]model.Asset, len(assets))
	for i, a := range assets {
		if a.ID == "" {
			var existingID string
			err := tx.QueryRow(`SELECT id FROM assets WHERE project_id = ? AND absolute_path = ?`, a.ProjectID, a.AbsolutePath).Scan(&existingID)
			switch {
			case err == nil:
				a.ID = existingID
			case err == sql.ErrNoRows:
				a.ID = uuid.NewString()
			default:
				return nil, wrapStoreErr("upsert_assets", err)
			}
		}

		var materialJSON, modelJSON string
		if a.Material != nil {
			b, err := json.Marshal(a.Material)
			if err != nil {
				return nil, aerrors.NewParseError(a.AbsolutePath, err)
			}
			materialJSON = string(b)
		}
		if a.Model != nil {
			b, err := json.Marshal(a.Model)
			if err != nil {
				return nil, aerrors.NewParseError(a.AbsolutePath, err)
			}
			modelJSON = string(b)
		}

		if _, err := stmt.Exec(a.ID, a.ProjectID, a.AbsolutePath, a.RelativePath, a.FileName, a.Extension, string(a.AssetType),
			a.SizeBytes, a.ModifiedTime, int64(a.ContentHash), a.GUID, materialJSON, modelJSON); err != nil {
			return nil, wrapStoreErr("upsert_assets", err)
		}

		if _, err := refDel.Exec(a.ID); err != nil {
			return nil, wrapStoreErr("upsert_assets", err)
		}
		for _, ref := range a.References {
			if _, err := refIns.Exec(a.ID, string(ref.Kind), ref.TargetGUID, ref.TargetPath, ref.SlotName); err != nil {
				return nil, wrapStoreErr("upsert_assets", err)
			}
		}

		out[i] = a
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapStoreErr("upsert_assets", err)
	}
	return out, nil
}

// TombstoneMissing marks assets belonging to projectID as deleted when their
// absolute path is not present in keepPaths. Assets are never hard-deleted
// so dependency edges referencing them remain resolvable for inspection.
func (s *Store) TombstoneMissing(projectID string, keepPaths map[string]bool, now int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT id, absolute_path FROM assets WHERE project_id = ? AND deleted_at = 0`, projectID)
	if err != nil {
		return wrapStoreErr("tombstone_missing", err)
	}
	type idPath struct{ id, path string }
	var toDelete []idPath
	for rows.Next() {
		var ip idPath
		if err := rows.Scan(&ip.id, &ip.path); err != nil {
			rows.Close()
			return wrapStoreErr("tombstone_missing", err)
		}
		if !keepPaths[ip.path] {
			toDelete = append(toDelete, ip)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return wrapStoreErr("tombstone_missing", err)
	}

	if len(toDelete) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return wrapStoreErr("tombstone_missing", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`UPDATE assets SET deleted_at = ? WHERE id = ?`)
	if err != nil {
		return wrapStoreErr("tombstone_missing", err)
	}
	defer stmt.Close()

	for _, ip := range toDelete {
		if _, err := stmt.Exec(now, ip.id); err != nil {
			return wrapStoreErr("tombstone_missing", err)
		}
	}
	return wrapStoreErr("tombstone_missing", tx.Commit())
}

// GetAssets returns a page of non-tombstoned assets for a project, optionally
// filtered by a case-insensitive substring match on relative path/file name
// and/or a set of asset types (OR'd together via an IN clause). An empty
// typeFilters matches every type. Results are ordered by relative path for
// stable pagination.
func (s *Store) GetAssets(projectID, searchQuery string, typeFilters []model.AssetType, page, pageSize int) ([]model.Asset, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	where := `project_id = ? AND deleted_at = 0`
	args := []any{projectID}
	if searchQuery != "" {
		where += ` AND (relative_path LIKE ? ESCAPE '\' OR file_name LIKE ? ESCAPE '\')`
		like := "%" + escapeLike(searchQuery) + "%"
		args = append(args, like, like)
	}
	if len(typeFilters) > 0 {
		placeholders := make([]string, len(typeFilters))
		for i, t := range typeFilters {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		where += ` AND asset_type IN (` + strings.Join(placeholders, ", ") + `)`
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM assets WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, wrapStoreErr("get_assets_count", err)
	}

	if pageSize <= 0 {
		pageSize = 50
	}
	offset := page * pageSize

	query := `SELECT id, project_id, absolute_path, relative_path, file_name, extension, asset_type,
		size_bytes, modified_time, content_hash, guid, thumbnail_path, material_json, model_json, deleted_at
		FROM assets WHERE ` + where + ` ORDER BY relative_path LIMIT ? OFFSET ?`
	args = append(args, pageSize, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, 0, wrapStoreErr("get_assets", err)
	}
	defer rows.Close()

	assets, err := scanAssets(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := s.attachReferences(assets); err != nil {
		return nil, 0, err
	}
	return assets, total, nil
}

// GetAsset fetches a single asset by id.
func (s *Store) GetAsset(assetID string) (*model.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`SELECT id, project_id, absolute_path, relative_path, file_name, extension, asset_type,
		size_bytes, modified_time, content_hash, guid, thumbnail_path, material_json, model_json, deleted_at
		FROM assets WHERE id = ?`, assetID)

	a, err := scanAssetRow(row)
	if err == sql.ErrNoRows {
		return nil, aerrors.NewAssetNotFoundError(assetID)
	}
	if err != nil {
		return nil, wrapStoreErr("get_asset", err)
	}
	if err := s.attachReferences([]model.Asset{*a}); err != nil {
		return nil, err
	}
	return a, nil
}

// GetAssetByGUID resolves a project-scoped GUID to its owning asset.
func (s *Store) GetAssetByGUID(projectID, guid string) (*model.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`SELECT id, project_id, absolute_path, relative_path, file_name, extension, asset_type,
		size_bytes, modified_time, content_hash, guid, thumbnail_path, material_json, model_json, deleted_at
		FROM assets WHERE project_id = ? AND guid = ? AND deleted_at = 0`, projectID, guid)

	a, err := scanAssetRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreErr("get_asset_by_guid", err)
	}
	return a, nil
}

// GetAllAssets returns every non-tombstoned asset in a project, with
// references attached. Used by the resolver to build the full token index.
func (s *Store) GetAllAssets(projectID string) ([]model.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT id, project_id, absolute_path, relative_path, file_name, extension, asset_type,
		size_bytes, modified_time, content_hash, guid, thumbnail_path, material_json, model_json, deleted_at
		FROM assets WHERE project_id = ? AND deleted_at = 0`, projectID)
	if err != nil {
		return nil, wrapStoreErr("get_all_assets", err)
	}
	defer rows.Close()

	assets, err := scanAssets(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachReferences(assets); err != nil {
		return nil, err
	}
	return assets, nil
}

// GetAssetsNeedingThumbnails returns up to limit assets whose thumbnail_path
// is empty: texture/material assets eligible for preview generation that
// have not yet produced one (or whose previous attempt was never recorded).
func (s *Store) GetAssetsNeedingThumbnails(projectID string, limit int) ([]model.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT id, project_id, absolute_path, relative_path, file_name, extension, asset_type,
		size_bytes, modified_time, content_hash, guid, thumbnail_path, material_json, model_json, deleted_at
		FROM assets
		WHERE project_id = ? AND deleted_at = 0 AND thumbnail_path = ''
		AND asset_type IN (?, ?)
		LIMIT ?`, projectID, string(model.AssetTypeTexture), string(model.AssetTypeMaterial), limit)
	if err != nil {
		return nil, wrapStoreErr("get_assets_needing_thumbnails", err)
	}
	defer rows.Close()
	return scanAssets(rows)
}

// CountThumbnailAssets counts texture/material assets still missing a
// thumbnail, for progress reporting during the preview phase.
func (s *Store) CountThumbnailAssets(projectID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM assets
		WHERE project_id = ? AND deleted_at = 0 AND thumbnail_path = ''
		AND asset_type IN (?, ?)`, projectID, string(model.AssetTypeTexture), string(model.AssetTypeMaterial)).Scan(&count)
	return count, wrapStoreErr("count_thumbnail_assets", err)
}

// ClearThumbnailPaths wipes every thumbnail_path in a project, forcing full
// regeneration on the next preview pass.
func (s *Store) ClearThumbnailPaths(projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE assets SET thumbnail_path = '' WHERE project_id = ?`, projectID)
	return wrapStoreErr("clear_thumbnail_paths", err)
}

// UpdateAssetThumbnail records the outcome of one preview attempt: either an
// on-disk PNG path, or one of the sentinel outcome strings, which block
// further automatic retry until the caller explicitly regenerates.
func (s *Store) UpdateAssetThumbnail(assetID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE assets SET thumbnail_path = ? WHERE id = ?`, value, assetID)
	if err != nil {
		return wrapStoreErr("update_asset_thumbnail", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return aerrors.NewAssetNotFoundError(assetID)
	}
	return nil
}

func (s *Store) attachReferences(assets []model.Asset) error {
	if len(assets) == 0 {
		return nil
	}
	stmt, err := s.db.Prepare(`SELECT kind, target_guid, target_path, slot_name FROM asset_references WHERE asset_id = ?`)
	if err != nil {
		return wrapStoreErr("attach_references", err)
	}
	defer stmt.Close()

	for i := range assets {
		rows, err := stmt.Query(assets[i].ID)
		if err != nil {
			return wrapStoreErr("attach_references", err)
		}
		var refs []model.ReferenceToken
		for rows.Next() {
			var kind string
			var ref model.ReferenceToken
			if err := rows.Scan(&kind, &ref.TargetGUID, &ref.TargetPath, &ref.SlotName); err != nil {
				rows.Close()
				return wrapStoreErr("attach_references", err)
			}
			ref.Kind = model.ReferenceKind(kind)
			refs = append(refs, ref)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return wrapStoreErr("attach_references", err)
		}
		assets[i].References = refs
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssetRow(row rowScanner) (*model.Asset, error) {
	var a model.Asset
	var materialJSON, modelJSON string
	var contentHash int64
	err := row.Scan(&a.ID, &a.ProjectID, &a.AbsolutePath, &a.RelativePath, &a.FileName, &a.Extension, &a.AssetType,
		&a.SizeBytes, &a.ModifiedTime, &contentHash, &a.GUID, &a.ThumbnailPath, &materialJSON, &modelJSON, &a.DeletedAt)
	if err != nil {
		return nil, err
	}
	a.ContentHash = uint64(contentHash)
	if materialJSON != "" {
		var m model.MaterialInfo
		if err := json.Unmarshal([]byte(materialJSON), &m); err == nil {
			a.Material = &m
		}
	}
	if modelJSON != "" {
		var m model.ModelInfo
		if err := json.Unmarshal([]byte(modelJSON), &m); err == nil {
			a.Model = &m
		}
	}
	return &a, nil
}

func scanAssets(rows *sql.Rows) ([]model.Asset, error) {
	var out []model.Asset
	for rows.Next() {
		a, err := scanAssetRow(rows)
		if err != nil {
			return nil, wrapStoreErr("scan_asset", err)
		}
		out = append(out, *a)
	}
	return out, wrapStoreErr("scan_asset", rows.Err())
}

func escapeLike(s string) string {
	r := []rune(s)
	out := make([]rune, 0, len(r))
	for _, c := range r {
		if c == '%' || c == '_' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(out)
}
