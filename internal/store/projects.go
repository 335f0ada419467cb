package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	aerrors "github.com/standardbeagle/assetlib/internal/errors"
	"github.com/standardbeagle/assetlib/internal/model"
)

// GetOrCreateProject returns the project rooted at rootPath, creating it
// (with a fresh id and zeroed scan time) if it does not already exist.
func (s *Store) GetOrCreateProject(rootPath, name string) (model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p model.Project
	row := s.db.QueryRow(`SELECT id, root_path, name, last_scan_time, file_count FROM projects WHERE root_path = ?`, rootPath)
	err := row.Scan(&p.ID, &p.RootPath, &p.Name, &p.LastScanTime, &p.FileCount)
	if err == nil {
		return p, nil
	}
	if err != sql.ErrNoRows {
		return model.Project{}, wrapStoreErr("get_project", err)
	}

	p = model.Project{
		ID:       uuid.NewString(),
		RootPath: rootPath,
		Name:     name,
	}
	_, err = s.db.Exec(`INSERT INTO projects (id, root_path, name, last_scan_time, file_count) VALUES (?, ?, ?, 0, 0)`,
		p.ID, p.RootPath, p.Name)
	if err != nil {
		return model.Project{}, wrapStoreErr("create_project", err)
	}
	return p, nil
}

// GetProjectByPath returns the project at rootPath, or nil if none exists.
func (s *Store) GetProjectByPath(rootPath string) (*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p model.Project
	row := s.db.QueryRow(`SELECT id, root_path, name, last_scan_time, file_count FROM projects WHERE root_path = ?`, rootPath)
	err := row.Scan(&p.ID, &p.RootPath, &p.Name, &p.LastScanTime, &p.FileCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreErr("get_project", err)
	}
	return &p, nil
}

// UpdateProjectScanTime records the completion of a scan: the wall-clock time
// and the total file count observed.
func (s *Store) UpdateProjectScanTime(projectID string, fileCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE projects SET last_scan_time = ?, file_count = ? WHERE id = ?`,
		time.Now().Unix(), fileCount, projectID)
	if err != nil {
		return wrapStoreErr("update_scan_time", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return aerrors.NewStoreError("update_scan_time", sql.ErrNoRows)
	}
	return nil
}
