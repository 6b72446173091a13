package store

import (
	"io/fs"
	"path/filepath"
)

// DBMetrics is a compact view of store health for the ops endpoints.
type DBMetrics struct {
	DiskBytes uint64 `json:"disk_bytes"`
	WALBytes  uint64 `json:"wal_bytes"`
}

// GetDBMetrics returns best-effort metrics about the pebble DB: on-disk
// size computed by walking the DB directory, plus WAL size from pebble's
// own metrics when available.
func (s *Store) GetDBMetrics() DBMetrics {
	var m DBMetrics
	if s.db == nil || s.path == "" {
		return m
	}
	var total uint64
	_ = filepath.WalkDir(s.path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			total += uint64(fi.Size())
		}
		return nil
	})
	m.DiskBytes = total
	if pm := s.db.Metrics(); pm != nil {
		m.WALBytes = pm.WAL.Size
	}
	return m
}
