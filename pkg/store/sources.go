package store

import (
	"fmt"
	"time"
)

// SourceInfo describes an import source to seed. Importer adapters satisfy it.
type SourceInfo interface {
	ID() string
	GazetteerID() string
	Description() string
	DefaultURL() string
	License() string
}

// Source is a row of import_sources.
type Source struct {
	AdapterID   string  `json:"adapter_id"`
	GazetteerID string  `json:"gazetteer_id"`
	Description string  `json:"description"`
	SourceURL   string  `json:"source_url"`
	License     string  `json:"license"`
	LastCheck   *int64  `json:"last_check,omitempty"`
	LastStatus  *int    `json:"last_status,omitempty"`
	LastError   *string `json:"last_error,omitempty"`
	UpdatedAt   int64   `json:"updated_at"`
}

// Seed inserts one row per source. Existing rows are left untouched so that
// manual URL overrides survive restarts.
func (s *Store) Seed(sources []SourceInfo) error {
	const q = `INSERT OR IGNORE INTO import_sources
		(adapter_id, gazetteer_id, description, source_url, license, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	now := time.Now().Unix()
	for _, src := range sources {
		if _, err := s.db.Exec(q, src.ID(), src.GazetteerID(), src.Description(), src.DefaultURL(), src.License(), now); err != nil {
			return fmt.Errorf("seed %s: %w", src.ID(), err)
		}
	}
	return nil
}

// GetURL returns the current source URL of an adapter.
func (s *Store) GetURL(adapterID string) (string, error) {
	var url string
	err := s.db.QueryRow(`SELECT source_url FROM import_sources WHERE adapter_id = ?`, adapterID).Scan(&url)
	if err != nil {
		return "", fmt.Errorf("get url for %s: %w", adapterID, err)
	}
	return url, nil
}

// SetURL overrides the source URL of an adapter.
func (s *Store) SetURL(adapterID, url string) error {
	res, err := s.db.Exec(
		`UPDATE import_sources SET source_url = ?, updated_at = ? WHERE adapter_id = ?`,
		url, time.Now().Unix(), adapterID,
	)
	if err != nil {
		return fmt.Errorf("set url for %s: %w", adapterID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("adapter %s not found in import_sources", adapterID)
	}
	return nil
}

// UpdateCheck persists the result of an availability check.
func (s *Store) UpdateCheck(adapterID string, status int, checkErr string) error {
	var errPtr *string
	if checkErr != "" {
		errPtr = &checkErr
	}
	_, err := s.db.Exec(
		`UPDATE import_sources SET last_check = ?, last_status = ?, last_error = ? WHERE adapter_id = ?`,
		time.Now().Unix(), status, errPtr, adapterID,
	)
	if err != nil {
		return fmt.Errorf("update check for %s: %w", adapterID, err)
	}
	return nil
}

// ListSources returns every source ordered by adapter ID.
func (s *Store) ListSources() ([]Source, error) {
	rows, err := s.db.Query(`SELECT adapter_id, gazetteer_id, description, source_url, license,
		last_check, last_status, last_error, updated_at
		FROM import_sources ORDER BY adapter_id`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var src Source
		if err := rows.Scan(&src.AdapterID, &src.GazetteerID, &src.Description, &src.SourceURL,
			&src.License, &src.LastCheck, &src.LastStatus, &src.LastError, &src.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}
