// Package workspace persists what the editor remembers between runs: the
// default library, recently used libraries and maps, the last map path, and
// a history of save and load outcomes.
package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hazyhaar/cartograph/dbopen"
	"github.com/hazyhaar/cartograph/idgen"
)

// MaxRecentLibraries caps the recent libraries list.
const MaxRecentLibraries = 5

const (
	keyDefaultLibrary = "default_library_path"
	keyLastMap        = "last_map_path"
)

// Store is the workspace database handle.
type Store struct {
	DB  *sql.DB
	IDs idgen.Generator
	now func() time.Time
}

// Open opens (or creates) the workspace database at path.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	all := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithMigrations(migrations...),
	}, opts...)
	db, err := dbopen.Open(path, all...)
	if err != nil {
		return nil, err
	}
	return New(db), nil
}

// New wraps an already migrated database.
func New(db *sql.DB) *Store {
	return &Store{DB: db, IDs: idgen.Prefixed("evt_", idgen.Default), now: time.Now}
}

// Migrations returns the schema steps, for callers opening the database
// themselves (tests use dbopen.OpenMemory).
func Migrations() []string { return migrations }

// Close closes the database.
func (s *Store) Close() error { return s.DB.Close() }

func (s *Store) setting(ctx context.Context, key string) (string, error) {
	var v string
	err := s.DB.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

func (s *Store) setSetting(ctx context.Context, key, value string) error {
	_, err := dbopen.Exec(ctx, s.DB, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.now().UnixMilli())
	return err
}

// DefaultLibrary returns the library opened at startup, or "".
func (s *Store) DefaultLibrary(ctx context.Context) (string, error) {
	return s.setting(ctx, keyDefaultLibrary)
}

// SetDefaultLibrary records the library opened at startup.
func (s *Store) SetDefaultLibrary(ctx context.Context, path string) error {
	return s.setSetting(ctx, keyDefaultLibrary, path)
}

// LastMapPath returns the last saved or loaded map path, or "".
func (s *Store) LastMapPath(ctx context.Context) (string, error) {
	return s.setting(ctx, keyLastMap)
}

// SetLastMapPath records path as the last map and bumps it in recent maps.
func (s *Store) SetLastMapPath(ctx context.Context, path string) error {
	now := s.now().UnixMilli()
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			keyLastMap, path, now); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO recent_maps (path, name, opened_at) VALUES (?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET name = excluded.name, opened_at = excluded.opened_at`,
			path, name, now)
		return err
	})
}

// RecentMap is one entry of the recent maps list.
type RecentMap struct {
	Path     string `json:"path"`
	Name     string `json:"name"`
	OpenedAt int64  `json:"opened_at"`
}

// RecentMaps returns up to limit maps, most recent first.
func (s *Store) RecentMaps(ctx context.Context, limit int) ([]RecentMap, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT path, name, opened_at FROM recent_maps
		ORDER BY opened_at DESC, path LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RecentMap
	for rows.Next() {
		var m RecentMap
		if err := rows.Scan(&m.Path, &m.Name, &m.OpenedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AddRecentLibrary moves path to the front of the recent libraries and
// trims the list to MaxRecentLibraries.
func (s *Store) AddRecentLibrary(ctx context.Context, path string) error {
	now := s.now().UnixMilli()
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO recent_libraries (path, used_at) VALUES (?, ?)
			ON CONFLICT(path) DO UPDATE SET used_at = excluded.used_at`, path, now); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			DELETE FROM recent_libraries WHERE path NOT IN (
				SELECT path FROM recent_libraries ORDER BY used_at DESC, path LIMIT ?)`,
			MaxRecentLibraries)
		return err
	})
}

// RecentLibraries returns the recent libraries, most recent first.
func (s *Store) RecentLibraries(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT path FROM recent_libraries ORDER BY used_at DESC, path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Recent is what a "recent files" menu shows.
type Recent struct {
	Maps      []RecentMap `json:"maps"`
	Libraries []string    `json:"libraries"`
}

// Recent returns up to limit recent maps and every recent library. Both
// lists are non-nil.
func (s *Store) Recent(ctx context.Context, limit int) (*Recent, error) {
	maps, err := s.RecentMaps(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("workspace: recent maps: %w", err)
	}
	libs, err := s.RecentLibraries(ctx)
	if err != nil {
		return nil, fmt.Errorf("workspace: recent libraries: %w", err)
	}
	r := &Recent{Maps: maps, Libraries: libs}
	if r.Maps == nil {
		r.Maps = []RecentMap{}
	}
	if r.Libraries == nil {
		r.Libraries = []string{}
	}
	return r, nil
}

// Event is one save or load outcome.
type Event struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"` // "save" or "load"
	Path      string `json:"path"`
	OK        bool   `json:"ok"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// RecordEvent inserts e, filling ID and CreatedAt when empty.
func (s *Store) RecordEvent(ctx context.Context, e *Event) error {
	if e.ID == "" {
		e.ID = s.IDs()
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = s.now().UnixMilli()
	}
	_, err := dbopen.Exec(ctx, s.DB, `
		INSERT INTO map_events (id, kind, path, ok, detail, created_at) VALUES (?,?,?,?,?,?)`,
		e.ID, e.Kind, e.Path, e.OK, e.Detail, e.CreatedAt)
	return err
}

// Events returns up to limit events, newest first. A non-empty path filters.
func (s *Store) Events(ctx context.Context, path string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT id, kind, path, ok, detail, created_at FROM map_events`
	args := []any{}
	if path != "" {
		q += ` WHERE path = ?`
		args = append(args, path)
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Kind, &e.Path, &e.OK, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
