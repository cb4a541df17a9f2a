package repositories

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/mixtape-labs/mixtape/internal/shared"
)

// ResolutionRepository persists resolved track URIs keyed by normalized (artist, title).
type ResolutionRepository struct {
	db *sql.DB
}

// NewResolutionRepository creates a new ResolutionRepository with the given database connection.
func NewResolutionRepository(db *sql.DB) *ResolutionRepository {
	return &ResolutionRepository{db: db}
}

// Get returns the cached URI for the pair, or "" on a cache miss.
func (r *ResolutionRepository) Get(artist, title string) (string, error) {
	query := `SELECT uri FROM resolutions WHERE track_key = ?`

	var uri string
	err := r.db.QueryRow(query, shared.NormalizeTrackKey(artist, title)).Scan(&uri)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query resolution: %w", err)
	}

	return uri, nil
}

// Put stores a resolved URI for the pair.
//
// Duplicate keys are silently ignored (UNIQUE constraint) so concurrent
// materializations of the same suggestion never fail.
func (r *ResolutionRepository) Put(artist, title, uri string) error {
	if uri == "" {
		return fmt.Errorf("%w: refusing to cache empty URI", shared.ErrInvalidInput)
	}

	query := `
		INSERT INTO resolutions (id, track_key, artist, title, uri) VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, shared.GenerateID(), shared.NormalizeTrackKey(artist, title), artist, title, uri)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil
		}
		return fmt.Errorf("failed to cache resolution: %w", err)
	}

	return nil
}

// Count returns the number of cached resolutions.
func (r *ResolutionRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM resolutions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count resolutions: %w", err)
	}
	return count, nil
}

// Clear removes all cached resolutions.
func (r *ResolutionRepository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM resolutions`); err != nil {
		return fmt.Errorf("failed to clear resolutions: %w", err)
	}
	return nil
}
