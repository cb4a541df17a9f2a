package repositories

import (
	"database/sql"
	"fmt"

	"github.com/mixtape-labs/mixtape/internal/models"
)

// CredentialRepository persists the signed-in user's OAuth credential.
//
// The table holds at most one row; a new sign-in replaces the previous
// credential. Save doubles as the session layer's persist callback so
// refreshed tokens survive process restarts.
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a new CredentialRepository with the given database connection.
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Load returns the stored credential, or nil when no one has signed in yet.
func (r *CredentialRepository) Load() (*models.Credential, error) {
	query := `SELECT access_token, refresh_token, expires_at, refresh_error FROM credentials WHERE id = 1`

	var cred models.Credential
	err := r.db.QueryRow(query).Scan(&cred.AccessToken, &cred.RefreshToken, &cred.ExpiresAt, &cred.RefreshError)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}

	return &cred, nil
}

// Save upserts the credential row.
func (r *CredentialRepository) Save(cred *models.Credential) error {
	if cred == nil {
		return fmt.Errorf("cannot save nil credential")
	}

	query := `
		INSERT INTO credentials (id, access_token, refresh_token, expires_at, refresh_error, updated_at)
		VALUES (1, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			refresh_error = excluded.refresh_error,
			updated_at = excluded.updated_at
	`

	if _, err := r.db.Exec(query, cred.AccessToken, cred.RefreshToken, cred.ExpiresAt, cred.RefreshError); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// Delete removes the stored credential (sign out).
func (r *CredentialRepository) Delete() error {
	if _, err := r.db.Exec(`DELETE FROM credentials`); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}
