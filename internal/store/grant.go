package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"quillpress/internal/models"
)

// GrantStore manages per-object capability grants.
type GrantStore struct {
	db *sql.DB
}

// NewGrantStore returns a new GrantStore.
func NewGrantStore(db *sql.DB) *GrantStore {
	return &GrantStore{db: db}
}

// Has reports whether the user holds capability on the object.
func (s *GrantStore) Has(ctx context.Context, userID uuid.UUID, capability models.Capability, objectID uuid.UUID) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM object_grants WHERE user_id = $1 AND capability = $2 AND object_id = $3
		)
	`, userID, string(capability), objectID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check grant: %w", err)
	}
	return ok, nil
}

// Grant gives the user capability on the object. Granting twice is a no-op.
func (s *GrantStore) Grant(ctx context.Context, userID uuid.UUID, capability models.Capability, objectID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO object_grants (user_id, capability, object_id) VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, userID, string(capability), objectID)
	if err != nil {
		return fmt.Errorf("grant: %w", err)
	}
	return nil
}

// Revoke removes a grant. Revoking a missing grant is a no-op.
func (s *GrantStore) Revoke(ctx context.Context, userID uuid.UUID, capability models.Capability, objectID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM object_grants WHERE user_id = $1 AND capability = $2 AND object_id = $3
	`, userID, string(capability), objectID)
	if err != nil {
		return fmt.Errorf("revoke: %w", err)
	}
	return nil
}

// ListForObject returns every grant of capability on the object.
func (s *GrantStore) ListForObject(ctx context.Context, capability models.Capability, objectID uuid.UUID) ([]models.Grant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, capability, object_id, created_at
		FROM object_grants WHERE capability = $1 AND object_id = $2
		ORDER BY created_at
	`, string(capability), objectID)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	grants := []models.Grant{}
	for rows.Next() {
		var g models.Grant
		if err := rows.Scan(&g.UserID, &g.Capability, &g.ObjectID, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}
