package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-attendance-portal/internal/backend"
	"github.com/noah-isme/sma-attendance-portal/internal/models"
)

const profileColumns = "id, role, name, roll_no, class, contact"

// ProfileRepository reads and creates profiles directly in Postgres.
type ProfileRepository struct {
	db *sqlx.DB
}

var _ backend.ProfileStore = (*ProfileRepository)(nil)

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// ListByRole returns every profile with the given role.
func (r *ProfileRepository) ListByRole(ctx context.Context, role models.Role) ([]models.Profile, error) {
	query := fmt.Sprintf("SELECT %s FROM profiles WHERE role = $1", profileColumns)
	var rows []models.Profile
	if err := r.db.SelectContext(ctx, &rows, query, role); err != nil {
		return nil, fmt.Errorf("list profiles by role: %w", err)
	}
	return rows, nil
}

// FindByID returns a profile or backend.ErrNotFound.
func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	query := fmt.Sprintf("SELECT %s FROM profiles WHERE id = $1", profileColumns)
	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, backend.ErrNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &profile, nil
}

// Insert creates a profile row.
func (r *ProfileRepository) Insert(ctx context.Context, profile *models.Profile) error {
	query := `INSERT INTO profiles (id, role, name, roll_no, class, contact)
VALUES (:id, :role, :name, :roll_no, :class, :contact)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}
