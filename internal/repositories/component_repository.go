// Package repositories persists component descriptors.
package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/component"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/httpkit"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/errors"
)

// ComponentRepository stores descriptors in Postgres. The full descriptor
// lives in a JSONB column; name and description are extracted for listing
// without decoding every definition.
type ComponentRepository struct {
	db *pgxpool.Pool
}

func NewComponentRepository(db *pgxpool.Pool) *ComponentRepository {
	return &ComponentRepository{db: db}
}

// ComponentSummary is one row of a component listing.
type ComponentSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Create inserts a descriptor. Fails with a validation error when the id
// is already taken.
func (r *ComponentRepository) Create(ctx context.Context, d *component.Descriptor) error {
	definition, err := json.Marshal(d)
	if err != nil {
		return errors.Wrap(err, "repositories.component.create", "failed to encode descriptor")
	}

	err = r.db.QueryRow(ctx, `
		INSERT INTO components (id, name, description, definition_json)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`, d.ID, d.Name, d.Description, definition).Scan(&d.CreatedAt)

	if err != nil {
		if httpkit.IsUniqueViolation(err) {
			return errors.Validation("component id already exists").WithField("component_id", d.ID)
		}
		return errors.Wrap(err, "repositories.component.create", "insert failed")
	}
	return nil
}

// List returns summaries of all live components, newest first.
func (r *ComponentRepository) List(ctx context.Context) ([]ComponentSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, description, created_at
		FROM components
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "repositories.component.list", "query failed")
	}
	defer rows.Close()

	var out []ComponentSummary
	for rows.Next() {
		var s ComponentSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "repositories.component.list", "scan failed")
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Get returns a live descriptor by id.
func (r *ComponentRepository) Get(ctx context.Context, id string) (*component.Descriptor, error) {
	var definition []byte
	var createdAt time.Time

	err := r.db.QueryRow(ctx, `
		SELECT definition_json, created_at
		FROM components
		WHERE id=$1 AND deleted_at IS NULL
	`, id).Scan(&definition, &createdAt)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.NotFound("component", id)
		}
		return nil, errors.Wrap(err, "repositories.component.get", "query failed")
	}

	var d component.Descriptor
	if err := json.Unmarshal(definition, &d); err != nil {
		return nil, errors.Wrap(err, "repositories.component.get", "corrupt descriptor")
	}
	d.CreatedAt = createdAt
	return &d, nil
}

// Delete soft-deletes a component; its cached artifacts are purged
// separately.
func (r *ComponentRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE components
		SET deleted_at=now()
		WHERE id=$1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return errors.Wrap(err, "repositories.component.delete", "update failed")
	}
	if cmd.RowsAffected() == 0 {
		return errors.NotFound("component", id)
	}
	return nil
}
