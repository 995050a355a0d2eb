package audit

import (
	"context"
	"database/sql"
)

// Repository persists audit entries in Postgres. It is used by the worker
// draining the queue and by the admin listing endpoint.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert appends one entry.
func (r *Repository) Insert(ctx context.Context, e Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, at, user_id, action, entity_type, entity_id, details, ip_address)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, e.ID, e.At, e.UserID, e.Action, e.EntityType, nullable(e.EntityID), nullable(e.Details), nullable(e.IPAddress))
	return err
}

// List returns entries newest-first with paging.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, at, user_id, action, entity_type,
		       COALESCE(entity_id, ''), COALESCE(details, ''), COALESCE(ip_address, '')
		FROM audit_log
		ORDER BY at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.At, &e.UserID, &e.Action, &e.EntityType, &e.EntityID, &e.Details, &e.IPAddress); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
