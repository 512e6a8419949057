package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/crucial707/userdir/internal/models"
)

// AuditRepo persists audit log entries.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo returns a new AuditRepo.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Log records an audit entry. actor is a username or models.ActorAnonymous;
// action is create|update|delete|login.
func (r *AuditRepo) Log(ctx context.Context, actor, action string, targetID int, targetName, details string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (actor, action, target_id, target_name, details) VALUES ($1, $2, $3, $4, $5)`,
		actor, action, targetID, targetName, details,
	)
	return err
}

// List returns recent audit entries, newest first.
func (r *AuditRepo) List(ctx context.Context, limit, offset int) ([]models.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, actor, action, target_id, target_name, COALESCE(details,''), created_at FROM audit_log ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.TargetID, &e.TargetName, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteOlderThan removes entries created before cutoff and reports how
// many rows went away. The retention sweep calls this on a schedule.
func (r *AuditRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM audit_log WHERE created_at < $1`, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
