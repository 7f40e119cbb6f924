package pg

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/govpass/govpass/internal/domain/repository"
)

type auditRepo struct {
	pool *pgxpool.Pool
}

func (r *auditRepo) Insert(ctx context.Context, e repository.AuditEvent) error {
	const q = `
		INSERT INTO audit_events (id, client_id, user_id, action, scopes, success, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`

	_, err := r.pool.Exec(ctx, q,
		uuid.NewString(), e.ClientID, e.UserID, e.Action, e.Scopes, e.Success, e.Detail,
	)
	return err
}
