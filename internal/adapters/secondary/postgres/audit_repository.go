package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowbit/support-platform/internal/core/domain"
	"github.com/flowbit/support-platform/internal/core/ports"
)

// AuditLogRepository is the append-only secondary adapter for audit entries.
type AuditLogRepository struct {
	pool *pgxpool.Pool
}

var _ ports.AuditLogRepository = (*AuditLogRepository)(nil)

// NewAuditLogRepository creates a new audit log repository.
func NewAuditLogRepository(pool *pgxpool.Pool) *AuditLogRepository {
	return &AuditLogRepository{pool: pool}
}

// Insert appends one audit entry. Entries are never updated or deleted.
func (r *AuditLogRepository) Insert(ctx context.Context, entry *domain.AuditEntry) error {
	q := GetDBTX(ctx, r.pool)

	details, err := json.Marshal(entry.Details)
	if err != nil {
		return err
	}

	var actorID pgtype.UUID
	if entry.ActorUserID != nil {
		actorID = pgtype.UUID{Bytes: *entry.ActorUserID, Valid: true}
	}

	return q.QueryRow(ctx, `
		INSERT INTO audit_logs (action, actor_user_id, tenant_id, resource_type, resource_id,
			details, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		entry.Action,
		actorID,
		entry.TenantID,
		entry.ResourceType,
		entry.ResourceID,
		details,
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt,
	).Scan(&entry.ID)
}

// ListByTenant returns the newest entries for one tenant.
func (r *AuditLogRepository) ListByTenant(ctx context.Context, tenantID string, limit int) ([]*domain.AuditEntry, error) {
	q := GetDBTX(ctx, r.pool)

	rows, err := q.Query(ctx, `
		SELECT id, action, actor_user_id, tenant_id, resource_type, resource_id,
			details, ip_address, user_agent, created_at
		FROM audit_logs
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		tenantID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*domain.AuditEntry, 0)
	for rows.Next() {
		var (
			entry   domain.AuditEntry
			actorID pgtype.UUID
			details []byte
		)
		err := rows.Scan(
			&entry.ID,
			&entry.Action,
			&actorID,
			&entry.TenantID,
			&entry.ResourceType,
			&entry.ResourceID,
			&details,
			&entry.IPAddress,
			&entry.UserAgent,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if actorID.Valid {
			actor := uuid.UUID(actorID.Bytes)
			entry.ActorUserID = &actor
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, err
			}
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
