package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/flowbit/support-platform/internal/core/domain"
	"github.com/flowbit/support-platform/internal/core/ports"
)

// AuditService appends audit entries as a best-effort durable side channel.
// A failed append is logged server-side and swallowed: audit logging must not
// be able to fail a user-facing operation.
type AuditService struct {
	repo   ports.AuditLogRepository
	logger *slog.Logger
}

var _ ports.AuditRecorder = (*AuditService)(nil)

// NewAuditService creates a new audit recorder.
func NewAuditService(repo ports.AuditLogRepository, logger *slog.Logger) ports.AuditRecorder {
	return &AuditService{
		repo:   repo,
		logger: logger.With("component", "audit_recorder"),
	}
}

// Record appends the entry. The write survives caller cancellation so an
// aborted request cannot drop the trail for a mutation that already landed.
func (s *AuditService) Record(ctx context.Context, entry domain.AuditEntry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if err := s.repo.Insert(context.WithoutCancel(ctx), &entry); err != nil {
		s.logger.Error("audit log write failed",
			"action", entry.Action,
			"tenant_id", entry.TenantID,
			"resource_type", entry.ResourceType,
			"resource_id", entry.ResourceID,
			"error", err,
		)
	}
}
