package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/election-service/internal/domain"
	"github.com/spec-kit/election-service/internal/repository"
)

// AuditService appends fact records best-effort. A failed audit write
// is logged and dropped; it never propagates to the operation it
// describes.
type AuditService struct {
	entries repository.AuditRepository
	logger  *zap.Logger
}

// NewAuditService builds the service.
func NewAuditService(entries repository.AuditRepository, logger *zap.Logger) *AuditService {
	return &AuditService{entries: entries, logger: logger}
}

// Record appends an audit entry, swallowing failures.
func (a *AuditService) Record(ctx context.Context, actor string, electionID *string, action domain.AuditAction, metadata map[string]any) {
	if a == nil || a.entries == nil {
		return
	}
	entry := &domain.AuditEntry{
		Actor:      actor,
		ElectionID: electionID,
		Action:     action,
		Metadata:   metadata,
	}
	if err := a.entries.Append(ctx, entry); err != nil {
		a.logger.Warn("audit write failed",
			zap.String("action", string(action)),
			zap.Error(err))
	}
}
