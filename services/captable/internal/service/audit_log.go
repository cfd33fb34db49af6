package service

import (
	"context"
	"fmt"

	"github.com/AfshinJalili/captable/services/captable/internal/access"
	"github.com/AfshinJalili/captable/services/captable/internal/storage"
	"github.com/AfshinJalili/captable/services/captable/internal/validation"
)

type AuditStore interface {
	ListAudit(ctx context.Context, limit int) ([]storage.AuditEvent, error)
}

type AuditService struct {
	store AuditStore
}

func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{store: store}
}

// ListAudit returns the most recent events, newest first.
func (s *AuditService) ListAudit(ctx context.Context, caller access.Principal, limit int) ([]storage.AuditEvent, error) {
	if err := access.RequireAdmin(caller); err != nil {
		return nil, err
	}
	if limit < 1 || limit > validation.MaxAuditLimit {
		return nil, invalid(validation.ValidationErrors{{
			Field:   "limit",
			Message: fmt.Sprintf("limit must be an integer between 1 and %d", validation.MaxAuditLimit),
		}})
	}
	events, err := s.store.ListAudit(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	return events, nil
}
