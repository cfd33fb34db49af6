package service

import (
	"context"

	"github.com/AfshinJalili/captable/services/captable/internal/audit"
)

const tracerName = "captable/service"

// AuditEmitter receives events after the primary write has committed.
type AuditEmitter interface {
	Emit(ctx context.Context, ev audit.Event)
}

// RequestMeta is the client information recorded on audit events.
type RequestMeta struct {
	IP        string
	UserAgent string
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, audit.Event) {}

func emitterOrNoop(e AuditEmitter) AuditEmitter {
	if e == nil {
		return noopEmitter{}
	}
	return e
}
