package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AfshinJalili/captable/libs/logging"
	"github.com/AfshinJalili/captable/services/captable/internal/audit"
	"github.com/AfshinJalili/captable/services/captable/internal/storage"
	"github.com/google/uuid"
)

func TestListAudit(t *testing.T) {
	store := storage.NewMemory()
	admin := adminPrincipal()
	if err := store.CreateAccount(context.Background(), storage.Account{ID: admin.AccountID, Email: "admin@company.com", PasswordHash: "x", Role: storage.RoleAdmin}); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	hook := audit.NewHook(audit.NewStoreRecorder(store), logging.Discard(), nil, time.Second)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		hook.Emit(context.Background(), audit.Event{
			ID:      uuid.New(),
			ActorID: admin.AccountID,
			Action:  audit.ActionLogin,
			Details: "login",
			At:      base.Add(time.Duration(i) * time.Minute),
		})
	}

	svc := NewAuditService(store)
	events, err := svc.ListAudit(context.Background(), admin, 3)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if !events[0].CreatedAt.Equal(base.Add(4 * time.Minute)) {
		t.Fatalf("expected newest first, got %s", events[0].CreatedAt)
	}

	if _, err := svc.ListAudit(context.Background(), admin, 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	caller, _ := seedShareholder(t, store, "Jane", "Smith")
	if _, err := svc.ListAudit(context.Background(), caller, 10); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
