package service

import (
	"context"
	"testing"

	"github.com/AfshinJalili/captable/libs/logging"
	"github.com/AfshinJalili/captable/services/captable/internal/security"
	"github.com/AfshinJalili/captable/services/captable/internal/storage"
)

func TestEnsureAdminIsIdempotent(t *testing.T) {
	store := storage.NewMemory()
	hasher := security.NewHasher(testArgon2)

	created, err := EnsureAdmin(context.Background(), store, hasher, "Admin@Company.com", "admin123", logging.Discard())
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	if !created {
		t.Fatalf("expected admin created")
	}
	created, err = EnsureAdmin(context.Background(), store, hasher, "admin@company.com", "other-password", logging.Discard())
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if created {
		t.Fatalf("expected existing admin kept")
	}

	account, err := store.GetAccountByEmail(context.Background(), "admin@company.com")
	if err != nil {
		t.Fatalf("get admin: %v", err)
	}
	if account.Role != storage.RoleAdmin {
		t.Fatalf("expected admin role, got %q", account.Role)
	}
	ok, _ := hasher.Verify("admin123", account.PasswordHash)
	if !ok {
		t.Fatalf("expected original password kept")
	}
}

func TestEnsureAdminRequiresCredentials(t *testing.T) {
	if _, err := EnsureAdmin(context.Background(), storage.NewMemory(), security.NewHasher(testArgon2), "", "", nil); err == nil {
		t.Fatalf("expected error for empty credentials")
	}
}
