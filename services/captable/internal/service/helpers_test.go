package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/AfshinJalili/captable/services/captable/internal/access"
	"github.com/AfshinJalili/captable/services/captable/internal/audit"
	"github.com/AfshinJalili/captable/services/captable/internal/certificate"
	"github.com/AfshinJalili/captable/services/captable/internal/security"
	"github.com/AfshinJalili/captable/services/captable/internal/storage"
	"github.com/google/uuid"
)

var testArgon2 = security.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type recordEmitter struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordEmitter) Emit(_ context.Context, ev audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordEmitter) all() []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Event(nil), r.events...)
}

// countingStore counts writes that reach storage.
type countingStore struct {
	*storage.MemoryStore
	mu      sync.Mutex
	creates int
}

func (c *countingStore) CreateIssuance(ctx context.Context, in storage.NewIssuance) (*storage.Issuance, error) {
	c.mu.Lock()
	c.creates++
	c.mu.Unlock()
	return c.MemoryStore.CreateIssuance(ctx, in)
}

type fixedMinter struct {
	mu      sync.Mutex
	numbers []string
	calls   int
}

func (f *fixedMinter) Next(time.Time) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.numbers[f.calls%len(f.numbers)]
	f.calls++
	return n
}

type stubRenderer struct {
	last certificate.Data
}

func (s *stubRenderer) Render(_ context.Context, data certificate.Data) (certificate.Document, error) {
	s.last = data
	return certificate.Document{
		Filename:    certificate.Filename(data.Number, "pdf"),
		ContentType: "application/pdf",
		Body:        []byte("%PDF-stub"),
	}, nil
}

func adminPrincipal() access.Principal {
	return access.Principal{AccountID: uuid.New(), Role: access.RoleAdmin}
}

func shareholderPrincipal(accountID uuid.UUID) access.Principal {
	return access.Principal{AccountID: accountID, Role: access.RoleShareholder}
}

func seedShareholder(t *testing.T, store *storage.MemoryStore, first, last string) (access.Principal, *storage.Profile) {
	t.Helper()
	accountID := uuid.New()
	profile, err := store.CreateShareholder(context.Background(), storage.NewShareholder{
		AccountID:    accountID,
		ProfileID:    uuid.New(),
		Email:        first + "." + last + "@example.com",
		PasswordHash: "unused",
		FirstName:    first,
		LastName:     last,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed shareholder: %v", err)
	}
	return shareholderPrincipal(accountID), profile
}
