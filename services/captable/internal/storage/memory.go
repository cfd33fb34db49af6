package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore keeps the same constraints as the postgres schema in process
// memory. It backs local runs with db.driver=memory and the handler tests.
type MemoryStore struct {
	mu        sync.RWMutex
	accounts  map[uuid.UUID]Account
	byEmail   map[string]uuid.UUID
	profiles  map[uuid.UUID]Profile
	byAccount map[uuid.UUID]uuid.UUID
	issuances []Issuance
	certs     map[string]struct{}
	audit     []AuditEvent
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		accounts:  make(map[uuid.UUID]Account),
		byEmail:   make(map[string]uuid.UUID),
		profiles:  make(map[uuid.UUID]Profile),
		byAccount: make(map[uuid.UUID]uuid.UUID),
		certs:     make(map[string]struct{}),
	}
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) GetAccountByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	acc := m.accounts[id]
	return &acc, nil
}

func (m *MemoryStore) GetAccountByID(_ context.Context, id uuid.UUID) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acc, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &acc, nil
}

func (m *MemoryStore) CreateAccount(_ context.Context, acc Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byEmail[acc.Email]; exists {
		return ErrDuplicateEmail
	}
	m.accounts[acc.ID] = acc
	m.byEmail[acc.Email] = acc.ID
	return nil
}

func (m *MemoryStore) CreateShareholder(_ context.Context, in NewShareholder) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byEmail[in.Email]; exists {
		return nil, ErrDuplicateEmail
	}

	m.accounts[in.AccountID] = Account{
		ID:           in.AccountID,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Role:         RoleShareholder,
		CreatedAt:    in.CreatedAt,
	}
	m.byEmail[in.Email] = in.AccountID

	profile := Profile{
		ID:        in.ProfileID,
		UserID:    in.AccountID,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
		Address:   in.Address,
		TaxID:     in.TaxID,
		CreatedAt: in.CreatedAt,
		UpdatedAt: in.CreatedAt,
	}
	m.profiles[profile.ID] = profile
	m.byAccount[in.AccountID] = profile.ID
	return &profile, nil
}

func (m *MemoryStore) GetProfileByID(_ context.Context, id uuid.UUID) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) FindProfileByAccount(_ context.Context, accountID uuid.UUID) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byAccount[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	p := m.profiles[id]
	return &p, nil
}

func (m *MemoryStore) SumIssuancesByProfile(_ context.Context, profileID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	shares, value := decimal.Zero, decimal.Zero
	for _, is := range m.issuances {
		if is.ShareholderID == profileID {
			shares = shares.Add(decimal.NewFromInt(is.NumberOfShares))
			value = value.Add(is.TotalValue)
		}
	}
	return shares, value, nil
}

func (m *MemoryStore) ListShareholderTotals(_ context.Context) ([]ProfileTotals, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byProfile := make(map[uuid.UUID]*ProfileTotals, len(m.profiles))
	items := make([]ProfileTotals, 0, len(m.profiles))
	for _, p := range m.profiles {
		items = append(items, ProfileTotals{
			Profile:     p,
			Email:       m.accounts[p.UserID].Email,
			TotalShares: decimal.Zero,
			TotalValue:  decimal.Zero,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID.String() < items[j].ID.String()
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	for i := range items {
		byProfile[items[i].ID] = &items[i]
	}
	for _, is := range m.issuances {
		if row, ok := byProfile[is.ShareholderID]; ok {
			row.TotalShares = row.TotalShares.Add(decimal.NewFromInt(is.NumberOfShares))
			row.TotalValue = row.TotalValue.Add(is.TotalValue)
		}
	}
	return items, nil
}

func (m *MemoryStore) SumIssuances(_ context.Context) (LedgerTotals, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	totals := LedgerTotals{Shareholders: int64(len(m.profiles)), Shares: decimal.Zero, Value: decimal.Zero}
	for _, is := range m.issuances {
		totals.Shares = totals.Shares.Add(decimal.NewFromInt(is.NumberOfShares))
		totals.Value = totals.Value.Add(is.TotalValue)
	}
	return totals, nil
}

func (m *MemoryStore) CreateIssuance(_ context.Context, in NewIssuance) (*Issuance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.profiles[in.ShareholderID]; !ok {
		return nil, ErrNotFound
	}
	if _, taken := m.certs[in.CertificateNumber]; taken {
		return nil, ErrDuplicateCertificate
	}

	is := Issuance{
		ID:                in.ID,
		ShareholderID:     in.ShareholderID,
		NumberOfShares:    in.NumberOfShares,
		PricePerShare:     in.PricePerShare,
		TotalValue:        in.TotalValue,
		IssuanceDate:      in.IssuanceDate,
		CertificateNumber: in.CertificateNumber,
		Notes:             in.Notes,
		CreatedAt:         in.IssuanceDate,
	}
	m.issuances = append(m.issuances, is)
	m.certs[is.CertificateNumber] = struct{}{}
	return &is, nil
}

func (m *MemoryStore) GetIssuance(_ context.Context, id uuid.UUID) (*Issuance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, is := range m.issuances {
		if is.ID == id {
			found := is
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListIssuances(_ context.Context) ([]Issuance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return sortedIssuances(m.issuances, func(Issuance) bool { return true }), nil
}

func (m *MemoryStore) ListIssuancesByProfile(_ context.Context, profileID uuid.UUID) ([]Issuance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return sortedIssuances(m.issuances, func(is Issuance) bool { return is.ShareholderID == profileID }), nil
}

func (m *MemoryStore) InsertAudit(_ context.Context, event AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[event.UserID]; !ok {
		return ErrNotFound
	}
	m.audit = append(m.audit, event)
	return nil
}

func (m *MemoryStore) ListAudit(_ context.Context, limit int) ([]AuditEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]AuditEvent, 0, len(m.audit))
	for i := len(m.audit) - 1; i >= 0; i-- {
		events = append(events, m.audit[i])
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	if limit >= 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func sortedIssuances(all []Issuance, keep func(Issuance) bool) []Issuance {
	out := make([]Issuance, 0, len(all))
	for _, is := range all {
		if keep(is) {
			out = append(out, is)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IssuanceDate.Equal(out[j].IssuanceDate) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].IssuanceDate.Before(out[j].IssuanceDate)
	})
	return out
}
