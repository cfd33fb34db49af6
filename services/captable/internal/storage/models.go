package storage

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrDuplicateCertificate = errors.New("certificate number already used")
)

const (
	RoleAdmin       = "admin"
	RoleShareholder = "shareholder"
)

type Account struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

type Profile struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	FirstName string
	LastName  string
	Phone     string
	Address   string
	TaxID     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// NewShareholder is an account and its profile, persisted together.
type NewShareholder struct {
	AccountID    uuid.UUID
	ProfileID    uuid.UUID
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	Address      string
	TaxID        string
	CreatedAt    time.Time
}

type Issuance struct {
	ID                uuid.UUID
	ShareholderID     uuid.UUID
	NumberOfShares    int64
	PricePerShare     decimal.Decimal
	TotalValue        decimal.Decimal
	IssuanceDate      time.Time
	CertificateNumber string
	Notes             string
	CreatedAt         time.Time
}

type NewIssuance struct {
	ID                uuid.UUID
	ShareholderID     uuid.UUID
	NumberOfShares    int64
	PricePerShare     decimal.Decimal
	TotalValue        decimal.Decimal
	IssuanceDate      time.Time
	CertificateNumber string
	Notes             string
}

// ProfileTotals is one row of the shareholder listing: every profile appears
// once, with zero totals when it holds nothing. Share sums are decimals since
// many issuances can add up past int64.
type ProfileTotals struct {
	Profile
	Email       string
	TotalShares decimal.Decimal
	TotalValue  decimal.Decimal
}

type LedgerTotals struct {
	Shareholders int64
	Shares       decimal.Decimal
	Value        decimal.Decimal
}

type AuditEvent struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Action    string
	Details   string
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}
