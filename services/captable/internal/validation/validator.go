package validation

import (
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MaxNotesLength    = 2000
	MaxNameLength     = 100
	MaxAddressLength  = 500
	MaxShortLength    = 50
	MinPasswordLength = 8
	PriceScale        = 4

	DefaultAuditLimit = 100
	MaxAuditLimit     = 1000
)

// Largest values the share_issuances NUMERIC(20,4) price and NUMERIC(32,4)
// total columns hold.
var (
	MaxPricePerShare = decimal.RequireFromString("9999999999999999.9999")
	MaxTotalValue    = decimal.RequireFromString("9999999999999999999999999999.9999")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "invalid request"
	}
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

// ValidateIssuance checks an issuance before anything touches storage.
func ValidateIssuance(shareholderID uuid.UUID, shares int64, price decimal.Decimal, notes string) ValidationErrors {
	var errs ValidationErrors

	if shareholderID == uuid.Nil {
		errs = append(errs, FieldError{Field: "shareholder_id", Message: "shareholder_id is required"})
	}
	if shares <= 0 {
		errs = append(errs, FieldError{Field: "number_of_shares", Message: "number_of_shares must be positive"})
	}
	switch {
	case price.IsNegative():
		errs = append(errs, FieldError{Field: "price_per_share", Message: "price_per_share must not be negative"})
	case !price.Equal(price.Truncate(PriceScale)):
		errs = append(errs, FieldError{Field: "price_per_share", Message: fmt.Sprintf("price_per_share supports at most %d decimal places", PriceScale)})
	case price.GreaterThan(MaxPricePerShare):
		errs = append(errs, FieldError{Field: "price_per_share", Message: "price_per_share must be at most " + MaxPricePerShare.String()})
	case shares > 0 && decimal.NewFromInt(shares).Mul(price).GreaterThan(MaxTotalValue):
		errs = append(errs, FieldError{Field: "number_of_shares", Message: "number_of_shares * price_per_share must be at most " + MaxTotalValue.String()})
	}
	if utf8.RuneCountInString(notes) > MaxNotesLength {
		errs = append(errs, FieldError{Field: "notes", Message: fmt.Sprintf("notes must be at most %d characters", MaxNotesLength)})
	}

	return errs
}

type ShareholderFields struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Address   string
	TaxID     string
}

func ValidateShareholder(in ShareholderFields) ValidationErrors {
	var errs ValidationErrors

	if msg := checkEmail(in.Email); msg != "" {
		errs = append(errs, FieldError{Field: "email", Message: msg})
	}
	if utf8.RuneCountInString(in.Password) < MinPasswordLength {
		errs = append(errs, FieldError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", MinPasswordLength)})
	}
	errs = appendRequired(errs, "first_name", in.FirstName, MaxNameLength)
	errs = appendRequired(errs, "last_name", in.LastName, MaxNameLength)
	errs = appendOptional(errs, "phone", in.Phone, MaxShortLength)
	errs = appendOptional(errs, "address", in.Address, MaxAddressLength)
	errs = appendOptional(errs, "tax_id", in.TaxID, MaxShortLength)

	return errs
}

func ValidateCredentials(email, password string) ValidationErrors {
	var errs ValidationErrors
	if strings.TrimSpace(email) == "" {
		errs = append(errs, FieldError{Field: "email", Message: "email is required"})
	}
	if password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "password is required"})
	}
	return errs
}

// ParseAuditLimit reads the ?limit query value. Empty means the default.
func ParseAuditLimit(raw string) (int, ValidationErrors) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultAuditLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > MaxAuditLimit {
		return 0, ValidationErrors{{Field: "limit", Message: fmt.Sprintf("limit must be an integer between 1 and %d", MaxAuditLimit)}}
	}
	return n, nil
}

func ParseID(field, raw string) (uuid.UUID, ValidationErrors) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ValidationErrors{{Field: field, Message: field + " must be a valid id"}}
	}
	return id, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkEmail(raw string) string {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "email is required"
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "email must be a valid address"
	}
	return ""
}

func appendRequired(errs ValidationErrors, field, value string, max int) ValidationErrors {
	value = strings.TrimSpace(value)
	if value == "" {
		return append(errs, FieldError{Field: field, Message: field + " is required"})
	}
	return appendOptional(errs, field, value, max)
}

func appendOptional(errs ValidationErrors, field, value string, max int) ValidationErrors {
	if utf8.RuneCountInString(strings.TrimSpace(value)) > max {
		return append(errs, FieldError{Field: field, Message: fmt.Sprintf("%s must be at most %d characters", field, max)})
	}
	return errs
}
