package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	uniqueEmail       = "users_email_key"
	uniqueCertificate = "share_issuances_certificate_number_key"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*Account, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, role, created_at
		FROM users
		WHERE email = $1
	`, email)
	return scanAccount(row)
}

func (s *Store) GetAccountByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, role, created_at
		FROM users
		WHERE id = $1
	`, id)
	return scanAccount(row)
}

func (s *Store) CreateAccount(ctx context.Context, acc Account) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, acc.ID, acc.Email, acc.PasswordHash, acc.Role, acc.CreatedAt)
	if isUniqueViolation(err, uniqueEmail) {
		return ErrDuplicateEmail
	}
	return err
}

func (s *Store) CreateShareholder(ctx context.Context, in NewShareholder) (*Profile, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err := tx.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, in.AccountID, in.Email, in.PasswordHash, RoleShareholder, in.CreatedAt); err != nil {
		if isUniqueViolation(err, uniqueEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO shareholder_profiles (id, user_id, first_name, last_name, phone, address, tax_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, $8)
		RETURNING `+profileColumns,
		in.ProfileID, in.AccountID, in.FirstName, in.LastName, in.Phone, in.Address, in.TaxID, in.CreatedAt)
	profile, err := scanProfile(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true
	return profile, nil
}

const profileColumns = `id, user_id, first_name, last_name, COALESCE(phone, ''), COALESCE(address, ''), COALESCE(tax_id, ''), created_at, updated_at`

func (s *Store) GetProfileByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM shareholder_profiles WHERE id = $1`, id)
	return scanProfile(row)
}

func (s *Store) FindProfileByAccount(ctx context.Context, accountID uuid.UUID) (*Profile, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM shareholder_profiles WHERE user_id = $1`, accountID)
	return scanProfile(row)
}

func (s *Store) SumIssuancesByProfile(ctx context.Context, profileID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	var sharesStr, valueStr string
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(number_of_shares), 0)::text, COALESCE(SUM(total_value), 0)::text
		FROM share_issuances
		WHERE shareholder_id = $1
	`, profileID).Scan(&sharesStr, &valueStr)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	shares, value, err := parseSums(sharesStr, valueStr)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return shares, value, nil
}

func (s *Store) ListShareholderTotals(ctx context.Context) ([]ProfileTotals, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.user_id, p.first_name, p.last_name,
		       COALESCE(p.phone, ''), COALESCE(p.address, ''), COALESCE(p.tax_id, ''),
		       p.created_at, p.updated_at, u.email,
		       COALESCE(SUM(i.number_of_shares), 0)::text,
		       COALESCE(SUM(i.total_value), 0)::text
		FROM shareholder_profiles p
		JOIN users u ON u.id = p.user_id
		LEFT JOIN share_issuances i ON i.shareholder_id = p.id
		GROUP BY p.id, u.email
		ORDER BY p.created_at, p.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]ProfileTotals, 0)
	for rows.Next() {
		var item ProfileTotals
		var sharesStr, valueStr string
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.FirstName, &item.LastName,
			&item.Phone, &item.Address, &item.TaxID,
			&item.CreatedAt, &item.UpdatedAt, &item.Email,
			&sharesStr, &valueStr,
		); err != nil {
			return nil, err
		}
		if item.TotalShares, item.TotalValue, err = parseSums(sharesStr, valueStr); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) SumIssuances(ctx context.Context) (LedgerTotals, error) {
	var totals LedgerTotals
	var sharesStr, valueStr string
	err := s.pool.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM shareholder_profiles),
		       COALESCE(SUM(number_of_shares), 0)::text,
		       COALESCE(SUM(total_value), 0)::text
		FROM share_issuances
	`).Scan(&totals.Shareholders, &sharesStr, &valueStr)
	if err != nil {
		return LedgerTotals{}, err
	}
	if totals.Shares, totals.Value, err = parseSums(sharesStr, valueStr); err != nil {
		return LedgerTotals{}, err
	}
	return totals, nil
}

// SUM over bigint yields numeric, so share totals are read as text like values.
func parseSums(sharesStr, valueStr string) (decimal.Decimal, decimal.Decimal, error) {
	shares, err := decimal.NewFromString(sharesStr)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("parse total shares: %w", err)
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("parse total value: %w", err)
	}
	return shares, value, nil
}

// CreateIssuance share-locks the target profile for the duration of the insert
// so it cannot vanish between the existence check and the write.
func (s *Store) CreateIssuance(ctx context.Context, in NewIssuance) (*Issuance, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	var locked uuid.UUID
	if err := tx.QueryRow(ctx, `
		SELECT id FROM shareholder_profiles WHERE id = $1 FOR SHARE
	`, in.ShareholderID).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO share_issuances (id, shareholder_id, number_of_shares, price_per_share, total_value, issuance_date, certificate_number, notes, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7, NULLIF($8, ''), $6)
		RETURNING `+issuanceColumns,
		in.ID, in.ShareholderID, in.NumberOfShares, in.PricePerShare.String(), in.TotalValue.String(),
		in.IssuanceDate, in.CertificateNumber, in.Notes)
	issuance, err := scanIssuance(row)
	if err != nil {
		if isUniqueViolation(err, uniqueCertificate) {
			return nil, ErrDuplicateCertificate
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true
	return issuance, nil
}

const issuanceColumns = `id, shareholder_id, number_of_shares, price_per_share::text, total_value::text, issuance_date, certificate_number, COALESCE(notes, ''), created_at`

func (s *Store) GetIssuance(ctx context.Context, id uuid.UUID) (*Issuance, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+issuanceColumns+` FROM share_issuances WHERE id = $1`, id)
	return scanIssuance(row)
}

func (s *Store) ListIssuances(ctx context.Context) ([]Issuance, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+issuanceColumns+` FROM share_issuances ORDER BY issuance_date, id`)
	if err != nil {
		return nil, err
	}
	return collectIssuances(rows)
}

func (s *Store) ListIssuancesByProfile(ctx context.Context, profileID uuid.UUID) ([]Issuance, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+issuanceColumns+`
		FROM share_issuances
		WHERE shareholder_id = $1
		ORDER BY issuance_date, id
	`, profileID)
	if err != nil {
		return nil, err
	}
	return collectIssuances(rows)
}

func (s *Store) InsertAudit(ctx context.Context, event AuditEvent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_events (id, user_id, action, details, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)
	`, event.ID, event.UserID, event.Action, event.Details, event.IPAddress, event.UserAgent, event.CreatedAt)
	return err
}

func (s *Store) ListAudit(ctx context.Context, limit int) ([]AuditEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, action, details, COALESCE(ip_address, ''), COALESCE(user_agent, ''), created_at
		FROM audit_events
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]AuditEvent, 0, limit)
	for rows.Next() {
		var ev AuditEvent
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.Action, &ev.Details, &ev.IPAddress, &ev.UserAgent, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func scanAccount(row pgx.Row) (*Account, error) {
	var acc Account
	if err := row.Scan(&acc.ID, &acc.Email, &acc.PasswordHash, &acc.Role, &acc.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &acc, nil
}

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	if err := row.Scan(&p.ID, &p.UserID, &p.FirstName, &p.LastName, &p.Phone, &p.Address, &p.TaxID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanIssuance(row pgx.Row) (*Issuance, error) {
	var is Issuance
	var priceStr, totalStr string
	if err := row.Scan(&is.ID, &is.ShareholderID, &is.NumberOfShares, &priceStr, &totalStr, &is.IssuanceDate, &is.CertificateNumber, &is.Notes, &is.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var err error
	if is.PricePerShare, err = decimal.NewFromString(priceStr); err != nil {
		return nil, fmt.Errorf("parse price per share: %w", err)
	}
	if is.TotalValue, err = decimal.NewFromString(totalStr); err != nil {
		return nil, fmt.Errorf("parse total value: %w", err)
	}
	return &is, nil
}

func collectIssuances(rows pgx.Rows) ([]Issuance, error) {
	defer rows.Close()

	items := make([]Issuance, 0)
	for rows.Next() {
		is, err := scanIssuance(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *is)
	}
	return items, rows.Err()
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && (constraint == "" || pgErr.ConstraintName == constraint)
	}
	return false
}
