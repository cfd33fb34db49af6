package security

import (
	"time"

	"github.com/AfshinJalili/captable/libs/auth"
	"github.com/google/uuid"
)

type AccessToken struct {
	Token     string
	ExpiresAt time.Time
	ExpiresIn int64
}

// TokenIssuer signs HS256 access tokens carrying the account id and role.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret []byte, issuer string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, issuer: issuer, ttl: ttl, now: time.Now}
}

func (t *TokenIssuer) Issue(accountID uuid.UUID, email, role string) (AccessToken, error) {
	signed, expiresAt, err := auth.SignJWT(auth.TokenParams{
		Subject: accountID.String(),
		Email:   email,
		Role:    role,
		Issuer:  t.issuer,
		TTL:     t.ttl,
		Now:     t.now().UTC(),
	}, t.secret)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{
		Token:     signed,
		ExpiresAt: expiresAt,
		ExpiresIn: int64(t.ttl.Seconds()),
	}, nil
}
