package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the account id in Subject and its single role in Roles.
type Claims struct {
	Roles []string `json:"roles"`
	Email string   `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Role returns the first role in the token, which is the only one captable issues.
func (c *Claims) Role() string {
	if c == nil || len(c.Roles) == 0 {
		return ""
	}
	return c.Roles[0]
}

type TokenParams struct {
	Subject string
	Email   string
	Role    string
	Issuer  string
	TTL     time.Duration
	Now     time.Time
}

func SignJWT(params TokenParams, secret []byte) (string, time.Time, error) {
	now := params.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	expiresAt := now.Add(params.TTL)

	claims := Claims{
		Roles: []string{params.Role},
		Email: params.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   params.Subject,
			Issuer:    params.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func ParseJWT(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func ExtractBearer(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
