package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/viralforge/webauth/internal/domain"
	"github.com/viralforge/webauth/internal/ports"
)

const minSecretBytes = 32

// JWTIssuer implements HS256 bearer tokens signed with a process-wide secret.
type JWTIssuer struct {
	secret []byte
	issuer string
	nowFn  func() time.Time
}

// NewJWTIssuer builds an issuer from the configured signing secret.
// An empty or short secret is a startup error.
func NewJWTIssuer(secret, issuer string) (*JWTIssuer, error) {
	if secret == "" {
		return nil, errors.New("jwt signing secret is required")
	}
	if len(secret) < minSecretBytes {
		return nil, fmt.Errorf("jwt signing secret must be at least %d bytes", minSecretBytes)
	}
	return &JWTIssuer{
		secret: []byte(secret),
		issuer: issuer,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock returns a copy of the issuer that reads time from nowFn.
func (i *JWTIssuer) WithClock(nowFn func() time.Time) *JWTIssuer {
	cp := *i
	cp.nowFn = nowFn
	return &cp
}

func (i *JWTIssuer) Issue(userID uuid.UUID, ttl time.Duration) (string, error) {
	if userID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	if ttl <= 0 {
		return "", errors.New("token ttl must be positive")
	}
	now := i.nowFn()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    i.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify collapses every parse, signature and expiry failure into domain.ErrInvalidToken.
func (i *JWTIssuer) Verify(raw string) (ports.TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(i.nowFn),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}
	parsed, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		return i.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return ports.TokenClaims{}, domain.ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.ExpiresAt == nil {
		return ports.TokenClaims{}, domain.ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ports.TokenClaims{}, domain.ErrInvalidToken
	}

	out := ports.TokenClaims{
		UserID:    userID,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	return out, nil
}
