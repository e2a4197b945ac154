package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"

	"github.com/spendlog/spendlog/internal/model"
)

var (
	// ErrTokenInvalid covers malformed tokens, bad signatures and unexpected claims.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired indicates the token's exp claim is in the past.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked indicates the token ID was revoked by logout.
	ErrTokenRevoked = errors.New("token revoked")
)

// TokenConfig configures token issuance and verification.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
}

// IssuedToken is a freshly signed bearer token.
type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// TokenService issues and verifies HS256 bearer tokens and consults a
// RevocationStore on every verification.
type TokenService struct {
	cfg     TokenConfig
	revoked RevocationStore
	now     func() time.Time
}

// NewTokenService creates a token service.
func NewTokenService(cfg TokenConfig, revoked RevocationStore) *TokenService {
	return &TokenService{
		cfg:     cfg,
		revoked: revoked,
		now:     time.Now,
	}
}

// Issue signs a token for userID with a fresh unique ID.
func (s *TokenService) Issue(userID int64) (*IssuedToken, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.TTL)

	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate token id: %w", err)
	}

	claims := jwt.RegisteredClaims{
		Issuer:    s.cfg.Issuer,
		Subject:   strconv.FormatInt(userID, 10),
		ID:        id.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &IssuedToken{
		Token:     signed,
		ID:        claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify checks signature, expiry and revocation and returns the identity
// the token carries. Revocation store failures are returned wrapped and
// match none of the token sentinels.
func (s *TokenService) Verify(ctx context.Context, raw string) (*model.Identity, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return s.cfg.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 || claims.ID == "" {
		return nil, ErrTokenInvalid
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	return &model.Identity{
		UserID:    userID,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Revoke invalidates tokenID until expiresAt, the token's own expiry.
// Revoking an already-revoked ID is a no-op.
func (s *TokenService) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if err := s.revoked.Revoke(ctx, tokenID, expiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}
