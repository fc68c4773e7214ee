package session

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"arx/pkg/platform/sentinel"
)

// Claims are the bearer token claims. The token carries identity only; the
// session store is the source of truth for liveness.
type Claims struct {
	EntityID  string `json:"entity_id"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// Tokens signs and validates session bearer tokens.
type Tokens struct {
	signingKey []byte
	issuer     string
}

// NewTokens creates a token service with an HMAC signing key.
func NewTokens(signingKey []byte, issuer string) *Tokens {
	return &Tokens{signingKey: signingKey, issuer: issuer}
}

// Issue signs a token referencing the session.
func (t *Tokens) Issue(s Session) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		EntityID:  s.Entity.String(),
		SessionID: s.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
			Issuer:    t.issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(t.signingKey)
}

// Validate parses the token and returns its session and entity identifiers.
func (t *Tokens) Validate(raw string) (sessionID, entityID uuid.UUID, err error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return t.signingKey, nil
	}, jwt.WithIssuer(t.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, uuid.Nil, fmt.Errorf("token: %w", sentinel.ErrExpired)
		}
		return uuid.Nil, uuid.Nil, fmt.Errorf("token: %w", err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return uuid.Nil, uuid.Nil, errors.New("token: invalid claims")
	}
	sessionID, err = uuid.Parse(claims.SessionID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("token: session id: %w", err)
	}
	entityID, err = uuid.Parse(claims.EntityID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("token: entity id: %w", err)
	}
	return sessionID, entityID, nil
}
