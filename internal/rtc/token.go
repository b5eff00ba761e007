// SPDX-License-Identifier: MIT

package rtc

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/voxhire/voxhire/internal/config"
)

// DefaultTokenTTL bounds how long a minted join token stays valid.
const DefaultTokenTTL = time.Hour

// joinClaims is the payload of a room join token.
type joinClaims struct {
	Room     string `json:"room"`
	Identity string `json:"identity"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies HS256 room join tokens. The create-session
// handler mints, the gateway verifies; both share the configured secret.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer builds an issuer from the realtime configuration.
func NewTokenIssuer(cfg config.RTCConfig) (*TokenIssuer, error) {
	if cfg.TokenSecret == "" {
		return nil, errors.New("rtc: token secret not configured")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: []byte(cfg.TokenSecret), ttl: ttl}, nil
}

// TTL reports the configured token lifetime.
func (i *TokenIssuer) TTL() time.Duration { return i.ttl }

// Mint issues a join token scoped to one room and identity.
func (i *TokenIssuer) Mint(room, identity string, now time.Time) (string, error) {
	if room == "" || identity == "" {
		return "", errors.New("rtc: room and identity are required")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, joinClaims{
		Room:     room,
		Identity: identity,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "voxhire",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("rtc: sign token: %w", err)
	}
	return signed, nil
}

// Verify checks a join token and returns the room and identity it grants.
func (i *TokenIssuer) Verify(raw string) (room, identity string, err error) {
	var claims joinClaims
	_, err = jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return "", "", fmt.Errorf("rtc: invalid join token: %w", err)
	}
	if claims.Room == "" || claims.Identity == "" {
		return "", "", errors.New("rtc: join token missing room or identity")
	}
	return claims.Room, claims.Identity, nil
}
