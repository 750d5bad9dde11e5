package stubserver

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken indicates a bearer credential that failed verification.
var ErrInvalidToken = errors.New("invalid token")

// tokenIssuer mints and verifies the HS256 bearer tokens the stub backend
// hands out at login. The real backend owns an equivalent service; clients
// treat the tokens as opaque either way.
type tokenIssuer struct {
	secret  []byte
	ttl     time.Duration
	nowFunc func() time.Time
}

func newTokenIssuer(secret string, ttl time.Duration) *tokenIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &tokenIssuer{secret: []byte(secret), ttl: ttl, nowFunc: time.Now}
}

type sessionClaims struct {
	Nombre string `json:"nombre"`
	Rol    string `json:"rol"`
	jwt.RegisteredClaims
}

// Issue mints a session token for the given account.
func (t *tokenIssuer) Issue(userID, nombre, rol string) (string, error) {
	now := t.nowFunc()
	claims := sessionClaims{
		Nombre: nombre,
		Rol:    rol,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			Issuer:    "neighnet-stub",
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a bearer token and returns its claims.
func (t *tokenIssuer) Verify(token string) (*sessionClaims, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// SignEnvelope produces the opaque signed pass envelope returned by the pass
// issuance endpoint: a compact JWS over the pass payload. Clients embed it
// verbatim.
func (t *tokenIssuer) SignEnvelope(payload map[string]any) (string, error) {
	claims := jwt.MapClaims{}
	for k, v := range payload {
		claims[k] = v
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign envelope: %w", err)
	}
	return signed, nil
}

// VerifyEnvelope checks an envelope's signature and returns its payload.
// Exercised from tests that assert on issued passes; real clients embed
// envelopes without opening them.
func (t *tokenIssuer) VerifyEnvelope(envelope string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(envelope, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
