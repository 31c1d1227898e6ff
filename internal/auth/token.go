package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingSecret  = errors.New("JWT secret is not set")
	ErrMissingSubject = errors.New("token has no subject")
)

// Scopes granted to service tokens. A token carries them space separated.
const (
	ScopeSettle = "settle" // barcode, refund, reverse and query
	ScopeQuery  = "query"  // query only
	ScopeAudit  = "audit"  // reading the caller's own gateway exchanges
)

// HasScope reports whether the space separated granted list contains any of want.
func HasScope(granted string, want ...string) bool {
	for _, g := range strings.Fields(granted) {
		for _, w := range want {
			if g == w {
				return true
			}
		}
	}
	return false
}

// ServiceClaims identify the merchant-side system calling the settlement API.
// Subject carries the client id.
type ServiceClaims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// ClientID returns the calling client, taken from the subject claim.
func (c *ServiceClaims) ClientID() string {
	return c.Subject
}

func ExtractAccessToken(r *http.Request) string {
	if cookie, err := r.Cookie("access_token"); err == nil {
		if cookie.Value != "" {
			return cookie.Value
		}
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}

// GenerateServiceToken issues an HS256 token for clientID valid for ttl.
func GenerateServiceToken(clientID, scope, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrMissingSecret
	}
	if clientID == "" {
		return "", ErrMissingSubject
	}

	now := time.Now()
	claims := ServiceClaims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseServiceToken(tokenStr, secret string) (*ServiceClaims, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}

	token, err := jwt.ParseWithClaims(
		tokenStr,
		&ServiceClaims{},
		func(token *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*ServiceClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}

	return claims, nil
}
