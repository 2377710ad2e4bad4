// Package session mints and validates the signed tokens that carry a
// dashboard or studio login between requests. The platform token rides
// inside the session claims so API handlers can call the JIVAS server on
// the user's behalf without holding any state of their own.
package session

import (
	"crypto/rand"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Cookie is the cookie carrying the session token in a browser.
const Cookie = "jvcli_session"

var (
	ErrInvalid = errors.New("invalid session")
	ErrExpired = errors.New("session expired")
)

// Claims is the JWT payload of a session token.
type Claims struct {
	jwt.RegisteredClaims
	RootID             string `json:"root_id"`
	PlatformToken      string `json:"tok"`
	PlatformExpiration string `json:"platform_exp,omitempty"`
}

// Service signs and verifies session tokens with a shared HMAC key. The
// dashboard and the studio validate against the same key, so a login on
// one carries over to the other when they share a configured secret.
type Service struct {
	signingKey []byte
	ttl        time.Duration
}

// NewService creates a session service signing with key.
func NewService(key []byte, ttl time.Duration) *Service {
	return &Service{signingKey: key, ttl: ttl}
}

// RandomKey returns a fresh signing key for when none is configured.
// Sessions signed with it do not survive a restart.
func RandomKey() []byte {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}
	return key
}

// TTL returns the configured session lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue mints a session token for a logged-in platform user.
func (s *Service) Issue(rootID, platformToken, platformExpiration string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "jvcli",
			Subject:   rootID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		RootID:             rootID,
		PlatformToken:      platformToken,
		PlatformExpiration: platformExpiration,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.signingKey)
}

// Validate parses and verifies a session token.
func (s *Service) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalid
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalid
	}
	return claims, nil
}

// FromRequest extracts the session token from the Authorization header,
// falling back to the session cookie. Returns "" when neither is present.
func FromRequest(r *http.Request) string {
	if token := ExtractBearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	if cookie, err := r.Cookie(Cookie); err == nil {
		return cookie.Value
	}
	return ""
}

// SetCookie attaches a session token to the response as an HttpOnly
// cookie.
func SetCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     Cookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     Cookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// ExtractBearerToken extracts the token from an Authorization header.
func ExtractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
