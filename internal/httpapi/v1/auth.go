package v1

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// AuthConfig enables bearer authentication when Secret is set.
type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

type JWTClaims struct {
	Issuer    string `json:"iss,omitempty"`
	Subject   string `json:"sub,omitempty"`
	Audience  any    `json:"aud,omitempty"` // string or []string
	ExpiresAt int64  `json:"exp,omitempty"`
	NotBefore int64  `json:"nbf,omitempty"`
	IssuedAt  int64  `json:"iat,omitempty"`
}

type subjectKey struct{}

// subjectFrom returns the authenticated subject, used as createdBy on entries.
func subjectFrom(ctx context.Context) string {
	if sub, ok := ctx.Value(subjectKey{}).(string); ok && sub != "" {
		return sub
	}
	return "system"
}

func parseBearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < len("Bearer ") || !strings.EqualFold(h[:len("Bearer ")], "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(h[len("Bearer "):]), true
}

func base64URLDecode(s string) ([]byte, error) {
	// JWT uses base64url without padding
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

func verifyHS256(token, secret string) (JWTClaims, error) {
	var empty JWTClaims
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return empty, errors.New("invalid token format")
	}
	headerB, err := base64URLDecode(parts[0])
	if err != nil {
		return empty, errors.New("bad header b64")
	}
	payloadB, err := base64URLDecode(parts[1])
	if err != nil {
		return empty, errors.New("bad payload b64")
	}
	sigB, err := base64URLDecode(parts[2])
	if err != nil {
		return empty, errors.New("bad signature b64")
	}

	// Expect alg HS256
	var hdr struct{ Alg, Typ string }
	if err := json.Unmarshal(headerB, &hdr); err != nil {
		return empty, errors.New("bad header json")
	}
	if !strings.EqualFold(hdr.Alg, "HS256") {
		return empty, errors.New("unsupported alg")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(parts[0] + "." + parts[1]))
	if !hmac.Equal(sigB, mac.Sum(nil)) {
		return empty, errors.New("invalid signature")
	}

	var claims JWTClaims
	if err := json.Unmarshal(payloadB, &claims); err != nil {
		return empty, errors.New("bad claims json")
	}
	return claims, nil
}

func audContains(aud any, expected string) bool {
	if expected == "" {
		return true
	}
	switch v := aud.(type) {
	case string:
		return strings.EqualFold(v, expected)
	case []any:
		for _, it := range v {
			if s, ok := it.(string); ok && strings.EqualFold(s, expected) {
				return true
			}
		}
	}
	return false
}

// checkClaims applies the time window and the optional issuer/audience checks.
func checkClaims(c JWTClaims, cfg AuthConfig, now time.Time) error {
	unix := now.Unix()
	switch {
	case c.NotBefore != 0 && unix < c.NotBefore:
		return errors.New("token not yet valid")
	case c.ExpiresAt != 0 && unix >= c.ExpiresAt:
		return errors.New("token expired")
	case cfg.Issuer != "" && !strings.EqualFold(c.Issuer, cfg.Issuer):
		return errors.New("unexpected issuer")
	case !audContains(c.Audience, cfg.Audience):
		return errors.New("unexpected audience")
	}
	return nil
}

// authJWT enforces Authorization: Bearer JWT (HS256) when cfg.Secret is set,
// and returns nil otherwise.
func authJWT(cfg AuthConfig) func(http.Handler) http.Handler {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := parseBearerToken(r)
			if !ok {
				writeMessage(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			claims, err := verifyHS256(tok, cfg.Secret)
			if err == nil {
				err = checkClaims(claims, cfg, time.Now())
			}
			if err != nil {
				writeMessage(w, http.StatusUnauthorized, err.Error())
				return
			}
			ctx := context.WithValue(r.Context(), subjectKey{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
