// Package token implements the signed-token codec used for access and
// refresh tokens. Tokens are self-contained HS256 JWTs carrying a subject,
// issued-at and expiry plus optional extra claims; nothing is persisted
// server-side. Verification failures are reported as absence rather than
// errors because an invalid or expired token is an everyday condition, not
// an exceptional one.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Codec signs and verifies tokens with a process-wide secret. The secret is
// validated once at startup and never changes, so a Codec is safe for
// concurrent use.
type Codec struct {
	secret []byte
}

// NewCodec returns a Codec signing with the given secret. Secret validation
// (presence, minimum length) happens in config loading before this is
// called.
func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Issue signs a token for subject expiring ttl from now. Extra claims are
// merged into the payload; the reserved sub/iat/exp claims cannot be
// overridden.
func (c *Codec) Issue(subject string, extra map[string]any, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{}
	for k, v := range extra {
		claims[k] = v
	}
	claims["sub"] = subject
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(ttl).Unix()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.secret)
}

// parse verifies the signature and standard claims. Any failure (bad
// signature, malformed token, non-HMAC algorithm, elapsed expiry) yields
// ok=false; payloads are never inspected before verification succeeds.
func (c *Codec) parse(raw string) (jwt.MapClaims, bool) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return c.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, false
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	return claims, ok
}

// Subject returns the token's subject, or "" when the token does not
// verify. Callers must treat "" as unauthenticated.
func (c *Codec) Subject(raw string) string {
	claims, ok := c.parse(raw)
	if !ok {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return sub
}

// Claim extracts a named claim from a verified token. The boolean is false
// when the token does not verify or the claim is absent.
func (c *Codec) Claim(raw, name string) (any, bool) {
	claims, ok := c.parse(raw)
	if !ok {
		return nil, false
	}
	v, ok := claims[name]
	return v, ok
}

// IsValid reports whether the token verifies, its subject equals
// expectedSubject and its expiry is strictly in the future. Expiry is
// compared against wall-clock time with no skew tolerance.
func (c *Codec) IsValid(raw, expectedSubject string) bool {
	claims, ok := c.parse(raw)
	if !ok {
		return false
	}
	sub, _ := claims["sub"].(string)
	if sub == "" || sub != expectedSubject {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.After(time.Now())
}
