package token

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the untrusted introspection of a long-lived credential's payload
// segment. The signature is never validated; this exists only to recover the
// subject id and a few display fields.
type Claims struct {
	Subject string
	Email   string
	Scope   string
	Exp     int64
	Iat     int64
}

// DecodePayload decodes the middle segment of a three-segment credential
// without verifying its signature.
func DecodePayload(raw string) (*Claims, error) {
	if strings.Count(raw, ".") != 2 {
		return nil, fmt.Errorf("%w: expected 3 dot-separated segments", ErrFormat)
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims shape", ErrDecode)
	}

	c := &Claims{}
	if sub, err := mc.GetSubject(); err == nil {
		c.Subject = sub
	}
	if email, ok := mc["email"].(string); ok {
		c.Email = email
	}
	if scope, ok := mc["scope"].(string); ok {
		c.Scope = scope
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.Exp = exp.Unix()
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		c.Iat = iat.Unix()
	}
	return c, nil
}

// SubjectID extracts the stable user id from the compound subject field.
// The subject is "provider|user_...": the second part is the id.
func (c *Claims) SubjectID() string {
	if c.Subject == "" {
		return ""
	}
	if idx := strings.Index(c.Subject, "|"); idx >= 0 {
		if id := c.Subject[idx+1:]; id != "" {
			return id
		}
	}
	return c.Subject
}

// Expired reports whether the credential's exp claim is in the past.
// A missing exp claim counts as expired.
func (c *Claims) Expired(now time.Time) bool {
	if c.Exp == 0 {
		return true
	}
	return time.Unix(c.Exp, 0).Before(now)
}
