// Package token parses, validates and cross-converts the three credential
// encodings the target application understands: a raw session cookie
// fragment, a composite "subjectId::jwt" string, and a bare long-lived JWT.
package token

import (
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"
)

// CookieName is the session cookie the target application authenticates with.
const CookieName = "WorkosCursorSessionToken"

// Separator joins the subject id and the long-lived credential in the
// composite form. The URL-encoded variant is the canonical wire encoding.
const (
	Separator        = "::"
	SeparatorEncoded = "%3A%3A"
)

var cookieValueRe = regexp.MustCompile(CookieName + `=([^;]+)`)

// Forms holds every canonical encoding derivable from one credential input.
type Forms struct {
	// SubjectID is the stable per-user id (e.g. "user_01K9..."), recovered
	// from the composite prefix or the JWT payload.
	SubjectID string
	// LongLived is the bare three-segment JWT.
	LongLived string
	// Composite is "subjectId%3A%3Ajwt", empty when the subject id could not
	// be recovered.
	Composite string
}

// Normalize determines the encoding of an arbitrary credential input and
// produces all derivable forms. It is idempotent: normalizing an
// already-composite string returns it unchanged (both separator encodings
// are accepted as equivalent).
func Normalize(input string) (*Forms, error) {
	value := strings.TrimSpace(input)
	if value == "" {
		return nil, fmt.Errorf("%w: empty input", ErrFormat)
	}

	// Cookie header fragment: extract the named field and URL-decode it.
	if strings.Contains(value, CookieName+"=") {
		m := cookieValueRe.FindStringSubmatch(value)
		if m == nil {
			return nil, fmt.Errorf("%w: cookie fragment without a value", ErrFormat)
		}
		value = m[1]
		if decoded, err := url.QueryUnescape(value); err == nil {
			value = decoded
		}
	}

	subject, jwt := splitComposite(value)
	if jwt == "" {
		// Bare long-lived credential: locate the structural prefix.
		if idx := strings.Index(value, "eyJ"); idx >= 0 && strings.Count(value[idx:], ".") >= 2 {
			jwt = value[idx:]
		}
	}
	if jwt == "" {
		return nil, fmt.Errorf("%w: no recognizable credential segment", ErrFormat)
	}

	claims, err := DecodePayload(jwt)
	if err != nil {
		return nil, err
	}

	if subject == "" {
		subject = claims.SubjectID()
	} else if payloadID := claims.SubjectID(); payloadID != "" && payloadID != subject {
		// The composite prefix wins, but a disagreement is worth surfacing.
		log.Printf("⚠️ Subject id mismatch: composite=%s payload=%s (keeping composite)", subject, payloadID)
	}

	f := &Forms{SubjectID: subject, LongLived: jwt}
	if subject != "" {
		f.Composite = Compose(subject, jwt)
	}
	return f, nil
}

// Compose builds the canonical composite form from a subject id and a bare
// long-lived credential.
func Compose(subjectID, jwt string) string {
	return subjectID + SeparatorEncoded + jwt
}

// CookieHeader renders the Cookie header value for authenticated requests.
// The composite form is preferred; a bare credential is sent as-is when no
// subject id is known.
func (f *Forms) CookieHeader() string {
	if f.Composite != "" {
		return CookieName + "=" + f.Composite
	}
	return CookieName + "=" + f.LongLived
}

// Best returns the most usable raw credential: composite when derivable,
// otherwise the bare long-lived form.
func (f *Forms) Best() string {
	if f.Composite != "" {
		return f.Composite
	}
	return f.LongLived
}

// SessionValue extracts the value to inject as the session cookie during
// negotiation, stripping a cookie-fragment prefix if present.
func SessionValue(input string) string {
	value := strings.TrimSpace(input)
	if m := cookieValueRe.FindStringSubmatch(value); m != nil {
		return m[1]
	}
	return value
}

// splitComposite splits "subject::jwt" on either separator encoding.
// Returns ("", "") when the value is not composite.
func splitComposite(value string) (subject, jwt string) {
	for _, sep := range []string{SeparatorEncoded, Separator} {
		if !strings.Contains(value, sep) {
			continue
		}
		parts := strings.SplitN(value, sep, 2)
		if len(parts) == 2 && parts[1] != "" {
			return parts[0], parts[1]
		}
	}
	return "", ""
}

// MaskToken returns a masked version of a token for display.
func MaskToken(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
