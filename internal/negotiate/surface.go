package negotiate

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
)

// ConfirmResult is the outcome of one consent-confirmation attempt.
type ConfirmResult int

const (
	// ConfirmNotFound means no control matched; the page may still be
	// rendering, the attempt should be retried.
	ConfirmNotFound ConfirmResult = iota
	// ConfirmClicked means a confirmation control was triggered.
	ConfirmClicked
)

// Surface is a background browsing surface the negotiator drives: it loads
// the consent page with the session cookie injected and attempts to trigger
// the confirmation control. Closing the surface at any time must stop all
// negotiation timers.
type Surface interface {
	Open(ctx context.Context, consentURL string, cookie *http.Cookie) error
	Confirm(ctx context.Context) (ConfirmResult, error)
	Close()
	// Closed is closed once the surface has been torn down.
	Closed() <-chan struct{}
}

// PageSurface is the default Surface: a cookie-jar HTTP session that
// fetches the consent page and confirms by submitting the matched control's
// form (or following its link when the form strategy is rejected).
type PageSurface struct {
	client *http.Client

	mu      sync.Mutex
	doc     *html.Node
	pageURL *url.URL

	closeOnce sync.Once
	closed    chan struct{}
}

// NewPageSurface creates an unopened surface.
func NewPageSurface() *PageSurface {
	return &PageSurface{closed: make(chan struct{})}
}

func (s *PageSurface) Open(ctx context.Context, consentURL string, cookie *http.Cookie) error {
	u, err := url.Parse(consentURL)
	if err != nil {
		return fmt.Errorf("parse consent url: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	// Host-only scope: no Domain attribute on the injected cookie.
	jar.SetCookies(&url.URL{Scheme: u.Scheme, Host: u.Host}, []*http.Cookie{cookie})
	s.client = &http.Client{Jar: jar, Timeout: 30 * time.Second}

	doc, pageURL, err := s.fetch(ctx, consentURL)
	if err != nil {
		return fmt.Errorf("load consent page: %w", err)
	}

	s.mu.Lock()
	s.doc, s.pageURL = doc, pageURL
	s.mu.Unlock()
	return nil
}

func (s *PageSurface) Confirm(ctx context.Context) (ConfirmResult, error) {
	s.mu.Lock()
	doc, pageURL := s.doc, s.pageURL
	s.mu.Unlock()
	if doc == nil {
		return ConfirmNotFound, fmt.Errorf("surface not opened")
	}

	ctl := findConsentControl(doc)
	if ctl == nil {
		return ConfirmNotFound, nil
	}

	// First strategy: submit the enclosing form.
	if ctl.form != nil {
		action, method, fields := formPayload(ctl.form)
		target := resolveRef(pageURL, action)
		if err := s.activate(ctx, method, target, fields); err == nil {
			return ConfirmClicked, nil
		}
	}
	// Second strategy: follow the control's link.
	if ctl.href != "" {
		if err := s.activate(ctx, http.MethodGet, resolveRef(pageURL, ctl.href), nil); err == nil {
			return ConfirmClicked, nil
		}
	}
	return ConfirmNotFound, nil
}

func (s *PageSurface) Close()                  { s.closeOnce.Do(func() { close(s.closed) }) }
func (s *PageSurface) Closed() <-chan struct{} { return s.closed }

func (s *PageSurface) fetch(ctx context.Context, target string) (*html.Node, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, nil, fmt.Errorf("consent page status %d", resp.StatusCode)
	}
	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	return doc, resp.Request.URL, nil
}

func (s *PageSurface) activate(ctx context.Context, method string, target *url.URL, fields url.Values) error {
	var req *http.Request
	var err error
	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, method, target.String(), strings.NewReader(fields.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		if len(fields) > 0 {
			q := target.Query()
			for k, vs := range fields {
				for _, v := range vs {
					q.Add(k, v)
				}
			}
			target.RawQuery = q.Encode()
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	}
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("confirm request status %d", resp.StatusCode)
	}

	// The page may advance after the click; keep the fresh document so a
	// repeated attempt sees the new state.
	if doc, parseErr := html.Parse(resp.Body); parseErr == nil {
		s.mu.Lock()
		s.doc, s.pageURL = doc, resp.Request.URL
		s.mu.Unlock()
	}
	return nil
}

func resolveRef(base *url.URL, ref string) *url.URL {
	if ref == "" {
		u := *base
		return &u
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		u := *base
		return &u
	}
	return base.ResolveReference(parsed)
}
