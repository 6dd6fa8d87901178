// Package negotiate upgrades a short-lived session token to a long-lived
// credential pair by driving the provider's consent flow: a PKCE-style
// proof pair, a cookie-injected consent surface with heuristic
// auto-confirmation, and a bounded token-exchange poll.
package negotiate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/cursorkit/switchboard/internal/logging"
	"github.com/cursorkit/switchboard/internal/token"
)

// ErrTimeout means the poll attempt budget was exhausted without the
// provider releasing a credential pair. Remedy: confirm the consent page
// manually and retry.
var ErrTimeout = errors.New("negotiation timed out waiting for authorization")

// pollUserAgent mimics the target application's embedded browser; the
// exchange endpoint rejects unknown agents.
const pollUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Cursor/1.2.2 Chrome/132.0.6834.210 Electron/34.5.1 Safari/537.36"

// Credentials is the long-lived pair released by the exchange endpoint.
type Credentials struct {
	Access  string
	Refresh string
}

// Options tunes the negotiation state machine. Zero fields take the
// defaults, which follow the provider's documented budgets.
type Options struct {
	AuthHost string // consent page host
	APIHost  string // token exchange host

	ClickSettle   time.Duration // delay before the first confirm attempt
	ClickInterval time.Duration
	ClickAttempts int

	PollDelay    time.Duration // delay before the first poll tick
	PollInterval time.Duration
	PollAttempts int

	CloseDelay time.Duration // visible-confirmation delay before teardown

	Clock Clock
}

func (o *Options) fillDefaults() {
	if o.AuthHost == "" {
		o.AuthHost = "https://cursor.com"
	}
	if o.APIHost == "" {
		o.APIHost = "https://api2.cursor.sh"
	}
	if o.ClickSettle == 0 {
		o.ClickSettle = 2 * time.Second
	}
	if o.ClickInterval == 0 {
		o.ClickInterval = time.Second
	}
	if o.ClickAttempts == 0 {
		o.ClickAttempts = 10
	}
	if o.PollDelay == 0 {
		o.PollDelay = 5 * time.Second
	}
	if o.PollInterval == 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.PollAttempts == 0 {
		o.PollAttempts = 10
	}
	if o.CloseDelay == 0 {
		o.CloseDelay = 1500 * time.Millisecond
	}
	if o.Clock == nil {
		o.Clock = systemClock{}
	}
}

// Negotiator drives one or more credential upgrades against a consent
// surface factory. Each Upgrade call owns a fresh ephemeral session; nothing
// is persisted.
type Negotiator struct {
	newSurface func() Surface
	client     *resty.Client
	opts       Options
}

// New creates a negotiator. newSurface is invoked once per Upgrade;
// a nil factory uses PageSurface.
func New(newSurface func() Surface, opts Options) *Negotiator {
	opts.fillDefaults()
	if newSurface == nil {
		newSurface = func() Surface { return NewPageSurface() }
	}
	client := resty.New().
		SetBaseURL(opts.APIHost).
		SetHeader("Origin", "vscode-file://vscode-app").
		SetHeader("User-Agent", pollUserAgent).
		SetHeader("Accept", "*/*").
		SetHeader("Accept-Language", "en-US").
		SetHeader("x-ghost-mode", "true").
		SetTimeout(15 * time.Second)
	return &Negotiator{newSurface: newSurface, client: client, opts: opts}
}

// Upgrade exchanges a short-lived session token for a long-lived credential
// pair. The call blocks until the exchange resolves, the attempt budget is
// exhausted, the surface is closed, or ctx is cancelled.
func (n *Negotiator) Upgrade(ctx context.Context, sessionToken string) (*Credentials, error) {
	verifier := oauth2.GenerateVerifier()
	challenge := oauth2.S256ChallengeFromVerifier(verifier)
	correlation := uuid.NewString()

	log.Printf("🔄 Starting credential upgrade (uuid=%s, challenge=%s...)", correlation, challenge[:16])

	consentURL := fmt.Sprintf("%s/cn/loginDeepControl?challenge=%s&uuid=%s&mode=login",
		n.opts.AuthHost, challenge, correlation)

	cookie := &http.Cookie{
		Name:     token.CookieName,
		Value:    token.SessionValue(sessionToken),
		Path:     "/",
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	surface := n.newSurface()
	if err := surface.Open(ctx, consentURL, cookie); err != nil {
		surface.Close()
		return nil, fmt.Errorf("open consent surface: %w", err)
	}

	// Surface teardown, however it happens, cancels every pending timer.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-surface.Closed():
			cancel()
		case <-ctx.Done():
		}
	}()

	go n.confirmLoop(ctx, surface)

	creds, err := n.pollLoop(ctx, correlation, verifier)
	if err != nil {
		surface.Close()
		return nil, err
	}

	// Leave the surface up briefly so a visible confirmation can render.
	select {
	case <-n.opts.Clock.After(n.opts.CloseDelay):
	case <-ctx.Done():
	}
	surface.Close()

	log.Printf("✅ Credential upgrade succeeded (uuid=%s)", correlation)
	return creds, nil
}

// confirmLoop attempts to trigger the consent control a bounded number of
// times. Attempts are independent; a click does not stop polling, and a
// missed click leaves manual confirmation as the fallback.
func (n *Negotiator) confirmLoop(ctx context.Context, surface Surface) {
	select {
	case <-n.opts.Clock.After(n.opts.ClickSettle):
	case <-ctx.Done():
		return
	}

	for attempt := 1; attempt <= n.opts.ClickAttempts; attempt++ {
		result, err := surface.Confirm(ctx)
		switch {
		case err != nil:
			log.Printf("⚠️ Confirm attempt %d/%d failed: %v", attempt, n.opts.ClickAttempts, err)
		case result == ConfirmClicked:
			log.Printf("✅ Consent control clicked (attempt %d/%d)", attempt, n.opts.ClickAttempts)
			return
		}
		if attempt == n.opts.ClickAttempts {
			log.Printf("⚠️ Consent control not found after %d attempts, manual confirmation required", attempt)
			return
		}
		select {
		case <-n.opts.Clock.After(n.opts.ClickInterval):
		case <-ctx.Done():
			return
		}
	}
}

// pollLoop queries the exchange endpoint until it releases the credential
// pair or the attempt budget runs out. Its first tick is deliberately
// delayed relative to the confirm loop.
func (n *Negotiator) pollLoop(ctx context.Context, correlation, verifier string) (*Credentials, error) {
	select {
	case <-n.opts.Clock.After(n.opts.PollDelay):
	case <-ctx.Done():
		return nil, fmt.Errorf("negotiation cancelled: %w", ctx.Err())
	}

	for attempt := 1; attempt <= n.opts.PollAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-n.opts.Clock.After(n.opts.PollInterval):
			case <-ctx.Done():
				return nil, fmt.Errorf("negotiation cancelled: %w", ctx.Err())
			}
		}

		creds, retry, err := n.pollOnce(ctx, correlation, verifier)
		if creds != nil {
			return creds, nil
		}
		if err != nil && !retry {
			return nil, err
		}
		if err != nil {
			log.Printf("⚠️ Poll attempt %d/%d: %v", attempt, n.opts.PollAttempts, err)
		}
	}
	return nil, ErrTimeout
}

// pollOnce performs one exchange query. A 400/404 means "not yet
// authorized" and is not an error; any other non-2xx is logged and retried
// until the budget runs out.
func (n *Negotiator) pollOnce(ctx context.Context, correlation, verifier string) (*Credentials, bool, error) {
	resp, err := n.client.R().
		SetContext(ctx).
		SetQueryParam("uuid", correlation).
		SetQueryParam("verifier", verifier).
		SetHeader("traceparent", logging.NewTraceparent()).
		Get("/auth/poll")
	if err != nil {
		return nil, true, fmt.Errorf("poll request: %w", err)
	}

	switch code := resp.StatusCode(); {
	case resp.IsSuccess():
		var body map[string]any
		if err := json.Unmarshal(resp.Body(), &body); err != nil {
			return nil, true, fmt.Errorf("poll response decode: %w", err)
		}
		access := pickString(body, "accessToken", "access_token", "token")
		refresh := pickString(body, "refreshToken", "refresh_token", "refresh")
		if access == "" || refresh == "" {
			return nil, false, fmt.Errorf("poll response missing credential pair: %s",
				logging.TruncateLog(string(resp.Body()), logging.DefaultLogMaxLen))
		}
		return &Credentials{Access: access, Refresh: refresh}, false, nil
	case code == http.StatusBadRequest, code == http.StatusNotFound:
		return nil, true, nil // awaiting authorization
	default:
		return nil, true, fmt.Errorf("poll status %d", code)
	}
}

func pickString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
