// Package profile assembles a merged account snapshot from the target
// provider's identity, subscription and usage endpoints.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/cursorkit/switchboard/internal/token"
)

// ErrNotAuthenticated means the remote rejected the credential. Surfaced
// verbatim; the account must not be persisted or updated.
var ErrNotAuthenticated = errors.New("credential rejected by provider")

// ErrNoProfile means no endpoint contributed any usable information.
var ErrNoProfile = errors.New("no profile information obtained")

// TrialPlanName labels accounts whose subscription reports remaining trial
// days.
const TrialPlanName = "Pro Trial"

// Quota is the usage slice of the individual plan.
type Quota struct {
	Used      int  `json:"used"`
	Limit     int  `json:"limit"`
	Remaining int  `json:"remaining"`
	Enabled   bool `json:"enabled,omitempty"`
}

// Snapshot is the merged identity/plan/quota state for one credential.
type Snapshot struct {
	SubjectID          string    `json:"id,omitempty"`
	Email              string    `json:"email,omitempty"`
	Name               string    `json:"name,omitempty"`
	PlanName           string    `json:"plan,omitempty"`
	IsTrial            bool      `json:"isTrial,omitempty"`
	TrialDaysRemaining int       `json:"daysRemainingOnTrial,omitempty"`
	TrialExpiry        time.Time `json:"trialExpiryDate,omitzero"`
	SubscriptionStatus string    `json:"subscriptionStatus,omitempty"`
	Quota              *Quota    `json:"quota,omitempty"`
	TokenExpiry        int64     `json:"tokenExpiry,omitempty"`
}

// Resolver queries the account endpoints with a shared cookie header.
type Resolver struct {
	client *resty.Client
	now    func() time.Time
}

// NewResolver creates a resolver against the given account host
// (e.g. "https://cursor.com").
func NewResolver(baseURL string) *Resolver {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36").
		SetHeader("Referer", baseURL+"/").
		SetTimeout(30 * time.Second)
	return &Resolver{client: c, now: time.Now}
}

// Resolve issues the identity, dashboard, subscription and usage requests
// and merges their results into one snapshot. Each endpoint may fail
// independently; a 401 from the identity or subscription endpoint is
// authoritative and classifies the whole resolution as ErrNotAuthenticated.
func (r *Resolver) Resolve(ctx context.Context, forms *token.Forms) (*Snapshot, error) {
	cookie := forms.CookieHeader()
	snap := &Snapshot{}
	hasAny := false
	unauthorized := false

	// Offline seed from the payload, so a network-dead resolve still knows
	// who the credential claims to be.
	if claims, err := token.DecodePayload(forms.LongLived); err == nil {
		if claims.Email != "" {
			snap.Email = claims.Email
			hasAny = true
		}
		if id := claims.SubjectID(); id != "" {
			snap.SubjectID = id
			hasAny = true
		}
		snap.TokenExpiry = claims.Exp
	}

	// Identity.
	var me struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	switch resp, err := r.get(ctx, cookie, "/api/auth/me", &me); {
	case err != nil:
		log.Printf("⚠️ /api/auth/me failed: %v", err)
	case resp.StatusCode() == http.StatusUnauthorized:
		unauthorized = true
	case resp.IsSuccess():
		if me.Email != "" {
			snap.Email = me.Email
			hasAny = true
		}
		snap.Name = me.Name
	default:
		log.Printf("⚠️ /api/auth/me status %d", resp.StatusCode())
	}

	// Authoritative subject id. Never 401-authoritative: older deployments
	// gate this endpoint separately.
	var getMe struct {
		WorkosID string `json:"workosId"`
		UserID   any    `json:"userId"`
		Email    string `json:"email"`
	}
	switch resp, err := r.get(ctx, cookie, "/api/dashboard/get-me", &getMe); {
	case err != nil:
		log.Printf("⚠️ /api/dashboard/get-me failed: %v", err)
	case resp.IsSuccess():
		if getMe.WorkosID != "" {
			snap.SubjectID = getMe.WorkosID
			hasAny = true
		} else if getMe.UserID != nil && snap.SubjectID == "" {
			snap.SubjectID = fmt.Sprint(getMe.UserID)
			hasAny = true
		}
		if snap.Email == "" && getMe.Email != "" {
			snap.Email = getMe.Email
		}
	default:
		log.Printf("⚠️ /api/dashboard/get-me status %d", resp.StatusCode())
	}

	// Subscription.
	var stripe struct {
		DaysRemainingOnTrial     int    `json:"daysRemainingOnTrial"`
		Plan                     string `json:"plan"`
		Tier                     string `json:"tier"`
		MembershipType           string `json:"membershipType"`
		IndividualMembershipType string `json:"individualMembershipType"`
		SubscriptionStatus       string `json:"subscriptionStatus"`
		Subscription             struct {
			Plan string `json:"plan"`
			Tier string `json:"tier"`
		} `json:"subscription"`
	}
	switch resp, err := r.get(ctx, cookie, "/api/auth/stripe", &stripe); {
	case err != nil:
		log.Printf("⚠️ /api/auth/stripe failed: %v", err)
	case resp.StatusCode() == http.StatusUnauthorized:
		unauthorized = true
	case resp.IsSuccess():
		if stripe.DaysRemainingOnTrial > 0 {
			snap.PlanName = TrialPlanName
			snap.IsTrial = true
			snap.TrialDaysRemaining = stripe.DaysRemainingOnTrial
			snap.TrialExpiry = r.now().AddDate(0, 0, stripe.DaysRemainingOnTrial)
		} else {
			snap.PlanName = firstNonEmpty(
				stripe.Plan,
				stripe.Tier,
				stripe.Subscription.Plan,
				stripe.Subscription.Tier,
				stripe.MembershipType,
				stripe.IndividualMembershipType,
			)
		}
		if snap.PlanName != "" {
			hasAny = true
		}
		snap.SubscriptionStatus = stripe.SubscriptionStatus
	default:
		log.Printf("⚠️ /api/auth/stripe status %d", resp.StatusCode())
	}

	// Usage.
	var usage struct {
		IndividualUsage struct {
			Plan struct {
				Used      *int `json:"used"`
				Limit     *int `json:"limit"`
				Remaining *int `json:"remaining"`
				Enabled   bool `json:"enabled"`
			} `json:"plan"`
		} `json:"individualUsage"`
	}
	switch resp, err := r.get(ctx, cookie, "/api/usage-summary", &usage); {
	case err != nil:
		log.Printf("⚠️ /api/usage-summary failed: %v", err)
	case resp.IsSuccess():
		plan := usage.IndividualUsage.Plan
		if plan.Used != nil || plan.Limit != nil || plan.Remaining != nil {
			q := &Quota{Enabled: plan.Enabled}
			if plan.Used != nil {
				q.Used = *plan.Used
			}
			if plan.Limit != nil {
				q.Limit = *plan.Limit
			}
			if plan.Remaining != nil {
				q.Remaining = *plan.Remaining
			}
			snap.Quota = q
			hasAny = true
		}
	default:
		log.Printf("⚠️ /api/usage-summary status %d", resp.StatusCode())
	}

	if unauthorized {
		return nil, ErrNotAuthenticated
	}
	if !hasAny {
		return nil, ErrNoProfile
	}
	return snap, nil
}

func (r *Resolver) get(ctx context.Context, cookie, path string, out any) (*resty.Response, error) {
	return r.client.R().
		SetContext(ctx).
		SetHeader("Cookie", cookie).
		SetResult(out).
		Get(path)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
