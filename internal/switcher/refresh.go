package switcher

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/cursorkit/switchboard/internal/profile"
	"github.com/cursorkit/switchboard/internal/registry"
	"github.com/cursorkit/switchboard/internal/statestore"
	"github.com/cursorkit/switchboard/internal/token"
)

// Refresh re-resolves the account's remote profile and stores the
// result. A failure is recorded on the account's lastError; success
// clears it.
func (o *Orchestrator) Refresh(ctx context.Context, accountID string) (registry.Account, error) {
	acct, ok := o.Registry.Get(accountID)
	if !ok {
		return registry.Account{}, fmt.Errorf("account %s not found", accountID)
	}
	updated, err := o.refreshOne(ctx, acct)
	if err != nil {
		if serr := o.Registry.SetLastError(acct.ID, err.Error()); serr != nil {
			log.Printf("⚠️ Record refresh failure for %s: %v", acct.ID, serr)
		}
		return registry.Account{}, err
	}
	return updated, nil
}

// RefreshAll refreshes every account with bounded concurrency. Each
// account is independent: one failure is recorded on that account only
// and never aborts the rest. Returns success and failure counts.
func (o *Orchestrator) RefreshAll(ctx context.Context) (succeeded, failed int) {
	accounts := o.Registry.List()
	width := o.Registry.Settings().BatchRefreshSize
	if width <= 0 {
		width = registry.DefaultSettings().BatchRefreshSize
	}

	var ok, bad atomic.Int64
	sem := make(chan struct{}, width)
	var wg sync.WaitGroup
	for _, acct := range accounts {
		wg.Add(1)
		sem <- struct{}{}
		go func(acct registry.Account) {
			defer wg.Done()
			defer func() { <-sem }()
			if _, err := o.Refresh(ctx, acct.ID); err != nil {
				log.Printf("⚠️ Refresh %s: %v", acct.ID, err)
				bad.Add(1)
				return
			}
			ok.Add(1)
		}(acct)
	}
	wg.Wait()
	return int(ok.Load()), int(bad.Load())
}

func (o *Orchestrator) refreshOne(ctx context.Context, acct registry.Account) (registry.Account, error) {
	forms, err := token.Normalize(bestCredential(acct))
	if err != nil {
		return registry.Account{}, fmt.Errorf("normalize credential: %w", err)
	}
	snap, err := o.Resolver.Resolve(ctx, forms)
	if err != nil {
		return registry.Account{}, err
	}

	acct.Profile = mergeSnapshot(acct.Profile, snap, forms)
	if acct.DisplayName == "" {
		acct.DisplayName = snap.Email
	}
	acct.LastError = ""
	return o.Registry.Update(acct)
}

// mergeSnapshot folds a resolved snapshot into the stored profile,
// keeping the credential encodings current.
func mergeSnapshot(prev *registry.Profile, snap *profile.Snapshot, forms *token.Forms) *registry.Profile {
	p := &registry.Profile{}
	if prev != nil {
		*p = *prev
	}
	if snap.SubjectID != "" {
		p.SubjectID = snap.SubjectID
	}
	if snap.Email != "" {
		p.Email = snap.Email
	}
	if snap.PlanName != "" {
		p.PlanName = snap.PlanName
	}
	p.IsTrial = snap.IsTrial
	p.TrialDaysRemaining = snap.TrialDaysRemaining
	if snap.Quota != nil {
		p.Quota = &registry.Quota{
			Used:      snap.Quota.Used,
			Limit:     snap.Quota.Limit,
			Remaining: snap.Quota.Remaining,
			Enabled:   snap.Quota.Enabled,
		}
	}
	if forms.LongLived != "" {
		p.LongLived = forms.LongLived
	}
	if forms.Composite != "" {
		p.Composite = forms.Composite
	} else if p.SubjectID != "" && forms.LongLived != "" {
		p.Composite = token.Compose(p.SubjectID, forms.LongLived)
	}
	return p
}

// SyncLocal imports the session the target application is currently
// signed in with: reads its state store, upserts a matching account,
// and activates it. The store is opened read-only.
func (o *Orchestrator) SyncLocal(ctx context.Context) (registry.Account, error) {
	settings := o.Registry.Settings()
	dbPath := settings.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath()
	}
	if dbPath == "" || !dirExists(filepath.Dir(dbPath)) {
		return registry.Account{}, ErrTargetNotInstalled
	}

	store, err := statestore.OpenReadOnly(dbPath)
	if err != nil {
		return registry.Account{}, fmt.Errorf("open local state: %w", err)
	}
	defer store.Close()

	state, err := store.ReadAuth()
	if err != nil {
		return registry.Account{}, err
	}
	if state.AccessToken == "" {
		return registry.Account{}, fmt.Errorf("target is signed out, nothing to sync")
	}

	subjectID := state.SubjectID
	if subjectID == "" {
		if claims, err := token.DecodePayload(state.AccessToken); err == nil {
			subjectID = claims.SubjectID()
		}
	}
	composite := ""
	if subjectID != "" {
		composite = token.Compose(subjectID, state.AccessToken)
	}
	raw := composite
	if raw == "" {
		raw = state.AccessToken
	}

	prof := &registry.Profile{
		SubjectID: subjectID,
		Email:     state.Email,
		LongLived: state.AccessToken,
		Composite: composite,
	}

	var acct registry.Account
	if existing, ok := o.Registry.FindByEmail(state.Email); ok && state.Email != "" {
		existing.RawCredential = raw
		if existing.Profile != nil {
			prof.PlanName = existing.Profile.PlanName
			prof.IsTrial = existing.Profile.IsTrial
			prof.TrialDaysRemaining = existing.Profile.TrialDaysRemaining
			prof.Quota = existing.Profile.Quota
		}
		existing.Profile = prof
		acct, err = o.Registry.Update(existing)
	} else {
		acct, err = o.Registry.Add(registry.Account{
			DisplayName:   state.Email,
			RawCredential: raw,
			Profile:       prof,
		})
	}
	if err != nil {
		return registry.Account{}, err
	}
	if err := o.Registry.SetActive(acct.ID); err != nil {
		return registry.Account{}, err
	}
	log.Printf("🔄 Synced local session for %s", state.Email)

	// Best effort: enrich the imported account with its remote profile.
	if refreshed, err := o.refreshOne(ctx, acct); err == nil {
		return refreshed, nil
	} else {
		log.Printf("⚠️ Sync profile fetch: %v", err)
	}
	acct, _ = o.Registry.Get(acct.ID)
	return acct, nil
}
