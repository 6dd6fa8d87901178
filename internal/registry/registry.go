// Package registry persists the account list and user settings as a
// single JSON document. All mutations rewrite the file atomically, so a
// crash mid-save never leaves a torn document behind.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Quota is a point-in-time usage reading attached to an account.
type Quota struct {
	Used      int  `json:"used"`
	Limit     int  `json:"limit"`
	Remaining int  `json:"remaining"`
	Enabled   bool `json:"enabled"`
}

// Profile is the resolved identity snapshot stored with an account,
// including the two canonical credential encodings.
type Profile struct {
	SubjectID          string `json:"id,omitempty"`
	Email              string `json:"email,omitempty"`
	PlanName           string `json:"membershipType,omitempty"`
	IsTrial            bool   `json:"isTrial,omitempty"`
	TrialDaysRemaining int    `json:"trialDaysRemaining,omitempty"`
	Quota              *Quota `json:"quota,omitempty"`
	LongLived          string `json:"longTermToken,omitempty"`
	Composite          string `json:"cookieFormat,omitempty"`
}

// Account is one stored credential entry.
type Account struct {
	ID            string    `json:"id"`
	DisplayName   string    `json:"name"`
	RawCredential string    `json:"token"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createTime"`
	Profile       *Profile  `json:"accountInfo,omitempty"`
	LastError     string    `json:"lastError,omitempty"`
}

// document is the on-disk layout.
type document struct {
	Tokens   []Account `json:"tokens"`
	Settings Settings  `json:"settings"`
}

// Registry is the in-memory account list mirrored to a JSON file.
type Registry struct {
	mu   sync.Mutex
	path string
	doc  document
	now  func() time.Time
}

// Load reads the registry at path, applying defaults for anything
// missing. A nonexistent file yields an empty registry.
func Load(path string) (*Registry, error) {
	r := &Registry{path: path, now: time.Now}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			r.doc.Settings = DefaultSettings()
			return r, nil
		}
		return nil, fmt.Errorf("read registry: %w", err)
	}
	if err := json.Unmarshal(raw, &r.doc); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	r.doc.Settings.applyDefaults(raw)
	return r, nil
}

// Path returns the backing file path.
func (r *Registry) Path() string { return r.path }

// save writes the document to a sibling temp file and renames it into
// place. Callers hold r.mu.
func (r *Registry) save() error {
	out, err := json.MarshalIndent(r.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create registry dir: %w", err)
		}
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("commit registry: %w", err)
	}
	return nil
}

// List returns all accounts, newest first.
func (r *Registry) List() []Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Account, len(r.doc.Tokens))
	copy(out, r.doc.Tokens)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Get returns the account with the given id.
func (r *Registry) Get(id string) (Account, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.doc.Tokens {
		if a.ID == id {
			return a, true
		}
	}
	return Account{}, false
}

// Active returns the currently active account, if any.
func (r *Registry) Active() (Account, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.doc.Tokens {
		if a.IsActive {
			return a, true
		}
	}
	return Account{}, false
}

// FindByEmail returns the account whose resolved profile carries email.
func (r *Registry) FindByEmail(email string) (Account, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.doc.Tokens {
		if a.Profile != nil && a.Profile.Email == email {
			return a, true
		}
	}
	return Account{}, false
}

// Add stores a new account. A missing id is generated; a missing
// creation time is stamped now. Activating the new account deactivates
// every other one.
func (r *Registry) Add(acct Account) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	} else {
		for _, existing := range r.doc.Tokens {
			if existing.ID == acct.ID {
				return Account{}, fmt.Errorf("account %s already exists", acct.ID)
			}
		}
	}
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = r.now()
	}
	if acct.IsActive {
		for i := range r.doc.Tokens {
			r.doc.Tokens[i].IsActive = false
		}
	}
	r.doc.Tokens = append(r.doc.Tokens, acct)
	if err := r.save(); err != nil {
		return Account{}, err
	}
	return acct, nil
}

// Update replaces an existing account's mutable fields. The id and
// creation time are immutable, and a known profile subject id is never
// overwritten with an empty one.
func (r *Registry) Update(acct Account) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.doc.Tokens {
		if r.doc.Tokens[i].ID != acct.ID {
			continue
		}
		existing := &r.doc.Tokens[i]
		acct.CreatedAt = existing.CreatedAt
		if existing.Profile != nil && existing.Profile.SubjectID != "" {
			if acct.Profile == nil {
				p := *existing.Profile
				acct.Profile = &p
			} else if acct.Profile.SubjectID == "" {
				acct.Profile.SubjectID = existing.Profile.SubjectID
			}
		}
		if acct.IsActive && !existing.IsActive {
			for j := range r.doc.Tokens {
				r.doc.Tokens[j].IsActive = false
			}
		}
		*existing = acct
		if err := r.save(); err != nil {
			return Account{}, err
		}
		return acct, nil
	}
	return Account{}, fmt.Errorf("account %s not found", acct.ID)
}

// Delete removes the account with the given id.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, a := range r.doc.Tokens {
		if a.ID == id {
			r.doc.Tokens = append(r.doc.Tokens[:i], r.doc.Tokens[i+1:]...)
			return r.save()
		}
	}
	return fmt.Errorf("account %s not found", id)
}

// DeleteByPlan bulk-removes accounts whose resolved plan matches tier
// (case-insensitive). Accounts with no resolved plan are untouched.
// Returns how many were removed.
func (r *Registry) DeleteByPlan(tier string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := strings.ToLower(strings.TrimSpace(tier))
	kept := r.doc.Tokens[:0]
	removed := 0
	for _, a := range r.doc.Tokens {
		if a.Profile != nil && strings.ToLower(a.Profile.PlanName) == want {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	r.doc.Tokens = kept
	if removed == 0 {
		return 0, nil
	}
	return removed, r.save()
}

// SetActive marks the given account active and every other inactive.
func (r *Registry) SetActive(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	found := false
	for i := range r.doc.Tokens {
		active := r.doc.Tokens[i].ID == id
		r.doc.Tokens[i].IsActive = active
		if active {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("account %s not found", id)
	}
	return r.save()
}

// SetLastError records a refresh failure on the account; empty clears it.
func (r *Registry) SetLastError(id, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.doc.Tokens {
		if r.doc.Tokens[i].ID == id {
			r.doc.Tokens[i].LastError = message
			return r.save()
		}
	}
	return fmt.Errorf("account %s not found", id)
}
