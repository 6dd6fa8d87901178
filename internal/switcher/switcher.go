// Package switcher orchestrates an account switch end to end: credential
// upgrade, process teardown, state-store mutation, and relaunch, with an
// ordered progress stream for the UI.
package switcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/cursorkit/switchboard/internal/logging"
	"github.com/cursorkit/switchboard/internal/negotiate"
	"github.com/cursorkit/switchboard/internal/profile"
	"github.com/cursorkit/switchboard/internal/registry"
	"github.com/cursorkit/switchboard/internal/statestore"
	"github.com/cursorkit/switchboard/internal/target"
	"github.com/cursorkit/switchboard/internal/token"
)

// ErrTargetNotInstalled means the target application's data directory is
// missing. Distinct from generic failure so the UI can offer a path
// configuration remedy.
var ErrTargetNotInstalled = errors.New("target application not found, configure its path in settings")

// Step names one stage of the switch, in the order the UI renders them.
type Step string

const (
	StepGetToken       Step = "GET_TOKEN"
	StepKillTarget     Step = "KILL_CURSOR"
	StepClearHistory   Step = "CLEAR_HISTORY"
	StepResetMachineID Step = "RESET_MACHINE_ID"
	StepUpdateDB       Step = "UPDATE_DB"
	StepRestart        Step = "RESTART"
	StepDone           Step = "DONE"
	StepError          Step = "ERROR"
)

// Progress is one event in the switch's ordered progress stream.
type Progress struct {
	Step    Step   `json:"step"`
	Percent int    `json:"progress"`
	Message string `json:"message"`
}

// Sink receives progress events. A nil sink discards them.
type Sink func(Progress)

// Options toggles the optional cleanup stages of a switch.
type Options struct {
	ResetIdentity bool `json:"resetIdentity"`
	PurgeHistory  bool `json:"purgeHistory"`
}

// Upgrader negotiates short-lived session material into a long-lived
// credential pair.
type Upgrader interface {
	Upgrade(ctx context.Context, sessionToken string) (*negotiate.Credentials, error)
}

// Lifecycle controls the target application's process.
type Lifecycle interface {
	Terminate(ctx context.Context)
	Relaunch(preferred string)
}

// ProfileResolver fetches the remote identity snapshot for a credential.
type ProfileResolver interface {
	Resolve(ctx context.Context, forms *token.Forms) (*profile.Snapshot, error)
}

// Stubbed in tests.
var defaultDBPath = target.DefaultDBPath

// settleDelay gives the swapped database a moment to sync to disk
// before the target is relaunched.
const settleDelay = 800 * time.Millisecond

// Orchestrator wires the switch pipeline together.
type Orchestrator struct {
	Registry  *registry.Registry
	Resolver  ProfileResolver
	Upgrader  Upgrader
	Lifecycle Lifecycle

	// Settle overrides the relaunch settle delay; zero means the default.
	Settle time.Duration
}

// DefaultOptions derives switch options from the stored settings.
func (o *Orchestrator) DefaultOptions() Options {
	s := o.Registry.Settings()
	return Options{
		ResetIdentity: s.SwitchResetMachineID,
		PurgeHistory:  s.SwitchClearHistory,
	}
}

// Switch activates the account: negotiates fresh credentials, tears the
// target down, mutates its state store, and relaunches it. Stages run
// strictly in order; each emits one progress event before executing.
// The account's active flag flips only after the credential swap commits.
func (o *Orchestrator) Switch(ctx context.Context, accountID string, opts Options, sink Sink) error {
	emit := func(p Progress) {
		if sink != nil {
			sink(p)
		}
	}
	fail := func(err error) error {
		emit(Progress{Step: StepError, Percent: 0, Message: err.Error()})
		return err
	}

	acct, ok := o.Registry.Get(accountID)
	if !ok {
		return fail(fmt.Errorf("account %s not found", accountID))
	}

	emit(Progress{Step: StepGetToken, Percent: 10, Message: "Negotiating long-lived credentials..."})
	session := bestCredential(acct)
	if session == "" {
		return fail(fmt.Errorf("account %s has no usable credential", accountID))
	}
	creds, err := o.Upgrader.Upgrade(ctx, session)
	if err != nil {
		// Nothing has been mutated yet, the account and target are untouched.
		return fail(fmt.Errorf("credential upgrade: %w", err))
	}

	settings := o.Registry.Settings()
	dbPath := settings.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath()
	}
	if dbPath == "" {
		return fail(ErrTargetNotInstalled)
	}

	emit(Progress{Step: StepKillTarget, Percent: 30, Message: "Stopping the target application..."})
	o.Lifecycle.Terminate(ctx)

	if opts.PurgeHistory {
		emit(Progress{Step: StepClearHistory, Percent: 40, Message: "Clearing local history..."})
		statestore.PurgeHistory(dbPath)
	}
	if opts.ResetIdentity {
		emit(Progress{Step: StepResetMachineID, Percent: 50, Message: "Resetting machine identity..."})
		o.resetIdentity(dbPath, settings.AppPath)
	}

	if !dirExists(filepath.Dir(dbPath)) {
		return fail(fmt.Errorf("%w: %s", ErrTargetNotInstalled, dbPath))
	}

	emit(Progress{Step: StepUpdateDB, Percent: 60, Message: "Writing account credentials..."})
	if err := o.swap(dbPath, acct, creds); err != nil {
		return fail(fmt.Errorf("credential swap: %w", err))
	}

	if err := o.Registry.SetActive(accountID); err != nil {
		log.Printf("⚠️ Activate %s: %v", accountID, err)
	}

	emit(Progress{Step: StepRestart, Percent: 90, Message: "Restarting the target application..."})
	settle := o.Settle
	if settle == 0 {
		settle = settleDelay
	}
	select {
	case <-time.After(settle):
	case <-ctx.Done():
	}
	o.Lifecycle.Relaunch(settings.AppPath)

	emit(Progress{Step: StepDone, Percent: 100, Message: "Switch complete"})
	if opID := logging.OperationID(ctx); opID != "" {
		log.Printf("🎉 [%s] Switched to account %s", opID, accountID)
	} else {
		log.Printf("🎉 Switched to account %s", accountID)
	}
	return nil
}

// swap opens the state store read-write, replaces the session inside one
// transaction, and always closes the handle before returning.
func (o *Orchestrator) swap(dbPath string, acct registry.Account, creds *negotiate.Credentials) error {
	store, err := statestore.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	swap := statestore.Credentials{
		AccessToken:  creds.Access,
		RefreshToken: creds.Refresh,
	}
	if acct.Profile != nil {
		swap.Email = acct.Profile.Email
		swap.SubjectID = acct.Profile.SubjectID
	}
	return store.SwapCredentials(swap)
}

// resetIdentity rewrites the telemetry sidecar and patches the target's
// bundle. Best effort: a locked or missing bundle only degrades the
// reset, never the switch.
func (o *Orchestrator) resetIdentity(dbPath, appPath string) {
	ids, err := statestore.ResetIdentity(dbPath)
	if err != nil {
		log.Printf("⚠️ Identity reset: %v", err)
		return
	}
	bundle := target.MainJSPath(runtime.GOOS, appPath)
	if bundle == "" {
		log.Printf("⚠️ Bundle not found, telemetry sidecar updated only")
		return
	}
	if _, err := target.PatchMainJS(bundle, ids.MachineID, ids.MacMachineID); err != nil {
		log.Printf("⚠️ Bundle patch: %v", err)
	}
}

// bestCredential picks the account's most usable stored credential:
// composite cookie form, then the long-lived form, then the raw field.
func bestCredential(acct registry.Account) string {
	if acct.Profile != nil {
		if acct.Profile.Composite != "" {
			return acct.Profile.Composite
		}
		if acct.Profile.LongLived != "" {
			return acct.Profile.LongLived
		}
	}
	return acct.RawCredential
}

func dirExists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}
