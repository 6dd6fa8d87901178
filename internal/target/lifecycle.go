// Package target controls the foreign application's lifecycle and locates
// its on-disk installation: terminate/relaunch across the three OS
// families, default install and state-store paths, and the telemetry
// patch applied to the application's bundled main.js.
package target

import (
	"context"
	"log"
	"runtime"
	"time"
)

// terminateGrace lets the quit commands settle before the caller touches
// the application's files.
const terminateGrace = 500 * time.Millisecond

// Controller drives the foreign application's process lifecycle.
type Controller struct {
	// AppPath is the explicitly configured executable; empty means the
	// per-OS default install locations.
	AppPath string
}

// Terminate asks the running application to quit. Termination is advisory:
// every failure is swallowed, because a still-running process surfaces
// later as a file-lock error that the caller handles separately. Returns
// after a fixed grace delay regardless of outcome.
func (c *Controller) Terminate(ctx context.Context) {
	for _, cmdline := range terminateCommands(runtime.GOOS) {
		if err := run(ctx, cmdline[0], cmdline[1:]...); err != nil {
			log.Printf("⚠️ Terminate: %v", err)
		}
	}
	select {
	case <-time.After(terminateGrace):
	case <-ctx.Done():
	}
}

// Relaunch starts the application again, preferring the given path, then
// the controller's configured path, then the default install locations.
// Fire-and-forget: failures are logged and given up on, never raised.
func (c *Controller) Relaunch(preferred string) {
	path := preferred
	if path == "" {
		path = c.AppPath
	}
	if path == "" || !exists(path) {
		path = firstExisting(defaultAppPaths())
	}

	name, args := launchCommand(runtime.GOOS, path)
	if name == "" {
		log.Printf("⚠️ Relaunch: no executable found, skipping")
		return
	}
	if err := execCommand(name, args...).Start(); err != nil {
		log.Printf("⚠️ Relaunch %s: %v", name, err)
		return
	}
	log.Printf("🔄 Relaunched target via %s", name)
}

func terminateCommands(goos string) [][]string {
	switch goos {
	case "darwin":
		return [][]string{
			{"osascript", "-e", `tell application "Cursor" to quit`},
			{"pkill", "-f", "Cursor.app"},
		}
	case "windows":
		return [][]string{
			{"taskkill", "/IM", "Cursor.exe", "/F"},
		}
	default:
		return [][]string{
			{"pkill", "-f", "cursor"},
		}
	}
}

func launchCommand(goos, path string) (name string, args []string) {
	switch goos {
	case "darwin":
		if path != "" {
			return "open", []string{"-a", path}
		}
		return "open", []string{"-a", "Cursor"}
	case "windows":
		if path == "" {
			return "", nil
		}
		return "cmd", []string{"/c", "start", "", path}
	default:
		if path != "" {
			return path, nil
		}
		return "cursor", nil
	}
}
