//go:build linux

package target

import (
	"os"
	"path/filepath"
)

func defaultAppPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	paths := []string{
		"/usr/bin/cursor",
		"/usr/local/bin/cursor",
		"/opt/cursor/cursor",
		"/opt/Cursor/cursor",
		"/snap/bin/cursor",
		"/var/lib/flatpak/exports/bin/cursor",
	}
	if home != "" {
		paths = append(paths,
			filepath.Join(home, ".local", "bin", "cursor"),
			filepath.Join(home, "Applications", "cursor.AppImage"),
			filepath.Join(home, "Applications", "Cursor.AppImage"),
		)
	}
	return paths
}

func defaultDBPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(home, ".config", "Cursor", "User", "globalStorage", "state.vscdb"),
		filepath.Join(home, ".config", "cursor", "User", "globalStorage", "state.vscdb"),
	}
}
