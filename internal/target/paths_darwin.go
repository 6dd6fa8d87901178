//go:build darwin

package target

import (
	"os"
	"path/filepath"
)

func defaultAppPaths() []string {
	paths := []string{
		"/Applications/Cursor.app",
		"/Applications/Cursor.app/Contents/MacOS/Cursor",
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, "Applications", "Cursor.app"),
			filepath.Join(home, "Applications", "Cursor.app", "Contents", "MacOS", "Cursor"),
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
		filepath.Join(home, "Library", "Application Support", "Cursor", "User", "globalStorage", "state.vscdb"),
	}
}
