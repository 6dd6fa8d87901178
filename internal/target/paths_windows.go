//go:build windows

package target

import (
	"os"
	"path/filepath"
	"strings"
)

func defaultAppPaths() []string {
	localAppData := os.Getenv("LOCALAPPDATA")
	programFiles := os.Getenv("ProgramFiles")
	if programFiles == "" {
		programFiles = `C:\Program Files`
	}
	programFilesX86 := os.Getenv("ProgramFiles(x86)")
	if programFilesX86 == "" {
		programFilesX86 = `C:\Program Files (x86)`
	}

	var paths []string
	if localAppData != "" {
		paths = append(paths,
			filepath.Join(localAppData, "Programs", "cursor", "Cursor.exe"),
			filepath.Join(localAppData, "Programs", "Cursor", "Cursor.exe"),
			filepath.Join(localAppData, "cursor", "Cursor.exe"),
			filepath.Join(localAppData, "Cursor", "Cursor.exe"),
		)
	}
	paths = append(paths,
		filepath.Join(programFiles, "Cursor", "Cursor.exe"),
		filepath.Join(programFilesX86, "Cursor", "Cursor.exe"),
	)

	// Installers occasionally use versioned directory names under Programs.
	if localAppData != "" {
		programsDir := filepath.Join(localAppData, "Programs")
		if entries, err := os.ReadDir(programsDir); err == nil {
			for _, e := range entries {
				if e.IsDir() && strings.Contains(strings.ToLower(e.Name()), "cursor") {
					candidate := filepath.Join(programsDir, e.Name(), "Cursor.exe")
					paths = append(paths, candidate)
				}
			}
		}
	}
	return paths
}

func defaultDBPaths() []string {
	var paths []string
	if appData := os.Getenv("APPDATA"); appData != "" {
		paths = append(paths, filepath.Join(appData, "Cursor", "User", "globalStorage", "state.vscdb"))
	}
	if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
		paths = append(paths, filepath.Join(localAppData, "Cursor", "User", "globalStorage", "state.vscdb"))
	}
	return paths
}
