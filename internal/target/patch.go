package target

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Patch strategies for the application's bundled main.js, tried in order.
// The bundle is minified, so each pattern only matches a one-level body.
var (
	machineIDMethodRe    = regexp.MustCompile(`getMachineId\s*\(\s*\)\s*\{[^}]+\}`)
	macMachineIDMethodRe = regexp.MustCompile(`getMacMachineId\s*\(\s*\)\s*\{[^}]+\}`)

	machineIDFuncRe    = regexp.MustCompile(`(getMachineId\s*[:=]\s*function\s*\(\s*\)\s*\{)[^}]+(\})`)
	macMachineIDFuncRe = regexp.MustCompile(`(getMacMachineId\s*[:=]\s*function\s*\(\s*\)\s*\{)[^}]+(\})`)

	machineIDArrowRe    = regexp.MustCompile(`(getMachineId\s*=\s*\(\s*\)\s*=>\s*\{)[^}]+(\})`)
	macMachineIDArrowRe = regexp.MustCompile(`(getMacMachineId\s*=\s*\(\s*\)\s*=>\s*\{)[^}]+(\})`)
)

// patchSource rewrites the machine-id getters in a main.js bundle so they
// return the given fixed ids. Returns the patched source and how many
// getters were rewritten; zero means the bundle's shape was not recognized.
func patchSource(src, machineID, macMachineID string) (string, int) {
	patched := 0

	if machineIDMethodRe.MatchString(src) {
		src = machineIDMethodRe.ReplaceAllString(src, fmt.Sprintf(`getMachineId(){return"%s"}`, machineID))
		patched++
	}
	if macMachineIDMethodRe.MatchString(src) {
		src = macMachineIDMethodRe.ReplaceAllString(src, fmt.Sprintf(`getMacMachineId(){return"%s"}`, macMachineID))
		patched++
	}
	if patched > 0 {
		return src, patched
	}

	if machineIDFuncRe.MatchString(src) {
		src = machineIDFuncRe.ReplaceAllString(src, fmt.Sprintf(`${1}return"%s"${2}`, machineID))
		patched++
	}
	if macMachineIDFuncRe.MatchString(src) {
		src = macMachineIDFuncRe.ReplaceAllString(src, fmt.Sprintf(`${1}return"%s"${2}`, macMachineID))
		patched++
	}
	if patched > 0 {
		return src, patched
	}

	if machineIDArrowRe.MatchString(src) {
		src = machineIDArrowRe.ReplaceAllString(src, fmt.Sprintf(`${1}return"%s"${2}`, machineID))
		patched++
	}
	if macMachineIDArrowRe.MatchString(src) {
		src = macMachineIDArrowRe.ReplaceAllString(src, fmt.Sprintf(`${1}return"%s"${2}`, macMachineID))
		patched++
	}
	return src, patched
}

// MainJSPath derives the bundled main.js location from a configured
// executable path, falling back to the per-OS default install location.
// Returns "" when no candidate exists on disk.
func MainJSPath(goos, appPath string) string {
	for _, p := range mainJSCandidates(goos, appPath) {
		if exists(p) {
			return p
		}
	}
	return ""
}

func mainJSCandidates(goos, appPath string) []string {
	var paths []string
	if appPath != "" {
		switch goos {
		case "darwin":
			if strings.HasSuffix(appPath, ".app") {
				paths = append(paths, filepath.Join(appPath, "Contents", "Resources", "app", "out", "main.js"))
			} else {
				// Cursor.app/Contents/MacOS/Cursor
				bundle := filepath.Dir(filepath.Dir(filepath.Dir(appPath)))
				paths = append(paths, filepath.Join(bundle, "Resources", "app", "out", "main.js"))
			}
		default:
			paths = append(paths, filepath.Join(filepath.Dir(appPath), "resources", "app", "out", "main.js"))
		}
	}
	switch goos {
	case "darwin":
		paths = append(paths, "/Applications/Cursor.app/Contents/Resources/app/out/main.js")
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			paths = append(paths, filepath.Join(localAppData, "Programs", "cursor", "resources", "app", "out", "main.js"))
		}
	}
	return paths
}

// PatchMainJS backs up and patches the machine-id getters in the bundle
// at path. The backup is written once and never overwritten, so the
// pristine bundle survives repeated patches. A bundle whose shape no
// strategy recognizes is left untouched and reported via the count.
func PatchMainJS(path, machineID, macMachineID string) (int, error) {
	backupPath := path + ".backup"
	original, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read bundle: %w", err)
	}
	if !exists(backupPath) {
		if err := os.WriteFile(backupPath, original, 0o644); err != nil {
			return 0, fmt.Errorf("write backup: %w", err)
		}
		log.Printf("✅ Created bundle backup %s", backupPath)
	}

	patched, count := patchSource(string(original), machineID, macMachineID)
	if count == 0 {
		log.Printf("⚠️ No machine-id getter matched in %s, bundle left untouched", path)
		return 0, nil
	}
	if err := os.WriteFile(path, []byte(patched), 0o644); err != nil {
		return 0, fmt.Errorf("write bundle: %w", err)
	}
	log.Printf("✅ Patched %d machine-id getter(s) in %s", count, path)
	return count, nil
}
