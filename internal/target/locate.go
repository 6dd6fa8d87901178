package target

import "os"

// ScanResult reports what a filesystem scan for the application found.
type ScanResult struct {
	AppPath string `json:"appPath"`
	DBPath  string `json:"dbPath"`
	Scanned int    `json:"scanned"`
	Found   bool   `json:"found"`
}

// Scan probes the per-OS default install and state-store locations and
// returns the first hit of each.
func Scan() ScanResult {
	apps := defaultAppPaths()
	dbs := defaultDBPaths()
	r := ScanResult{
		AppPath: firstExisting(apps),
		DBPath:  firstExisting(dbs),
		Scanned: len(apps) + len(dbs),
	}
	r.Found = r.AppPath != "" || r.DBPath != ""
	return r
}

// DefaultDBPath returns the first existing default state-store path, or
// the primary default location when none exists yet.
func DefaultDBPath() string {
	paths := defaultDBPaths()
	if p := firstExisting(paths); p != "" {
		return p
	}
	if len(paths) > 0 {
		return paths[0]
	}
	return ""
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func firstExisting(paths []string) string {
	for _, p := range paths {
		if exists(p) {
			return p
		}
	}
	return ""
}
