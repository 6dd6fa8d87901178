package statestore

import (
	"log"
	"os"
	"path/filepath"
)

// PurgeHistory empties the target's local-history and workspace-storage
// directories and deletes the state database plus its backup. Best
// effort: individual failures are logged and skipped, because a locked
// file should not abort the rest of the cleanup. The database is
// recreated on the next Open.
func PurgeHistory(dbPath string) {
	userDir := filepath.Dir(filepath.Dir(dbPath)) // .../User

	emptyDir(filepath.Join(userDir, "History"))
	emptyDir(filepath.Join(userDir, "workspaceStorage"))

	for _, p := range []string{dbPath, dbPath + ".backup"} {
		if err := os.RemoveAll(p); err != nil {
			log.Printf("⚠️ Purge %s: %v", p, err)
		}
	}
	log.Printf("🧹 Purged history under %s", userDir)
}

// emptyDir removes the directory's entries but keeps the directory.
func emptyDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("⚠️ Purge read %s: %v", dir, err)
		}
		return
	}
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(p); err != nil {
			log.Printf("⚠️ Purge %s: %v", p, err)
		}
	}
}
