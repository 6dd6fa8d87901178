package statestore

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.vscdb"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testAccessToken(t *testing.T, sub string) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf(`{"sub":%q}`, sub)))
	return header + "." + payload + ".sig"
}

func TestStoreGetSetDelete(t *testing.T) {
	s := newTestStore(t)

	if _, found, err := s.Get("missing"); err != nil || found {
		t.Fatalf("Get(missing) = found=%v err=%v, want absent", found, err)
	}
	if err := s.Set("k", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("k", "v2"); err != nil {
		t.Fatal(err)
	}
	value, found, err := s.Get("k")
	if err != nil || !found || value != "v2" {
		t.Fatalf("Get(k) = %q found=%v err=%v, want v2", value, found, err)
	}
	if err := s.Delete("k"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := s.Get("k"); found {
		t.Fatal("key survived Delete")
	}
	// Deleting again must not error.
	if err := s.Delete("k"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestSwapCredentials(t *testing.T) {
	s := newTestStore(t)

	// Leftovers from a previous session plus a key the swap must not touch.
	if err := s.Set("telemetry.machineId", "old-machine"); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("cursorai/serverConfig", "old-config"); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("workbench.unrelated.setting", "keep-me"); err != nil {
		t.Fatal(err)
	}

	access := testAccessToken(t, "auth0|user_01AAAA")
	err := s.SwapCredentials(Credentials{
		Email:        "new@example.com",
		AccessToken:  access,
		RefreshToken: access,
	})
	if err != nil {
		t.Fatalf("SwapCredentials: %v", err)
	}

	for _, stale := range []string{"telemetry.machineId", "cursorai/serverConfig"} {
		if _, found, _ := s.Get(stale); found {
			t.Errorf("stale key %s survived the swap", stale)
		}
	}
	if v, _, _ := s.Get("workbench.unrelated.setting"); v != "keep-me" {
		t.Errorf("unrelated key modified: %q", v)
	}

	want := map[string]string{
		KeySignUpType:   SignUpTypeAuth0,
		KeyCachedEmail:  "new@example.com",
		KeyAccessToken:  access,
		KeyRefreshToken: access,
		KeyUserID:       "user_01AAAA", // recovered from the token payload
	}
	for key, wantValue := range want {
		value, found, err := s.Get(key)
		if err != nil || !found {
			t.Errorf("Get(%s) = found=%v err=%v", key, found, err)
			continue
		}
		if value != wantValue {
			t.Errorf("Get(%s) = %q, want %q", key, value, wantValue)
		}
	}
}

func TestSwapCredentialsExplicitSubjectWins(t *testing.T) {
	s := newTestStore(t)

	access := testAccessToken(t, "auth0|user_FROM_TOKEN")
	err := s.SwapCredentials(Credentials{
		Email:       "x@example.com",
		AccessToken: access,
		SubjectID:   "user_EXPLICIT",
	})
	if err != nil {
		t.Fatal(err)
	}
	if v, _, _ := s.Get(KeyUserID); v != "user_EXPLICIT" {
		t.Errorf("userId = %q, want user_EXPLICIT", v)
	}
}

func TestSwapCredentialsEmptyAccessToken(t *testing.T) {
	s := newTestStore(t)
	if err := s.Set("telemetry.machineId", "old"); err != nil {
		t.Fatal(err)
	}

	if err := s.SwapCredentials(Credentials{Email: "x@example.com"}); err == nil {
		t.Fatal("expected error for empty access token")
	}
	if _, found, _ := s.Get("telemetry.machineId"); !found {
		t.Error("store mutated despite rejected swap")
	}
}

func TestTransactionRollsBack(t *testing.T) {
	s := newTestStore(t)

	boom := errors.New("boom")
	err := s.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&Item{Key: "half", Value: "written"}).Error; err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transaction error = %v, want boom", err)
	}
	if _, found, _ := s.Get("half"); found {
		t.Error("write survived a rolled-back transaction")
	}
}

func TestReadAuth(t *testing.T) {
	s := newTestStore(t)

	state, err := s.ReadAuth()
	if err != nil {
		t.Fatal(err)
	}
	if state != (AuthState{}) {
		t.Fatalf("signed-out store read as %+v", state)
	}

	access := testAccessToken(t, "auth0|user_01BBBB")
	if err := s.SwapCredentials(Credentials{
		Email:        "who@example.com",
		AccessToken:  access,
		RefreshToken: access,
	}); err != nil {
		t.Fatal(err)
	}

	state, err = s.ReadAuth()
	if err != nil {
		t.Fatal(err)
	}
	if state.Email != "who@example.com" || state.AccessToken != access || state.SubjectID != "user_01BBBB" {
		t.Fatalf("ReadAuth = %+v", state)
	}
}

func TestResetIdentity(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "state.vscdb")
	storagePath := filepath.Join(dir, "storage.json")

	seed := map[string]any{
		"telemetry.machineId": "stale",
		"backupWorkspaces":    map[string]any{"folders": []any{}},
	}
	raw, _ := json.Marshal(seed)
	if err := os.WriteFile(storagePath, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	ids, err := ResetIdentity(dbPath)
	if err != nil {
		t.Fatalf("ResetIdentity: %v", err)
	}

	if !regexp.MustCompile(`^[0-9a-f]{64}$`).MatchString(ids.MachineID) {
		t.Errorf("machineId %q is not 64 hex chars", ids.MachineID)
	}
	if !regexp.MustCompile(`^[0-9a-f]{64}$`).MatchString(ids.MacMachineID) {
		t.Errorf("macMachineId %q is not 64 hex chars", ids.MacMachineID)
	}
	if ids.MachineID == ids.MacMachineID {
		t.Error("machineId and macMachineId should be independent")
	}
	if !regexp.MustCompile(`^\{[0-9A-F-]{36}\}$`).MatchString(ids.SqmID) {
		t.Errorf("sqmId %q is not a braced upper-case uuid", ids.SqmID)
	}

	out, err := os.ReadFile(storagePath)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatal(err)
	}
	if got["telemetry.machineId"] != ids.MachineID {
		t.Errorf("storage.json machineId = %v, want %s", got["telemetry.machineId"], ids.MachineID)
	}
	if got["telemetry.devDeviceId"] != ids.DevDeviceID {
		t.Errorf("storage.json devDeviceId = %v", got["telemetry.devDeviceId"])
	}
	if _, ok := got["backupWorkspaces"]; !ok {
		t.Error("unrelated storage.json key dropped by the merge")
	}
	if !strings.Contains(string(out), "    \"telemetry.machineId\"") {
		t.Error("storage.json not written with 4-space indentation")
	}
}

func TestResetIdentityMissingSidecar(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "state.vscdb")

	ids, err := ResetIdentity(dbPath)
	if err != nil {
		t.Fatalf("ResetIdentity without sidecar: %v", err)
	}
	out, err := os.ReadFile(filepath.Join(dir, "storage.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), ids.DevDeviceID) {
		t.Error("fresh sidecar missing generated ids")
	}
}

func TestPurgeHistory(t *testing.T) {
	userDir := t.TempDir()
	globalStorage := filepath.Join(userDir, "globalStorage")
	historyDir := filepath.Join(userDir, "History")
	workspaceDir := filepath.Join(userDir, "workspaceStorage")
	for _, d := range []string{globalStorage, filepath.Join(historyDir, "entry1"), filepath.Join(workspaceDir, "ws1")} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	dbPath := filepath.Join(globalStorage, "state.vscdb")
	for _, f := range []string{dbPath, dbPath + ".backup", filepath.Join(historyDir, "entry1", "file.json")} {
		if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	PurgeHistory(dbPath)

	for _, dir := range []string{historyDir, workspaceDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("%s removed entirely, want emptied: %v", dir, err)
		}
		if len(entries) != 0 {
			t.Errorf("%s not emptied: %v", dir, entries)
		}
	}
	for _, f := range []string{dbPath, dbPath + ".backup"} {
		if _, err := os.Stat(f); !os.IsNotExist(err) {
			t.Errorf("%s survived the purge", f)
		}
	}
}
