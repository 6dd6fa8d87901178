package target

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	testMachineID    = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	testMacMachineID = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func TestPatchSource(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		wantCount int
		wantSub   string
	}{
		{
			name:      "method form",
			src:       `class T{getMachineId(){return this.cached}getMacMachineId(){return other()}}`,
			wantCount: 2,
			wantSub:   `getMachineId(){return"` + testMachineID + `"}`,
		},
		{
			name:      "function property form",
			src:       `var t={getMachineId:function(){return a.b},getMacMachineId:function(){return c.d}}`,
			wantCount: 2,
			wantSub:   `getMachineId:function(){return"` + testMachineID + `"}`,
		},
		{
			name:      "arrow form",
			src:       `t.getMachineId=()=>{return hw()};t.getMacMachineId=()=>{return mac()}`,
			wantCount: 2,
			wantSub:   `getMachineId=()=>{return"` + testMachineID + `"}`,
		},
		{
			name:      "only machine id present",
			src:       `getMachineId(){return x}`,
			wantCount: 1,
			wantSub:   `return"` + testMachineID + `"`,
		},
		{
			name:      "unrecognized shape untouched",
			src:       `function unrelated(){return 1}`,
			wantCount: 0,
			wantSub:   `function unrelated(){return 1}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, count := patchSource(tt.src, testMachineID, testMacMachineID)
			if count != tt.wantCount {
				t.Errorf("count = %d, want %d", count, tt.wantCount)
			}
			if !strings.Contains(got, tt.wantSub) {
				t.Errorf("patched source missing %q:\n%s", tt.wantSub, got)
			}
		})
	}
}

func TestPatchSourceMethodFormWins(t *testing.T) {
	// When the method form matches, the looser strategies must not run.
	src := `getMachineId(){return a}` + `;other.getMacMachineId=()=>{return b}`
	got, count := patchSource(src, testMachineID, testMacMachineID)
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	if !strings.Contains(got, `getMacMachineId=()=>{return b}`) {
		t.Errorf("arrow form rewritten despite method-form match:\n%s", got)
	}
}

func TestPatchMainJSCreatesBackupOnce(t *testing.T) {
	dir := t.TempDir()
	bundle := filepath.Join(dir, "main.js")
	original := `getMachineId(){return real()}`
	if err := os.WriteFile(bundle, []byte(original), 0o644); err != nil {
		t.Fatal(err)
	}

	count, err := PatchMainJS(bundle, testMachineID, testMacMachineID)
	if err != nil {
		t.Fatalf("PatchMainJS: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	backup, err := os.ReadFile(bundle + ".backup")
	if err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	if string(backup) != original {
		t.Errorf("backup = %q, want original source", backup)
	}

	// A second patch must not clobber the pristine backup.
	if _, err := PatchMainJS(bundle, testMachineID, testMacMachineID); err != nil {
		t.Fatalf("second PatchMainJS: %v", err)
	}
	backup, err = os.ReadFile(bundle + ".backup")
	if err != nil {
		t.Fatal(err)
	}
	if string(backup) != original {
		t.Errorf("backup overwritten on second patch")
	}
}

func TestPatchMainJSUnrecognizedBundle(t *testing.T) {
	dir := t.TempDir()
	bundle := filepath.Join(dir, "main.js")
	src := `function unrelated(){return 1}`
	if err := os.WriteFile(bundle, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	count, err := PatchMainJS(bundle, testMachineID, testMacMachineID)
	if err != nil {
		t.Fatalf("PatchMainJS: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
	got, _ := os.ReadFile(bundle)
	if string(got) != src {
		t.Errorf("unrecognized bundle was modified")
	}
}

func TestMainJSCandidates(t *testing.T) {
	tests := []struct {
		goos    string
		appPath string
		want    string
	}{
		{"darwin", "/Applications/Cursor.app", "/Applications/Cursor.app/Contents/Resources/app/out/main.js"},
		{"darwin", "/Applications/Cursor.app/Contents/MacOS/Cursor", "/Applications/Cursor.app/Contents/Resources/app/out/main.js"},
		{"linux", "/opt/cursor/cursor", "/opt/cursor/resources/app/out/main.js"},
	}
	for _, tt := range tests {
		paths := mainJSCandidates(tt.goos, tt.appPath)
		if len(paths) == 0 || paths[0] != tt.want {
			t.Errorf("mainJSCandidates(%q, %q)[0] = %v, want %q", tt.goos, tt.appPath, paths, tt.want)
		}
	}
}

func TestLocateHelpers(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present")
	if err := os.WriteFile(present, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if exists("") {
		t.Error("exists(\"\") = true")
	}
	if !exists(present) {
		t.Error("exists(present) = false")
	}
	got := firstExisting([]string{filepath.Join(dir, "missing"), present})
	if got != present {
		t.Errorf("firstExisting = %q, want %q", got, present)
	}
	if got := firstExisting([]string{filepath.Join(dir, "missing")}); got != "" {
		t.Errorf("firstExisting(all missing) = %q, want empty", got)
	}
}
