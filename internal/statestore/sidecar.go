package statestore

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// TelemetryIDs is a freshly generated machine identity.
type TelemetryIDs struct {
	MachineID    string `json:"telemetry.machineId"`
	MacMachineID string `json:"telemetry.macMachineId"`
	DevDeviceID  string `json:"telemetry.devDeviceId"`
	SqmID        string `json:"telemetry.sqmId"`
}

// NewTelemetryIDs generates a random identity in the formats the target
// expects: 64-hex machine ids, a plain UUID device id, and an
// upper-cased braced UUID sqm id.
func NewTelemetryIDs() TelemetryIDs {
	return TelemetryIDs{
		MachineID:    randomHex(32),
		MacMachineID: randomHex(32),
		DevDeviceID:  uuid.NewString(),
		SqmID:        "{" + strings.ToUpper(uuid.NewString()) + "}",
	}
}

func randomHex(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// ResetIdentity writes a fresh telemetry identity into the storage.json
// sidecar next to the state store. Unrelated keys in the sidecar are
// preserved; only the four telemetry ids are replaced. Returns the ids
// so the caller can also patch the application bundle.
func ResetIdentity(dbPath string) (TelemetryIDs, error) {
	ids := NewTelemetryIDs()
	storagePath := filepath.Join(filepath.Dir(dbPath), "storage.json")

	data := map[string]any{}
	if raw, err := os.ReadFile(storagePath); err == nil {
		if err := json.Unmarshal(raw, &data); err != nil {
			log.Printf("⚠️ Unreadable %s, starting from an empty document", storagePath)
			data = map[string]any{}
		}
	} else if !os.IsNotExist(err) {
		return TelemetryIDs{}, fmt.Errorf("read storage.json: %w", err)
	}

	data["telemetry.machineId"] = ids.MachineID
	data["telemetry.macMachineId"] = ids.MacMachineID
	data["telemetry.devDeviceId"] = ids.DevDeviceID
	data["telemetry.sqmId"] = ids.SqmID

	out, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return TelemetryIDs{}, fmt.Errorf("encode storage.json: %w", err)
	}
	if err := os.WriteFile(storagePath, out, 0o644); err != nil {
		return TelemetryIDs{}, fmt.Errorf("write storage.json: %w", err)
	}
	log.Printf("✅ Reset telemetry identity in %s", storagePath)
	return ids, nil
}
