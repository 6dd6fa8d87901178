package registry

import "encoding/json"

// Settings are the user-facing knobs persisted alongside the accounts.
type Settings struct {
	// DBPath overrides state-store auto-detection when set.
	DBPath string `json:"cursorDbPath"`
	// AppPath overrides the executable used for relaunch when set.
	AppPath string `json:"cursorAppPath"`
	// BatchRefreshSize bounds concurrent profile refreshes.
	BatchRefreshSize int `json:"batchRefreshSize"`
	// SwitchResetMachineID resets the telemetry identity on every switch.
	SwitchResetMachineID bool `json:"switchResetMachineId"`
	// SwitchClearHistory purges local history on every switch.
	SwitchClearHistory bool `json:"switchClearHistory"`
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	return Settings{
		BatchRefreshSize:     5,
		SwitchResetMachineID: true,
		SwitchClearHistory:   false,
	}
}

// applyDefaults fills in defaults for settings keys absent from the raw
// document. Needed because a plain decode cannot tell "false" or "0"
// apart from "missing".
func (s *Settings) applyDefaults(raw []byte) {
	var probe struct {
		Settings struct {
			BatchRefreshSize     *int  `json:"batchRefreshSize"`
			SwitchResetMachineID *bool `json:"switchResetMachineId"`
		} `json:"settings"`
	}
	_ = json.Unmarshal(raw, &probe)
	if probe.Settings.BatchRefreshSize == nil || s.BatchRefreshSize <= 0 {
		s.BatchRefreshSize = DefaultSettings().BatchRefreshSize
	}
	if probe.Settings.SwitchResetMachineID == nil {
		s.SwitchResetMachineID = DefaultSettings().SwitchResetMachineID
	}
}

// Settings returns the current settings.
func (r *Registry) Settings() Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc.Settings
}

// UpdateSettings replaces the settings, normalizing an invalid batch
// width back to the default.
func (r *Registry) UpdateSettings(s Settings) (Settings, error) {
	if s.BatchRefreshSize <= 0 {
		s.BatchRefreshSize = DefaultSettings().BatchRefreshSize
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc.Settings = s
	if err := r.save(); err != nil {
		return Settings{}, err
	}
	return s, nil
}
