package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// DefaultPrefsPath is where viewer preferences are kept, relative to the working directory.
const DefaultPrefsPath = "config/viewer.json"

// Prefs are the debug overlay flags toggled from the console and kept across runs.
type Prefs struct {
	ShowFPS      bool `json:"show_fps"`
	ShowMemAlloc bool `json:"show_memalloc"`
}

// DefaultPrefs returns preferences with both overlays off.
func DefaultPrefs() Prefs {
	return Prefs{}
}

// LoadPrefs reads preferences from path. A missing or invalid file gives DefaultPrefs and no file
// is created.
func LoadPrefs(path string) Prefs {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultPrefs()
	}
	p := DefaultPrefs()
	if err := json.Unmarshal(data, &p); err != nil {
		return DefaultPrefs()
	}
	return p
}

// SavePrefs writes p to path, creating its directory if needed.
func SavePrefs(path string, p Prefs) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "\t")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
