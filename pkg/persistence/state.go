package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spvis/spvis-go/pkg/session"
)

// StateVersion is the current version of the settings file format.
const StateVersion = 1

// SettingsState is the content of a settings file.
type SettingsState struct {
	// Version is the settings file format version.
	Version int `json:"version"`

	// SavedAt is when the file was last written.
	SavedAt time.Time `json:"saved_at"`

	// Devices maps serial numbers to their last applied settings.
	Devices map[string]DeviceSettings `json:"devices,omitempty"`
}

// DeviceSettings is the saved configuration of one spectrometer.
type DeviceSettings struct {
	session.Settings

	// SavedAt is when this device's settings were captured.
	SavedAt time.Time `json:"saved_at"`
}

// Serials returns the saved serial numbers in sorted order.
func (s *SettingsState) Serials() []string {
	serials := make([]string, 0, len(s.Devices))
	for sn := range s.Devices {
		serials = append(serials, sn)
	}
	sort.Strings(serials)
	return serials
}

// SettingsStore manages persistence of device settings to a JSON file.
type SettingsStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewSettingsStore creates a new settings store.
func NewSettingsStore(path string) *SettingsStore {
	return &SettingsStore{path: path, now: time.Now}
}

// Path returns the file the store writes to.
func (s *SettingsStore) Path() string {
	return s.path
}

// Save persists the state to disk.
func (s *SettingsStore) Save(state *SettingsState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(state)
}

func (s *SettingsStore) save(state *SettingsState) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	state.Version = StateVersion
	state.SavedAt = s.now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Load reads the state from disk.
// Returns nil, nil if the file doesn't exist (empty state).
func (s *SettingsStore) Load() (*SettingsState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *SettingsStore) load() (*SettingsState, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	state := &SettingsState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if state.Version > StateVersion {
		return nil, fmt.Errorf("%s: unsupported settings version %d", s.path, state.Version)
	}
	return state, nil
}

// SaveSnapshot merges a session snapshot into the file. Devices not in the
// snapshot keep their earlier entries.
func (s *SettingsStore) SaveSnapshot(snapshot map[string]session.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return err
	}
	if state == nil {
		state = &SettingsState{}
	}
	if state.Devices == nil {
		state.Devices = make(map[string]DeviceSettings)
	}

	now := s.now()
	for serial, settings := range snapshot {
		state.Devices[serial] = DeviceSettings{Settings: settings, SavedAt: now}
	}
	return s.save(state)
}

// Lookup returns the saved settings for serial.
func (s *SettingsStore) Lookup(serial string) (session.Settings, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil || state == nil {
		return session.Settings{}, false, err
	}
	d, ok := state.Devices[serial]
	return d.Settings, ok, nil
}

// Forget removes the entry for serial.
func (s *SettingsStore) Forget(serial string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil || state == nil {
		return err
	}
	if _, ok := state.Devices[serial]; !ok {
		return nil
	}
	delete(state.Devices, serial)
	return s.save(state)
}

// Clear removes the settings file.
func (s *SettingsStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
