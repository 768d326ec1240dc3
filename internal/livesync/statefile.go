package livesync

import (
	"os"
	"path/filepath"
	"strings"
)

// MarketKey is the persisted-state key for the last selected market.
const MarketKey = "brm_market"

// StateFile persists small client-state values as one file per key inside
// a directory. Values survive restarts; a missing file means no value.
type StateFile struct {
	dir string
}

// NewStateFile returns a state store rooted at dir.
func NewStateFile(dir string) *StateFile {
	return &StateFile{dir: dir}
}

// Get reads the value persisted under key.
func (s *StateFile) Get(key string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(s.dir, key))
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return "", false
	}
	return v, true
}

// Set persists value under key, creating the directory if needed.
func (s *StateFile) Set(key, value string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, key), []byte(value+"\n"), 0o644)
}
