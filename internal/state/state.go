// Package state persists the panel's position and visibility across runs.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const stateFileName = "ui_state.json"

// UIState is the shared persisted record for the panel and its minimized
// launcher surrogate. The two are mutually exclusive surfaces of one
// widget, so they share one position.
type UIState struct {
	Minimized bool `json:"minimized"`
	PosLeft   int  `json:"posLeft"`
	PosTop    int  `json:"posTop"`
	HasPos    bool `json:"hasPos"`
}

// Patch is a partial UIState update. Nil fields leave the stored value
// unchanged.
type Patch struct {
	Minimized *bool
	PosLeft   *int
	PosTop    *int
}

// PosPatch builds a patch updating only the shared position.
func PosPatch(left, top int) Patch {
	return Patch{PosLeft: &left, PosTop: &top}
}

// MinPatch builds a patch updating only the minimized flag.
func MinPatch(minimized bool) Patch {
	return Patch{Minimized: &minimized}
}

// Store reads and writes UIState as JSON at a fixed path. Persistence is
// best effort: errors are reported honestly at this boundary, and callers
// are expected to ignore them.
type Store struct {
	path string
}

// NewStore creates a store under XDG_STATE_HOME/chattoc (or
// ~/.local/state/chattoc).
func NewStore() *Store {
	return NewStoreAt(filepath.Join(stateDir(), stateFileName))
}

// NewStoreAt creates a store at an explicit path. Primarily for tests.
func NewStoreAt(path string) *Store {
	return &Store{path: path}
}

func stateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "chattoc")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "chattoc")
}

// Load returns the persisted state. Missing or corrupt data yields the
// zero default along with the underlying error; the returned state is
// always usable.
func (s *Store) Load() (UIState, error) {
	var st UIState
	data, err := os.ReadFile(s.path)
	if err != nil {
		return UIState{}, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return UIState{}, err
	}
	return st, nil
}

// Save shallow-merges patch into the persisted state and writes it back,
// returning the merged state. A save immediately followed by Load observes
// the save. Write failures still return the merged state.
func (s *Store) Save(p Patch) (UIState, error) {
	st, _ := s.Load()

	if p.Minimized != nil {
		st.Minimized = *p.Minimized
	}
	if p.PosLeft != nil {
		st.PosLeft = *p.PosLeft
		st.HasPos = true
	}
	if p.PosTop != nil {
		st.PosTop = *p.PosTop
		st.HasPos = true
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return st, err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return st, err
	}
	return st, os.WriteFile(s.path, data, 0644)
}
