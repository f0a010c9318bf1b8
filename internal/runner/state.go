package runner

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"sort"
	"time"

	"hyprwall/internal/fileutil"
	"hyprwall/internal/media"
)

const stateVersion = 2

// MonitorState records one launched player.
type MonitorState struct {
	PID       int
	PGID      int
	File      string
	Mode      media.Mode
	StartedAt time.Time
	// Needle identifies the player in process sweeps. Defaults to File.
	Needle string
}

// State maps monitor names to their players.
type State struct {
	Monitors map[string]MonitorState
}

// Names returns the monitor names in order.
func (s State) Names() []string {
	names := make([]string, 0, len(s.Monitors))
	for name := range s.Monitors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Empty reports whether no monitor is recorded.
func (s State) Empty() bool { return len(s.Monitors) == 0 }

type wireMonitor struct {
	PID       int     `json:"pid"`
	PGID      int     `json:"pgid"`
	File      string  `json:"file"`
	Mode      string  `json:"mode"`
	StartedAt float64 `json:"started_at"`
	Needle    string  `json:"needle"`
}

type wireState struct {
	Version  int                    `json:"version"`
	Monitors map[string]wireMonitor `json:"monitors"`
}

// wireLegacy is the flat single-monitor document.
type wireLegacy struct {
	PID       *int    `json:"pid"`
	PGID      *int    `json:"pgid"`
	Monitor   string  `json:"monitor"`
	File      string  `json:"file"`
	Needle    string  `json:"needle"`
	Mode      string  `json:"mode"`
	StartedAt float64 `json:"started_at"`
}

// DecodeState parses either document shape. legacy reports the flat form.
func DecodeState(data []byte) (State, bool, error) {
	var probe struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return State{}, false, fmt.Errorf("decode state: %w", err)
	}

	if probe.Version != nil {
		if *probe.Version != stateVersion {
			return State{}, false, fmt.Errorf("unsupported state version %d", *probe.Version)
		}
		var doc wireState
		if err := json.Unmarshal(data, &doc); err != nil {
			return State{}, false, fmt.Errorf("decode state: %w", err)
		}
		state := State{Monitors: make(map[string]MonitorState, len(doc.Monitors))}
		for name, m := range doc.Monitors {
			state.Monitors[name] = fromWire(m.PID, m.PGID, m.File, m.Mode, m.StartedAt, m.Needle)
		}
		return state, false, nil
	}

	var legacy wireLegacy
	if err := json.Unmarshal(data, &legacy); err != nil {
		return State{}, false, fmt.Errorf("decode legacy state: %w", err)
	}
	if legacy.PID == nil || legacy.PGID == nil {
		return State{}, false, errors.New("decode legacy state: pid and pgid are required")
	}
	state := State{Monitors: map[string]MonitorState{
		legacy.Monitor: fromWire(*legacy.PID, *legacy.PGID, legacy.File, legacy.Mode, legacy.StartedAt, legacy.Needle),
	}}
	return state, true, nil
}

func fromWire(pid, pgid int, file, mode string, startedAt float64, needle string) MonitorState {
	if needle == "" {
		needle = file
	}
	if mode == "" {
		mode = string(media.ModeAuto)
	}
	return MonitorState{
		PID:       pid,
		PGID:      pgid,
		File:      file,
		Mode:      media.Mode(mode),
		StartedAt: fromUnixSeconds(startedAt),
		Needle:    needle,
	}
}

// EncodeState renders the versioned document.
func EncodeState(s State) ([]byte, error) {
	doc := wireState{Version: stateVersion, Monitors: make(map[string]wireMonitor, len(s.Monitors))}
	for name, m := range s.Monitors {
		needle := m.Needle
		if needle == "" {
			needle = m.File
		}
		doc.Monitors[name] = wireMonitor{
			PID:       m.PID,
			PGID:      m.PGID,
			File:      m.File,
			Mode:      string(m.Mode),
			StartedAt: unixSeconds(m.StartedAt),
			Needle:    needle,
		}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return append(data, '\n'), nil
}

// StateStore persists State at a path.
type StateStore struct {
	Path string
}

// Load returns an empty state when the file is missing.
func (s StateStore) Load() (State, bool, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return State{Monitors: map[string]MonitorState{}}, false, nil
		}
		return State{}, false, fmt.Errorf("read state: %w", err)
	}
	return DecodeState(data)
}

// Save writes state atomically, or removes the file when state is empty.
func (s StateStore) Save(state State) error {
	if state.Empty() {
		return s.Remove()
	}
	data, err := EncodeState(state)
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(s.Path, data, 0o644)
}

// Remove deletes the state file if present.
func (s StateStore) Remove() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove state: %w", err)
	}
	return nil
}

func unixSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / float64(time.Second)
}

func fromUnixSeconds(v float64) time.Time {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return time.Time{}
	}
	sec, frac := math.Modf(v)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}
