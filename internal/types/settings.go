package types

import (
	"encoding/json"
	"time"
)

// Settings keys. Each key names a single row in the settings table.
const (
	SettingsDisplay    = "display"
	SettingsScheduling = "scheduling"
	SettingsSignup     = "signup"
	SettingsTimer      = "timer"
)

// SettingsKeys lists every known singleton settings row.
var SettingsKeys = []string{SettingsDisplay, SettingsScheduling, SettingsSignup, SettingsTimer}

// Display orientations.
const (
	OrientationHorizontal = "horizontal"
	OrientationVertical   = "vertical"
)

// DisplaySettings controls the streaming overlay.
type DisplaySettings struct {
	ResultsHidden bool   `json:"results_hidden"`
	Orientation   string `json:"orientation"`
}

// SchedulingSettings controls slot-based presenter scheduling.
type SchedulingSettings struct {
	Enabled     bool `json:"enabled"`
	SlotMinutes int  `json:"slot_minutes"`
}

// SignupSettings controls whether presenters may register.
type SignupSettings struct {
	Open bool `json:"open"`
}

// TimerState is the host countdown.
type TimerState struct {
	Running         bool       `json:"running"`
	DurationSeconds int        `json:"duration_seconds"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
}

// Remaining returns the time left on the countdown at now.
func (t TimerState) Remaining(now time.Time) time.Duration {
	total := time.Duration(t.DurationSeconds) * time.Second
	if !t.Running || t.StartedAt == nil {
		return total
	}
	left := total - now.Sub(*t.StartedAt)
	if left < 0 {
		return 0
	}
	return left
}

// SettingsRecord is a versioned singleton settings row.
type SettingsRecord struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Version   int64           `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// DefaultSettings returns the initial value for every settings key.
func DefaultSettings() map[string]any {
	return map[string]any{
		SettingsDisplay:    DisplaySettings{Orientation: OrientationHorizontal},
		SettingsScheduling: SchedulingSettings{SlotMinutes: 10},
		SettingsSignup:     SignupSettings{Open: true},
		SettingsTimer:      TimerState{DurationSeconds: 300},
	}
}
