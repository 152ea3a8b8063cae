package timer

import (
	"time"

	"pomoquest/internal/model"
)

// EventType defines the type of timer event.
type EventType string

const (
	EventTick        EventType = "tick"
	EventStateChange EventType = "state_change"
	EventCompleted   EventType = "completed"
	EventAborted     EventType = "aborted"
	EventBreakEnding EventType = "break_ending"
)

// Event represents a timer update for observers.
type Event struct {
	Type      EventType
	State     State
	Remaining time.Duration
	Record    model.SessionRecord
	At        time.Time
}
