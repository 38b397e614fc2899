package deps

import "time"

// Mode selects how the pipeline treats an already installed version.
type Mode int

const (
	// ModeForceInstall downloads and installs the latest release.
	ModeForceInstall Mode = iota
	// ModeCompareThenInstall installs only when the latest release differs
	// from the recorded version.
	ModeCompareThenInstall
)

// String returns the mode name used in metrics and logs.
func (m Mode) String() string {
	if m == ModeCompareThenInstall {
		return "update"
	}
	return "install"
}

// State is the lifecycle state of a dependency.
type State string

const (
	StateIdle            State = "idle"
	StateChecking        State = "checking"
	StateInstalling      State = "installing"
	StateUpdateAvailable State = "update-available"
	StateUpToDate        State = "up-to-date"
	StateFailed          State = "failed"
)

// EventKind distinguishes the three kinds of Event.
type EventKind string

const (
	EventState    EventKind = "state"
	EventProgress EventKind = "progress"
	EventFinished EventKind = "finished"
)

// Reasons reported on finished events besides the failure reasons.
const (
	ReasonDownloaded        = "downloaded"
	ReasonUpdated           = "updated"
	ReasonNoUpdates         = "no-updates"
	ReasonBusy              = "busy"
	ReasonUnknownDependency = "unknown-dependency"
)

// Event reports the progress of an operation. Events are values; receivers
// may keep them.
type Event struct {
	OperationID string
	Dependency  Name
	Kind        EventKind
	Time        time.Time

	// State is set on state and finished events.
	State State
	// Percent is set on progress events, 0-100.
	Percent int

	// Set on finished events only.
	Success bool
	Reason  string
	Message string
	Version string
}

// IsTerminal reports whether this is the last event of its operation.
func (e Event) IsTerminal() bool {
	return e.Kind == EventFinished
}
