package httpapi

import (
	"sync"
	"time"

	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/deps"
	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/logging"
)

// Result is the outcome of the last finished operation of a dependency.
type Result struct {
	OperationID string    `json:"operation_id"`
	Success     bool      `json:"success"`
	Reason      string    `json:"reason"`
	Message     string    `json:"message"`
	Version     string    `json:"version,omitempty"`
	Time        time.Time `json:"time"`
}

// Progress is the live state of one dependency as seen on the event channel.
type Progress struct {
	State       deps.State `json:"state"`
	OperationID string     `json:"operation_id,omitempty"`
	Percent     int        `json:"percent"`
	LastResult  *Result    `json:"last_result,omitempty"`
}

// StatusBoard is the consumer of a manager's event channel. It folds events
// into a per-dependency Progress that handlers can read at any time.
type StatusBoard struct {
	logger logging.Logger

	mu    sync.RWMutex
	state map[deps.Name]Progress

	done chan struct{}
}

// NewStatusBoard creates an empty board.
func NewStatusBoard(logger logging.Logger) *StatusBoard {
	return &StatusBoard{
		logger: logging.OrNoop(logger),
		state:  make(map[deps.Name]Progress),
		done:   make(chan struct{}),
	}
}

// Run applies events until the channel is closed. It must be the only reader
// of events.
func (b *StatusBoard) Run(events <-chan deps.Event) {
	defer close(b.done)
	for ev := range events {
		b.Apply(ev)
	}
}

// Done is closed once Run has drained the event channel.
func (b *StatusBoard) Done() <-chan struct{} {
	return b.done
}

// Apply folds one event into the board.
func (b *StatusBoard) Apply(ev deps.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := b.state[ev.Dependency]
	switch ev.Kind {
	case deps.EventState:
		if p.OperationID != ev.OperationID {
			p.Percent = 0
		}
		p.State = ev.State
		p.OperationID = ev.OperationID
	case deps.EventProgress:
		// Late progress of an operation that already finished is ignored
		if p.OperationID != ev.OperationID {
			return
		}
		p.Percent = ev.Percent
	case deps.EventFinished:
		// A rejected request must not hide the operation that is still running
		if ev.Reason == deps.ReasonBusy && p.OperationID != "" {
			b.logger.Debug("ignored busy result", "dependency", ev.Dependency, "operation", ev.OperationID)
			return
		}
		p.State = ev.State
		p.OperationID = ""
		if ev.Success {
			p.Percent = 100
		}
		p.LastResult = &Result{
			OperationID: ev.OperationID,
			Success:     ev.Success,
			Reason:      ev.Reason,
			Message:     ev.Message,
			Version:     ev.Version,
			Time:        ev.Time,
		}
		b.logger.Info("operation result", "dependency", ev.Dependency, "reason", ev.Reason, "success", ev.Success)
	}
	b.state[ev.Dependency] = p
}

// Get returns the progress of name. Dependencies that never reported are idle.
func (b *StatusBoard) Get(name deps.Name) Progress {
	b.mu.RLock()
	defer b.mu.RUnlock()

	p, ok := b.state[name]
	if !ok {
		return Progress{State: deps.StateIdle}
	}
	if p.LastResult != nil {
		r := *p.LastResult
		p.LastResult = &r
	}
	return p
}
