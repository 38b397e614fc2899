package deps

// operation is the worker-side handle of one install or update.
type operation struct {
	id     string
	name   Name
	mode   Mode
	dep    Dependency
	events chan<- Event
	clock  Clock

	// percent is only touched by the worker goroutine
	percent int
}

func (op *operation) event(kind EventKind) Event {
	return Event{
		OperationID: op.id,
		Dependency:  op.name,
		Kind:        kind,
		Time:        op.clock.Now(),
	}
}

// setState always delivers, waiting for buffer space.
func (op *operation) setState(s State) {
	ev := op.event(EventState)
	ev.State = s
	op.events <- ev
}

// progress forwards increasing percentages and drops the event when the
// buffer is full.
func (op *operation) progress(percent int) {
	if percent > 100 {
		percent = 100
	}
	if percent <= op.percent {
		return
	}
	op.percent = percent

	ev := op.event(EventProgress)
	ev.Percent = percent
	select {
	case op.events <- ev:
	default:
	}
}

// finish delivers the terminal event.
func (op *operation) finish(success bool, reason, message, version string) {
	ev := op.event(EventFinished)
	ev.State = StateIdle
	ev.Success = success
	ev.Reason = reason
	ev.Message = message
	ev.Version = version
	op.events <- ev
}
