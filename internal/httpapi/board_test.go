package httpapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/deps"
)

func stateEvent(op string, state deps.State) deps.Event {
	return deps.Event{OperationID: op, Dependency: deps.Downloader, Kind: deps.EventState, State: state}
}

func progressEvent(op string, percent int) deps.Event {
	return deps.Event{OperationID: op, Dependency: deps.Downloader, Kind: deps.EventProgress, Percent: percent}
}

func finishedEvent(op string, success bool, reason string) deps.Event {
	return deps.Event{
		OperationID: op,
		Dependency:  deps.Downloader,
		Kind:        deps.EventFinished,
		State:       deps.StateIdle,
		Success:     success,
		Reason:      reason,
		Time:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestStatusBoard_Get_NeverReported(t *testing.T) {
	t.Parallel()

	// given
	board := NewStatusBoard(nil)

	// when
	p := board.Get(deps.Transcoder)

	// then
	assert.Equal(t, Progress{State: deps.StateIdle}, p)
}

func TestStatusBoard_Apply_OperationLifecycle(t *testing.T) {
	t.Parallel()

	// given
	board := NewStatusBoard(nil)

	// when
	board.Apply(stateEvent("op1", deps.StateChecking))
	board.Apply(stateEvent("op1", deps.StateInstalling))
	board.Apply(progressEvent("op1", 40))
	running := board.Get(deps.Downloader)
	board.Apply(finishedEvent("op1", true, deps.ReasonDownloaded))
	finished := board.Get(deps.Downloader)

	// then
	assert.Equal(t, deps.StateInstalling, running.State)
	assert.Equal(t, "op1", running.OperationID)
	assert.Equal(t, 40, running.Percent)
	assert.Nil(t, running.LastResult)

	assert.Equal(t, deps.StateIdle, finished.State)
	assert.Empty(t, finished.OperationID)
	assert.Equal(t, 100, finished.Percent)
	require.NotNil(t, finished.LastResult)
	assert.Equal(t, "op1", finished.LastResult.OperationID)
	assert.True(t, finished.LastResult.Success)
	assert.Equal(t, deps.ReasonDownloaded, finished.LastResult.Reason)
}

func TestStatusBoard_Apply_NewOperationResetsPercent(t *testing.T) {
	t.Parallel()

	// given
	board := NewStatusBoard(nil)
	board.Apply(stateEvent("op1", deps.StateInstalling))
	board.Apply(progressEvent("op1", 70))
	board.Apply(finishedEvent("op1", false, "fetch-error"))

	// when
	board.Apply(stateEvent("op2", deps.StateChecking))

	// then
	p := board.Get(deps.Downloader)
	assert.Equal(t, 0, p.Percent)
	assert.Equal(t, "op2", p.OperationID)
	require.NotNil(t, p.LastResult)
	assert.Equal(t, "fetch-error", p.LastResult.Reason)
}

func TestStatusBoard_Apply_IgnoresForeignProgress(t *testing.T) {
	t.Parallel()

	// given
	board := NewStatusBoard(nil)
	board.Apply(stateEvent("op2", deps.StateInstalling))

	// when
	board.Apply(progressEvent("op1", 90))

	// then
	assert.Equal(t, 0, board.Get(deps.Downloader).Percent)
}

func TestStatusBoard_Apply_BusyRejectionKeepsRunningOperation(t *testing.T) {
	t.Parallel()

	// given
	board := NewStatusBoard(nil)
	board.Apply(stateEvent("op1", deps.StateInstalling))

	// when
	board.Apply(finishedEvent("op2", false, deps.ReasonBusy))

	// then
	p := board.Get(deps.Downloader)
	assert.Equal(t, deps.StateInstalling, p.State)
	assert.Equal(t, "op1", p.OperationID)
	assert.Nil(t, p.LastResult)
}

func TestStatusBoard_Get_ReturnsCopy(t *testing.T) {
	t.Parallel()

	// given
	board := NewStatusBoard(nil)
	board.Apply(finishedEvent("op1", true, deps.ReasonUpdated))

	// when
	board.Get(deps.Downloader).LastResult.Reason = "tampered"

	// then
	assert.Equal(t, deps.ReasonUpdated, board.Get(deps.Downloader).LastResult.Reason)
}

func TestStatusBoard_Run_DrainsUntilClosed(t *testing.T) {
	t.Parallel()

	// given
	board := NewStatusBoard(nil)
	events := make(chan deps.Event, 3)
	events <- stateEvent("op1", deps.StateChecking)
	events <- stateEvent("op1", deps.StateUpToDate)
	events <- finishedEvent("op1", true, deps.ReasonNoUpdates)
	close(events)

	// when
	go board.Run(events)

	// then
	select {
	case <-board.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the channel was closed")
	}
	p := board.Get(deps.Downloader)
	require.NotNil(t, p.LastResult)
	assert.Equal(t, deps.ReasonNoUpdates, p.LastResult.Reason)
}
