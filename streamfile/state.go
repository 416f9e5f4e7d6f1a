// Copyright 2026 The gocapture Authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package streamfile

import (
	"fmt"
)

// sessionState is the lifecycle state of a StreamFile.
//
// The controller is a strict state machine; every operation names the states
// it is legal in, and transitions go through setState, which enforces the
// edges of the machine.
type sessionState int

const (
	// stateIdle is an unattached controller.
	stateIdle sessionState = iota

	// stateWriteAttached holds a locked write handle; no info written yet.
	stateWriteAttached
	// stateWriteInfoWritten has written the info header for this session.
	stateWriteInfoWritten
	// stateWriteRunning has an active write pump.
	stateWriteRunning

	// stateReadAttached holds a read handle; no valid info read yet.
	stateReadAttached
	// stateReadInfoValid has read and validated the info header.
	stateReadInfoValid
)

func (s sessionState) String() string {
	switch s {
	case stateIdle:
		return "Idle"
	case stateWriteAttached:
		return "WriteAttached"
	case stateWriteInfoWritten:
		return "WriteInfoWritten"
	case stateWriteRunning:
		return "WriteRunning"
	case stateReadAttached:
		return "ReadAttached"
	case stateReadInfoValid:
		return "ReadInfoValid"
	default:
		return fmt.Sprintf("sessionState(%d)", int(s))
	}
}

// writing reports whether s is a write-mode state.
func (s sessionState) writing() bool {
	switch s {
	case stateWriteAttached, stateWriteInfoWritten, stateWriteRunning:
		return true
	default:
		return false
	}
}

// reading reports whether s is a read-mode state.
func (s sessionState) reading() bool {
	switch s {
	case stateReadAttached, stateReadInfoValid:
		return true
	default:
		return false
	}
}

// legalTransitions enumerates the edges of the lifecycle machine. The
// WriteRunning <-> WriteInfoWritten pair in both directions covers normal
// pump teardown and the temporary clearing of the running state around a
// callback dispatch.
var legalTransitions = map[sessionState][]sessionState{
	stateIdle:             {stateWriteAttached, stateReadAttached},
	stateWriteAttached:    {stateWriteInfoWritten, stateIdle},
	stateWriteInfoWritten: {stateWriteRunning, stateWriteAttached, stateIdle},
	stateWriteRunning:     {stateWriteInfoWritten, stateWriteAttached},
	stateReadAttached:     {stateReadInfoValid, stateIdle},
	stateReadInfoValid:    {stateReadAttached, stateIdle},
}

// curState returns the controller's current lifecycle state.
//
// State is the one field shared between the owner and the write pump worker:
// a callback dispatch clears and restores the running state from the worker
// goroutine while the owner may be observing the controller, so every state
// access goes through stateMu.
func (sf *StreamFile) curState() sessionState {
	sf.stateMu.Lock()
	defer sf.stateMu.Unlock()
	return sf.state
}

// setState transitions the controller to next, panicking on an edge the
// machine does not define. Illegal call orders are reported to callers as
// ErrInvalidState by the operations themselves; a panic here means a bug in
// the controller, not the caller.
func (sf *StreamFile) setState(next sessionState) {
	sf.stateMu.Lock()
	defer sf.stateMu.Unlock()

	for _, s := range legalTransitions[sf.state] {
		if s == next {
			sf.state = next
			return
		}
	}
	panic(fmt.Sprintf("streamfile: illegal state transition %s -> %s", sf.state, next))
}
