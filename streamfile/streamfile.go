// Copyright 2026 The gocapture Authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package streamfile

import (
	"bufio"
	"os"
	"sync"

	"github.com/lumastream/gocapture/support/dataio"
	"github.com/lumastream/gocapture/support/logging"
	"github.com/lumastream/gocapture/worker"

	"github.com/pkg/errors"
)

// ErrBusy is returned when an attach is attempted on a controller that
// already holds a handle. It is a usage error and is never retried.
var ErrBusy = errors.New("stream file handle already attached")

// ErrInvalidState is returned when an operation is invoked in a lifecycle
// state it is not legal in. The caller can always recover by fixing its call
// order.
var ErrInvalidState = errors.New("operation not valid in current state")

// ErrBadSignature is returned when a file's signature does not match
// Signature. It is fatal for that file.
var ErrBadSignature = errors.New("stream signature mismatch")

// ErrUnsupportedVersion is returned when a file's version is neither Version
// nor LegacyVersion. It is fatal for that file.
var ErrUnsupportedVersion = errors.New("unsupported stream version")

// ErrCorruptHeader is returned when an info header carries values no valid
// writer produces, such as implausible block sizes, even though its
// signature and version check out. It is fatal for that file.
var ErrCorruptHeader = errors.New("corrupt stream info header")

// CallbackFunc receives the opaque payload of a callback request frame.
//
// It is invoked synchronously on the write pump's worker goroutine, with the
// controller's running state cleared for its duration, so it may legally
// reenter the controller (for example to close and reopen the target).
type CallbackFunc func(arg []byte)

// StateTracker accumulates the replayable declarative messages observed in a
// stream and re-emits them on demand. Which tags qualify as replayable is
// owned entirely by the tracker.
type StateTracker interface {
	// Ingest observes one frame. It is handed every frame moved by the write
	// pump, regardless of type, and must copy any payload bytes it retains.
	Ingest(tag Tag, payload []byte)

	// Iterate invokes emit once per live piece of state, in first-seen order,
	// each call producing a ready-to-frame tag and payload. A non-nil error
	// from emit aborts the iteration and is returned.
	Iterate(emit func(tag Tag, payload []byte) error) error
}

// logComponent tags every log line emitted by this package.
const logComponent = "streamfile"

// writeBufferSize is the buffered-writer size for the write handle. Large
// enough to preserve block alignment under bursts of small frames.
const writeBufferSize = 256 * 1024

// readBufferSize is the buffered-reader size for the read handle.
const readBufferSize = 4 * 1024 * 1024

// StreamFile is the single-owner controller for one stream file.
//
// The exported fields configure the controller and must be set before the
// first attach. Operations must be serialized by a single owner; the
// lifecycle state alone is internally synchronized, since the write pump
// worker toggles it around callback dispatches while the owner may be
// waiting on the pump.
type StreamFile struct {
	// Logger receives component-tagged logs. If nil, nothing is logged.
	Logger logging.L

	// Sync, when true, flushes the write handle after the info header and
	// after every written frame.
	Sync bool

	// WriteVersion selects the framing emitted by write sessions. Zero
	// selects Version. Read sessions always detect the version from the
	// file's header.
	WriteVersion uint32

	// Callback, if not nil, receives callback request frames intercepted by
	// the write pump.
	Callback CallbackFunc

	// Tracker, if not nil, observes every frame moved by the write pump and
	// backs WriteAccumulatedState.
	Tracker StateTracker

	stateMu sync.Mutex
	state   sessionState

	file    *os.File
	bw      *bufio.Writer
	w       dataio.Writer
	r       dataio.Reader
	version uint32
	framing framing
	pump    *worker.W
}

func (sf *StreamFile) log() logging.L { return logging.Must(sf.Logger) }

// Running reports whether a write pump is currently running.
//
// During a callback dispatch the running state is cleared, so a CallbackFunc
// observing the controller sees false.
func (sf *StreamFile) Running() bool { return sf.curState() == stateWriteRunning }

// Version returns the stream version of the current session: the detected
// version after a successful ReadInfo, or the emitted version after a write
// attach. It is zero when no session is active.
func (sf *StreamFile) Version() uint32 { return sf.version }

// CloseTarget closes the write handle and resets the controller to idle.
//
// The advisory lock releases implicitly with the descriptor. CloseTarget
// fails with ErrInvalidState if no write session is attached or the write
// pump is still running.
func (sf *StreamFile) CloseTarget() error {
	if s := sf.curState(); !s.writing() || s == stateWriteRunning {
		return errors.Wrapf(ErrInvalidState, "close target in state %s", s)
	}

	if err := sf.bw.Flush(); err != nil {
		sf.log().Errorf("%s: can't flush file: %v", logComponent, err)
		sf.detach()
		return err
	}
	if err := sf.file.Close(); err != nil {
		sf.log().Errorf("%s: can't close file: %v", logComponent, err)
		sf.detach()
		return err
	}

	sf.detach()
	return nil
}

// CloseSource closes the read handle and resets the controller to idle.
func (sf *StreamFile) CloseSource() error {
	if s := sf.curState(); !s.reading() {
		return errors.Wrapf(ErrInvalidState, "close source in state %s", s)
	}

	err := sf.file.Close()
	if err != nil {
		sf.log().Errorf("%s: can't close file: %v", logComponent, err)
	}

	sf.detach()
	return err
}

// detach drops the handle state and returns the controller to idle.
//
// The pump handle is deliberately left alone: it is owned by the
// StartWritePump/WaitWritePump pair, and a callback rotating the target
// mid-pump detaches while the owner still needs to join the worker.
func (sf *StreamFile) detach() {
	sf.file = nil
	sf.bw = nil
	sf.w = nil
	sf.r = nil
	sf.version = 0
	sf.framing = nil
	sf.setState(stateIdle)
}
