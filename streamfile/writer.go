// Copyright 2026 The gocapture Authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package streamfile

import (
	"bufio"
	"os"

	"github.com/lumastream/gocapture/packetbuf"
	"github.com/lumastream/gocapture/support/dataio"
	"github.com/lumastream/gocapture/worker"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

// targetFileMode is the permission set for newly created stream files,
// before the set-group-ID adjustment.
const targetFileMode = 0o640

// OpenTarget creates or truncates the file at path and attaches it as this
// controller's write target.
//
// It fails with ErrBusy if a handle is already attached, and with the
// underlying OS error if any attach step fails.
func (sf *StreamFile) OpenTarget(path string) error {
	if sf.curState() != stateIdle {
		return ErrBusy
	}

	sf.log().Infof("%s: opening %s for writing stream (sync=%v)", logComponent, path, sf.Sync)

	flags := os.O_CREATE | os.O_WRONLY
	if sf.Sync {
		flags |= os.O_SYNC
	}
	f, err := os.OpenFile(path, flags, targetFileMode)
	if err != nil {
		sf.log().Errorf("%s: can't open %s: %v", logComponent, path, err)
		return err
	}

	if err := sf.SetTarget(f); err != nil {
		_ = f.Close()
		return err
	}
	return nil
}

// SetTarget attaches an already-open descriptor as the write target.
//
// Attach performs, in order: stat and chmod (clearing group-execute and
// setting set-group-ID, enabling mandatory locking on supporting mounts), a
// non-blocking exclusive lock (failing immediately if the file is already
// locked), and truncation. The descriptor is then wrapped in a buffered
// write-only handle. SetTarget takes ownership of f only on success.
func (sf *StreamFile) SetTarget(f *os.File) error {
	if sf.curState() != stateIdle {
		return ErrBusy
	}

	if err := prepareMandatoryLock(f); err != nil {
		sf.log().Errorf("%s: can't set lock permissions: %v", logComponent, err)
		return err
	}

	if err := lockExclusive(f); err != nil {
		sf.log().Errorf("%s: can't lock file: %v", logComponent, err)
		return err
	}

	// Truncate only once the lock is held.
	if _, err := f.Seek(0, 0); err != nil {
		sf.log().Errorf("%s: can't seek file: %v", logComponent, err)
		return err
	}
	if err := f.Truncate(0); err != nil {
		sf.log().Errorf("%s: can't truncate file: %v", logComponent, err)
		return err
	}

	version := sf.WriteVersion
	if version == 0 {
		version = Version
	}
	framing, err := framingForVersion(version)
	if err != nil {
		sf.log().Errorf("%s: can't write stream version 0x%02x: %v", logComponent, version, err)
		return err
	}

	sf.file = f
	sf.bw = bufio.NewWriterSize(f, writeBufferSize)
	sf.w = dataio.MakeWriter(sf.bw)
	sf.version = version
	sf.framing = framing
	sf.setState(stateWriteAttached)
	return nil
}

// WriteInfo writes the stream info header followed by the name and date
// blocks.
//
// The signature, version and block sizes of info are stamped by the
// controller; the caller provides fps, flags and pid. WriteInfo is legal
// exactly once per write session, before the pump starts.
func (sf *StreamFile) WriteInfo(info StreamInfo, name, date string) error {
	if s := sf.curState(); s != stateWriteAttached {
		return errors.Wrapf(ErrInvalidState, "write info in state %s", s)
	}

	// Name and date are stored NUL-terminated.
	nameBytes := append([]byte(name), 0)
	dateBytes := append([]byte(date), 0)

	info.Signature = Signature
	info.Version = sf.version
	info.NameSize = uint32(len(nameBytes))
	info.DateSize = uint32(len(dateBytes))

	if err := sf.writeInfoBlocks(&info, nameBytes, dateBytes); err != nil {
		sf.log().Errorf("%s: can't write stream information: %v", logComponent, err)
		return err
	}

	sf.setState(stateWriteInfoWritten)
	return nil
}

func (sf *StreamFile) writeInfoBlocks(info *StreamInfo, name, date []byte) error {
	if err := struc.Pack(sf.w, info); err != nil {
		return err
	}
	if _, err := sf.w.Write(name); err != nil {
		return err
	}
	if _, err := sf.w.Write(date); err != nil {
		return err
	}
	return sf.maybeFlush()
}

// writeFrame emits one frame in the session's field order.
func (sf *StreamFile) writeFrame(tag Tag, payload []byte) error {
	if err := sf.framing.writeHeader(sf.w, tag, uint64(len(payload))); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := sf.w.Write(payload); err != nil {
			return err
		}
	}
	framesWritten.Inc()
	bytesWritten.Add(float64(frameHeaderSize + len(payload)))
	return sf.maybeFlush()
}

func (sf *StreamFile) maybeFlush() error {
	if !sf.Sync {
		return nil
	}
	return sf.bw.Flush()
}

// WriteEOF emits the close frame terminating the stream.
//
// It is legal whenever a write session is attached and the pump is not
// running.
func (sf *StreamFile) WriteEOF() error {
	if s := sf.curState(); !s.writing() || s == stateWriteRunning {
		return errors.Wrapf(ErrInvalidState, "write eof in state %s", s)
	}

	if err := sf.writeFrame(TagClose, nil); err != nil {
		sf.log().Errorf("%s: can't write eof: %v", logComponent, err)
		return err
	}
	return nil
}

// WriteAccumulatedState re-emits every replayable declaration the tracker
// has observed, in first-seen order. A file opened mid-capture can then
// still carry full context.
//
// With no Tracker configured it writes nothing.
func (sf *StreamFile) WriteAccumulatedState() error {
	if s := sf.curState(); !s.writing() || s == stateWriteRunning {
		return errors.Wrapf(ErrInvalidState, "write state in state %s", s)
	}
	if sf.Tracker == nil {
		return nil
	}

	err := sf.Tracker.Iterate(func(tag Tag, payload []byte) error {
		return sf.writeFrame(tag, payload)
	})
	if err != nil {
		sf.log().Errorf("%s: can't write state: %v", logComponent, err)
	}
	return err
}

// StartWritePump spawns the background worker moving frames from the shared
// buffer to the file.
//
// The info header must have been written for this session. The pump runs
// until the buffer closes, is canceled, or an I/O error occurs; join it with
// WaitWritePump.
func (sf *StreamFile) StartWritePump(from *packetbuf.Buffer) error {
	if s := sf.curState(); s != stateWriteInfoWritten {
		return errors.Wrapf(ErrInvalidState, "start write pump in state %s", s)
	}

	sf.pump = worker.Start(from, (*writeTask)(sf))
	sf.setState(stateWriteRunning)
	activePumps.Inc()
	return nil
}

// WaitWritePump blocks until the write pump worker exits and returns its
// terminal status.
//
// The pump handle, not the lifecycle state, gates the join: a callback
// dispatch transiently clears the running state on the worker goroutine, and
// the owner must still be able to block here through it. On return the
// session's running and info-written flags are cleared unless a callback
// moved the controller elsewhere; a new pump session must rewrite the info
// header first.
func (sf *StreamFile) WaitWritePump() error {
	if sf.pump == nil {
		return errors.Wrapf(ErrInvalidState, "wait write pump in state %s", sf.curState())
	}

	err := sf.pump.Wait()
	sf.pump = nil
	if sf.curState() == stateWriteRunning {
		sf.setState(stateWriteAttached)
	}
	activePumps.Dec()
	return err
}

// writeTask adapts the StreamFile write pump to the worker task contract.
type writeTask StreamFile

func (t *writeTask) sf() *StreamFile { return (*StreamFile)(t) }

// Process moves one packet from the shared buffer to the file.
//
// Every packet is first handed to the tracker, regardless of type. Callback
// requests are dispatched and discarded; container payloads pass through
// verbatim; everything else is wrapped in the session's framing.
func (t *writeTask) Process(pkt *packetbuf.Packet) error {
	sf := t.sf()
	tag := Tag(pkt.Tag)

	if sf.Tracker != nil {
		sf.Tracker.Ingest(tag, pkt.Bytes())
	}

	if tag == TagCallbackRequest {
		// Never persisted.
		t.dispatchCallback(pkt.Bytes())
		return nil
	}

	if sf.w == nil {
		// A callback detached the target mid-pump.
		return errors.Wrapf(ErrInvalidState, "write pump in state %s", sf.curState())
	}

	if tag == TagContainer {
		return t.writeContainer(pkt.Bytes())
	}

	if err := sf.writeFrame(tag, pkt.Bytes()); err != nil {
		sf.log().Errorf("%s: %v", logComponent, err)
		return err
	}
	return nil
}

// dispatchCallback invokes the external callback hook with the request's
// opaque argument.
//
// The running state is cleared for the duration of the call, which makes
// reentrant close and reopen calls from inside the callback legal. It is
// restored afterwards unless the callback itself moved the controller
// elsewhere.
func (t *writeTask) dispatchCallback(arg []byte) {
	sf := t.sf()
	if sf.Callback == nil {
		return
	}

	callbackRequests.Inc()
	sf.setState(stateWriteInfoWritten)
	sf.Callback(arg)
	if sf.curState() == stateWriteInfoWritten {
		sf.setState(stateWriteRunning)
	}
}

// writeContainer re-emits an already-framed message.
//
// The payload is itself a complete length-first frame. In a current-order
// session it is emitted verbatim; a legacy-order session must rewrap it so
// the file stays consistent with its declared framing.
func (t *writeTask) writeContainer(payload []byte) error {
	sf := t.sf()

	if sf.version != LegacyVersion {
		if _, err := sf.w.Write(payload); err != nil {
			sf.log().Errorf("%s: %v", logComponent, err)
			return err
		}
		framesWritten.Inc()
		bytesWritten.Add(float64(len(payload)))
		if err := sf.maybeFlush(); err != nil {
			sf.log().Errorf("%s: %v", logComponent, err)
			return err
		}
		return nil
	}

	innerTag, innerPayload, err := parseContainerPayload(payload)
	if err != nil {
		sf.log().Errorf("%s: %v", logComponent, err)
		return err
	}
	if err := sf.writeFrame(innerTag, innerPayload); err != nil {
		sf.log().Errorf("%s: %v", logComponent, err)
		return err
	}
	return nil
}

// Finish receives the pump's terminal status. Failures are logged and left
// for WaitWritePump to report; written content is never rewound or repaired.
func (t *writeTask) Finish(err error) {
	if err != nil {
		t.sf().log().Errorf("%s: write pump failed: %v", logComponent, err)
	}
}
