// Copyright 2026 The gocapture Authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package streamfile

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/lumastream/gocapture/packetbuf"
	"github.com/lumastream/gocapture/support/dataio"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

// OpenSource opens the file at path and attaches it as this controller's
// read source, advising the kernel of the sequential access pattern.
//
// It fails with ErrBusy if a handle is already attached.
func (sf *StreamFile) OpenSource(path string) error {
	if sf.curState() != stateIdle {
		return ErrBusy
	}

	sf.log().Infof("%s: opening %s for reading stream", logComponent, path)

	f, err := os.Open(path)
	if err != nil {
		sf.log().Errorf("%s: can't open %s: %v", logComponent, path, err)
		return err
	}

	adviseSequential(f)

	if err := sf.SetSource(f); err != nil {
		_ = f.Close()
		return err
	}
	return nil
}

// SetSource attaches an already-open descriptor as the read source, seeking
// to the start of the stream. SetSource takes ownership of f only on
// success.
func (sf *StreamFile) SetSource(f *os.File) error {
	if sf.curState() != stateIdle {
		return ErrBusy
	}

	if _, err := f.Seek(0, 0); err != nil {
		sf.log().Errorf("%s: can't seek file: %v", logComponent, err)
		return err
	}

	sf.file = f
	sf.r = dataio.MakeReader(bufio.NewReaderSize(f, readBufferSize))
	sf.setState(stateReadAttached)
	return nil
}

// ReadInfo reads and validates the stream info header, returning the header
// and the trailing name and date strings.
//
// On success the detected version is cached and bulk reading becomes legal.
// On any failure the controller stays in the attached state and Read must
// not be used.
func (sf *StreamFile) ReadInfo() (*StreamInfo, string, string, error) {
	if s := sf.curState(); s != stateReadAttached {
		return nil, "", "", errors.Wrapf(ErrInvalidState, "read info in state %s", s)
	}

	var info StreamInfo
	if err := struc.Unpack(sf.r, &info); err != nil {
		sf.log().Errorf("%s: can't read stream info header: %v", logComponent, err)
		return nil, "", "", err
	}

	if info.Signature != Signature {
		sf.log().Errorf("%s: signature 0x%08x does not match 0x%08x",
			logComponent, info.Signature, Signature)
		return nil, "", "", ErrBadSignature
	}

	framing, err := framingForVersion(info.Version)
	if err != nil {
		sf.log().Errorf("%s: unsupported stream version 0x%02x", logComponent, info.Version)
		return nil, "", "", err
	}
	sf.log().Infof("%s: stream version 0x%02x", logComponent, info.Version)

	if info.NameSize > maxInfoBlockSize || info.DateSize > maxInfoBlockSize {
		sf.log().Errorf("%s: implausible info block sizes %d/%d",
			logComponent, info.NameSize, info.DateSize)
		return nil, "", "", errors.Wrapf(ErrCorruptHeader,
			"info block sizes %d/%d", info.NameSize, info.DateSize)
	}

	name, err := sf.readInfoBlock(info.NameSize)
	if err != nil {
		sf.log().Errorf("%s: can't read stream name: %v", logComponent, err)
		return nil, "", "", err
	}
	date, err := sf.readInfoBlock(info.DateSize)
	if err != nil {
		sf.log().Errorf("%s: can't read stream date: %v", logComponent, err)
		return nil, "", "", err
	}

	sf.version = info.Version
	sf.framing = framing
	sf.setState(stateReadInfoValid)
	return &info, name, date, nil
}

// readInfoBlock reads a NUL-terminated info block of the given size and
// strips its terminator.
func (sf *StreamFile) readInfoBlock(size uint32) (string, error) {
	if size == 0 {
		return "", nil
	}
	buf := make([]byte, size)
	if err := dataio.ReadFull(sf.r, buf); err != nil {
		return "", err
	}
	if buf[len(buf)-1] == 0 {
		buf = buf[:len(buf)-1]
	}
	return string(buf), nil
}

// Read is the read pump: it replays frames from the file into the
// destination buffer until the close frame, an error, or cancellation.
//
// Each frame's payload is streamed directly into a same-size zero-copy slot
// reserved in to. A file ending mid-frame is not an error: a synthetic close
// frame is forwarded, "unexpected EOF" is logged, and Read returns nil,
// since truncated files from abrupt recorder termination are expected. Any
// other I/O failure cancels the destination buffer to release blocked
// parties and returns the error.
//
// Cancellation is cooperative: ctx is polled once per completed frame, and a
// canceled context ends the loop normally with no synthetic frame.
//
// On return the info-valid flag is cleared; another pass must reread the
// header.
func (sf *StreamFile) Read(ctx context.Context, to *packetbuf.Buffer) error {
	s := sf.curState()
	if !s.reading() {
		return errors.Wrapf(ErrInvalidState, "read in state %s", s)
	}
	if s != stateReadInfoValid {
		sf.log().Errorf("%s: stream info header not read", logComponent)
		return errors.Wrapf(ErrInvalidState, "read in state %s", s)
	}

	err := sf.readLoop(ctx, to)
	sf.setState(stateReadAttached)
	return err
}

func (sf *StreamFile) readLoop(ctx context.Context, to *packetbuf.Buffer) error {
	for {
		tag, size, err := sf.framing.readHeader(sf.r)
		if err != nil {
			return sf.finishRead(to, err)
		}
		if size > maxFrameSize {
			return sf.finishRead(to, errors.Errorf("frame size %d exceeds limit", size))
		}

		slot, err := to.Reserve(byte(tag), int(size))
		if err != nil {
			if err == packetbuf.ErrCanceled {
				return nil
			}
			return sf.finishRead(to, err)
		}
		if err := dataio.ReadFull(sf.r, slot.Bytes()); err != nil {
			// Discard the open slot; consumers never see the partial frame.
			slot.Discard()
			return sf.finishRead(to, err)
		}
		if err := slot.Close(); err != nil {
			if err == packetbuf.ErrCanceled {
				return nil
			}
			return sf.finishRead(to, err)
		}

		framesRead.Inc()
		bytesRead.Add(float64(frameHeaderSize + size))

		if tag == TagClose {
			return nil
		}
		if ctx.Err() != nil {
			// Cooperative cancellation, checked once per completed frame.
			return nil
		}
	}
}

// finishRead terminates the read loop on an error path.
//
// End of file mid-frame synthesizes a close frame and reports success. Any
// other error cancels the destination buffer and propagates. The cancel
// comes first: it must release blocked parties immediately, and a close
// frame pushed alongside it would never be observed anyway, since Pop
// prefers cancellation over queued data.
func (sf *StreamFile) finishRead(to *packetbuf.Buffer, err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		sf.pushSyntheticClose(to)
		unexpectedEOFs.Inc()
		sf.log().Errorf("%s: unexpected EOF", logComponent)
		return nil
	}

	sf.log().Errorf("%s: %v", logComponent, err)
	to.Cancel()
	return err
}

func (sf *StreamFile) pushSyntheticClose(to *packetbuf.Buffer) {
	if err := to.Push(byte(TagClose), nil); err != nil {
		sf.log().Debugf("%s: can't forward close frame: %v", logComponent, err)
	}
}
