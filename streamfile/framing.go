// Copyright 2026 The gocapture Authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package streamfile

import (
	"encoding/binary"

	"github.com/lumastream/gocapture/support/dataio"

	"github.com/pkg/errors"
)

// frameHeaderSize is the on-disk size of a frame header in either order:
// an 8-byte little-endian length and a 1-byte tag.
const frameHeaderSize = 9

// maxFrameSize bounds a single frame payload. Anything larger is treated as
// stream corruption rather than a plausible capture frame.
const maxFrameSize = 1 << 30

// framing encodes and decodes frame headers in one of the two historical
// on-disk field orders. A framing is selected once per session, after the
// info header's version has been validated, and holds no buffering of its
// own.
type framing interface {
	// version is the stream version this framing serves.
	version() uint32

	// writeHeader writes one frame header for a payload of the given size.
	writeHeader(w dataio.Writer, tag Tag, size uint64) error

	// readHeader reads the next frame header.
	readHeader(r dataio.Reader) (Tag, uint64, error)
}

// framingForVersion returns the framing for a validated stream version.
func framingForVersion(version uint32) (framing, error) {
	switch version {
	case Version:
		return currentFraming{}, nil
	case LegacyVersion:
		return legacyFraming{}, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedVersion, "version 0x%02x", version)
	}
}

// currentFraming is the length-first field order: length(8) | tag(1).
//
// This matches the layout of a container frame payload, so container
// contents written verbatim remain well-formed frames.
type currentFraming struct{}

func (currentFraming) version() uint32 { return Version }

func (currentFraming) writeHeader(w dataio.Writer, tag Tag, size uint64) error {
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], size)
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	return w.WriteByte(byte(tag))
}

func (currentFraming) readHeader(r dataio.Reader) (Tag, uint64, error) {
	size, err := readFrameLength(r)
	if err != nil {
		return 0, 0, err
	}
	tag, err := r.ReadByte()
	if err != nil {
		return 0, 0, err
	}
	return Tag(tag), size, nil
}

// legacyFraming is the tag-first field order: tag(1) | length(8).
type legacyFraming struct{}

func (legacyFraming) version() uint32 { return LegacyVersion }

func (legacyFraming) writeHeader(w dataio.Writer, tag Tag, size uint64) error {
	if err := w.WriteByte(byte(tag)); err != nil {
		return err
	}
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], size)
	_, err := w.Write(lenBuf[:])
	return err
}

func (legacyFraming) readHeader(r dataio.Reader) (Tag, uint64, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return 0, 0, err
	}
	size, err := readFrameLength(r)
	if err != nil {
		return 0, 0, err
	}
	return Tag(tag), size, nil
}

func readFrameLength(r dataio.Reader) (uint64, error) {
	var lenBuf [8]byte
	if err := dataio.ReadFull(r, lenBuf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(lenBuf[:]), nil
}

// parseContainerPayload splits a container frame payload into its inner tag
// and payload. The inner header is always length-first, independent of the
// session framing.
func parseContainerPayload(data []byte) (Tag, []byte, error) {
	if len(data) < frameHeaderSize {
		return 0, nil, errors.Errorf("container payload too short: %d bytes", len(data))
	}
	innerSize := binary.LittleEndian.Uint64(data[:8])
	innerTag := Tag(data[8])
	if innerSize != uint64(len(data)-frameHeaderSize) {
		return 0, nil, errors.Errorf("container inner length %d does not match payload %d",
			innerSize, len(data)-frameHeaderSize)
	}
	return innerTag, data[frameHeaderSize:], nil
}
