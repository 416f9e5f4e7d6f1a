// Copyright 2026 The gocapture Authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package streamfile

import (
	"fmt"
)

const (
	// Signature is the magic value opening every stream file ("GCAP").
	Signature uint32 = 0x50414347

	// Version is the current stream version.
	Version uint32 = 0x04
	// LegacyVersion is the only other supported stream version. The sole
	// difference from Version is the order of the length and tag fields in
	// the on-disk frame header.
	LegacyVersion uint32 = 0x03
)

// StreamInfoSize is the on-disk size of StreamInfo.
const StreamInfoSize = 32

// maxInfoBlockSize bounds the trailing name and date blocks. Values beyond
// this indicate a corrupt header rather than a plausible path or date string.
const maxInfoBlockSize = 1 << 20

// StreamInfo is the fixed descriptor opening a stream file.
//
// It is followed on disk by NameSize bytes holding a NUL-terminated
// application path and DateSize bytes holding a NUL-terminated UTC date
// string.
type StreamInfo struct {
	// Signature is the file signature.
	Signature uint32 `struc:"uint32,little"`
	// Version is the stream version the file was written with.
	Version uint32 `struc:"uint32,little"`
	// FPS is the capture rate.
	FPS float64 `struc:"float64,little"`
	// Flags holds stream-level flags.
	Flags uint32 `struc:"uint32,little"`
	// PID is the captured program's process ID.
	PID uint32 `struc:"uint32,little"`
	// NameSize is the size of the trailing name block.
	NameSize uint32 `struc:"uint32,little"`
	// DateSize is the size of the trailing date block.
	DateSize uint32 `struc:"uint32,little"`
}

// Tag identifies the type of a stream frame.
type Tag byte

const (
	// TagClose terminates a stream.
	TagClose Tag = 0x01
	// TagPicture is a captured video frame.
	TagPicture Tag = 0x02
	// TagContext declares or updates a picture context.
	TagContext Tag = 0x03
	// TagCompressedA is a payload compressed by the primary codec.
	TagCompressedA Tag = 0x04
	// TagAudioFormat declares or updates an audio stream format.
	TagAudioFormat Tag = 0x05
	// TagAudioData is captured audio data.
	TagAudioData Tag = 0x06
	// TagCompressedB is a payload compressed by the secondary codec.
	TagCompressedB Tag = 0x07
	// TagColor carries color correction information for a context.
	TagColor Tag = 0x08
	// TagContainer wraps an already-framed message; its payload is a nested
	// length(8) | tag(1) | payload triple.
	TagContainer Tag = 0x09

	// TagCallbackRequest is a control frame dispatched to the write-side
	// callback hook. It is never persisted to disk.
	TagCallbackRequest Tag = 0x7F
)

func (t Tag) String() string {
	switch t {
	case TagClose:
		return "CLOSE"
	case TagPicture:
		return "PICTURE"
	case TagContext:
		return "CONTEXT"
	case TagCompressedA:
		return "COMPRESSED_A"
	case TagAudioFormat:
		return "AUDIO_FORMAT"
	case TagAudioData:
		return "AUDIO_DATA"
	case TagCompressedB:
		return "COMPRESSED_B"
	case TagColor:
		return "COLOR"
	case TagContainer:
		return "CONTAINER"
	case TagCallbackRequest:
		return "CALLBACK_REQUEST"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", byte(t))
	}
}
