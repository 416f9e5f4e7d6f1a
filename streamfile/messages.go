// Copyright 2026 The gocapture Authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package streamfile

import (
	"bytes"

	"github.com/lunixbochs/struc"
)

// Pipeline stages exchange most payloads opaquely, but the declarative
// messages (context, audio format, color) have fixed layouts that the state
// tracker and tools need typed access to.

// Context message flags.
const (
	// ContextCreate declares a new picture context.
	ContextCreate uint32 = 1 << iota
	// ContextUpdate updates an existing picture context.
	ContextUpdate
	// ContextBGR is 24bit BGR, last row first.
	ContextBGR
	// ContextBGRA is 32bit BGRA, last row first.
	ContextBGRA
	// ContextYCbCr420 is planar YCbCr 4:2:0.
	ContextYCbCr420
	// ContextDWordAligned marks double-word aligned rows.
	ContextDWordAligned
)

// ContextMessage declares or updates a picture context.
type ContextMessage struct {
	// Flags holds context flags.
	Flags uint32 `struc:"uint32,little"`
	// Context is the picture context number.
	Context int32 `struc:"int32,little"`
	// Width is the context width in pixels.
	Width uint32 `struc:"uint32,little"`
	// Height is the context height in pixels.
	Height uint32 `struc:"uint32,little"`
}

// Audio format flags.
const (
	// AudioInterleaved marks interleaved sample data.
	AudioInterleaved uint32 = 1 << iota
	// AudioFormatUnknown marks an unknown or unsupported sample format.
	AudioFormatUnknown
	// AudioS16LE is signed 16bit little-endian.
	AudioS16LE
	// AudioS24LE is signed 24bit little-endian.
	AudioS24LE
	// AudioS32LE is signed 32bit little-endian.
	AudioS32LE
)

// AudioFormatMessage declares or updates an audio stream format.
type AudioFormatMessage struct {
	// Flags holds audio stream flags.
	Flags uint32 `struc:"uint32,little"`
	// Stream is the audio stream number.
	Stream int32 `struc:"int32,little"`
	// Rate is the sample rate in Hz.
	Rate uint32 `struc:"uint32,little"`
	// Channels is the number of channels.
	Channels uint32 `struc:"uint32,little"`
}

// ColorMessage carries color correction values for a picture context.
type ColorMessage struct {
	// Context is the picture context number.
	Context int32 `struc:"int32,little"`
	// Brightness adjustment.
	Brightness float32 `struc:"float32,little"`
	// Contrast adjustment.
	Contrast float32 `struc:"float32,little"`
	// Red gamma.
	Red float32 `struc:"float32,little"`
	// Green gamma.
	Green float32 `struc:"float32,little"`
	// Blue gamma.
	Blue float32 `struc:"float32,little"`
}

// PictureHeader prefixes a picture frame payload.
type PictureHeader struct {
	// Timestamp in microseconds.
	Timestamp uint64 `struc:"uint64,little"`
	// Context is the picture context number.
	Context int32 `struc:"int32,little"`
}

// AudioDataHeader prefixes an audio data frame payload.
type AudioDataHeader struct {
	// Timestamp in microseconds.
	Timestamp uint64 `struc:"uint64,little"`
	// Size is the sample data size in bytes.
	Size uint64 `struc:"uint64,little"`
	// Stream is the audio stream number.
	Stream int32 `struc:"int32,little"`
}

// PackMessage serializes a struc-tagged message to its on-disk bytes.
func PackMessage(msg interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := struc.Pack(&buf, msg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnpackMessage deserializes a struc-tagged message from payload bytes.
func UnpackMessage(data []byte, msg interface{}) error {
	return struc.Unpack(bytes.NewReader(data), msg)
}
