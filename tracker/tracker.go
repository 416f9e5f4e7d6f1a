// Copyright 2026 The gocapture Authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package tracker accumulates the replayable declarative state observed in a
// stream.
//
// A stream's bulk frames (pictures, audio data) are meaningless without the
// declarations that precede them: picture contexts, audio formats, and color
// corrections. The tracker watches every frame moved by a write pump,
// retains the latest declaration per declared channel, and can re-emit all
// of them in first-seen order, so that a file opened mid-capture still
// carries the full context its frames depend on.
package tracker

import (
	"github.com/lumastream/gocapture/streamfile"
)

// stateKey identifies one retained declaration: a declarative tag plus the
// channel (context or audio stream number) it declares.
type stateKey struct {
	tag     streamfile.Tag
	channel int32
}

type stateEntry struct {
	key     stateKey
	payload []byte
}

// T retains replayable declarations observed in a stream.
//
// T implements streamfile.StateTracker. It is driven from a single pump
// goroutine and is not safe for concurrent use.
type T struct {
	index   map[stateKey]int
	entries []*stateEntry
}

var _ streamfile.StateTracker = (*T)(nil)

// New creates an empty tracker.
func New() *T {
	return &T{
		index: make(map[stateKey]int),
	}
}

// Ingest observes one frame.
//
// Context, audio format and color declarations are retained, keyed by their
// declared channel; a re-declaration updates the stored payload in place
// without changing its first-seen position. All other tags, including
// pictures, audio data, compressed payloads and close frames, are observed
// and dropped. Malformed declaration payloads are ignored.
func (t *T) Ingest(tag streamfile.Tag, payload []byte) {
	channel, ok := declarationChannel(tag, payload)
	if !ok {
		return
	}

	key := stateKey{tag: tag, channel: channel}
	stored := make([]byte, len(payload))
	copy(stored, payload)

	if i, ok := t.index[key]; ok {
		t.entries[i].payload = stored
		return
	}

	t.index[key] = len(t.entries)
	t.entries = append(t.entries, &stateEntry{key: key, payload: stored})
}

// Iterate invokes emit once per retained declaration, in first-seen order.
//
// A non-nil error from emit aborts the iteration and is returned.
func (t *T) Iterate(emit func(tag streamfile.Tag, payload []byte) error) error {
	for _, e := range t.entries {
		if err := emit(e.key.tag, e.payload); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of retained declarations.
func (t *T) Len() int { return len(t.entries) }

// Reset drops all retained state.
func (t *T) Reset() {
	t.index = make(map[stateKey]int)
	t.entries = nil
}

// declarationChannel extracts the channel a declarative frame declares, or
// reports that the frame is not replayable.
func declarationChannel(tag streamfile.Tag, payload []byte) (int32, bool) {
	switch tag {
	case streamfile.TagContext:
		var msg streamfile.ContextMessage
		if err := streamfile.UnpackMessage(payload, &msg); err != nil {
			return 0, false
		}
		return msg.Context, true

	case streamfile.TagAudioFormat:
		var msg streamfile.AudioFormatMessage
		if err := streamfile.UnpackMessage(payload, &msg); err != nil {
			return 0, false
		}
		return msg.Stream, true

	case streamfile.TagColor:
		var msg streamfile.ColorMessage
		if err := streamfile.UnpackMessage(payload, &msg); err != nil {
			return 0, false
		}
		return msg.Context, true

	default:
		return 0, false
	}
}
