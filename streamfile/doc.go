// Copyright 2026 The gocapture Authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package streamfile reads and writes the persistent stream container used
// by the capture pipeline.
//
// A stream file is a single regular file holding a fixed 32-byte info header
// (signature, version, fps, flags, pid, plus trailing name and date blocks)
// followed by a sequence of length-delimited, type-tagged frames and a
// terminating close frame. Two on-disk framings exist:
//
//	current (version 0x04):  length(8) | tag(1) | payload
//	legacy  (version 0x03):  tag(1) | length(8) | payload
//
// The framing for a whole file is fixed by the version field of its header
// and selected once per session after the header has been validated.
//
// A StreamFile is the single-owner controller for one file. On the write
// side it attaches to a target under an exclusive, non-blocking lock, writes
// the info header, and then moves frames from a shared packet buffer to the
// file on a background worker. On the read side it validates the header and
// replays frames into a destination packet buffer until the close frame,
// synthesizing one when the file ends mid-frame.
//
// Construction is by struct literal; collaborators are wired through the
// exported fields before the first attach:
//
//	sf := &streamfile.StreamFile{
//		Logger:  logger,
//		Tracker: tracker.New(),
//	}
//	if err := sf.OpenTarget(path); err != nil {
//		...
//	}
//
// A StreamFile is not internally synchronized; callers serialize their own
// access. The one sanctioned exception is a callback request dispatched by
// the write pump, which may reenter the controller because the running state
// is cleared for its duration.
package streamfile
