// Copyright 2026 The gocapture Authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package worker runs a background transfer loop between a shared packet
// buffer and a processing task.
//
// Exactly one goroutine is spawned per session. It pops packets from the
// buffer and hands them to the Task until the buffer is closed, canceled, or
// the Task fails. The owner joins the session with Wait.
package worker

import (
	"github.com/lumastream/gocapture/packetbuf"
)

// Task processes packets handed to a worker session.
//
// Task methods are invoked by the worker goroutine only; implementations do
// not need to be safe for concurrent use.
type Task interface {
	// Process handles one packet. The packet is released by the worker after
	// Process returns; implementations must copy any payload bytes they wish
	// to retain.
	//
	// Returning a non-nil error terminates the session.
	Process(pkt *packetbuf.Packet) error

	// Finish is invoked exactly once when the session ends, with the session's
	// terminal status: nil when the buffer closed or was canceled, or the
	// first error encountered otherwise.
	Finish(err error)
}

// W is a running worker session.
type W struct {
	doneC chan struct{}
	err   error
}

// Start spawns a worker session popping packets from buf into t.
func Start(buf *packetbuf.Buffer, t Task) *W {
	w := W{doneC: make(chan struct{})}
	go w.run(buf, t)
	return &w
}

// Wait blocks until the worker goroutine has exited and returns the session's
// terminal status.
//
// A closed or canceled buffer is a clean shutdown and yields nil.
func (w *W) Wait() error {
	<-w.doneC
	return w.err
}

func (w *W) run(buf *packetbuf.Buffer, t Task) {
	defer close(w.doneC)

	var err error
	for {
		pkt, popErr := buf.Pop()
		if popErr != nil {
			if popErr != packetbuf.ErrClosed && popErr != packetbuf.ErrCanceled {
				err = popErr
			}
			break
		}

		procErr := t.Process(pkt)
		pkt.Release()
		if procErr != nil {
			err = procErr
			break
		}
	}

	w.err = err
	t.Finish(err)
}
