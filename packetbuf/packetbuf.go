// Copyright 2026 The gocapture Authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package packetbuf

import (
	"sync"

	"github.com/pkg/errors"
)

// DefaultByteBudget is the pending-byte budget used when a Buffer is created
// with no explicit limit.
const DefaultByteBudget = 16 * 1024 * 1024

// ErrCanceled is returned by Buffer operations after the Buffer has been
// canceled.
var ErrCanceled = errors.New("packet buffer canceled")

// ErrClosed is returned by Pop once a closed Buffer has been fully drained,
// and by producer operations on a closed Buffer.
var ErrClosed = errors.New("packet buffer closed")

// Packet is one tagged unit of stream data held by a Buffer.
//
// A Packet popped from a Buffer remains valid until Release is called on it.
type Packet struct {
	// Tag is the stream message tag this packet carries.
	Tag byte

	data []byte
	pool *packetPool
}

// Bytes returns the packet's payload.
func (p *Packet) Bytes() []byte { return p.data }

// Len returns the payload size in bytes.
func (p *Packet) Len() int { return len(p.data) }

// Release returns the packet's backing storage for reuse.
//
// The Packet and its payload must not be used after Release.
func (p *Packet) Release() {
	if p.pool != nil {
		p.pool.put(p)
	}
}

// Buffer is a synchronized producer/consumer queue of Packets.
type Buffer struct {
	mu   sync.Mutex
	cond *sync.Cond

	queue    []*Packet
	pending  int // bytes reserved or queued, not yet popped
	budget   int
	closed   bool
	canceled bool

	pool packetPool
}

// New creates a Buffer with the given pending-byte budget.
//
// A budget of <= 0 selects DefaultByteBudget.
func New(budget int) *Buffer {
	if budget <= 0 {
		budget = DefaultByteBudget
	}
	b := Buffer{budget: budget}
	b.cond = sync.NewCond(&b.mu)
	return &b
}

// Slot is an open write reservation in a Buffer.
//
// The slot's bytes may be filled in place. The packet becomes visible to
// consumers when Close is called.
type Slot struct {
	b   *Buffer
	pkt *Packet
}

// Bytes returns the writable payload region of the reserved packet.
func (s *Slot) Bytes() []byte { return s.pkt.data }

// Close publishes the reserved packet to the Buffer.
//
// If the Buffer was canceled while the slot was open, the packet is discarded
// and ErrCanceled is returned.
func (s *Slot) Close() error {
	b, pkt := s.b, s.pkt
	s.b, s.pkt = nil, nil

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.canceled {
		b.pending -= len(pkt.data)
		b.pool.put(pkt)
		return ErrCanceled
	}

	b.queue = append(b.queue, pkt)
	b.cond.Broadcast()
	return nil
}

// Discard abandons an open reservation without publishing it, releasing its
// storage and byte-budget share.
func (s *Slot) Discard() {
	b, pkt := s.b, s.pkt
	s.b, s.pkt = nil, nil

	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending -= len(pkt.data)
	b.pool.put(pkt)
	b.cond.Broadcast()
}

// Reserve opens a write slot for a packet of exactly size bytes.
//
// Reserve blocks while the Buffer is over its byte budget. It fails with
// ErrCanceled or ErrClosed if the Buffer has been terminated.
func (b *Buffer) Reserve(tag byte, size int) (*Slot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Block until the packet fits in the budget. An oversized packet is
	// admitted alone rather than deadlocking.
	for b.pending > 0 && b.pending+size > b.budget {
		if b.canceled {
			return nil, ErrCanceled
		}
		if b.closed {
			return nil, ErrClosed
		}
		b.cond.Wait()
	}
	if b.canceled {
		return nil, ErrCanceled
	}
	if b.closed {
		return nil, ErrClosed
	}

	pkt := b.pool.get(size)
	pkt.Tag = tag
	b.pending += size
	return &Slot{b: b, pkt: pkt}, nil
}

// Push reserves a slot, copies data into it, and closes it.
func (b *Buffer) Push(tag byte, data []byte) error {
	slot, err := b.Reserve(tag, len(data))
	if err != nil {
		return err
	}
	copy(slot.Bytes(), data)
	return slot.Close()
}

// Pop removes and returns the oldest queued Packet, blocking until one is
// available.
//
// Pop returns ErrClosed once a closed Buffer has been drained, and
// ErrCanceled immediately after cancellation.
func (b *Buffer) Pop() (*Packet, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for len(b.queue) == 0 {
		if b.canceled {
			return nil, ErrCanceled
		}
		if b.closed {
			return nil, ErrClosed
		}
		b.cond.Wait()
	}
	if b.canceled {
		// Cancellation outranks queued data; release the consumer.
		return nil, ErrCanceled
	}

	pkt := b.queue[0]
	b.queue[0] = nil
	b.queue = b.queue[1:]
	b.pending -= len(pkt.data)
	b.cond.Broadcast()
	return pkt, nil
}

// Close marks the producer side of the Buffer finished.
//
// Queued packets remain poppable; once drained, Pop returns ErrClosed.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.cond.Broadcast()
}

// Cancel abandons the stream, releasing every blocked producer and consumer
// with ErrCanceled.
//
// Cancel is safe to call from any goroutine, including while other goroutines
// are blocked in Reserve or Pop.
func (b *Buffer) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.canceled = true
	b.cond.Broadcast()
}

// Canceled reports whether the Buffer has been canceled.
func (b *Buffer) Canceled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.canceled
}
