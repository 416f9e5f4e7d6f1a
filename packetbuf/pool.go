// Copyright 2026 The gocapture Authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package packetbuf

import (
	"sync"
)

// packetPool recycles Packet headers and their backing byte slices.
//
// Payload sizes vary frame to frame, so the pool retains each packet's full
// capacity and reslices it on reuse, growing only when a request exceeds what
// a recycled packet can hold.
type packetPool struct {
	base sync.Pool
}

func (pp *packetPool) get(size int) *Packet {
	pkt, ok := pp.base.Get().(*Packet)
	if !ok {
		pkt = &Packet{}
	}

	if cap(pkt.data) < size {
		pkt.data = make([]byte, size)
	} else {
		pkt.data = pkt.data[:size]
	}
	pkt.pool = pp
	return pkt
}

func (pp *packetPool) put(pkt *Packet) {
	pkt.pool = nil
	pkt.Tag = 0
	pp.base.Put(pkt)
}
