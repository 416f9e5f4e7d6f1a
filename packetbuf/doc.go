// Copyright 2026 The gocapture Authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package packetbuf implements the shared packet buffer connecting live
// capture pipeline stages.
//
// A Buffer is a synchronized queue of tagged, length-delimited packets.
// Producers reserve a slot of a known size, fill its bytes in place, and
// close it; consumers pop packets in order and release them back to the
// buffer's pool when done. Reservation blocks when the buffer is over its
// byte budget, providing backpressure, and popping blocks while the buffer
// is empty.
//
// A Buffer can be terminated two ways:
//
//	- Close marks the producer side finished. Consumers drain the remaining
//	  packets and then receive ErrClosed.
//	- Cancel abandons the stream. All blocked producers and consumers are
//	  released immediately with ErrCanceled, regardless of queued data.
package packetbuf
