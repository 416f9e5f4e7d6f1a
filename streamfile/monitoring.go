// Copyright 2026 The gocapture Authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package streamfile

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	framesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gocapture_streamfile_frames_written",
		Help: "Count of frames written to stream files.",
	})

	bytesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gocapture_streamfile_bytes_written",
		Help: "Count of bytes written to stream files.",
	})

	framesRead = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gocapture_streamfile_frames_read",
		Help: "Count of frames read from stream files.",
	})

	bytesRead = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gocapture_streamfile_bytes_read",
		Help: "Count of bytes read from stream files.",
	})

	callbackRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gocapture_streamfile_callback_requests",
		Help: "Count of callback request frames dispatched by write pumps.",
	})

	unexpectedEOFs = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gocapture_streamfile_unexpected_eofs",
		Help: "Count of streams that ended mid-frame during read.",
	})

	activePumps = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gocapture_streamfile_active_pumps",
		Help: "Count of running write pumps.",
	})
)

// RegisterMonitoring registers all of this package's monitoring metrics.
func RegisterMonitoring(reg prometheus.Registerer) {
	reg.MustRegister(
		framesWritten,
		bytesWritten,
		framesRead,
		bytesRead,
		callbackRequests,
		unexpectedEOFs,
		activePumps,
	)
}
