// Copyright 2026 The gocapture Authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

//go:build windows

package streamfile

import (
	"os"
)

// Windows has no advisory whole-file lock equivalent to flock, and a file
// opened for writing is already exclusive enough for the recorder's needs.

func prepareMandatoryLock(f *os.File) error { return nil }

func lockExclusive(f *os.File) error { return nil }
