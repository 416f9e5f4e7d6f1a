// Copyright 2026 The gocapture Authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

//go:build !linux

package streamfile

import (
	"os"
)

func adviseSequential(f *os.File) {}
