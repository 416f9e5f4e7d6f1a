// Copyright 2026 The gocapture Authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

//go:build unix

package streamfile

import (
	"os"

	"golang.org/x/sys/unix"
)

// prepareMandatoryLock turns on set-group-ID and turns off group-execute on
// the open file. On filesystems mounted with the "mand" option this enables
// mandatory locking; elsewhere it is harmless.
func prepareMandatoryLock(f *os.File) error {
	st, err := f.Stat()
	if err != nil {
		return err
	}
	mode := (st.Mode().Perm() &^ 0o010) | os.ModeSetgid
	return f.Chmod(mode)
}

// lockExclusive places an exclusive advisory lock on the whole file. It
// never blocks: if the lock is already held, by this process or another, it
// fails immediately.
//
// The lock is released implicitly when the descriptor is closed.
func lockExclusive(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}
