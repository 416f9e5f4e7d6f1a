// Copyright 2026 The gocapture Authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package streamfile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// versionNames maps flag spellings to stream versions.
var versionNames = map[string]uint32{
	"current": Version,
	"legacy":  LegacyVersion,
}

// VersionFlag is a pflag.Value implementation that stores a stream framing
// version.
type VersionFlag uint32

var _ pflag.Value = (*VersionFlag)(nil)

func (vf *VersionFlag) String() string {
	for name, v := range versionNames {
		if v == uint32(*vf) {
			return name
		}
	}
	return fmt.Sprintf("0x%02x", uint32(*vf))
}

// Set implements pflag.Value.
func (vf *VersionFlag) Set(v string) error {
	if sv, ok := versionNames[v]; ok {
		*vf = VersionFlag(sv)
		return nil
	}
	return errors.Errorf("unknown stream version: %q", v)
}

// Type implements pflag.Value.
func (vf *VersionFlag) Type() string { return "streamfile.Version" }

// Value returns the stream version held by this flag.
func (vf VersionFlag) Value() uint32 { return uint32(vf) }

// VersionFlagValues returns the list of possible values for a VersionFlag.
func VersionFlagValues() string {
	opts := make([]string, 0, len(versionNames))
	for name := range versionNames {
		opts = append(opts, name)
	}
	sort.Strings(opts)
	return strings.Join(opts, ", ")
}
