// Copyright 2026 The gocapture Authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package streamfile_test

import (
	"github.com/lumastream/gocapture/streamfile"

	"github.com/spf13/pflag"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("VersionFlag", func() {
	It("parses the named versions", func() {
		var vf streamfile.VersionFlag

		Expect(vf.Set("current")).To(Succeed())
		Expect(vf.Value()).To(Equal(streamfile.Version))
		Expect(vf.String()).To(Equal("current"))

		Expect(vf.Set("legacy")).To(Succeed())
		Expect(vf.Value()).To(Equal(streamfile.LegacyVersion))
		Expect(vf.String()).To(Equal("legacy"))
	})

	It("rejects unknown spellings", func() {
		var vf streamfile.VersionFlag
		Expect(vf.Set("0x05")).To(HaveOccurred())
	})

	It("registers with a flag set", func() {
		vf := streamfile.VersionFlag(streamfile.Version)
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		fs.Var(&vf, "stream-version", "stream framing version")

		Expect(fs.Parse([]string{"--stream-version", "legacy"})).To(Succeed())
		Expect(vf.Value()).To(Equal(streamfile.LegacyVersion))
	})

	It("lists its values", func() {
		Expect(streamfile.VersionFlagValues()).To(Equal("current, legacy"))
	})
})
