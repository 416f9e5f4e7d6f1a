// Copyright 2026 The gocapture Authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package streamfile_test

import (
	"context"
	"encoding/binary"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"

	"github.com/lumastream/gocapture/packetbuf"
	"github.com/lumastream/gocapture/streamfile"

	"github.com/pkg/errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// buildHeader assembles a raw 32-byte info header with empty name and date
// blocks.
func buildHeader(sig, version uint32) []byte {
	buf := make([]byte, streamfile.StreamInfoSize)
	binary.LittleEndian.PutUint32(buf[0:], sig)
	binary.LittleEndian.PutUint32(buf[4:], version)
	binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(30))
	// flags, pid, name_size, date_size all zero.
	return buf
}

var _ = Describe("StreamFile lifecycle", func() {
	var tdir string

	BeforeEach(func() {
		var err error
		tdir, err = ioutil.TempDir("", "streamfile_test")
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		if tdir != "" {
			_ = os.RemoveAll(tdir)
			tdir = ""
		}
	})

	Describe("attachment", func() {
		It("rejects a second attach while a target is held", func() {
			path := filepath.Join(tdir, "output.stream")

			sf := streamfile.StreamFile{}
			Expect(sf.OpenTarget(path)).To(Succeed())
			defer func() {
				_ = sf.CloseTarget()
			}()

			Expect(sf.OpenTarget(path)).To(Equal(streamfile.ErrBusy))
			Expect(sf.OpenSource(path)).To(Equal(streamfile.ErrBusy))
		})

		It("fails fast when the target is locked by another writer", func() {
			path := filepath.Join(tdir, "output.stream")

			first := streamfile.StreamFile{}
			Expect(first.OpenTarget(path)).To(Succeed())

			second := streamfile.StreamFile{}
			Expect(second.OpenTarget(path)).To(HaveOccurred())

			// Releasing the first writer's lock makes the target available.
			Expect(first.CloseTarget()).To(Succeed())
			Expect(second.OpenTarget(path)).To(Succeed())
			Expect(second.CloseTarget()).To(Succeed())
		})

		It("sets the set-group-ID bit and clears group-execute on the target", func() {
			path := filepath.Join(tdir, "output.stream")

			sf := streamfile.StreamFile{}
			Expect(sf.OpenTarget(path)).To(Succeed())

			st, err := os.Stat(path)
			Expect(err).ToNot(HaveOccurred())
			Expect(st.Mode() & os.ModeSetgid).ToNot(BeZero())
			Expect(st.Mode().Perm() & 0o010).To(BeZero())

			Expect(sf.CloseTarget()).To(Succeed())
		})
	})

	Describe("close", func() {
		It("returns a state error on a second close and leaves the controller reusable", func() {
			path := filepath.Join(tdir, "output.stream")

			sf := streamfile.StreamFile{}
			Expect(sf.OpenTarget(path)).To(Succeed())
			Expect(sf.CloseTarget()).To(Succeed())

			err := sf.CloseTarget()
			Expect(errors.Cause(err)).To(Equal(streamfile.ErrInvalidState))

			// The controller is still usable after the misuse.
			Expect(sf.OpenTarget(path)).To(Succeed())
			Expect(sf.CloseTarget()).To(Succeed())
		})

		It("rejects cross-mode close calls", func() {
			path := filepath.Join(tdir, "output.stream")
			writeStream(&streamfile.StreamFile{}, path, nil)

			sf := streamfile.StreamFile{}
			Expect(sf.OpenSource(path)).To(Succeed())
			Expect(errors.Cause(sf.CloseTarget())).To(Equal(streamfile.ErrInvalidState))
			Expect(sf.CloseSource()).To(Succeed())
		})
	})

	Describe("call-order enforcement", func() {
		It("requires info before the pump and a running pump before wait", func() {
			path := filepath.Join(tdir, "output.stream")

			sf := streamfile.StreamFile{}
			Expect(sf.OpenTarget(path)).To(Succeed())

			src := packetbuf.New(0)
			Expect(errors.Cause(sf.StartWritePump(src))).To(Equal(streamfile.ErrInvalidState))
			Expect(errors.Cause(sf.WaitWritePump())).To(Equal(streamfile.ErrInvalidState))

			Expect(sf.WriteInfo(streamfile.StreamInfo{FPS: 30}, "app", "today")).To(Succeed())
			Expect(errors.Cause(sf.WriteInfo(streamfile.StreamInfo{FPS: 30}, "app", "today"))).
				To(Equal(streamfile.ErrInvalidState))

			Expect(sf.StartWritePump(src)).To(Succeed())
			Expect(errors.Cause(sf.WriteEOF())).To(Equal(streamfile.ErrInvalidState))

			src.Close()
			Expect(sf.WaitWritePump()).To(Succeed())

			// Info must be rewritten before another pump session.
			Expect(errors.Cause(sf.StartWritePump(src))).To(Equal(streamfile.ErrInvalidState))

			Expect(sf.WriteEOF()).To(Succeed())
			Expect(sf.CloseTarget()).To(Succeed())
		})

		It("refuses bulk reads before a valid info header", func() {
			path := filepath.Join(tdir, "output.stream")
			writeStream(&streamfile.StreamFile{}, path, nil)

			sf := streamfile.StreamFile{}
			Expect(sf.OpenSource(path)).To(Succeed())

			dst := packetbuf.New(0)
			err := sf.Read(context.Background(), dst)
			Expect(errors.Cause(err)).To(Equal(streamfile.ErrInvalidState))

			Expect(sf.CloseSource()).To(Succeed())
		})
	})

	Describe("info header validation", func() {
		writeRaw := func(name string, data []byte) string {
			path := filepath.Join(tdir, name)
			Expect(ioutil.WriteFile(path, data, 0o644)).To(Succeed())
			return path
		}

		It("round-trips the header, name, and date", func() {
			path := filepath.Join(tdir, "output.stream")

			sf := streamfile.StreamFile{}
			Expect(sf.OpenTarget(path)).To(Succeed())
			Expect(sf.WriteInfo(streamfile.StreamInfo{FPS: 59.94, Flags: 0x2, PID: 4321},
				"/usr/bin/game", "2026-08-30 12:00:00")).To(Succeed())
			Expect(sf.WriteEOF()).To(Succeed())
			Expect(sf.CloseTarget()).To(Succeed())

			reader := streamfile.StreamFile{}
			Expect(reader.OpenSource(path)).To(Succeed())
			info, name, date, err := reader.ReadInfo()
			Expect(err).ToNot(HaveOccurred())
			Expect(info.Signature).To(Equal(streamfile.Signature))
			Expect(info.Version).To(Equal(streamfile.Version))
			Expect(info.FPS).To(Equal(59.94))
			Expect(info.Flags).To(Equal(uint32(0x2)))
			Expect(info.PID).To(Equal(uint32(4321)))
			Expect(name).To(Equal("/usr/bin/game"))
			Expect(date).To(Equal("2026-08-30 12:00:00"))
			Expect(reader.Version()).To(Equal(streamfile.Version))
			Expect(reader.CloseSource()).To(Succeed())
		})

		It("rejects a bad signature", func() {
			path := writeRaw("bad_sig.stream", buildHeader(0xDEADBEEF, streamfile.Version))

			sf := streamfile.StreamFile{}
			Expect(sf.OpenSource(path)).To(Succeed())

			_, _, _, err := sf.ReadInfo()
			Expect(errors.Cause(err)).To(Equal(streamfile.ErrBadSignature))

			// Bulk reading must not proceed after a failed info read.
			dst := packetbuf.New(0)
			Expect(errors.Cause(sf.Read(context.Background(), dst))).
				To(Equal(streamfile.ErrInvalidState))

			Expect(sf.CloseSource()).To(Succeed())
		})

		It("rejects an unsupported version", func() {
			path := writeRaw("bad_version.stream", buildHeader(streamfile.Signature, 0x05))

			sf := streamfile.StreamFile{}
			Expect(sf.OpenSource(path)).To(Succeed())

			_, _, _, err := sf.ReadInfo()
			Expect(errors.Cause(err)).To(Equal(streamfile.ErrUnsupportedVersion))

			dst := packetbuf.New(0)
			Expect(errors.Cause(sf.Read(context.Background(), dst))).
				To(Equal(streamfile.ErrInvalidState))

			Expect(sf.CloseSource()).To(Succeed())
		})

		It("rejects implausible block sizes as corruption, not a bad signature", func() {
			raw := buildHeader(streamfile.Signature, streamfile.Version)
			binary.LittleEndian.PutUint32(raw[24:], 1<<24) // name_size
			path := writeRaw("bad_sizes.stream", raw)

			sf := streamfile.StreamFile{}
			Expect(sf.OpenSource(path)).To(Succeed())

			_, _, _, err := sf.ReadInfo()
			Expect(errors.Cause(err)).To(Equal(streamfile.ErrCorruptHeader))

			Expect(sf.CloseSource()).To(Succeed())
		})

		It("rejects a truncated header", func() {
			path := writeRaw("short_header.stream",
				buildHeader(streamfile.Signature, streamfile.Version)[:12])

			sf := streamfile.StreamFile{}
			Expect(sf.OpenSource(path)).To(Succeed())

			_, _, _, err := sf.ReadInfo()
			Expect(err).To(HaveOccurred())
			Expect(sf.CloseSource()).To(Succeed())
		})
	})
})
