// Copyright 2026 The gocapture Authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package worker

import (
	"github.com/lumastream/gocapture/packetbuf"

	"github.com/pkg/errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// collectTask records everything it processes.
type collectTask struct {
	payloads [][]byte
	tags     []byte

	failOn    byte
	failErr   error
	finishErr error
	finishes  int
}

func (t *collectTask) Process(pkt *packetbuf.Packet) error {
	if t.failOn != 0 && pkt.Tag == t.failOn {
		return t.failErr
	}
	data := make([]byte, pkt.Len())
	copy(data, pkt.Bytes())
	t.payloads = append(t.payloads, data)
	t.tags = append(t.tags, pkt.Tag)
	return nil
}

func (t *collectTask) Finish(err error) {
	t.finishErr = err
	t.finishes++
}

var _ = Describe("W", func() {
	var buf *packetbuf.Buffer
	var task *collectTask

	BeforeEach(func() {
		buf = packetbuf.New(0)
		task = &collectTask{}
	})

	It("processes packets until the buffer closes", func() {
		w := Start(buf, task)

		Expect(buf.Push(1, []byte("a"))).To(Succeed())
		Expect(buf.Push(2, []byte("bb"))).To(Succeed())
		buf.Close()

		Expect(w.Wait()).To(Succeed())
		Expect(task.tags).To(Equal([]byte{1, 2}))
		Expect(task.payloads).To(Equal([][]byte{[]byte("a"), []byte("bb")}))
		Expect(task.finishes).To(Equal(1))
		Expect(task.finishErr).To(BeNil())
	})

	It("treats cancellation as a clean shutdown", func() {
		w := Start(buf, task)
		buf.Cancel()

		Expect(w.Wait()).To(Succeed())
		Expect(task.finishes).To(Equal(1))
		Expect(task.finishErr).To(BeNil())
	})

	It("stops on a task error and reports it", func() {
		boom := errors.New("boom")
		task.failOn, task.failErr = 9, boom

		w := Start(buf, task)
		Expect(buf.Push(1, []byte("ok"))).To(Succeed())
		Expect(buf.Push(9, []byte("bad"))).To(Succeed())
		Expect(buf.Push(1, []byte("never"))).To(Succeed())

		Expect(w.Wait()).To(Equal(boom))
		Expect(task.tags).To(Equal([]byte{1}))
		Expect(task.finishErr).To(Equal(boom))
		Expect(task.finishes).To(Equal(1))
	})
})
