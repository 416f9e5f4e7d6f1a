// Copyright 2026 The gocapture Authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Command streamdump validates a stream file and prints its header and a
// per-tag frame census.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/lumastream/gocapture/packetbuf"
	"github.com/lumastream/gocapture/streamfile"

	"github.com/fatih/color"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	verbose := pflag.BoolP("verbose", "v", false, "enable debug logging")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <stream-file>\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if pflag.NArg() != 1 {
		pflag.Usage()
		os.Exit(2)
	}

	if err := dump(pflag.Arg(0), *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "streamdump: %v\n", err)
		os.Exit(1)
	}
}

func dump(path string, verbose bool) error {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	sf := streamfile.StreamFile{Logger: logger.Sugar()}
	if err := sf.OpenSource(path); err != nil {
		return err
	}
	defer func() {
		_ = sf.CloseSource()
	}()

	info, name, date, err := sf.ReadInfo()
	if err != nil {
		return err
	}

	heading := color.New(color.FgCyan, color.Bold)
	heading.Printf("%s\n", path)
	fmt.Printf("  version:  0x%02x\n", info.Version)
	fmt.Printf("  fps:      %g\n", info.FPS)
	fmt.Printf("  pid:      %d\n", info.PID)
	fmt.Printf("  name:     %s\n", name)
	fmt.Printf("  date:     %s\n", date)

	counts, bytes, err := census(&sf)
	if err != nil {
		return err
	}

	heading.Printf("frames\n")
	tags := make([]streamfile.Tag, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	for _, tag := range tags {
		fmt.Printf("  %-16s %d\n", tag, counts[tag])
	}
	fmt.Printf("  %-16s %d\n", "payload bytes", bytes)
	return nil
}

// census drains the whole stream, counting frames per tag.
func census(sf *streamfile.StreamFile) (map[streamfile.Tag]int64, int64, error) {
	buf := packetbuf.New(0)

	counts := make(map[streamfile.Tag]int64)
	var bytes int64
	doneC := make(chan struct{})
	go func() {
		defer close(doneC)
		for {
			pkt, err := buf.Pop()
			if err != nil {
				return
			}
			counts[streamfile.Tag(pkt.Tag)]++
			bytes += int64(pkt.Len())
			pkt.Release()
		}
	}()

	err := sf.Read(context.Background(), buf)
	buf.Close()
	<-doneC
	return counts, bytes, err
}
