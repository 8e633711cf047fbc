// bench_reporter.go - Periodic perf-counter banner for the bench-* CLI paths

/*
BenchReporter samples PerfCounters on a fixed tick and prints a summary line
for the bench-sw/bench-hw/bench-headless paths (spec section 6). It uses
golang.org/x/term the way terminal_host.go does to find out whether stdout
is actually a terminal: an interactive run gets a short human-readable
banner, a redirected/piped run (CI log capture) gets a plain tab-separated
line instead, since ANSI-free log scraping is what a headless benchmark run
is usually for.
*/

package main

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/term"
)

// BenchReporter drives a perf-counter banner on its own goroutine until
// Stop is called.
type BenchReporter struct {
	perf     *PerfCounters
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	isTTY    bool
}

// NewBenchReporter creates a reporter sampling perf at the given interval.
func NewBenchReporter(perf *PerfCounters, interval time.Duration) *BenchReporter {
	return &BenchReporter{
		perf:     perf,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		isTTY:    term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// Start begins printing samples on a ticker until Stop is called.
func (r *BenchReporter) Start() {
	go func() {
		defer close(r.doneCh)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stopCh:
				return
			case <-ticker.C:
				r.printSample(r.perf.SampleAndReset())
			}
		}
	}()
}

// Stop halts the reporter and blocks until its goroutine has exited.
func (r *BenchReporter) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *BenchReporter) printSample(s PerfSnapshot) {
	if r.isTTY {
		fmt.Printf("frames: flush=%d mid-flush=%d cache(hit/miss)=%d/%d pl-wait=%s present=%s\n",
			s.FlushCount, s.MidFrameFlushes, s.CacheHits, s.CacheMisses,
			time.Duration(s.PLWaitNanos), time.Duration(s.PresentScaleNanos))
		return
	}
	fmt.Printf("%d\t%d\t%d\t%d\t%d\t%d\n",
		s.FlushCount, s.MidFrameFlushes, s.CacheHits, s.CacheMisses,
		s.PLWaitNanos, s.PresentScaleNanos)
}
