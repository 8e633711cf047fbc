// video_backend_headless.go - In-memory sink for benchmarking and CI

/*
Grounded on the teacher's video_backend_headless.go: a backend that
satisfies VideoOutput without opening any window, so the bench-sw/bench-hw/
bench-headless CLI paths (spec section 6) can drive the full pipeline
without a display. Unlike the teacher's headless backend, which only
exists under a "headless" build tag (dropping the ebiten/GUI dependency
entirely for CI), this one compiles unconditionally: bench-headless is a
runtime flag here, not a separate build, since the GUI dependency
(video_backend_ebiten.go) is gated out on its own.
*/

package main

import "sync"

// HeadlessOutput discards frames after recording the most recent one,
// mainly so tests and the benchmark CLI path can inspect throughput.
type HeadlessOutput struct {
	mu       sync.Mutex
	cfg      DisplayConfig
	frames   uint64
	lastPerf PerfSnapshot
	closed   bool
}

// NewHeadlessOutput returns a ready-to-open headless backend.
func NewHeadlessOutput() *HeadlessOutput { return &HeadlessOutput{} }

func (h *HeadlessOutput) Open(cfg DisplayConfig) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cfg = cfg
	h.closed = false
	return nil
}

func (h *HeadlessOutput) Present(frame FrameSnapshot) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrBackendClosed
	}
	h.frames++
	h.lastPerf = frame.Perf
	return nil
}

func (h *HeadlessOutput) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

// FrameCount reports how many frames Present has accepted, for benchmark
// reporting.
func (h *HeadlessOutput) FrameCount() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frames
}
