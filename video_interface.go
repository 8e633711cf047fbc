// video_interface.go - Output backend contract

/*
VideoOutput is the seam between the orchestrator and wherever the final
packed frame actually goes: an ebiten window, a headless sink for
benchmarking, or a TCP frame stream. Grounded on the teacher's
video_interface.go, which draws the same line between video_compositor.go
(owns timing/ordering) and its concrete backends
(video_backend_ebiten.go/video_backend_headless.go).
*/

package main

import "fmt"

// PixelFormat mirrors the present kernel's output format selection.
type PixelFormat int

const (
	PixelFormatXRGB8888 PixelFormat = iota
	PixelFormatRGB565
)

// DisplayConfig describes the fixed shape of frames a backend will receive.
type DisplayConfig struct {
	Width  int
	Height int
	Format PixelFormat
	Stride int
}

// FrameSnapshot is one fully-presented frame ready for display: packed
// pixels plus the perf counters sampled at submission time, the way the
// teacher's compositor forwards a completed frame alongside its own
// bookkeeping.
type FrameSnapshot struct {
	Pixels []byte
	Config DisplayConfig
	Perf   PerfSnapshot
}

// VideoOutput is implemented by each concrete backend.
type VideoOutput interface {
	// Open prepares the backend to receive frames of the given shape.
	Open(cfg DisplayConfig) error
	// Present delivers one frame. Backends that own a render loop (ebiten)
	// may buffer it for the next paint; others (headless, tcp) may act on
	// it immediately.
	Present(frame FrameSnapshot) error
	// Close releases any backend resources.
	Close() error
}

// ErrBackendClosed is returned by Present after Close.
var ErrBackendClosed = fmt.Errorf("video output: backend closed")
