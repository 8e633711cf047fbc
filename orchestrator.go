// orchestrator.go - Present-side frame pump

/*
Orchestrator owns the single worker goroutine that drains completed indexed
frames, drives the present kernel (or a CPU-side palette-expand fallback),
and forwards the packed result to a VideoOutput backend. Grounded on
video_compositor.go's Start/Stop/worker-loop shape, but its done-channel
pattern is generalised to golang.org/x/sync/errgroup so that a worker
panic or backend error surfaces through Wait() instead of being silently
dropped, per spec section 5's bounded-queue-depth-3 contract and section 7's
policy that PL/backend failures must be observable rather than swallowed.

Two routing modes mirror spec section 4.5: shared-region handoff, where the
present kernel reads the raster kernel's on-chip framebuffer directly, and
composite-from-DDR, where the engine thread composites HUD rows into
VIDEO_BUF and the present kernel reads that DDR image instead.
*/

package main

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// queueDepth is the bounded depth of in-flight indexed frames the
// orchestrator will hold before Submit blocks, per spec section 5.
const queueDepth = 3

// ErrOrchestratorFull is returned by TrySubmit when the bounded queue has
// no free slot.
var ErrOrchestratorFull = fmt.Errorf("orchestrator: frame queue full")

// Orchestrator pumps indexed frames from the engine thread to the present
// pipeline and on to a video backend.
type Orchestrator struct {
	cfg     Config
	mem     *SimMemory
	raster  *RasterKernel
	present *PresentKernel
	output  VideoOutput
	perf    *PerfCounters

	queue  chan []byte
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	outFormat int
	outBuf    []byte
}

// NewOrchestrator wires an orchestrator to its kernels, backing memory, and
// output backend.
func NewOrchestrator(cfg Config, mem *SimMemory, raster *RasterKernel, present *PresentKernel, output VideoOutput, perf *PerfCounters) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		mem:       mem,
		raster:    raster,
		present:   present,
		output:    output,
		perf:      perf,
		queue:     make(chan []byte, queueDepth),
		outFormat: PresentFormatXRGB8888,
		outBuf:    make([]byte, PresentWidth*PresentHeight*BytesPerPixel32),
	}
}

// Start launches the worker goroutine via errgroup, mirroring
// video_compositor.go's Start/Stop lifecycle but surfacing worker errors
// through Wait rather than discarding them.
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(ctx)
	o.ctx = gctx
	o.cancel = cancel
	o.group = group
	group.Go(func() error { return o.run(gctx) })
}

// Stop signals the worker to exit and waits for it to finish, returning
// any error it surfaced.
func (o *Orchestrator) Stop() error {
	if o.cancel == nil {
		return nil
	}
	o.cancel()
	return o.group.Wait()
}

// Submit hands a composed indexed frame to the worker, blocking if the
// bounded queue is already full: the engine thread backs off rather than
// racing ahead of a present pipeline that cannot keep up.
func (o *Orchestrator) Submit(indexed []byte) error {
	select {
	case o.queue <- indexed:
		return nil
	case <-o.ctx.Done():
		return o.ctx.Err()
	}
}

// TrySubmit is the non-blocking variant: it drops the frame and returns
// ErrOrchestratorFull rather than stalling the engine thread, for callers
// that would rather skip a present than miss a frame deadline.
func (o *Orchestrator) TrySubmit(indexed []byte) error {
	select {
	case o.queue <- indexed:
		return nil
	default:
		return ErrOrchestratorFull
	}
}

func (o *Orchestrator) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame := <-o.queue:
			if err := o.presentOne(frame); err != nil {
				return err
			}
		}
	}
}

// presentOne routes the frame per the configured handoff mode, drives the
// present kernel, and forwards the packed result to the output backend.
func (o *Orchestrator) presentOne(indexed []byte) error {
	// In shared-handoff mode the present kernel reads all 200 rows the
	// raster kernel wrote directly. In composite-from-DDR mode the engine
	// thread has already composited HUD rows 168..199 into VIDEO_BUF
	// before calling Submit, so the present kernel still reads the full
	// 200-row image; HUDOverlay only matters to the PS-side compositor
	// that produced indexed, not to this present step.
	rows := FullDMARows
	if !o.cfg.SharedBRAMHandoff && !o.cfg.HUDOverlay {
		rows = LegacyDMARows
	}

	if err := o.present.Present(indexed, rows, o.outBuf); err != nil {
		return err
	}
	if err := o.present.Wait(); err != nil {
		return err
	}

	var snap PerfSnapshot
	if o.perf != nil {
		snap = o.perf.SampleAndReset()
	}

	frame := FrameSnapshot{
		Pixels: o.outBuf,
		Config: DisplayConfig{
			Width:  PresentWidth,
			Height: rows * PresentScale,
			Format: pixelFormatFromPresent(o.outFormat),
			Stride: PresentWidth * BytesPerPixel32,
		},
		Perf: snap,
	}
	return o.output.Present(frame)
}

func pixelFormatFromPresent(format int) PixelFormat {
	if format == PresentFormatRGB565 {
		return PixelFormatRGB565
	}
	return PixelFormatXRGB8888
}
