// command_builder.go - PS-side command submission driver

/*
CommandBuilder implements spec section 4.1. Commands are appended to a
cached, PS-local staging buffer rather than directly into the PL-visible
command region, because that region is typically mapped non-cacheable and
per-command writes there would be ruinous; flush performs one contiguous
copy, matching doom_accel.c's pattern of building up state in host memory
and only touching the device-visible region in bulk (Upload_Texture_Column,
Upload_Colormap) or through a single register write (HW_DrawColumn's three
command registers written right before the start bit).

Clamping happens at queue time, grounded directly on HW_DrawColumn's safety
clamps in original_source/doomgeneric/doom_accel.c: y_start/y_end clamped
into [0,200), x rejected outright if out of range, degenerate ranges
dropped. This keeps the simulated raster kernel's hot inner loops
branch-free, matching the real kernel's re-clamp-defensively note in spec
section 4.3.
*/

package main

import "fmt"

// CommandBuilder is the single-owner, single-goroutine driver described in
// spec section 5: one engine thread owns it, no internal locking.
type CommandBuilder struct {
	staged  [MaxCommands]DrawCommand
	count   int
	mem     *SimMemory
	kernel  *RasterKernel
	atlas   *AtlasManager
	perf    *PerfCounters
	dmaRows int
}

// NewCommandBuilder wires a builder to its backing memory, the raster
// kernel it submits to, and the atlas manager whose caches clear_framebuffer
// must invalidate alongside the on-chip framebuffer.
func NewCommandBuilder(mem *SimMemory, kernel *RasterKernel, atlas *AtlasManager, perf *PerfCounters) *CommandBuilder {
	return &CommandBuilder{
		mem:     mem,
		kernel:  kernel,
		atlas:   atlas,
		perf:    perf,
		dmaRows: FullDMARows,
	}
}

// SetDMARows selects the row count DRAW_AND_DMA requests: FullDMARows in
// shared-handoff mode, LegacyDMARows when the present kernel instead reads
// the PS-composed VIDEO_BUF and the PS writes HUD rows 168..199 itself.
func (cb *CommandBuilder) SetDMARows(rows int) { cb.dmaRows = rows }

// StartFrame fences any prior PL submission, then resets the batch command
// count to zero. It never clears the indexed framebuffer, and it never
// touches the atlas: both HUD persistence and texture-atlas offset
// stability across frames depend on those invariants holding, matching
// i_video.c's I_StartFrame, which explicitly does neither.
func (cb *CommandBuilder) StartFrame() {
	if err := cb.kernel.Wait(); err != nil {
		fmt.Printf("WARNING: start_frame fence timed out: %v\n", err)
	}
	cb.count = 0
}

// QueueColumn clamps to screen bounds, drops degenerate ranges, and
// appends a kind=0 record. A full batch triggers a blocking mid-frame
// flush before the new command is appended.
func (cb *CommandBuilder) QueueColumn(x, y1, y2 int, frac, step, texOff uint32, light uint8) error {
	if y1 < 0 {
		y1 = 0
	}
	if y2 >= ScreenHeight {
		y2 = ScreenHeight - 1
	}
	if x < 0 || x >= ScreenWidth {
		return nil // silently dropped, per spec section 7
	}
	if y1 > y2 {
		return nil // degenerate range, silently dropped
	}

	cb.ensureCapacity()
	cb.append(DrawCommand{
		Kind:   CommandKindColumn,
		Light:  light,
		X1:     uint16(x),
		Y1:     uint16(y1),
		Y2:     uint16(y2),
		Frac:   frac,
		Step:   step,
		TexOff: texOff,
	})
	cb.perf.QueuedColumns.Add(1)
	return nil
}

// QueueSpan clamps to screen bounds, drops degenerate ranges, and appends
// a kind=1 record with the same overflow contract as QueueColumn.
func (cb *CommandBuilder) QueueSpan(y, x1, x2 int, pos, step, texOff uint32, light uint8) error {
	if x1 < 0 {
		x1 = 0
	}
	if x2 >= ScreenWidth {
		x2 = ScreenWidth - 1
	}
	if y < 0 || y >= ScreenHeight {
		return nil
	}
	if x1 > x2 {
		return nil
	}

	cb.ensureCapacity()
	cb.append(DrawCommand{
		Kind:   CommandKindSpan,
		Light:  light,
		X1:     uint16(x1),
		X2:     uint16(x2),
		Y1:     uint16(y),
		Frac:   pos,
		Step:   step,
		TexOff: texOff,
	})
	cb.perf.QueuedSpans.Add(1)
	return nil
}

// ensureCapacity forces a blocking mid-frame flush if the batch is full,
// recording a mid-frame-flush perf event and leaving room for the command
// about to be appended.
func (cb *CommandBuilder) ensureCapacity() {
	if cb.count < MaxCommands {
		return
	}
	cb.perf.MidFrameFlushes.Add(1)
	if err := cb.FlushBatch(); err != nil {
		fmt.Printf("WARNING: mid-frame flush failed: %v\n", err)
	}
}

func (cb *CommandBuilder) append(cmd DrawCommand) {
	cb.staged[cb.count] = cmd
	cb.count++
	cb.perf.bumpMaxBatchSize(uint64(cb.count))
}

// FlushBatch is an async submit: it fences the previous submission if any,
// copies the staged batch to PL-visible memory in one contiguous write,
// issues the combined draw+DMA command, and returns without waiting.
// A zero-length batch is a no-op: no PL start is issued.
func (cb *CommandBuilder) FlushBatch() error {
	if cb.count == 0 {
		return nil
	}

	if err := cb.kernel.Wait(); err != nil {
		fmt.Printf("WARNING: flush fence timed out: %v\n", err)
	}

	buf := make([]byte, cb.count*CommandSize)
	for i := 0; i < cb.count; i++ {
		enc := EncodeDrawCommand(cb.staged[i])
		copy(buf[i*CommandSize:], enc[:])
	}
	cb.mem.WriteCmdBuf(buf)
	cb.perf.CommandUploadBytes.Add(uint64(len(buf)))
	cb.perf.FlushCount.Add(1)

	cmds := make([]DrawCommand, cb.count)
	copy(cmds, cb.staged[:cb.count])
	cb.count = 0

	return cb.kernel.Submit(cmds, cb.dmaRows)
}

// WaitForBatch blocks until the currently in-flight PL submission signals
// completion. It is idempotent if none is in flight.
func (cb *CommandBuilder) WaitForBatch() error {
	return cb.kernel.Wait()
}

// ClearFramebuffer synchronously clears the on-chip indexed framebuffer
// and invalidates the atlas and texture caches (host and device), reusing
// the colormap-load invalidation path per spec section 4.2's wrap policy.
func (cb *CommandBuilder) ClearFramebuffer() {
	if err := cb.kernel.Wait(); err != nil {
		fmt.Printf("WARNING: clear_framebuffer fence timed out: %v\n", err)
	}
	cb.kernel.ClearFramebufferSync()
	cb.kernel.InvalidateAtlasBoundCaches()
	cb.atlas.Reset()
}
