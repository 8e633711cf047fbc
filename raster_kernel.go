// raster_kernel.go - PL raster kernel simulator

/*
RasterKernel simulates the mode-dispatched raster coprocessor from spec
section 4.3: an on-chip 320x200 indexed framebuffer, a direct-mapped
256x128-byte texture column cache, a single-slot 4 KiB flat cache, and a
32x256 colormap table, driven through the same start/done/idle handshake
(KernelControl, sim_bus.go) a real AXI-Lite coprocessor would expose.

It is shaped as a software implementation of a small Kernel-like interface
the way voodoo_software.go implements VoodooBackend behind the teacher's
hardware/software backend split: the PS driver (command_builder.go) only
ever calls Submit/Wait/LoadColormap/ClearFramebufferSync, so a real-FPGA
implementation could later be substituted without touching the driver.
*/

package main

import (
	"fmt"
	"sync"
	"time"
)

type textureCacheLine struct {
	tag   uint32
	valid bool
	data  [TextureCacheLineSize]byte
}

// RasterKernel is the software raster coprocessor simulator.
type RasterKernel struct {
	control *KernelControl
	perf    *PerfCounters

	mu       sync.Mutex
	fb       [ScreenHeight * ScreenWidth]byte
	colormap [ColormapSize]byte
	texCache [TextureCacheLines]textureCacheLine
	flatTag  uint32
	flatOK   bool
	flatData [FlatCacheSize]byte

	atlas     []byte
	dmaTarget []byte
}

// NewRasterKernel creates a kernel reading textures from the given atlas
// region (TEX_ATLAS DDR image).
func NewRasterKernel(atlas []byte, perf *PerfCounters) *RasterKernel {
	return &RasterKernel{
		control: NewKernelControl(),
		perf:    perf,
		atlas:   atlas,
	}
}

// SetDMATarget selects the destination DDR region for DMA_OUT/DRAW_AND_DMA:
// the shared on-chip-backed handoff region in shared-handoff mode, or the
// PS-composed VIDEO_BUF region in legacy/composite mode.
func (k *RasterKernel) SetDMATarget(dst []byte) { k.dmaTarget = dst }

// LoadColormap bursts the 8 KiB colormap image from DDR into on-chip BRAM
// and invalidates both texture caches, per spec section 4.3.
func (k *RasterKernel) LoadColormap(ddrColormap []byte) error {
	if err := k.control.Start(func() {
		k.mu.Lock()
		defer k.mu.Unlock()
		n := copy(k.colormap[:], ddrColormap)
		for i := n; i < len(k.colormap); i++ {
			k.colormap[i] = 0
		}
		k.invalidateTextureCachesLocked()
		k.invalidateFlatCacheLocked()
	}); err != nil {
		return err
	}
	return k.Wait()
}

// ClearFramebufferSync zeroes the indexed framebuffer BRAM and invalidates
// the flat cache (CLEAR_FB mode).
func (k *RasterKernel) ClearFramebufferSync() error {
	if err := k.control.Start(func() {
		k.mu.Lock()
		defer k.mu.Unlock()
		for i := range k.fb {
			k.fb[i] = 0
		}
		k.invalidateFlatCacheLocked()
	}); err != nil {
		return err
	}
	return k.Wait()
}

// InvalidateAtlasBoundCaches invalidates both texture and flat caches
// without touching the framebuffer or colormap, reusing the colormap-load
// path's invalidation side effect as described in spec section 4.2's wrap
// policy. It bypasses the start/done handshake because it must be safe to
// call from the atlas manager's upload path even while a draw batch may
// already be in flight on a different command's texture set.
func (k *RasterKernel) InvalidateAtlasBoundCaches() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.invalidateTextureCachesLocked()
	k.invalidateFlatCacheLocked()
}

func (k *RasterKernel) invalidateTextureCachesLocked() {
	for i := range k.texCache {
		k.texCache[i] = textureCacheLine{}
	}
}

func (k *RasterKernel) invalidateFlatCacheLocked() {
	k.flatOK = false
}

// Submit issues the combined DRAW_AND_DMA command: draw cmds into the
// framebuffer, then DMA the first rows rows out to the configured target.
// It returns immediately; callers use Wait to fence.
func (k *RasterKernel) Submit(cmds []DrawCommand, rows int) error {
	return k.control.Start(func() {
		k.drawBatch(cmds)
		k.dmaOut(rows)
	})
}

// DrawBatch runs DRAW_BATCH alone, synchronously, mainly for tests that
// want to inspect the framebuffer without a DMA round trip.
func (k *RasterKernel) DrawBatch(cmds []DrawCommand) error {
	if err := k.control.Start(func() { k.drawBatch(cmds) }); err != nil {
		return err
	}
	return k.Wait()
}

// DMAOut runs DMA_OUT alone: writes the first rows rows of the indexed
// framebuffer to the configured destination.
func (k *RasterKernel) DMAOut(rows int) error {
	if err := k.control.Start(func() { k.dmaOut(rows) }); err != nil {
		return err
	}
	return k.Wait()
}

// Wait blocks until the in-flight submission signals done, or the
// submission-timeout budget is exhausted, recording PL wait time and
// resetting the in-flight flag on timeout per spec section 4.1.
func (k *RasterKernel) Wait() error {
	t0 := time.Now()
	err := k.control.WaitForDone(WaitDoneBudget)
	if k.perf != nil {
		k.perf.PLWaitNanos.Add(uint64(time.Since(t0)))
	}
	if err != nil {
		fmt.Printf("WARNING: raster kernel submission timed out, clearing in-flight flag\n")
		k.control.Reset()
	}
	return err
}

// Framebuffer returns a read-only snapshot of the on-chip indexed
// framebuffer, for the shared-handoff present path and for tests.
func (k *RasterKernel) Framebuffer() []byte {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]byte, len(k.fb))
	copy(out, k.fb[:])
	return out
}

// drawBatch processes commands in submission order, fetching textures
// through the on-chip caches and writing lit pixels into the framebuffer.
// Command sub-batching of 64 at a time (spec section 4.3) is a hardware
// fetch-burst detail with no observable effect on a software simulator
// processing the full slice at once, so it is not separately modelled.
func (k *RasterKernel) drawBatch(cmds []DrawCommand) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, cmd := range cmds {
		switch cmd.Kind {
		case CommandKindColumn:
			k.drawColumnLocked(cmd)
		case CommandKindSpan:
			k.drawSpanLocked(cmd)
		}
	}
}

func (k *RasterKernel) drawColumnLocked(cmd DrawCommand) {
	idx := (cmd.TexOff >> 7) & 0xFF
	line := &k.texCache[idx]
	if !line.valid || line.tag != cmd.TexOff {
		k.fillTextureLineLocked(line, cmd.TexOff)
	}

	x := int(cmd.X1)
	frac := cmd.Frac
	for y := int(cmd.Y1); y <= int(cmd.Y2); y++ {
		// Defensive re-clamp: PS clamps at queue time, but the kernel
		// must behave predictably even if malformed commands arrive.
		if x >= 0 && x < ScreenWidth && y >= 0 && y < ScreenHeight {
			texel := line.data[(frac>>16)&127]
			k.fb[y*ScreenWidth+x] = k.colormap[int(cmd.Light)*256+int(texel)]
		}
		frac += cmd.Step
	}
}

func (k *RasterKernel) fillTextureLineLocked(line *textureCacheLine, texOff uint32) {
	line.tag = texOff
	line.valid = true
	if uint64(texOff)+TextureCacheLineSize <= uint64(len(k.atlas)) {
		copy(line.data[:], k.atlas[texOff:uint64(texOff)+TextureCacheLineSize])
	}
}

func (k *RasterKernel) drawSpanLocked(cmd DrawCommand) {
	if !k.flatOK || k.flatTag != cmd.TexOff {
		k.flatTag = cmd.TexOff
		k.flatOK = true
		if uint64(cmd.TexOff)+FlatCacheSize <= uint64(len(k.atlas)) {
			copy(k.flatData[:], k.atlas[cmd.TexOff:uint64(cmd.TexOff)+FlatCacheSize])
		}
	}

	y := int(cmd.Y1)
	pos := cmd.Frac
	for x := int(cmd.X1); x <= int(cmd.X2); x++ {
		if x >= 0 && x < ScreenWidth && y >= 0 && y < ScreenHeight {
			spot := ((pos >> 26) | ((pos >> 4) & 0x0fc0)) & 0xFFF
			texel := k.flatData[spot]
			k.fb[y*ScreenWidth+x] = k.colormap[int(cmd.Light)*256+int(texel)]
		}
		pos += cmd.Step
	}
}

// dmaOut writes the first rows rows of the framebuffer to the configured
// DMA target, per the full-200-row vs view-only-168-row policy in spec
// section 4.3.
func (k *RasterKernel) dmaOut(rows int) {
	if k.dmaTarget == nil || rows <= 0 {
		return
	}
	n := rows * ScreenWidth
	if n > len(k.fb) {
		n = len(k.fb)
	}
	if n > len(k.dmaTarget) {
		n = len(k.dmaTarget)
	}
	copy(k.dmaTarget[:n], k.fb[:n])
}
