// present_kernel.go - PL present kernel simulator

/*
PresentKernel simulates the second coprocessor from spec section 4.4: it
turns a 320x200 indexed frame into a 1600x1000 packed-color image through a
two-stage per-row pipeline (index -> palette/RGB565 color, then nearest-
neighbor expand), followed by an optional five-tap sharpen pass, before
packing into the caller-selected format/stride/lane layout.

Grounded the same way raster_kernel.go is: a software stand-in for a
mode-dispatched AXI-Lite coprocessor behind the teacher's software/hardware
backend split (voodoo_software.go/voodoo_vulkan.go), driven through the same
KernelControl start/done/idle handshake from sim_bus.go. The RGB565 packed
framebuffer layout is grounded on other_examples/QubicOS-Spark's
host_framebuffer.go/target_rgb565.go pixel packing pattern.
*/

package main

import (
	"encoding/binary"
	"sync"
	"time"
)

// PresentKernel is the software present coprocessor simulator.
type PresentKernel struct {
	control *KernelControl
	perf    *PerfCounters

	mu          sync.Mutex
	palette     [PaletteSize]byte
	rgb565      [256]uint16
	format      int
	lanes       int
	strideBytes int
	sharpenOn   bool
	sharpenK    int32
}

// NewPresentKernel creates a present kernel with the spec's default
// pipeline configuration: XRGB8888 output, single lane, natural stride,
// sharpening disabled.
func NewPresentKernel(perf *PerfCounters) *PresentKernel {
	return &PresentKernel{
		control:     NewKernelControl(),
		perf:        perf,
		format:      PresentFormatXRGB8888,
		lanes:       1,
		strideBytes: PresentWidth * BytesPerPixel32,
	}
}

// SetFormat selects PresentFormatXRGB8888 or PresentFormatRGB565.
func (k *PresentKernel) SetFormat(format int) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.format = format
}

// Format reports the currently configured output format.
func (k *PresentKernel) Format() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.format
}

// SetLanes selects the parallel write-master count (1 or 4). A software
// simulator writes every output row in one pass regardless of lane count,
// so this has no effect on the bytes produced; it exists so callers can
// exercise the same register surface a hardware build would expose.
func (k *PresentKernel) SetLanes(n int) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if n != 1 && n != 4 {
		n = 1
	}
	k.lanes = n
}

// SetStride overrides the destination row pitch in bytes; it must be at
// least as wide as one packed row or rows will alias.
func (k *PresentKernel) SetStride(strideBytes int) {
	k.mu.Lock()
	defer k.mu.Unlock()
	min := PresentWidth * BytesPerPixel32
	if k.format == PresentFormatRGB565 {
		min = PresentWidth * BytesPerPixel16
	}
	if strideBytes < min {
		strideBytes = min
	}
	k.strideBytes = strideBytes
}

// SetSharpen configures the five-tap sharpen pass; strength 0 disables it
// exactly (bit-exact passthrough of the unsharpened expand).
func (k *PresentKernel) SetSharpen(enable bool, strength int32) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.sharpenOn = enable && strength != 0
	k.sharpenK = strength
}

// LoadPalette bursts the 768 B RGB888 palette into on-chip BRAM and
// precomputes the RGB565 table alongside it.
func (k *PresentKernel) LoadPalette(rgb888 []byte) error {
	if err := k.control.Start(func() {
		k.mu.Lock()
		defer k.mu.Unlock()
		n := copy(k.palette[:], rgb888)
		for i := n; i < len(k.palette); i++ {
			k.palette[i] = 0
		}
		k.buildRGB565Locked()
	}); err != nil {
		return err
	}
	return k.Wait()
}

func (k *PresentKernel) buildRGB565Locked() {
	for i := 0; i < 256; i++ {
		r, g, b := k.palette[i*3], k.palette[i*3+1], k.palette[i*3+2]
		k.rgb565[i] = packRGB565(r, g, b)
	}
}

// Present issues the combined expand-and-sharpen pipeline over the first
// rows rows of an indexed frame, writing the packed result to dst. It
// returns immediately; callers use Wait to fence.
func (k *PresentKernel) Present(indexed []byte, rows int, dst []byte) error {
	return k.control.Start(func() {
		t0 := time.Now()
		k.mu.Lock()
		k.present(indexed, rows, dst)
		k.mu.Unlock()
		if k.perf != nil {
			k.perf.PresentScaleNanos.Add(uint64(time.Since(t0)))
		}
	})
}

// Wait blocks until the in-flight present signals done, or the submission
// timeout budget is exhausted.
func (k *PresentKernel) Wait() error {
	err := k.control.WaitForDone(WaitDoneBudget)
	if err != nil {
		k.control.Reset()
	}
	return err
}

// present runs the two-stage row pipeline, then the optional sharpen pass,
// then packs into dst. Must be called with k.mu held.
func (k *PresentKernel) present(indexed []byte, rows int, dst []byte) {
	if rows > ScreenHeight {
		rows = ScreenHeight
	}
	height := rows * PresentScale

	// Stage 1 + 2: per source row, convert indices to color, then expand
	// 320 -> 1600 horizontally via the running-divide state machine, and
	// replicate the resulting row PresentScale times vertically (the
	// vertical leg of the same 5x nearest-neighbor expansion).
	expanded := make([]uint32, PresentWidth*height)
	var colorRow [ScreenWidth]uint32
	var outRow [PresentWidth]uint32
	for sy := 0; sy < rows; sy++ {
		srcRow := indexed[sy*ScreenWidth : sy*ScreenWidth+ScreenWidth]
		k.colorRowLocked(srcRow, &colorRow)
		expandRowRunningDivide(&colorRow, &outRow)
		for ry := 0; ry < PresentScale; ry++ {
			dy := sy*PresentScale + ry
			copy(expanded[dy*PresentWidth:(dy+1)*PresentWidth], outRow[:])
		}
	}

	final := expanded
	if k.sharpenOn {
		final = sharpenImage(expanded, PresentWidth, height, k.sharpenK)
	}

	k.packLocked(final, PresentWidth, height, dst)
}

// colorRowLocked converts one row of palette indices to 24-bit RGB triples
// packed as 0x00RRGGBB, regardless of the output format: the sharpen pass
// always operates at 8-bit channel precision, and final packing quantizes
// down to RGB565 only at the very last step, matching the real pipeline's
// format register selecting the *destination* representation rather than
// the internal arithmetic precision.
func (k *PresentKernel) colorRowLocked(srcRow []byte, out *[ScreenWidth]uint32) {
	for x := 0; x < ScreenWidth; x++ {
		idx := int(srcRow[x])
		o := idx * 3
		out[x] = uint32(k.palette[o])<<16 | uint32(k.palette[o+1])<<8 | uint32(k.palette[o+2])
	}
}

// expandRowRunningDivide maps each of the 1600 output columns to one of
// the 320 source columns without per-pixel division: a remainder r
// accumulates by 1 every output step and triggers a source advance once it
// reaches the 5x scale factor, the same Bresenham-style technique the PL
// present kernel uses to walk its read pointer across source words while
// its write pointer advances a fixed number of bytes per destination
// sample (4 for XRGB8888, 2 for RGB565).
func expandRowRunningDivide(in *[ScreenWidth]uint32, out *[PresentWidth]uint32) {
	q, r := 0, 0
	for w := 0; w < PresentWidth; w++ {
		out[w] = in[q]
		r++
		if r >= PresentScale {
			r -= PresentScale
			q++
		}
	}
}

// packRGB565/unpackRGB565 convert between 8-bit RGB channels and the
// 5/6/5 packed representation, grounded on QubicOS-Spark's target_rgb565.go
// bit layout.
func packRGB565(r, g, b uint8) uint16 {
	return uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
}

func unpackRGB24(v uint32) (r, g, b uint8) {
	return uint8(v >> 16), uint8(v >> 8), uint8(v)
}

// sharpenImage applies the five-tap unsharp filter (center plus the four
// axis neighbors, edges clamped) to every channel independently, per spec
// section 4.4's sharpen formula: out = c + ((c - avg(neighbors))*strength)>>8,
// saturated to [0,255].
func sharpenImage(src []uint32, width, height int, strength int32) []uint32 {
	out := make([]uint32, len(src))
	at := func(x, y int) uint32 {
		if x < 0 {
			x = 0
		}
		if x >= width {
			x = width - 1
		}
		if y < 0 {
			y = 0
		}
		if y >= height {
			y = height - 1
		}
		return src[y*width+x]
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			cr, cg, cb := unpackRGB24(src[y*width+x])
			ur, ug, ub := unpackRGB24(at(x, y-1))
			dr, dg, db := unpackRGB24(at(x, y+1))
			lr, lg, lb := unpackRGB24(at(x-1, y))
			rr, rg, rb := unpackRGB24(at(x+1, y))

			nr := sharpenChannel(cr, ur, dr, lr, rr, strength)
			ng := sharpenChannel(cg, ug, dg, lg, rg, strength)
			nb := sharpenChannel(cb, ub, db, lb, rb, strength)
			out[y*width+x] = uint32(nr)<<16 | uint32(ng)<<8 | uint32(nb)
		}
	}
	return out
}

func sharpenChannel(c, up, down, left, right uint8, strength int32) uint8 {
	avg := (int32(up) + int32(down) + int32(left) + int32(right)) / 4
	diff := int32(c) - avg
	v := int32(c) + ((diff * strength) >> 8)
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(v)
}

// packLocked writes final (packed as 0x00RRGGBB per pixel) into dst in the
// configured format, stride, and row order.
func (k *PresentKernel) packLocked(final []uint32, width, height int, dst []byte) {
	for y := 0; y < height; y++ {
		rowOff := y * k.strideBytes
		if rowOff >= len(dst) {
			break
		}
		row := dst[rowOff:]
		for x := 0; x < width; x++ {
			r, g, b := unpackRGB24(final[y*width+x])
			switch k.format {
			case PresentFormatRGB565:
				off := x * BytesPerPixel16
				if off+BytesPerPixel16 > len(row) {
					break
				}
				binary.LittleEndian.PutUint16(row[off:], packRGB565(r, g, b))
			default:
				off := x * BytesPerPixel32
				if off+BytesPerPixel32 > len(row) {
					break
				}
				binary.LittleEndian.PutUint32(row[off:], uint32(r)<<16|uint32(g)<<8|uint32(b))
			}
		}
	}
}
