package main

import (
	"encoding/binary"
	"testing"
)

func solidPalette(r, g, b byte) []byte {
	pal := make([]byte, PaletteSize)
	for i := 0; i < 256; i++ {
		pal[i*3] = r
		pal[i*3+1] = g
		pal[i*3+2] = b
	}
	return pal
}

func TestPresentKernel_NearestNeighborExpand_ReplicatesEachSourcePixel(t *testing.T) {
	perf := &PerfCounters{}
	k := NewPresentKernel(perf)

	// A distinct color per source column makes the 5x replication boundary
	// directly observable in the packed output.
	pal := make([]byte, PaletteSize)
	for i := 0; i < 256; i++ {
		pal[i*3] = byte(i)
		pal[i*3+1] = byte(i)
		pal[i*3+2] = byte(i)
	}
	if err := k.LoadPalette(pal); err != nil {
		t.Fatalf("load palette: %v", err)
	}

	indexed := make([]byte, ScreenWidth*ScreenHeight)
	for x := 0; x < ScreenWidth; x++ {
		indexed[x] = byte(x % 256)
	}
	dst := make([]byte, PresentWidth*PresentHeight*BytesPerPixel32)
	if err := k.Present(indexed, 1, dst); err != nil {
		t.Fatalf("present: %v", err)
	}
	if err := k.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}

	// Source column 0 occupies output columns [0,5); source column 1
	// occupies [5,10); check both edges of that boundary.
	v0 := binary.LittleEndian.Uint32(dst[4*BytesPerPixel32:])
	v1 := binary.LittleEndian.Uint32(dst[5*BytesPerPixel32:])
	want0 := uint32(0)<<16 | uint32(0)<<8 | uint32(0)
	want1 := uint32(1)<<16 | uint32(1)<<8 | uint32(1)
	if v0 != want0 {
		t.Fatalf("expected output column 4 to equal source column 0 color %#x, got %#x", want0, v0)
	}
	if v1 != want1 {
		t.Fatalf("expected output column 5 to equal source column 1 color %#x, got %#x", want1, v1)
	}

	// Vertical replication: all PresentScale rows of source row 0 must match.
	for ry := 0; ry < PresentScale; ry++ {
		rowOff := ry * PresentWidth * BytesPerPixel32
		v := binary.LittleEndian.Uint32(dst[rowOff:])
		if v != want0 {
			t.Fatalf("expected replicated row %d column 0 to equal %#x, got %#x", ry, want0, v)
		}
	}
}

func TestPresentKernel_SharpenStrengthZero_IsPassthrough(t *testing.T) {
	perf := &PerfCounters{}
	k := NewPresentKernel(perf)
	if err := k.LoadPalette(solidPalette(10, 20, 30)); err != nil {
		t.Fatalf("load palette: %v", err)
	}
	k.SetSharpen(true, 0) // strength 0 must force sharpenOn off

	indexed := make([]byte, ScreenWidth*ScreenHeight)
	dstPlain := make([]byte, PresentWidth*PresentHeight*BytesPerPixel32)
	if err := k.Present(indexed, 1, dstPlain); err != nil {
		t.Fatalf("present: %v", err)
	}
	if err := k.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}

	k2 := NewPresentKernel(&PerfCounters{})
	if err := k2.LoadPalette(solidPalette(10, 20, 30)); err != nil {
		t.Fatalf("load palette (control): %v", err)
	}
	dstControl := make([]byte, PresentWidth*PresentHeight*BytesPerPixel32)
	if err := k2.Present(indexed, 1, dstControl); err != nil {
		t.Fatalf("present (control): %v", err)
	}
	if err := k2.Wait(); err != nil {
		t.Fatalf("wait (control): %v", err)
	}

	for i := range dstPlain[:PresentWidth*BytesPerPixel32] {
		if dstPlain[i] != dstControl[i] {
			t.Fatalf("expected byte-identical output with sharpen strength 0, byte %d: %d != %d", i, dstPlain[i], dstControl[i])
		}
	}
}

func TestPresentKernel_PackXRGB8888(t *testing.T) {
	perf := &PerfCounters{}
	k := NewPresentKernel(perf)
	k.SetFormat(PresentFormatXRGB8888)
	if err := k.LoadPalette(solidPalette(1, 2, 3)); err != nil {
		t.Fatalf("load palette: %v", err)
	}
	indexed := make([]byte, ScreenWidth*ScreenHeight)
	dst := make([]byte, PresentWidth*PresentHeight*BytesPerPixel32)
	if err := k.Present(indexed, 1, dst); err != nil {
		t.Fatalf("present: %v", err)
	}
	k.Wait()
	got := binary.LittleEndian.Uint32(dst)
	want := uint32(1)<<16 | uint32(2)<<8 | uint32(3)
	if got != want {
		t.Fatalf("expected packed pixel %#x, got %#x", want, got)
	}
}

func TestPresentKernel_PackRGB565(t *testing.T) {
	perf := &PerfCounters{}
	k := NewPresentKernel(perf)
	k.SetFormat(PresentFormatRGB565)
	k.SetStride(PresentWidth * BytesPerPixel16)
	if err := k.LoadPalette(solidPalette(255, 255, 255)); err != nil {
		t.Fatalf("load palette: %v", err)
	}
	indexed := make([]byte, ScreenWidth*ScreenHeight)
	dst := make([]byte, PresentWidth*PresentHeight*BytesPerPixel16)
	if err := k.Present(indexed, 1, dst); err != nil {
		t.Fatalf("present: %v", err)
	}
	k.Wait()
	got := binary.LittleEndian.Uint16(dst)
	want := packRGB565(255, 255, 255)
	if got != want {
		t.Fatalf("expected packed rgb565 %#x, got %#x", want, got)
	}
}

func TestPresentKernel_LoadPaletteThenPresent_RoundTrip(t *testing.T) {
	perf := &PerfCounters{}
	k := NewPresentKernel(perf)
	if err := k.LoadPalette(solidPalette(9, 8, 7)); err != nil {
		t.Fatalf("load palette: %v", err)
	}
	indexed := make([]byte, ScreenWidth*ScreenHeight)
	dst := make([]byte, PresentWidth*PresentHeight*BytesPerPixel32)
	if err := k.Present(indexed, ScreenHeight, dst); err != nil {
		t.Fatalf("present: %v", err)
	}
	if err := k.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	snap := perf.SampleAndReset()
	if snap.PresentScaleNanos == 0 {
		t.Fatal("expected PresentScaleNanos to record nonzero elapsed time")
	}
}

func TestPresentKernel_SetLanes_ClampsToValidValues(t *testing.T) {
	perf := &PerfCounters{}
	k := NewPresentKernel(perf)
	k.SetLanes(4)
	if k.lanes != 4 {
		t.Fatalf("expected lanes=4, got %d", k.lanes)
	}
	k.SetLanes(3)
	if k.lanes != 1 {
		t.Fatalf("expected invalid lane count to clamp to 1, got %d", k.lanes)
	}
}
