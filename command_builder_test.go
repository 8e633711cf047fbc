package main

import "testing"

func newTestPipeline(t *testing.T) (*SimMemory, *RasterKernel, *AtlasManager, *PerfCounters, *CommandBuilder) {
	t.Helper()
	layout := DefaultRegionLayout()
	mem := NewSimMemory(layout)
	perf := &PerfCounters{}
	atlas := NewAtlasManager(mem.TexAtlas(), perf)
	raster := NewRasterKernel(mem.TexAtlas(), perf)
	raster.SetDMATarget(mem.VideoBuf())
	atlas.SetWrapHandler(raster.InvalidateAtlasBoundCaches)
	cb := NewCommandBuilder(mem, raster, atlas, perf)
	return mem, raster, atlas, perf, cb
}

func TestCommandBuilder_QueueColumn_ClampsYRange(t *testing.T) {
	_, _, _, perf, cb := newTestPipeline(t)
	if err := cb.QueueColumn(10, -5, 250, 0, 0, 0, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cb.count != 1 {
		t.Fatalf("expected one staged command, got %d", cb.count)
	}
	cmd := cb.staged[0]
	if cmd.Y1 != 0 || cmd.Y2 != ScreenHeight-1 {
		t.Fatalf("expected clamped y range [0,%d], got [%d,%d]", ScreenHeight-1, cmd.Y1, cmd.Y2)
	}
	if perf.QueuedColumns.Load() != 1 {
		t.Fatalf("expected QueuedColumns=1, got %d", perf.QueuedColumns.Load())
	}
}

func TestCommandBuilder_QueueColumn_DropsOutOfRangeX(t *testing.T) {
	_, _, _, _, cb := newTestPipeline(t)
	if err := cb.QueueColumn(-1, 0, 10, 0, 0, 0, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cb.count != 0 {
		t.Fatalf("expected command dropped for out-of-range x, count=%d", cb.count)
	}
	if err := cb.QueueColumn(ScreenWidth, 0, 10, 0, 0, 0, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cb.count != 0 {
		t.Fatalf("expected command dropped for x==ScreenWidth, count=%d", cb.count)
	}
}

func TestCommandBuilder_QueueColumn_DropsDegenerateRange(t *testing.T) {
	_, _, _, _, cb := newTestPipeline(t)
	if err := cb.QueueColumn(5, 100, 50, 0, 0, 0, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cb.count != 0 {
		t.Fatalf("expected degenerate column dropped, count=%d", cb.count)
	}
}

func TestCommandBuilder_QueueSpan_ClampsXRange(t *testing.T) {
	_, _, _, _, cb := newTestPipeline(t)
	if err := cb.QueueSpan(50, -10, 400, 0, 0, 0, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cb.count != 1 {
		t.Fatalf("expected one staged span, got %d", cb.count)
	}
	cmd := cb.staged[0]
	if cmd.X1 != 0 || cmd.X2 != ScreenWidth-1 {
		t.Fatalf("expected clamped x range [0,%d], got [%d,%d]", ScreenWidth-1, cmd.X1, cmd.X2)
	}
}

func TestCommandBuilder_FlushBatch_EmptyIsNoOp(t *testing.T) {
	_, _, _, perf, cb := newTestPipeline(t)
	if err := cb.FlushBatch(); err != nil {
		t.Fatalf("expected nil error on empty flush, got %v", err)
	}
	if perf.FlushCount.Load() != 0 {
		t.Fatalf("expected FlushCount to stay 0 on empty flush, got %d", perf.FlushCount.Load())
	}
}

func TestCommandBuilder_FlushBatch_SubmitsAndWaits(t *testing.T) {
	_, _, _, perf, cb := newTestPipeline(t)
	if err := cb.QueueColumn(5, 0, 2, 0, 0, 0, 0); err != nil {
		t.Fatalf("queue: %v", err)
	}
	if err := cb.FlushBatch(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := cb.WaitForBatch(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if perf.FlushCount.Load() != 1 {
		t.Fatalf("expected FlushCount=1, got %d", perf.FlushCount.Load())
	}
}

func TestCommandBuilder_MidFrameFlush_OnFullBatch(t *testing.T) {
	_, _, _, perf, cb := newTestPipeline(t)
	for i := 0; i < MaxCommands; i++ {
		if err := cb.QueueColumn(i%ScreenWidth, 0, 1, 0, 0, 0, 0); err != nil {
			t.Fatalf("queue %d: %v", i, err)
		}
	}
	// Next command forces ensureCapacity to flush the full batch first.
	if err := cb.QueueColumn(0, 0, 1, 0, 0, 0, 0); err != nil {
		t.Fatalf("overflow queue: %v", err)
	}
	if perf.MidFrameFlushes.Load() != 1 {
		t.Fatalf("expected one mid-frame flush, got %d", perf.MidFrameFlushes.Load())
	}
	if cb.count != 1 {
		t.Fatalf("expected the overflow command to be the sole staged entry, got count=%d", cb.count)
	}
	cb.WaitForBatch()
}

func TestCommandBuilder_ClearFramebuffer_ResetsAtlas(t *testing.T) {
	_, _, atlas, _, cb := newTestPipeline(t)
	atlas.Upload(SourceKey(1), []byte{1, 2, 3})
	if atlas.Cursor() == 0 {
		t.Fatal("expected atlas cursor to have advanced before clear")
	}
	cb.ClearFramebuffer()
	if atlas.Cursor() != 0 {
		t.Fatalf("expected ClearFramebuffer to reset the atlas cursor, got %d", atlas.Cursor())
	}
}

func TestCommandBuilder_StartFrame_PreservesFramebuffer(t *testing.T) {
	_, raster, _, _, cb := newTestPipeline(t)
	colormap := make([]byte, ColormapSize)
	colormap[5*256+0] = 42 // light 5, texel 0 (atlas is zero-filled) -> nonzero palette index
	if err := raster.LoadColormap(colormap); err != nil {
		t.Fatalf("load colormap: %v", err)
	}

	if err := cb.QueueColumn(5, 0, 2, 0, 0, 0, 5); err != nil {
		t.Fatalf("queue: %v", err)
	}
	if err := cb.FlushBatch(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	cb.WaitForBatch()

	fbBefore := raster.Framebuffer()
	if fbBefore[0*ScreenWidth+5] != 42 {
		t.Fatalf("expected drawn pixel 42 before StartFrame, got %d", fbBefore[0*ScreenWidth+5])
	}

	cb.StartFrame()
	fbAfter := raster.Framebuffer()
	if fbAfter[0*ScreenWidth+5] != 42 {
		t.Fatalf("expected StartFrame to preserve the framebuffer (HUD persistence), pixel went from 42 to %d", fbAfter[0*ScreenWidth+5])
	}
	if cb.count != 0 {
		t.Fatalf("expected StartFrame to reset the staged count, got %d", cb.count)
	}
}
