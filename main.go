// main.go - Entry point for the raster core driver

/*
(c) 2026
A hardware-assisted real-time raster pipeline driver for a 320x200
indexed-color renderer, split across a PS-side command/atlas/present
orchestration layer and simulated PL raster/present coprocessors.
*/

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"
)

func boilerPlate() {
	fmt.Println("doomraster-core - PS/PL split indexed raster pipeline simulator")
	fmt.Println("output: tcp|screen|headless  bench: bench-sw|bench-hw  resolution: native320|fullres")
}

func main() {
	boilerPlate()

	var (
		output        string
		tcpAddr       string
		benchMode     string
		resolution    string
		scaleFactor   int
		presentMode   string
		plScale       bool
		plLanes       int
		headless      bool
		noClient      bool
		benchHeadless bool
		sharedHandoff bool
		composite     bool
		hudOverlay    bool
		presentFmt    string
	)

	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&output, "output", "screen", "output backend: tcp|screen|headless")
	flagSet.StringVar(&tcpAddr, "tcp-addr", ":9998", "listen address for -output tcp")
	flagSet.StringVar(&benchMode, "bench", "", "benchmark path: bench-sw|bench-hw")
	flagSet.StringVar(&resolution, "resolution", "fullres", "native320|fullres")
	flagSet.IntVar(&scaleFactor, "scale", 1, "integer scaling factor for native320 resolution")
	flagSet.StringVar(&presentMode, "present", "async-present", "async-present|sync-present")
	flagSet.BoolVar(&plScale, "pl-scale", true, "perform the 5x upscale/present on the PL present kernel")
	flagSet.IntVar(&plLanes, "pl-lanes", 1, "present kernel parallel write lanes: 1|4")
	flagSet.BoolVar(&headless, "headless", false, "force the headless output backend regardless of -output")
	flagSet.BoolVar(&noClient, "no-client", false, "for -output tcp: do not block waiting for a client to connect")
	flagSet.BoolVar(&benchHeadless, "bench-headless", false, "run the benchmark path with the headless backend")
	flagSet.BoolVar(&sharedHandoff, "shared-handoff", true, "present kernel reads the raster kernel's on-chip framebuffer directly")
	flagSet.BoolVar(&composite, "composite", true, "compose HUD rows into VIDEO_BUF on the PS before DMA-out")
	flagSet.BoolVar(&hudOverlay, "hud-overlay", true, "preserve HUD rows 168..199 in legacy (non-shared-handoff) DMA mode")
	flagSet.StringVar(&presentFmt, "present-format", "xrgb8888", "xrgb8888|rgb565")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: doomraster-core [flags]")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if benchMode != "" || benchHeadless {
		headless = true
		if output == "screen" {
			output = "headless"
		}
	}

	cfg := DefaultConfig()
	cfg.SharedBRAMHandoff = sharedHandoff
	cfg.Composite = composite
	cfg.HUDOverlay = hudOverlay
	envCfg, err := LoadConfigFromEnv()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	cfg.RasterBase = envCfg.RasterBase
	cfg.PresentBase = envCfg.PresentBase
	cfg.FBScanoutPhys = envCfg.FBScanoutPhys

	layout := DefaultRegionLayout()
	mem := NewSimMemory(layout)
	perf := &PerfCounters{}

	atlas := NewAtlasManager(mem.TexAtlas(), perf)
	raster := NewRasterKernel(mem.TexAtlas(), perf)
	present := NewPresentKernel(perf)
	atlas.SetWrapHandler(raster.InvalidateAtlasBoundCaches)

	if cfg.SharedBRAMHandoff {
		raster.SetDMATarget(mem.SharedBRAM())
	} else {
		raster.SetDMATarget(mem.VideoBuf())
	}

	switch presentFmt {
	case "rgb565":
		present.SetFormat(PresentFormatRGB565)
	default:
		present.SetFormat(PresentFormatXRGB8888)
	}
	if plLanes != 1 && plLanes != 4 {
		fmt.Printf("Error: --pl-lanes must be 1 or 4, got %d\n", plLanes)
		os.Exit(1)
	}
	present.SetLanes(plLanes)

	builder := NewCommandBuilder(mem, raster, atlas, perf)
	if cfg.SharedBRAMHandoff {
		builder.SetDMARows(FullDMARows)
	} else {
		builder.SetDMARows(LegacyDMARows)
	}

	var backend VideoOutput
	if headless {
		backend = NewHeadlessOutput()
	} else {
		switch output {
		case "tcp":
			backend, err = NewTCPOutput(tcpAddr)
		case "headless":
			backend = NewHeadlessOutput()
		default:
			backend, err = newScreenOutput()
		}
	}
	if err != nil {
		fmt.Printf("Failed to initialize output backend %q: %v\n", output, err)
		os.Exit(1)
	}

	width, height := PresentWidth, PresentHeight
	if resolution == "native320" {
		if scaleFactor < 1 {
			scaleFactor = 1
		}
		width, height = ScreenWidth*scaleFactor, ScreenHeight*scaleFactor
	}
	if err := backend.Open(DisplayConfig{Width: width, Height: height, Format: pixelFormatFromPresent(present.Format())}); err != nil {
		fmt.Printf("Failed to open output backend: %v\n", err)
		os.Exit(1)
	}

	orch := NewOrchestrator(cfg, mem, raster, present, backend, perf)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	orch.Start(ctx)

	if benchMode != "" || benchHeadless {
		reporter := NewBenchReporter(perf, time.Second)
		reporter.Start()
		defer reporter.Stop()
	}

	if err := runDisplayLoop(backend, ctx); err != nil {
		fmt.Printf("Display loop exited: %v\n", err)
	}

	if err := orch.Stop(); err != nil {
		fmt.Printf("Orchestrator exited with error: %v\n", err)
		os.Exit(1)
	}
	backend.Close()
}
