//go:build !headless

// video_backend_ebiten.go - ebiten-backed screen output

/*
Grounded on the teacher's video_backend_ebiten.go: an ebiten.Game
implementation that owns the window, receives packed frames from the
orchestrator through a mutex-guarded "latest frame" handoff (the same
shape as the teacher's screen buffer swap), and draws a perf counter
overlay using golang.org/x/image/font/basicfont the way the teacher draws
its HUD text.
*/

package main

import (
	"fmt"
	"image/color"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

// EbitenOutput renders presented frames into an ebiten window.
type EbitenOutput struct {
	mu        sync.Mutex
	cfg       DisplayConfig
	img       *ebiten.Image
	pixels    []byte
	perf      PerfSnapshot
	showHUD   bool
	closed    bool
}

// NewEbitenOutput returns a backend with the HUD overlay enabled by
// default; spec section 6's headless/no-client flags never reach this
// backend since it is excluded from headless builds.
func NewEbitenOutput() *EbitenOutput {
	return &EbitenOutput{showHUD: true}
}

func (e *EbitenOutput) Open(cfg DisplayConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	e.img = ebiten.NewImage(cfg.Width, cfg.Height)
	e.pixels = make([]byte, cfg.Width*cfg.Height*4)
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetWindowTitle("doomraster-core")
	return nil
}

func (e *EbitenOutput) Present(frame FrameSnapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrBackendClosed
	}
	convertToRGBA(frame, e.pixels)
	e.img.WritePixels(e.pixels)
	e.perf = frame.Perf
	return nil
}

func (e *EbitenOutput) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// Update implements ebiten.Game; the window has no input of its own, the
// engine drives frame production on its own loop and pushes into Present.
func (e *EbitenOutput) Update() error { return nil }

// Draw implements ebiten.Game, blitting the latest frame and the perf
// overlay.
func (e *EbitenOutput) Draw(screen *ebiten.Image) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.img == nil {
		return
	}
	screen.DrawImage(e.img, nil)
	if e.showHUD {
		line := fmt.Sprintf("flush=%d cols=%d spans=%d cache=%d/%d",
			e.perf.FlushCount, e.perf.QueuedColumns, e.perf.QueuedSpans,
			e.perf.CacheHits, e.perf.CacheLookups)
		text.Draw(screen, line, basicfont.Face7x13, 8, 16, color.White)
	}
}

// Layout implements ebiten.Game, reporting the fixed logical resolution.
func (e *EbitenOutput) Layout(outsideWidth, outsideHeight int) (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.Width, e.cfg.Height
}

// convertToRGBA expands a packed XRGB8888/RGB565 frame into the
// non-premultiplied RGBA byte order ebiten.Image.WritePixels expects.
func convertToRGBA(frame FrameSnapshot, out []byte) {
	w, h := frame.Config.Width, frame.Config.Height
	stride := frame.Config.Stride
	src := frame.Pixels
	switch frame.Config.Format {
	case PixelFormatRGB565:
		for y := 0; y < h; y++ {
			row := src[y*stride:]
			for x := 0; x < w; x++ {
				v := uint16(row[x*2]) | uint16(row[x*2+1])<<8
				r := uint8((v>>11)&0x1F) << 3
				g := uint8((v>>5)&0x3F) << 2
				b := uint8(v&0x1F) << 3
				o := (y*w + x) * 4
				out[o], out[o+1], out[o+2], out[o+3] = r, g, b, 0xFF
			}
		}
	default:
		for y := 0; y < h; y++ {
			row := src[y*stride:]
			for x := 0; x < w; x++ {
				o := (y*w + x) * 4
				out[o] = row[x*4+2]   // R
				out[o+1] = row[x*4+1] // G
				out[o+2] = row[x*4+0] // B
				out[o+3] = 0xFF
			}
		}
	}
}
