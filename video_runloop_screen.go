//go:build !headless

// video_runloop_screen.go - Display loop driver, GUI build

package main

import (
	"context"

	"github.com/hajimehoshi/ebiten/v2"
)

// runDisplayLoop hands control to ebiten's render loop when the backend is
// a window (EbitenOutput); any other backend just blocks until ctx is
// cancelled, since it has no event loop of its own.
func runDisplayLoop(backend VideoOutput, ctx context.Context) error {
	if game, ok := backend.(ebiten.Game); ok {
		return ebiten.RunGame(game)
	}
	<-ctx.Done()
	return nil
}
