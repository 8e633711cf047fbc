//go:build !headless

// video_factory_screen.go - Screen backend selection, GUI build

package main

// newScreenOutput returns the ebiten-backed window backend.
func newScreenOutput() (VideoOutput, error) {
	return NewEbitenOutput(), nil
}
