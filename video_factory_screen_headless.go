//go:build headless

// video_factory_screen_headless.go - Screen backend selection, headless build

package main

import "fmt"

// newScreenOutput reports an error: the headless build tag drops ebiten
// and every other GUI dependency entirely.
func newScreenOutput() (VideoOutput, error) {
	return nil, fmt.Errorf("screen output requires building without the headless tag")
}
