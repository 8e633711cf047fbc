//go:build headless

// video_runloop_headless.go - Display loop driver, headless build

package main

import "context"

// runDisplayLoop blocks until ctx is cancelled: the headless build has no
// GUI event loop to hand control to.
func runDisplayLoop(backend VideoOutput, ctx context.Context) error {
	<-ctx.Done()
	return nil
}
