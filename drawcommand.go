// drawcommand.go - DrawCommand wire format shared between PS and PL

/*
DrawCommand is the 32-byte wire contract between the command builder and
the raster kernel. It is encoded as two 128-bit words and must be decoded
by explicit bit-range extraction rather than by reinterpreting the record
as a wider machine word (see spec section 9, "pointer indirection into a
wide word") -- the record may be byte-aligned in memory and the PL side
has no alignment guarantees to lean on.

The layout mirrors the append-fixed-size-record idiom used for binary
command streams elsewhere in the retrieval pack (a little-endian field-by-
field PutUint* builder), adapted here to a fixed 32-byte record instead of
a variable-length drawlist.
*/

package main

import (
	"encoding/binary"
	"fmt"
)

const (
	CommandKindColumn = 0
	CommandKindSpan   = 1
)

// DrawCommand is the decoded, host-side representation of one raster
// command. Field widths intentionally mirror the wire layout even though
// Go would let us use native int; this keeps Encode/Decode symmetric and
// makes the clamp invariants in CommandBuilder easy to reason about.
type DrawCommand struct {
	Kind   uint8
	Light  uint8
	X1     uint16
	X2     uint16
	Y1     uint16
	Y2     uint16
	Frac   uint32
	Step   uint32
	TexOff uint32
}

// EncodeDrawCommand packs a DrawCommand into its 32-byte wire form.
// Byte offsets follow spec section 3 exactly:
//
//	0 kind, 1 light, 2-3 x1, 4-5 x2, 6-7 y1, 8-9 y2, 10-11 reserved,
//	12-15 frac, 16-19 step, 20-23 tex_off, 24-31 reserved.
func EncodeDrawCommand(c DrawCommand) [CommandSize]byte {
	var buf [CommandSize]byte
	buf[0] = c.Kind
	buf[1] = c.Light
	binary.LittleEndian.PutUint16(buf[2:4], c.X1)
	binary.LittleEndian.PutUint16(buf[4:6], c.X2)
	binary.LittleEndian.PutUint16(buf[6:8], c.Y1)
	binary.LittleEndian.PutUint16(buf[8:10], c.Y2)
	// bytes 10-11 reserved, left zero
	binary.LittleEndian.PutUint32(buf[12:16], c.Frac)
	binary.LittleEndian.PutUint32(buf[16:20], c.Step)
	binary.LittleEndian.PutUint32(buf[20:24], c.TexOff)
	// bytes 24-31 reserved, left zero
	return buf
}

// DecodeDrawCommand reconstructs a DrawCommand from its two 128-bit words,
// passed here as the flat 32-byte slice a DMA burst would deliver. It does
// not reinterpret the slice as []uint64 or [2]uint128: every field comes
// from an explicit byte-range read, matching how the raster kernel is
// specified to decode sub-batches fetched from the 128-bit-wide command
// region.
func DecodeDrawCommand(word0, word1 [16]byte) DrawCommand {
	var c DrawCommand
	c.Kind = word0[0]
	c.Light = word0[1]
	c.X1 = binary.LittleEndian.Uint16(word0[2:4])
	c.X2 = binary.LittleEndian.Uint16(word0[4:6])
	c.Y1 = binary.LittleEndian.Uint16(word0[6:8])
	c.Y2 = binary.LittleEndian.Uint16(word0[8:10])
	c.Frac = binary.LittleEndian.Uint32(word0[12:16])
	c.Step = binary.LittleEndian.Uint32(word1[0:4])
	c.TexOff = binary.LittleEndian.Uint32(word1[4:8])
	return c
}

// DecodeDrawCommandBytes is a convenience wrapper over DecodeDrawCommand
// for callers holding a flat 32-byte record (e.g. read back out of
// SimMemory) rather than two separate 128-bit words.
func DecodeDrawCommandBytes(buf [CommandSize]byte) DrawCommand {
	var w0, w1 [16]byte
	copy(w0[:], buf[0:16])
	copy(w1[:], buf[16:32])
	return DecodeDrawCommand(w0, w1)
}

// Validate reports whether c satisfies the submission invariants from
// spec section 3. It does not mutate c; CommandBuilder is responsible for
// clamping before a command is ever constructed.
func (c DrawCommand) Validate() error {
	if c.TexOff%AtlasAlign != 0 {
		return fmt.Errorf("tex_off %d not %d-byte aligned", c.TexOff, AtlasAlign)
	}
	if c.Light > 31 {
		return fmt.Errorf("light %d exceeds 31", c.Light)
	}
	switch c.Kind {
	case CommandKindColumn:
		if c.X1 >= ScreenWidth {
			return fmt.Errorf("column x1 %d out of range", c.X1)
		}
		if c.Y1 >= ScreenHeight || c.Y2 >= ScreenHeight {
			return fmt.Errorf("column y range [%d,%d] out of range", c.Y1, c.Y2)
		}
		if c.Y1 > c.Y2 {
			return fmt.Errorf("column y1 %d > y2 %d", c.Y1, c.Y2)
		}
	case CommandKindSpan:
		if c.Y1 >= ScreenHeight {
			return fmt.Errorf("span y1 %d out of range", c.Y1)
		}
		if c.X1 > c.X2 || c.X2 >= ScreenWidth {
			return fmt.Errorf("span x range [%d,%d] out of range", c.X1, c.X2)
		}
	default:
		return fmt.Errorf("unknown command kind %d", c.Kind)
	}
	return nil
}
