package main

import "testing"

func TestDrawCommand_EncodeDecodeRoundTrip(t *testing.T) {
	cmd := DrawCommand{
		Kind:   CommandKindColumn,
		Light:  17,
		X1:     42,
		X2:     0,
		Y1:     10,
		Y2:     150,
		Frac:   0x00120000,
		Step:   0x0000FFFF,
		TexOff: 16,
	}
	buf := EncodeDrawCommand(cmd)
	got := DecodeDrawCommandBytes(buf)

	if got.Kind != cmd.Kind || got.Light != cmd.Light || got.X1 != cmd.X1 ||
		got.Y1 != cmd.Y1 || got.Y2 != cmd.Y2 || got.Frac != cmd.Frac ||
		got.Step != cmd.Step || got.TexOff != cmd.TexOff {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, cmd)
	}
}

func TestDrawCommand_EncodeDecodeRoundTrip_Span(t *testing.T) {
	cmd := DrawCommand{
		Kind:   CommandKindSpan,
		Light:  31,
		X1:     0,
		X2:     319,
		Y1:     199,
		Frac:   0xFFFFFFFF,
		Step:   1,
		TexOff: 4096,
	}
	buf := EncodeDrawCommand(cmd)
	got := DecodeDrawCommandBytes(buf)

	if got.Kind != cmd.Kind || got.X1 != cmd.X1 || got.X2 != cmd.X2 ||
		got.Y1 != cmd.Y1 || got.Frac != cmd.Frac || got.Step != cmd.Step ||
		got.TexOff != cmd.TexOff {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, cmd)
	}
}

func TestDrawCommand_Validate_ColumnBounds(t *testing.T) {
	cases := []struct {
		name string
		cmd  DrawCommand
		ok   bool
	}{
		{"valid column", DrawCommand{Kind: CommandKindColumn, X1: 0, Y1: 0, Y2: 199, Light: 0}, true},
		{"x out of range", DrawCommand{Kind: CommandKindColumn, X1: 320, Y1: 0, Y2: 1, Light: 0}, false},
		{"y2 out of range", DrawCommand{Kind: CommandKindColumn, X1: 0, Y1: 0, Y2: 200, Light: 0}, false},
		{"y1 after y2", DrawCommand{Kind: CommandKindColumn, X1: 0, Y1: 100, Y2: 50, Light: 0}, false},
		{"light out of range", DrawCommand{Kind: CommandKindColumn, X1: 0, Y1: 0, Y2: 1, Light: 32}, false},
		{"unaligned tex_off", DrawCommand{Kind: CommandKindColumn, X1: 0, Y1: 0, Y2: 1, Light: 0, TexOff: 5}, false},
	}
	for _, c := range cases {
		err := c.cmd.Validate()
		if c.ok && err != nil {
			t.Errorf("%s: expected valid, got %v", c.name, err)
		}
		if !c.ok && err == nil {
			t.Errorf("%s: expected error, got nil", c.name)
		}
	}
}

func TestDrawCommand_Validate_SpanBounds(t *testing.T) {
	valid := DrawCommand{Kind: CommandKindSpan, X1: 10, X2: 20, Y1: 199, Light: 31}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid span, got %v", err)
	}
	invalid := DrawCommand{Kind: CommandKindSpan, X1: 20, X2: 10, Y1: 0, Light: 0}
	if err := invalid.Validate(); err == nil {
		t.Fatal("expected error for x1 > x2")
	}
}
