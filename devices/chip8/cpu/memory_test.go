package cpu

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
)

func TestNewMemory(t *testing.T) {
	m := NewMemory()

	glyph := make([]byte, GlyphSize)
	if err := m.Read(FontAddress+GlyphSize*0xf, glyph); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(glyph, []byte{0xf0, 0x80, 0xf0, 0x80, 0x80}) {
		t.Fatalf("glyph F: have % x", glyph)
	}

	if m.Watermark() != 0x9f {
		t.Fatalf("want watermark 009f; have %04x", m.Watermark())
	}
}

func TestMemoryBounds(t *testing.T) {
	m := NewMemory()

	if _, err := m.U8(-1); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("U8(-1): want ErrOutOfRange; have %v", err)
	}
	if _, err := m.U8(MemoryCapacity); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("U8(4096): want ErrOutOfRange; have %v", err)
	}
	if err := m.SetU8(MemoryCapacity, 1, true); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("SetU8(4096): want ErrOutOfRange; have %v", err)
	}
	if err := m.SetU8(MemoryCapacity-1, 1, false); err != nil {
		t.Fatalf("SetU8(4095): %v", err)
	}
	if err := m.Write(MemoryCapacity-2, []byte{1, 2, 3}, true); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("Write past the end: want ErrOutOfRange; have %v", err)
	}
	if v, _ := m.U8(MemoryCapacity - 2); v != 0 {
		t.Fatalf("a failed Write must not change memory")
	}
}

func TestWatermark(t *testing.T) {
	m := NewMemory()

	m.SetU8(0x400, 1, false)
	if m.Watermark() != 0x9f {
		t.Fatalf("untracked writes must not move the watermark")
	}

	m.SetU8(0x400, 1, true)
	if m.Watermark() != 0x400 {
		t.Fatalf("want watermark 0400; have %04x", m.Watermark())
	}

	m.Write(0x300, []byte{1, 2, 3, 4}, true)
	if m.Watermark() != 0x400 {
		t.Fatalf("lower writes must not lower the watermark; have %04x", m.Watermark())
	}

	m.Write(0x500, []byte{1, 2, 3, 4}, true)
	if m.Watermark() != 0x503 {
		t.Fatalf("want watermark 0503; have %04x", m.Watermark())
	}
}

func TestLoadProgram(t *testing.T) {
	m := NewMemory()

	if err := m.LoadProgram([]byte{1, 2, 3, 4, 5, 6}); err != nil {
		t.Fatal(err)
	}
	if m.Watermark() != 0x205 {
		t.Fatalf("want watermark 0205; have %04x", m.Watermark())
	}

	if err := m.LoadProgram([]byte{9, 9}); err != nil {
		t.Fatal(err)
	}
	if v, _ := m.U8(0x202); v != 0 {
		t.Fatalf("loading must clear the previous program; have %02x at 0202", v)
	}
	if m.Watermark() != 0x201 {
		t.Fatalf("loading must reset the watermark; have %04x", m.Watermark())
	}

	if err := m.LoadProgram(make([]byte, MemoryCapacity-ProgramAddress)); err != nil {
		t.Fatalf("a program filling all of memory must fit: %v", err)
	}
	if m.Watermark() != 0xfff {
		t.Fatalf("want watermark 0fff; have %04x", m.Watermark())
	}

	err := m.LoadProgram(make([]byte, MemoryCapacity-ProgramAddress+1))
	if !errors.Is(err, ErrProgramTooLarge) {
		t.Fatalf("want ErrProgramTooLarge; have %v", err)
	}
}

func TestStack(t *testing.T) {
	m := NewMemory()

	for i := 0; i < StackDepth; i++ {
		if err := m.Push(uint16(0x200 + 2*i)); err != nil {
			t.Fatalf("Push %d: %v", i, err)
		}
	}
	if err := m.Push(0x300); !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("want ErrStackOverflow; have %v", err)
	}

	for i := StackDepth - 1; i >= 0; i-- {
		addr, err := m.Pop()
		if err != nil || addr != uint16(0x200+2*i) {
			t.Fatalf("Pop %d: have %04x, %v", i, addr, err)
		}
	}
	if _, err := m.Pop(); !errors.Is(err, ErrStackUnderflow) {
		t.Fatalf("want ErrStackUnderflow; have %v", err)
	}
}

func TestMemoryDump(t *testing.T) {
	m := NewMemory()

	var buf bytes.Buffer
	if err := m.Dump(&buf, 0x055, 0x05a); err != nil {
		t.Fatal(err)
	}

	want := "050  f0 90 90 90 f0 20 60 20  20 70 f0 10 f0 80 f0 f0\n"
	if buf.String() != want {
		t.Fatalf("dump mismatch:\nwant: %q\nhave: %q", want, buf.String())
	}

	if err := m.Dump(&buf, 0, MemoryCapacity); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("want ErrOutOfRange; have %v", err)
	}
}

func TestErrorMessage(t *testing.T) {
	err := NewError(Instruction{Address: 0x2a4, Opcode: 0x5121}, ErrIllegalInstruction)

	if err.Error() != "02a4: 5121: illegal instruction" {
		t.Fatalf("unexpected message: %s", err)
	}
	if errors.Cause(err) != ErrIllegalInstruction {
		t.Fatalf("Cause must yield the failure kind")
	}
}
