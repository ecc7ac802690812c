package cpu

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Memory layout.
const (
	MemoryCapacity = 0x1000 // Total addressable memory.
	FontAddress    = 0x050  // Start of the built-in hexadecimal glyphs.
	GlyphSize      = 5      // Bytes per glyph.
	ProgramAddress = 0x200  // Load address of program images.
	ProgramEnd     = 0xfff  // Program space is cleared up to, but not including, this address.
	StackDepth     = 16     // Maximum number of nested subroutine calls.
)

// initialWatermark is the last byte of the font area.
const initialWatermark = FontAddress + len(font) - 1

var font = [16 * GlyphSize]byte{
	0xf0, 0x90, 0x90, 0x90, 0xf0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xf0, 0x10, 0xf0, 0x80, 0xf0, // 2
	0xf0, 0x10, 0xf0, 0x10, 0xf0, // 3
	0x90, 0x90, 0xf0, 0x10, 0x10, // 4
	0xf0, 0x80, 0xf0, 0x10, 0xf0, // 5
	0xf0, 0x80, 0xf0, 0x90, 0xf0, // 6
	0xf0, 0x10, 0x20, 0x40, 0x40, // 7
	0xf0, 0x90, 0xf0, 0x90, 0xf0, // 8
	0xf0, 0x90, 0xf0, 0x10, 0xf0, // 9
	0xf0, 0x90, 0xf0, 0x90, 0x90, // A
	0xe0, 0x90, 0xe0, 0x90, 0xe0, // B
	0xf0, 0x80, 0x80, 0x80, 0xf0, // C
	0xe0, 0x90, 0x90, 0x90, 0xe0, // D
	0xf0, 0x80, 0xf0, 0x80, 0xf0, // E
	0xf0, 0x80, 0xf0, 0x80, 0x80, // F
}

// Memory defines the system's memory bank and the subroutine return stack.
//
// It also keeps a watermark: the highest address written with tracking enabled.
// The watermark is informational only and never affects execution.
type Memory struct {
	data      [MemoryCapacity]byte
	stack     []uint16
	watermark int
}

// NewMemory creates a zeroed memory bank with the font glyphs in place.
func NewMemory() *Memory {
	m := &Memory{
		stack:     make([]uint16, 0, StackDepth),
		watermark: initialWatermark,
	}
	copy(m.data[FontAddress:], font[:])
	return m
}

// U8 returns the byte at the given address.
func (m *Memory) U8(addr int) (byte, error) {
	if addr < 0 || addr >= MemoryCapacity {
		return 0, errors.Wrapf(ErrOutOfRange, "read %#04x", addr)
	}
	return m.data[addr], nil
}

// SetU8 sets the byte at the given address.
// If track is true, the watermark is raised to addr when it is lower.
func (m *Memory) SetU8(addr int, value byte, track bool) error {
	if addr < 0 || addr >= MemoryCapacity {
		return errors.Wrapf(ErrOutOfRange, "write %#04x", addr)
	}

	m.data[addr] = value
	if track && addr > m.watermark {
		m.watermark = addr
	}
	return nil
}

// Write writes len(p) bytes from p into memory, starting at the given address.
// Nothing is written if any part of the block falls outside of memory.
// If track is true, the watermark is raised to the last written address.
func (m *Memory) Write(addr int, p []byte, track bool) error {
	if addr < 0 || addr+len(p) > MemoryCapacity {
		return errors.Wrapf(ErrOutOfRange, "write %d bytes at %#04x", len(p), addr)
	}

	copy(m.data[addr:], p)
	if last := addr + len(p) - 1; track && len(p) > 0 && last > m.watermark {
		m.watermark = last
	}
	return nil
}

// Read reads len(p) bytes from memory into p, starting at the given address.
func (m *Memory) Read(addr int, p []byte) error {
	if addr < 0 || addr+len(p) > MemoryCapacity {
		return errors.Wrapf(ErrOutOfRange, "read %d bytes at %#04x", len(p), addr)
	}

	copy(p, m.data[addr:])
	return nil
}

// LoadProgram clears the program area, resets the watermark and copies
// the given image to ProgramAddress.
func (m *Memory) LoadProgram(p []byte) error {
	if len(p) > MemoryCapacity-ProgramAddress {
		return errors.Wrapf(ErrProgramTooLarge, "%d bytes, at most %d fit", len(p), MemoryCapacity-ProgramAddress)
	}

	for i := ProgramAddress; i < ProgramEnd; i++ {
		m.data[i] = 0
	}

	m.watermark = initialWatermark
	return m.Write(ProgramAddress, p, true)
}

// Watermark returns the highest address written with tracking enabled.
func (m *Memory) Watermark() int {
	return m.watermark
}

// Push pushes a return address onto the call stack.
func (m *Memory) Push(addr uint16) error {
	if len(m.stack) >= StackDepth {
		return errors.Wrapf(ErrStackOverflow, "depth %d", len(m.stack))
	}
	m.stack = append(m.stack, addr)
	return nil
}

// Pop removes and returns the most recently pushed return address.
func (m *Memory) Pop() (uint16, error) {
	if len(m.stack) == 0 {
		return 0, ErrStackUnderflow
	}

	addr := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return addr, nil
}

// Stack returns a copy of the call stack, oldest entry first.
func (m *Memory) Stack() []uint16 {
	return append([]uint16(nil), m.stack...)
}

// Dump writes a hex table of the memory range [from, to] to w.
// The range is widened to whole rows of 16 bytes.
func (m *Memory) Dump(w io.Writer, from, to int) error {
	if from < 0 || to >= MemoryCapacity || from > to {
		return errors.Wrapf(ErrOutOfRange, "dump %#04x-%#04x", from, to)
	}

	for row := from &^ 0xf; row <= to; row += 16 {
		if _, err := fmt.Fprintf(w, "%03x ", row); err != nil {
			return err
		}

		for col := 0; col < 16; col++ {
			sep := " "
			if col == 8 {
				sep = "  "
			}
			if _, err := fmt.Fprintf(w, "%s%02x", sep, m.data[row+col]); err != nil {
				return err
			}
		}

		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}

	return nil
}
