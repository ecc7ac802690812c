// Package cpu implements the CHIP-8 instruction engine and its memory.
package cpu

import (
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/hexaflex/chip8/arch"
	"github.com/hexaflex/chip8/devices"
)

// Register file properties.
const (
	RegisterCount = 16
	RegFlag       = 0xf // VF doubles as carry, borrow and collision flag.
)

// addrMask keeps I and computed jump targets within 12 bits.
const addrMask = MemoryCapacity - 1

// TraceFunc represents a callback handler for debug trace output.
// It is called after every successfully executed instruction.
type TraceFunc func(Instruction)

// Random is the source of random bytes for Cxnn.
// *rand.Rand satisfies it.
type Random interface {
	Intn(n int) int
}

// CPU implements the fetch-decode-execute engine.
//
// A CPU is not safe for concurrent use. Step and TickTimers must be serialized
// by the caller.
type CPU struct {
	memory  *Memory         // System memory and call stack.
	display devices.Display // Framebuffer drawn into by CLS and DRW.
	keypad  devices.Keypad  // Key state read by SKP, SKNP and LD Vx, K.
	trace   TraceFunc       // Handler for debug trace output.
	rng     Random          // Random number generator.
	quirks  Quirks          // Selected instruction variants.
	instr   Instruction     // Last decoded instruction.

	v     [RegisterCount]byte // V0-VF.
	i     uint16              // Index register.
	pc    uint16              // Program counter.
	delay byte                // Delay timer.
	sound byte                // Sound timer.
}

// New creates a new CPU operating on the given memory and peripherals.
// Optionally with the given debug trace handler.
func New(mem *Memory, display devices.Display, keypad devices.Keypad, quirks Quirks, trace TraceFunc) *CPU {
	if trace == nil {
		trace = func(Instruction) { /* nop */ }
	}

	return &CPU{
		memory:  mem,
		display: display,
		keypad:  keypad,
		trace:   trace,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		quirks:  quirks,
		pc:      ProgramAddress,
	}
}

// ID returns the cpu's device Id.
func (c *CPU) ID() devices.ID {
	return devices.NewID(devices.Manufacturer, 0x0001)
}

// Memory returns the cpu's memory bank.
func (c *CPU) Memory() *Memory { return c.memory }

// Quirks returns the current instruction variants.
func (c *CPU) Quirks() Quirks { return c.quirks }

// SetQuirks selects the instruction variants used from the next Step on.
func (c *CPU) SetQuirks(q Quirks) { c.quirks = q }

// SetRandom replaces the random source used by Cxnn.
func (c *CPU) SetRandom(r Random) { c.rng = r }

// SetTrace replaces the debug trace handler. A nil handler disables tracing.
func (c *CPU) SetTrace(trace TraceFunc) {
	if trace == nil {
		trace = func(Instruction) { /* nop */ }
	}
	c.trace = trace
}

// V returns the value of register Vx.
func (c *CPU) V(x int) byte { return c.v[x&0xf] }

// Registers returns a copy of V0-VF.
func (c *CPU) Registers() [RegisterCount]byte { return c.v }

// Index returns the index register.
func (c *CPU) Index() uint16 { return c.i }

// PC returns the program counter.
func (c *CPU) PC() uint16 { return c.pc }

// DelayTimer returns the delay timer.
func (c *CPU) DelayTimer() byte { return c.delay }

// SoundTimer returns the sound timer.
func (c *CPU) SoundTimer() byte { return c.sound }

// SoundActive reports whether the sound timer is running.
func (c *CPU) SoundActive() bool { return c.sound > 0 }

// TickTimers decrements both timers towards zero.
// The host calls this at 60 Hz, independent of the Step cadence.
func (c *CPU) TickTimers() {
	if c.delay > 0 {
		c.delay--
	}
	if c.sound > 0 {
		c.sound--
	}
}

// Next decodes the instruction at the program counter without executing it.
func (c *CPU) Next() (Instruction, error) {
	var instr Instruction
	err := instr.Decode(c.memory, c.pc)
	return instr, err
}

// Step performs a single execution step and returns the executed instruction.
// Any error is an *Error wrapping one of the Err* kinds; the machine state is
// then undefined and the host should halt or reset.
func (c *CPU) Step() (Instruction, error) {
	instr := &c.instr

	if err := instr.Decode(c.memory, c.pc); err != nil {
		return *instr, NewError(*instr, err)
	}

	// Advance before executing, so control transfers simply assign pc.
	c.pc += 2

	if err := c.execute(instr.Opcode); err != nil {
		return *instr, NewError(*instr, err)
	}

	c.trace(*instr)
	return *instr, nil
}

func (c *CPU) execute(op arch.Opcode) error {
	v := &c.v
	x, y := op.X(), op.Y()

	switch arch.Decode(op) {
	case arch.CLS:
		c.display.Clear()
	case arch.RET:
		addr, err := c.memory.Pop()
		if err != nil {
			return err
		}
		c.pc = addr
	case arch.JPAddr:
		c.pc = op.NNN()
	case arch.CALLAddr:
		if err := c.memory.Push(c.pc); err != nil {
			return err
		}
		c.pc = op.NNN()

	case arch.SEVxByte:
		c.skipIf(v[x] == op.NN())
	case arch.SNEVxByte:
		c.skipIf(v[x] != op.NN())
	case arch.SEVxVy:
		c.skipIf(v[x] == v[y])
	case arch.SNEVxVy:
		c.skipIf(v[x] != v[y])

	case arch.LDVxByte:
		v[x] = op.NN()
	case arch.ADDVxByte:
		v[x] += op.NN()

	case arch.LDVxVy:
		v[x] = v[y]
	case arch.ORVxVy:
		v[x] |= v[y]
	case arch.ANDVxVy:
		v[x] &= v[y]
	case arch.XORVxVy:
		v[x] ^= v[y]
	case arch.ADDVxVy:
		sum := int(v[x]) + int(v[y])
		v[x] = byte(sum)
		v[RegFlag] = flag(sum > 0xff)
	case arch.SUBVxVy:
		diff := int(v[x]) - int(v[y])
		v[x] = byte(diff)
		v[RegFlag] = subtractFlag(diff)
	case arch.SUBNVxVy:
		diff := int(v[y]) - int(v[x])
		v[x] = byte(diff)
		v[RegFlag] = subtractFlag(diff)
	case arch.SHRVxVy:
		src := c.shiftSource(x, y)
		v[RegFlag] = src & 1
		v[x] = src >> 1
	case arch.SHLVxVy:
		src := c.shiftSource(x, y)
		v[RegFlag] = src >> 7
		v[x] = src << 1

	case arch.LDIAddr:
		c.i = op.NNN()
	case arch.JPV0Addr:
		offset := v[0]
		if !c.quirks.LegacyJumpOffset {
			offset = v[x]
		}
		c.pc = (op.NNN() + uint16(offset)) & addrMask
	case arch.RNDVxByte:
		v[x] = byte(c.rng.Intn(256)) & op.NN()
	case arch.DRWVxVyN:
		return c.draw(x, y, op.N())

	case arch.SKPVx:
		pressed, err := c.isPressed(x)
		if err != nil {
			return err
		}
		c.skipIf(pressed)
	case arch.SKNPVx:
		pressed, err := c.isPressed(x)
		if err != nil {
			return err
		}
		c.skipIf(!pressed)

	case arch.LDVxDT:
		v[x] = c.delay
	case arch.LDVxK:
		c.waitKey(x)
	case arch.LDDTVx:
		c.delay = v[x]
	case arch.LDSTVx:
		c.sound = v[x]
	case arch.ADDIVx:
		c.i += uint16(v[x])
		if c.i > addrMask {
			v[RegFlag] = 1
			c.i &= addrMask
		}
	case arch.LDFVx:
		c.i = FontAddress + GlyphSize*uint16(v[x]&0xf)
	case arch.LDBVx:
		digits := []byte{v[x] / 100, v[x] / 10 % 10, v[x] % 10}
		return c.memory.Write(int(c.i), digits, true)
	case arch.LDIVx:
		if err := c.memory.Write(int(c.i), v[:x+1], true); err != nil {
			return err
		}
		c.advanceIndex(x)
	case arch.LDVxI:
		if err := c.memory.Read(int(c.i), v[:x+1]); err != nil {
			return err
		}
		c.advanceIndex(x)

	default:
		return ErrIllegalInstruction
	}

	return nil
}

// skipIf skips the next instruction if cond holds.
func (c *CPU) skipIf(cond bool) {
	if cond {
		c.pc += 2
	}
}

// shiftSource returns the operand of 8xy6 and 8xyE.
func (c *CPU) shiftSource(x, y int) byte {
	if c.quirks.LegacyShift {
		return c.v[y]
	}
	return c.v[x]
}

// advanceIndex moves I past the registers transferred by Fx55 and Fx65, if enabled.
func (c *CPU) advanceIndex(x int) {
	if c.quirks.LegacyIndexAdvance {
		c.i = (c.i + uint16(x) + 1) & addrMask
	}
}

// isPressed queries the key named by Vx.
func (c *CPU) isPressed(x int) (bool, error) {
	key := int(c.v[x])
	if key >= devices.KeyCount {
		return false, errors.Wrapf(ErrIllegalInstruction, "key %#02x does not exist", key)
	}
	return c.keypad.IsPressed(key), nil
}

// waitKey stores the lowest pressed key in Vx. If no key is down,
// the program counter is moved back so the instruction runs again.
func (c *CPU) waitKey(x int) {
	for key := 0; key < devices.KeyCount; key++ {
		if c.keypad.IsPressed(key) {
			c.v[x] = byte(key)
			return
		}
	}
	c.pc -= 2
}

// draw XORs an 8xN sprite from memory at I onto the display at (Vx, Vy).
// The origin wraps, the sprite itself is clipped at the right and bottom edges.
// VF is set if any pixel was switched off.
func (c *CPU) draw(x, y, n int) error {
	ox := int(c.v[x]) & (devices.DisplayWidth - 1)
	oy := int(c.v[y]) & (devices.DisplayHeight - 1)
	c.v[RegFlag] = 0

	for row := 0; row < n && oy+row < devices.DisplayHeight; row++ {
		bits, err := c.memory.U8(int(c.i) + row)
		if err != nil {
			return err
		}

		for col := 0; col < 8 && ox+col < devices.DisplayWidth; col++ {
			if bits&(0x80>>col) == 0 {
				continue
			}
			if c.display.TogglePixel(ox+col, oy+row) {
				c.v[RegFlag] = 1
			}
		}
	}

	return nil
}

// Dump writes a human-readable register listing to w.
func (c *CPU) Dump(w io.Writer) {
	fmt.Fprintf(w, "PC %04x  I %04x  SP %2d  DT %02x  ST %02x\n",
		c.pc, c.i, len(c.memory.stack), c.delay, c.sound)

	for i := 0; i < RegisterCount; i += 4 {
		fmt.Fprintf(w, "V%X %02x  V%X %02x  V%X %02x  V%X %02x\n",
			i, c.v[i], i+1, c.v[i+1], i+2, c.v[i+2], i+3, c.v[i+3])
	}
}

// flag converts a condition to a VF value.
func flag(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// subtractFlag returns VF after 8xy5 and 8xy7. It is set only for a strictly
// positive difference, so equal operands yield 0. This deviates from the
// usual "no borrow" rule (Vx >= Vy) and is reproduced as such.
func subtractFlag(diff int) byte {
	return flag(diff > 0)
}
