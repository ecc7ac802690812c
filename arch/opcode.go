// Package arch defines the CHIP-8 instruction set along with
// some related helper functions.
package arch

import "fmt"

// Opcode is a raw 16-bit instruction word, as stored in memory: high byte first.
type Opcode uint16

// NewOpcode combines the two instruction bytes into an opcode.
func NewOpcode(high, low byte) Opcode {
	return Opcode(high)<<8 | Opcode(low)
}

// High returns the first instruction byte.
func (o Opcode) High() byte { return byte(o >> 8) }

// Low returns the second instruction byte.
func (o Opcode) Low() byte { return byte(o) }

// Family returns the high nibble of the first byte, which selects the instruction group.
func (o Opcode) Family() int { return int(o>>12) & 0xf }

// X returns the low nibble of the first byte.
func (o Opcode) X() int { return int(o>>8) & 0xf }

// Y returns the high nibble of the second byte.
func (o Opcode) Y() int { return int(o>>4) & 0xf }

// N returns the low nibble of the second byte.
func (o Opcode) N() int { return int(o) & 0xf }

// NN returns the second byte.
func (o Opcode) NN() byte { return byte(o) }

// NNN returns the 12-bit address/immediate.
func (o Opcode) NNN() uint16 { return uint16(o) & 0xfff }

func (o Opcode) String() string {
	return fmt.Sprintf("%04X", uint16(o))
}

// Known instructions.
//
// Each constant identifies one encoding in the instruction table. Names follow
// the operand layout of the encoding: Vx and Vy are registers, Byte is the
// immediate NN, Addr is NNN, N is the low nibble.
const (
	Illegal = iota

	CLS       // 00E0
	RET       // 00EE
	JPAddr    // 1nnn
	CALLAddr  // 2nnn
	SEVxByte  // 3xnn
	SNEVxByte // 4xnn
	SEVxVy    // 5xy0
	LDVxByte  // 6xnn
	ADDVxByte // 7xnn
	LDVxVy    // 8xy0
	ORVxVy    // 8xy1
	ANDVxVy   // 8xy2
	XORVxVy   // 8xy3
	ADDVxVy   // 8xy4
	SUBVxVy   // 8xy5
	SHRVxVy   // 8xy6
	SUBNVxVy  // 8xy7
	SHLVxVy   // 8xyE
	SNEVxVy   // 9xy0
	LDIAddr   // Annn
	JPV0Addr  // Bnnn
	RNDVxByte // Cxnn
	DRWVxVyN  // Dxyn
	SKPVx     // Ex9E
	SKNPVx    // ExA1
	LDVxDT    // Fx07
	LDVxK     // Fx0A
	LDDTVx    // Fx15
	LDSTVx    // Fx18
	ADDIVx    // Fx1E
	LDFVx     // Fx29
	LDBVx     // Fx33
	LDIVx     // Fx55
	LDVxI     // Fx65
)

// Decode returns the instruction identified by the given opcode.
// Returns Illegal for any encoding not in the instruction table.
func Decode(o Opcode) int {
	switch o.Family() {
	case 0x0:
		switch o.NNN() {
		case 0x0e0:
			return CLS
		case 0x0ee:
			return RET
		}
	case 0x1:
		return JPAddr
	case 0x2:
		return CALLAddr
	case 0x3:
		return SEVxByte
	case 0x4:
		return SNEVxByte
	case 0x5:
		if o.N() == 0 {
			return SEVxVy
		}
	case 0x6:
		return LDVxByte
	case 0x7:
		return ADDVxByte
	case 0x8:
		switch o.N() {
		case 0x0:
			return LDVxVy
		case 0x1:
			return ORVxVy
		case 0x2:
			return ANDVxVy
		case 0x3:
			return XORVxVy
		case 0x4:
			return ADDVxVy
		case 0x5:
			return SUBVxVy
		case 0x6:
			return SHRVxVy
		case 0x7:
			return SUBNVxVy
		case 0xe:
			return SHLVxVy
		}
	case 0x9:
		if o.N() == 0 {
			return SNEVxVy
		}
	case 0xa:
		return LDIAddr
	case 0xb:
		return JPV0Addr
	case 0xc:
		return RNDVxByte
	case 0xd:
		return DRWVxVyN
	case 0xe:
		switch o.NN() {
		case 0x9e:
			return SKPVx
		case 0xa1:
			return SKNPVx
		}
	case 0xf:
		switch o.NN() {
		case 0x07:
			return LDVxDT
		case 0x0a:
			return LDVxK
		case 0x15:
			return LDDTVx
		case 0x18:
			return LDSTVx
		case 0x1e:
			return ADDIVx
		case 0x29:
			return LDFVx
		case 0x33:
			return LDBVx
		case 0x55:
			return LDIVx
		case 0x65:
			return LDVxI
		}
	}

	return Illegal
}

// Name returns the assembly name for the given instruction.
// Returns false if the instruction is not recognized.
func Name(instr int) (string, bool) {
	switch instr {
	case CLS:
		return "CLS", true
	case RET:
		return "RET", true
	case JPAddr, JPV0Addr:
		return "JP", true
	case CALLAddr:
		return "CALL", true
	case SEVxByte, SEVxVy:
		return "SE", true
	case SNEVxByte, SNEVxVy:
		return "SNE", true
	case LDVxByte, LDVxVy, LDIAddr, LDVxDT, LDVxK, LDDTVx, LDSTVx, LDFVx, LDBVx, LDIVx, LDVxI:
		return "LD", true
	case ADDVxByte, ADDVxVy, ADDIVx:
		return "ADD", true
	case ORVxVy:
		return "OR", true
	case ANDVxVy:
		return "AND", true
	case XORVxVy:
		return "XOR", true
	case SUBVxVy:
		return "SUB", true
	case SHRVxVy:
		return "SHR", true
	case SUBNVxVy:
		return "SUBN", true
	case SHLVxVy:
		return "SHL", true
	case RNDVxByte:
		return "RND", true
	case DRWVxVyN:
		return "DRW", true
	case SKPVx:
		return "SKP", true
	case SKNPVx:
		return "SKNP", true
	}

	return "", false
}

// BranchTarget returns the absolute address a JP or CALL instruction transfers control to.
// Returns false for every other instruction, including the register-relative JP V0.
func BranchTarget(o Opcode) (uint16, bool) {
	switch Decode(o) {
	case JPAddr, CALLAddr:
		return o.NNN(), true
	}
	return 0, false
}
