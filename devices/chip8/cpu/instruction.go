package cpu

import (
	"fmt"

	"github.com/hexaflex/chip8/arch"
)

// Instruction defines decoded instruction data.
type Instruction struct {
	Address uint16      // Instruction address.
	Opcode  arch.Opcode // Raw instruction word.
}

// Decode fetches the instruction word at the given address.
func (i *Instruction) Decode(m *Memory, addr uint16) error {
	i.Address = addr
	i.Opcode = 0

	high, err := m.U8(int(addr))
	if err != nil {
		return err
	}

	low, err := m.U8(int(addr) + 1)
	if err != nil {
		return err
	}

	i.Opcode = arch.NewOpcode(high, low)
	return nil
}

// Mnemonic returns the assembly rendition of the instruction.
func (i Instruction) Mnemonic() string {
	return arch.Mnemonic(i.Opcode)
}

// String returns the instruction as a trace line: address, both bytes, mnemonic.
func (i Instruction) String() string {
	return fmt.Sprintf("%04x  %02x %02x  %s", i.Address, i.Opcode.High(), i.Opcode.Low(), i.Mnemonic())
}
