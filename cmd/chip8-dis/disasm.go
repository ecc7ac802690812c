package main

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/hexaflex/chip8/arch"
	"github.com/hexaflex/chip8/devices/chip8/cpu"
)

// disassemble writes a listing of program, loaded at origin, to w.
// Every two bytes are decoded as one instruction; a trailing odd byte
// is listed as data.
func disassemble(w io.Writer, program []byte, origin uint16, labels bool) error {
	if int(origin)+len(program) > cpu.MemoryCapacity {
		return errors.Wrapf(cpu.ErrProgramTooLarge, "%d bytes at %#04x", len(program), origin)
	}

	var targets map[uint16]bool
	if labels {
		targets = branchTargets(program, origin)
	}

	for i := 0; i+1 < len(program); i += 2 {
		instr := cpu.Instruction{
			Address: origin + uint16(i),
			Opcode:  arch.NewOpcode(program[i], program[i+1]),
		}

		if targets[instr.Address] {
			if _, err := fmt.Fprintf(w, "L%03X:\n", instr.Address); err != nil {
				return err
			}
		}

		if _, err := fmt.Fprintln(w, instr); err != nil {
			return err
		}
	}

	if len(program)%2 == 1 {
		last := program[len(program)-1]
		addr := origin + uint16(len(program)-1)
		if _, err := fmt.Fprintf(w, "%04x  %02x     DB %02X\n", addr, last, last); err != nil {
			return err
		}
	}

	return nil
}

// branchTargets returns the addresses within program that a JP or CALL refers to.
// Only instruction-aligned addresses are returned, since labels are printed
// in front of instructions.
func branchTargets(program []byte, origin uint16) map[uint16]bool {
	targets := make(map[uint16]bool)
	end := int(origin) + len(program)

	for i := 0; i+1 < len(program); i += 2 {
		target, ok := arch.BranchTarget(arch.NewOpcode(program[i], program[i+1]))
		if !ok || int(target) < int(origin) || int(target) >= end {
			continue
		}
		if (target-origin)%2 == 0 {
			targets[target] = true
		}
	}

	return targets
}
