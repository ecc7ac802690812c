package arch

import "fmt"

// Mnemonic returns a human-readable assembly rendition of the given opcode,
// for example "LD V3, 1F" or "DRW V0, V1, 5". Unknown encodings yield "ILLEGAL".
func Mnemonic(o Opcode) string {
	instr := Decode(o)
	name, ok := Name(instr)
	if !ok {
		return "ILLEGAL"
	}

	x, y := o.X(), o.Y()

	switch instr {
	case CLS, RET:
		return name
	case JPAddr, CALLAddr:
		return fmt.Sprintf("%s %03X", name, o.NNN())
	case JPV0Addr:
		return fmt.Sprintf("%s V0, %03X", name, o.NNN())
	case LDIAddr:
		return fmt.Sprintf("%s I, %03X", name, o.NNN())
	case SEVxByte, SNEVxByte, LDVxByte, ADDVxByte, RNDVxByte:
		return fmt.Sprintf("%s V%X, %02X", name, x, o.NN())
	case SEVxVy, SNEVxVy, LDVxVy, ORVxVy, ANDVxVy, XORVxVy, ADDVxVy, SUBVxVy, SUBNVxVy:
		return fmt.Sprintf("%s V%X, V%X", name, x, y)
	case SHRVxVy, SHLVxVy, SKPVx, SKNPVx:
		return fmt.Sprintf("%s V%X", name, x)
	case DRWVxVyN:
		return fmt.Sprintf("%s V%X, V%X, %X", name, x, y, o.N())
	case LDVxDT:
		return fmt.Sprintf("%s V%X, DT", name, x)
	case LDVxK:
		return fmt.Sprintf("%s V%X, K", name, x)
	case LDDTVx:
		return fmt.Sprintf("%s DT, V%X", name, x)
	case LDSTVx:
		return fmt.Sprintf("%s ST, V%X", name, x)
	case ADDIVx:
		return fmt.Sprintf("%s I, V%X", name, x)
	case LDFVx:
		return fmt.Sprintf("%s F, V%X", name, x)
	case LDBVx:
		return fmt.Sprintf("%s B, V%X", name, x)
	case LDIVx:
		return fmt.Sprintf("%s [I], V%X", name, x)
	case LDVxI:
		return fmt.Sprintf("%s V%X, [I]", name, x)
	}

	return name
}
