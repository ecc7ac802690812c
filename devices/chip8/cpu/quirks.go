package cpu

// Quirks selects between historically divergent behaviours of a few instructions.
// Both settings of every flag are valid CHIP-8; ROMs differ in which one they expect.
type Quirks struct {
	// LegacyShift makes 8xy6 and 8xyE shift Vy into Vx. Otherwise Vx is shifted in place.
	LegacyShift bool

	// LegacyIndexAdvance makes Fx55 and Fx65 leave I pointing past the last register transferred.
	LegacyIndexAdvance bool

	// LegacyJumpOffset makes Bnnn jump to nnn+V0. Otherwise it jumps to nnn+Vx.
	LegacyJumpOffset bool
}

// DefaultQuirks returns the behaviour of the COSMAC VIP interpreter.
func DefaultQuirks() Quirks {
	return Quirks{
		LegacyShift:        true,
		LegacyIndexAdvance: true,
		LegacyJumpOffset:   true,
	}
}
