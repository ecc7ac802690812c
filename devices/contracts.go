package devices

// Framebuffer dimensions and keypad size.
const (
	DisplayWidth  = 64
	DisplayHeight = 32
	KeyCount      = 16
)

// Display is the monochrome framebuffer the CPU draws into.
//
// Coordinates are in [0, DisplayWidth) x [0, DisplayHeight). Out of range
// coordinates are a programming error; the sprite routine clips before calling.
type Display interface {
	// TogglePixel flips the pixel at (x, y) and reports whether it was set before the flip.
	TogglePixel(x, y int) bool

	// Clear unsets every pixel.
	Clear()
}

// Keypad is the state of the 16-key hexadecimal keypad.
// The CPU only ever queries it.
type Keypad interface {
	// IsPressed reports whether the key in [0, KeyCount) is held down.
	IsPressed(key int) bool
}
