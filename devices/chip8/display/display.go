// Package display implements an in-memory CHIP-8 framebuffer.
package display

import (
	"image"
	"strings"

	"golang.org/x/image/draw"

	"github.com/hexaflex/chip8/devices"
)

// Display dimensions.
const (
	Width  = devices.DisplayWidth
	Height = devices.DisplayHeight
)

// Buffer is a 64x32 monochrome framebuffer with XOR write semantics.
// It records whether it changed since the host last rendered it.
type Buffer struct {
	pixels [Width * Height]bool
	dirty  bool
}

var (
	_ devices.Display = &Buffer{}
	_ devices.Device  = &Buffer{}
)

// New creates a new, cleared framebuffer.
func New() *Buffer {
	return &Buffer{dirty: true}
}

// ID returns the device id.
func (b *Buffer) ID() devices.ID {
	return devices.NewID(devices.Manufacturer, 0x0002)
}

// Startup clears the framebuffer.
func (b *Buffer) Startup() error {
	b.Clear()
	return nil
}

// Shutdown is a no-op; the buffer holds no external resources.
func (b *Buffer) Shutdown() error {
	return nil
}

// TogglePixel flips the pixel at (x, y) and reports whether it was set before.
func (b *Buffer) TogglePixel(x, y int) bool {
	i := y*Width + x
	was := b.pixels[i]
	b.pixels[i] = !was
	b.dirty = true
	return was
}

// Clear unsets every pixel.
func (b *Buffer) Clear() {
	for i := range b.pixels {
		b.pixels[i] = false
	}
	b.dirty = true
}

// Pixel reports whether the pixel at (x, y) is set.
func (b *Buffer) Pixel(x, y int) bool {
	return b.pixels[y*Width+x]
}

// Dirty reports whether the buffer changed since the last SetDirty(false).
func (b *Buffer) Dirty() bool {
	return b.dirty
}

// SetDirty sets or clears the change marker.
func (b *Buffer) SetDirty(dirty bool) {
	b.dirty = dirty
}

// Render writes one byte per pixel into dst, row by row from the top:
// on for set pixels, off for unset ones. dst must hold Width*Height bytes.
func (b *Buffer) Render(dst []byte, on, off byte) {
	for i, set := range b.pixels {
		if set {
			dst[i] = on
		} else {
			dst[i] = off
		}
	}
}

// Lines returns the framebuffer as Height strings of Width runes.
func (b *Buffer) Lines(on, off rune) []string {
	lines := make([]string, Height)

	var sb strings.Builder
	for y := 0; y < Height; y++ {
		sb.Reset()
		for x := 0; x < Width; x++ {
			if b.Pixel(x, y) {
				sb.WriteRune(on)
			} else {
				sb.WriteRune(off)
			}
		}
		lines[y] = sb.String()
	}

	return lines
}

// Image returns the framebuffer as a grayscale image, each pixel
// scaled up to a scale x scale block. Scales below 1 are treated as 1.
func (b *Buffer) Image(scale int) *image.Gray {
	if scale < 1 {
		scale = 1
	}

	src := image.NewGray(image.Rect(0, 0, Width, Height))
	b.Render(src.Pix, 0xff, 0x00)

	if scale == 1 {
		return src
	}

	dst := image.NewGray(image.Rect(0, 0, Width*scale, Height*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
