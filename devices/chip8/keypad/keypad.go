// Package keypad implements the 16-key hexadecimal keypad and
// its mapping onto common keyboard layouts.
package keypad

import (
	"sync/atomic"

	"github.com/hexaflex/chip8/devices"
)

// Keypad holds the pressed state of the 16 keys.
// It is safe to update from an input goroutine while the CPU reads it.
type Keypad struct {
	keys   [devices.KeyCount]atomic.Bool
	layout Layout
}

var (
	_ devices.Keypad = &Keypad{}
	_ devices.Device = &Keypad{}
)

// New creates a keypad driven through the given keyboard layout.
func New(layout Layout) *Keypad {
	return &Keypad{layout: layout}
}

// ID returns the device id.
func (k *Keypad) ID() devices.ID {
	return devices.NewID(devices.Manufacturer, 0x0003)
}

// Startup releases all keys.
func (k *Keypad) Startup() error {
	k.Reset()
	return nil
}

// Shutdown releases all keys.
func (k *Keypad) Shutdown() error {
	k.Reset()
	return nil
}

// IsPressed reports whether the given key is held down.
func (k *Keypad) IsPressed(key int) bool {
	if key < 0 || key >= devices.KeyCount {
		return false
	}
	return k.keys[key].Load()
}

// Set sets the state of the given key. Keys outside [0, 16) are ignored.
func (k *Keypad) Set(key int, pressed bool) {
	if key < 0 || key >= devices.KeyCount {
		return
	}
	k.keys[key].Store(pressed)
}

// Reset releases all keys.
func (k *Keypad) Reset() {
	for i := range k.keys {
		k.keys[i].Store(false)
	}
}

// Layout returns the keyboard layout in use.
func (k *Keypad) Layout() Layout {
	return k.layout
}

// SetLayout changes the keyboard layout and releases all keys.
func (k *Keypad) SetLayout(layout Layout) {
	k.layout = layout
	k.Reset()
}

// SetRune updates the key bound to the given keyboard character.
// Returns false if the character is not bound in the current layout.
func (k *Keypad) SetRune(r rune, pressed bool) bool {
	key, ok := k.layout.Key(r)
	if !ok {
		return false
	}
	k.Set(key, pressed)
	return true
}

// Pressed returns the keys currently held down, in ascending order.
func (k *Keypad) Pressed() []int {
	var out []int
	for i := range k.keys {
		if k.keys[i].Load() {
			out = append(out, i)
		}
	}
	return out
}
