package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/hexaflex/chip8/devices/chip8/display"
	"github.com/hexaflex/chip8/devices/chip8/keypad"
	"github.com/hexaflex/chip8/vm"
)

func TestInputKeys(t *testing.T) {
	kp := keypad.New(keypad.Qwerty)
	in := NewInput(strings.NewReader(""), kp)

	clock := time.Unix(1000, 0)
	in.now = func() time.Time { return clock }

	in.handle('w')
	if !kp.IsPressed(0x5) {
		t.Fatalf("w must press key 5")
	}

	clock = clock.Add(holdTime / 2)
	in.Release()
	if !kp.IsPressed(0x5) {
		t.Fatalf("key must be held for %v", holdTime)
	}

	in.handle('w')
	clock = clock.Add(holdTime / 2)
	in.Release()
	if !kp.IsPressed(0x5) {
		t.Fatalf("a repeated character must extend the hold")
	}

	clock = clock.Add(holdTime)
	in.Release()
	if kp.IsPressed(0x5) {
		t.Fatalf("key must be released after %v", holdTime)
	}
}

func TestInputCommands(t *testing.T) {
	fb := display.New()
	kp := keypad.New(keypad.Qwerty)
	in := NewInput(strings.NewReader(""), kp)

	m := vm.New(fb, kp, vm.DefaultOptions())
	if err := m.LoadProgram([]byte{0x80, 0x16, 0x12, 0x02}); err != nil {
		t.Fatal(err)
	}

	for _, b := range []byte("n[p") {
		if err := in.handle(b); err != nil {
			t.Fatal(err)
		}
	}

	if err := in.Apply(m); err != nil {
		t.Fatal(err)
	}

	if m.CPU().PC() != 0x202 {
		t.Fatalf("n must step once; PC=%04x", m.CPU().PC())
	}
	if m.Quirks().LegacyShift {
		t.Fatalf("[ must toggle the shift quirk")
	}
	if !m.Running() {
		t.Fatalf("p must start the machine")
	}
}

func TestInputQuit(t *testing.T) {
	kp := keypad.New(keypad.Qwerty)

	in := NewInput(strings.NewReader("12\x03"), kp)
	if err := in.Run(context.Background()); !errors.Is(err, ErrQuit) {
		t.Fatalf("want ErrQuit; have %v", err)
	}
	if !kp.IsPressed(0x1) || !kp.IsPressed(0x2) {
		t.Fatalf("keys before the quit character must be handled")
	}

	in = NewInput(strings.NewReader(""), kp)
	if err := in.Run(context.Background()); !errors.Is(err, ErrQuit) {
		t.Fatalf("end of input must quit; have %v", err)
	}
}

func TestHalfBlocks(t *testing.T) {
	fb := display.New()
	fb.TogglePixel(0, 0)
	fb.TogglePixel(1, 1)
	fb.TogglePixel(2, 0)
	fb.TogglePixel(2, 1)

	lines := halfBlocks(fb)
	if len(lines) != display.Height/2 {
		t.Fatalf("want %d lines; have %d", display.Height/2, len(lines))
	}
	if !strings.HasPrefix(lines[0], "▀▄█ ") {
		t.Fatalf("unexpected first line: %q", lines[0])
	}
}
