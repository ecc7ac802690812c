package main

import (
	"log"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/hexaflex/chip8/devices"
	"github.com/hexaflex/chip8/devices/chip8/keypad"
)

// buttonKeys binds gamepad buttons to keypad keys. The directional pad follows
// the 2/4/6/8 arrangement most programs use for movement.
var buttonKeys = map[glfw.GamepadButton]int{
	glfw.ButtonDpadUp:    0x2,
	glfw.ButtonDpadLeft:  0x4,
	glfw.ButtonDpadRight: 0x6,
	glfw.ButtonDpadDown:  0x8,
	glfw.ButtonA:         0x5,
	glfw.ButtonB:         0x0,
	glfw.ButtonX:         0xa,
	glfw.ButtonY:         0xb,
	glfw.ButtonBack:      0xe,
	glfw.ButtonStart:     0xf,
}

// Gamepad feeds the first connected gamepad into the keypad.
type Gamepad struct {
	keypad      *keypad.Keypad
	joy         glfw.Joystick
	pressed     [glfw.ButtonLast + 1]bool
	initialized bool
}

var _ devices.Device = &Gamepad{}

// NewGamepad creates a gamepad driving the given keypad.
func NewGamepad(kp *keypad.Keypad) *Gamepad {
	return &Gamepad{keypad: kp}
}

// ID returns the device identifier.
func (g *Gamepad) ID() devices.ID {
	return devices.NewID(devices.Manufacturer, 0x0006)
}

// Startup detects any connected gamepad.
func (g *Gamepad) Startup() error {
	glfw.SetJoystickCallback(g.configure)

	for joy := glfw.Joystick1; joy <= glfw.JoystickLast; joy++ {
		if joy.Present() && joy.IsGamepad() {
			g.configure(joy, glfw.Connected)
			break
		}
	}

	return nil
}

// Shutdown stops listening for gamepad connections.
func (g *Gamepad) Shutdown() error {
	glfw.SetJoystickCallback(nil)
	return nil
}

// Update polls the gamepad. Only button changes are passed on,
// so the keyboard can drive the same keys.
func (g *Gamepad) Update() {
	if !g.initialized {
		return
	}

	state := g.joy.GetGamepadState()
	if state == nil {
		return
	}

	for btn, action := range state.Buttons {
		pressed := action == glfw.Press
		if pressed == g.pressed[btn] {
			continue
		}

		g.pressed[btn] = pressed
		if key, ok := buttonKeys[glfw.GamepadButton(btn)]; ok {
			g.keypad.Set(key, pressed)
		}
	}
}

// configure is called whenever a joystick is connected or disconnected from the system.
func (g *Gamepad) configure(joy glfw.Joystick, event glfw.PeripheralEvent) {
	g.initialized = event == glfw.Connected && joy.IsGamepad()
	g.joy = joy

	if g.initialized {
		log.Println(g.ID(), "gamepad connected")
	} else {
		log.Println(g.ID(), "gamepad disconnected")
	}

	for btn, pressed := range g.pressed {
		if key, ok := buttonKeys[glfw.GamepadButton(btn)]; ok && pressed {
			g.keypad.Set(key, false)
		}
		g.pressed[btn] = false
	}
}
