package main

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/hexaflex/chip8/devices"
	"github.com/hexaflex/chip8/devices/chip8/keypad"
	"github.com/hexaflex/chip8/vm"
)

// ErrQuit is returned by Input.Run when the user asks to quit.
var ErrQuit = errors.New("quit")

// holdTime is how long a key counts as pressed after its character arrived.
// Terminals report no key releases; keyboard auto-repeat keeps a held key down.
const holdTime = 150 * time.Millisecond

// Control characters.
const (
	ctrlC = 0x03
	ctrlD = 0x04
)

// command is a machine operation requested through a hot key.
type command int

// Known commands.
const (
	cmdToggleRun command = iota
	cmdStep
	cmdReset
	cmdReload
	cmdToggleShift
	cmdToggleIndexAdvance
	cmdToggleJumpOffset
)

var hotKeys = map[byte]command{
	'p':  cmdToggleRun,
	'n':  cmdStep,
	'o':  cmdReset,
	'l':  cmdReload,
	'[':  cmdToggleShift,
	']':  cmdToggleIndexAdvance,
	'\\': cmdToggleJumpOffset,
}

// Input reads raw characters from the terminal and turns them into
// keypad state and machine commands.
type Input struct {
	r        io.Reader
	keypad   *keypad.Keypad
	state    *term.State
	commands chan command
	now      func() time.Time

	mu      sync.Mutex
	pressed [devices.KeyCount]time.Time // Arrival of the last character per key.
}

var _ devices.Device = &Input{}

// NewInput creates an input reader for r, driving the given keypad.
func NewInput(r io.Reader, kp *keypad.Keypad) *Input {
	return &Input{
		r:        r,
		keypad:   kp,
		commands: make(chan command, 16),
		now:      time.Now,
	}
}

// ID returns the device identifier.
func (in *Input) ID() devices.ID {
	return devices.NewID(devices.Manufacturer, 0x0005)
}

// Startup puts the terminal in raw mode, if r is one.
func (in *Input) Startup() error {
	fd, ok := in.terminal()
	if !ok {
		return nil
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return errors.Wrapf(err, "failed to set raw mode")
	}

	in.state = state
	return nil
}

// Shutdown restores the terminal state.
func (in *Input) Shutdown() error {
	fd, ok := in.terminal()
	if !ok || in.state == nil {
		return nil
	}

	err := term.Restore(fd, in.state)
	in.state = nil
	return errors.Wrapf(err, "failed to restore terminal")
}

// terminal returns the file descriptor of r, if it is a terminal.
func (in *Input) terminal() (int, bool) {
	f, ok := in.r.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0, false
	}
	return int(f.Fd()), true
}

// Run reads input until ctx is done, the input ends or the user quits.
func (in *Input) Run(ctx context.Context) error {
	data := make(chan []byte)
	errc := make(chan error, 1)

	// The read blocks; it is abandoned when ctx ends.
	go func() {
		for {
			buf := make([]byte, 32)
			n, err := in.r.Read(buf)
			if n > 0 {
				select {
				case data <- buf[:n]:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				errc <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-errc:
			if err == io.EOF {
				return ErrQuit
			}
			return errors.Wrapf(err, "read input")

		case p := <-data:
			for _, b := range p {
				if err := in.handle(b); err != nil {
					return err
				}
			}
		}
	}
}

// handle processes a single input character.
func (in *Input) handle(b byte) error {
	if b == ctrlC || b == ctrlD {
		return ErrQuit
	}

	if key, ok := in.keypad.Layout().Key(rune(b)); ok {
		in.mu.Lock()
		in.pressed[key] = in.now()
		in.mu.Unlock()

		in.keypad.Set(key, true)
		return nil
	}

	if cmd, ok := hotKeys[b]; ok {
		select {
		case in.commands <- cmd:
		default:
			// Drop the command while the machine is behind.
		}
	}

	return nil
}

// Release releases all keys whose last character is older than holdTime.
func (in *Input) Release() {
	now := in.now()

	in.mu.Lock()
	defer in.mu.Unlock()

	for key, at := range in.pressed {
		if !at.IsZero() && now.Sub(at) >= holdTime {
			in.pressed[key] = time.Time{}
			in.keypad.Set(key, false)
		}
	}
}

// Apply performs all pending commands on the machine.
func (in *Input) Apply(m *vm.Machine) error {
	for {
		select {
		case cmd := <-in.commands:
			if err := execute(m, cmd); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// execute performs a single command on the machine.
func execute(m *vm.Machine, cmd command) error {
	q := m.Quirks()

	switch cmd {
	case cmdToggleRun:
		m.ToggleRun()
	case cmdStep:
		_, err := m.Step()
		return err
	case cmdReset:
		return m.Reset()
	case cmdReload:
		return m.Reload()
	case cmdToggleShift:
		q.LegacyShift = !q.LegacyShift
		m.SetQuirks(q)
	case cmdToggleIndexAdvance:
		q.LegacyIndexAdvance = !q.LegacyIndexAdvance
		m.SetQuirks(q)
	case cmdToggleJumpOffset:
		q.LegacyJumpOffset = !q.LegacyJumpOffset
		m.SetQuirks(q)
	}

	return nil
}
