package main

import (
	"fmt"
	"image/png"
	"log"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-gl/gl/v4.2-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"

	"github.com/hexaflex/chip8/devices/chip8/cpu"
	"github.com/hexaflex/chip8/devices/chip8/display"
	"github.com/hexaflex/chip8/devices/chip8/keypad"
	"github.com/hexaflex/chip8/vm"
)

// App defines application context.
type App struct {
	config       *Config         // Application configuration.
	window       *glfw.Window    // OpenGL/GLFW context.
	machine      *vm.Machine     // Machine with program to be run.
	display      *display.Buffer // Virtual display.
	keypad       *keypad.Keypad  // Virtual keypad.
	screen       *Screen         // Display renderer.
	gamepad      *Gamepad        // Optional gamepad input.
	titleUpdated time.Time       // Value used to periodically update window title.
	lastRendered time.Time       // Last time a frame was rendered.
}

// NewApp creates a new application instance using the given configuration.
func NewApp(config *Config) *App {
	var a App
	a.config = config
	a.display = display.New()
	a.keypad = keypad.New(config.KeyboardLayout())
	a.screen = NewScreen(a.display)
	a.gamepad = NewGamepad(a.keypad)

	opt := config.MachineOptions()
	opt.Trace = a.printTrace
	a.machine = vm.New(a.display, a.keypad, opt)
	return &a
}

// Run runs the application and does not return until it is finished
// or an error occured during initialization.
func (a *App) Run() error {
	if err := a.initGL(); err != nil {
		return err
	}

	defer a.dispose()

	// These need an initialized GLFW and a current GL context.
	a.machine.Connect(a.screen)
	a.machine.Connect(a.gamepad)
	if err := a.machine.Startup(); err != nil {
		return err
	}

	log.Println(Version())
	printHelp()

	if err := a.machine.LoadFile(a.config.Program); err != nil {
		return err
	}

	if !a.config.Debug {
		a.machine.Start()
	}

	for !a.window.ShouldClose() {
		a.mainLoop()
	}

	return nil
}

// mainLoop performs all main loop operations.
func (a *App) mainLoop() {
	a.gamepad.Update()

	// Failures halt the machine and are logged by it.
	_ = a.machine.Update()

	// Periodically render display contents.
	if time.Since(a.lastRendered) >= time.Second/vm.FrameRate {
		a.lastRendered = time.Now()
		gl.Clear(gl.COLOR_BUFFER_BIT)
		a.screen.Draw()
		a.window.SwapBuffers()
	}

	// Periodically update the window title to show the machine state.
	if time.Since(a.titleUpdated) >= time.Second/2 {
		a.titleUpdated = time.Now()
		a.window.SetTitle(a.title())
	}

	glfw.PollEvents()
}

// title returns the window title for the current machine state.
func (a *App) title() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", AppName, AppVersion)

	switch {
	case a.machine.Fault() != nil:
		sb.WriteString(" - halted")
	case a.machine.Running():
		fmt.Fprintf(&sb, " - %s", prettyFrequency(a.machine.Frequency()))
	default:
		sb.WriteString(" - paused")
	}

	if a.machine.CPU().SoundActive() {
		sb.WriteString(" ♪")
	}

	return sb.String()
}

// dispose ensures openGL/GLFW and other resources are cleaned up.
func (a *App) dispose() {
	if err := a.machine.Shutdown(); err != nil {
		log.Println(err)
	}

	if a.window != nil {
		a.window.Destroy()
		a.window = nil
	}

	glfw.Terminate()
}

func (a *App) keyCallback(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if r, ok := keyRune(key, scancode); ok {
		a.keypad.SetRune(r, action != glfw.Release)
		return
	}

	if action != glfw.Press {
		return
	}

	var err error

	switch key {
	case glfw.KeyEscape:
		a.window.SetShouldClose(true)
	case glfw.KeyF1:
		printHelp()
	case glfw.KeyF2:
		a.config.Trace = !a.config.Trace
	case glfw.KeyF3:
		a.dumpState()
	case glfw.KeyF5:
		err = a.machine.Reload()
	case glfw.KeyF6:
		err = a.machine.Reset()
	case glfw.KeyF7:
		a.machine.ToggleRun()
	case glfw.KeyF8:
		_, err = a.machine.Step()
	case glfw.KeyF9, glfw.KeyF10, glfw.KeyF11:
		a.toggleQuirk(key)
	case glfw.KeyF12:
		err = a.screenshot()
	}

	if err != nil {
		log.Println(err)
	}
}

// keyRune returns the character for a key that may be bound to the keypad.
// The character follows the active keyboard layout where GLFW knows it.
func keyRune(key glfw.Key, scancode int) (rune, bool) {
	if !(key >= glfw.Key0 && key <= glfw.Key9) && !(key >= glfw.KeyA && key <= glfw.KeyZ) {
		return 0, false
	}

	if name := glfw.GetKeyName(key, scancode); utf8.RuneCountInString(name) == 1 {
		r, _ := utf8.DecodeRuneInString(name)
		return r, true
	}

	return rune(key), true
}

// toggleQuirk flips the quirk bound to the given function key.
func (a *App) toggleQuirk(key glfw.Key) {
	q := a.machine.Quirks()

	switch key {
	case glfw.KeyF9:
		q.LegacyShift = !q.LegacyShift
		log.Println("legacy shift:", q.LegacyShift)
	case glfw.KeyF10:
		q.LegacyIndexAdvance = !q.LegacyIndexAdvance
		log.Println("legacy index advance:", q.LegacyIndexAdvance)
	case glfw.KeyF11:
		q.LegacyJumpOffset = !q.LegacyJumpOffset
		log.Println("legacy jump offset:", q.LegacyJumpOffset)
	}

	a.machine.SetQuirks(q)
}

// dumpState prints the registers, the next instruction and the loaded program.
func (a *App) dumpState() {
	c := a.machine.CPU()
	mem := a.machine.Memory()

	var sb strings.Builder
	c.Dump(&sb)

	if next, err := c.Next(); err == nil {
		fmt.Fprintf(&sb, "next: %s\n", next)
	}

	fmt.Fprintf(&sb, "stack: %03x\n", mem.Stack())

	if mem.Watermark() >= cpu.ProgramAddress {
		if err := mem.Dump(&sb, cpu.ProgramAddress, mem.Watermark()); err != nil {
			log.Println(err)
		}
	}

	log.Printf("machine state:\n%s", sb.String())
}

// screenshot writes the display contents to a PNG file in the working directory.
func (a *App) screenshot() error {
	name := fmt.Sprintf("%s-%s.png", AppName, time.Now().Format("20060102-150405"))

	fd, err := os.Create(name)
	if err != nil {
		return errors.Wrapf(err, "screenshot")
	}

	defer fd.Close()

	if err := png.Encode(fd, a.display.Image(a.config.Scale)); err != nil {
		return errors.Wrapf(err, "screenshot %s", name)
	}

	log.Println("screenshot", name)
	return nil
}

// initGL initializes GLFW and openGL.
func (a *App) initGL() error {
	err := glfw.Init()
	if err != nil {
		return errors.Wrapf(err, "glfw.Init failed")
	}

	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.Visible, glfw.True)
	glfw.WindowHint(glfw.Focused, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 2)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	var monitor *glfw.Monitor

	width := display.Width * a.config.Scale
	height := display.Height * a.config.Scale

	if a.config.Fullscreen {
		monitor = glfw.GetPrimaryMonitor()
		mode := monitor.GetVideoMode()

		width = mode.Width
		height = mode.Height

		glfw.WindowHint(glfw.Decorated, glfw.False)
		glfw.WindowHint(glfw.Maximized, glfw.True)
	} else {
		glfw.WindowHint(glfw.Decorated, glfw.True)
		glfw.WindowHint(glfw.Maximized, glfw.False)
	}

	a.window, err = glfw.CreateWindow(width, height, AppName, monitor, nil)
	if err != nil {
		glfw.Terminate()
		return errors.Wrapf(err, "glfw.CreateWindow failed")
	}

	a.window.MakeContextCurrent()
	a.window.SetKeyCallback(a.keyCallback)
	a.window.SetFramebufferSizeCallback(a.resizeCallback)

	glfw.SwapInterval(0)

	err = gl.Init()
	if err != nil {
		a.window.Destroy()
		a.window = nil
		glfw.Terminate()
		return errors.Wrapf(err, "gl.Init failed")
	}

	gl.ClearColor(0, 0, 0, 1.0)

	fbw, fbh := a.window.GetFramebufferSize()
	a.resizeCallback(a.window, fbw, fbh)
	return nil
}

// resizeCallback letterboxes the display in the window, keeping its aspect ratio.
func (a *App) resizeCallback(_ *glfw.Window, width, height int) {
	w, h := width, width*display.Height/display.Width
	if h > height {
		w, h = height*display.Width/display.Height, height
	}
	gl.Viewport(int32((width-w)/2), int32((height-h)/2), int32(w), int32(h))
}

// printTrace prints instruction trace data. This can be toggled
// on and off through a.config.Trace.
func (a *App) printTrace(i cpu.Instruction) {
	if a.config.Trace {
		fmt.Println(i)
	}
}

// printHelp writes a short overview of supported shortcut keys to stdout.
func printHelp() {
	var sb strings.Builder
	sb.WriteString("shortcut keys:\n")
	sb.WriteString(" 1-4, Q-R, A-F, Z-V  Keypad.\n")
	sb.WriteString(" ESC      Exit the program.\n")
	sb.WriteString(" F1       Display this help.\n")
	sb.WriteString(" F2       Enable/Disable debug trace output.\n")
	sb.WriteString(" F3       Print registers and memory.\n")
	sb.WriteString(" F5       (re)load the program from disk and reset the machine.\n")
	sb.WriteString(" F6       Reset the machine.\n")
	sb.WriteString(" F7       Start/Stop program execution.\n")
	sb.WriteString(" F8       Perform a single execution step.\n")
	sb.WriteString(" F9       Toggle the shift quirk.\n")
	sb.WriteString(" F10      Toggle the index advance quirk.\n")
	sb.WriteString(" F11      Toggle the jump offset quirk.\n")
	sb.WriteString(" F12      Save a screenshot.")
	log.Println(sb.String())
}

// prettyFrequency returns a human-readable version of the given frequency in herz.
func prettyFrequency(v float64) string {
	switch {
	case v >= 1e6:
		return fmt.Sprintf("%.2f MHz", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.2f KHz", v/1e3)
	default:
		return fmt.Sprintf("%.2f Hz", v)
	}
}
