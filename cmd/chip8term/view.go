package main

import (
	"fmt"
	"io"
	"strings"

	tm "github.com/buger/goterm"

	"github.com/hexaflex/chip8/devices/chip8/cpu"
	"github.com/hexaflex/chip8/devices/chip8/display"
	"github.com/hexaflex/chip8/vm"
)

// View draws the display and machine state to the terminal.
type View struct {
	machine *vm.Machine
	buffer  *display.Buffer
	ascii   bool
	cleared bool
}

// NewView creates a view of the given machine and framebuffer.
func NewView(m *vm.Machine, fb *display.Buffer, ascii bool) *View {
	return &View{machine: m, buffer: fb, ascii: ascii}
}

// Draw redraws the whole screen.
func (v *View) Draw() {
	if !v.cleared {
		tm.Clear()
		v.cleared = true
	}

	tm.MoveCursor(1, 1)
	tm.Print(tm.Bold(v.status()) + "\r\n")

	var lines []string
	if v.ascii {
		lines = v.buffer.Lines('#', '.')
	} else {
		lines = halfBlocks(v.buffer)
	}

	for _, line := range lines {
		tm.Print(line + "\r\n")
	}

	var sb strings.Builder
	v.machine.CPU().Dump(&sb)
	if next, err := v.machine.CPU().Next(); err == nil {
		fmt.Fprintf(&sb, "next %s\n", next)
	}

	tm.Print(strings.ReplaceAll(sb.String(), "\n", "\x1b[K\r\n"))
	tm.Print(tm.Color("p run/pause  n step  o reset  l reload  [ ] \\ quirks  ^C quit", tm.CYAN) + "\r\n")

	v.buffer.SetDirty(false)
	tm.Flush()
}

// Close moves the cursor below the drawn screen.
func (v *View) Close() {
	tm.Print("\r\n")
	tm.Flush()
}

// status returns the machine state as a single line.
func (v *View) status() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", AppName, AppVersion)

	switch {
	case v.machine.Fault() != nil:
		fmt.Fprintf(&sb, " - halted: %v", v.machine.Fault())
	case v.machine.Running():
		fmt.Fprintf(&sb, " - %.0f Hz", v.machine.Frequency())
	default:
		sb.WriteString(" - paused")
	}

	q := v.machine.Quirks()
	fmt.Fprintf(&sb, "  quirks %d%d%d", bit(q.LegacyShift), bit(q.LegacyIndexAdvance), bit(q.LegacyJumpOffset))

	if v.machine.CPU().SoundActive() {
		sb.WriteString("  BEEP")
	}

	sb.WriteString("\x1b[K")
	return sb.String()
}

// halfBlocks renders the framebuffer with two pixel rows per text line.
func halfBlocks(fb *display.Buffer) []string {
	lines := make([]string, 0, display.Height/2)

	var sb strings.Builder
	for y := 0; y < display.Height; y += 2 {
		sb.Reset()
		for x := 0; x < display.Width; x++ {
			top, bottom := fb.Pixel(x, y), fb.Pixel(x, y+1)
			switch {
			case top && bottom:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bottom:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		lines = append(lines, sb.String())
	}

	return lines
}

// traceTo returns a trace handler writing one line per instruction to w.
func traceTo(w io.Writer) cpu.TraceFunc {
	return func(i cpu.Instruction) {
		fmt.Fprintln(w, i)
	}
}

func bit(v bool) int {
	if v {
		return 1
	}
	return 0
}
