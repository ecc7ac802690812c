package vm

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/hexaflex/chip8/devices/chip8/cpu"
	"github.com/hexaflex/chip8/devices/chip8/display"
	"github.com/hexaflex/chip8/devices/chip8/keypad"
)

func TestLoadAndReset(t *testing.T) {
	m := newTestMachine(t, DefaultOptions(),
		0x6005, // LD V0, 05
		0x7001, // ADD V0, 01
	)

	step(t, m)
	step(t, m)
	if m.CPU().V(0) != 6 {
		t.Fatalf("want V0=06; have %02x", m.CPU().V(0))
	}

	q := m.Quirks()
	q.LegacyShift = false
	m.SetQuirks(q)

	if err := m.Reset(); err != nil {
		t.Fatal(err)
	}

	c := m.CPU()
	if c.V(0) != 0 || c.PC() != 0x200 {
		t.Fatalf("reset: want V0=00 PC=0200; have V0=%02x PC=%04x", c.V(0), c.PC())
	}
	if c.Quirks().LegacyShift {
		t.Fatalf("quirks must survive a reset")
	}
	if v, _ := m.Memory().U8(0x200); v != 0x60 {
		t.Fatalf("reset must reload the program; have %02x at 0200", v)
	}
}

func TestLoadProgramTooLarge(t *testing.T) {
	m := newTestMachine(t, DefaultOptions(), 0x6005)

	err := m.LoadProgram(make([]byte, 0xe01))
	if !errors.Is(err, cpu.ErrProgramTooLarge) {
		t.Fatalf("want ErrProgramTooLarge; have %v", err)
	}

	if v, _ := m.Memory().U8(0x200); v != 0x60 {
		t.Fatalf("a failed load must keep the current program")
	}
}

func TestTimerCadence(t *testing.T) {
	opt := DefaultOptions()
	opt.StepsPerTimerTick = 3

	m := newTestMachine(t, opt,
		0x60ff, // LD V0, FF
		0xf015, // LD DT, V0
		0x1204, // JP 204
	)

	step(t, m)
	step(t, m)
	if dt := m.CPU().DelayTimer(); dt != 0xff {
		t.Fatalf("want DT=ff; have %02x", dt)
	}

	step(t, m)
	if dt := m.CPU().DelayTimer(); dt != 0xfe {
		t.Fatalf("want DT=fe; have %02x", dt)
	}

	for i := 0; i < 6; i++ {
		step(t, m)
	}
	if dt := m.CPU().DelayTimer(); dt != 0xfc {
		t.Fatalf("want DT=fc; have %02x", dt)
	}
}

func TestBreakpoint(t *testing.T) {
	opt := DefaultOptions()
	opt.Breakpoints = []uint16{0x202}

	m := newTestMachine(t, opt,
		0x6001, // LD V0, 01
		0x6102, // LD V1, 02
		0x6203, // LD V2, 03
		0x1206, // JP 206
	)

	m.Start()
	tick(t, m)
	tick(t, m)

	if m.Running() {
		t.Fatalf("machine must pause at the breakpoint")
	}
	if m.CPU().PC() != 0x202 || m.CPU().V(1) != 0 {
		t.Fatalf("the breakpoint instruction must not run yet")
	}

	m.Start()
	tick(t, m)
	tick(t, m)

	if !m.Running() || m.CPU().V(1) != 2 || m.CPU().V(2) != 3 {
		t.Fatalf("resume must pass the breakpoint: V1=%02x V2=%02x", m.CPU().V(1), m.CPU().V(2))
	}

	if have := m.Breakpoints(); !reflect.DeepEqual(have, []uint16{0x202}) {
		t.Fatalf("breakpoints: have %v", have)
	}
	m.ClearBreakpoint(0x202)
	if len(m.Breakpoints()) != 0 {
		t.Fatalf("breakpoint must be cleared")
	}
}

func TestBreakpointSingleStep(t *testing.T) {
	opt := DefaultOptions()
	opt.Breakpoints = []uint16{0x200}

	m := newTestMachine(t, opt, 0x6001, 0x1202)

	m.Start()
	tick(t, m)
	if m.Running() {
		t.Fatalf("machine must pause at the breakpoint")
	}

	step(t, m)
	if m.CPU().V(0) != 1 {
		t.Fatalf("Step must execute the breakpoint instruction")
	}
}

func TestFault(t *testing.T) {
	m := newTestMachine(t, DefaultOptions(), 0x00ee) // RET

	m.Start()
	err := m.Tick()
	if !errors.Is(err, cpu.ErrStackUnderflow) {
		t.Fatalf("want ErrStackUnderflow; have %v", err)
	}

	if m.Running() || m.Fault() == nil {
		t.Fatalf("machine must halt on failure")
	}

	m.Start()
	if m.Running() {
		t.Fatalf("a halted machine must not start")
	}
	if _, err := m.Step(); err != m.Fault() {
		t.Fatalf("Step on a halted machine must return the fault; have %v", err)
	}

	if err := m.Reset(); err != nil {
		t.Fatal(err)
	}
	if m.Fault() != nil {
		t.Fatalf("Reset must clear the fault")
	}
}

func TestUpdate(t *testing.T) {
	var count int

	opt := DefaultOptions()
	opt.Trace = func(cpu.Instruction) { count++ }

	m := newTestMachine(t, opt, 0x1200) // JP 200

	clock := time.Unix(1000, 0)
	m.now = func() time.Time { return clock }

	if err := m.Update(); err != nil || count != 0 {
		t.Fatalf("a paused machine must not step: %d, %v", count, err)
	}

	m.Start()
	clock = clock.Add(11 * time.Millisecond)
	if err := m.Update(); err != nil {
		t.Fatal(err)
	}
	if count != 5 {
		t.Fatalf("want 5 steps; have %d", count)
	}

	clock = clock.Add(time.Millisecond)
	m.Update()
	if count != 6 {
		t.Fatalf("remainder must carry over: want 6 steps; have %d", count)
	}

	clock = clock.Add(time.Second)
	m.Update()
	if count != 6+maxCatchUp {
		t.Fatalf("want %d steps; have %d", 6+maxCatchUp, count)
	}

	if f := m.Frequency(); f <= 0 {
		t.Fatalf("a running machine must report a frequency; have %f", f)
	}
}

func TestTraceSurvivesReset(t *testing.T) {
	var have []uint16

	m := newTestMachine(t, DefaultOptions(), 0x6001)
	m.SetTrace(func(i cpu.Instruction) { have = append(have, i.Address) })

	step(t, m)
	m.Reset()
	step(t, m)

	if !reflect.DeepEqual(have, []uint16{0x200, 0x200}) {
		t.Fatalf("want two traced instructions; have %v", have)
	}
}

func TestRandomSurvivesReset(t *testing.T) {
	m := newTestMachine(t, DefaultOptions(), 0xc0ff) // RND V0, FF
	m.SetRandom(fixedRandom(0x5a))
	m.Reset()

	step(t, m)
	if m.CPU().V(0) != 0x5a {
		t.Fatalf("want V0=5a; have %02x", m.CPU().V(0))
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.ch8")
	if err := os.WriteFile(path, []byte{0x60, 0x01}, 0644); err != nil {
		t.Fatal(err)
	}

	m := New(display.New(), keypad.New(keypad.Qwerty), DefaultOptions())
	if err := m.LoadFile(path); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte{0x60, 0x02}, 0644); err != nil {
		t.Fatal(err)
	}
	if err := m.Reload(); err != nil {
		t.Fatal(err)
	}

	step(t, m)
	if m.CPU().V(0) != 2 {
		t.Fatalf("Reload must read the file again; have V0=%02x", m.CPU().V(0))
	}

	if err := m.LoadFile(filepath.Join(t.TempDir(), "missing.ch8")); err == nil {
		t.Fatalf("expected error for a missing file")
	}
}

func TestLifecycle(t *testing.T) {
	fb := display.New()
	kp := keypad.New(keypad.Qwerty)
	m := New(fb, kp, DefaultOptions())

	fb.TogglePixel(1, 1)
	kp.Set(3, true)

	if err := m.Startup(); err != nil {
		t.Fatal(err)
	}
	if fb.Pixel(1, 1) || kp.IsPressed(3) {
		t.Fatalf("Startup must reset the display and keypad")
	}

	m.Start()
	if err := m.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if m.Running() {
		t.Fatalf("Shutdown must stop execution")
	}
}

func TestRun(t *testing.T) {
	m := newTestMachine(t, DefaultOptions(), 0x7001, 0x1200) // ADD V0, 01; JP 200
	m.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var frames int
	err := m.Run(ctx, func() error {
		frames++
		if frames == 3 {
			cancel()
		}
		return nil
	})

	if err != nil {
		t.Fatal(err)
	}
	if m.CPU().V(0) == 0 {
		t.Fatalf("machine must have executed steps while running")
	}
}

func TestRunFrameError(t *testing.T) {
	m := newTestMachine(t, DefaultOptions(), 0x1200)
	want := errors.New("window closed")

	err := m.Run(context.Background(), func() error { return want })
	if err != want {
		t.Fatalf("want %v; have %v", want, err)
	}
}

func newTestMachine(t *testing.T, opt Options, program ...uint16) *Machine {
	t.Helper()

	data := make([]byte, 0, len(program)*2)
	for _, op := range program {
		data = append(data, byte(op>>8), byte(op))
	}

	m := New(display.New(), keypad.New(keypad.Qwerty), opt)
	if err := m.LoadProgram(data); err != nil {
		t.Fatalf("LoadProgram failure: %v", err)
	}
	return m
}

func step(t *testing.T, m *Machine) {
	t.Helper()
	if _, err := m.Step(); err != nil {
		t.Fatalf("Step failure: %v", err)
	}
}

func tick(t *testing.T, m *Machine) {
	t.Helper()
	if err := m.Tick(); err != nil {
		t.Fatalf("Tick failure: %v", err)
	}
}

type fixedRandom int

func (r fixedRandom) Intn(n int) int { return int(r) % n }
