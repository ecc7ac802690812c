// Package vm hosts a CHIP-8 CPU: it loads programs, paces execution,
// drives the 60 Hz timers and handles pausing, stepping and breakpoints.
package vm

import (
	"log"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/hexaflex/chip8/devices"
	"github.com/hexaflex/chip8/devices/chip8/cpu"
)

// Execution defaults.
const (
	DefaultCycleTime         = 2 * time.Millisecond
	DefaultStepsPerTimerTick = 9
)

// maxCatchUp bounds the number of steps a single Update call may run
// after the host stalled.
const maxCatchUp = 64

// Options defines machine configuration.
type Options struct {
	Quirks            cpu.Quirks    // Instruction variants.
	CycleTime         time.Duration // Time between two execution steps.
	StepsPerTimerTick int           // Steps executed per delay/sound timer decrement.
	Breakpoints       []uint16      // Addresses at which execution pauses.
	Trace             cpu.TraceFunc // Optional per-instruction trace handler.
}

// DefaultOptions returns the default machine configuration.
func DefaultOptions() Options {
	return Options{
		Quirks:            cpu.DefaultQuirks(),
		CycleTime:         DefaultCycleTime,
		StepsPerTimerTick: DefaultStepsPerTimerTick,
	}
}

// Machine owns a CPU and its memory and controls their execution.
//
// A Machine is not safe for concurrent use. The keypad is the only
// collaborator that may be updated from other goroutines.
type Machine struct {
	cpu     *cpu.CPU
	display devices.Display
	keypad  devices.Keypad
	devices devices.Map
	rng     cpu.Random

	quirks       cpu.Quirks
	trace        cpu.TraceFunc
	cycleTime    time.Duration
	stepsPerTick int
	breakpoints  map[uint16]struct{}

	path       string // File the current program was loaded from, if any.
	program    []byte // Current program image.
	stepCount  int    // Steps since the last timer tick.
	resumeFrom int    // Breakpoint address to pass on the next step, or -1.
	fault      error  // Failure that halted the machine.

	now        func() time.Time
	lastUpdate time.Time
	start      time.Time
	cycleCount uint64
	running    bool
}

// New creates a new machine drawing to the given display and reading the given keypad.
// If either of them implements devices.Device, it is connected to the machine.
func New(display devices.Display, keypad devices.Keypad, opt Options) *Machine {
	if opt.CycleTime <= 0 {
		opt.CycleTime = DefaultCycleTime
	}
	if opt.StepsPerTimerTick <= 0 {
		opt.StepsPerTimerTick = DefaultStepsPerTimerTick
	}

	m := &Machine{
		display:      display,
		keypad:       keypad,
		quirks:       opt.Quirks,
		trace:        opt.Trace,
		cycleTime:    opt.CycleTime,
		stepsPerTick: opt.StepsPerTimerTick,
		breakpoints:  make(map[uint16]struct{}),
		resumeFrom:   -1,
		now:          time.Now,
	}

	for _, addr := range opt.Breakpoints {
		m.SetBreakpoint(addr)
	}

	if dev, ok := display.(devices.Device); ok {
		m.Connect(dev)
	}
	if dev, ok := keypad.(devices.Device); ok {
		m.Connect(dev)
	}

	m.reset()
	return m
}

// Connect adds a peripheral whose lifecycle is managed by the machine.
// Returns false if a device with the same id is already connected.
func (m *Machine) Connect(dev devices.Device) bool {
	return m.devices.Connect(dev)
}

// Startup initializes all connected devices.
func (m *Machine) Startup() error {
	return m.devices.Startup()
}

// Shutdown stops execution and releases all connected devices.
func (m *Machine) Shutdown() error {
	m.Stop()
	return m.devices.Shutdown()
}

// CPU returns the current CPU. A new one is created on every reset.
func (m *Machine) CPU() *cpu.CPU {
	return m.cpu
}

// Memory returns the current memory bank.
func (m *Machine) Memory() *cpu.Memory {
	return m.cpu.Memory()
}

// Fault returns the failure that halted the machine, if any.
// It is cleared by Reset and by loading a program.
func (m *Machine) Fault() error {
	return m.fault
}

// LoadFile reads a program image from disk and loads it.
func (m *Machine) LoadFile(path string) error {
	log.Println("load", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "load %s", path)
	}

	if err := m.LoadProgram(data); err != nil {
		return errors.Wrapf(err, "load %s", path)
	}

	m.path = path
	return nil
}

// Reload reads the current program file from disk again and loads it.
// Without a file, this behaves like Reset.
func (m *Machine) Reload() error {
	if m.path == "" {
		return m.Reset()
	}
	return m.LoadFile(m.path)
}

// LoadProgram resets the machine and loads the given program image.
// The machine keeps its running state.
func (m *Machine) LoadProgram(program []byte) error {
	mem := cpu.NewMemory()
	if err := mem.LoadProgram(program); err != nil {
		return err
	}

	m.program = append(m.program[:0], program...)
	m.path = ""
	m.install(mem)
	return nil
}

// Reset restarts the current program with cleared memory, registers,
// timers and display. The current quirks are carried over.
func (m *Machine) Reset() error {
	log.Println("reset")

	mem := cpu.NewMemory()
	if err := mem.LoadProgram(m.program); err != nil {
		return err
	}

	m.install(mem)
	return nil
}

// reset installs an empty memory bank.
func (m *Machine) reset() {
	m.install(cpu.NewMemory())
}

// install creates a fresh CPU on the given memory.
func (m *Machine) install(mem *cpu.Memory) {
	m.cpu = cpu.New(mem, m.display, m.keypad, m.quirks, m.trace)
	if m.rng != nil {
		m.cpu.SetRandom(m.rng)
	}

	m.display.Clear()
	m.stepCount = 0
	m.resumeFrom = -1
	m.fault = nil
	m.lastUpdate = m.now()
	m.start = m.lastUpdate
	m.cycleCount = 0
}

// Quirks returns the instruction variants in use.
func (m *Machine) Quirks() cpu.Quirks {
	return m.quirks
}

// SetQuirks changes the instruction variants. They take effect on the next
// step and survive resets.
func (m *Machine) SetQuirks(q cpu.Quirks) {
	m.quirks = q
	m.cpu.SetQuirks(q)
}

// SetTrace sets the per-instruction trace handler. It survives resets.
func (m *Machine) SetTrace(trace cpu.TraceFunc) {
	m.trace = trace
	m.cpu.SetTrace(trace)
}

// SetRandom replaces the random source used by the CPU. It survives resets.
func (m *Machine) SetRandom(r cpu.Random) {
	m.rng = r
	m.cpu.SetRandom(r)
}

// CycleTime returns the time between two execution steps.
func (m *Machine) CycleTime() time.Duration {
	return m.cycleTime
}

// SetCycleTime changes the time between two execution steps.
// Non-positive values are ignored.
func (m *Machine) SetCycleTime(d time.Duration) {
	if d > 0 {
		m.cycleTime = d
	}
}

// SetBreakpoint sets a breakpoint at the given address.
func (m *Machine) SetBreakpoint(addr uint16) {
	m.breakpoints[addr] = struct{}{}
}

// ClearBreakpoint removes the breakpoint at the given address.
func (m *Machine) ClearBreakpoint(addr uint16) {
	delete(m.breakpoints, addr)
}

// Breakpoints returns all breakpoint addresses in ascending order.
func (m *Machine) Breakpoints() []uint16 {
	out := make([]uint16, 0, len(m.breakpoints))
	for addr := range m.breakpoints {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Running returns true if the machine is currently running.
func (m *Machine) Running() bool {
	return m.running
}

// Frequency returns the current execution rate in instructions per second.
func (m *Machine) Frequency() float64 {
	if !m.running {
		return 0
	}
	return float64(m.cycleCount) / m.now().Sub(m.start).Seconds()
}

// ToggleRun starts or stops program execution.
func (m *Machine) ToggleRun() {
	m.setRunning(!m.running)
}

// Start begins execution of the program. A halted machine must be reset first.
func (m *Machine) Start() {
	if m.fault != nil {
		return
	}
	m.setRunning(true)
}

// Stop pauses execution of the program.
func (m *Machine) Stop() {
	m.setRunning(false)
}

// Step performs a single execution step, regardless of breakpoints
// and of whether the machine is running. Every StepsPerTimerTick steps
// the CPU timers are decremented.
//
// A failing step halts the machine; it must be reset before it runs again.
func (m *Machine) Step() (cpu.Instruction, error) {
	if m.fault != nil {
		return cpu.Instruction{}, m.fault
	}

	m.cycleCount++
	m.resumeFrom = -1

	instr, err := m.cpu.Step()
	if err != nil {
		m.fault = err
		m.setRunning(false)
		log.Println("halt:", err)
		return instr, err
	}

	m.stepCount++
	if m.stepCount >= m.stepsPerTick {
		m.stepCount = 0
		m.cpu.TickTimers()
	}

	return instr, nil
}

// Tick performs one scheduled step if the machine is running.
// It pauses instead if the next instruction has a breakpoint.
func (m *Machine) Tick() error {
	if !m.running {
		return nil
	}

	pc := m.cpu.PC()
	if _, ok := m.breakpoints[pc]; ok && int(pc) != m.resumeFrom {
		log.Printf("break %04x", pc)
		m.Stop()
		m.resumeFrom = int(pc)
		return nil
	}

	_, err := m.Step()
	return err
}

// Update performs all steps that came due since the previous call,
// at one step per cycle time. Hosts call it from their main loop.
func (m *Machine) Update() error {
	now := m.now()
	if !m.running {
		m.lastUpdate = now
		return nil
	}

	due := int(now.Sub(m.lastUpdate) / m.cycleTime)
	if due > maxCatchUp {
		due = maxCatchUp
		m.lastUpdate = now
	} else {
		m.lastUpdate = m.lastUpdate.Add(time.Duration(due) * m.cycleTime)
	}

	for ; due > 0 && m.running; due-- {
		if err := m.Tick(); err != nil {
			return err
		}
	}

	return nil
}

// setRunning determines if the machine is running or is paused.
func (m *Machine) setRunning(v bool) {
	if v != m.running {
		if v {
			log.Println("run")
		} else {
			log.Println("pause")
		}
	}

	m.running = v
	m.start = m.now()
	m.lastUpdate = m.start
	m.cycleCount = 0
}
