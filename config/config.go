// Package config defines persistent emulator settings, stored as TOML.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/hexaflex/chip8/devices/chip8/cpu"
	"github.com/hexaflex/chip8/devices/chip8/keypad"
	"github.com/hexaflex/chip8/vm"
)

// Limits for validated settings.
const (
	MaxScale     = 64
	MinCycleTime = 100 * time.Microsecond
	MaxCycleTime = time.Second
)

// Config defines emulator settings.
type Config struct {
	Scale             int      `toml:"scale"`                // Window pixels per display pixel.
	Fullscreen        bool     `toml:"fullscreen"`           // Run the window in fullscreen mode.
	Layout            string   `toml:"layout"`               // Keyboard layout: qwerty, qwertz or azerty.
	CycleTime         Duration `toml:"cycle_time"`           // Time between two instructions.
	StepsPerTimerTick int      `toml:"steps_per_timer_tick"` // Instructions per delay/sound timer decrement.
	Trace             bool     `toml:"trace"`                // Print a trace line per instruction.
	Breakpoints       []uint16 `toml:"breakpoints"`          // Addresses at which execution pauses.
	Quirks            Quirks   `toml:"quirks"`
}

// Quirks selects instruction variants.
type Quirks struct {
	LegacyShift        bool `toml:"legacy_shift"`
	LegacyIndexAdvance bool `toml:"legacy_index_advance"`
	LegacyJumpOffset   bool `toml:"legacy_jump_offset"`
}

// Duration is a time.Duration stored as a string such as "2ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", text)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the default settings.
func Default() *Config {
	q := cpu.DefaultQuirks()
	return &Config{
		Scale:             10,
		Layout:            keypad.Qwerty.Name,
		CycleTime:         Duration{vm.DefaultCycleTime},
		StepsPerTimerTick: vm.DefaultStepsPerTimerTick,
		Quirks: Quirks{
			LegacyShift:        q.LegacyShift,
			LegacyIndexAdvance: q.LegacyIndexAdvance,
			LegacyJumpOffset:   q.LegacyJumpOffset,
		},
	}
}

// Load reads settings from the given file. Keys missing from the file keep
// their default values. A file that does not exist yields the defaults.
func Load(path string) (*Config, error) {
	c := Default()

	md, err := toml.DecodeFile(path, c)
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return c, nil
		}
		return nil, errors.Wrapf(err, "load %s", path)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.Errorf("load %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if err := c.Validate(); err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}

	return c, nil
}

// Save writes the settings to the given file, creating its directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "save %s", path)
	}

	fd, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "save %s", path)
	}

	defer fd.Close()

	if err := toml.NewEncoder(fd).Encode(c); err != nil {
		return errors.Wrapf(err, "save %s", path)
	}

	return fd.Close()
}

// Validate checks all settings for sane values.
func (c *Config) Validate() error {
	if c.Scale < 1 || c.Scale > MaxScale {
		return errors.Errorf("scale %d out of range [1, %d]", c.Scale, MaxScale)
	}

	if _, err := keypad.LayoutByName(c.Layout); err != nil {
		return err
	}

	if c.CycleTime.Duration < MinCycleTime || c.CycleTime.Duration > MaxCycleTime {
		return errors.Errorf("cycle time %v out of range [%v, %v]", c.CycleTime, MinCycleTime, MaxCycleTime)
	}

	if c.StepsPerTimerTick < 1 {
		return errors.Errorf("steps per timer tick must be positive; have %d", c.StepsPerTimerTick)
	}

	for _, addr := range c.Breakpoints {
		if addr >= cpu.MemoryCapacity {
			return errors.Errorf("breakpoint %#04x out of range", addr)
		}
	}

	return nil
}

// MachineOptions returns the settings as machine options.
func (c *Config) MachineOptions() vm.Options {
	return vm.Options{
		Quirks: cpu.Quirks{
			LegacyShift:        c.Quirks.LegacyShift,
			LegacyIndexAdvance: c.Quirks.LegacyIndexAdvance,
			LegacyJumpOffset:   c.Quirks.LegacyJumpOffset,
		},
		CycleTime:         c.CycleTime.Duration,
		StepsPerTimerTick: c.StepsPerTimerTick,
		Breakpoints:       append([]uint16(nil), c.Breakpoints...),
	}
}

// KeyboardLayout returns the configured keyboard layout.
func (c *Config) KeyboardLayout() keypad.Layout {
	l, err := keypad.LayoutByName(c.Layout)
	if err != nil {
		return keypad.Qwerty
	}
	return l
}
