package config

import (
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DefaultPath returns the default location of the settings file.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "chip8.toml"
	}
	return filepath.Join(dir, "chip8", "chip8.toml")
}

// Flags holds command line overrides for a Config.
// Only flags that were set on the command line are applied.
type Flags struct {
	fs                 *flag.FlagSet
	scale              int
	fullscreen         bool
	layout             string
	cycleTime          time.Duration
	stepsPerTimerTick  int
	trace              bool
	breakpoints        string
	legacyShift        bool
	legacyIndexAdvance bool
	legacyJumpOffset   bool
}

// RegisterFlags defines the settings flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	d := Default()
	f := &Flags{fs: fs}

	fs.IntVar(&f.scale, "scale", d.Scale, "Pixel scale factor for the display.")
	fs.BoolVar(&f.fullscreen, "fullscreen", d.Fullscreen, "Run the display in fullscreen or windowed mode.")
	fs.StringVar(&f.layout, "layout", d.Layout, "Keyboard layout: qwerty, qwertz or azerty.")
	fs.DurationVar(&f.cycleTime, "cycle-time", d.CycleTime.Duration, "Time between two instructions.")
	fs.IntVar(&f.stepsPerTimerTick, "steps-per-tick", d.StepsPerTimerTick, "Instructions executed per 60 Hz timer decrement.")
	fs.BoolVar(&f.trace, "trace", d.Trace, "Print instruction trace data.")
	fs.StringVar(&f.breakpoints, "break", "", "Comma-separated list of hexadecimal breakpoint addresses.")
	fs.BoolVar(&f.legacyShift, "legacy-shift", d.Quirks.LegacyShift, "8xy6/8xyE shift Vy into Vx.")
	fs.BoolVar(&f.legacyIndexAdvance, "legacy-index", d.Quirks.LegacyIndexAdvance, "Fx55/Fx65 advance I past the last register.")
	fs.BoolVar(&f.legacyJumpOffset, "legacy-jump", d.Quirks.LegacyJumpOffset, "Bnnn jumps relative to V0 rather than Vx.")
	return f
}

// Apply copies all explicitly set flags into c and validates the result.
func (f *Flags) Apply(c *Config) error {
	var err error

	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "scale":
			c.Scale = f.scale
		case "fullscreen":
			c.Fullscreen = f.fullscreen
		case "layout":
			c.Layout = strings.ToLower(f.layout)
		case "cycle-time":
			c.CycleTime.Duration = f.cycleTime
		case "steps-per-tick":
			c.StepsPerTimerTick = f.stepsPerTimerTick
		case "trace":
			c.Trace = f.trace
		case "break":
			var addrs []uint16
			addrs, err = ParseAddresses(f.breakpoints)
			c.Breakpoints = addrs
		case "legacy-shift":
			c.Quirks.LegacyShift = f.legacyShift
		case "legacy-index":
			c.Quirks.LegacyIndexAdvance = f.legacyIndexAdvance
		case "legacy-jump":
			c.Quirks.LegacyJumpOffset = f.legacyJumpOffset
		}
	})

	if err != nil {
		return err
	}
	return c.Validate()
}

// ParseAddresses parses a comma-separated list of hexadecimal addresses,
// with or without 0x prefix. Empty entries are ignored.
func ParseAddresses(value string) ([]uint16, error) {
	var out []uint16

	for _, field := range strings.Split(value, ",") {
		field = strings.TrimSpace(field)
		field = strings.TrimPrefix(strings.ToLower(field), "0x")
		if len(field) == 0 {
			continue
		}

		addr, err := strconv.ParseUint(field, 16, 16)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid address %q", field)
		}
		out = append(out, uint16(addr))
	}

	return out, nil
}
