package config

import (
	"flag"
	"reflect"
	"testing"
	"time"
)

func TestFlagsApply(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := RegisterFlags(fs)

	err := fs.Parse([]string{"-scale", "3", "-layout", "QWERTZ", "-cycle-time", "5ms", "-break", "200, 0x2A4", "-legacy-jump=false"})
	if err != nil {
		t.Fatal(err)
	}

	c := Default()
	c.Trace = true

	if err := f.Apply(c); err != nil {
		t.Fatal(err)
	}

	if c.Scale != 3 || c.Layout != "qwertz" || c.CycleTime.Duration != 5*time.Millisecond {
		t.Fatalf("unexpected values: %+v", c)
	}
	if !c.Trace {
		t.Fatalf("flags not given must keep the file value")
	}
	if c.Quirks.LegacyJumpOffset || !c.Quirks.LegacyShift {
		t.Fatalf("unexpected quirks: %+v", c.Quirks)
	}
	if !reflect.DeepEqual(c.Breakpoints, []uint16{0x200, 0x2a4}) {
		t.Fatalf("unexpected breakpoints: %v", c.Breakpoints)
	}
}

func TestFlagsApplyInvalid(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := RegisterFlags(fs)

	if err := fs.Parse([]string{"-break", "zz"}); err != nil {
		t.Fatal(err)
	}
	if err := f.Apply(Default()); err == nil {
		t.Fatalf("expected error for an invalid address")
	}

	fs = flag.NewFlagSet("test", flag.ContinueOnError)
	f = RegisterFlags(fs)

	if err := fs.Parse([]string{"-scale", "0"}); err != nil {
		t.Fatal(err)
	}
	if err := f.Apply(Default()); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestParseAddresses(t *testing.T) {
	have, err := ParseAddresses("")
	if err != nil || len(have) != 0 {
		t.Fatalf("empty list: have %v, %v", have, err)
	}

	if _, err := ParseAddresses("10000"); err == nil {
		t.Fatalf("expected range error")
	}
}
