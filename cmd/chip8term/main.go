package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/hexaflex/chip8/devices/chip8/display"
	"github.com/hexaflex/chip8/devices/chip8/keypad"
	"github.com/hexaflex/chip8/vm"
)

func main() {
	config := parseArgs()

	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "stdin and stdout must be a terminal")
		os.Exit(1)
	}

	if err := run(config); err != nil {
		log.Fatal(err)
	}
}

// run executes the program until the user quits.
func run(c *Config) error {
	logs, err := openLog(c.LogFile)
	if err != nil {
		return err
	}

	defer logs.Close()
	log.SetOutput(logs)
	log.Println(Version())

	fb := display.New()
	kp := keypad.New(c.KeyboardLayout())
	in := NewInput(os.Stdin, kp)

	opt := c.MachineOptions()
	if c.Trace {
		opt.Trace = traceTo(logs)
	}

	m := vm.New(fb, kp, opt)
	m.Connect(in)

	if err := m.Startup(); err != nil {
		return err
	}

	defer func() {
		if err := m.Shutdown(); err != nil {
			log.Println(err)
		}
	}()

	if err := m.LoadFile(c.Program); err != nil {
		return err
	}

	if !c.Debug {
		m.Start()
	}

	view := NewView(m, fb, c.ASCII)

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		return in.Run(ctx)
	})
	g.Go(func() error {
		return m.Run(ctx, func() error {
			in.Release()
			if err := in.Apply(m); err != nil {
				log.Println(err)
			}
			view.Draw()
			return nil
		})
	})

	err = g.Wait()
	view.Close()

	if errors.Is(err, ErrQuit) {
		return nil
	}
	return err
}

// openLog opens the log file. Log output would corrupt the screen.
func openLog(path string) (*os.File, error) {
	fd, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open log file")
	}
	return fd, nil
}
