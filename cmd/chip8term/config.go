package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hexaflex/chip8/config"
)

// Config defines program configuration.
type Config struct {
	*config.Config
	Program    string // Path to the program image to load.
	ConfigFile string // Path to the settings file.
	LogFile    string // Path to the log file.
	Debug      bool   // Start paused?
	ASCII      bool   // Draw with plain ASCII characters?
}

// parseArgs parses command line arguments as applicable. Settings are read
// from the settings file first; flags given on the command line override them.
//
// If an error occurred, this exits the program with an appropriate message.
// When version information is requested, it is printed to stdout and the program ends cleanly.
func parseArgs() *Config {
	var c Config
	c.LogFile = AppName + ".log"

	flag.Usage = func() {
		fmt.Printf("%s [options] <program file>\n", os.Args[0])
		flag.PrintDefaults()
	}

	flag.StringVar(&c.ConfigFile, "config", config.DefaultPath(), "Settings file.")
	flag.StringVar(&c.LogFile, "log", c.LogFile, "Log file. Trace output is written here as well.")
	flag.BoolVar(&c.Debug, "debug", c.Debug, "Start with execution paused.")
	flag.BoolVar(&c.ASCII, "ascii", c.ASCII, "Draw the display with plain ASCII characters.")
	overrides := config.RegisterFlags(flag.CommandLine)
	version := flag.Bool("version", false, "Display version information.")
	flag.Parse()

	if *version {
		fmt.Println(Version())
		os.Exit(0)
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	settings, err := config.Load(c.ConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := overrides.Apply(settings); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	c.Config = settings
	c.Program = flag.Arg(0)
	return &c
}
