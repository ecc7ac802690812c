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
	Debug      bool   // Start paused?
}

// parseArgs parses command line arguments as applicable. Settings are read
// from the settings file first; flags given on the command line override them.
//
// If an error occurred, this exits the program with an appropriate message.
// When version information is requested, it is printed to stdout and the program ends cleanly.
func parseArgs() *Config {
	var c Config

	flag.Usage = func() {
		fmt.Printf("%s [options] <program file>\n", os.Args[0])
		flag.PrintDefaults()
	}

	flag.StringVar(&c.ConfigFile, "config", config.DefaultPath(), "Settings file.")
	flag.BoolVar(&c.Debug, "debug", c.Debug, "Start with execution paused.")
	overrides := config.RegisterFlags(flag.CommandLine)
	save := flag.Bool("save-config", false, "Write the effective settings to the settings file.")
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

	if *save {
		if err := settings.Save(c.ConfigFile); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	c.Config = settings
	c.Program = flag.Arg(0)
	return &c
}
