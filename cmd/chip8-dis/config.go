package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

// Config defines program configuration.
type Config struct {
	Input  string // Program image to disassemble.
	Output string // Path to store output in. Empty means stdout.
	Origin uint16 // Address of the first program byte.
	Labels bool   // Emit labels for branch targets?
}

// parseArgs parses command line arguments as applicable.
//
// If an error occurred, this exits the program with an appropriate message.
// When version information is requested, it is printed to stdout and the program ends cleanly.
func parseArgs() *Config {
	var c Config
	c.Labels = true

	flag.Usage = func() {
		fmt.Printf("%s [options] <program file>\n", os.Args[0])
		flag.PrintDefaults()
	}

	origin := flag.String("origin", "200", "Hexadecimal load address of the program.")
	flag.StringVar(&c.Output, "out", c.Output, "Output file. Defaults to stdout.")
	flag.BoolVar(&c.Labels, "labels", c.Labels, "Emit labels for jump and call targets.")
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

	addr, err := strconv.ParseUint(*origin, 16, 12)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid origin %q: %v\n", *origin, err)
		os.Exit(1)
	}

	c.Origin = uint16(addr)
	c.Input = flag.Arg(0)
	return &c
}
