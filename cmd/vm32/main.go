package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/noah1400/vm32/pkg/cpu"
	"github.com/noah1400/vm32/pkg/loader"
)

var helpvar bool
var debugvar bool

const usage = "vm32 filename"

func init() {
	exe, _ := os.Executable()
	log.SetFlags(0)
	log.SetPrefix(fmt.Sprintf("%s: ", filepath.Base(exe)))
	log.SetOutput(os.Stderr)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(&debugvar, "debug", false, "Captures the image's debug symbol table if present")
	flag.Parse()
}

func vm32() int {
	if helpvar {
		fmt.Println(usage)
		return 0
	}

	args := flag.Args()
	if len(args) != 1 {
		log.Println(usage)
		return 1
	}

	file, err := os.Open(args[0])
	if err != nil {
		log.Println(err)
		return 1
	}
	defer file.Close()

	c := cpu.New()
	c.DebugMode = debugvar

	symbols, err := loader.Load(c, file)
	if err != nil {
		log.Println(err)
		return 1
	}
	if symbols != nil {
		log.Printf("loaded %d symbols, %d source lines", len(symbols.Symbols), len(symbols.Lines))
	}

	enterRawTerm()
	defer exitRawTerm()

	sig := make(chan os.Signal, 1)
	defer close(sig)
	signal.Notify(sig, os.Interrupt)
	go func() {
		for range sig {
			c.StopRequested = true
		}
	}()
	defer signal.Stop(sig)

	if runErr := c.Run(); runErr != nil {
		exitRawTerm()
		fmt.Println()
		log.Printf("halted with error at PC 0x%04X: %s", c.ErrorPC, runErr)
		fmt.Print(c.DumpState())
		return 1
	}

	return 0
}

func main() {
	os.Exit(vm32())
}
