// Copyright © 2024 Jeff Berkowitz (pdxjjb@gmail.com)
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"tkernel/kernel"
	"tkernel/testdriver"
	"tkernel/trace"
)

var (
	traceFile   = flag.String("trace", "", "Write scheduler/memory trace to file instead of stderr")
	showVersion = flag.Bool("version", false, "Show version and exit")
)

const version = "1.0.0"

var savedTermState *term.State

// setupTerminal puts the terminal in raw mode so a running process's
// console I/O isn't mangled by line discipline.
func setupTerminal() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}
	state, err := term.GetState(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("failed to get terminal state: %v", err)
	}
	savedTermState = state

	_, err = term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("failed to set raw mode: %v", err)
	}
	return nil
}

// restoreTerminal restores the terminal to its original state.
func restoreTerminal() {
	if savedTermState != nil && term.IsTerminal(int(os.Stdin.Fd())) {
		term.Restore(int(os.Stdin.Fd()), savedTermState)
	}
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("tkernel v%s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) != 1 {
		usage()
		os.Exit(1)
	}

	name := args[0]
	entry, ok := testdriver.Lookup(name)
	if !ok {
		fmt.Fprintf(os.Stderr, "tkernel: unknown test driver entry %q\n", name)
		usage()
		os.Exit(1)
	}

	out := os.Stderr
	if *traceFile != "" {
		f, err := os.Create(*traceFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating trace file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	tracer := trace.NewTracer(out, entry.Other, entry.Scheduler, entry.Memory)

	if err := setupTerminal(); err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up terminal: %v\n", err)
		os.Exit(1)
	}
	defer restoreTerminal()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		restoreTerminal()
		os.Exit(130)
	}()

	k := kernel.New(tracer)

	// Watch for the kernel halting (cleanly or fatally) and only then
	// exit the process; hal.Sim.Halt itself never calls os.Exit, which is
	// what keeps it exercisable from tests.
	exitCode := make(chan int, 1)
	go func() {
		<-k.Sim().Halted()
		restoreTerminal()
		exitCode <- 0
	}()

	startTime := time.Now()
	// Boot never returns (its goroutine becomes the boot context's body
	// and stays parked, per hal.NewBootContext), so it runs on its own
	// goroutine and main waits on exitCode instead.
	go k.Boot(name, entry.Body, entry.Priority)
	code := <-exitCode
	elapsed := time.Since(startTime)

	fmt.Fprintf(os.Stderr, "\n========================================\n")
	fmt.Fprintf(os.Stderr, "Simulation halted\n")
	fmt.Fprintf(os.Stderr, "Time: %v\n", elapsed.Round(time.Millisecond))

	os.Exit(code)
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [options] <test-name>\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "tkernel - run the teaching kernel against one test-driver entry point\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nArguments:\n")
	fmt.Fprintf(os.Stderr, "  <test-name>    one of the names in testdriver.Table (test0, test1, test1x, test2a..test2g)\n")
	fmt.Fprintf(os.Stderr, "\nUse -trace to write the scheduler/memory trace to a file instead of stderr.\n")
}
