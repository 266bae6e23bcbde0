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

package hal

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"
)

// Sim is the concrete hardware simulator: a clock, a timer, three disks,
// the named interlocks, and a register plane. The kernel owns exactly one
// Sim for the lifetime of a run.
type Sim struct {
	Clock     *Clock
	Timer     *Timer
	Disks     [NumDisks]*Disk
	Locks     *Interlocks
	Registers *Registers

	haltOnce sync.Once
	halted   chan struct{}
}

// DiskLatency is the simulated per-transfer delay. It is small enough
// that test suites finish quickly but large enough that DISK_READ/WRITE
// traps genuinely observe InUse races when exercised concurrently.
const DiskLatency = 2 * time.Millisecond

// NewSim builds a simulator. onTimer fires when the armed timer expires;
// onDiskComplete fires when any disk finishes its current transfer.
func NewSim(onTimer TimerFunc, onDiskComplete DiskCompletionFunc) *Sim {
	s := &Sim{
		Clock:     NewClock(),
		Locks:     NewInterlocks(),
		Registers: NewRegisters(),
		halted:    make(chan struct{}),
	}
	s.Timer = NewTimer(onTimer)
	for i := range s.Disks {
		s.Disks[i] = NewDisk(i+1, DiskLatency, onDiskComplete)
	}
	return s
}

// Now reads the clock.
func (s *Sim) Now() uint32 { return s.Clock.Now() }

// Disk returns the simulated disk with the given 1-based id, or nil if
// diskID is out of range.
func (s *Sim) Disk(diskID int) *Disk {
	if diskID < 1 || diskID > NumDisks {
		return nil
	}
	return s.Disks[diskID-1]
}

// Halted reports whether Halt has been called.
func (s *Sim) Halted() <-chan struct{} {
	return s.halted
}

// Halt terminates the simulation: it closes the Halted channel (once) and
// never returns to its caller. fatal, when true, prints msg to stderr
// first; otherwise Halt is a normal, successful shutdown. Halt itself does
// not call os.Exit — that decision belongs to the process entry point
// (cmd/tkernel), which watches Halted() and exits once it observes the
// close. Keeping os.Exit out of this package is what makes Halt
// exercisable from tests.
func (s *Sim) Halt(fatal bool, msg string) {
	s.haltOnce.Do(func() {
		if fatal {
			fmt.Fprintf(os.Stderr, "kernel: fatal: %s\n", msg)
		}
		close(s.halted)
	})
	runtime.Goexit()
}
