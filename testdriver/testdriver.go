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

// Package testdriver is the enumerated table of test-driver entry points
// named on the command line: a fixed set of user programs standing in
// for the binaries a real build of this kernel would load from disk.
package testdriver

import (
	"tkernel/hal"
	"tkernel/kernel"
	"tkernel/trace"
)

// Entry is one command-line-selectable process: its body and the
// per-class trace verbosity the scenario was designed to run at.
type Entry struct {
	Priority            int
	Body                kernel.ProcEntry
	Other, Scheduler, Memory trace.Level
}

// Table is the set of names accepted as the positional command-line
// argument. An unknown name is the caller's responsibility to reject:
// the kernel starts nothing and exits.
var Table = map[string]Entry{
	"test0": {
		Priority: 50,
		Body:     test0,
		Other:    trace.Full, Scheduler: trace.Full, Memory: trace.Full,
	},
	"test1": {
		Priority: 50,
		Body:     test1Parent,
		Other:    trace.Full, Scheduler: trace.Full, Memory: trace.None,
	},
	"test1x": {
		Priority: 10,
		Body:     test1Child,
		Other:    trace.Full, Scheduler: trace.Full, Memory: trace.None,
	},
	"test2a": {
		Priority: 50,
		Body:     test2aParent,
		Other:    trace.Full, Scheduler: trace.Full, Memory: trace.None,
	},
	"test2b": {
		Priority: 50,
		Body:     test2bParent,
		Other:    trace.Full, Scheduler: trace.Full, Memory: trace.None,
	},
	"test2c": {
		Priority: 50,
		Body:     test2cParent,
		Other:    trace.Limited, Scheduler: trace.Limited, Memory: trace.None,
	},
	"test2d": {
		Priority: 50,
		Body:     test2dProc,
		Other:    trace.Limited, Scheduler: trace.Limited, Memory: trace.Limited,
	},
	"test2e": {
		Priority: 50,
		Body:     test2eTableFull,
		Other:    trace.Full, Scheduler: trace.Limited, Memory: trace.None,
	},
	"test2f": {
		Priority: 50,
		Body:     test2fBoundaryErrors,
		Other:    trace.Full, Scheduler: trace.None, Memory: trace.None,
	},
	"test2g": {
		Priority: 50,
		Body:     test2gPageFaultHalt,
		Other:    trace.Full, Scheduler: trace.None, Memory: trace.Full,
	},
}

// Lookup resolves a command-line name to its Entry.
func Lookup(name string) (Entry, bool) {
	e, ok := Table[name]
	return e, ok
}

// test0 is the simplest scenario: a single process reads the clock and
// terminates itself; the simulator should halt within one dispatch
// cycle since pid 0 is root.
func test0(p *kernel.Proc) {
	_ = p.GetTimeOfDay()
	p.TerminateProcess(-1)
}

// test1Parent is scenario 2: five equal-priority children run test1x;
// the parent polls GetProcessID for the last child until it reports
// DoesNotExist, confirming it saw every child complete.
func test1Parent(p *kernel.Proc) {
	const n = 5
	var lastName string
	for i := 0; i < n; i++ {
		name := childName("t1x", i)
		lastName = name
		if _, errc := p.Create(name, test1Child, 10); errc != kernel.Success {
			p.TerminateProcess(-1)
			return
		}
	}
	for {
		if _, errc := p.GetProcessID(lastName); errc == kernel.DoesNotExist {
			break
		}
		p.Sleep(1)
	}
	p.TerminateProcess(-1)
}

func test1Child(p *kernel.Proc) {
	_ = p.GetTimeOfDay()
}

// test2aParent is scenario 3: children at priorities {10,11,11,90,40}
// should complete in order 10, 11a, 11b, 40, 90.
func test2aParent(p *kernel.Proc) {
	priorities := []int{10, 11, 11, 90, 40}
	names := make([]string, len(priorities))
	for i, pri := range priorities {
		name := childName("t2a", i)
		names[i] = name
		if _, errc := p.Create(name, test2aChild, pri); errc != kernel.Success {
			p.TerminateProcess(-1)
			return
		}
	}
	for _, name := range names {
		for {
			if _, errc := p.GetProcessID(name); errc == kernel.DoesNotExist {
				break
			}
			p.Sleep(1)
		}
	}
	p.TerminateProcess(-1)
}

func test2aChild(p *kernel.Proc) {
	_ = p.GetTimeOfDay()
}

// test2bParent is scenario 4: Suspend/Resume round trip and its error
// cases.
func test2bParent(p *kernel.Proc) {
	pid, errc := p.Create("t2b-child", test2bChild, 10)
	if errc != kernel.Success {
		p.TerminateProcess(-1)
		return
	}
	if errc := p.SuspendProcess(pid); errc != kernel.Success {
		p.TerminateProcess(-1)
		return
	}
	if errc := p.SuspendProcess(pid); errc != kernel.AlreadySuspended {
		p.TerminateProcess(-1)
		return
	}
	if errc := p.ResumeProcess(pid); errc != kernel.Success {
		p.TerminateProcess(-1)
		return
	}
	if errc := p.ResumeProcess(pid); errc != kernel.ResumeUnsuspended {
		p.TerminateProcess(-1)
		return
	}
	p.TerminateProcess(-1)
}

func test2bChild(p *kernel.Proc) {
	p.Sleep(50)
}

// test2cParent is scenario 5: two processes each perform 50 DiskWrite /
// DiskRead round trips across disks 1-3 at pseudo-random sectors and
// verify every read returns the bytes written.
func test2cParent(p *kernel.Proc) {
	const nameA, nameB = "t2c-a", "t2c-b"
	if _, errc := p.Create(nameA, test2cWorker, 50); errc != kernel.Success {
		p.TerminateProcess(-1)
		return
	}
	if _, errc := p.Create(nameB, test2cWorker, 50); errc != kernel.Success {
		p.TerminateProcess(-1)
		return
	}
	for {
		_, erra := p.GetProcessID(nameA)
		_, errb := p.GetProcessID(nameB)
		if erra == kernel.DoesNotExist && errb == kernel.DoesNotExist {
			break
		}
		p.Sleep(1)
	}
	p.TerminateProcess(-1)
}

func test2cWorker(p *kernel.Proc) {
	seed := uint32(p.PID()*2654435761 + 1)
	for i := 0; i < 50; i++ {
		seed = lcg(seed)
		disk := 1 + int(seed%3)
		seed = lcg(seed)
		sector := seed % 4096

		var out hal.Sector
		for w := range out {
			out[w] = uint16(seed) ^ uint16(w) ^ uint16(p.PID())
		}
		if errc := p.DiskWrite(disk, sector, &out); errc != kernel.Success {
			return
		}
		var in hal.Sector
		if errc := p.DiskRead(disk, sector, &in); errc != kernel.Success {
			return
		}
		if in != out {
			return
		}
	}
}

func lcg(x uint32) uint32 { return x*1664525 + 1013904223 }

// test2dProc is scenario 6: one process sweeps virtual addresses across
// all 1024 pages with a stride greater than PHYS_FRAMES, writing addr+pid
// to each word, then reads every one back, exercising page replacement.
func test2dProc(p *kernel.Proc) {
	const stride = 100 // 164 distinct pages > PhysFrames (64), forcing eviction once the pool is empty
	for addr := 0; addr < kernel.VirtualPages*kernel.PageWords; addr += stride {
		p.MemWrite(addr, uint16(addr+p.PID()))
	}
	for addr := 0; addr < kernel.VirtualPages*kernel.PageWords; addr += stride {
		val, errc := p.MemRead(addr)
		if errc != kernel.Success {
			return
		}
		if val != uint16(addr+p.PID()) {
			return
		}
	}
	p.TerminateProcess(-1)
}

// test2eTableFull creates children until TableFull, then confirms exactly
// NMax-1 succeeded (slot 0 is already occupied by this driver process
// itself).
func test2eTableFull(p *kernel.Proc) {
	created := 0
	for i := 0; ; i++ {
		name := childName("t2e", i)
		if _, errc := p.Create(name, test2eChild, 50); errc != kernel.Success {
			if errc != kernel.TableFull {
				p.TerminateProcess(-1)
				return
			}
			break
		}
		created++
	}
	if created != kernel.NMax-1 {
		p.TerminateProcess(-1)
		return
	}
	p.TerminateProcess(-1)
}

func test2eChild(p *kernel.Proc) {
	p.Sleep(1000)
}

// test2fBoundaryErrors exercises the remaining boundary behaviors that
// don't need a full scenario of their own: illegal priority, duplicate
// names, unknown pids.
func test2fBoundaryErrors(p *kernel.Proc) {
	if _, errc := p.Create("dup", test2fChild, -3); errc != kernel.IllegalPriority {
		p.TerminateProcess(-1)
		return
	}
	if _, errc := p.Create("dup", test2fChild, 50); errc != kernel.Success {
		p.TerminateProcess(-1)
		return
	}
	if _, errc := p.Create("dup", test2fChild, 50); errc != kernel.DuplicateName {
		p.TerminateProcess(-1)
		return
	}
	if errc := p.SuspendProcess(9999); errc != kernel.DoesNotExist {
		p.TerminateProcess(-1)
		return
	}
	if errc := p.SuspendProcess(-1); errc != kernel.SuspendSelf {
		p.TerminateProcess(-1)
		return
	}
	if errc := p.ChangePriority(-1, 999); errc != kernel.IllegalPriority {
		p.TerminateProcess(-1)
		return
	}
	p.TerminateProcess(-1)
}

func test2fChild(p *kernel.Proc) {
	p.Sleep(1000)
}

// test2gPageFaultHalt exercises an out-of-range page access, which halts
// the simulation cleanly and never returns, so anything after it is
// unreachable by construction.
func test2gPageFaultHalt(p *kernel.Proc) {
	p.MemWrite(kernel.VirtualPages*kernel.PageWords, 0)
}

func childName(prefix string, i int) string {
	const letters = "abcdefghijklmno"
	if i < len(letters) {
		return prefix + string(letters[i])
	}
	return prefix + string(rune('a'+i))
}
