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

package kernel

import "tkernel/hal"

// Opcode is a system-call number. MEM_READ/MEM_WRITE are handled
// directly by Proc and never pass through the dispatcher: they're
// serviced by the paging engine (memAccess), not the trap table.
type Opcode int

const (
	OpGetTimeOfDay Opcode = iota + 1
	OpSleep
	OpCreateProcess
	OpGetProcessID
	OpTerminateProcess
	OpSuspendProcess
	OpResumeProcess
	OpChangePriority
	OpDiskRead
	OpDiskWrite
)

// opcodeArgCounts is the Trap Dispatcher's argument table: each opcode's
// expected in-argument count. The dispatcher's sole job is validating
// against this table before invoking the subsystem entry point; it makes
// no scheduling decisions of its own.
var opcodeArgCounts = map[Opcode]int{
	OpGetTimeOfDay:     0,
	OpSleep:            1,
	OpCreateProcess:    3,
	OpGetProcessID:     1,
	OpTerminateProcess: 1,
	OpSuspendProcess:   1,
	OpResumeProcess:    1,
	OpChangePriority:   2,
	OpDiskRead:         3,
	OpDiskWrite:        3,
}

// validateOpcode is the Trap Dispatcher's entry point: given an opcode and
// the argument count the caller is about to supply, it reports BadParam on
// an unknown opcode or an arg-count mismatch, and Success otherwise.
func validateOpcode(op Opcode, argc int) ErrCode {
	want, ok := opcodeArgCounts[op]
	if !ok || want != argc {
		return BadParam
	}
	return Success
}

// ProcEntry is a test-driver process body: a Go function that runs on its
// own goroutine and issues system calls through the Proc handle it is
// given, in place of a literal instruction stream.
type ProcEntry func(p *Proc)

// Proc is the system-call surface the kernel hands to a running process's
// ProcEntry. Every method here corresponds to one opcode; method calls
// stand in for the trap instruction plus argument marshaling a real
// user-mode program would perform.
type Proc struct {
	k    *Kernel
	self *PCB
}

// PID returns the caller's own process id.
func (p *Proc) PID() int { return p.self.PID }

// GetTimeOfDay implements opcode 1.
func (p *Proc) GetTimeOfDay() uint32 {
	validateOpcode(OpGetTimeOfDay, 0)
	return p.k.sim.Now()
}

// Sleep implements opcode 2.
func (p *Proc) Sleep(ms int) {
	if validateOpcode(OpSleep, 1) != Success {
		return
	}
	p.k.Sleep(p.self, ms)
}

// Create implements opcode 3.
func (p *Proc) Create(name string, entry ProcEntry, priority int) (int, ErrCode) {
	if validateOpcode(OpCreateProcess, 3) != Success {
		return -1, BadParam
	}
	return p.k.Create(name, entry, priority)
}

// GetProcessID implements opcode 4.
func (p *Proc) GetProcessID(name string) (int, ErrCode) {
	if validateOpcode(OpGetProcessID, 1) != Success {
		return -1, BadParam
	}
	return p.k.GetPID(p.self, name)
}

// TerminateProcess implements opcode 5. A successful self- or
// simulation-terminating call never returns.
func (p *Proc) TerminateProcess(pid int) ErrCode {
	if validateOpcode(OpTerminateProcess, 1) != Success {
		return BadParam
	}
	return p.k.Terminate(p.self, pid)
}

// SuspendProcess implements opcode 6.
func (p *Proc) SuspendProcess(pid int) ErrCode {
	if validateOpcode(OpSuspendProcess, 1) != Success {
		return BadParam
	}
	return p.k.Suspend(p.self, pid)
}

// ResumeProcess implements opcode 7.
func (p *Proc) ResumeProcess(pid int) ErrCode {
	if validateOpcode(OpResumeProcess, 1) != Success {
		return BadParam
	}
	return p.k.Resume(p.self, pid)
}

// ChangePriority implements opcode 8.
func (p *Proc) ChangePriority(pid, priority int) ErrCode {
	if validateOpcode(OpChangePriority, 2) != Success {
		return BadParam
	}
	return p.k.ChangePriority(p.self, pid, priority)
}

// DiskRead implements opcode 9.
func (p *Proc) DiskRead(diskID int, sector uint32, buf *hal.Sector) ErrCode {
	if validateOpcode(OpDiskRead, 3) != Success {
		return BadParam
	}
	return p.k.requestDisk(p.self, diskID, sector, buf, hal.OpRead)
}

// DiskWrite implements opcode 10.
func (p *Proc) DiskWrite(diskID int, sector uint32, buf *hal.Sector) ErrCode {
	if validateOpcode(OpDiskWrite, 3) != Success {
		return BadParam
	}
	return p.k.requestDisk(p.self, diskID, sector, buf, hal.OpWrite)
}

// MemRead and MemWrite implement opcode 11: they bypass the trap
// dispatcher and opcode table entirely and go straight to the paging
// engine's memAccess.
func (p *Proc) MemRead(addr int) (uint16, ErrCode) {
	word, errc := p.k.memAccess(p.self, addr, false)
	if errc != Success {
		return 0, errc
	}
	return *word, Success
}

func (p *Proc) MemWrite(addr int, value uint16) ErrCode {
	word, errc := p.k.memAccess(p.self, addr, true)
	if errc != Success {
		return errc
	}
	*word = value
	return Success
}
