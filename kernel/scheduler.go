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

import (
	"time"

	"tkernel/hal"
	"tkernel/trace"
)

// createLocked validates and installs a new process. The caller must
// already hold COMMON. It is split out from Create so Boot can install the
// initial process using the same path without re-entering the lock.
func (k *Kernel) createLocked(name string, entry ProcEntry, priority int) (int, ErrCode) {
	if len(name) > MaxNameLen {
		return -1, NameTooLong
	}
	if priority < MinPriority || priority > MaxPriority {
		return -1, IllegalPriority
	}

	pcb := &PCB{Name: name, Priority: priority}
	pid, errc := k.table.Insert(pcb)
	if errc != Success {
		return -1, errc
	}

	pcb.Context = hal.MakeContext(func() { k.runProcess(pcb, entry) }, hal.ModeUser)

	k.lockReadyQueue()
	k.ready.Insert(pcb)
	k.unlockReadyQueue()

	k.tracer.Event(trace.Scheduler, trace.Create, pcb.PID, prevPID(k.current), trace.QueueSnapshot{Name: "ready", Members: k.ready.Snapshot()})
	return pid, Success
}

// runProcess is the goroutine body installed for every user process: it
// builds this process's Proc handle, runs its entry function to
// completion, and then terminates it as if it had issued
// TERMINATE_PROCESS(-1) itself, matching a process that falls off the end
// of its own code.
func (k *Kernel) runProcess(pcb *PCB, entry ProcEntry) {
	p := &Proc{k: k, self: pcb}
	entry(p)
	k.terminate(pcb, pcb.PID)
}

// Create validates and installs a new process, then returns to the
// caller without yielding (matching the original: creation does not by
// itself dispatch away from the creator).
func (k *Kernel) Create(name string, entry ProcEntry, priority int) (int, ErrCode) {
	k.lockCommon()
	defer k.unlockCommon()
	return k.createLocked(name, entry, priority)
}

// GetPID resolves a name to a PID. "" or the caller's own name resolves
// to the caller's PID without a table scan.
func (k *Kernel) GetPID(self *PCB, name string) (int, ErrCode) {
	k.lockCommon()
	defer k.unlockCommon()
	if name == "" || name == self.Name {
		return self.PID, Success
	}
	found := k.table.FindByName(name)
	if found == nil {
		return -1, DoesNotExist
	}
	return found.PID, Success
}

// Sleep suspends the caller until ms milliseconds of simulated time have
// passed. A non-positive ms either no-ops (negative) or immediately
// re-enters Ready at the same priority (zero), yielding the remainder of
// the current time slice.
func (k *Kernel) Sleep(self *PCB, ms int) {
	if ms < 0 {
		return
	}
	k.lockCommon()
	if ms == 0 {
		k.lockReadyQueue()
		k.ready.Insert(self)
		k.unlockReadyQueue()
		k.tracer.Event(trace.Scheduler, trace.Ready, self.PID, self.PID)
		k.unlockCommon()
		k.dispatch(self)
		return
	}

	self.WakeTime = k.sim.Now() + uint32(ms)
	k.lockReadyQueue()
	k.ready.Remove(self)
	k.unlockReadyQueue()

	k.lockTimerQueue()
	prevHead := k.timer.Head()
	k.timer.Insert(self)
	if prevHead == nil || self.WakeTime < prevHead.WakeTime {
		k.armTimer(ms2delta(self.WakeTime, k.sim.Now()))
	}
	k.unlockTimerQueue()

	k.tracer.Event(trace.Scheduler, trace.Wait, self.PID, self.PID)
	k.unlockCommon()
	k.dispatch(self)
}

func ms2delta(wake, now uint32) uint32 {
	if wake <= now {
		return 0
	}
	return wake - now
}

// ChangePriority reassigns pid's priority, re-sorting the Ready Queue if
// pid is currently in it. pid == -1 means self.
func (k *Kernel) ChangePriority(self *PCB, pid, newPriority int) ErrCode {
	if newPriority < MinPriority || newPriority > MaxPriority {
		return IllegalPriority
	}
	k.lockCommon()
	defer k.unlockCommon()

	target := k.resolveTarget(self, pid)
	if target == nil {
		return DoesNotExist
	}
	target.Priority = newPriority

	k.lockReadyQueue()
	k.ready.Resort()
	k.unlockReadyQueue()
	return Success
}

// resolveTarget maps a pid argument (-1 meaning self) to a live PCB, or
// nil if pid names nothing live. Caller must hold COMMON.
func (k *Kernel) resolveTarget(self *PCB, pid int) *PCB {
	if pid == -1 {
		return self
	}
	return k.table.Get(pid)
}

// Suspend marks pid administratively suspended and moves it off the Ready
// Queue onto the Suspend Queue if it was there.
func (k *Kernel) Suspend(self *PCB, pid int) ErrCode {
	k.lockCommon()
	defer k.unlockCommon()

	if pid == -1 || (k.table.Get(pid) != nil && k.table.Get(pid) == self) {
		return SuspendSelf
	}
	target := k.table.Get(pid)
	if target == nil {
		return DoesNotExist
	}
	if target.Suspended {
		return AlreadySuspended
	}
	target.Suspended = true

	k.lockReadyQueue()
	wasReady := k.ready.Remove(target)
	k.unlockReadyQueue()
	if wasReady {
		k.lockSuspendQueue()
		k.suspend.PushBack(target)
		k.unlockSuspendQueue()
		k.tracer.Event(trace.Scheduler, trace.Suspend, target.PID, self.PID)
	}
	// If target is in the Timer Queue instead, it stays there: Suspended
	// is now true, so onTimerInterrupt will route it to Suspend instead
	// of Ready when it wakes.
	return Success
}

// Resume clears pid's administrative-suspend flag and moves it back onto
// the Ready Queue if it was on the Suspend Queue; the mirror of Suspend.
func (k *Kernel) Resume(self *PCB, pid int) ErrCode {
	k.lockCommon()
	defer k.unlockCommon()

	if pid == -1 || (k.table.Get(pid) != nil && k.table.Get(pid) == self) {
		return ResumeSelf
	}
	target := k.table.Get(pid)
	if target == nil {
		return DoesNotExist
	}
	if !target.Suspended {
		return ResumeUnsuspended
	}
	target.Suspended = false

	k.lockSuspendQueue()
	wasSuspendQueue := k.suspend.Remove(target)
	k.unlockSuspendQueue()
	if wasSuspendQueue {
		k.lockReadyQueue()
		k.ready.Insert(target)
		k.unlockReadyQueue()
		k.tracer.Event(trace.Scheduler, trace.Resume, target.PID, self.PID)
	}
	// Otherwise target was flagged while still in the Timer Queue; clearing
	// Suspended above is enough, since onTimerInterrupt checks the flag
	// fresh when the process wakes.
	return Success
}

// Terminate removes a process from the system: -1 or self terminates the
// caller (halting if it is the root process, PID 0); -2 halts the whole
// simulation; anything else removes the named process. Terminate never
// returns to a caller that terminated itself or halted the simulator.
func (k *Kernel) Terminate(self *PCB, pid int) ErrCode {
	if pid == -2 {
		k.sim.Halt(false, "")
		return Success // unreachable: Halt does not return
	}
	if pid == -1 || pid == self.PID {
		if self.PID == 0 {
			k.sim.Halt(false, "")
			return Success // unreachable
		}
		k.terminate(self, self.PID)
		return Success // unreachable: terminate(self) kills the caller's goroutine
	}

	k.lockCommon()
	target := k.table.Get(pid)
	if target == nil {
		k.unlockCommon()
		return DoesNotExist
	}
	k.unlockCommon()
	k.terminate(self, pid)
	return Success
}

// terminate removes target from whichever queue holds it, re-arming or
// disarming the timer if target was its head, frees target's paging
// state, and drops it from the process table. If target is the caller
// itself, the caller's own goroutine is killed via hal.Switch(..., Kill,
// ...) and this call does not return. If target is a different process,
// its parked context is torn down directly via Context.Kill so it never
// resumes.
func (k *Kernel) terminate(self *PCB, pid int) {
	k.lockCommon()
	target := k.table.Get(pid)
	if target == nil {
		k.unlockCommon()
		k.fatalf("terminate", "pid %d not in process table", pid)
		return
	}

	k.lockReadyQueue()
	k.ready.Remove(target)
	k.unlockReadyQueue()

	k.lockTimerQueue()
	wasHead := k.timer.Head() == target
	k.timer.Remove(target)
	if wasHead {
		if next := k.timer.Head(); next != nil {
			k.armTimer(ms2delta(next.WakeTime, k.sim.Now()))
		} else {
			k.disarmTimer()
		}
	}
	k.unlockTimerQueue()

	k.lockSuspendQueue()
	k.suspend.Remove(target)
	k.unlockSuspendQueue()

	k.freePaging(target)
	k.table.Remove(pid)

	k.tracer.Event(trace.Scheduler, trace.Done, target.PID, prevPID(self))

	isSelf := target == self
	k.unlockCommon()

	if isSelf {
		k.killSelf(self)
		return
	}
	target.Context.Kill()
}

// killSelf dispatches the next ready process in place of self, using Kill
// so self's goroutine is torn down instead of parked. If Ready is
// momentarily empty — other processes may still be sleeping or suspended
// and will repopulate it on a future interrupt — it busy-idles exactly
// like dispatch rather than halting; halting on self-termination is only
// correct for the root process, and Terminate already special-cases that
// before ever calling killSelf.
func (k *Kernel) killSelf(self *PCB) {
	for {
		k.lockCommon()
		k.lockReadyQueue()
		next := k.ready.PopFront()
		k.unlockReadyQueue()
		if next != nil {
			k.current = next
			k.tracer.Event(trace.Scheduler, trace.Dispatch, next.PID, self.PID)
			k.unlockCommon()
			hal.Switch(self.Context, hal.Kill, next.Context)
			return
		}
		k.unlockCommon()
		time.Sleep(time.Millisecond)
	}
}

// onTimerInterrupt drains every expired entry from the Timer Queue,
// routes each to Ready or Suspend depending on its Suspended flag, then
// re-arms for the new head.
func (k *Kernel) onTimerInterrupt() {
	k.lockCommon()
	defer k.unlockCommon()

	now := k.sim.Now()
	k.lockTimerQueue()
	expired := k.timer.DrainExpired(now)
	nextHead := k.timer.Head()
	k.unlockTimerQueue()

	for _, p := range expired {
		p.WakeTime = 0
		if p.Suspended {
			k.lockSuspendQueue()
			k.suspend.PushBack(p)
			k.unlockSuspendQueue()
			k.tracer.Event(trace.Scheduler, trace.Suspend, p.PID, prevPID(k.current))
			continue
		}
		k.lockReadyQueue()
		k.ready.Insert(p)
		k.unlockReadyQueue()
		k.tracer.Event(trace.Scheduler, trace.Ready, p.PID, prevPID(k.current))
	}

	k.tracer.Event(trace.Scheduler, trace.Interrupt, -1, prevPID(k.current))

	if nextHead != nil {
		k.armTimer(ms2delta(nextHead.WakeTime, k.sim.Now()))
	}
}
