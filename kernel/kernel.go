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

// Kernel is the single struct that owns every piece of global mutable
// state: the process table, all three queues, the frame pool and shadow
// directory, the currently-running PCB, and the simulator and tracer it
// runs on.
type Kernel struct {
	sim    *hal.Sim
	tracer *trace.Tracer

	table   ProcessTable
	ready   ReadyQueue
	timer   TimerQueue
	suspend SuspendQueue

	frames     *FramePool
	shadow     [PhysFrames]ShadowEntry
	physMem    [PhysFrames]hal.Sector
	lastVictim int

	current *PCB
	boot    *hal.Context
}

// New builds a Kernel around tracer, together with the simulator it runs
// on. The kernel registers its own
// timer and disk completion handlers with sim at construction, matching
// the boot-time wiring the original performs in its startup routine.
func New(tracer *trace.Tracer) *Kernel {
	k := &Kernel{
		tracer: tracer,
		frames: NewFramePool(PhysFrames),
	}
	k.sim = hal.NewSim(k.onTimerInterrupt, k.onDiskInterrupt)
	for i := range k.shadow {
		k.shadow[i] = ShadowEntry{}
	}
	k.lastVictim = -1
	return k
}

// Sim exposes the underlying simulator, chiefly so cmd/tkernel can watch
// Sim.Halted().
func (k *Kernel) Sim() *hal.Sim { return k.sim }

// lock/unlock wrap the named interlocks so call sites read as the lock
// name rather than a LockName constant plus a blocking bool.
func (k *Kernel) lockCommon()        { k.sim.Locks.Lock(hal.CommonLock, true) }
func (k *Kernel) unlockCommon()      { k.sim.Locks.Unlock(hal.CommonLock) }
func (k *Kernel) lockTimerQueue()    { k.sim.Locks.Lock(hal.TimerQueueLock, true) }
func (k *Kernel) unlockTimerQueue()  { k.sim.Locks.Unlock(hal.TimerQueueLock) }
func (k *Kernel) lockReadyQueue()    { k.sim.Locks.Lock(hal.ReadyQueueLock, true) }
func (k *Kernel) unlockReadyQueue()  { k.sim.Locks.Unlock(hal.ReadyQueueLock) }
func (k *Kernel) lockSuspendQueue()  { k.sim.Locks.Lock(hal.SuspendQueueLock, true) }
func (k *Kernel) unlockSuspendQueue() { k.sim.Locks.Unlock(hal.SuspendQueueLock) }

// fatalf reports an internal invariant violation and halts the
// simulation: the message is logged with the originating function's name
// before the simulator halts. It never returns.
func (k *Kernel) fatalf(origin, format string, args ...any) {
	k.tracer.Fatal(origin, format, args...)
	k.sim.Halt(true, origin)
}

// armTimer arms the timer for deltaMs and mirrors its InUse status into
// the control-register plane.
func (k *Kernel) armTimer(deltaMs uint32) {
	k.sim.Timer.ArmTimer(deltaMs)
	k.sim.Registers.MemWrite(hal.TimerStatusRegister, uint16(hal.InUse))
}

// disarmTimer cancels any pending arm and mirrors Free into the
// control-register plane.
func (k *Kernel) disarmTimer() {
	k.sim.Timer.Disarm()
	k.sim.Registers.MemWrite(hal.TimerStatusRegister, uint16(hal.Free))
}

// Boot creates the named first process and transfers control to it. It
// is called exactly once, and its calling goroutine becomes the boot
// context's body; on success it never returns.
func (k *Kernel) Boot(name string, entry ProcEntry, priority int) {
	k.lockCommon()
	pid, errc := k.createLocked(name, entry, priority)
	k.unlockCommon()
	if errc != Success {
		k.fatalf("Boot", "failed to create initial process %q: %v", name, errc)
		return
	}

	k.boot = hal.NewBootContext()
	k.lockReadyQueue()
	first := k.ready.PopFront()
	k.unlockReadyQueue()
	if first == nil || first.PID != pid {
		k.fatalf("Boot", "initial process not at head of ready queue")
		return
	}
	k.current = first
	k.tracer.Event(trace.Scheduler, trace.Dispatch, first.PID, -1)
	hal.Switch(k.boot, hal.Save, first.Context)
	// Nothing ever switches back to k.boot, so control never returns here:
	// this goroutine stays parked on k.boot's own park channel for the rest
	// of the run, including after the simulation halts.
}

// dispatch pops the Ready Queue and switches to it; together with
// killSelf (its Kill-mode counterpart) this is the only place the Running
// slot changes, apart from the one-time bootstrapping switch. If Ready is empty it busy-idles, polling rather than blocking,
// since the HAL has no dedicated idle-wait primitive.
func (k *Kernel) dispatch(self *PCB) {
	for {
		k.lockCommon()
		k.lockReadyQueue()
		next := k.ready.PopFront()
		k.unlockReadyQueue()
		if next != nil {
			prev := k.current
			k.current = next
			k.tracer.Event(trace.Scheduler, trace.Dispatch, next.PID, prevPID(prev))
			k.unlockCommon()
			if next == self {
				// The caller is itself the head of Ready (e.g. its disk
				// transfer completed while it idled here): keep running.
				return
			}
			hal.Switch(self.Context, hal.Save, next.Context)
			return
		}
		// Idle: nothing runnable. A real HAL idle instruction would halt
		// the CPU until the next interrupt; this simulator has no such
		// primitive, so poll at a coarse interval instead.
		k.unlockCommon()
		time.Sleep(time.Millisecond)
	}
}

func prevPID(p *PCB) int {
	if p == nil {
		return -1
	}
	return p.PID
}
