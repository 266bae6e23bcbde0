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
	"tkernel/hal"
	"tkernel/trace"
)

// requestDisk is the shared request path for the DISK_READ and DISK_WRITE
// trap handlers (reads and writes are symmetric to the disk subsystem;
// only the hal.DiskOp direction differs) and for the paging engine's swap
// traffic. It returns BadParam at once for a disk id outside
// 1..hal.NumDisks; otherwise it blocks the calling process until the
// transfer completes and returns Success, with the buffer valid on return.
func (k *Kernel) requestDisk(self *PCB, diskID int, sector uint32, buf *hal.Sector, op hal.DiskOp) ErrCode {
	disk := k.sim.Disk(diskID)
	if disk == nil {
		return BadParam
	}

	k.lockCommon()
	if disk.DiskStatus() == hal.Free {
		if err := disk.DiskOp(sector, buf, op); err != nil {
			k.unlockCommon()
			k.fatalf("requestDisk", "disk %d reported Free but DiskOp failed: %v", diskID, err)
			return InternalBug
		}
		k.sim.Registers.MemWrite(hal.DiskStatusRegister(diskID), uint16(hal.InUse))
		self.DiskReq = &DiskRequest{DiskID: diskID, Sector: sector, Buffer: buf, Op: op, Phase: PhaseIssued}
	} else {
		self.DiskReq = &DiskRequest{DiskID: diskID, Sector: sector, Buffer: buf, Op: op, Phase: PhasePending}
	}
	self.Suspended = true

	k.lockSuspendQueue()
	k.suspend.PushBack(self)
	k.unlockSuspendQueue()

	k.tracer.Event(trace.Other, diskEventFor(op), self.PID, self.PID)
	k.unlockCommon()

	k.dispatch(self)
	return Success
}

func diskEventFor(op hal.DiskOp) trace.Action {
	if op == hal.OpWrite {
		return trace.Write
	}
	return trace.Read
}

// onDiskInterrupt is the completion path: pop the first Suspend Queue
// waiter for disk, either issue its deferred request (and reverse-insert
// it, LIFO, to await the next completion) or wake it if its request had
// already completed.
func (k *Kernel) onDiskInterrupt(diskID int) {
	k.lockCommon()
	defer k.unlockCommon()

	k.sim.Registers.MemWrite(hal.DiskStatusRegister(diskID), uint16(hal.Free))

	k.lockSuspendQueue()
	waiter := k.suspend.PopFirstMatchingDisk(diskID)
	k.unlockSuspendQueue()

	if waiter == nil {
		k.fatalf("onDiskInterrupt", "disk %d completed with no waiter queued", diskID)
		return
	}

	if waiter.DiskReq.Phase == PhasePending {
		disk := k.sim.Disk(diskID)
		if disk.DiskStatus() == hal.Free {
			if err := disk.DiskOp(waiter.DiskReq.Sector, waiter.DiskReq.Buffer, waiter.DiskReq.Op); err != nil {
				k.fatalf("onDiskInterrupt", "disk %d reported Free but DiskOp failed: %v", diskID, err)
				return
			}
			k.sim.Registers.MemWrite(hal.DiskStatusRegister(diskID), uint16(hal.InUse))
			waiter.DiskReq.Phase = PhaseIssued
		}
		k.lockSuspendQueue()
		k.suspend.PushFront(waiter)
		k.unlockSuspendQueue()
		return
	}

	waiter.DiskReq = nil
	waiter.Suspended = false
	k.lockReadyQueue()
	k.ready.Insert(waiter)
	k.unlockReadyQueue()
	k.tracer.Event(trace.Scheduler, trace.Ready, waiter.PID, prevPID(k.current))
}
