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

// swapDisk returns the disk dedicated to pid's paging traffic: process P's
// swap lives on disk P+1.
func swapDisk(pid int) int { return pid + 1 }

// memAccess resolves a virtual address for self, faulting in the owning
// page if necessary, and returns the physical word it names. isWrite
// marks the MODIFIED bit on the resolved page.
func (k *Kernel) memAccess(self *PCB, addr int, isWrite bool) (*uint16, ErrCode) {
	if addr < 0 || addr >= VirtualPages*PageWords {
		k.fatalf("memAccess", "address %d out of range for pid %d", addr, self.PID)
		return nil, InternalBug
	}
	vpage := addr / PageWords
	offset := addr % PageWords

	k.lockCommon()
	if self.pageTable == nil {
		self.pageTable = &PageTable{}
	}
	entry := self.pageTable.entries[vpage]
	if !entry.Valid() {
		k.unlockCommon()
		if errc := k.fault(self, vpage); errc != Success {
			return nil, errc
		}
		k.lockCommon()
		entry = self.pageTable.entries[vpage]
	}
	frame := entry.Frame()
	if isWrite {
		self.pageTable.entries[vpage] = makePTE(frame, entry.Reserved(), true, true, true)
	} else {
		self.pageTable.entries[vpage] = makePTE(frame, entry.Reserved(), true, entry.Modified(), true)
	}
	k.unlockCommon()

	// Straddling into the next page's first word is resolved eagerly,
	// before this access returns.
	if offset == PageWords-1 && vpage+1 < VirtualPages {
		if e := self.pageTable.entries[vpage+1]; !e.Valid() {
			if errc := k.fault(self, vpage+1); errc != Success {
				return nil, errc
			}
		}
	}

	return &k.physMem[frame][offset], Success
}

// fault resolves virtual page vpage of process self. It allocates the
// process's page table on first use, obtains a frame (from the pool or
// by eviction), swaps the page's content in if it was previously paged
// out, and installs the new mapping.
func (k *Kernel) fault(self *PCB, vpage int) ErrCode {
	if vpage < 0 || vpage >= VirtualPages {
		k.fatalf("fault", "page %d out of range for pid %d", vpage, self.PID)
		return InternalBug
	}

	k.lockCommon()
	if self.pageTable == nil {
		self.pageTable = &PageTable{}
	}
	entry := self.pageTable.entries[vpage]
	if entry.Valid() {
		k.unlockCommon()
		k.fatalf("fault", "page %d already valid for pid %d", vpage, self.PID)
		return InternalBug
	}
	swapIn := entry.Reserved()

	frame, ok := k.frames.Pop()
	if !ok {
		frame = k.evict(self)
	}
	k.shadow[frame] = ShadowEntry{Owner: self, Page: vpage, InUse: true}
	k.unlockCommon()

	if swapIn {
		if errc := k.requestDisk(self, swapDisk(self.PID), uint32(vpage), &k.physMem[frame], hal.OpRead); errc != Success {
			return errc
		}
	} else {
		k.physMem[frame] = hal.Sector{}
	}

	k.lockCommon()
	self.pageTable.entries[vpage] = makePTE(frame, swapIn, true, false, true)
	k.unlockCommon()

	k.tracer.MemoryFault(self.PID, vpage, frame, swapIn)
	return Success
}

// evict runs the second-chance replacement policy and returns the frame
// it selects, having already written the victim's content back to its
// owner's swap disk. Caller must hold COMMON. The scan index advances by
// exactly one frame per slot inspected, including slots that only clear
// a referenced bit, so it can never skip a frame on wraparound.
func (k *Kernel) evict(self *PCB) int {
	i := (k.lastVictim + 1) % PhysFrames
	for {
		se := &k.shadow[i]
		pte := se.Owner.pageTable.entries[se.Page]
		if pte.Referenced() {
			se.Owner.pageTable.entries[se.Page] = makePTE(pte.Frame(), pte.Reserved(), false, pte.Modified(), pte.Valid())
			i = (i + 1) % PhysFrames
			continue
		}
		break
	}

	victim := &k.shadow[i]
	victimPID, victimPage := victim.Owner.PID, victim.Page

	k.unlockCommon()
	if errc := k.requestDisk(self, swapDisk(victimPID), uint32(victimPage), &k.physMem[i], hal.OpWrite); errc != Success {
		k.fatalf("evict", "swap-out failed for pid %d page %d: %v", victimPID, victimPage, errc)
	}
	k.lockCommon()

	victim.Owner.pageTable.entries[victim.Page] = makePTE(0, true, false, false, false)
	victim.InUse = false

	k.tracer.MemoryEvict(i, victimPID, victimPage)
	k.lastVictim = i
	return i
}

// freePaging releases every frame and the page table belonging to a
// process being terminated.
func (k *Kernel) freePaging(p *PCB) {
	for i := range k.shadow {
		if k.shadow[i].InUse && k.shadow[i].Owner == p {
			k.shadow[i] = ShadowEntry{}
			k.frames.Push(i)
		}
	}
	p.pageTable = nil
}
