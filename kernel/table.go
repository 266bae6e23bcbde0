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
	"fmt"
	"io"
)

// ProcessTable is the fixed-slot directory that exclusively owns every
// live PCB. Slot index doubles as PID. Like the queues, it is not
// internally synchronized; the Kernel serializes access with COMMON.
type ProcessTable struct {
	slots [NMax]*PCB
}

// Insert validates name length and uniqueness, allocates the lowest free
// slot, and installs pcb there with that slot's index as its PID. It
// returns the allocated PID or an error code.
func (t *ProcessTable) Insert(pcb *PCB) (int, ErrCode) {
	if len(pcb.Name) > MaxNameLen {
		return -1, NameTooLong
	}
	for _, e := range t.slots {
		if e != nil && e.Name == pcb.Name {
			return -1, DuplicateName
		}
	}
	for i, e := range t.slots {
		if e == nil {
			pcb.PID = i
			t.slots[i] = pcb
			return i, Success
		}
	}
	return -1, TableFull
}

// Get returns the PCB at pid, or nil if the slot is empty or pid is out
// of range.
func (t *ProcessTable) Get(pid int) *PCB {
	if pid < 0 || pid >= NMax {
		return nil
	}
	return t.slots[pid]
}

// FindByName returns the live PCB with the given name, or nil.
func (t *ProcessTable) FindByName(name string) *PCB {
	for _, e := range t.slots {
		if e != nil && e.Name == name {
			return e
		}
	}
	return nil
}

// Remove frees pid's slot. The caller must already have removed pcb from
// every queue that might reference it: removing from the table is only
// legal once no queue references remain.
func (t *ProcessTable) Remove(pid int) {
	if pid >= 0 && pid < NMax {
		t.slots[pid] = nil
	}
}

// Population reports the number of live PCBs.
func (t *ProcessTable) Population() int {
	n := 0
	for _, e := range t.slots {
		if e != nil {
			n++
		}
	}
	return n
}

// Dump writes a diagnostic listing of every live PCB.
func (t *ProcessTable) Dump(w io.Writer) {
	fmt.Fprintf(w, "PID  NAME                              PRI  WAKE   SUSP  DISK\n")
	for i, e := range t.slots {
		if e == nil {
			continue
		}
		disk := "-"
		if e.DiskReq != nil {
			disk = fmt.Sprintf("d%d/%v", e.DiskReq.DiskID, e.DiskReq.Phase)
		}
		fmt.Fprintf(w, "%-4d %-32s  %-3d  %-5d  %-4v  %s\n", i, e.Name, e.Priority, e.WakeTime, e.Suspended, disk)
	}
}
