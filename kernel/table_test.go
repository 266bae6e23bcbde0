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
	"strings"
	"testing"
)

func TestProcessTableInsertAssignsLowestFreeSlot(t *testing.T) {
	var tbl ProcessTable
	pid, errc := tbl.Insert(&PCB{Name: "a"})
	if errc != Success || pid != 0 {
		t.Fatalf("Insert(a) = (%d, %v), want (0, Success)", pid, errc)
	}
	pid, errc = tbl.Insert(&PCB{Name: "b"})
	if errc != Success || pid != 1 {
		t.Fatalf("Insert(b) = (%d, %v), want (1, Success)", pid, errc)
	}
	tbl.Remove(0)
	pid, errc = tbl.Insert(&PCB{Name: "c"})
	if errc != Success || pid != 0 {
		t.Fatalf("Insert(c) after freeing slot 0 = (%d, %v), want (0, Success)", pid, errc)
	}
}

func TestProcessTableDuplicateName(t *testing.T) {
	var tbl ProcessTable
	if _, errc := tbl.Insert(&PCB{Name: "dup"}); errc != Success {
		t.Fatalf("first Insert = %v, want Success", errc)
	}
	if _, errc := tbl.Insert(&PCB{Name: "dup"}); errc != DuplicateName {
		t.Fatalf("second Insert = %v, want DuplicateName", errc)
	}
}

func TestProcessTableNameTooLong(t *testing.T) {
	var tbl ProcessTable
	name := strings.Repeat("x", MaxNameLen+1)
	if _, errc := tbl.Insert(&PCB{Name: name}); errc != NameTooLong {
		t.Fatalf("Insert(too-long name) = %v, want NameTooLong", errc)
	}
}

func TestProcessTableFull(t *testing.T) {
	var tbl ProcessTable
	for i := 0; i < NMax; i++ {
		if _, errc := tbl.Insert(&PCB{Name: string(rune('a' + i))}); errc != Success {
			t.Fatalf("Insert #%d = %v, want Success", i, errc)
		}
	}
	if _, errc := tbl.Insert(&PCB{Name: "one-too-many"}); errc != TableFull {
		t.Fatalf("Insert after filling table = %v, want TableFull", errc)
	}
	if tbl.Population() != NMax {
		t.Fatalf("Population() = %d, want %d", tbl.Population(), NMax)
	}
}

func TestProcessTableFindByName(t *testing.T) {
	var tbl ProcessTable
	tbl.Insert(&PCB{Name: "findme"})
	if got := tbl.FindByName("findme"); got == nil || got.Name != "findme" {
		t.Fatalf("FindByName(findme) = %v, want a PCB named findme", got)
	}
	if got := tbl.FindByName("absent"); got != nil {
		t.Fatalf("FindByName(absent) = %v, want nil", got)
	}
}
