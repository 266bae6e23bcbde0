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
	"testing"
	"time"
)

func TestDiskWriteReadRoundTrip(t *testing.T) {
	done := make(chan int, 2)
	d := NewDisk(1, 2*time.Millisecond, func(id int) { done <- id })

	var want Sector
	for i := range want {
		want[i] = uint16(i * 7)
	}

	if err := d.DiskOp(42, &want, OpWrite); err != nil {
		t.Fatalf("DiskOp(write) = %v, want nil", err)
	}
	<-done

	var got Sector
	if err := d.DiskOp(42, &got, OpRead); err != nil {
		t.Fatalf("DiskOp(read) = %v, want nil", err)
	}
	<-done

	if got != want {
		t.Fatalf("round trip = %v, want %v", got, want)
	}
}

func TestDiskBusyFailsFast(t *testing.T) {
	d := NewDisk(1, 50*time.Millisecond, func(int) {})
	var buf Sector

	if err := d.DiskOp(0, &buf, OpWrite); err != nil {
		t.Fatalf("first DiskOp = %v, want nil", err)
	}
	if err := d.DiskOp(1, &buf, OpWrite); err == nil {
		t.Fatalf("second DiskOp while InUse = nil, want error")
	}
	if got := d.DiskStatus(); got != InUse {
		t.Fatalf("DiskStatus() = %v, want InUse", got)
	}
}

func TestDiskSectorOutOfRangeLeavesDiskFree(t *testing.T) {
	d := NewDisk(1, time.Millisecond, func(int) {})
	var buf Sector

	if err := d.DiskOp(SectorsPerDisk, &buf, OpWrite); err == nil {
		t.Fatalf("DiskOp with out-of-range sector = nil, want error")
	}
	if got := d.DiskStatus(); got != Free {
		t.Fatalf("DiskStatus() after rejected op = %v, want Free", got)
	}
}
