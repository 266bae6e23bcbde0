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

import "testing"

func TestSimDiskIndexingIsOneBased(t *testing.T) {
	s := NewSim(func() {}, func(int) {})
	if s.Disk(0) != nil {
		t.Fatalf("Disk(0) = non-nil, want nil")
	}
	if s.Disk(NumDisks+1) != nil {
		t.Fatalf("Disk(NumDisks+1) = non-nil, want nil")
	}
	for id := 1; id <= NumDisks; id++ {
		if s.Disk(id) == nil {
			t.Fatalf("Disk(%d) = nil, want non-nil", id)
		}
	}
}

func TestSimHaltClosesOnce(t *testing.T) {
	s := NewSim(func() {}, func(int) {})

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Halt(false, "")
	}()
	<-done

	select {
	case <-s.Halted():
	default:
		t.Fatalf("Halted() channel not closed after Halt")
	}

	// A second Halt call must not panic on a double close.
	go s.Halt(true, "second call")
}
