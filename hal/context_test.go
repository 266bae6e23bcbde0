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

func TestSwitchSaveRoundTrip(t *testing.T) {
	events := make(chan string, 3)

	var ctxA, ctxB *Context
	ctxB = MakeContext(func() {
		events <- "B-ran"
		Switch(ctxB, Save, ctxA)
	}, ModeUser)
	ctxA = MakeContext(func() {
		events <- "A-start"
		Switch(ctxA, Save, ctxB)
		events <- "A-resumed"
	}, ModeUser)

	boot := NewBootContext()
	go Switch(boot, Save, ctxA)

	want := []string{"A-start", "B-ran", "A-resumed"}
	for _, w := range want {
		select {
		case got := <-events:
			if got != w {
				t.Fatalf("event order: got %q, want %q", got, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %q", w)
		}
	}
}

func TestSwitchKillTerminatesCaller(t *testing.T) {
	target := MakeContext(func() {}, ModeUser)

	var caller *Context
	caller = MakeContext(func() {
		Switch(caller, Kill, target)
		t.Errorf("code after Switch(Kill, ...) executed")
	}, ModeUser)

	boot := NewBootContext()
	go Switch(boot, Save, caller)

	select {
	case <-caller.Done():
	case <-time.After(time.Second):
		t.Fatalf("caller context never completed")
	}
	select {
	case <-target.Done():
	case <-time.After(time.Second):
		t.Fatalf("target context never ran")
	}
}

func TestKillBeforeFirstDispatchNeverRunsEntry(t *testing.T) {
	ran := make(chan struct{})
	c := MakeContext(func() { close(ran) }, ModeUser)

	c.Kill()

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatalf("killed context never closed Done")
	}
	select {
	case <-ran:
		t.Fatalf("entry ran after Kill")
	default:
	}

	// Idempotent.
	c.Kill()
}

func TestKillParkedAfterSwitchSaveAbandonsResume(t *testing.T) {
	resumed := make(chan struct{})

	var self *Context
	self = MakeContext(func() {
		other := MakeContext(func() {}, ModeUser)
		Switch(self, Save, other)
		close(resumed)
	}, ModeUser)

	boot := NewBootContext()
	go Switch(boot, Save, self)

	// Give the goroutine time to reach its parked Switch(Save, ...) call
	// before killing it out from under that park.
	time.Sleep(10 * time.Millisecond)
	self.Kill()

	select {
	case <-self.Done():
	case <-time.After(time.Second):
		t.Fatalf("killed context never closed Done")
	}
	select {
	case <-resumed:
		t.Fatalf("entry resumed past Switch(Save, ...) after Kill")
	default:
	}
}

func TestContextMode(t *testing.T) {
	u := MakeContext(func() {}, ModeUser)
	k := MakeContext(func() {}, ModeKernel)
	if u.Mode() != ModeUser {
		t.Fatalf("u.Mode() = %v, want ModeUser", u.Mode())
	}
	if k.Mode() != ModeKernel {
		t.Fatalf("k.Mode() = %v, want ModeKernel", k.Mode())
	}
}
