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

func TestInterlockNonBlockingTryLock(t *testing.T) {
	l := NewInterlocks()

	if ok := l.Lock(CommonLock, true); !ok {
		t.Fatalf("blocking Lock() = false, want true")
	}
	if ok := l.Lock(CommonLock, false); ok {
		t.Fatalf("non-blocking Lock() while held = true, want false")
	}
	l.Unlock(CommonLock)
	if ok := l.Lock(CommonLock, false); !ok {
		t.Fatalf("non-blocking Lock() after Unlock = false, want true")
	}
	l.Unlock(CommonLock)
}

func TestInterlockNamesAreIndependent(t *testing.T) {
	l := NewInterlocks()
	l.Lock(ReadyQueueLock, true)
	if ok := l.Lock(SuspendQueueLock, false); !ok {
		t.Fatalf("unrelated lock blocked by ReadyQueueLock")
	}
	l.Unlock(SuspendQueueLock)
	l.Unlock(ReadyQueueLock)
}

func TestLockNameString(t *testing.T) {
	cases := map[LockName]string{
		CommonLock:       "COMMON",
		TimerQueueLock:   "TIMER_QUEUE",
		ReadyQueueLock:   "READY_QUEUE",
		SuspendQueueLock: "SUSPEND_QUEUE",
		PrintLock:        "PRINT",
	}
	for name, want := range cases {
		if got := name.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", name, got, want)
		}
	}
}
