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

package trace

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelNoneIsSilent(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTracer(&buf, None, None, None)
	tr.Event(Scheduler, Dispatch, 1, 0)
	if buf.Len() != 0 {
		t.Fatalf("None level produced output: %q", buf.String())
	}
}

func TestLevelFullPrintsEvery(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTracer(&buf, None, Full, None)
	for i := 0; i < 25; i++ {
		tr.Event(Scheduler, Ready, i, 0)
	}
	if got := strings.Count(buf.String(), "[Ready"); got != 25 {
		t.Fatalf("Full level printed %d events, want 25", got)
	}
}

func TestLevelLimitedCapsAtTen(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTracer(&buf, None, Limited, None)
	for i := 0; i < 25; i++ {
		tr.Event(Scheduler, Ready, i, 0)
	}
	if got := strings.Count(buf.String(), "[Ready"); got != limitedCap {
		t.Fatalf("Limited level printed %d events, want %d", got, limitedCap)
	}
}

func TestClassesAreIndependent(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTracer(&buf, Full, None, Full)
	tr.Event(Scheduler, Dispatch, 1, 0)
	if buf.Len() != 0 {
		t.Fatalf("Scheduler=None still produced output: %q", buf.String())
	}
	tr.MemoryFault(1, 2, 3, false)
	if !strings.Contains(buf.String(), "PageFault") {
		t.Fatalf("Memory=Full did not print a fault event")
	}
}

func TestQueueSnapshotIncludedInEvent(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTracer(&buf, Full, Full, Full)
	tr.Event(Other, Create, 3, 0, QueueSnapshot{Name: "ready", Members: []int{1, 2, 3}})
	if !strings.Contains(buf.String(), "ready=[1 2 3]") {
		t.Fatalf("queue snapshot missing from event line: %q", buf.String())
	}
}
