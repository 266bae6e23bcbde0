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

// Package hal is the narrow hardware abstraction layer the kernel runs on:
// a virtual clock and timer, three sector-addressable disks, a named
// interlock primitive, a cooperative context-switch primitive, and a
// memory-mapped register plane. It is the only package in this module
// allowed to know that the "hardware" underneath it is simulated.
package hal

// Mode discriminates user vs. kernel execution context.
type Mode uint8

const (
	ModeKernel Mode = iota
	ModeUser
)

// SwitchMode selects the two flavors of switch_context.
type SwitchMode uint8

const (
	// Save preserves the caller's context so a later Switch can resume it.
	Save SwitchMode = iota
	// Kill discards the caller's context; the calling goroutine never
	// returns from Switch.
	Kill
)

// Status is the Free/InUse state of a timer or disk.
type Status uint8

const (
	Free Status = iota
	InUse
)

// DiskOp selects the direction of a disk transfer.
type DiskOp uint8

const (
	OpRead DiskOp = iota
	OpWrite
)

// Sector is one unit of disk transfer: a page-sized block of 16 words,
// matching the kernel's page size (see kernel.PageWords).
type Sector [16]uint16

// DiskCompletionFunc is invoked by a Disk on its own goroutine when a
// transfer finishes. The kernel registers one per disk at boot; it runs
// with no kernel locks held, so the callback must take whatever locks it
// needs itself.
type DiskCompletionFunc func(diskID int)

// TimerFunc is invoked on its own goroutine when the armed timer fires.
type TimerFunc func()

const (
	NumDisks      = 3
	SectorsPerDisk = 1 << 16
)
