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
	"runtime"
	"sync"
)

// EntryFunc is the body of a simulated process: it runs on its own
// goroutine and is handed no arguments beyond what the caller closed over
// when building the Context, matching "entry: address of the first
// instruction" in a world where addresses are Go closures.
type EntryFunc func()

// Context is an opaque hardware-context handle, realized as a parked
// goroutine plus a wake baton. Exactly one Context's goroutine is ever
// unblocked at a time; Switch is how the baton moves.
type Context struct {
	mode  Mode
	park  chan struct{}
	done  chan struct{}
	abort chan struct{}

	abortOnce sync.Once
}

// MakeContext builds a user- or kernel-mode context around entry. The
// goroutine is spawned immediately but blocks on its park channel until
// the first Switch targets it, or exits immediately without ever running
// entry if Kill is called on it first.
func MakeContext(entry EntryFunc, mode Mode) *Context {
	c := &Context{
		mode:  mode,
		park:  make(chan struct{}),
		done:  make(chan struct{}),
		abort: make(chan struct{}),
	}
	go func() {
		defer close(c.done)
		if !c.wait() {
			return
		}
		entry()
	}()
	return c
}

// wait blocks until the context is either handed the baton (true) or
// killed from outside while parked (false).
func (c *Context) wait() bool {
	select {
	case <-c.park:
		return true
	case <-c.abort:
		return false
	}
}

// Mode reports whether this context began life in user or kernel mode.
func (c *Context) Mode() Mode {
	return c.mode
}

// Done is closed when the context's goroutine has run to completion
// (including by way of Kill).
func (c *Context) Done() <-chan struct{} {
	return c.done
}

// Kill tears down a context that is currently parked — waiting for its
// first dispatch, or parked inside a Switch(Save, ...) awaiting resume — without ever
// returning control to it. Its goroutine unwinds and Done closes, but
// entry never runs (or never resumes) past the point it was parked at.
// Safe to call more than once. Must not be called on the context that is
// itself currently running; a running context tears itself down via
// Switch(self, Kill, target) instead.
func (c *Context) Kill() {
	c.abortOnce.Do(func() { close(c.abort) })
}

// Switch hands the baton to target and, per mode, either blocks the
// caller until it is later resumed (Save) or terminates the caller's
// goroutine without returning (Kill). Switch must be called from the
// goroutine that owns the *calling* process's own Context; callers pass
// that Context in as self.
func Switch(self *Context, mode SwitchMode, target *Context) {
	target.park <- struct{}{}
	switch mode {
	case Save:
		if !self.wait() {
			runtime.Goexit()
		}
	case Kill:
		runtime.Goexit()
	}
}

// NewBootContext returns a Context suitable for use as the "self" argument
// of the very first Switch, called from an ordinary goroutine (the one
// that boots the kernel) rather than from a goroutine spawned by
// MakeContext. It has no entry function: the calling goroutine *is* its
// body. Switching away from it parks that goroutine until process exit,
// which is exactly what booting the first process should do.
func NewBootContext() *Context {
	return &Context{mode: ModeKernel, park: make(chan struct{}), done: make(chan struct{})}
}
