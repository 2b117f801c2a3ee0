// Copyright 2018 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package kernel

import (
	"fmt"

	"github.com/xv6ng/kernelcore/kernel/filetable"
	"github.com/xv6ng/kernelcore/kernel/vmlayer"
)

// State is the run state of a Task. The zero value is Unused.
type State int32

const (
	Unused State = iota
	Embryo
	Sleeping
	Runnable
	Running
	Zombie
)

// String implements fmt.Stringer, used by diag.go and tests.
func (s State) String() string {
	switch s {
	case Unused:
		return "unused"
	case Embryo:
		return "embryo"
	case Sleeping:
		return "sleep "
	case Runnable:
		return "runble"
	case Running:
		return "run   "
	case Zombie:
		return "zombie"
	default:
		return "???"
	}
}

// Chan is an opaque rendezvous token for Sleep/Wakeup. Any comparable value
// with a stable identity works; by convention this core uses *Task
// pointers (sleep on a task's own address, as xv6 does for wait/join) or
// pointers to purpose-built condition objects.
type Chan any

// NOFILE bounds the number of open-file slots per process, mirroring
// xv6's param.h NOFILE.
const NOFILE = 16

// maxNameLen mirrors xv6's struct proc name[16].
const maxNameLen = 16

// Task is the unified Task Control Block: the same record represents both
// a process (main thread) and an in-process thread. Fields are only safe
// to read/write while the owning Kernel's table lock is held, except where
// documented otherwise (the scheduling gates, and fields exclusively owned
// by the task's own goroutine).
type Task struct {
	// index is this Task's fixed slot in the ptable, assigned once at
	// construction and never reused; it is what makes round robin by
	// "table index" well defined.
	index int

	// --- fields protected by Kernel.mu ---

	state State
	pid   int32
	tid   int32

	// parent is a weak, lookup-only back-reference: never treat it as an
	// owning pointer, and never assume it is non-nil for a Task that has
	// been reaped back to Unused.
	parent *Task

	pgdir *vmlayer.AddressSpace
	sz    uint64
	limit uint64 // 0 == unlimited
	spnum int32

	killed bool
	chanv  Chan // non-nil iff state == Sleeping

	// cpuID is the simulated CPU t is installed on while Running, set by
	// the scheduler immediately before each dispatch. Safe for t's own
	// goroutine to read once dispatched: the runGate send/receive that
	// wakes it happens-after the scheduler's write.
	cpuID int

	ofile [NOFILE]*filetable.File
	cwd   *filetable.Dir

	threadRetval any

	name string

	// --- fields private to the task's own goroutine (never touched
	// concurrently by the scheduler or another task) ---

	ncli    int  // nested cli() depth, spec.md's "nested-cli depth"
	intEnab bool // simulated pre-cli() interrupt-enable state

	// --- scheduling gates: the Go analogue of swtch/trapret/forkret.
	// See kernel/sched.go and DESIGN.md decision 2. ---

	runGate   chan struct{} // scheduler -> task: you are now RUNNING
	yieldGate chan struct{} // task -> scheduler: I have parked myself
	reapGate  chan struct{} // closed by wait()/thread_join() on reap
}

// PID returns the task's process identity.
func (t *Task) PID() int32 { return t.pid }

// TID returns the task's thread identity.
func (t *Task) TID() int32 { return t.tid }

// State returns the task's current run state. Intended for diagnostics;
// callers needing a consistent snapshot across multiple fields should hold
// Kernel.mu instead (see Kernel.withTable).
func (t *Task) State() State { return t.state }

// Name returns the task's name.
func (t *Task) Name() string { return t.name }

// Size returns the task's address-space size as last mirrored onto this
// TCB (identical across all threads of the same pid, invariant 3).
func (t *Task) Size() uint64 { return t.sz }

// Limit returns the task's memory limit (0 == unlimited).
func (t *Task) Limit() uint64 { return t.limit }

// CPUID returns the simulated CPU t is currently installed on. Only
// meaningful when called by t's own goroutine while Running.
func (t *Task) CPUID() int { return t.cpuID }

// IsMainThread reports whether t is the main thread of its process: the
// one whose parent (if any) belongs to a different pid. Matches the
// glossary's definition and xv6's "curproc->parent->pid == curproc->pid"
// test used throughout proc.c, inverted for readability.
func (t *Task) IsMainThread() bool {
	return t.parent == nil || t.parent.pid != t.pid
}

func setName(dst *string, name string) {
	if len(name) >= maxNameLen {
		name = name[:maxNameLen-1]
	}
	*dst = name
}

func (t *Task) String() string {
	return fmt.Sprintf("task{pid=%d tid=%d state=%s name=%q}", t.pid, t.tid, t.state, t.name)
}
