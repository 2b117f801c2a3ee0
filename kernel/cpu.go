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

// CPU binds a running kernel path to a current task, mirroring xv6's
// struct cpu / mycpu() / myproc(). Each CPU runs its own scheduler loop on
// a dedicated goroutine (see sched.go); `current` is written only by that
// goroutine.
type CPU struct {
	id int
	k  *Kernel

	// current is the task this CPU is presently running, or nil when the
	// scheduler itself is between dispatches. Only ever written by this
	// CPU's own scheduler goroutine.
	current *Task
}

// ID returns the CPU's index, analogous to cpuid().
func (c *CPU) ID() int { return c.id }

// Current returns the task this CPU is currently running, or nil.
//
// Real xv6 disables interrupts around this read (pushcli/popcli) to avoid
// being rescheduled onto a different CPU mid-read. That race doesn't exist
// here — a CPU's `current` is only ever touched by its own scheduler
// goroutine — but the call is kept as a single accessor rather than a bare
// field read so that invariant still reads as deliberate, not accidental.
func (c *CPU) Current() *Task {
	return c.current
}
