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

// Exit terminates the calling task's whole process. The task never runs
// again as a task: Exit blocks on reapGate and returns only after the
// parent's Wait has reaped the slot, at which point the task goroutine has
// nothing left to do but end. Calling Exit on initproc is a fatal invariant violation
// (spec.md invariant 7), not a recoverable error.
func (t *Task) Exit(k *Kernel) {
	if t == k.Initproc() {
		panic("exit: initproc exiting")
	}

	// Close files and release cwd with the table lock NOT held (spec.md
	// §2: "External collaborators are called with the table lock not
	// held"), and only ever from the main thread (sibling threads alias
	// without refcounting and must never reach this path directly; see
	// ThreadExit's degrade-to-Exit rule).
	for i, f := range t.ofile {
		if f != nil {
			f.Close()
			t.ofile[i] = nil
		}
	}
	if t.cwd != nil {
		t.cwd.Put()
		t.cwd = nil
	}

	k.mu.Lock()
	// threadClearLocked reparents the children of every thread of this
	// process (t included) onto initproc and collapses every sibling TCB
	// sharing t's pid; see its doc comment.
	t.threadClearLocked(k)

	k.wakeupLocked(t.parent)

	t.pushCli()
	t.state = Zombie
	t.yieldGate <- struct{}{}
	k.mu.Unlock()

	// Real xv6 follows sched() here with panic("zombie exit"), because a
	// ZOMBIE's kernel stack is never resumed — the scheduler never
	// reselects it, and wait() reclaims it from the parent's own stack,
	// not by waking this one back up. This goroutine, in contrast, is the
	// one concrete resource reaping must release: reapGate closing is
	// this model's signal to let it terminate, not a resumption to guard
	// against. There is nothing left for it to do once that happens.
	<-t.reapGate
}

// Wait blocks until a child of t exits, reaps it, and returns its pid.
// Returns ErrNoChildren if t has no children at all, and ErrKilled if t's
// killed flag is observed while blocked.
func (t *Task) Wait(k *Kernel) (int32, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for {
		haveKids := false
		var reaped int32 = -1
		var found *Task

		k.forEachTaskLocked(func(p *Task) bool {
			if p.parent != t {
				return true
			}
			haveKids = true
			if p.state == Zombie {
				found = p
				return false
			}
			return true
		})

		if found != nil {
			reaped = found.pid
			found.pgdir.Free()
			found.pgdir = nil
			resetToUnused(found)
			close(found.reapGate)
			return reaped, nil
		}

		if !haveKids {
			return -1, ErrNoChildren
		}
		if t.killed {
			return -1, ErrKilled
		}

		t.pushCli()
		t.chanv = t
		t.state = Sleeping
		t.sched(k)
		t.chanv = nil
		t.popCli()
	}
}
