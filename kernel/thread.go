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
	"github.com/hashicorp/go-multierror"
	"github.com/xv6ng/kernelcore/kernel/filetable"
)

// ThreadCreate allocates a new TCB sharing the caller's address space (no
// copyuvm) and places its user stack just past the caller's current size,
// growing the shared size for every TCB with the calling process's pid.
// Its parent is set the same way proc.c:thread_create() sets it — to the
// caller itself when the caller is the main thread, or to the caller's
// parent otherwise — which by induction always resolves to the process's
// main thread, flattening any chain of thread-creates-thread onto it
// rather than nesting. spnum is tracked only on that main thread (the new
// sibling's own spnum stays 0), matching proc.c's `t->parent->spnum++`.
// Immediately after allocation, the pid counter consumed by allocateTCB is
// given back with `nextPID--`, matching proc.c:thread_create()'s
// `nextpid--` (SPEC_FULL.md's preserved quirk: a thread never permanently
// consumes a pid identity, since it takes on the caller's pid instead).
func (k *Kernel) ThreadCreate(caller *Task, childFn TaskFunc) (childTID int32, err error) {
	var overLimit bool
	k.withTable(func() {
		overLimit = caller.limit != 0 && caller.sz+threadStackPages*pageSize > caller.limit
	})
	if overLimit {
		return -1, ErrLimitExceeded
	}

	child, err := k.allocateTCB()
	if err != nil {
		return -1, err
	}
	k.withTable(func() { k.nextPID-- })

	// Address-space mutation happens with the table lock released, as with
	// every other vmlayer call in this package.
	newsz, err := caller.pgdir.AllocThreadStack(caller.sz, threadStackPages*pageSize)
	if err != nil {
		k.withTable(func() { resetToUnused(child) })
		return -1, wrap(err, "thread_create: stack alloc")
	}

	k.withTable(func() {
		child.pgdir = caller.pgdir
		child.pid = caller.pid

		if caller.IsMainThread() {
			child.parent = caller
		} else {
			child.parent = caller.parent
		}
		child.parent.spnum++

		propagateSizeLocked(k, caller.pid, newsz)

		child.limit = caller.limit
		child.name = caller.name

		for i, f := range caller.ofile {
			if f != nil {
				child.ofile[i] = f // alias, no refcount: sibling threads share fds
			}
		}
		child.cwd = caller.cwd // alias, no refcount

		childTID = child.tid
		child.state = Runnable
	})

	k.startTaskGoroutine(child, childFn)
	return childTID, nil
}

// ThreadExit terminates the calling thread. If t is the process's main
// thread this degrades to a full Exit — matching real Unix semantics,
// where pthread_exit on the main thread still only the caller returns
// normally from the runtime's perspective, but here the whole xv6-style
// process model treats main-thread-exit as process-exit (spec.md §4.6).
// Otherwise, it releases no files (siblings alias, they don't own), clears
// its own fd table and cwd pointer so no file reference is read once the
// slot is reaped, wakes every other thread of its process (each sleeps on
// its own address in ThreadJoin), and parks as a Zombie for ThreadJoin.
func (t *Task) ThreadExit(k *Kernel, retval any) {
	if t.IsMainThread() {
		t.Exit(k)
		return
	}

	t.ofile = [NOFILE]*filetable.File{}
	t.cwd = nil

	k.mu.Lock()
	t.threadRetval = retval
	k.forEachTaskLocked(func(p *Task) bool {
		if p != t && p.pid == t.pid {
			k.wakeupLocked(p)
		}
		return true
	})
	t.pushCli()
	t.state = Zombie
	k.mu.Unlock()
	// See Exit's matching comment: parkForever's return means this
	// thread's slot has been reaped by ThreadJoin, and this goroutine has
	// nothing left to do.
	t.parkForever()
}

// ThreadJoin waits for the thread with the given tid, or for any thread
// sharing t's pid (other than t itself) when tid is 0, to become a Zombie,
// reaps it, and returns its delivered return value. Unlike
// Wait, ThreadJoin never frees the address space (siblings share it) and
// never reparents orphans (a thread has no children of its own distinct
// from the process's). Joining nothing (no other TCB sharing pid) returns
// ErrNoChildren; joining oneself is rejected before any blocking occurs.
func (t *Task) ThreadJoin(k *Kernel, tid int32) (any, error) {
	if tid == t.tid {
		return nil, ErrSelfJoin
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	for {
		haveSiblings := false
		var found *Task

		k.forEachTaskLocked(func(p *Task) bool {
			if p.pid != t.pid || p.tid == t.tid {
				return true
			}
			if tid != 0 && p.tid != tid {
				return true
			}
			haveSiblings = true
			if p.state == Zombie {
				found = p
				return false
			}
			return true
		})

		if found != nil {
			retval := found.threadRetval
			resetToUnused(found)
			close(found.reapGate)
			return retval, nil
		}

		if !haveSiblings {
			return nil, ErrNoChildren
		}
		if t.killed {
			return nil, ErrKilled
		}

		t.pushCli()
		t.chanv = t
		t.state = Sleeping
		t.sched(k)
		t.chanv = nil
		t.popCli()
	}
}

// threadClearLocked is xv6's thread_clear1(): called from Exit (never from
// ThreadExit, which only ever degrades into Exit on the main thread and so
// reaches this same path). If the exiting task is not itself the process's
// recorded main thread — i.e. some non-main thread called the raw exit
// path directly rather than going through ThreadExit — it first promotes
// itself to stand in for the process: it inherits spnum from its parent
// (the thread it assumes is main) and re-targets its own parent to that
// thread's parent, exactly as xv6 does. It then walks the whole table:
// every TCB whose parent belongs to t's process (the children of t and of
// its sibling threads) is reparented to initproc, waking initproc if that
// child is already a Zombie; and every OTHER TCB sharing t's pid has its
// file/cwd aliases zeroed and is returned to UNUSED regardless of its
// current state. This mirrors the
// original verbatim: exiting collapses every sibling thread immediately,
// on the assumption the caller has already ensured no other thread of the
// process is still doing useful work. Callers must hold k.mu.
func (t *Task) threadClearLocked(k *Kernel) {
	if t.parent != nil && t.parent.pid == t.pid {
		t.spnum = t.parent.spnum
		t.parent = t.parent.parent
	}

	k.forEachTaskLocked(func(p *Task) bool {
		if p.parent != nil && p.parent.pid == t.pid {
			p.parent = k.initproc
			if p.state == Zombie {
				k.wakeupLocked(k.initproc)
			}
		}
		if p.pid != t.pid || p.tid == t.tid {
			return true
		}
		p.ofile = [NOFILE]*filetable.File{}
		p.cwd = nil
		resetToUnused(p)
		return true
	})
}

// ReapAllThreads joins every other thread of t's process in turn, used by a
// main thread that wants to drain its siblings itself instead of letting
// Exit's threadClearLocked collapse them unconditionally. Failures joining
// individual threads are aggregated rather than abandoning the sweep after
// the first one, so a caller sees every thread that could not be joined
// cleanly instead of only the first.
func (t *Task) ReapAllThreads(k *Kernel) error {
	var errs *multierror.Error
	for {
		_, err := t.ThreadJoin(k, 0)
		if err == ErrNoChildren || err == ErrKilled {
			if err == ErrKilled {
				errs = multierror.Append(errs, err)
			}
			break
		}
		if err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

// propagateSizeLocked mirrors growproc's "update sz on the caller and every
// other TCB sharing its pid" step, reused here so a stack allocation on
// behalf of one thread is visible as the process's size to every sibling
// and to a parent's later wait(). Callers must hold k.mu.
func propagateSizeLocked(k *Kernel, pid int32, sz uint64) {
	k.forEachTaskLocked(func(p *Task) bool {
		if p.pid == pid {
			p.sz = sz
		}
		return true
	})
}

const (
	pageSize         = 4096
	threadStackPages = 1
)
