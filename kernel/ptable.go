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

import "github.com/xv6ng/kernelcore/kernel/filetable"

// allocateTCB scans the table for the first UNUSED slot, mirroring xv6's
// allocproc(): the table scan and identity assignment happen under the
// table lock, then the (comparatively expensive) kernel-stack-equivalent
// setup happens with the lock released. On any failure past that point,
// the slot reverts to Unused.
func (k *Kernel) allocateTCB() (*Task, error) {
	var t *Task
	k.withTable(func() {
		for _, p := range k.tasks {
			if p.state == Unused {
				t = p
				break
			}
		}
		if t == nil {
			return
		}
		t.state = Embryo
		t.pid = k.nextPID
		k.nextPID++
		t.tid = k.nextTID
		k.nextTID++
	})
	if t == nil {
		return nil, ErrTableFull
	}

	// "Kernel stack" allocation happens outside the lock. In this
	// simulation the kernel stack is just the scheduling gates every task
	// goroutine parks on; allocation cannot fail, but the pattern (revert
	// to Unused on failure) is kept because a real backing allocator
	// could fail here.
	t.runGate = make(chan struct{})
	t.yieldGate = make(chan struct{})
	t.reapGate = make(chan struct{})
	t.intEnab = false
	t.ncli = 0

	return t, nil
}

// resetToUnused clears every identity field on a reaped TCB and returns it
// to the free list, mirroring the field-by-field reset done by xv6's
// wait()/thread_join()/thread_clear1(). Callers must hold k.mu.
func resetToUnused(t *Task) {
	t.pid = 0
	t.tid = 0
	t.parent = nil
	t.pgdir = nil // shared address space is freed once, by Wait, not here
	t.sz = 0
	t.limit = 0
	t.spnum = 0
	t.killed = false
	t.chanv = nil
	t.ofile = [NOFILE]*filetable.File{}
	t.cwd = nil
	t.name = ""
	t.threadRetval = nil
	t.state = Unused
}
