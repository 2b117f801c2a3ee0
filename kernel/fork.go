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

// Fork allocates a new task, deep-copies the caller's address space,
// duplicates its open files and cwd (with refcounting — Fork is a
// main-thread-only operation by construction, since it is meaningless to
// "fork a single thread" without forking the whole process), and commits
// the child Runnable. It returns the child's pid.
//
// childFn is the workload the child's dedicated goroutine will execute;
// real xv6 instead clears %eax in a shared trap frame so the same
// compiled binary observes 0 vs. the child pid depending on which task it
// is. This simulation has no shared instruction stream to fork, so the
// caller supplies the child's body directly — the observable contract
// (child sees pid 0 from its own perspective, parent receives the child's
// real pid) is preserved via the return values of Fork itself plus
// whatever childFn chooses to do.
func (k *Kernel) Fork(parent *Task, childFn TaskFunc) (childPID int32, err error) {
	child, err := k.allocateTCB()
	if err != nil {
		return -1, err
	}

	newSpace, err := parent.pgdir.Copy()
	if err != nil {
		k.withTable(func() { resetToUnused(child) })
		return -1, wrap(err, "fork: copyuvm")
	}

	k.withTable(func() {
		child.pgdir = newSpace
		child.sz = parent.sz
		child.limit = parent.limit
		child.parent = parent
		child.name = parent.name

		for i, f := range parent.ofile {
			if f != nil {
				child.ofile[i] = f.Dup()
			}
		}
		if parent.cwd != nil {
			child.cwd = parent.cwd.Dup()
		}

		childPID = child.pid
		child.state = Runnable
	})

	k.startTaskGoroutine(child, childFn)
	return childPID, nil
}
