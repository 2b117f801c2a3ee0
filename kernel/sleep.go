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

// Sleep atomically releases an arbitrary condition and blocks t until
// Wakeup(ch) is called, mirroring xv6's sleep(chan, lk). Since this
// simulation has no separate spinlock types, the "arbitrary lock" the
// caller holds is represented by unlock/relock callbacks; pass
// (nil, nil) when the table lock itself is the condition lock (the caller
// must already hold k.mu in that case, matching xv6's lk == &ptable.lock
// fast path).
//
// On return, the caller's condition lock (if any) has been reacquired, and
// the caller is responsible for re-checking its condition: wakeups are
// broadcast, so a spurious wake is part of the contract (spec.md §4.4).
func (t *Task) Sleep(k *Kernel, ch Chan, unlockCond func(), relockCond func()) {
	if unlockCond != nil {
		k.mu.Lock()
		unlockCond()
	}
	// From here the table lock is held either way, matching xv6's
	// invariant that chan/state are only ever mutated under it.
	t.pushCli()
	t.chanv = ch
	t.state = Sleeping
	t.sched(k)
	t.chanv = nil
	t.popCli()

	if unlockCond != nil {
		k.mu.Unlock()
		relockCond()
	}
}

// Wakeup promotes every Sleeping task waiting on ch to Runnable. All
// matching sleepers are woken (broadcast); see spec.md §4.4.
func (k *Kernel) Wakeup(ch Chan) {
	k.withTable(func() {
		k.wakeupLocked(ch)
	})
}

// wakeupLocked is Wakeup's body, reusable by callers (exit, thread_exit)
// that already hold the table lock and need to wake more than one channel
// within a single critical section, mirroring xv6's wakeup1().
func (k *Kernel) wakeupLocked(ch Chan) {
	k.forEachTaskLocked(func(p *Task) bool {
		if p.state == Sleeping && p.chanv == ch {
			p.state = Runnable
		}
		return true
	})
}
