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

// Growproc changes the caller's process size by n bytes (n may be negative
// to shrink), mirroring xv6's growproc(). A positive n is rejected with
// ErrLimitExceeded if it would push the new size past a non-zero limit.
// On success, sz is updated on the caller AND every other TCB sharing its
// pid (spec.md invariant 3: sz is a per-process, not per-thread, quantity),
// and the hardware page table is reloaded on the caller only — a sibling
// thread already has the right mapping installed the next time it's
// dispatched, by construction, since they all share the same AddressSpace.
func (t *Task) Growproc(k *Kernel, n int64) error {
	var oldsz, limit uint64
	k.withTable(func() {
		oldsz = t.sz
		limit = t.limit
	})

	newsz := int64(oldsz) + n
	if newsz < 0 {
		newsz = 0
	}
	if n > 0 && limit != 0 && uint64(newsz) > limit {
		return ErrLimitExceeded
	}

	var sz uint64
	var err error
	if n > 0 {
		sz, err = t.pgdir.Alloc(oldsz, uint64(newsz))
	} else if n < 0 {
		sz, err = t.pgdir.Dealloc(oldsz, uint64(newsz))
	} else {
		sz = oldsz
	}
	if err != nil {
		return wrap(err, "growproc")
	}

	k.withTable(func() {
		propagateSizeLocked(k, t.pid, sz)
	})
	t.pgdir.SwitchUVM(t.CPUID())
	return nil
}
