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

// Kill marks the first TCB found with the given pid as killed and, if it
// is Sleeping, promotes it to Runnable so it observes the kill promptly
// instead of waiting for whatever it was sleeping on. As in xv6, when a
// process has more than one thread only the first matching table slot is
// marked: other threads of the same pid are left untouched by this call
// (spec.md §9 flags this as inherited, not fixed). Returns ErrNoSuchProcess
// if no TCB has the given pid.
func (k *Kernel) Kill(pid int32) error {
	var killed bool
	k.withTable(func() {
		k.forEachTaskLocked(func(p *Task) bool {
			if p.pid != pid {
				return true
			}
			p.killed = true
			if p.state == Sleeping {
				p.state = Runnable
			}
			killed = true
			return false
		})
	})
	if !killed {
		return ErrNoSuchProcess
	}
	return nil
}
