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

// SetMemoryLimit sets the memory limit for every TCB sharing pid, mirroring
// xv6's setmemorylimit(). A limit below the process's current size is
// rejected with ErrLimitTooLow rather than truncating the address space;
// a limit of 0 means unlimited. Returns ErrNoSuchProcess if pid does not
// name any TCB.
func (k *Kernel) SetMemoryLimit(pid int32, limit uint64) error {
	var found bool
	var rejected bool
	k.withTable(func() {
		var sz uint64
		k.forEachTaskLocked(func(p *Task) bool {
			if p.pid == pid {
				found = true
				sz = p.sz
			}
			return true
		})
		if !found {
			return
		}
		if limit != 0 && limit < sz {
			rejected = true
			return
		}
		k.forEachTaskLocked(func(p *Task) bool {
			if p.pid == pid {
				p.limit = limit
			}
			return true
		})
	})
	if !found {
		return ErrNoSuchProcess
	}
	if rejected {
		return ErrLimitTooLow
	}
	return nil
}
