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
	"io"
)

// Procdump writes one line per non-Unused TCB: pid, state, name. It
// mirrors xv6's procdump(), which is deliberately console-only diagnostics
// — it takes no lock in the original (it's meant to be callable from a
// context where the table lock might already be held by a wedged CPU) and
// so may race with a concurrently mutating table. This port keeps that
// property: it reads tasks without acquiring k.mu, trading a possible torn
// read for the ability to dump state even when the table lock is stuck.
func (k *Kernel) Procdump(w io.Writer) {
	for _, p := range k.tasks {
		if p.state == Unused {
			continue
		}
		fmt.Fprintf(w, "%d %s %s\n", p.pid, p.state, p.name)
	}
}

// Procdump2 is project02's extended dump, used by pmanager's "list"
// command. Unlike Procdump, it only considers live, schedulable tasks
// (Running, Runnable, Sleeping — EMBRYO, ZOMBIE and UNUSED slots are
// omitted) and suppresses sibling threads (any task whose parent shares
// its own pid), so a process with helper threads contributes exactly one
// row: its main thread. Each surviving row prints name, pid, stack-page
// count, allocated size, and either "no limit" or the limit value,
// matching proc.c:procdump2()'s block format.
func (k *Kernel) Procdump2(w io.Writer) {
	for _, p := range k.tasks {
		switch p.state {
		case Running, Runnable, Sleeping:
		default:
			continue
		}
		if p.parent != nil && p.parent.pid == p.pid {
			continue
		}
		fmt.Fprintf(w, "**************************************\n")
		fmt.Fprintf(w, "name                  : %s\n", p.name)
		fmt.Fprintf(w, "pid                   : %d\n", p.pid)
		fmt.Fprintf(w, "stack page number     : %d\n", p.spnum)
		fmt.Fprintf(w, "allocated memory size : %d\n", p.sz)
		if p.limit == 0 {
			fmt.Fprintf(w, "memory maximum limit  : no limit\n")
		} else {
			fmt.Fprintf(w, "memory maximum limit  : %d\n", p.limit)
		}
		fmt.Fprintf(w, "**************************************\n")
	}
}
