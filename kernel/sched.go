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
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/xv6ng/kernelcore/kernel/vmlayer"
)

// TaskFunc is the body a task's dedicated goroutine executes once first
// dispatched. It receives the Task so it can call back into Sleep, Exit,
// Yield, etc. A TaskFunc must terminate by calling an operation that sets
// state to Zombie (Exit, or ThreadExit on a non-main thread); returning
// without doing so never hands the CPU back: the scheduler that dispatched
// the task stays blocked waiting for it to park.
type TaskFunc func(t *Task)

// startTaskGoroutine launches the goroutine backing t. It blocks
// immediately on t.runGate, which is the Go analogue of a freshly
// allocated TCB whose saved context resumes at forkret: nothing executes
// until the scheduler first dispatches this slot.
func (k *Kernel) startTaskGoroutine(t *Task, fn TaskFunc) {
	reaped := t.reapGate
	go func() {
		<-t.runGate
		k.firstSchedule.Do(func() {
			if k.onFirstRun != nil {
				k.onFirstRun()
			}
		})
		fn(t)
		// fn is expected to have reached Exit/ThreadExit, which return
		// only once the slot has been reaped and reapGate closed: that is
		// the normal end of a task goroutine. If fn returns with reapGate
		// still open (a TaskFunc bug), log it instead of leaking a
		// goroutine silently.
		select {
		case <-reaped:
			return
		default:
		}
		k.log.WithFields(logrus.Fields{"pid": t.pid, "tid": t.tid}).
			Warn("task goroutine returned without exiting")
	}()
}

// Scheduler runs CPU c's scheduler loop until stop is closed; call it on
// its own goroutine. It implements spec.md §4.2 exactly: enable interrupts,
// sweep the table in index order for a RUNNABLE task, install its address
// space, mark it RUNNING, hand off, wait for it to park, reinstall the
// kernel address space, repeat. See DESIGN.md decision 1 for why the table
// lock is taken per dispatch rather than held across the whole sweep.
func (c *CPU) Scheduler(stop <-chan struct{}) {
	k := c.k
	for {
		select {
		case <-stop:
			return
		default:
		}

		dispatched := false
		for _, p := range k.tasks {
			select {
			case <-stop:
				return
			default:
			}

			var runThis bool
			k.withTable(func() {
				if p.state != Runnable {
					return
				}
				c.current = p
				p.cpuID = c.id
				p.pgdir.SwitchUVM(c.id)
				p.state = Running
				runThis = true
			})
			if !runThis {
				continue
			}
			dispatched = true

			p.runGate <- struct{}{} // swtch(&cpu.scheduler, p.context)
			<-p.yieldGate           // ...until p parks itself again

			vmlayer.SwitchKVM(c.id)
			c.current = nil
		}
		if !dispatched {
			// Nothing runnable this sweep; avoid a hot spin in a
			// simulation with no real interrupts to wait for.
			runtime.Gosched()
		}
	}
}

// sched is the sole in-kernel yield primitive (spec.md §5). Preconditions,
// enforced as fatal panics because they indicate a caller contract break:
// the table lock must be held, t.state must not be Running, and t's
// nested-cli depth must be exactly 1 (interrupts "disabled", in our
// simulated sense — see DESIGN.md decision 3).
//
// Callers must already hold k.mu; sched releases it for the duration the
// task is parked and returns with it held again once redispatched, which
// keeps every call site's Lock/Unlock pairing visually symmetric even
// though, mechanically, the unlock/relock happens inside the park.
func (t *Task) sched(k *Kernel) {
	if t.state == Running {
		panic("sched: task running")
	}
	if t.ncli != 1 {
		panic("sched: nested locks")
	}
	if t.intEnab {
		panic("sched: interruptible")
	}
	k.mu.Unlock()
	t.park()
	k.mu.Lock()
}

// park is the Go analogue of the swtch call inside sched(): it hands
// control back to the CPU that dispatched this task and blocks until the
// scheduler dispatches it again.
func (t *Task) park() {
	t.yieldGate <- struct{}{}
	<-t.runGate
}

// parkForever is used by ThreadExit (Exit performs the same two steps
// inline, sending on yieldGate before releasing k.mu) once state has been set to
// Zombie: spec.md §5 says sched() "never returns" from exit, which in our
// goroutine model means this task's runGate will never fire again (a
// Zombie is never selected, invariant 5) until wait()/thread_join() reaps
// the slot and closes reapGate, at which point the task goroutine is
// allowed to actually terminate.
func (t *Task) parkForever() {
	t.yieldGate <- struct{}{}
	<-t.reapGate
}

// Yield voluntarily gives up the CPU for one scheduling round, analogous
// to xv6's yield() (invoked there from the timer trap; here, called
// directly by cooperative workloads since this simulation has no
// preemption).
func (t *Task) Yield(k *Kernel) {
	t.pushCli()
	k.mu.Lock()
	t.state = Runnable
	t.sched(k)
	k.mu.Unlock()
	t.popCli()
}

// pushCli/popCli mirror xv6's cli()/sti() nesting, tracked per task rather
// than per CPU (DESIGN.md decision 3).
func (t *Task) pushCli() {
	t.ncli++
	if t.ncli == 1 {
		t.intEnab = false
	}
}

func (t *Task) popCli() {
	t.ncli--
	if t.ncli == 0 {
		t.intEnab = true
	}
}
