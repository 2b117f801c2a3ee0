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

// Package kernel implements the process/thread management core: the
// system-wide task table, the per-CPU round-robin scheduler, sleep/wakeup
// channels, and the fork/exit/wait/kill/thread_*/setmemorylimit/procdump
// operations built on top of them.
//
// A Task's "stack swap" is modeled as a goroutine handoff rather than a
// literal stack splice (see DESIGN.md decision 2); everything else follows
// the reference kernel's locking and state-transition discipline exactly.
package kernel

import (
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/xv6ng/kernelcore/kernel/vmlayer"
)

// Config bounds the simulated machine, mirroring xv6's param.h.
type Config struct {
	NPROC       int    // size of the fixed task table
	NCPU        int    // number of simulated CPUs
	KStackPages int    // initproc's initial address-space size, in simulated pages
	VMCeiling   uint64 // whole-machine simulated physical memory ceiling
}

// DefaultConfig matches xv6's param.h defaults.
func DefaultConfig() Config {
	return Config{
		NPROC:       64,
		NCPU:        8,
		KStackPages: 2,
		VMCeiling:   1 << 32,
	}
}

// Kernel owns the ptable and every CPU in the simulated machine.
//
// +stateify notsavable (this is a simulation harness, not the real thing)
type Kernel struct {
	cfg Config
	log logrus.FieldLogger

	// mu is "the table lock": the single big lock documented in spec.md
	// §5. All mutation of task state, pid/tid allocation, and channel
	// wakeups happens under mu. VM and file operations are always called
	// with mu released.
	mu sync.Mutex

	tasks   []*Task
	nextPID int32
	nextTID int32

	initproc *Task

	cpus []*CPU

	// firstSchedule fires the forkret-equivalent "deferred filesystem
	// init" exactly once, on whichever task goroutine is first dispatched
	// (proc.c's `static int first` in forkret).
	firstSchedule sync.Once
	onFirstRun    func()
}

// New constructs a Kernel with an empty, Unused-filled task table and the
// requested number of simulated CPUs (not yet running; see CPU.Scheduler).
func New(cfg Config, log logrus.FieldLogger) *Kernel {
	if log == nil {
		log = logrus.StandardLogger()
	}
	k := &Kernel{
		cfg:     cfg,
		log:     log,
		tasks:   make([]*Task, cfg.NPROC),
		nextPID: 1,
		nextTID: 1,
	}
	for i := range k.tasks {
		k.tasks[i] = &Task{index: i, state: Unused}
	}
	k.cpus = make([]*CPU, cfg.NCPU)
	for i := range k.cpus {
		k.cpus[i] = &CPU{id: i, k: k}
	}
	return k
}

// SetFirstRunHook installs the callback run exactly once, the first time
// any task goroutine is dispatched (analogous to forkret's deferred
// iinit/initlog). Must be called before any CPU's Scheduler starts.
func (k *Kernel) SetFirstRunHook(f func()) {
	k.onFirstRun = f
}

// NPROC returns the configured task table size.
func (k *Kernel) NPROC() int { return k.cfg.NPROC }

// CPUs returns the machine's simulated CPUs. Callers run each one's
// Scheduler on its own goroutine.
func (k *Kernel) CPUs() []*CPU { return k.cpus }

// Initproc returns the designated reaper, or nil before Boot has run.
func (k *Kernel) Initproc() *Task {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.initproc
}

// Boot allocates the first task ("initproc"), gives it a fresh address
// space and cwd, names it, and commits it Runnable — the Go analogue of
// xv6's userinit(). workload is the function the task's goroutine will
// execute once scheduled. Since initproc may never exit (Exit panics when
// called on it), workload must not call Exit and must not return; it
// typically loops reaping children and sleeping.
func (k *Kernel) Boot(workload TaskFunc) (*Task, error) {
	t, err := k.allocateTCB()
	if err != nil {
		return nil, err
	}

	t.pgdir = vmlayer.SetupKVM(k.cfg.VMCeiling)
	t.sz = uint64(k.cfg.KStackPages) * 4096
	if _, err := t.pgdir.Alloc(0, t.sz); err != nil {
		return nil, wrap(err, "boot: initial address space")
	}
	setName(&t.name, "initcode")

	k.mu.Lock()
	k.initproc = t
	t.state = Runnable
	k.mu.Unlock()

	k.startTaskGoroutine(t, workload)
	k.log.WithFields(logrus.Fields{"pid": t.pid, "tid": t.tid}).Info("initproc booted")
	return t, nil
}

// withTable runs f with the table lock held. It exists purely so call
// sites read as a single guarded block, matching the acquire/.../release
// shape of every xv6 function that touches ptable.
func (k *Kernel) withTable(f func()) {
	k.mu.Lock()
	defer k.mu.Unlock()
	f()
}

// forEachTaskLocked calls f for every slot in the table, in index order. f
// returning false stops the scan early. Callers must hold k.mu.
func (k *Kernel) forEachTaskLocked(f func(p *Task) bool) {
	for _, p := range k.tasks {
		if !f(p) {
			return
		}
	}
}
