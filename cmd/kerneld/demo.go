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

package main

import (
	"github.com/sirupsen/logrus"

	"github.com/xv6ng/kernelcore/kernel"
	"github.com/xv6ng/kernelcore/kernel/vmlayer"
)

// demoLoader is cmd/kerneld's Loader: since there is no real ELF binary to
// load, it just builds an empty address space of the requested size and
// runs an in-memory Go closure in its place. demoInit receives it, but the
// demo workload does not call Exec2.
type demoLoader struct {
	vmCeiling uint64
}

func (d *demoLoader) Load(path string, stackPages int) (*vmlayer.AddressSpace, uint64, kernel.TaskFunc, error) {
	space := vmlayer.SetupKVM(d.vmCeiling)
	sz := uint64(stackPages) * 4096
	if _, err := space.Alloc(0, sz); err != nil {
		return nil, 0, nil, err
	}
	fn, ok := demoPrograms[path]
	if !ok {
		fn = func(t *kernel.Task) {}
	}
	return space, sz, fn, nil
}

// demoPrograms stands in for a set of installed binaries that demoLoader
// looks paths up in. cmd/pmanager keeps its own table (replPrograms).
var demoPrograms = map[string]kernel.TaskFunc{
	"/bin/spin": func(t *kernel.Task) {},
}

// demoInit is initproc's body: it forks a worker, creates a helper thread
// inside that worker, exercises growproc and setmemorylimit, waits for the
// worker to exit, then signals done.
func demoInit(k *kernel.Kernel, loader *demoLoader, done chan struct{}) kernel.TaskFunc {
	return func(initproc *kernel.Task) {
		log := logrus.StandardLogger()

		childPID, err := k.Fork(initproc, func(child *kernel.Task) {
			if err := child.Growproc(k, 4096); err != nil {
				log.WithError(err).Warn("demo worker: growproc")
			}

			childTID, err := k.ThreadCreate(child, func(th *kernel.Task) {
				th.ThreadExit(k, "helper done")
			})
			if err != nil {
				log.WithError(err).Warn("demo worker: thread_create")
			} else if _, err := child.ThreadJoin(k, childTID); err != nil {
				log.WithError(err).Warn("demo worker: thread_join")
			}

			if err := k.SetMemoryLimit(child.PID(), 1<<20); err != nil {
				log.WithError(err).Warn("demo worker: setmemorylimit")
			}

			child.Exit(k)
		})
		if err != nil {
			log.WithError(err).Error("demo init: fork")
			close(done)
			return
		}

		for {
			pid, err := initproc.Wait(k)
			if err == kernel.ErrNoChildren {
				break
			}
			if err != nil {
				log.WithError(err).Warn("demo init: wait")
				break
			}
			log.WithField("pid", pid).Info("reaped child")
			if pid == childPID {
				break
			}
		}
		close(done)
		// initproc never exits (invariant 7); park it on a channel nothing
		// ever wakes. Sleep acquires/releases the table lock itself here
		// since, unlike Wait/ThreadJoin, initproc isn't already holding it.
		noop := func() {}
		initproc.Sleep(k, initproc, noop, noop)
	}
}
