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

import "github.com/xv6ng/kernelcore/kernel/vmlayer"

// Loader builds a fresh address space for a named program, standing in for
// ELF loading plus user/kernel stack setup (an explicit Non-goal of the
// process/thread core). A Loader is supplied by whatever embeds this
// kernel package — cmd/kerneld's demo loader simply allocates stackPages
// worth of zeroed space and hands back a TaskFunc that runs an in-memory
// Go closure in place of interpreted machine code.
type Loader interface {
	Load(path string, stackPages int) (*vmlayer.AddressSpace, uint64, TaskFunc, error)
}

// Exec2 replaces the caller's address space with a freshly loaded program,
// mirroring project02's exec2(path, argv, stackPages) extension of xv6's
// exec(): stackPages lets the caller request a larger-than-default user
// stack, unlike stock xv6's fixed one-page stack. The caller's old address
// space is discarded only after the new one is built successfully, so a
// failed Exec2 leaves the caller running unchanged — exactly as exec()
// must, since by convention it never returns to its caller on success.
func (t *Task) Exec2(k *Kernel, loader Loader, path string, stackPages int) error {
	newSpace, sz, fn, err := loader.Load(path, stackPages)
	if err != nil {
		return wrap(err, "exec2: load")
	}

	oldSpace := t.pgdir
	k.withTable(func() {
		t.pgdir = newSpace
		setName(&t.name, path)
		propagateSizeLocked(k, t.pid, sz)
	})
	t.pgdir.SwitchUVM(t.CPUID())
	oldSpace.Free()

	fn(t)
	return nil
}
