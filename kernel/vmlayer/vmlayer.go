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

// Package vmlayer stands in for the page-table and address-space layer
// that the process/thread core calls into (setupkvm, copyuvm, allocuvm,
// deallocuvm, freevm, switchuvm, switchkvm). Real MMU mechanics are an
// explicit Non-goal of this repository; this package provides the minimal
// in-memory bookkeeping the core needs to exercise sz/limit accounting and
// the "address space is reloaded on the caller only" contract.
package vmlayer

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrOOM is returned when a simulated allocation would exceed the address
// space ceiling configured for the machine.
var ErrOOM = errors.New("vmlayer: out of simulated memory")

// AddressSpace is a handle shared by every thread of a process, identified
// by pointer equality (mirroring xv6's pgdir, a raw page-directory
// pointer).
type AddressSpace struct {
	mu sync.Mutex

	// ceiling bounds how large any AddressSpace may grow; it models a
	// whole-machine physical memory ceiling, independent of any
	// per-process limit tracked by the kernel package.
	ceiling uint64

	// size is the current size in bytes. Since all sibling threads share
	// the identity of this *AddressSpace, there is exactly one size for
	// the whole process; the kernel package additionally mirrors it onto
	// every sibling TCB per spec invariant 3.
	size uint64

	installedOnCPU int
}

// SetupKVM allocates a fresh address space, analogous to xv6's setupkvm()
// plus inituvm(): used both for a brand new process and (indirectly) as the
// destination of Copy for fork.
func SetupKVM(ceiling uint64) *AddressSpace {
	return &AddressSpace{ceiling: ceiling, installedOnCPU: -1}
}

// Size returns the current address space size.
func (a *AddressSpace) Size() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.size
}

// Copy deep-copies a into a brand new AddressSpace of the same size,
// analogous to xv6's copyuvm(). Used by fork.
func (a *AddressSpace) Copy() (*AddressSpace, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.size > a.ceiling {
		return nil, ErrOOM
	}
	return &AddressSpace{ceiling: a.ceiling, size: a.size, installedOnCPU: -1}, nil
}

// Alloc grows the address space from oldsz to newsz, analogous to
// allocuvm(). Returns the new size on success.
func (a *AddressSpace) Alloc(oldsz, newsz uint64) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if newsz > a.ceiling {
		return 0, ErrOOM
	}
	a.size = newsz
	return newsz, nil
}

// Dealloc shrinks the address space from oldsz to newsz, analogous to
// deallocuvm().
func (a *AddressSpace) Dealloc(oldsz, newsz uint64) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.size = newsz
	return newsz, nil
}

// AllocThreadStack carves out one page-equivalent region for a new thread's
// user stack inside the shared space, analogous to the allocuvm() call
// thread_create makes before placing the new stack.
func (a *AddressSpace) AllocThreadStack(oldsz uint64, pageSize uint64) (uint64, error) {
	return a.Alloc(oldsz, oldsz+pageSize)
}

// Free releases the address space entirely, analogous to freevm(). Called
// once by wait() when reaping a ZOMBIE main thread.
func (a *AddressSpace) Free() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.size = 0
	a.installedOnCPU = -1
}

// SwitchUVM installs a as the active address space on the given simulated
// CPU, analogous to switchuvm(p). Called by the scheduler when dispatching
// a task, and by growproc on the caller only (never on siblings).
func (a *AddressSpace) SwitchUVM(cpu int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.installedOnCPU = cpu
}

// SwitchKVM re-installs the kernel's own address space on the given
// simulated CPU, analogous to switchkvm(), called by the scheduler after a
// task yields the processor.
func SwitchKVM(cpu int) {
	// No state to track: the kernel address space is not represented by
	// an AddressSpace value in this simulation.
}
