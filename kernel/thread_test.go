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

package kernel_test

import (
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/xv6ng/kernelcore/kernel"
)

func TestThreadCreateSharesAddressSpaceAndJoinDeliversRetval(t *testing.T) {
	k, stop := newTestKernel(t)
	defer stop()
	initproc := bootIdleInit(t, k)

	var mainTask *kernel.Task
	mainDone := make(chan struct{})
	_, err := k.Fork(initproc, func(main *kernel.Task) {
		mainTask = main
		helperTID, err := k.ThreadCreate(main, func(helper *kernel.Task) {
			assert.Assert(t, !helper.IsMainThread())
			assert.Equal(t, helper.PID(), main.PID())
			assert.Assert(t, helper.TID() != main.TID())
			helper.ThreadExit(k, 42)
		})
		assert.NilError(t, err)

		retval, err := main.ThreadJoin(k, helperTID)
		assert.NilError(t, err)
		assert.Equal(t, retval.(int), 42)

		close(mainDone)
		main.Exit(k)
	})
	assert.NilError(t, err)

	select {
	case <-mainDone:
	case <-time.After(time.Second):
		t.Fatal("main thread never completed")
	}
	_ = mainTask
}

func TestThreadJoinSelfRejected(t *testing.T) {
	k, stop := newTestKernel(t)
	defer stop()
	initproc := bootIdleInit(t, k)

	done := make(chan struct{})
	_, err := k.Fork(initproc, func(main *kernel.Task) {
		_, err := main.ThreadJoin(k, main.TID())
		assert.ErrorIs(t, err, kernel.ErrSelfJoin)
		close(done)
		main.Exit(k)
	})
	assert.NilError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("main thread never ran")
	}
}

func TestThreadJoinNoChildrenWhenNoSiblings(t *testing.T) {
	k, stop := newTestKernel(t)
	defer stop()
	initproc := bootIdleInit(t, k)

	done := make(chan struct{})
	_, err := k.Fork(initproc, func(main *kernel.Task) {
		_, err := main.ThreadJoin(k, 0)
		assert.ErrorIs(t, err, kernel.ErrNoChildren)
		close(done)
		main.Exit(k)
	})
	assert.NilError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("main thread never ran")
	}
}

// TestExitCollapsesSiblingThreads exercises thread_clear's documented,
// deliberately-not-softened behavior: a main thread calling Exit directly
// while a sibling thread still exists reclaims that sibling's slot
// unconditionally, rather than waiting for it to finish.
func TestExitCollapsesSiblingThreads(t *testing.T) {
	k, stop := newTestKernel(t)
	defer stop()
	initproc := bootIdleInit(t, k)

	helperParked := make(chan struct{})
	mainDone := make(chan struct{})
	_, err := k.Fork(initproc, func(main *kernel.Task) {
		_, err := k.ThreadCreate(main, func(helper *kernel.Task) {
			close(helperParked)
			noop := func() {}
			helper.Sleep(k, helper, noop, noop) // never exits on its own
		})
		assert.NilError(t, err)

		<-helperParked
		time.Sleep(10 * time.Millisecond) // let the helper actually park
		main.Exit(k)
		close(mainDone)
	})
	assert.NilError(t, err)

	select {
	case <-mainDone:
	case <-time.After(time.Second):
		t.Fatal("main thread's Exit call never returned control to its goroutine")
	}
}
