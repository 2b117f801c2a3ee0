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

func TestSetMemoryLimitRejectsBelowCurrentSize(t *testing.T) {
	k, stop := newTestKernel(t)
	defer stop()
	initproc := bootIdleInit(t, k)

	grown := make(chan struct{})
	var childPID int32
	_, err := k.Fork(initproc, func(child *kernel.Task) {
		childPID = child.PID()
		assert.NilError(t, child.Growproc(k, 8192))
		close(grown)
		noop := func() {}
		child.Sleep(k, child, noop, noop)
	})
	assert.NilError(t, err)

	select {
	case <-grown:
	case <-time.After(time.Second):
		t.Fatal("child never grew")
	}

	err = k.SetMemoryLimit(childPID, 4096)
	assert.ErrorIs(t, err, kernel.ErrLimitTooLow)

	assert.NilError(t, k.SetMemoryLimit(childPID, 16384))
}

func TestSetMemoryLimitUnknownPID(t *testing.T) {
	k, stop := newTestKernel(t)
	defer stop()
	_ = bootIdleInit(t, k)

	err := k.SetMemoryLimit(4242, 4096)
	assert.ErrorIs(t, err, kernel.ErrNoSuchProcess)
}

func TestGrowprocRejectsPastLimit(t *testing.T) {
	k, stop := newTestKernel(t)
	defer stop()
	initproc := bootIdleInit(t, k)

	checked := make(chan error, 1)
	_, err := k.Fork(initproc, func(child *kernel.Task) {
		assert.NilError(t, k.SetMemoryLimit(child.PID(), child.Size()+1))
		checked <- child.Growproc(k, 4096)
		child.Exit(k)
	})
	assert.NilError(t, err)

	select {
	case err := <-checked:
		assert.ErrorIs(t, err, kernel.ErrLimitExceeded)
	case <-time.After(time.Second):
		t.Fatal("child never attempted growproc")
	}
}
