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
	"errors"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/xv6ng/kernelcore/kernel"
	"github.com/xv6ng/kernelcore/kernel/vmlayer"
)

var errFakeLoad = errors.New("fake loader failure")

type fakeLoader struct {
	fail bool
	ran  chan struct{}
}

func (l *fakeLoader) Load(path string, stackPages int) (*vmlayer.AddressSpace, uint64, kernel.TaskFunc, error) {
	if l.fail {
		return nil, 0, nil, errFakeLoad
	}
	space := vmlayer.SetupKVM(1 << 20)
	sz := uint64(stackPages) * 4096
	if _, err := space.Alloc(0, sz); err != nil {
		return nil, 0, nil, err
	}
	return space, sz, func(t *kernel.Task) {
		close(l.ran)
	}, nil
}

func TestExec2ReplacesAddressSpaceAndRuns(t *testing.T) {
	k, stop := newTestKernel(t)
	defer stop()
	initproc := bootIdleInit(t, k)

	loader := &fakeLoader{ran: make(chan struct{})}
	done := make(chan struct{})
	_, err := k.Fork(initproc, func(child *kernel.Task) {
		assert.NilError(t, child.Exec2(k, loader, "/bin/demo", 3))
		assert.Equal(t, child.Size(), uint64(3*4096))
		assert.Equal(t, child.Name(), "/bin/demo")
		close(done)
		child.Exit(k)
	})
	assert.NilError(t, err)

	select {
	case <-loader.ran:
	case <-time.After(time.Second):
		t.Fatal("exec2's loaded program body never ran")
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("child never finished")
	}
}

func TestExec2FailureLeavesCallerUnchanged(t *testing.T) {
	k, stop := newTestKernel(t)
	defer stop()
	initproc := bootIdleInit(t, k)

	loader := &fakeLoader{fail: true, ran: make(chan struct{})}
	done := make(chan struct{})
	var sizeBefore, sizeAfter uint64
	_, err := k.Fork(initproc, func(child *kernel.Task) {
		sizeBefore = child.Size()
		err := child.Exec2(k, loader, "/bin/demo", 3)
		assert.ErrorContains(t, err, "exec2: load")
		sizeAfter = child.Size()
		close(done)
		child.Exit(k)
	})
	assert.NilError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("child never finished")
	}
	assert.Equal(t, sizeBefore, sizeAfter)
}
