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

	"github.com/google/go-cmp/cmp"
	"gotest.tools/v3/assert"

	"github.com/xv6ng/kernelcore/kernel"
)

// sizeSnapshot captures the slice of Task state that Growproc is documented
// to propagate identically across every TCB sharing a pid.
type sizeSnapshot struct {
	Size  uint64
	Limit uint64
}

func snapshot(t *kernel.Task) sizeSnapshot {
	return sizeSnapshot{Size: t.Size(), Limit: t.Limit()}
}

func TestGrowprocPropagatesSizeToSiblingThreads(t *testing.T) {
	k, stop := newTestKernel(t)
	defer stop()
	initproc := bootIdleInit(t, k)

	done := make(chan struct{})
	_, err := k.Fork(initproc, func(main *kernel.Task) {
		var helper *kernel.Task
		helperReady := make(chan struct{})
		_, err := k.ThreadCreate(main, func(h *kernel.Task) {
			helper = h
			close(helperReady)
			noop := func() {}
			h.Sleep(k, h, noop, noop)
		})
		assert.NilError(t, err)
		<-helperReady
		time.Sleep(10 * time.Millisecond)

		before := main.Size()
		assert.NilError(t, main.Growproc(k, 3*4096))

		want := sizeSnapshot{Size: before + 3*4096, Limit: main.Limit()}
		if diff := cmp.Diff(want, snapshot(main)); diff != "" {
			t.Errorf("main snapshot mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(want, snapshot(helper)); diff != "" {
			t.Errorf("helper snapshot mismatch after sibling's growproc (-want +got):\n%s", diff)
		}

		close(done)
		main.Exit(k)
	})
	assert.NilError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("main thread never completed")
	}
}
