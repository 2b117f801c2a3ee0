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
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/xv6ng/kernelcore/kernel"
)

func TestProcdumpListsOnlyLiveTasks(t *testing.T) {
	k, stop := newTestKernel(t)
	defer stop()
	initproc := bootIdleInit(t, k)

	var buf bytes.Buffer
	k.Procdump(&buf)
	assert.Assert(t, strings.Contains(buf.String(), "initcode"))

	var buf2 bytes.Buffer
	k.Procdump2(&buf2)
	listing := buf2.String()
	assert.Assert(t, strings.Contains(listing, "pid                   : 1"))
	assert.Assert(t, strings.Contains(listing, "allocated memory size : 8192"))
	assert.Assert(t, strings.Contains(listing, "memory maximum limit  : no limit"))

	_ = initproc
}

// TestProcdump2SuppressesSiblingThreads exercises the spec's "parent.pid
// == pid" filter: a process with a helper thread must still contribute
// exactly one Procdump2 row (its main thread), never one per thread.
func TestProcdump2SuppressesSiblingThreads(t *testing.T) {
	k, stop := newTestKernel(t)
	defer stop()
	initproc := bootIdleInit(t, k)

	helperReady := make(chan struct{})
	done := make(chan struct{})
	_, err := k.Fork(initproc, func(main *kernel.Task) {
		_, err := k.ThreadCreate(main, func(helper *kernel.Task) {
			close(helperReady)
			noop := func() {}
			helper.Sleep(k, helper, noop, noop)
		})
		assert.NilError(t, err)
		<-helperReady
		time.Sleep(10 * time.Millisecond)

		var buf bytes.Buffer
		k.Procdump2(&buf)
		pidLine := fmt.Sprintf("pid                   : %d", main.PID())
		assert.Equal(t, strings.Count(buf.String(), pidLine), 1)

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
