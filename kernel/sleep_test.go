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
	"sync/atomic"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/xv6ng/kernelcore/kernel"
)

// TestWakeupIsBroadcast forks two children sleeping on the same channel
// (a freshly allocated *int) and confirms a single Wakeup releases both,
// matching spec.md §4.4's broadcast contract.
func TestWakeupIsBroadcast(t *testing.T) {
	k, stop := newTestKernel(t)
	defer stop()
	initproc := bootIdleInit(t, k)

	event := new(int) // any distinct comparable value works as a Chan
	var woken int32
	bothAsleep := make(chan struct{}, 2)
	bothWoken := make(chan struct{}, 2)

	spawn := func() {
		_, err := k.Fork(initproc, func(self *kernel.Task) {
			noop := func() {}
			bothAsleep <- struct{}{}
			self.Sleep(k, event, noop, noop)
			atomic.AddInt32(&woken, 1)
			bothWoken <- struct{}{}
			self.Exit(k)
		})
		assert.NilError(t, err)
	}
	spawn()
	spawn()

	for i := 0; i < 2; i++ {
		select {
		case <-bothAsleep:
		case <-time.After(time.Second):
			t.Fatal("a sleeper never ran")
		}
	}
	// Give both goroutines a moment to actually reach the parked state
	// inside Sleep before waking them.
	time.Sleep(10 * time.Millisecond)

	k.Wakeup(event)

	for i := 0; i < 2; i++ {
		select {
		case <-bothWoken:
		case <-time.After(time.Second):
			t.Fatal("not all sleepers were woken by one Wakeup call")
		}
	}
	assert.Equal(t, atomic.LoadInt32(&woken), int32(2))
}
