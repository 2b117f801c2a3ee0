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

package vmlayer_test

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/xv6ng/kernelcore/kernel/vmlayer"
)

func TestAllocRejectsOverCeiling(t *testing.T) {
	a := vmlayer.SetupKVM(8192)
	sz, err := a.Alloc(0, 8192)
	assert.NilError(t, err)
	assert.Equal(t, sz, uint64(8192))

	_, err = a.Alloc(8192, 8193)
	assert.ErrorIs(t, err, vmlayer.ErrOOM)
}

func TestCopyIsIndependent(t *testing.T) {
	a := vmlayer.SetupKVM(1 << 20)
	_, err := a.Alloc(0, 4096)
	assert.NilError(t, err)

	b, err := a.Copy()
	assert.NilError(t, err)
	assert.Assert(t, b != a)
	assert.Equal(t, b.Size(), a.Size())

	_, err = b.Alloc(4096, 8192)
	assert.NilError(t, err)
	assert.Equal(t, a.Size(), uint64(4096))
	assert.Equal(t, b.Size(), uint64(8192))
}

func TestAllocThreadStackGrowsPastCurrentSize(t *testing.T) {
	a := vmlayer.SetupKVM(1 << 20)
	_, err := a.Alloc(0, 4096)
	assert.NilError(t, err)

	newsz, err := a.AllocThreadStack(a.Size(), 4096)
	assert.NilError(t, err)
	assert.Equal(t, newsz, uint64(8192))
}

func TestFreeResetsSize(t *testing.T) {
	a := vmlayer.SetupKVM(1 << 20)
	_, err := a.Alloc(0, 4096)
	assert.NilError(t, err)
	a.Free()
	assert.Equal(t, a.Size(), uint64(0))
}
