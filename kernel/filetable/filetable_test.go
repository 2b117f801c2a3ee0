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

package filetable_test

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/xv6ng/kernelcore/kernel/filetable"
)

func TestFileDupAndClose(t *testing.T) {
	f := filetable.NewFile("console")
	assert.Equal(t, f.Refs(), int32(1))

	dup := f.Dup()
	assert.Equal(t, dup, f) // Dup returns the same handle
	assert.Equal(t, f.Refs(), int32(2))

	f.Close()
	assert.Equal(t, f.Refs(), int32(1))
	f.Close()
	assert.Equal(t, f.Refs(), int32(0))
}

func TestDirDupAndPut(t *testing.T) {
	d := filetable.NewDir("/")
	assert.Equal(t, d.Path(), "/")
	d.Dup()
	assert.Equal(t, d.Refs(), int32(2))
	d.Put()
	d.Put()
	assert.Equal(t, d.Refs(), int32(0))
}
