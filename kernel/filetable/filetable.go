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

// Package filetable stands in for the file and inode layer the
// process/thread core calls into for open-file and cwd refcounting
// (xv6's filedup/fileclose/idup/iput). The file system itself is an
// explicit Non-goal of this repository; this package only needs to make
// the refcount discipline observable: the main thread of a process owns a
// reference on behalf of all its threads, and sibling threads must never
// touch the refcount themselves.
package filetable

import "sync/atomic"

// File is a simplified open-file handle. Refcounting is explicit: callers
// must pair every Dup with a Close.
type File struct {
	name string
	refs int32
}

// NewFile creates a file handle with one reference, analogous to the
// refcount an open(2)-equivalent would establish.
func NewFile(name string) *File {
	return &File{name: name, refs: 1}
}

// Name returns the file's name, for diagnostics.
func (f *File) Name() string { return f.name }

// Dup increments the refcount and returns the same handle, analogous to
// xv6's filedup(). Only ever called by fork, never by thread_create.
func (f *File) Dup() *File {
	atomic.AddInt32(&f.refs, 1)
	return f
}

// Close decrements the refcount, analogous to xv6's fileclose(). Only ever
// called on process exit, never on thread_exit/thread_join of a non-main
// thread.
func (f *File) Close() {
	atomic.AddInt32(&f.refs, -1)
}

// Refs reports the current refcount, for tests asserting the aliasing
// invariant (sibling threads never move it).
func (f *File) Refs() int32 {
	return atomic.LoadInt32(&f.refs)
}

// Dir is a simplified current-directory handle with the same aliasing
// rules as File (xv6's idup/iput).
type Dir struct {
	path string
	refs int32
}

// NewDir creates a directory handle with one reference.
func NewDir(path string) *Dir {
	return &Dir{path: path, refs: 1}
}

// Path returns the directory's path, for diagnostics.
func (d *Dir) Path() string { return d.path }

// Dup increments the refcount, analogous to idup(). Only ever called by
// fork.
func (d *Dir) Dup() *Dir {
	atomic.AddInt32(&d.refs, 1)
	return d
}

// Put decrements the refcount, analogous to iput(). Only ever called on
// process exit.
func (d *Dir) Put() {
	atomic.AddInt32(&d.refs, -1)
}

// Refs reports the current refcount.
func (d *Dir) Refs() int32 {
	return atomic.LoadInt32(&d.refs)
}
