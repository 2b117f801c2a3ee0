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

package kernel

import "github.com/pkg/errors"

// Errno is a sentinel error returned to user mode by a syscall wrapper.
// Unlike an in-kernel invariant violation (which panics), an Errno is an
// ordinary, expected outcome: resource exhaustion, a bad argument, a race
// lost against another task. Compare linuxerr's sentinel-error style.
type Errno struct {
	msg string
}

func (e *Errno) Error() string { return e.msg }

var (
	// ErrTableFull is returned when allocateTCB finds no UNUSED slot.
	ErrTableFull = &Errno{"process table is full"}

	// ErrNoMem names the out-of-memory outcome. No operation in this
	// package returns it: user address-space allocation failures surface
	// as a wrapped vmlayer.ErrOOM instead.
	ErrNoMem = &Errno{"out of memory"}

	// ErrLimitExceeded is returned by growproc/thread_create when growth
	// would push sz past a non-zero limit.
	ErrLimitExceeded = &Errno{"memory limit exceeded"}

	// ErrNoSuchProcess is returned by kill/setmemorylimit when no
	// matching pid exists.
	ErrNoSuchProcess = &Errno{"no such process"}

	// ErrNoChildren is returned by wait when the caller has no children.
	ErrNoChildren = &Errno{"no children"}

	// ErrKilled is returned by a blocking call that observed killed set.
	ErrKilled = &Errno{"interrupted: killed"}

	// ErrSelfJoin is returned by thread_join when a thread tries to join
	// itself.
	ErrSelfJoin = &Errno{"cannot join self"}

	// ErrLimitTooLow is returned by setmemorylimit when limit < current sz.
	ErrLimitTooLow = &Errno{"limit below current size"}
)

// wrap attaches call-site context to an internal failure without losing the
// underlying cause, mirroring the teacher's use of github.com/pkg/errors
// around external collaborator calls (vmlayer, filetable).
func wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}
