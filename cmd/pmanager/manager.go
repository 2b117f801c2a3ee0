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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"

	"github.com/xv6ng/kernelcore/kernel"
	"github.com/xv6ng/kernelcore/kernel/vmlayer"
)

// manager bundles the booted machine and its program loader, shared by
// every verb regardless of whether it was reached from argv or the REPL.
type manager struct {
	k      *kernel.Kernel
	loader *replLoader
	log    logrus.FieldLogger
}

// replLoader is pmanager's analogue of demoLoader: "execute <path> <pages>"
// has nothing real to load either, so it runs one of a small fixed set of
// named in-memory programs.
type replLoader struct {
	vmCeiling uint64
}

func (l *replLoader) Load(path string, stackPages int) (*vmlayer.AddressSpace, uint64, kernel.TaskFunc, error) {
	space := vmlayer.SetupKVM(l.vmCeiling)
	sz := uint64(stackPages) * 4096
	if _, err := space.Alloc(0, sz); err != nil {
		return nil, 0, nil, err
	}
	fn, ok := replPrograms[path]
	if !ok {
		return nil, 0, nil, fmt.Errorf("pmanager: no such program %q", path)
	}
	return space, sz, fn, nil
}

var replPrograms = map[string]kernel.TaskFunc{
	"/bin/sh":   func(t *kernel.Task) {},
	"/bin/spin": func(t *kernel.Task) {},
}

func (m *manager) list(w *os.File) {
	m.k.Procdump2(w)
}

func (m *manager) kill(pid int32) error {
	return m.k.Kill(pid)
}

func (m *manager) execute(path string, stackPages int) (int32, error) {
	child, err := m.k.Fork(m.k.Initproc(), func(t *kernel.Task) {
		if err := t.Exec2(m.k, m.loader, path, stackPages); err != nil {
			fmt.Fprintln(os.Stdout, "execute fail.")
		}
		t.Exit(m.k)
	})
	return child, err
}

func (m *manager) memlim(pid int32, limit uint64) error {
	return m.k.SetMemoryLimit(pid, limit)
}

// --- subcommands.Command implementations, for one-shot argv dispatch ---

type listCmd struct{ m *manager }

func (*listCmd) Name() string             { return "list" }
func (*listCmd) Synopsis() string         { return "list every task in the table" }
func (*listCmd) Usage() string            { return "list\n" }
func (*listCmd) SetFlags(*flag.FlagSet)   {}
func (c *listCmd) Execute(context.Context, *flag.FlagSet, ...any) subcommands.ExitStatus {
	c.m.list(os.Stdout)
	return subcommands.ExitSuccess
}

type killCmd struct{ m *manager }

func (*killCmd) Name() string           { return "kill" }
func (*killCmd) Synopsis() string       { return "kill <pid>" }
func (*killCmd) Usage() string          { return "kill <pid>\n" }
func (*killCmd) SetFlags(*flag.FlagSet) {}
func (c *killCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	pid, err := strconv.ParseInt(f.Arg(0), 10, 32)
	if err != nil {
		fmt.Fprintln(os.Stderr, "kill: bad pid:", err)
		return subcommands.ExitUsageError
	}
	if err := c.m.kill(int32(pid)); err != nil {
		fmt.Fprintln(os.Stdout, "kill fail.")
		return subcommands.ExitFailure
	}
	fmt.Fprintln(os.Stdout, "kill success.")
	return subcommands.ExitSuccess
}

type executeCmd struct{ m *manager }

func (*executeCmd) Name() string           { return "execute" }
func (*executeCmd) Synopsis() string       { return "execute <path> <stack-pages>" }
func (*executeCmd) Usage() string          { return "execute <path> <stack-pages>\n" }
func (*executeCmd) SetFlags(*flag.FlagSet) {}
func (c *executeCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	pages, err := strconv.Atoi(f.Arg(1))
	if err != nil {
		fmt.Fprintln(os.Stderr, "execute: bad stack-pages:", err)
		return subcommands.ExitUsageError
	}
	if _, err := c.m.execute(f.Arg(0), pages); err != nil {
		fmt.Fprintln(os.Stderr, "execute:", err)
		return subcommands.ExitFailure
	}
	// The child's own exec2 attempt prints "execute fail." on failure;
	// the manager itself yields no message on either path.
	return subcommands.ExitSuccess
}

type memlimCmd struct{ m *manager }

func (*memlimCmd) Name() string           { return "memlim" }
func (*memlimCmd) Synopsis() string       { return "memlim <pid> <bytes>" }
func (*memlimCmd) Usage() string          { return "memlim <pid> <bytes>\n" }
func (*memlimCmd) SetFlags(*flag.FlagSet) {}
func (c *memlimCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	pid, err := strconv.ParseInt(f.Arg(0), 10, 32)
	if err != nil {
		fmt.Fprintln(os.Stderr, "memlim: bad pid:", err)
		return subcommands.ExitUsageError
	}
	limit, err := strconv.ParseUint(f.Arg(1), 10, 64)
	if err != nil {
		fmt.Fprintln(os.Stderr, "memlim: bad limit:", err)
		return subcommands.ExitUsageError
	}
	if err := c.m.memlim(int32(pid), limit); err != nil {
		fmt.Fprintln(os.Stdout, "memlim fail.")
		return subcommands.ExitFailure
	}
	fmt.Fprintln(os.Stdout, "memlim success.")
	return subcommands.ExitSuccess
}
