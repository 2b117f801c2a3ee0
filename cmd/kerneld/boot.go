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
	"os"
	"time"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/xv6ng/kernelcore/internal/bootconfig"
	"github.com/xv6ng/kernelcore/kernel"
)

// bootCommand implements subcommands.Command for "boot": build a machine
// from a config file (or built-in defaults), boot initproc, run the fixed
// demo workload to completion, then dump the final table.
type bootCommand struct {
	configPath string
	timeout    time.Duration
}

func (*bootCommand) Name() string     { return "boot" }
func (*bootCommand) Synopsis() string { return "boot the simulated machine and run the demo workload" }
func (*bootCommand) Usage() string {
	return "boot [-config path.toml] [-timeout 5s]\n"
}

func (c *bootCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "path to a TOML boot config; built-in defaults if empty")
	f.DurationVar(&c.timeout, "timeout", 5*time.Second, "how long to let the demo workload run before forcing shutdown")
}

func (c *bootCommand) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	log := logrus.StandardLogger()

	machine := bootconfig.Default()
	if c.configPath != "" {
		var err error
		machine, err = bootconfig.Load(c.configPath)
		if err != nil {
			log.WithError(err).Error("loading boot config")
			return subcommands.ExitFailure
		}
	}

	k := kernel.New(machine.KernelConfig(), log)
	k.SetFirstRunHook(func() {
		log.Info("first task dispatched, filesystem init would happen here")
	})

	loader := &demoLoader{vmCeiling: machine.VMCeiling}

	done := make(chan struct{})
	if _, err := k.Boot(demoInit(k, loader, done)); err != nil {
		log.WithError(err).Error("boot failed")
		return subcommands.ExitFailure
	}

	stop := make(chan struct{})
	var g errgroup.Group
	for _, cpu := range k.CPUs() {
		cpu := cpu
		g.Go(func() error {
			cpu.Scheduler(stop)
			return nil
		})
	}

	select {
	case <-done:
	case <-time.After(c.timeout):
		log.Warn("demo workload did not finish before timeout")
	case <-ctx.Done():
	}
	close(stop)
	if err := g.Wait(); err != nil {
		log.WithError(err).Error("scheduler goroutine exited with error")
		return subcommands.ExitFailure
	}

	k.Procdump2(os.Stdout)
	return subcommands.ExitSuccess
}
