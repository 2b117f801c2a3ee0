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

// Command pmanager is the interactive process-manager front end,
// the Go analogue of project02's pmanager.c: a REPL that lists, kills,
// executes and sets memory limits on tasks running in a booted machine.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"

	"github.com/xv6ng/kernelcore/internal/bootconfig"
	"github.com/xv6ng/kernelcore/kernel"
)

func main() {
	log := logrus.StandardLogger()

	var configPath string
	flag.StringVar(&configPath, "config", "", "path to a TOML boot config; built-in defaults if empty")
	flag.Parse()

	machine := bootconfig.Default()
	if configPath != "" {
		var err error
		machine, err = bootconfig.Load(configPath)
		if err != nil {
			log.WithError(err).Fatal("loading boot config")
		}
	}

	k := kernel.New(machine.KernelConfig(), log)
	loader := &replLoader{vmCeiling: machine.VMCeiling}

	idle := make(chan struct{})
	if _, err := k.Boot(func(t *kernel.Task) {
		// initproc idles, reaping the tasks pmanager forks as they exit;
		// pmanager drives everything else.
		noop := func() {}
		for {
			if _, err := t.Wait(k); err != nil {
				t.Sleep(k, t, noop, noop)
			}
		}
	}); err != nil {
		log.WithError(err).Fatal("boot failed")
	}
	close(idle)

	stop := make(chan struct{})
	for _, cpu := range k.CPUs() {
		go cpu.Scheduler(stop)
	}
	defer close(stop)

	mgr := &manager{k: k, loader: loader, log: log}

	cdr := subcommands.NewCommander(flag.CommandLine, "pmanager")
	cdr.Register(cdr.HelpCommand(), "")
	cdr.Register(&listCmd{mgr}, "")
	cdr.Register(&killCmd{mgr}, "")
	cdr.Register(&executeCmd{mgr}, "")
	cdr.Register(&memlimCmd{mgr}, "")

	if flag.NArg() > 0 {
		// One-shot mode: dispatch a single verb from argv, as a script
		// would, instead of entering the interactive loop.
		os.Exit(int(cdr.Execute(context.Background())))
	}

	runREPL(mgr)
}
