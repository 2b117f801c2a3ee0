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

// Package bootconfig loads the simulated machine's boot-time parameters
// from a TOML file, the analogue of compiling xv6's param.h constants into
// the kernel image. Defaults match param.h exactly; a config file only
// needs to name the fields it wants to override.
package bootconfig

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/xv6ng/kernelcore/kernel"
)

// Machine is the on-disk shape of a boot config file.
type Machine struct {
	NPROC       int    `toml:"nproc"`
	NCPU        int    `toml:"ncpu"`
	KStackPages int    `toml:"kstack_pages"`
	VMCeiling   uint64 `toml:"vm_ceiling"`
}

// Default returns a Machine populated from kernel.DefaultConfig, so a
// config file that sets nothing still boots the same machine as no config
// file at all.
func Default() Machine {
	d := kernel.DefaultConfig()
	return Machine{
		NPROC:       d.NPROC,
		NCPU:        d.NCPU,
		KStackPages: d.KStackPages,
		VMCeiling:   d.VMCeiling,
	}
}

// Load reads and decodes a TOML boot config from path, starting from
// Default() so a partial file only overrides the fields it sets.
func Load(path string) (Machine, error) {
	m := Default()
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return Machine{}, errors.Wrapf(err, "bootconfig: decode %s", path)
	}
	return m, nil
}

// KernelConfig converts a Machine into the kernel.Config the kernel
// package itself understands.
func (m Machine) KernelConfig() kernel.Config {
	return kernel.Config{
		NPROC:       m.NPROC,
		NCPU:        m.NCPU,
		KStackPages: m.KStackPages,
		VMCeiling:   m.VMCeiling,
	}
}
