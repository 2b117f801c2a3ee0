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
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/containerd/console"
)

// maxArgs and maxArgLen mirror pmanager.c's fixed-size argv/token buffers:
// a line tokenizing to more than maxArgs words, or containing a word
// longer than maxArgLen, is rejected outright rather than silently
// truncated.
const (
	maxArgs   = 10
	maxArgLen = 100
)

// tokenize splits line on whitespace and enforces the bounds above,
// returning an error naming which bound was exceeded instead of quietly
// dropping data.
func tokenize(line string) ([]string, error) {
	fields := strings.Fields(line)
	if len(fields) > maxArgs {
		return nil, fmt.Errorf("too many arguments (max %d)", maxArgs)
	}
	for _, f := range fields {
		if len(f) > maxArgLen {
			return nil, fmt.Errorf("argument too long (max %d chars): %q", maxArgLen, f)
		}
	}
	return fields, nil
}

// runREPL reads commands from stdin until "exit" or EOF. It puts the
// terminal in raw mode when stdin is a real console, matching pmanager.c's
// raw-mode line discipline, and falls back to cooked bufio.Scanner reads
// otherwise (e.g. when stdin is piped, as in tests and scripted use).
func runREPL(m *manager) {
	if cur, err := console.ConsoleFromFile(os.Stdin); err == nil {
		if cur.SetRaw() == nil {
			defer cur.Reset()
		}
	}
	// stdin isn't backed by a real console (piped, redirected, or under
	// test) — fall through and read it with bufio.Scanner as-is.

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Fprint(os.Stdout, "> ")
	for scanner.Scan() {
		line := scanner.Text()
		args, err := tokenize(line)
		if err != nil {
			fmt.Fprintln(os.Stderr, "pmanager:", err)
			fmt.Fprint(os.Stdout, "> ")
			continue
		}
		if len(args) == 0 {
			fmt.Fprint(os.Stdout, "> ")
			continue
		}

		if !dispatch(m, args) {
			break
		}
		fmt.Fprint(os.Stdout, "> ")
	}
}

// dispatch runs one already-tokenized command line. It returns false when
// the REPL should stop (the "exit" command).
func dispatch(m *manager, args []string) bool {
	switch args[0] {
	case "exit":
		return false

	case "list":
		m.list(os.Stdout)

	case "kill":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "usage: kill <pid>")
			return true
		}
		pid, err := strconv.ParseInt(args[1], 10, 32)
		if err != nil {
			fmt.Fprintln(os.Stderr, "kill: bad pid:", err)
			return true
		}
		if err := m.kill(int32(pid)); err != nil {
			fmt.Fprintln(os.Stdout, "kill fail.")
		} else {
			fmt.Fprintln(os.Stdout, "kill success.")
		}

	case "execute":
		if len(args) != 3 {
			fmt.Fprintln(os.Stderr, "usage: execute <path> <stack-pages>")
			return true
		}
		pages, err := strconv.Atoi(args[2])
		if err != nil {
			fmt.Fprintln(os.Stderr, "execute: bad stack-pages:", err)
			return true
		}
		if _, err := m.execute(args[1], pages); err != nil {
			fmt.Fprintln(os.Stderr, "execute:", err)
		}
		// The child's own exec2 attempt prints "execute fail." on failure;
		// the manager itself yields no message on either path.

	case "memlim":
		if len(args) != 3 {
			fmt.Fprintln(os.Stderr, "usage: memlim <pid> <bytes>")
			return true
		}
		pid, err := strconv.ParseInt(args[1], 10, 32)
		if err != nil {
			fmt.Fprintln(os.Stderr, "memlim: bad pid:", err)
			return true
		}
		limit, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			fmt.Fprintln(os.Stderr, "memlim: bad limit:", err)
			return true
		}
		if err := m.memlim(int32(pid), limit); err != nil {
			fmt.Fprintln(os.Stdout, "memlim fail.")
		} else {
			fmt.Fprintln(os.Stdout, "memlim success.")
		}

	default:
		fmt.Fprintf(os.Stderr, "pmanager: unknown command %q\n", args[0])
	}
	return true
}
