// Copyright (c) 2025, The LR-NS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// Package console implements the interactive operator console of the
// broker process.
package console

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pkg/errors"

	"github.com/lorasim/lr-ns/broker"
	"github.com/lorasim/lr-ns/logger"
	"github.com/lorasim/lr-ns/prng"
	"github.com/lorasim/lr-ns/progctx"
)

// Console reads operator commands from a terminal and inspects or controls
// a running broker.
type Console struct {
	ctx    *progctx.ProgCtx
	broker *broker.Broker
	help   Help
}

// New creates a console attached to b.
func New(ctx *progctx.ProgCtx, b *broker.Broker) *Console {
	return &Console{
		ctx:    ctx,
		broker: b,
		help:   newHelp(),
	}
}

func (c *Console) prompt() string {
	return "lrns> "
}

// Run reads and executes commands until EOF, interrupt, or the exit
// command. It cancels the program context on return.
func (c *Console) Run() error {
	defer logger.Debugf("console exit.")
	defer c.ctx.Cancel("console closed")

	l, err := readline.NewEx(&readline.Config{
		Prompt:            c.prompt(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		FuncFilterInputRune: func(r rune) (rune, bool) {
			// block Ctrl-Z
			if r == readline.CharCtrlZ {
				return r, false
			}
			return r, true
		},
	})
	if err != nil {
		return errors.Wrap(err, "console init")
	}
	defer func() {
		_ = l.Close()
	}()

	for {
		line, err := l.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return nil
			}
			continue // Ctrl-C in midline edit only cancels the present line.
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}

		cmd := strings.TrimSpace(line)
		if len(cmd) == 0 {
			continue
		}
		if done := c.execute(cmd, l.Stdout()); done {
			return nil
		}
	}
}

// execute runs one command line and reports whether the console should
// close.
func (c *Console) execute(cmd string, out io.Writer) bool {
	args := strings.Fields(cmd)
	switch args[0] {
	case "nodes":
		c.cmdNodes(out)
	case "counters":
		c.cmdCounters(out)
	case "seed":
		fmt.Fprintf(out, "%d\n", prng.RootSeed())
	case "log":
		c.cmdLog(args[1:], out)
	case "help":
		if len(args) > 1 {
			fmt.Fprint(out, c.help.outputCommandHelp(args[1]))
		} else {
			fmt.Fprint(out, c.help.outputGeneralHelp())
		}
	case "exit", "quit":
		return true
	default:
		fmt.Fprintf(out, "unknown command: %s (try 'help')\n", args[0])
	}
	return false
}

func (c *Console) cmdNodes(out io.Writer) {
	nodes := c.broker.Nodes()
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Id < nodes[j].Id })
	for _, node := range nodes {
		pos := node.Position()
		fmt.Fprintf(out, "node %-4d location=(%v,%v)\n", node.Id, pos.X, pos.Y)
	}
	fmt.Fprintf(out, "%d node(s)\n", len(nodes))
}

func (c *Console) cmdCounters(out io.Writer) {
	b := c.broker
	fmt.Fprintf(out, "registered   %d\n", b.Counters.Registered.Load())
	fmt.Fprintf(out, "disconnected %d\n", b.Counters.Disconnected.Load())
	fmt.Fprintf(out, "delivered    %d\n", b.Counters.Delivered.Load())
	fmt.Fprintf(out, "dropped      %d\n", b.Counters.Dropped.Load())
	fmt.Fprintf(out, "malformed    %d\n", b.Counters.Malformed.Load())
	fmt.Fprintf(out, "inflight     %d\n", b.ActiveTransmissions())
}

func (c *Console) cmdLog(args []string, out io.Writer) {
	if len(args) == 0 {
		fmt.Fprintf(out, "log level: %v\n", logger.GetLevel())
		return
	}
	logger.SetLevel(logger.ParseLevel(args[0]))
	fmt.Fprintf(out, "log level set to %s\n", args[0])
}
