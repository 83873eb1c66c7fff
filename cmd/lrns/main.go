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

// lrns runs the virtual RF medium broker.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/lorasim/lr-ns/broker"
	"github.com/lorasim/lr-ns/console"
	"github.com/lorasim/lr-ns/logger"
	"github.com/lorasim/lr-ns/prng"
	"github.com/lorasim/lr-ns/progctx"
)

type mainArgs struct {
	ListenAddr  string
	ConfigFile  string
	Seed        int64
	LogLevel    string
	LogFile     string
	MetricsAddr string
	PcapFile    string
	NoConsole   bool
}

var args mainArgs

func parseArgs() {
	flag.StringVar(&args.ListenAddr, "listen", "0.0.0.0:8765", "TCP listen address and port")
	flag.StringVar(&args.ConfigFile, "config", "", "YAML config file")
	flag.Int64Var(&args.Seed, "seed", 0, "root random seed (0 picks a time-based seed)")
	flag.StringVar(&args.LogLevel, "log", "info", "log level: trace, debug, info, warn, error, fatal")
	flag.StringVar(&args.LogFile, "log-file", "", "also write the log to this file")
	flag.StringVar(&args.MetricsAddr, "metrics", "", "serve Prometheus metrics on this address (off when empty)")
	flag.StringVar(&args.PcapFile, "pcap", "", "capture delivered frames to this PCAP file (off when empty)")
	flag.BoolVar(&args.NoConsole, "no-console", false, "run without the interactive console")
	flag.Parse()
}

func main() {
	parseArgs()

	cfg := broker.DefaultConfig()
	if args.ConfigFile != "" {
		err := cfg.LoadFile(args.ConfigFile)
		logger.FatalfIfError(err, "cannot load config file: %v", err)
	}
	logger.FatalIfError(cfg.ApplyEnv())
	if flag.CommandLine.Changed("listen") || (cfg.Host == "" && cfg.Port == 0) {
		logger.FatalIfError(cfg.SetListenAddr(args.ListenAddr))
	}
	if flag.CommandLine.Changed("seed") {
		cfg.Seed = args.Seed
	}
	if flag.CommandLine.Changed("log") {
		cfg.LogLevel = args.LogLevel
	}
	if flag.CommandLine.Changed("metrics") {
		cfg.MetricsAddr = args.MetricsAddr
	}
	if flag.CommandLine.Changed("pcap") {
		cfg.PcapFile = args.PcapFile
	}
	if args.LogFile != "" {
		cfg.LogOutputs = append(cfg.LogOutputs, args.LogFile)
	}

	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
	if len(cfg.LogOutputs) > 0 {
		logger.SetOutput(append([]string{"stderr"}, cfg.LogOutputs...))
	}

	ctx := progctx.New(context.Background())
	if !args.NoConsole {
		// unblock the console readline on cancellation.
		ctx.Defer(func() {
			_ = os.Stdin.Close()
		})
	}
	handleSignals(ctx)

	b, err := broker.NewBroker(ctx, cfg)
	if err != nil {
		logger.Fatalf("broker start failed: %v", err)
	}
	logger.Infof("root seed: %d", prng.RootSeed())

	go b.Run()

	if args.NoConsole {
		<-ctx.Done()
	} else {
		// the console runs in the main goroutine and cancels the context
		// when it closes.
		if err := console.New(ctx, b).Run(); err != nil {
			logger.Errorf("console: %v", err)
		}
	}

	logger.Debugf("waiting for the broker to stop gracefully ...")
	ctx.Cancel(nil)
	b.Stop()
	ctx.Wait()
}

func handleSignals(ctx *progctx.ProgCtx) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGHUP)

	ctx.WaitAdd("handleSignals", 1)
	go func() {
		defer logger.Debugf("handleSignals exit.")
		defer ctx.WaitDone("handleSignals")

		for {
			select {
			case sig := <-c:
				logger.Infof("signal received: %v", sig)
				ctx.Cancel(nil)
			case <-ctx.Done():
				return
			}
		}
	}()
}
