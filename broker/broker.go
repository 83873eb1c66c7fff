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

// Package broker implements the virtual RF medium: it serves node
// connections over TCP, runs every transmitted frame through the radio
// model and drop oracle, and schedules deliveries to the receivers.
package broker

import (
	"fmt"
	"net"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/lorasim/lr-ns/logger"
	"github.com/lorasim/lr-ns/pcap"
	"github.com/lorasim/lr-ns/prng"
	"github.com/lorasim/lr-ns/progctx"
	"github.com/lorasim/lr-ns/radiomodel"
)

// Broker is the virtual RF medium. One reader goroutine runs per node
// connection and one delivery goroutine per frame accepted for delivery;
// they share the registry and the counters below.
type Broker struct {
	ctx *progctx.ProgCtx
	cfg Config
	ln  net.Listener

	registry *registry

	// activeTransmissions counts frames accepted for delivery and not yet
	// written (or abandoned). Every increment is paired with exactly one
	// decrement.
	activeTransmissions atomic.Int64
	// concurrentBySf counts in-flight frames per spreading factor, indexed
	// 7..12; the oracle's interference term reads it.
	concurrentBySf [radiomodel.MaxSpreadFactor + 1]atomic.Int64

	Counters struct {
		Registered   atomic.Uint64
		Disconnected atomic.Uint64
		Delivered    atomic.Uint64
		Dropped      atomic.Uint64
		Malformed    atomic.Uint64
	}

	metrics *brokerMetrics
	capture *pcap.File
	stopped atomic.Bool
}

// NewBroker binds the listen socket and prepares the broker. A bind
// failure is returned to the caller; the process treats it as fatal.
func NewBroker(ctx *progctx.ProgCtx, cfg *Config) (*Broker, error) {
	prng.Init(cfg.Seed)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "bind %s", addr)
	}
	logger.Infof("broker listening on %s ...", ln.Addr())

	b := &Broker{
		ctx:      ctx,
		cfg:      *cfg,
		ln:       ln,
		registry: newRegistry(),
	}
	b.metrics = newBrokerMetrics(b)
	if cfg.MetricsAddr != "" {
		b.metrics.serve(ctx, cfg.MetricsAddr)
	}
	if cfg.PcapFile != "" {
		b.capture, err = pcap.NewFile(cfg.PcapFile)
		if err != nil {
			_ = ln.Close()
			return nil, errors.Wrapf(err, "create capture %s", cfg.PcapFile)
		}
		logger.Infof("capturing delivered frames to %s", cfg.PcapFile)
	}
	return b, nil
}

// Addr returns the bound listen address.
func (b *Broker) Addr() net.Addr {
	return b.ln.Addr()
}

// NodeCount returns the number of registered nodes.
func (b *Broker) NodeCount() int {
	return b.registry.count()
}

// Nodes returns a snapshot of the registered nodes.
func (b *Broker) Nodes() []*Node {
	return b.registry.list()
}

// ActiveTransmissions returns the current in-flight frame count.
func (b *Broker) ActiveTransmissions() int64 {
	return b.activeTransmissions.Load()
}

// Run accepts node connections until the program context is cancelled.
func (b *Broker) Run() {
	logger.AssertFalse(b.stopped.Load())

	b.ctx.WaitAdd("broker", 1)
	defer b.ctx.WaitDone("broker")
	defer logger.Debugf("broker exit.")
	defer b.Stop()

	go func() {
		<-b.ctx.Done()
		b.Stop()
	}()

	for {
		conn, err := b.ln.Accept()
		if err != nil {
			if b.ctx.Err() != nil || b.stopped.Load() {
				return
			}
			logger.Errorf("accept failed: %v", err)
			return
		}
		b.ctx.WaitAdd("conn", 1)
		go func() {
			defer b.ctx.WaitDone("conn")
			b.serveConn(conn)
		}()
	}
}

// Stop closes the listener and every node connection. Idempotent.
func (b *Broker) Stop() {
	if !b.stopped.CompareAndSwap(false, true) {
		return
	}
	_ = b.ln.Close()
	for _, node := range b.registry.list() {
		_ = node.conn.Close()
	}
	if b.capture != nil {
		_ = b.capture.Sync()
		_ = b.capture.Close()
	}
}

func (b *Broker) sfCounter(sf int) *atomic.Int64 {
	if sf < radiomodel.MinSpreadFactor || sf > radiomodel.MaxSpreadFactor {
		sf = radiomodel.MinSpreadFactor
	}
	return &b.concurrentBySf[sf]
}
