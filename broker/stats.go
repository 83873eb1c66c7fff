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

package broker

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lorasim/lr-ns/logger"
	"github.com/lorasim/lr-ns/progctx"
)

// brokerMetrics exports the broker counters over a Prometheus registry.
// Each broker gets its own registry so multiple brokers can coexist in
// one process.
type brokerMetrics struct {
	reg       *prometheus.Registry
	delivered prometheus.Counter
	dropped   *prometheus.CounterVec
}

func newBrokerMetrics(b *Broker) *brokerMetrics {
	m := &brokerMetrics{
		reg: prometheus.NewRegistry(),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lrns_frames_delivered_total",
			Help: "Frames delivered to receivers.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lrns_frames_dropped_total",
			Help: "Frames dropped, by drop reason.",
		}, []string{"reason"}),
	}
	m.reg.MustRegister(m.delivered, m.dropped)
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "lrns_inflight_frames",
		Help: "Frames currently in flight on the medium.",
	}, func() float64 {
		return float64(b.activeTransmissions.Load())
	}))
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "lrns_registered_nodes",
		Help: "Nodes currently registered.",
	}, func() float64 {
		return float64(b.registry.count())
	}))
	return m
}

// serve exposes /metrics on addr until the program context is cancelled.
// A failure to serve is logged, not fatal; the broker works without it.
func (m *brokerMetrics) serve(ctx *progctx.ProgCtx, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	ctx.WaitAdd("metrics", 1)
	go func() {
		defer ctx.WaitDone("metrics")
		logger.Infof("metrics listening on http://%s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("metrics server: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
