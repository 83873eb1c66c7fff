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
	"math"
	"time"

	"github.com/lorasim/lr-ns/logger"
	"github.com/lorasim/lr-ns/pcap"
	"github.com/lorasim/lr-ns/radiomodel"
	"github.com/lorasim/lr-ns/wire"
)

// txParamsFromMeta applies the defaults of the recognized meta options.
// Unknown keys are carried through to the receiver untouched.
func txParamsFromMeta(meta wire.Meta, payloadLen int) radiomodel.TxParams {
	par := radiomodel.DefaultTxParams(payloadLen)
	par.TxPowerDbm = meta.Int("tx_power", par.TxPowerDbm)
	par.SpreadFactor = meta.Int("sf", par.SpreadFactor)
	par.FrequencyMhz = meta.Float("frequency", par.FrequencyMhz)
	par.Aqi = meta.Int("aqi", par.Aqi)
	par.Weather = meta.String("weather", par.Weather)
	par.Obstacle = meta.String("obstacle", par.Obstacle)
	par.CodingRate = meta.Int("coding_rate", par.CodingRate)
	par.PreambleSyms = meta.Int("preamble", par.PreambleSyms)
	par.PayloadBytes = meta.Int("payload_bytes", par.PayloadBytes)
	return par
}

// resolveBroadcast reports whether a tx frame fans out to all peers: an
// explicit broadcast flag, an absent destination, or the RadioHead
// broadcast address 0xFF.
func resolveBroadcast(meta wire.Meta) (wire.NodeId, bool) {
	if meta.Bool("broadcast", false) || !meta.Has("destination") {
		return 0, true
	}
	dest := wire.NodeId(meta.Int("destination", int(wire.BroadcastNodeId)))
	if dest == wire.BroadcastNodeId {
		return 0, true
	}
	return dest, false
}

// processTransmission runs one accepted tx frame through the radio model
// and the drop oracle for every recipient, and schedules the surviving
// deliveries.
func (b *Broker) processTransmission(sender *Node, frame *wire.Frame) {
	par := txParamsFromMeta(frame.Meta, len(frame.Data))

	var receivers []*Node
	dest, isBroadcast := resolveBroadcast(frame.Meta)
	if isBroadcast {
		receivers = b.registry.listExcept(sender.Id)
	} else {
		rx, ok := b.registry.lookup(dest)
		if !ok {
			b.logDrop(sender.Id, dest, par, nil, radiomodel.DropNoRoute)
			return
		}
		receivers = []*Node{rx}
	}

	for _, rx := range receivers {
		outcome := radiomodel.Evaluate(sender.Position(), rx.Position(), par, sender.rnd)

		b.activeTransmissions.Inc()
		sfCount := b.sfCounter(par.SpreadFactor)
		sfCount.Inc()

		st := radiomodel.DropState{
			ActiveTransmissions: int(b.activeTransmissions.Load()),
			LossStreak:          rx.streak(sender.Id),
			ConcurrentSameSf:    int(sfCount.Load()),
			SinceLastDeliveryMs: rx.sinceLastDeliveryMs(time.Now()),
		}
		decision := radiomodel.DecideDrop(outcome, par, st, sender.rnd)

		if decision.Dropped {
			rx.bumpStreak(sender.Id)
			b.logDrop(sender.Id, rx.Id, par, &outcome, decision.Reason)
			b.activeTransmissions.Dec()
			sfCount.Dec()
			continue
		}

		b.ctx.WaitAdd("delivery", 1)
		go b.deliverLater(sender.Id, rx, frame, par, outcome)
	}
}

// deliverLater waits out the modeled delay and writes the rx frame to the
// receiver. The in-flight counters are restored on every path: delivered,
// peer gone, or shutdown.
func (b *Broker) deliverLater(sender wire.NodeId, rx *Node, frame *wire.Frame, par radiomodel.TxParams, outcome radiomodel.Outcome) {
	defer b.ctx.WaitDone("delivery")
	defer b.activeTransmissions.Dec()
	defer b.sfCounter(par.SpreadFactor).Dec()

	timer := time.NewTimer(time.Duration(outcome.DelayMs * float64(time.Millisecond)))
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-b.ctx.Done():
		return
	}

	meta := frame.Meta.Clone()
	meta["from"] = int(sender)
	meta["sf"] = par.SpreadFactor
	if !meta.Has("destination") {
		meta["destination"] = nil
	}
	rxFrame := wire.NewRxFrame(frame.Data, round2(outcome.Rssi), round2(outcome.Snr), meta)

	if err := rx.writeFrame(rxFrame, b.cfg.WriteTimeout); err != nil {
		b.logDrop(sender, rx.Id, par, &outcome, radiomodel.DropPeerGone)
		if b.registry.remove(rx.Id, rx.conn) {
			_ = rx.conn.Close()
		}
		return
	}

	rx.markDelivered(sender, time.Now())
	b.Counters.Delivered.Inc()
	b.metrics.delivered.Inc()
	if b.capture != nil {
		if err := b.capture.AppendFrame(pcap.Frame{
			TimestampUs:  uint64(time.Now().UnixMicro()),
			Data:         []byte(frame.Data),
			FrequencyMhz: par.FrequencyMhz,
			Bandwidth:    radiomodel.BandwidthHz,
			SpreadFactor: uint8(par.SpreadFactor),
			Rssi:         outcome.Rssi,
			Snr:          outcome.Snr,
		}); err != nil {
			logger.Errorf("capture write failed: %v", err)
		}
	}
	logger.Infof("DELIVERED from=%d to=%d sf=%d rssi=%.2f snr=%.2f delay_ms=%.2f",
		sender, rx.Id, par.SpreadFactor, outcome.Rssi, outcome.Snr, outcome.DelayMs)
}

// logDrop accounts and logs one dropped frame. outcome may be nil for
// drops decided before propagation (no route, unregistered sender).
func (b *Broker) logDrop(sender, rx wire.NodeId, par radiomodel.TxParams, outcome *radiomodel.Outcome, reason radiomodel.DropReason) {
	b.Counters.Dropped.Inc()
	b.metrics.dropped.WithLabelValues(string(reason)).Inc()
	if outcome != nil {
		logger.Warnf("DROPPED from=%d to=%d sf=%d rssi=%.2f snr=%.2f delay_ms=%.2f reason=%s",
			sender, rx, par.SpreadFactor, outcome.Rssi, outcome.Snr, outcome.DelayMs, reason)
	} else {
		logger.Warnf("DROPPED from=%d to=%d sf=%d reason=%s", sender, rx, par.SpreadFactor, reason)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
