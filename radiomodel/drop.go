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

package radiomodel

import (
	"math"
	"math/rand"
)

// DropReason identifies why a frame did not reach a receiver.
type DropReason string

const (
	DropNone         DropReason = ""
	DropLowRssi      DropReason = "LOW_RSSI"
	DropLowSnr       DropReason = "LOW_SNR"
	DropOutOfRange   DropReason = "OUT_OF_RANGE"
	DropCollision    DropReason = "COLLISION"
	DropCongestion   DropReason = "CONGESTION"
	DropStreak       DropReason = "STREAK"
	DropSnrMargin    DropReason = "SNR_MARGIN"
	DropRssiMargin   DropReason = "RSSI_MARGIN"
	DropInterference DropReason = "INTERFERENCE"
	DropPeerGone     DropReason = "PEER_GONE"
	DropNoRoute      DropReason = "NO_ROUTE"
	DropUnregistered DropReason = "UNREGISTERED"
)

// CollisionGuardMs is the window after a delivery during which a receiver
// cannot decode another frame.
const CollisionGuardMs = 5

// MaxInflight is the in-flight frame count above which congestion loss
// ramps in.
const MaxInflight = 10

// maxDropProbability caps the summed probabilistic components.
const maxDropProbability = 0.98

// DropState is the broker-side state snapshot the oracle reads: the global
// in-flight count (including this frame), the consecutive-loss streak of
// the sender/receiver pair, the number of frames currently in flight on the
// same spreading factor (including this frame), and the time since the last
// successful delivery to the receiver.
type DropState struct {
	ActiveTransmissions int
	LossStreak          int
	ConcurrentSameSf    int
	SinceLastDeliveryMs float64
}

// DropDecision is the oracle's verdict for one frame over one link.
type DropDecision struct {
	Dropped     bool
	Reason      DropReason
	Probability float64
}

// probComponent pairs a probabilistic drop contribution with its reason.
// Order matters: it is the tie-break order for reason attribution.
type probComponent struct {
	reason DropReason
	p      float64
}

// DecideDrop returns the drop verdict for a frame whose propagation outcome
// is o. Hard conditions (insufficient RSSI or SNR, out of range, collision
// guard) drop with probability 1. Otherwise the probabilistic components
// are summed, capped, and a single uniform draw from rnd decides; the
// attributed reason is the largest contributor.
func DecideDrop(o Outcome, par TxParams, st DropState, rnd *rand.Rand) DropDecision {
	sf := clampSf(par.SpreadFactor)
	snrRange := SfSnrRange(sf)
	sensitivity := SfSensitivity(sf)

	switch {
	case o.Rssi < sensitivity:
		return DropDecision{Dropped: true, Reason: DropLowRssi, Probability: 1}
	case o.Snr < snrRange.Min:
		return DropDecision{Dropped: true, Reason: DropLowSnr, Probability: 1}
	case o.DistanceKm > SfMaxRangeKm(sf):
		return DropDecision{Dropped: true, Reason: DropOutOfRange, Probability: 1}
	case st.SinceLastDeliveryMs < CollisionGuardMs:
		return DropDecision{Dropped: true, Reason: DropCollision, Probability: 1}
	}

	pCongestion := math.Pow(math.Max(0, float64(st.ActiveTransmissions-MaxInflight)/MaxInflight), 2)
	pStreak := math.Min(0.5, 0.05*float64(st.LossStreak))
	pSnr := clamp(math.Exp(-(o.Snr-snrRange.Min)/float64(sf-5)), 0, 0.8)
	pRssi := clamp((sensitivity+3-o.Rssi)/6, 0, 0.6)
	pInterference := clamp(0.1*float64(st.ConcurrentSameSf-1), 0, 0.7)

	components := []probComponent{
		{DropCongestion, pCongestion},
		{DropStreak, pStreak},
		{DropSnrMargin, pSnr},
		{DropRssiMargin, pRssi},
		{DropInterference, pInterference},
	}

	total := 0.0
	largest := components[0]
	for _, c := range components {
		total += c.p
		if c.p > largest.p {
			largest = c
		}
	}
	total = math.Min(total, maxDropProbability)

	if rnd.Float64() < total {
		return DropDecision{Dropped: true, Reason: largest.reason, Probability: total}
	}
	return DropDecision{Probability: total}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
