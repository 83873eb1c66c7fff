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

// Position is a node position in the kilometer plane.
type Position struct {
	X, Y float64
}

// DistanceKm returns the Euclidean distance to another position.
func (p Position) DistanceKm(o Position) float64 {
	dx := p.X - o.X
	dy := p.Y - o.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Outcome is the full propagation result of one frame over one link.
type Outcome struct {
	DistanceKm float64
	Rssi       DbValue
	Snr        DbValue
	AirtimeMs  float64
	DelayMs    float64
}

// Evaluate computes the propagation outcome of a frame sent from src to dst
// with the given options. Three draws are taken from rnd in fixed order
// (RSSI multipath fade, SNR fade, delivery jitter), so a seeded rnd
// reproduces the outcome bit-identically.
func Evaluate(src, dst Position, par TxParams, rnd *rand.Rand) Outcome {
	distKm := src.DistanceKm(dst)
	fadeWidth := fadingRangeDb(clampSf(par.SpreadFactor))

	rssiFade := (rnd.Float64()*2 - 1) * fadeWidth
	snrFade := (rnd.Float64()*2 - 1) * fadeWidth

	rssi := Rssi(distKm, par, rssiFade)
	snr := Snr(rssi, distKm, par, snrFade)

	jitterLo, jitterHi := jitterRangeMs(par.SpreadFactor)
	jitter := jitterLo + rnd.Float64()*(jitterHi-jitterLo)

	return Outcome{
		DistanceKm: distKm,
		Rssi:       rssi,
		Snr:        snr,
		AirtimeMs:  AirtimeMs(par),
		DelayMs:    DelayMs(distKm, snr, par, jitter),
	}
}
