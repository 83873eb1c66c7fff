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

import "math"

// snrPenaltyMs maps SNR to a decoding delay penalty with a sigmoid: frames
// near the bottom of the SF's viable window take up to 30 ms longer to
// decode, frames near the top take almost nothing.
func snrPenaltyMs(snr DbValue, sf int) float64 {
	const (
		maxMs = 30.0
		k     = 1.5
	)
	r := SfSnrRange(sf)
	mid := r.Min + (r.Max-r.Min)/3
	return maxMs / (1 + math.Exp(k*(snr-mid)))
}

// envDelayMs is the propagation-environment delay contribution.
func envDelayMs(distKm float64, par TxParams) float64 {
	return WeatherAtten(par.Weather)*distKm*5 + ObstacleLoss(par.Obstacle)*0.5
}

// hwDelayMs models radio processing time, growing with the spreading factor
// and slightly with environment severity.
func hwDelayMs(par TxParams) float64 {
	sfGain := float64(clampSf(par.SpreadFactor) - MinSpreadFactor)
	base := 2 + 1.5*sfGain
	return base * (1 + 0.05*WeatherAtten(par.Weather) + 0.01*ObstacleLoss(par.Obstacle))
}

// jitterRangeMs returns the bounds of the uniform delivery jitter for a
// spreading factor.
func jitterRangeMs(sf int) (float64, float64) {
	scale := float64(clampSf(sf)) / float64(MinSpreadFactor)
	return 0.5 * scale, 3 * scale
}

// DelayMs computes the total modeled delivery delay in milliseconds, given
// a jitter sample jitterMs drawn from the range of jitterRangeMs.
func DelayMs(distKm float64, snr DbValue, par TxParams, jitterMs float64) float64 {
	return AirtimeMs(par) + snrPenaltyMs(snr, clampSf(par.SpreadFactor)) +
		envDelayMs(distKm, par) + hwDelayMs(par) + jitterMs
}
