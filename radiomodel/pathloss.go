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

// minDistanceKm avoids a -Inf free-space term at co-location; the
// near-field attenuation below absorbs the co-location case in practice.
const minDistanceKm = 1e-6

// nearFieldKm is the distance (10 m) under which near-field attenuation
// ramps in.
const nearFieldKm = 0.01

// FreeSpacePathLoss returns the ITU free-space path loss (dB) over
// distKm at freqMhz.
func FreeSpacePathLoss(distKm, freqMhz float64) DbValue {
	return 32.45 + 20*math.Log10(math.Max(distKm, minDistanceKm)) + 20*math.Log10(freqMhz)
}

// environmentalLoss sums the losses (dB) beyond free space: air quality,
// weather, obstacle penetration, terrain, and near-field attenuation.
// Higher spreading factors recover part of each loss through their longer,
// more robust symbols.
func environmentalLoss(distKm float64, par TxParams) DbValue {
	sfGain := float64(par.SpreadFactor - MinSpreadFactor)
	loss := 0.0

	if par.Aqi > DefaultAqi {
		excess := float64(par.Aqi-DefaultAqi) / 50.0
		loss += math.Pow(excess, 1.5) * 0.5 * distKm * (1 - 0.02*sfGain)
	}

	loss += WeatherAtten(par.Weather) * distKm
	loss += ObstacleLoss(par.Obstacle) * (1 - 0.025*sfGain)

	if distKm > 1 {
		loss += math.Log(distKm+1) * 3 * (1 - 0.03*sfGain)
	}

	if distKm < nearFieldKm {
		loss += 15 * (1 - distKm/nearFieldKm)
	}

	return loss
}

// fadingRangeDb returns the half-width f of the uniform [-f, +f] multipath
// fading interval for a spreading factor.
func fadingRangeDb(sf int) DbValue {
	return 2.5 - 0.2*float64(sf-MinSpreadFactor)
}

// Rssi computes the received signal strength (dBm) over distKm, given a
// multipath fading sample fadeDb.
func Rssi(distKm float64, par TxParams, fadeDb DbValue) DbValue {
	pathLoss := FreeSpacePathLoss(distKm, par.FrequencyMhz) + environmentalLoss(distKm, par) + fadeDb
	return float64(par.TxPowerDbm) - pathLoss
}

// EffectiveNoiseFloor returns the thermal noise floor plus receiver noise
// figure plus the distance-dependent urban noise term (dBm).
func EffectiveNoiseFloor(distKm float64) DbValue {
	noise := -174 + 10*math.Log10(BandwidthHz) + NoiseFigureDb
	urban := 1.0
	if distKm < 5 {
		urban = 3 - 0.4*distKm
	}
	return noise + urban
}

// Snr computes the signal-to-noise ratio (dB) at the receiver, given the
// already-computed RSSI and an independent fading sample. Half of the
// spreading-factor processing gain is credited; the other half is absorbed
// by an empirical distance decay. The result is clamped to the spreading
// factor's maximum.
func Snr(rssi DbValue, distKm float64, par TxParams, fadeDb DbValue) DbValue {
	sf := clampSf(par.SpreadFactor)
	processingGain := 10 * math.Log10(math.Pow(2, float64(sf)))
	decay := (0.45 - 0.025*float64(sf-MinSpreadFactor)) * distKm

	snr := rssi - EffectiveNoiseFloor(distKm) + 0.5*processingGain - decay + fadeDb
	return math.Min(snr, SfSnrRange(sf).Max)
}
