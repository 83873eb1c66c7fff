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
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestAirtimeDefaultParams(t *testing.T) {
	// SF7, CR 4/5, 8 preamble symbols, 24-byte payload, 125 kHz
	assert.InDelta(t, 61.696, AirtimeMs(DefaultTxParams(24)), 0.001)
}

func TestAirtimePerSpreadFactor(t *testing.T) {
	expected := map[int]float64{
		7:  61.696,
		8:  113.152,
		9:  205.824,
		10: 370.688,
		11: 823.296, // low-data-rate optimization from SF11
		12: 1482.752,
	}
	for sf, ms := range expected {
		par := DefaultTxParams(24)
		par.SpreadFactor = sf
		assert.InDelta(t, ms, AirtimeMs(par), 0.001, "sf=%d", sf)
	}
}

func TestAirtimeGrowsWithSpreadFactor(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		par := DefaultTxParams(rapid.IntRange(1, 250).Draw(t, "payload"))
		par.CodingRate = rapid.IntRange(1, 4).Draw(t, "cr")
		for sf := MinSpreadFactor; sf < MaxSpreadFactor; sf++ {
			lo, hi := par, par
			lo.SpreadFactor = sf
			hi.SpreadFactor = sf + 1
			assert.Less(t, AirtimeMs(lo), AirtimeMs(hi))
		}
	})
}

func TestAirtimeGrowsWithPayload(t *testing.T) {
	small := DefaultTxParams(10)
	large := DefaultTxParams(200)
	assert.Less(t, AirtimeMs(small), AirtimeMs(large))
}
