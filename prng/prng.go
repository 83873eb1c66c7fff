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

// Package prng provides the pseudo-random number streams used by the RF
// medium simulation. All streams derive from a single root seed, so that a
// fixed root seed reproduces identical radio outcomes across runs.
package prng

import (
	"math/rand"
	"sync"
	"time"
)

// RandomSeed is a seed value for a derived PRNG stream.
type RandomSeed int64

var (
	mu                    sync.Mutex
	rootSeed              int64
	nodeRandSeedGenerator *rand.Rand
)

func init() {
	Init(0)
}

// Init initializes the prng package, either with a fixed root seed
// (rootSeed != 0) or a time-based seed (rootSeed == 0).
func Init(seed int64) {
	mu.Lock()
	defer mu.Unlock()

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rootSeed = seed
	nodeRandSeedGenerator = rand.New(rand.NewSource(seed))
}

// RootSeed returns the root seed currently in effect.
func RootSeed() int64 {
	mu.Lock()
	defer mu.Unlock()
	return rootSeed
}

// NewNodeRandomSeed generates the seed for a newly registered node's radio
// stream. Seeds are handed out in registration order, so a fixed root seed
// plus a fixed registration order reproduces every node's draw sequence.
func NewNodeRandomSeed() RandomSeed {
	mu.Lock()
	defer mu.Unlock()
	return RandomSeed(nodeRandSeedGenerator.Int63())
}

// NewRadioRand returns a new radio PRNG stream for the given seed.
func NewRadioRand(seed RandomSeed) *rand.Rand {
	return rand.New(rand.NewSource(int64(seed)))
}
