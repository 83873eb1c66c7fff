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

package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorasim/lr-ns/broker"
	"github.com/lorasim/lr-ns/progctx"
	"github.com/lorasim/lr-ns/wire"
)

func startTestBroker(t *testing.T) string {
	cfg := broker.DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	cfg.Seed = 1

	ctx := progctx.New(context.Background())
	b, err := broker.NewBroker(ctx, cfg)
	require.NoError(t, err)
	go b.Run()

	t.Cleanup(func() {
		ctx.Cancel(nil)
		b.Stop()
		ctx.Wait()
	})
	return b.Addr().String()
}

func TestDialRegisters(t *testing.T) {
	addr := startTestBroker(t)

	radio, err := Dial(addr, 1, 0.5, 0.5)
	require.NoError(t, err)
	defer func() { _ = radio.Close() }()

	assert.Equal(t, wire.NodeId(1), radio.NodeId)
	assert.Equal(t, wire.BroadcastNodeId, radio.Destination)
}

func TestDialRefused(t *testing.T) {
	_, err := Dial("127.0.0.1:1", 1, 0, 0)
	assert.Error(t, err)
}

func TestSendWithAckBroadcastNeedsNoAck(t *testing.T) {
	addr := startTestBroker(t)

	radio, err := Dial(addr, 1, 0, 0)
	require.NoError(t, err)
	defer func() { _ = radio.Close() }()

	ok, err := radio.SendWithAck([]byte("to all"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSendWithAckUnicast(t *testing.T) {
	addr := startTestBroker(t)

	tx, err := Dial(addr, 1, 0, 0)
	require.NoError(t, err)
	defer func() { _ = tx.Close() }()
	rx, err := Dial(addr, 2, 0.1, 0)
	require.NoError(t, err)
	defer func() { _ = rx.Close() }()

	// the receiver acknowledges everything it hears.
	done := make(chan struct{})
	acked := make(chan *Packet, 16)
	go func() {
		for {
			select {
			case <-done:
				return
			default:
			}
			pkt, err := rx.ReceiveWithAck(100 * time.Millisecond)
			if err != nil {
				return
			}
			if pkt != nil {
				acked <- pkt
			}
		}
	}()
	defer close(done)

	tx.Destination = 2
	ok, err := tx.SendWithAck([]byte("need ack"))
	require.NoError(t, err)
	assert.True(t, ok)

	pkt := <-acked
	assert.Equal(t, []byte("need ack"), pkt.Data)
	assert.Equal(t, wire.NodeId(1), pkt.From)
	assert.Zero(t, pkt.Flags&FlagAck)
}
