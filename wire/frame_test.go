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

package wire

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRegisterFrame(t *testing.T) {
	f, err := Parse([]byte(`{"type":"register","node_id":3,"location":[1.5,2.5]}`))
	assert.NoError(t, err)
	assert.Equal(t, FrameTypeRegister, f.Type)
	assert.Equal(t, NodeId(3), f.NodeId)
	assert.Equal(t, []float64{1.5, 2.5}, f.Location)
}

func TestParseTxFrame(t *testing.T) {
	f, err := Parse([]byte(`{"type":"tx","from":2,"data":"hello","meta":{"destination":255,"tx_power":23,"custom":"x"}}`))
	assert.NoError(t, err)
	assert.Equal(t, FrameTypeTx, f.Type)
	assert.Equal(t, NodeId(2), f.From)
	assert.Equal(t, "hello", f.Data)
	assert.Equal(t, 255, f.Meta.Int("destination", 0))
	assert.Equal(t, 23, f.Meta.Int("tx_power", 0))
	assert.Equal(t, "x", f.Meta.String("custom", ""))
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(`{not json`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"from":2,"data":"no type"}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"type":"warp","from":2}`))
	assert.Error(t, err)
}

func TestMarshalAppendsNewline(t *testing.T) {
	data, err := Marshal(NewTxFrame(1, "hi", nil))
	assert.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "\n"))
	assert.Equal(t, 1, strings.Count(string(data), "\n"))

	f, err := Parse(data[:len(data)-1])
	assert.NoError(t, err)
	assert.Equal(t, "hi", f.Data)
}

func TestMarshalRxFrame(t *testing.T) {
	rx := NewRxFrame("payload", -88.25, 3.5, Meta{"from": 4})
	data, err := Marshal(rx)
	assert.NoError(t, err)

	f, err := Parse(data[:len(data)-1])
	assert.NoError(t, err)
	assert.Equal(t, FrameTypeRx, f.Type)
	assert.Equal(t, "payload", f.Data)
	assert.Equal(t, 4, f.Meta.Int("from", 0))
}

func TestMetaTypedGetters(t *testing.T) {
	m := Meta{
		"i": float64(42), // JSON numbers decode as float64
		"f": 1.5,
		"b": true,
		"s": "str",
	}
	assert.Equal(t, 42, m.Int("i", 0))
	assert.Equal(t, 1.5, m.Float("f", 0))
	assert.Equal(t, true, m.Bool("b", false))
	assert.Equal(t, "str", m.String("s", ""))

	// absent and mistyped keys fall back to the default
	assert.Equal(t, 7, m.Int("missing", 7))
	assert.Equal(t, 7, m.Int("s", 7))
	assert.False(t, m.Has("missing"))
	assert.True(t, m.Has("i"))
}

func TestMetaNil(t *testing.T) {
	var m Meta
	assert.False(t, m.Has("x"))
	assert.Equal(t, 3, m.Int("x", 3))
	assert.Equal(t, "d", m.String("x", "d"))
}

func TestMetaClone(t *testing.T) {
	m := Meta{"a": 1}
	c := m.Clone()
	c["a"] = 2
	c["b"] = 3
	assert.Equal(t, 1, m.Int("a", 0))
	assert.False(t, m.Has("b"))
}
