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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8765, cfg.Port)
	assert.Equal(t, int64(0), cfg.Seed)
	assert.Equal(t, 2*time.Second, cfg.WriteTimeout)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lrns.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"host: 127.0.0.1\nport: 9000\nseed: 7\nlog: debug\nmetrics: 127.0.0.1:9100\n"), 0o644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFile(path))
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:9100", cfg.MetricsAddr)
	// untouched keys keep their defaults
	assert.Equal(t, 2*time.Second, cfg.WriteTimeout)
}

func TestLoadFileErrors(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [not a port\n"), 0o644))
	assert.Error(t, cfg.LoadFile(path))
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvListen, "10.0.0.1:4444")
	t.Setenv(EnvSeed, "99")
	t.Setenv(EnvLog, "trace")

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "10.0.0.1", cfg.Host)
	assert.Equal(t, 4444, cfg.Port)
	assert.Equal(t, int64(99), cfg.Seed)
	assert.Equal(t, "trace", cfg.LogLevel)
}

func TestApplyEnvInvalidSeed(t *testing.T) {
	t.Setenv(EnvSeed, "not-a-number")
	cfg := DefaultConfig()
	assert.Error(t, cfg.ApplyEnv())
}

func TestSetListenAddr(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.SetListenAddr("localhost:1234"))
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 1234, cfg.Port)

	assert.Error(t, cfg.SetListenAddr("no-port"))
	assert.Error(t, cfg.SetListenAddr("host:notnum"))
	assert.Error(t, cfg.SetListenAddr("host:99999"))
}
