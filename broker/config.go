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
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Environment variables recognized by the broker process. Flags override
// the environment; the environment overrides the config file and defaults.
const (
	EnvListen = "LRNS_LISTEN"
	EnvSeed   = "LRNS_SEED"
	EnvLog    = "LRNS_LOG"
)

// Config holds the broker process configuration.
type Config struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Seed         int64         `yaml:"seed"`
	LogLevel     string        `yaml:"log"`
	LogOutputs   []string      `yaml:"log_outputs"`
	MetricsAddr  string        `yaml:"metrics"`
	PcapFile     string        `yaml:"pcap"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DefaultConfig returns the broker defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:         "0.0.0.0",
		Port:         8765,
		Seed:         0,
		LogLevel:     "info",
		WriteTimeout: 2 * time.Second,
	}
}

// LoadFile overlays the YAML config file at path onto cfg.
func (cfg *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}
	return nil
}

// ApplyEnv overlays the recognized environment variables onto cfg.
func (cfg *Config) ApplyEnv() error {
	if v := os.Getenv(EnvListen); v != "" {
		host, port, err := splitListenAddr(v)
		if err != nil {
			return err
		}
		cfg.Host = host
		cfg.Port = port
	}
	if v := os.Getenv(EnvSeed); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", EnvSeed)
		}
		cfg.Seed = seed
	}
	if v := os.Getenv(EnvLog); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

// SetListenAddr parses a host:port string into cfg.
func (cfg *Config) SetListenAddr(addr string) error {
	host, port, err := splitListenAddr(addr)
	if err != nil {
		return err
	}
	cfg.Host = host
	cfg.Port = port
	return nil
}

func splitListenAddr(addr string) (string, int, error) {
	subs := strings.Split(addr, ":")
	if len(subs) != 2 {
		return "", 0, errors.Errorf("invalid listen address: %s", addr)
	}
	port, err := strconv.Atoi(subs[1])
	if err != nil || port < 0 || port > 65535 {
		return "", 0, errors.Errorf("invalid listen port: %s", addr)
	}
	return subs[0], port, nil
}
