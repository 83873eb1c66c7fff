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

// lrns-node runs one simulated radio node against a broker, as a
// transmitter or a receiver.
package main

import (
	"strconv"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/lorasim/lr-ns/client"
	"github.com/lorasim/lr-ns/logger"
	"github.com/lorasim/lr-ns/wire"
)

const message = "Hello from LR-NS node"

type nodeArgs struct {
	Broker      string
	Id          int
	Location    string
	Mode        string
	Interval    time.Duration
	Broadcast   bool
	Destination int
	Frequency   float64
	SpreadF     int
	TxPower     int
	LogLevel    string
}

var args nodeArgs

func parseArgs() {
	flag.StringVar(&args.Broker, "broker", "localhost:8765", "broker address")
	flag.IntVar(&args.Id, "id", 0, "node id (required)")
	flag.StringVar(&args.Location, "location", "0,0", "node location in km (x,y)")
	flag.StringVar(&args.Mode, "mode", "", "node mode: tx or rx (required)")
	flag.DurationVar(&args.Interval, "interval", 5*time.Second, "transmission interval")
	flag.BoolVar(&args.Broadcast, "broadcast", false, "transmit to all nodes")
	flag.IntVar(&args.Destination, "destination", 0, "destination node id for unicast")
	flag.Float64Var(&args.Frequency, "frequency", 915.0, "radio frequency in MHz")
	flag.IntVar(&args.SpreadF, "sf", 7, "spreading factor (7-12)")
	flag.IntVar(&args.TxPower, "tx-power", 23, "transmit power in dBm")
	flag.StringVar(&args.LogLevel, "log", "info", "log level")
	flag.Parse()
}

func parseLocation(s string) (float64, float64) {
	subs := strings.Split(s, ",")
	if len(subs) != 2 {
		logger.Fatalf("invalid location: %s", s)
	}
	x, errX := strconv.ParseFloat(subs[0], 64)
	y, errY := strconv.ParseFloat(subs[1], 64)
	if errX != nil || errY != nil {
		logger.Fatalf("invalid location: %s", s)
	}
	return x, y
}

func main() {
	parseArgs()
	logger.SetLevel(logger.ParseLevel(args.LogLevel))

	if args.Id < 1 {
		logger.Fatalf("provide a node id with --id")
	}
	switch args.Mode {
	case "tx":
		if args.Destination == 0 && !args.Broadcast {
			logger.Fatalf("transmitter mode requires either --destination or --broadcast")
		}
		if args.Destination != 0 && args.Broadcast {
			logger.Fatalf("provide only one of --destination or --broadcast")
		}
	case "rx":
	default:
		logger.Fatalf("provide a node mode with --mode=tx or --mode=rx")
	}

	x, y := parseLocation(args.Location)
	radio, err := client.Dial(args.Broker, wire.NodeId(args.Id), x, y)
	if err != nil {
		logger.Fatalf("connect to broker failed: %v (is lrns running?)", err)
	}
	defer func() {
		_ = radio.Close()
	}()

	radio.TxPowerDbm = args.TxPower
	radio.SpreadFactor = args.SpreadF
	radio.FrequencyMhz = args.Frequency
	if args.Destination != 0 {
		radio.Destination = wire.NodeId(args.Destination)
	}

	if args.Mode == "tx" {
		runTx(radio)
	} else {
		runRx(radio)
	}
}

func runTx(radio *client.Radio) {
	logger.Infof("node %d transmitting every %v ...", radio.NodeId, args.Interval)
	for {
		logger.Infof("node %d sending: %q", radio.NodeId, message)
		var err error
		if args.Broadcast {
			err = radio.Broadcast([]byte(message))
		} else {
			err = radio.Send([]byte(message))
		}
		if err != nil {
			logger.Fatalf("send failed: %v", err)
		}
		time.Sleep(args.Interval)
	}
}

func runRx(radio *client.Radio) {
	logger.Infof("node %d listening ...", radio.NodeId)
	for {
		pkt, err := radio.Receive(time.Second)
		if err != nil {
			logger.Fatalf("receive failed: %v", err)
		}
		if pkt == nil {
			continue
		}
		logger.Infof("node %d received %q from %d rssi=%.2f snr=%.2f",
			radio.NodeId, string(pkt.Data), pkt.From, pkt.Rssi, pkt.Snr)
	}
}
