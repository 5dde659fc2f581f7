// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/golang/geo/r3"
	serial "github.com/jacobsa/go-serial/serial"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/magcal/internal/imu"
)

// SerialBus reads one sample per line from a serial port:
//
//	mx,my,mz,gx,gy,gz
//
// with the field in Gauss and the rate in rad/s. Lines starting with '#'
// are ignored.
type SerialBus struct {
	PortName string
	BaudRate int

	// open is replaced in tests.
	open func(serial.OpenOptions) (io.ReadWriteCloser, error)
}

// NewSerialBus does not touch the port until Subscribe.
func NewSerialBus(portName string, baudRate int) *SerialBus {
	return &SerialBus{PortName: portName, BaudRate: baudRate, open: serial.Open}
}

// Subscribe opens the port and starts the line reader.
func (b *SerialBus) Subscribe(interval time.Duration) (Subscription, error) {
	serialOpts := serial.OpenOptions{
		PortName:              b.PortName,
		BaudRate:              uint(b.BaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := b.open(serialOpts)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", b.PortName, err)
	}
	log.Printf("telemetry: serial port opened on %s at %d baud", b.PortName, b.BaudRate)

	f := newFeed(port.Close)
	go readLines(f, port, interval)
	return f, nil
}

func readLines(f *feed, r io.Reader, interval time.Duration) {
	reader := bufio.NewReader(r)
	var last time.Time
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			select {
			case <-f.closed():
			default:
				f.fail(fmt.Errorf("serial read: %w", err))
			}
			return
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s, err := parseSampleLine(line)
		if err != nil {
			log.Debugf("telemetry: skipping line %q: %v", line, err)
			continue
		}
		// throttle to the requested interval
		if !last.IsZero() && s.Time.Sub(last) < interval {
			continue
		}
		last = s.Time
		f.push(s)
	}
}

func parseSampleLine(line string) (imu.Sample, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 6 {
		return imu.Sample{}, fmt.Errorf("want 6 fields, got %d", len(fields))
	}
	var v [6]float64
	for i, field := range fields {
		x, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return imu.Sample{}, fmt.Errorf("field %d: %w", i, err)
		}
		v[i] = x
	}
	return imu.Sample{
		Field: r3.Vector{X: v[0], Y: v[1], Z: v[2]},
		Rate:  r3.Vector{X: v[3], Y: v[4], Z: v[5]},
		Time:  time.Now(),
	}, nil
}
