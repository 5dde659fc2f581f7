// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/magcal/internal/config"
	"github.com/relabs-tech/magcal/internal/magdev"
	"github.com/relabs-tech/magcal/internal/sensors"
	"github.com/relabs-tech/magcal/internal/telemetry"
)

// LocalSensors is the HMC5983 + MPU9250 pair on this board.
type LocalSensors struct {
	Mag *magdev.HMC5983
	Bus *telemetry.LocalBus
	i2c i2c.BusCloser
}

// OpenLocalSensors initializes both devices from configuration.
func OpenLocalSensors(cfg *config.Config) (*LocalSensors, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	bus, err := i2creg.Open(cfg.HMCI2CBus)
	if err != nil {
		return nil, fmt.Errorf("i2c open failed on bus %s: %w", cfg.HMCI2CBus, err)
	}

	mag, err := magdev.NewHMC5983(bus, magdev.Opts{
		Addr:       cfg.HMCI2CAddr,
		ODRHz:      cfg.HMCODRHz,
		AvgSamples: cfg.HMCAvgSamples,
		GainCode:   cfg.HMCGainCode,
	})
	if err != nil {
		bus.Close()
		return nil, err
	}
	a, b, c, err := mag.ID()
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("hmc5983: read ID: %w", err)
	}
	log.Printf("hmc5983: ID=%q %q %q (addr=0x%X)", a, b, c, cfg.HMCI2CAddr)

	gyro, err := sensors.NewGyro(cfg.GyroSPIDevice, cfg.GyroCSPin, cfg.GyroLSBPerDPS)
	if err != nil {
		bus.Close()
		return nil, err
	}

	return &LocalSensors{Mag: mag, Bus: telemetry.NewLocalBus(mag, gyro), i2c: bus}, nil
}

func (s *LocalSensors) Close() {
	if err := s.i2c.Close(); err != nil {
		log.Warnf("i2c close: %v", err)
	}
}
