// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// ./cmd/calibration/main.go
//
// Automated magnetometer calibration. Removes the hard-iron offset and
// detects the mounting rotation of the magnetometer relative to the
// airframe. Rotate the vehicle in a figure 8 or around the prompted axis
// while it runs.
//
// Output:
//
//	SENS_MAG_EXT_ROT, SENS_MAG_[XYZ]OFF and SENS_MAG_[XYZ]SCALE in the
//	parameter store (PARAM_BACKEND / PARAM_PATH).
//
// Run:
//
//	go run ./cmd/calibration -config magcal_config.txt
//
// Exit status is 0 on success and 1 on any fatal failure.
package main

import (
	"flag"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/magcal/internal/app"
	"github.com/relabs-tech/magcal/internal/config"
)

func main() {
	configPath := flag.String("config", "magcal_config.txt", "path to KEY=VALUE config file")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Errorf("failed to load config: %v", err)
		os.Exit(1)
	}

	log.Println("starting magnetometer calibration")
	res, err := app.RunCalibration()
	if err != nil {
		log.Errorf("calibration failed: %v", err)
		os.Exit(1)
	}
	log.Printf("calibration done: rotation #%d (%v), offset %.3f %.3f %.3f Ga, radius %.3f Ga, %d samples",
		res.Rotation, res.Candidate, res.Offset.X, res.Offset.Y, res.Offset.Z, res.Radius, res.Samples)
}
