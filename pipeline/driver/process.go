// Licensed to NASA JPL under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. NASA JPL licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package driver

import (
	"bufio"
	"os"

	"github.com/pkg/errors"
	"github.com/specimaging/radcal/core/calibration"
	"github.com/specimaging/radcal/core/correction"
	"github.com/specimaging/radcal/core/fileaccess"
	"github.com/specimaging/radcal/core/logger"
	"github.com/specimaging/radcal/pipeline/config"
	"github.com/specimaging/radcal/pipeline/output"
)

// ProcessFiles - runs a complete calibration: loads the reference files named
// by cfg from refFS/refBucket, builds the correction pipeline, streams the
// raw input file to the calibrated output file and writes the ENVI header
// next to it. Returns the number of frames calibrated.
func ProcessFiles(cfg config.PipelineConfig, refFS fileaccess.FileAccess, refBucket string, log logger.ILogger) (int, error) {
	calib, err := calibration.Load(refFS, refBucket, cfg.CalibrationRefs(), log)
	if err != nil {
		return 0, err
	}

	pipeline, err := correction.NewPipeline(calib, cfg.CorrectionParams(), log)
	if err != nil {
		return 0, err
	}

	in, err := os.Open(cfg.InputFile)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to open raw input %v", cfg.InputFile)
	}
	defer in.Close()

	out, err := os.Create(cfg.OutputFile)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to create output %v", cfg.OutputFile)
	}
	defer out.Close()

	d := StreamDriver{
		Pipeline:       pipeline,
		HeaderChannels: cfg.HeaderChannels,
		ChannelsRaw:    cfg.ChannelsRaw,
		ColumnsRaw:     cfg.ColumnsRaw,
		ParallelFrames: cfg.ParallelFrames,
		Log:            log,
	}

	buffered := bufio.NewWriter(out)
	lines, err := d.Run(bufio.NewReader(in), buffered)
	if err != nil {
		return lines, err
	}
	if err := buffered.Flush(); err != nil {
		return lines, errors.Wrapf(err, "failed to write output %v", cfg.OutputFile)
	}

	header := output.MakeENVIHeader(lines, cfg.Columns, cfg.Channels, calib.Wavelength(), calib.FWHM())
	headerPath := output.HeaderPathFor(cfg.OutputFile)
	if err := os.WriteFile(headerPath, []byte(header), 0644); err != nil {
		return lines, errors.Wrapf(err, "failed to write ENVI header %v", headerPath)
	}

	log.Infof("Done, calibrated %v lines", lines)
	return lines, nil
}
