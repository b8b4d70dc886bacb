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

// Run configuration as read from the instrument calibration JSON document,
// with env var overrides
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strconv"

	"github.com/specimaging/radcal/core/calibration"
	"github.com/specimaging/radcal/core/correction"
	"github.com/specimaging/radcal/core/utils"
)

// PipelineConfig - everything a calibration run needs: frame dimensions,
// reference file names (relative to the calibration bucket/directory),
// detector correction constants and I/O paths
type PipelineConfig struct {
	// Output and raw frame dimensions. The correction chain preserves
	// shape, so these must agree pairwise
	Channels       int `json:"channels"`
	Columns        int `json:"columns"`
	ChannelsRaw    int `json:"channels_raw"`
	ColumnsRaw     int `json:"columns_raw"`
	HeaderChannels int `json:"header_channels"`

	// Calibration reference files
	DarkFrameFile              string `json:"dark_frame_file"`
	FlatFieldFile              string `json:"flat_field_file"`
	BadElementFile             string `json:"bad_element_file"`
	SRFCorrectionFile          string `json:"srf_correction_file"`
	CRFCorrectionFile          string `json:"crf_correction_file"`
	SpectralCalibrationFile    string `json:"spectral_calibration_file"`
	RadiometricCoefficientFile string `json:"radiometric_coefficient_file"`
	LinearityFile              string `json:"linearity_file"`

	// Detector correction constants
	DarkChannels         []int     `json:"dark_channels"`
	PanelWidth           int       `json:"panel_width"`
	PanelGhostCorrection float64   `json:"panel_ghost_correction"`
	PGTemplate           []float64 `json:"pg_template"`
	// Per-panel scale on the template term. The default asymmetry between
	// the panel pairs is an empirical instrument constant
	PGTemplateScales []float64 `json:"pg_template_scales"`
	FlatFieldLimits  []float64 `json:"flat_field_limits"`
	ReverseChannels  bool      `json:"reverse_channels"`

	// Streaming
	InputFile      string `json:"input_file"`
	OutputFile     string `json:"output_file"`
	ParallelFrames int    `json:"parallel_frames"`

	// Optional crash reporting
	SentryEndpoint  string `json:"sentry_endpoint"`
	EnvironmentName string `json:"environment_name"`
}

func NewConfigFromFile(configFilePath string) (PipelineConfig, error) {
	configJSON, err := os.ReadFile(configFilePath)
	if err != nil {
		return PipelineConfig{}, fmt.Errorf("could not read config file at %s", configFilePath)
	}
	return NewConfigFromJSON(configJSON)
}

func NewConfigFromJSON(configJSON []byte) (PipelineConfig, error) {
	var cfg PipelineConfig

	err := json.Unmarshal(configJSON, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config: %v", err)
	}

	// Override with any values explicitly set in env vars (RADCAL_CONFIG_*).
	// Only scalar fields can be overridden this way.
	reflection := reflect.ValueOf(&cfg).Elem()
	for i := 0; i < reflection.NumField(); i++ {
		fieldName := reflection.Type().Field(i).Name
		field := reflection.Field(i)
		if val, present := os.LookupEnv(fmt.Sprintf("RADCAL_CONFIG_%s", fieldName)); present {
			switch field.Kind() {
			case reflect.String:
				field.SetString(val)
			case reflect.Bool:
				b, err := strconv.ParseBool(val)
				if err != nil {
					fmt.Printf("Could not cast value RADCAL_CONFIG_%s=%s to bool\n", fieldName, val)
					continue
				}
				field.SetBool(b)
			case reflect.Int:
				n, err := strconv.Atoi(val)
				if err != nil {
					fmt.Printf("Could not cast value RADCAL_CONFIG_%s=%s to int\n", fieldName, val)
					continue
				}
				field.SetInt(int64(n))
			case reflect.Float64:
				f, err := strconv.ParseFloat(val, 64)
				if err != nil {
					fmt.Printf("Could not cast value RADCAL_CONFIG_%s=%s to float\n", fieldName, val)
					continue
				}
				field.SetFloat(f)
			}
		}
	}

	cfg.applyDefaults()
	return cfg, cfg.validate()
}

func (cfg *PipelineConfig) applyDefaults() {
	if len(cfg.PGTemplateScales) <= 0 {
		cfg.PGTemplateScales = []float64{1.6, 1.6, 1.0, 1.0}
	}
	if cfg.ParallelFrames <= 0 {
		cfg.ParallelFrames = 1
	}
}

func (cfg *PipelineConfig) validate() error {
	if cfg.ChannelsRaw <= 0 || cfg.ColumnsRaw <= 0 {
		return fmt.Errorf("invalid raw frame dimensions %vx%v", cfg.ChannelsRaw, cfg.ColumnsRaw)
	}
	if cfg.HeaderChannels < 0 {
		return fmt.Errorf("invalid header channel count %v", cfg.HeaderChannels)
	}
	if cfg.Channels != cfg.ChannelsRaw || cfg.Columns != cfg.ColumnsRaw {
		return fmt.Errorf("output dimensions %vx%v must match raw frame dimensions %vx%v", cfg.Channels, cfg.Columns, cfg.ChannelsRaw, cfg.ColumnsRaw)
	}
	if len(cfg.PGTemplateScales) != 4 {
		return fmt.Errorf("pg_template_scales needs one value per panel, got %v", len(cfg.PGTemplateScales))
	}
	if l := len(cfg.FlatFieldLimits); l != 0 && l != 2 {
		return fmt.Errorf("flat_field_limits must hold [lo, hi], got %v values", l)
	}
	if len(cfg.FlatFieldLimits) == 2 && cfg.FlatFieldLimits[0] > cfg.FlatFieldLimits[1] {
		return fmt.Errorf("flat_field_limits lo %v exceeds hi %v", cfg.FlatFieldLimits[0], cfg.FlatFieldLimits[1])
	}

	seen := []int{}
	for _, ch := range cfg.DarkChannels {
		if utils.ItemInSlice(ch, seen) {
			return fmt.Errorf("duplicate dark channel %v", ch)
		}
		seen = append(seen, ch)
	}

	return nil
}

// CalibrationRefs - the reference file set for calibration.Load
func (cfg *PipelineConfig) CalibrationRefs() calibration.Refs {
	return calibration.Refs{
		ChannelsRaw:                cfg.ChannelsRaw,
		ColumnsRaw:                 cfg.ColumnsRaw,
		DarkFrameFile:              cfg.DarkFrameFile,
		FlatFieldFile:              cfg.FlatFieldFile,
		BadElementFile:             cfg.BadElementFile,
		SpectralResponseFile:       cfg.SRFCorrectionFile,
		SpatialResponseFile:        cfg.CRFCorrectionFile,
		SpectralCalibrationFile:    cfg.SpectralCalibrationFile,
		RadiometricCoefficientFile: cfg.RadiometricCoefficientFile,
		LinearityFile:              cfg.LinearityFile,
		FlatFieldLimits:            cfg.FlatFieldLimits,
	}
}

// CorrectionParams - the stage constants for correction.NewPipeline
func (cfg *PipelineConfig) CorrectionParams() correction.Params {
	return correction.Params{
		DarkChannels:        cfg.DarkChannels,
		PanelWidth:          cfg.PanelWidth,
		GhostCoefficient:    cfg.PanelGhostCorrection,
		GhostTemplate:       cfg.PGTemplate,
		GhostTemplateScales: cfg.PGTemplateScales,
		ReverseChannels:     cfg.ReverseChannels,
	}
}
