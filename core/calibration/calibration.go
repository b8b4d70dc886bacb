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

// Loading and validation of the per-instrument calibration bundle: dark
// frame, flat field, response matrices, bad pixel map, radiometric gains,
// linearity table and the spectral calibration (wavelength/fwhm) table.
//
// CalibrationData is constructed once by Load and never mutated after, so
// it is safe to share across concurrently corrected frames.
package calibration

import "gonum.org/v1/gonum/mat"

// CalibrationData - validated, immutable calibration bundle. All tensor
// accessors return internal storage which callers must treat as read-only.
type CalibrationData struct {
	channelsRaw int
	columnsRaw  int

	dark             []float64 // channelsRaw x columnsRaw, row-major
	flatField        []float64 // channelsRaw x columnsRaw, row-major
	spectralResponse *mat.Dense
	spatialResponse  *mat.Dense
	badMask          []bool // channelsRaw x columnsRaw, row-major
	radiometricGain  []float64
	linearity        []uint16
	wavelength       []float64
	fwhm             []float64

	// Derived once at load
	cleanChannels []int // channels with no bad pixel in any column
	badColumns    []int // columns with at least one bad pixel
}

func (c *CalibrationData) ChannelsRaw() int { return c.channelsRaw }
func (c *CalibrationData) ColumnsRaw() int  { return c.columnsRaw }

// DarkRow - the dark reference for one channel
func (c *CalibrationData) DarkRow(channel int) []float64 {
	return c.dark[channel*c.columnsRaw : (channel+1)*c.columnsRaw]
}

// FlatFieldRow - the per-pixel responsivity gain for one channel
func (c *CalibrationData) FlatFieldRow(channel int) []float64 {
	return c.flatField[channel*c.columnsRaw : (channel+1)*c.columnsRaw]
}

// SpectralResponse - square channelsRaw x channelsRaw cross-talk correction
// applied along the spectral axis
func (c *CalibrationData) SpectralResponse() *mat.Dense { return c.spectralResponse }

// SpatialResponse - square columnsRaw x columnsRaw cross-talk correction
// applied along the spatial axis
func (c *CalibrationData) SpatialResponse() *mat.Dense { return c.spatialResponse }

func (c *CalibrationData) IsBad(channel int, column int) bool {
	return c.badMask[channel*c.columnsRaw+column]
}

func (c *CalibrationData) RadiometricGain() []float64 { return c.radiometricGain }
func (c *CalibrationData) Linearity() []uint16        { return c.linearity }
func (c *CalibrationData) Wavelength() []float64      { return c.wavelength }
func (c *CalibrationData) FWHM() []float64            { return c.fwhm }

// CleanChannels - channels with zero bad pixels across all columns. Only
// these rows take part in bad pixel inference.
func (c *CalibrationData) CleanChannels() []int { return c.cleanChannels }

// BadColumns - columns needing bad pixel repair
func (c *CalibrationData) BadColumns() []int { return c.badColumns }

func (c *CalibrationData) deriveChannelSets() {
	c.cleanChannels = []int{}
	for ch := 0; ch < c.channelsRaw; ch++ {
		clean := true
		for col := 0; col < c.columnsRaw; col++ {
			if c.badMask[ch*c.columnsRaw+col] {
				clean = false
				break
			}
		}
		if clean {
			c.cleanChannels = append(c.cleanChannels, ch)
		}
	}

	c.badColumns = []int{}
	for col := 0; col < c.columnsRaw; col++ {
		for ch := 0; ch < c.channelsRaw; ch++ {
			if c.badMask[ch*c.columnsRaw+col] {
				c.badColumns = append(c.badColumns, col)
				break
			}
		}
	}
}
