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

package calibration

import (
	"bytes"
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/specimaging/radcal/core/fileaccess"
	"github.com/specimaging/radcal/core/logger"
	"github.com/specimaging/radcal/core/utils"
	"gonum.org/v1/gonum/mat"
)

// Refs - names the calibration reference files and the dimensions every
// tensor must match. Binary references are little-endian with exact byte
// counts enforced; the spectral calibration and radiometric coefficient
// references are whitespace-separated text tables.
type Refs struct {
	ChannelsRaw int
	ColumnsRaw  int

	DarkFrameFile              string
	FlatFieldFile              string
	BadElementFile             string
	SpectralResponseFile       string
	SpatialResponseFile        string
	SpectralCalibrationFile    string
	RadiometricCoefficientFile string
	LinearityFile              string

	// Optional [lo, hi] clamp applied to flat field values
	FlatFieldLimits []float64
}

// Number of entries in the detector linearity lookup table (one per
// possible 16 bit DN)
const linearityTableSize = 65536

// Load - reads and validates every calibration reference, producing an
// immutable CalibrationData. Fails with MissingFileError or ShapeError
// before any frame can be processed. Non-finite values are never allowed
// through: they are replaced with 0 and counted through the logger.
func Load(fs fileaccess.FileAccess, bucket string, refs Refs, log logger.ILogger) (*CalibrationData, error) {
	nPixels := refs.ChannelsRaw * refs.ColumnsRaw

	// Dark reference holds 2 temporal planes, we use their mean
	darkPlanes, err := readFloat32Binary(fs, bucket, "dark frame", refs.DarkFrameFile, 2*nPixels)
	if err != nil {
		return nil, err
	}
	dark := make([]float64, nPixels)
	for i := range dark {
		dark[i] = (darkPlanes[i] + darkPlanes[nPixels+i]) / 2
	}

	// Flat field also holds 2 planes but only the first is the gain map
	flatPlanes, err := readFloat32Binary(fs, bucket, "flat field", refs.FlatFieldFile, 2*nPixels)
	if err != nil {
		return nil, err
	}
	flatField := flatPlanes[:nPixels]

	srf, err := readFloat32Binary(fs, bucket, "spectral response", refs.SpectralResponseFile, refs.ChannelsRaw*refs.ChannelsRaw)
	if err != nil {
		return nil, err
	}

	crf, err := readFloat32Binary(fs, bucket, "spatial response", refs.SpatialResponseFile, refs.ColumnsRaw*refs.ColumnsRaw)
	if err != nil {
		return nil, err
	}

	badElements, err := readUint16Binary(fs, bucket, "bad element map", refs.BadElementFile, nPixels)
	if err != nil {
		return nil, err
	}

	linearity, err := readUint16Binary(fs, bucket, "linearity table", refs.LinearityFile, linearityTableSize)
	if err != nil {
		return nil, err
	}

	wavelength, fwhm, err := readSpectralCalibration(fs, bucket, refs.SpectralCalibrationFile, refs.ChannelsRaw)
	if err != nil {
		return nil, err
	}

	gain, err := readRadiometricCoefficients(fs, bucket, refs.RadiometricCoefficientFile, refs.ChannelsRaw)
	if err != nil {
		return nil, err
	}

	// Scrub non-finite entries everywhere before anything downstream can
	// see them. Counts are reported, never errors.
	for name, tensor := range map[string][]float64{
		"dark":                    dark,
		"flat_field":              flatField,
		"srf_correction":          srf,
		"crf_correction":          crf,
		"wavelength":              wavelength,
		"fwhm":                    fwhm,
		"radiometric_calibration": gain,
	} {
		scrubNonFinite(name, tensor, log)
	}

	if len(refs.FlatFieldLimits) == 2 {
		lo, hi := refs.FlatFieldLimits[0], refs.FlatFieldLimits[1]
		for i, v := range flatField {
			if v < lo {
				flatField[i] = lo
			} else if v > hi {
				flatField[i] = hi
			}
		}
	}

	badMask := make([]bool, nPixels)
	for i, v := range badElements {
		badMask[i] = v != 0
	}

	calib := &CalibrationData{
		channelsRaw:      refs.ChannelsRaw,
		columnsRaw:       refs.ColumnsRaw,
		dark:             dark,
		flatField:        flatField,
		spectralResponse: mat.NewDense(refs.ChannelsRaw, refs.ChannelsRaw, srf),
		spatialResponse:  mat.NewDense(refs.ColumnsRaw, refs.ColumnsRaw, crf),
		badMask:          badMask,
		radiometricGain:  gain,
		linearity:        linearity,
		wavelength:       wavelength,
		fwhm:             fwhm,
	}
	calib.deriveChannelSets()

	log.Infof("%v clean channels", len(calib.cleanChannels))

	return calib, nil
}

func scrubNonFinite(name string, tensor []float64, log logger.ILogger) {
	count := 0
	for i, v := range tensor {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			tensor[i] = 0
			count++
		}
	}
	if count > 0 {
		log.Warnf("Replacing %v non-finite values in %v", count, name)
	}
}

// readRef - reads one named reference, mapping absence to MissingFileError
func readRef(fs fileaccess.FileAccess, bucket string, name string, path string) ([]byte, error) {
	if len(path) <= 0 {
		return nil, MissingFileError{Name: name, Path: "(not configured)"}
	}

	exists, err := fs.ObjectExists(bucket, path)
	if err == nil && !exists {
		return nil, MissingFileError{Name: name, Path: path}
	}

	data, err := fs.ReadObject(bucket, path)
	if err != nil {
		if fs.IsNotFoundError(err) {
			return nil, MissingFileError{Name: name, Path: path}
		}
		return nil, errors.Wrapf(err, "failed to read %v", name)
	}
	return data, nil
}

func readFloat32Binary(fs fileaccess.FileAccess, bucket string, name string, path string, count int) ([]float64, error) {
	data, err := readRef(fs, bucket, name, path)
	if err != nil {
		return nil, err
	}
	if len(data) != count*4 {
		return nil, ShapeError{Name: name, Got: len(data), Want: count * 4, Unit: "bytes"}
	}

	vals := make([]float32, count)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &vals); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %v", name)
	}
	return utils.ConvertNumberSlice[float64](vals), nil
}

func readUint16Binary(fs fileaccess.FileAccess, bucket string, name string, path string, count int) ([]uint16, error) {
	data, err := readRef(fs, bucket, name, path)
	if err != nil {
		return nil, err
	}
	if len(data) != count*2 {
		return nil, ShapeError{Name: name, Got: len(data), Want: count * 2, Unit: "bytes"}
	}

	vals := make([]uint16, count)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &vals); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %v", name)
	}
	return vals, nil
}

// readTextTable - parses a whitespace-separated numeric table, one row per
// line, requiring at least minCols values per row
func readTextTable(fs fileaccess.FileAccess, bucket string, name string, path string, minCols int) ([][]float64, error) {
	data, err := readRef(fs, bucket, name, path)
	if err != nil {
		return nil, err
	}

	rows := [][]float64{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if len(line) <= 0 {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < minCols {
			return nil, errors.Errorf("%v row %v has %v columns, expected at least %v", name, len(rows), len(fields), minCols)
		}

		row := make([]float64, len(fields))
		for i, field := range fields {
			row[i], err = strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to parse %v row %v", name, len(rows))
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// Spectral calibration is a 3-column table: channel number, wavelength and
// fwhm in microns. We work in nanometers.
func readSpectralCalibration(fs fileaccess.FileAccess, bucket string, path string, channelsRaw int) ([]float64, []float64, error) {
	rows, err := readTextTable(fs, bucket, "spectral calibration", path, 3)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) != channelsRaw {
		return nil, nil, ShapeError{Name: "spectral calibration", Got: len(rows), Want: channelsRaw, Unit: "rows"}
	}

	wavelength := make([]float64, channelsRaw)
	fwhm := make([]float64, channelsRaw)
	for i, row := range rows {
		wavelength[i] = row[1] * 1000
		fwhm[i] = row[2] * 1000
	}
	return wavelength, fwhm, nil
}

// Radiometric coefficients are the first column of the table, the remaining
// columns carry uncertainty values the runtime pipeline doesn't use
func readRadiometricCoefficients(fs fileaccess.FileAccess, bucket string, path string, channelsRaw int) ([]float64, error) {
	rows, err := readTextTable(fs, bucket, "radiometric coefficients", path, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) != channelsRaw {
		return nil, ShapeError{Name: "radiometric coefficients", Got: len(rows), Want: channelsRaw, Unit: "rows"}
	}

	gain := make([]float64, channelsRaw)
	for i, row := range rows {
		gain[i] = row[0]
	}
	return gain, nil
}
