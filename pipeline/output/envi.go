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

// ENVI header generation for the calibrated radiance cube
package output

import (
	"fmt"
	"strconv"
	"strings"
)

// The downstream toolchain keys on this header text, including the
// historical spelling in the description line, so it is reproduced verbatim
const headerTemplate = `ENVI
description = {Calibrated Radiance, microWatts per (steradian nanometer [centemeter squared])}
samples = %v
lines = %v
bands = %v
header offset = 0
file type = ENVI Standard
data type = 4
interleave = bil
byte order = 0
wavelength units = Nanometers
wavelength = {%v}
fwhm = {%v}
band names = {%v}`

// MakeENVIHeader - describes a radiance cube of the given line count:
// float32 (data type 4), band-interleaved-by-line, little endian, with
// per-channel wavelength/fwhm in nanometers and channel_N band names
func MakeENVIHeader(lines int, samples int, bands int, wavelength []float64, fwhm []float64) string {
	bandNames := make([]string, bands)
	for i := range bandNames {
		bandNames[i] = "channel_" + strconv.Itoa(i)
	}

	return fmt.Sprintf(headerTemplate,
		samples,
		lines,
		bands,
		formatFloatList(wavelength),
		formatFloatList(fwhm),
		strings.Join(bandNames, ","))
}

// HeaderPathFor - the header sits next to the data file, swapping a .img
// suffix for .hdr or appending .hdr otherwise
func HeaderPathFor(dataPath string) string {
	if strings.HasSuffix(dataPath, ".img") {
		return strings.TrimSuffix(dataPath, ".img") + ".hdr"
	}
	return dataPath + ".hdr"
}

func formatFloatList(vals []float64) string {
	strs := make([]string, len(vals))
	for i, v := range vals {
		strs[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(strs, ",")
}
