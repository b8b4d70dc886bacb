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

package frame

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/specimaging/radcal/core/utils"
)

// Raw records are (headerChannels+channelsRaw) x columnsRaw signed 16 bit
// samples, little endian, channel-major. The leading header channels carry
// instrument metadata and are stripped here - they never reach the
// correction chain and are not re-emitted.

// RawRecordSize - byte length of one raw input record
func RawRecordSize(headerChannels int, channelsRaw int, columnsRaw int) int {
	return (headerChannels + channelsRaw) * columnsRaw * 2
}

// RadianceRecordSize - byte length of one calibrated output record
func RadianceRecordSize(channels int, columns int) int {
	return channels * columns * 4
}

// DecodeRawFrame - decodes one fixed-size raw record into a Frame, dropping
// the header channels
func DecodeRawFrame(record []byte, headerChannels int, channelsRaw int, columnsRaw int) (Frame, error) {
	expected := RawRecordSize(headerChannels, channelsRaw, columnsRaw)
	if len(record) != expected {
		return Frame{}, fmt.Errorf("raw record is %v bytes, expected %v", len(record), expected)
	}

	samples := make([]int16, (headerChannels+channelsRaw)*columnsRaw)
	if err := binary.Read(bytes.NewReader(record), binary.LittleEndian, &samples); err != nil {
		return Frame{}, err
	}

	return Frame{
		Channels: channelsRaw,
		Columns:  columnsRaw,
		Data:     utils.ConvertNumberSlice[float64](samples[headerChannels*columnsRaw:]),
	}, nil
}

// EncodeRadiance - serialises a corrected frame as little-endian float32
// samples in the same channel-major layout
func EncodeRadiance(f Frame) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, RadianceRecordSize(f.Channels, f.Columns)))
	err := binary.Write(buf, binary.LittleEndian, utils.ConvertNumberSlice[float32](f.Data))
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
