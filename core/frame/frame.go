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

// One focal plane readout: a channels x columns sample matrix, plus the
// codecs between raw int16 records and calibrated float32 radiance records
package frame

// Frame - one line of focal plane readout. Data is row-major: all columns of
// channel 0, then channel 1, and so on.
type Frame struct {
	Channels int
	Columns  int
	Data     []float64
}

func NewFrame(channels int, columns int) Frame {
	return Frame{
		Channels: channels,
		Columns:  columns,
		Data:     make([]float64, channels*columns),
	}
}

// Row - the column samples for one channel. This is a view into Data, not a copy
func (f Frame) Row(channel int) []float64 {
	return f.Data[channel*f.Columns : (channel+1)*f.Columns]
}

func (f Frame) At(channel int, column int) float64 {
	return f.Data[channel*f.Columns+column]
}

func (f Frame) Set(channel int, column int, value float64) {
	f.Data[channel*f.Columns+column] = value
}

func (f Frame) Clone() Frame {
	c := NewFrame(f.Channels, f.Columns)
	copy(c.Data, f.Data)
	return c
}
