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

// Streams raw frames through the correction pipeline: read fixed-size
// records until the source runs out, correct each frame, and emit the
// calibrated records in input order
package driver

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/specimaging/radcal/core/correction"
	"github.com/specimaging/radcal/core/frame"
	"github.com/specimaging/radcal/core/logger"
)

// StreamDriver - pulls raw records from a reader and writes corrected
// records to a writer. With ParallelFrames > 1 frames are corrected
// concurrently in batches; output order always matches input order because
// each batch is written back sequentially.
type StreamDriver struct {
	Pipeline *correction.Pipeline

	HeaderChannels int
	ChannelsRaw    int
	ColumnsRaw     int

	// Frames corrected concurrently per batch, default 1 (sequential)
	ParallelFrames int

	// Frames between progress reports, default 10
	ProgressInterval int

	Log logger.ILogger
}

// Run - processes the whole stream, returning the number of frames
// calibrated. A trailing record shorter than the expected length means the
// acquisition stopped mid-frame and ends the stream cleanly.
func (d *StreamDriver) Run(in io.Reader, out io.Writer) (int, error) {
	parallel := d.ParallelFrames
	if parallel <= 0 {
		parallel = 1
	}
	interval := d.ProgressInterval
	if interval <= 0 {
		interval = 10
	}

	record := make([]byte, frame.RawRecordSize(d.HeaderChannels, d.ChannelsRaw, d.ColumnsRaw))
	batch := make([]frame.Frame, 0, parallel)
	corrected := make([]frame.Frame, parallel)

	lines := 0
	ended := false

	for !ended {
		batch = batch[:0]
		for len(batch) < parallel {
			_, err := io.ReadFull(in, record)
			if err == io.EOF {
				ended = true
				break
			}
			if err == io.ErrUnexpectedEOF {
				d.Log.Infof("Ignoring truncated record at end of stream")
				ended = true
				break
			}
			if err != nil {
				return lines, errors.Wrap(err, "failed to read raw record")
			}

			f, err := frame.DecodeRawFrame(record, d.HeaderChannels, d.ChannelsRaw, d.ColumnsRaw)
			if err != nil {
				return lines, err
			}
			batch = append(batch, f)
		}

		if len(batch) <= 0 {
			break
		}

		if len(batch) == 1 {
			corrected[0] = d.Pipeline.Apply(batch[0])
		} else {
			// Frames are independent and the pipeline is stateless, so a
			// batch can run fully parallel
			var wg sync.WaitGroup
			wg.Add(len(batch))
			for i := range batch {
				go func(i int) {
					defer wg.Done()
					corrected[i] = d.Pipeline.Apply(batch[i])
				}(i)
			}
			wg.Wait()
		}

		for i := range batch {
			if (lines+i)%interval == 0 {
				d.Log.Infof("Calibrating line %v", lines+i)
			}

			data, err := frame.EncodeRadiance(corrected[i])
			if err != nil {
				return lines + i, err
			}
			if _, err := out.Write(data); err != nil {
				return lines + i, errors.Wrap(err, "failed to write corrected record")
			}
		}

		lines += len(batch)
	}

	return lines, nil
}
