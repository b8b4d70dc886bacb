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

package correction

import (
	"math"

	"github.com/specimaging/radcal/core/frame"
	"gonum.org/v1/gonum/stat"
)

// Sentinel forced onto a column's similarity with itself so argmax never
// picks it
const selfSimilarity = -9e99

// Bad pixel repair: for each column carrying flagged pixels, find the
// best-correlated other column over the clean channel rows, fit
// target ~ slope*best + intercept on those same rows, and substitute the
// fit at the flagged rows only. Every column reads the pre-repair frame,
// so columns are independent and could run in parallel.
func (p *Pipeline) repairBadPixels(f frame.Frame) frame.Frame {
	badColumns := p.calib.BadColumns()
	if len(badColumns) <= 0 {
		return f
	}

	out := f.Clone()
	clean := p.calib.CleanChannels()

	for _, col := range badColumns {
		best := bestCorrelatedColumn(f, col, clean)

		x := make([]float64, len(clean))
		y := make([]float64, len(clean))
		for i, ch := range clean {
			x[i] = f.At(ch, best)
			y[i] = f.At(ch, col)
		}
		intercept, slope := stat.LinearRegression(x, y, nil, false)

		for ch := 0; ch < f.Channels; ch++ {
			if p.calib.IsBad(ch, col) {
				out.Set(ch, col, intercept+slope*f.At(ch, best))
			}
		}
	}

	return out
}

// Cosine similarity between the target column and every other column,
// restricted to the clean channel rows. Ties break to the first index
// attaining the maximum.
func bestCorrelatedColumn(f frame.Frame, col int, clean []int) int {
	dots := make([]float64, f.Columns)
	norms := make([]float64, f.Columns)

	for _, ch := range clean {
		row := f.Row(ch)
		target := row[col]
		for j, v := range row {
			dots[j] += v * target
			norms[j] += v * v
		}
	}

	targetNorm := math.Sqrt(norms[col])

	best := 0
	bestSim := math.Inf(-1)
	for j := 0; j < f.Columns; j++ {
		sim := dots[j] / (math.Sqrt(norms[j]) * targetNorm)
		if j == col {
			sim = selfSimilarity
		}
		// NaN similarities (zero-signal columns) never compare greater, so
		// they are never chosen
		if sim > bestSim {
			best = j
			bestSim = sim
		}
	}

	return best
}
