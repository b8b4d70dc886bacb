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
	vecmath "github.com/cwbudde/algo-vecmath"
	"github.com/specimaging/radcal/core/frame"
	"gonum.org/v1/gonum/floats"
)

// Each readout panel picks up an electronic ghost of the signal in the
// other three panels. The correction is additive: each panel gains
// ghostCoefficient x the elementwise sum of the other three, except for the
// first template columns of the panel, which instead get the empirical
// ghost template scaled by the sum of the other panels' row means. All
// contributions are computed from the incoming frame, never from already
// corrected panels.
func (p *Pipeline) correctPanelGhost(f frame.Frame) frame.Frame {
	w := p.params.PanelWidth
	nTemplate := len(p.params.GhostTemplate)

	out := frame.NewFrame(f.Channels, f.Columns)
	otherSum := make([]float64, w)
	var avgs [4]float64

	for ch := 0; ch < f.Channels; ch++ {
		row := f.Row(ch)
		outRow := out.Row(ch)

		for k := 0; k < 4; k++ {
			avgs[k] = floats.Sum(row[k*w:(k+1)*w]) / float64(w)
		}

		for panel := 0; panel < 4; panel++ {
			avgSum := 0.0
			for i := range otherSum {
				otherSum[i] = 0
			}
			for k := 0; k < 4; k++ {
				if k == panel {
					continue
				}
				vecmath.AddBlockInPlace(otherSum, row[k*w:(k+1)*w])
				avgSum += avgs[k]
			}

			ghost := outRow[panel*w : (panel+1)*w]
			vecmath.ScaleBlock(ghost, otherSum, p.params.GhostCoefficient)

			scale := p.params.GhostTemplateScales[panel]
			for i := 0; i < nTemplate; i++ {
				ghost[i] = scale * avgSum * p.params.GhostTemplate[i]
			}

			vecmath.AddBlockInPlace(ghost, row[panel*w:(panel+1)*w])
		}
	}

	return out
}
