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

// The per-frame radiometric correction chain. Each stage is a pure function
// of the frame and the shared calibration data, executed in a fixed order:
// dark subtraction, pedestal shift, panel ghost, flat field, bad pixel
// repair, spectral response, spatial response, radiometric scaling, then
// finalization. Later stages assume earlier ones already ran.
package correction

import (
	"fmt"
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"
	"github.com/specimaging/radcal/core/calibration"
	"github.com/specimaging/radcal/core/frame"
	"github.com/specimaging/radcal/core/logger"
	"gonum.org/v1/gonum/floats"
)

// Params - the tunable detector correction constants, separate from the
// calibration tensors because they come from the run configuration
type Params struct {
	// Channel rows used to estimate the per-column pedestal shift
	DarkChannels []int

	// The column axis splits into 4 contiguous panels of this width
	PanelWidth int

	// Ghost contribution per unit signal in the other three panels
	GhostCoefficient float64

	// Empirical correction template applied to the first columns of each
	// panel, with a per-panel scale (the instrument ghosting geometry is
	// asymmetric between the panel pairs)
	GhostTemplate       []float64
	GhostTemplateScales []float64

	// Emit channels in reversed order
	ReverseChannels bool
}

// Pipeline - applies the correction chain to frames. Stateless across
// frames, so one Pipeline may be shared by concurrent workers.
type Pipeline struct {
	calib  *calibration.CalibrationData
	params Params
	log    logger.ILogger
}

func NewPipeline(calib *calibration.CalibrationData, params Params, log logger.ILogger) (*Pipeline, error) {
	if params.PanelWidth <= 0 || params.PanelWidth*4 != calib.ColumnsRaw() {
		return nil, fmt.Errorf("panel width %v doesn't divide %v columns into 4 panels", params.PanelWidth, calib.ColumnsRaw())
	}
	if len(params.GhostTemplate) > params.PanelWidth {
		return nil, fmt.Errorf("ghost template length %v exceeds panel width %v", len(params.GhostTemplate), params.PanelWidth)
	}
	if len(params.GhostTemplateScales) != 4 {
		return nil, fmt.Errorf("need 4 ghost template scales, got %v", len(params.GhostTemplateScales))
	}
	if len(params.DarkChannels) <= 0 {
		return nil, fmt.Errorf("no dark channels configured for pedestal correction")
	}
	for _, ch := range params.DarkChannels {
		if ch < 0 || ch >= calib.ChannelsRaw() {
			return nil, fmt.Errorf("dark channel %v out of range 0-%v", ch, calib.ChannelsRaw()-1)
		}
	}
	if len(calib.BadColumns()) > 0 && len(calib.CleanChannels()) <= 0 {
		return nil, fmt.Errorf("bad pixels are flagged but no clean channels exist to infer from")
	}

	return &Pipeline{calib: calib, params: params, log: log}, nil
}

// Apply - runs the full correction chain on one frame. The input frame is
// not modified. The returned frame is the same shape, guaranteed finite.
func (p *Pipeline) Apply(f frame.Frame) frame.Frame {
	work := f.Clone()

	// Detector corrections
	p.subtractDark(work)
	p.correctPedestalShift(work)
	work = p.correctPanelGhost(work)
	p.applyFlatField(work)
	work = p.repairBadPixels(work)

	// Optical corrections
	work = correctSpectralResponse(work, p.calib.SpectralResponse())
	work = correctSpatialResponse(work, p.calib.SpatialResponse())

	// Absolute radiometry
	p.applyRadiometricGain(work)

	p.finalize(work)
	return work
}

func (p *Pipeline) subtractDark(f frame.Frame) {
	for ch := 0; ch < f.Channels; ch++ {
		floats.Sub(f.Row(ch), p.calib.DarkRow(ch))
	}
}

// The pedestal is a common-mode column bias that drifts between frames, so
// the static dark frame can't capture it. The masked "dark" channels see
// no light - whatever is left in them after dark subtraction is pedestal.
func (p *Pipeline) correctPedestalShift(f frame.Frame) {
	mean := make([]float64, f.Columns)
	for _, ch := range p.params.DarkChannels {
		floats.Add(mean, f.Row(ch))
	}
	floats.Scale(1/float64(len(p.params.DarkChannels)), mean)

	for ch := 0; ch < f.Channels; ch++ {
		floats.Sub(f.Row(ch), mean)
	}
}

func (p *Pipeline) applyFlatField(f frame.Frame) {
	for ch := 0; ch < f.Channels; ch++ {
		vecmath.MulBlockInPlace(f.Row(ch), p.calib.FlatFieldRow(ch))
	}
}

func (p *Pipeline) applyRadiometricGain(f frame.Frame) {
	gain := p.calib.RadiometricGain()
	for ch := 0; ch < f.Channels; ch++ {
		row := f.Row(ch)
		vecmath.ScaleBlock(row, row, gain[ch])
	}
}

// Force any non-finite result to zero and optionally reverse the channel
// order for output
func (p *Pipeline) finalize(f frame.Frame) {
	count := 0
	for i, v := range f.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			f.Data[i] = 0
			count++
		}
	}
	if count > 0 {
		p.log.Debugf("Replaced %v non-finite values in corrected frame", count)
	}

	if p.params.ReverseChannels {
		scratch := make([]float64, f.Columns)
		for ch := 0; ch < f.Channels/2; ch++ {
			opposite := f.Channels - 1 - ch
			copy(scratch, f.Row(ch))
			copy(f.Row(ch), f.Row(opposite))
			copy(f.Row(opposite), scratch)
		}
	}
}
