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
	"github.com/specimaging/radcal/core/frame"
	"gonum.org/v1/gonum/mat"
)

// Cross-talk deconvolution. Replacing every column vector with srf@column
// is the matrix product srf x F, and replacing every row with crf@row is
// F x crf^T, so both stages are single dense multiplies.

func correctSpectralResponse(f frame.Frame, srf *mat.Dense) frame.Frame {
	in := mat.NewDense(f.Channels, f.Columns, f.Data)
	var out mat.Dense
	out.Mul(srf, in)

	return frame.Frame{Channels: f.Channels, Columns: f.Columns, Data: out.RawMatrix().Data}
}

func correctSpatialResponse(f frame.Frame, crf *mat.Dense) frame.Frame {
	in := mat.NewDense(f.Channels, f.Columns, f.Data)
	var out mat.Dense
	out.Mul(in, crf.T())

	return frame.Frame{Channels: f.Channels, Columns: f.Columns, Data: out.RawMatrix().Data}
}
