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

// Small generic slice helpers shared across the calibration packages
package utils

import "golang.org/x/exp/constraints"

// Number - any numeric sample type we shuffle between (raw DNs are int16,
// frames are float64, output radiance is float32)
type Number interface {
	constraints.Integer | constraints.Float
}

func ItemInSlice[T comparable](a T, list []T) bool {
	for _, b := range list {
		if b == a {
			return true
		}
	}
	return false
}

// ConvertNumberSlice - copies a numeric slice into one of a different
// element type, eg int16 raw samples into a float64 frame
func ConvertNumberSlice[T Number, F Number](from []F) []T {
	res := make([]T, len(from))
	for i, e := range from {
		res[i] = T(e)
	}
	return res
}
