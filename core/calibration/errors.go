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

import "fmt"

// Both of these are fatal at startup - there is no partial-calibration mode,
// so a run must abort before the first frame is read.

// MissingFileError - a required calibration reference is absent
type MissingFileError struct {
	Name string // which reference, eg "dark frame"
	Path string
}

func (e MissingFileError) Error() string {
	return fmt.Sprintf("missing calibration file for %v: %v", e.Name, e.Path)
}

// ShapeError - a calibration reference doesn't match the declared dimensions
type ShapeError struct {
	Name string
	Got  int
	Want int
	Unit string // "bytes" for binary references, "rows" for text tables
}

func (e ShapeError) Error() string {
	return fmt.Sprintf("calibration file for %v has incorrect size: got %v %v, expected %v", e.Name, e.Got, e.Unit, e.Want)
}
