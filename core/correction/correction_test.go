package correction

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/specimaging/radcal/core/calibration"
	"github.com/specimaging/radcal/core/fileaccess"
	"github.com/specimaging/radcal/core/frame"
	"github.com/specimaging/radcal/core/logger"
)

// Test fixtures are 6 channels x 8 columns (4 panels of width 2)
const (
	testChannels = 6
	testColumns  = 8
)

type calibOpts struct {
	dark []float64 // default zeros
	flat []float64 // default ones
	srf  []float64 // default identity
	crf  []float64 // default identity
	bad  []uint16  // default none
	gain []float64 // default ones
}

func onesf(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = 1
	}
	return s
}

func identityf(n int) []float64 {
	m := make([]float64, n*n)
	for i := 0; i < n; i++ {
		m[i*n+i] = 1
	}
	return m
}

func asFloat32Bytes(t *testing.T, vals []float64) []byte {
	t.Helper()
	vals32 := make([]float32, len(vals))
	for i, v := range vals {
		vals32[i] = float32(v)
	}
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, vals32); err != nil {
		t.Fatalf("Failed to encode float32 data: %v", err)
	}
	return buf.Bytes()
}

func asUint16Bytes(t *testing.T, vals []uint16) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, vals); err != nil {
		t.Fatalf("Failed to encode uint16 data: %v", err)
	}
	return buf.Bytes()
}

// Builds a CalibrationData through the real loader so tests exercise the
// same path production does. Defaults have identity effect: dark 0, flat 1,
// gain 1, identity response matrices, no bad pixels.
func makeCalib(t *testing.T, opts calibOpts) *calibration.CalibrationData {
	t.Helper()

	n := testChannels * testColumns
	if opts.dark == nil {
		opts.dark = make([]float64, n)
	}
	if opts.flat == nil {
		opts.flat = onesf(n)
	}
	if opts.srf == nil {
		opts.srf = identityf(testChannels)
	}
	if opts.crf == nil {
		opts.crf = identityf(testColumns)
	}
	if opts.bad == nil {
		opts.bad = make([]uint16, n)
	}
	if opts.gain == nil {
		opts.gain = onesf(testChannels)
	}

	spectralCal := ""
	gainTable := ""
	for ch := 0; ch < testChannels; ch++ {
		spectralCal += fmt.Sprintf("%v 0.5 0.01\n", ch)
		gainTable += fmt.Sprintf("%v 0 0\n", opts.gain[ch])
	}

	fs := fileaccess.MakeMemoryAccess()
	bucket := "correction-test"
	files := map[string][]byte{
		"dark.img":         asFloat32Bytes(t, append(append([]float64{}, opts.dark...), opts.dark...)),
		"flat.img":         asFloat32Bytes(t, append(append([]float64{}, opts.flat...), opts.flat...)),
		"srf.img":          asFloat32Bytes(t, opts.srf),
		"crf.img":          asFloat32Bytes(t, opts.crf),
		"bad.img":          asUint16Bytes(t, opts.bad),
		"lin.img":          asUint16Bytes(t, make([]uint16, 65536)),
		"spectral_cal.txt": []byte(spectralCal),
		"rccoeffs.txt":     []byte(gainTable),
	}
	for name, data := range files {
		if err := fs.WriteObject(bucket, name, data); err != nil {
			t.Fatalf("Failed to write %v: %v", name, err)
		}
	}

	calib, err := calibration.Load(fs, bucket, calibration.Refs{
		ChannelsRaw:                testChannels,
		ColumnsRaw:                 testColumns,
		DarkFrameFile:              "dark.img",
		FlatFieldFile:              "flat.img",
		BadElementFile:             "bad.img",
		SpectralResponseFile:       "srf.img",
		SpatialResponseFile:        "crf.img",
		SpectralCalibrationFile:    "spectral_cal.txt",
		RadiometricCoefficientFile: "rccoeffs.txt",
		LinearityFile:              "lin.img",
	}, &logger.NullLogger{})
	if err != nil {
		t.Fatalf("Failed to load test calibration: %v", err)
	}
	return calib
}

func identityParams() Params {
	return Params{
		DarkChannels:        []int{0},
		PanelWidth:          testColumns / 4,
		GhostCoefficient:    0,
		GhostTemplate:       nil,
		GhostTemplateScales: []float64{1.6, 1.6, 1.0, 1.0},
	}
}

func makePipeline(t *testing.T, opts calibOpts, params Params) *Pipeline {
	t.Helper()
	p, err := NewPipeline(makeCalib(t, opts), params, &logger.NullLogger{})
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	return p
}

func framesEqual(a frame.Frame, b frame.Frame) bool {
	if a.Channels != b.Channels || a.Columns != b.Columns {
		return false
	}
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			return false
		}
	}
	return true
}

func Test_Apply_PreservesShape(t *testing.T) {
	p := makePipeline(t, calibOpts{}, identityParams())

	f := frame.NewFrame(testChannels, testColumns)
	for i := range f.Data {
		f.Data[i] = float64(i)
	}

	out := p.Apply(f)
	if out.Channels != testChannels || out.Columns != testColumns {
		t.Errorf("Corrected shape %vx%v; want %vx%v", out.Channels, out.Columns, testChannels, testColumns)
	}
}

func Test_Apply_AllZeroIdentityCalibration(t *testing.T) {
	p := makePipeline(t, calibOpts{}, identityParams())

	out := p.Apply(frame.NewFrame(testChannels, testColumns))
	for i, v := range out.Data {
		if v != 0 {
			t.Fatalf("All-zero input with identity calibration gave non-zero output at %v: %v", i, v)
		}
	}
}

func Test_SubtractDark(t *testing.T) {
	dark := make([]float64, testChannels*testColumns)
	for i := range dark {
		dark[i] = 2
	}
	p := makePipeline(t, calibOpts{dark: dark}, identityParams())

	f := frame.NewFrame(testChannels, testColumns)
	for i := range f.Data {
		f.Data[i] = 10
	}
	p.subtractDark(f)

	for i, v := range f.Data {
		if v != 8 {
			t.Fatalf("Dark subtraction gave %v at %v; want 8", v, i)
		}
	}
}

func Test_CorrectPedestalShift(t *testing.T) {
	p := makePipeline(t, calibOpts{}, Params{
		DarkChannels:        []int{0, 1},
		PanelWidth:          testColumns / 4,
		GhostTemplateScales: []float64{1.6, 1.6, 1.0, 1.0},
	})

	f := frame.NewFrame(testChannels, testColumns)
	// Dark channels 0 and 1 see pedestal 4 and 6 -> mean 5 per column
	for col := 0; col < testColumns; col++ {
		f.Set(0, col, 4)
		f.Set(1, col, 6)
		f.Set(2, col, 100)
	}
	p.correctPedestalShift(f)

	if got := f.At(2, 3); got != 95 {
		t.Errorf("Pedestal-corrected signal got %v; want 95", got)
	}
	if got := f.At(5, 0); got != -5 {
		t.Errorf("Pedestal-corrected empty channel got %v; want -5", got)
	}
}

func Test_PanelGhost_ZeroedConfigIsNoOp(t *testing.T) {
	p := makePipeline(t, calibOpts{}, Params{
		DarkChannels:        []int{0},
		PanelWidth:          testColumns / 4,
		GhostCoefficient:    0,
		GhostTemplate:       []float64{0, 0},
		GhostTemplateScales: []float64{1.6, 1.6, 1.0, 1.0},
	})

	f := frame.NewFrame(testChannels, testColumns)
	for i := range f.Data {
		f.Data[i] = float64(i)*3.7 - 11
	}

	out := p.correctPanelGhost(f)
	if !framesEqual(f, out) {
		t.Errorf("Zeroed ghost correction should be a no-op")
	}
}

func Test_PanelGhost_HandComputed(t *testing.T) {
	p := makePipeline(t, calibOpts{}, Params{
		DarkChannels:        []int{0},
		PanelWidth:          2,
		GhostCoefficient:    0.1,
		GhostTemplate:       []float64{0.5},
		GhostTemplateScales: []float64{1.6, 1.6, 1.0, 1.0},
	})

	// Panel k holds the constant value k+1, so panel row means are 1,2,3,4
	f := frame.NewFrame(testChannels, testColumns)
	for ch := 0; ch < testChannels; ch++ {
		for col := 0; col < testColumns; col++ {
			f.Set(ch, col, float64(col/2+1))
		}
	}

	out := p.correctPanelGhost(f)

	// Panel 0, template column: 1 + 1.6*(2+3+4)*0.5 = 8.2
	// Panel 0, plain column:    1 + 0.1*(2+3+4)     = 1.9
	// Panel 2, template column: 3 + 1.0*(1+2+4)*0.5 = 6.5
	// Panel 2, plain column:    3 + 0.1*(1+2+4)     = 3.7
	cases := []struct {
		col  int
		want float64
	}{
		{0, 8.2}, {1, 1.9}, {4, 6.5}, {5, 3.7},
	}
	for _, c := range cases {
		if got := out.At(3, c.col); math.Abs(got-c.want) > 1e-12 {
			t.Errorf("Ghost-corrected column %v got %v; want %v", c.col, got, c.want)
		}
	}
}

func Test_RepairBadPixels(t *testing.T) {
	// One flagged pixel: channel 1, column 2
	bad := make([]uint16, testChannels*testColumns)
	bad[1*testColumns+2] = 1

	p := makePipeline(t, calibOpts{bad: bad}, identityParams())

	// Column 5 is exactly 2x column 2 on the clean channels, so it wins the
	// similarity argmax with cosine 1 and fits target = 0.5*best exactly
	cols := [testColumns][testChannels]float64{
		0: {3, 1, 4, 1, 5, 9},
		1: {2, 7, 1, 8, 2, 8},
		2: {10, 999, 30, 40, 50, 60}, // 999 is the defective readout
		3: {1, 6, 1, 8, 0, 3},
		4: {9, 9, 8, 2, 4, 4},
		5: {20, 70, 60, 80, 100, 120},
		6: {2, 6, 5, 3, 5, 8},
		7: {0, 1, 2, 30, 4, 5},
	}
	f := frame.NewFrame(testChannels, testColumns)
	for col, vals := range cols {
		for ch, v := range vals {
			f.Set(ch, col, v)
		}
	}

	out := p.repairBadPixels(f)

	// Inferred from column 5: 0.5 * 70 = 35
	if got := out.At(1, 2); math.Abs(got-35) > 1e-9 {
		t.Errorf("Repaired value got %v; want 35", got)
	}

	// Everything unflagged is bit-identical
	for ch := 0; ch < testChannels; ch++ {
		for col := 0; col < testColumns; col++ {
			if ch == 1 && col == 2 {
				continue
			}
			if out.At(ch, col) != f.At(ch, col) {
				t.Errorf("Unflagged position (%v,%v) changed: %v -> %v", ch, col, f.At(ch, col), out.At(ch, col))
			}
		}
	}
}

func Test_BestCorrelatedColumn_FirstMaxTieBreak(t *testing.T) {
	// Columns 3 and 6 are both exactly proportional to column 1 (power of
	// two multiples, so the similarities are bit-identical) - the first one
	// wins the argmax
	f := frame.NewFrame(testChannels, testColumns)
	for ch := 0; ch < testChannels; ch++ {
		base := float64(ch + 1)
		f.Set(ch, 1, base)
		f.Set(ch, 3, 2*base)
		f.Set(ch, 6, 4*base)
		f.Set(ch, 0, float64((ch*7)%5+1))
		f.Set(ch, 2, float64((ch*3)%4+2))
		f.Set(ch, 4, float64((ch*5)%7+1))
		f.Set(ch, 5, float64((ch*2)%3+1))
		f.Set(ch, 7, float64((ch*4)%6+1))
	}

	clean := []int{0, 1, 2, 3, 4, 5}
	if got := bestCorrelatedColumn(f, 1, clean); got != 3 {
		t.Errorf("Tie should break to first max, got column %v; want 3", got)
	}
}

func Test_ResponseCorrection_Identity(t *testing.T) {
	p := makePipeline(t, calibOpts{}, identityParams())

	f := frame.NewFrame(testChannels, testColumns)
	for i := range f.Data {
		f.Data[i] = float64(i) * 1.25
	}

	out := correctSpectralResponse(f, p.calib.SpectralResponse())
	if !framesEqual(f, out) {
		t.Errorf("Identity spectral response changed the frame")
	}

	out = correctSpatialResponse(f, p.calib.SpatialResponse())
	if !framesEqual(f, out) {
		t.Errorf("Identity spatial response changed the frame")
	}
}

func Test_ResponseCorrection_MixesAxes(t *testing.T) {
	// A spectral response that swaps channels 0 and 1
	srf := identityf(testChannels)
	srf[0*testChannels+0] = 0
	srf[0*testChannels+1] = 1
	srf[1*testChannels+0] = 1
	srf[1*testChannels+1] = 0

	p := makePipeline(t, calibOpts{srf: srf}, identityParams())

	f := frame.NewFrame(testChannels, testColumns)
	for col := 0; col < testColumns; col++ {
		f.Set(0, col, 5)
		f.Set(1, col, 7)
	}

	out := correctSpectralResponse(f, p.calib.SpectralResponse())
	if out.At(0, 3) != 7 || out.At(1, 3) != 5 {
		t.Errorf("Swap response got (%v,%v); want (7,5)", out.At(0, 3), out.At(1, 3))
	}
}

func Test_RadiometricGainAndReverse(t *testing.T) {
	gain := onesf(testChannels)
	gain[1] = 2
	gain[testChannels-1] = 3

	params := identityParams()
	params.ReverseChannels = true
	p := makePipeline(t, calibOpts{gain: gain}, params)

	// Channel 0 is the pedestal reference and stays 0 so the pedestal stage
	// is a no-op here
	f := frame.NewFrame(testChannels, testColumns)
	for ch := 1; ch < testChannels; ch++ {
		for col := 0; col < testColumns; col++ {
			f.Set(ch, col, 10)
		}
	}

	out := p.Apply(f)

	// Channel order is reversed on output, so the scaled channel 1 lands in
	// the second-last row and the last channel in row 0
	if got := out.At(testChannels-2, 0); got != 20 {
		t.Errorf("Reversed channel 1 got %v; want 20", got)
	}
	if got := out.At(0, 0); got != 30 {
		t.Errorf("Reversed last channel got %v; want 30", got)
	}
}

func Test_Finalize_NonFiniteForcedToZero(t *testing.T) {
	p := makePipeline(t, calibOpts{}, identityParams())

	f := frame.NewFrame(testChannels, testColumns)
	f.Set(2, 2, math.NaN())
	f.Set(3, 3, math.Inf(1))
	f.Set(4, 4, -1.5)

	p.finalize(f)

	if f.At(2, 2) != 0 || f.At(3, 3) != 0 {
		t.Errorf("Non-finite values not forced to zero: %v %v", f.At(2, 2), f.At(3, 3))
	}
	if f.At(4, 4) != -1.5 {
		t.Errorf("Finite value changed by finalize: %v", f.At(4, 4))
	}
}

func Test_NewPipeline_Validation(t *testing.T) {
	calib := makeCalib(t, calibOpts{})

	bad := []Params{
		{DarkChannels: []int{0}, PanelWidth: 3, GhostTemplateScales: []float64{1, 1, 1, 1}},
		{DarkChannels: []int{0}, PanelWidth: 2, GhostTemplate: []float64{1, 2, 3}, GhostTemplateScales: []float64{1, 1, 1, 1}},
		{DarkChannels: []int{0}, PanelWidth: 2, GhostTemplateScales: []float64{1, 1}},
		{DarkChannels: []int{}, PanelWidth: 2, GhostTemplateScales: []float64{1, 1, 1, 1}},
		{DarkChannels: []int{testChannels}, PanelWidth: 2, GhostTemplateScales: []float64{1, 1, 1, 1}},
	}
	for i, params := range bad {
		if _, err := NewPipeline(calib, params, &logger.NullLogger{}); err == nil {
			t.Errorf("Case %v: expected validation error for %+v", i, params)
		}
	}
}
