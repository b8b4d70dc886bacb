package frame

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func Test_RowIsView(t *testing.T) {
	f := NewFrame(3, 4)
	f.Row(1)[2] = 7.5

	if f.At(1, 2) != 7.5 {
		t.Errorf("Row should be a view into frame data, At(1,2)=%v", f.At(1, 2))
	}
	if f.At(0, 2) != 0 || f.At(2, 2) != 0 {
		t.Errorf("Write leaked into other channels")
	}
}

func Test_CloneIsIndependent(t *testing.T) {
	f := NewFrame(2, 2)
	f.Set(0, 0, 1)

	c := f.Clone()
	c.Set(0, 0, 99)

	if f.At(0, 0) != 1 {
		t.Errorf("Clone write changed original: %v", f.At(0, 0))
	}
}

func Test_DecodeRawFrame(t *testing.T) {
	// 1 header channel + 2 raw channels, 3 columns
	samples := []int16{
		100, 101, 102, // header, should be stripped
		-5, 0, 5,
		1000, -1000, 32767,
	}
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		t.Fatalf("Failed to build record: %v", err)
	}

	f, err := DecodeRawFrame(buf.Bytes(), 1, 2, 3)
	if err != nil {
		t.Fatalf("DecodeRawFrame failed: %v", err)
	}

	if f.Channels != 2 || f.Columns != 3 {
		t.Fatalf("Decoded shape %vx%v; want 2x3", f.Channels, f.Columns)
	}

	want := []float64{-5, 0, 5, 1000, -1000, 32767}
	for i, w := range want {
		if f.Data[i] != w {
			t.Errorf("Data[%v]=%v; want %v", i, f.Data[i], w)
		}
	}
}

func Test_DecodeRawFrame_WrongSize(t *testing.T) {
	_, err := DecodeRawFrame(make([]byte, 10), 1, 2, 3)
	if err == nil {
		t.Errorf("Expected error for wrong record size")
	}
}

func Test_EncodeRadiance(t *testing.T) {
	f := NewFrame(2, 2)
	f.Set(0, 0, 1.5)
	f.Set(1, 1, -2.25)

	data, err := EncodeRadiance(f)
	if err != nil {
		t.Fatalf("EncodeRadiance failed: %v", err)
	}
	if len(data) != RadianceRecordSize(2, 2) {
		t.Fatalf("Encoded %v bytes; want %v", len(data), RadianceRecordSize(2, 2))
	}

	got := math.Float32frombits(binary.LittleEndian.Uint32(data[0:4]))
	if got != 1.5 {
		t.Errorf("First sample %v; want 1.5", got)
	}
	got = math.Float32frombits(binary.LittleEndian.Uint32(data[12:16]))
	if got != -2.25 {
		t.Errorf("Last sample %v; want -2.25", got)
	}
}
