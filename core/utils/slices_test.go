package utils

import "testing"

func Test_ItemInSlice(t *testing.T) {
	if !ItemInSlice(3, []int{1, 2, 3}) {
		t.Errorf("3 should be in slice")
	}
	if ItemInSlice(4, []int{1, 2, 3}) {
		t.Errorf("4 should not be in slice")
	}
	if ItemInSlice("x", []string{}) {
		t.Errorf("nothing is in an empty slice")
	}
}

func Test_ConvertNumberSlice(t *testing.T) {
	got := ConvertNumberSlice[float64]([]int16{-7, 0, 312})
	want := []float64{-7, 0, 312}
	if len(got) != len(want) {
		t.Fatalf("got %v values; want %v", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%v]=%v; want %v", i, got[i], want[i])
		}
	}

	// Truncation follows Go conversion rules
	gotF32 := ConvertNumberSlice[float32]([]float64{1.5})
	if gotF32[0] != 1.5 {
		t.Errorf("float64->float32 got %v; want 1.5", gotF32[0])
	}
}
