package provider

import (
	"math"
	"testing"

	"github.com/nilsmagnus/grib/griblib"
)

func TestSetGridSubDegreeIncrements(t *testing.T) {
	w := &GribWind{}
	w.setGrid(&griblib.Grid0{
		La1: 43000000,
		Lo1: 5000000,
		Di:  250000,
		Dj:  250000,
		Ni:  1440,
		Nj:  561,
	})

	if w.lat0 != 43.0 || w.lon0 != 5.0 {
		t.Errorf("origin = (%f, %f); want (43, 5)", w.lat0, w.lon0)
	}
	if w.dLat != 0.25 {
		t.Errorf("dLat = %f; want 0.25", w.dLat)
	}
	if w.dLon != 0.25 {
		t.Errorf("dLon = %f; want 0.25", w.dLon)
	}
	if w.nLat != 561 || w.nLon != 1440 {
		t.Errorf("grid size = %dx%d; want 561x1440", w.nLat, w.nLon)
	}
}

func uniformGrid(n uint32, v float64) [][]float64 {
	grid := make([][]float64, n)
	for j := range grid {
		grid[j] = make([]float64, n)
		for i := range grid[j] {
			grid[j][i] = v
		}
	}
	return grid
}

func TestSampleUniformField(t *testing.T) {
	w := &GribWind{
		lat0: 50, lon0: 0,
		dLat: 1, dLon: 1,
		nLat: 3, nLon: 3,
		u: uniformGrid(3, 3.0),
		v: uniformGrid(3, 4.0),
	}

	snap := w.Sample(51.5, 1.5)
	if snap == nil {
		t.Fatal("Sample(51.5, 1.5) = nil; want in-grid snapshot")
	}
	if math.Abs(snap.SpeedKt-5.0*msToKnots) > 1e-9 {
		t.Errorf("speed = %f kt; want %f", snap.SpeedKt, 5.0*msToKnots)
	}
	if math.Abs(snap.DirectionDeg-216.8698976458) > 1e-6 {
		t.Errorf("direction = %f; want 216.87", snap.DirectionDeg)
	}
}

func TestSampleOutsideGrid(t *testing.T) {
	w := &GribWind{
		lat0: 50, lon0: 0,
		dLat: 1, dLon: 1,
		nLat: 3, nLon: 3,
		u: uniformGrid(3, 3.0),
		v: uniformGrid(3, 4.0),
	}

	if snap := w.Sample(55, 1.5); snap != nil {
		t.Errorf("Sample(55, 1.5) = %+v; want nil outside the grid", snap)
	}
}
