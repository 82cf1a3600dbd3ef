package provider

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/nilsmagnus/grib/griblib"

	"github.com/a-bouts/tactics-server/env"
)

const msToKnots = 1.9438444924406

// GribWind samples a 10 m wind forecast grid at the venue position. It is
// the lowest-precedence wind source: a coarse model value for when no live
// reading has arrived yet.
type GribWind struct {
	Date time.Time
	File string

	lat0 float64
	lon0 float64
	dLat float64
	dLon float64
	nLat uint32
	nLon uint32
	u    [][]float64
	v    [][]float64
}

// LoadGrib reads the u/v 10 m wind components from a grib2 file.
func LoadGrib(path string, date time.Time) (*GribWind, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open grib %s: %w", path, err)
	}
	defer f.Close()

	messages, err := griblib.ReadMessages(f)
	if err != nil {
		return nil, fmt.Errorf("read grib %s: %w", path, err)
	}

	w := &GribWind{Date: date, File: path}
	for _, message := range messages {
		if message.Section0.Discipline != 0 ||
			message.Section4.ProductDefinitionTemplate.ParameterCategory != 2 ||
			message.Section4.ProductDefinitionTemplate.FirstSurface.Type != 103 ||
			message.Section4.ProductDefinitionTemplate.FirstSurface.Value != 10 {
			continue
		}
		grid0, ok := message.Section3.Definition.(*griblib.Grid0)
		if !ok {
			continue
		}
		w.setGrid(grid0)
		switch message.Section4.ProductDefinitionTemplate.ParameterNumber {
		case 2:
			w.u = w.buildGrid(message.Section7.Data)
		case 3:
			w.v = w.buildGrid(message.Section7.Data)
		}
	}

	if w.u == nil || w.v == nil {
		return nil, fmt.Errorf("grib %s carries no 10m u/v wind", path)
	}
	return w, nil
}

// setGrid reads the grid geometry. Coordinates and increments are stored in
// micro-degrees; convert before dividing so sub-degree increments survive.
func (w *GribWind) setGrid(grid0 *griblib.Grid0) {
	w.lat0 = float64(grid0.La1) / 1e6
	w.lon0 = float64(grid0.Lo1) / 1e6
	w.dLat = float64(grid0.Di) / 1e6
	w.dLon = float64(grid0.Dj) / 1e6
	w.nLat = grid0.Nj
	w.nLon = grid0.Ni
}

func (w *GribWind) buildGrid(data []float64) [][]float64 {
	isContinuous := math.Floor(float64(w.nLon)*w.dLon) >= 360

	nLon := w.nLon
	if isContinuous {
		nLon++
	}

	grid := make([][]float64, w.nLat)
	p := 0
	for j := uint32(0); j < w.nLat; j++ {
		grid[j] = make([]float64, nLon)
		for i := uint32(0); i < w.nLon; i++ {
			grid[j][i] = data[p]
			p++
		}
		if isContinuous {
			grid[j][w.nLon] = grid[j][0]
		}
	}
	return grid
}

func floorMod(a float64, n float64) float64 {
	return a - n*math.Floor(a/n)
}

func bilinear(x, y float64, g00, g10, g01, g11 [2]float64) (float64, float64) {
	rx := 1 - x
	ry := 1 - y

	a := rx * ry
	b := x * ry
	c := rx * y
	d := x * y

	u := g00[0]*a + g10[0]*b + g01[0]*c + g11[0]*d
	v := g00[1]*a + g10[1]*b + g01[1]*c + g11[1]*d

	return u, v
}

func vectorToDegrees(u, v, d float64) float64 {
	velocityDir := math.Atan2(u/d, v/d)
	return velocityDir*180/math.Pi + 180
}

// Sample interpolates the grid at the venue position and returns a wind
// snapshot, or nil when the position falls outside the grid.
func (w *GribWind) Sample(lat, lon float64) *env.WindSnapshot {
	i := math.Abs((lat - w.lat0) / w.dLat)
	j := floorMod(lon-w.lon0, 360.0) / w.dLon

	fi := uint32(i)
	fj := uint32(j)
	if fi+1 >= w.nLat || fj+1 >= uint32(len(w.u[0])) {
		return nil
	}

	u, v := bilinear(j-float64(fj), i-float64(fi),
		[2]float64{w.u[fi][fj], w.v[fi][fj]},
		[2]float64{w.u[fi][fj+1], w.v[fi][fj+1]},
		[2]float64{w.u[fi+1][fj], w.v[fi+1][fj]},
		[2]float64{w.u[fi+1][fj+1], w.v[fi+1][fj+1]})

	d := math.Sqrt(u*u + v*v)
	if d == 0 {
		return &env.WindSnapshot{SpeedKt: 0, DirectionDeg: 0, Forecast: w.File, FetchedAt: time.Now()}
	}

	return &env.WindSnapshot{
		SpeedKt:      d * msToKnots,
		DirectionDeg: vectorToDegrees(u, v, d),
		Forecast:     w.File,
		FetchedAt:    time.Now(),
	}
}
