package domain

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// CosineLatWeights returns the area weight of each latitude row, cos(lat in
// radians). Cells share a constant angular size, so weighting rows this way
// turns the plain spatial mean into an area mean.
func CosineLatWeights(lats []float64) []float64 {
	w := make([]float64, len(lats))
	for i, lat := range lats {
		w[i] = math.Cos(lat * math.Pi / 180)
	}
	return w
}

// AreaMean computes the weighted spatial mean of a single time step. plane is
// a row-major lat x lon grid with nlon values per row; rowWeights holds one
// weight per latitude row, broadcast across longitude. NaN cells are excluded
// from both the weighted sum and the weight total. Returns NaN when the plane
// has no finite cell.
func AreaMean(plane, rowWeights []float64, nlon int) float64 {
	vals := make([]float64, 0, len(plane))
	wts := make([]float64, 0, len(plane))
	for i, v := range plane {
		if math.IsNaN(v) {
			continue
		}
		vals = append(vals, v)
		wts = append(wts, rowWeights[i/nlon])
	}
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, wts)
}
