package domain

import "time"

// Grid is a materialized (time, lat, lon) block of one variable, row-major
// with longitude fastest. Coordinates keep the storage order of the source
// axes.
type Grid struct {
	Name   string
	Units  string
	Times  []time.Time
	Lats   []float64
	Lons   []float64
	Values []float64
}

// NewGrid allocates a zeroed grid over the given axes.
func NewGrid(name, units string, times []time.Time, lats, lons []float64) *Grid {
	return &Grid{
		Name:   name,
		Units:  units,
		Times:  times,
		Lats:   lats,
		Lons:   lons,
		Values: make([]float64, len(times)*len(lats)*len(lons)),
	}
}

// At returns the value at time step t, latitude row y, longitude column x.
func (g *Grid) At(t, y, x int) float64 {
	return g.Values[(t*len(g.Lats)+y)*len(g.Lons)+x]
}

// Plane returns the lat x lon block of one time step, as a view into Values.
func (g *Grid) Plane(t int) []float64 {
	n := len(g.Lats) * len(g.Lons)
	return g.Values[t*n : (t+1)*n]
}
