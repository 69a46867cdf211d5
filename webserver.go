/*
Copyright © 2018 the GTSMap authors.
This file is part of GTSMap.

GTSMap is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

GTSMap is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with GTSMap.  If not, see <http://www.gnu.org/licenses/>.
*/

package gtsmap

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/ctessum/sparse"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// OutputOptions returns the names, descriptions, and units of the mapped
// variables in d.
func (d *MapData) OutputOptions() (names, descriptions, units []string) {
	for n := range d.Data {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		descriptions = append(descriptions, d.Data[n].Description)
		units = append(units, d.Data[n].Units)
	}
	return
}

func s2i(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	i64, err := strconv.ParseInt(s, 10, 64)
	return int(i64), err
}

// plane adapts one horizontal plane of a mapped variable to the
// plotter.GridXYZ interface.
type plane struct {
	data   *sparse.DenseArray
	t, k   int // fixed time and layer indices
	xa, ya []float64
}

func (g *plane) Dims() (c, r int) { return len(g.xa), len(g.ya) }
func (g *plane) X(c int) float64  { return g.xa[c] }
func (g *plane) Y(r int) float64  { return g.ya[r] }
func (g *plane) Z(c, r int) float64 {
	if len(g.data.Shape) == 4 {
		return g.data.Get(g.t, g.k, r, c)
	}
	return g.data.Get(g.k, r, c)
}

// Plane returns the horizontal plane of the named variable at timestep
// index t and layer index k, for plotting. For variables without a time
// dimension t is ignored.
func (d *MapData) Plane(name string, t, k int) (plotter.GridXYZ, error) {
	dd, ok := d.Data[name]
	if !ok {
		return nil, fmt.Errorf("gtsmap: undefined variable name '%s'", name)
	}
	nd := len(dd.Data.Shape)
	if nd != 3 && nd != 4 {
		return nil, fmt.Errorf("gtsmap: variable %s has no horizontal planes to plot", name)
	}
	if nd == 3 {
		t = 0
	}
	if k < 0 || k >= d.Config.NZ {
		return nil, fmt.Errorf("gtsmap: layer %d out of range [0, %d)", k, d.Config.NZ)
	}
	if t < 0 || nd == 4 && t >= d.Config.NT {
		return nil, fmt.Errorf("gtsmap: timestep index %d out of range [0, %d)", t, d.Config.NT)
	}
	return &plane{data: dd.Data, t: t, k: k, xa: d.Config.XAxis(), ya: d.Config.YAxis()}, nil
}

func (d *MapData) mapHandler(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Path[len("/map/"):]
	t, err := s2i(r.FormValue("step"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	k, err := s2i(r.FormValue("layer"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	g, err := d.Plane(name, t, k)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p, err := plot.New()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	units := d.Data[name].Units
	if units != "" {
		p.Title.Text = fmt.Sprintf("%s [%s]", name, units)
	} else {
		p.Title.Text = name
	}
	p.X.Label.Text = "x [m]"
	p.Y.Label.Text = "y [m]"
	p.Add(plotter.NewHeatMap(g, palette.Heat(16, 1)))

	c := vgimg.New(5*vg.Inch, 5*vg.Inch)
	p.Draw(draw.New(c))
	w.Header().Set("Content-Type", "image/png")
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (d *MapData) indexHandler(w http.ResponseWriter, r *http.Request) {
	names, descriptions, units := d.OutputOptions()
	fmt.Fprint(w, "<html><head><title>GTSMap</title></head><body>")
	fmt.Fprintf(w, "<h1>Mapped profile data</h1>")
	fmt.Fprintf(w, "<p>B0=%g T, R0=%g m, axis at (%g, %g) m</p>", d.B0, d.R0, d.AxisR, d.AxisZ)
	fmt.Fprint(w, "<table border=1><tr><th>Variable</th><th>Description</th><th>Units</th></tr>")
	for i, n := range names {
		fmt.Fprintf(w, "<tr><td><a href=\"/map/%s?step=0&layer=0\">%s</a></td><td>%s</td><td>%s</td></tr>",
			n, n, descriptions[i], units[i])
	}
	fmt.Fprint(w, "</table></body></html>")
}

// Handler returns an http.Handler that serves an index page listing the
// mapped variables and map images at /map/VarName?step=T&layer=K.
func (d *MapData) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/map/", d.mapHandler)
	mux.HandleFunc("/", d.indexHandler)
	return mux
}

// WebServer serves maps of the data in d at the given address, with an
// index page listing the available variables and map images at
// /map/VarName?step=T&layer=K.
func (d *MapData) WebServer(address string) error {
	return http.ListenAndServe(address, d.Handler())
}
