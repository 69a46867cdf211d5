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

package gtsdata

import (
	"fmt"
	"math"
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// WriteEquilibrium writes an equilibrium grid file to w.
func WriteEquilibrium(w *os.File, g *EquilibriumGrid) error {
	if err := g.check(); err != nil {
		return err
	}
	h := cdf.NewHeader(
		[]string{"RIndex", "ZIndex", "boundaryIndex"},
		[]int{len(g.RGrid), len(g.ZGrid), len(g.RBoundary)})
	h.AddAttribute("", "comment", "GTSMap equilibrium grid file")
	h.AddAttribute("", "data_version", GTSDataVersion)
	h.AddAttribute("", "B0", []float64{g.B0})
	h.AddAttribute("", "R0", []float64{g.R0})
	h.AddAttribute("", "axisR", []float64{g.AxisR})
	h.AddAttribute("", "axisZ", []float64{g.AxisZ})
	h.AddVariable("RGrid", []string{"RIndex"}, []float32{0})
	h.AddVariable("ZGrid", []string{"ZIndex"}, []float32{0})
	h.AddVariable("aGrid", []string{"ZIndex", "RIndex"}, []float32{0})
	h.AddVariable("BGrid", []string{"ZIndex", "RIndex"}, []float32{0})
	h.AddVariable("RBoundary", []string{"boundaryIndex"}, []float32{0})
	h.AddVariable("ZBoundary", []string{"boundaryIndex"}, []float32{0})
	h.Define()
	cf, err := cdf.Create(w, h)
	if err != nil {
		return err
	}
	for _, v := range []struct {
		name string
		data []float64
	}{{"RGrid", g.RGrid}, {"ZGrid", g.ZGrid},
		{"RBoundary", g.RBoundary}, {"ZBoundary", g.ZBoundary}} {
		if err := writeSlice(cf, v.name, v.data); err != nil {
			return err
		}
	}
	if err := writeArray(cf, "aGrid", g.AGrid); err != nil {
		return err
	}
	if err := writeArray(cf, "BGrid", g.BGrid); err != nil {
		return err
	}
	return cdf.UpdateNumRecs(w)
}

// WriteProfileTables writes a profile table file to w.
func WriteProfileTables(w *os.File, tb *ProfileTables) error {
	if err := tb.check(); err != nil {
		return err
	}
	h := cdf.NewHeader([]string{"aIndex"}, []int{len(tb.A)})
	h.AddAttribute("", "comment", "GTSMap plasma profile table file")
	h.AddAttribute("", "data_version", GTSDataVersion)
	vars := []struct {
		name string
		data []float64
	}{{"aTable", tb.A}, {"neTable", tb.Ne}, {"TeTable", tb.Te},
		{"TiTable", tb.Ti}, {"qTable", tb.Q}, {"BpolTable", tb.Bpol}}
	for _, v := range vars {
		h.AddVariable(v.name, []string{"aIndex"}, []float32{0})
	}
	h.Define()
	cf, err := cdf.Create(w, h)
	if err != nil {
		return err
	}
	for _, v := range vars {
		if err := writeSlice(cf, v.name, v.data); err != nil {
			return err
		}
	}
	return cdf.UpdateNumRecs(w)
}

// PotentialFrame holds the electrostatic potential samples of one
// timestep on a flux coordinate sample grid.
type PotentialFrame struct {
	// Step is the simulation timestep the samples belong to.
	Step int

	// A, Theta, and Zeta are the strictly increasing sample axes. The
	// two angle axes are periodic and must span less than a full circle.
	A, Theta, Zeta []float64

	// Phi is the potential [V], with shape
	// [len(A)][len(Theta)][len(Zeta)].
	Phi *sparse.DenseArray
}

func (fr *PotentialFrame) check() error {
	if fr.Step < 0 {
		return fmt.Errorf("gtsdata: negative timestep %d", fr.Step)
	}
	for _, ax := range []struct {
		name string
		data []float64
	}{{"a", fr.A}, {"theta", fr.Theta}, {"zeta", fr.Zeta}} {
		if err := checkAxis(ax.name, ax.data); err != nil {
			return err
		}
	}
	for _, ax := range []struct {
		name string
		data []float64
	}{{"theta", fr.Theta}, {"zeta", fr.Zeta}} {
		if ax.data[len(ax.data)-1]-ax.data[0] >= 2*math.Pi {
			return fmt.Errorf("gtsdata: the %s axis spans a full circle or more", ax.name)
		}
	}
	want := []int{len(fr.A), len(fr.Theta), len(fr.Zeta)}
	if fr.Phi == nil || !shapeEqual(fr.Phi.Shape, want) {
		return fmt.Errorf("gtsdata: phi should have shape %v", want)
	}
	return nil
}

// sameGrid reports whether two frames share one sample grid.
func (fr *PotentialFrame) sameGrid(other *PotentialFrame) bool {
	for _, ax := range []struct{ a, b []float64 }{
		{fr.A, other.A}, {fr.Theta, other.Theta}, {fr.Zeta, other.Zeta}} {
		if len(ax.a) != len(ax.b) {
			return false
		}
		for i, v := range ax.a {
			if v != ax.b[i] {
				return false
			}
		}
	}
	return true
}

// WritePotential writes one timestep of potential samples to w.
func WritePotential(w *os.File, fr *PotentialFrame) error {
	if err := fr.check(); err != nil {
		return err
	}
	h := cdf.NewHeader(
		[]string{"aIndex", "thetaIndex", "zetaIndex"},
		[]int{len(fr.A), len(fr.Theta), len(fr.Zeta)})
	h.AddAttribute("", "comment", "GTSMap electrostatic potential file")
	h.AddAttribute("", "data_version", GTSDataVersion)
	h.AddAttribute("", "step", []int32{int32(fr.Step)})
	h.AddVariable("a", []string{"aIndex"}, []float32{0})
	h.AddVariable("theta", []string{"thetaIndex"}, []float32{0})
	h.AddVariable("zeta", []string{"zetaIndex"}, []float32{0})
	h.AddVariable("phi", []string{"aIndex", "thetaIndex", "zetaIndex"}, []float32{0})
	h.Define()
	cf, err := cdf.Create(w, h)
	if err != nil {
		return err
	}
	for _, v := range []struct {
		name string
		data []float64
	}{{"a", fr.A}, {"theta", fr.Theta}, {"zeta", fr.Zeta}} {
		if err := writeSlice(cf, v.name, v.data); err != nil {
			return err
		}
	}
	if err := writeArray(cf, "phi", fr.Phi); err != nil {
		return err
	}
	return cdf.UpdateNumRecs(w)
}

func writeArray(cf *cdf.File, name string, data *sparse.DenseArray) error {
	tmp := make([]float32, len(data.Elements))
	for i, v := range data.Elements {
		tmp[i] = float32(v)
	}
	end := cf.Header.Lengths(name)
	start := make([]int, len(end))
	if _, err := cf.Writer(name, start, end).Write(tmp); err != nil {
		return fmt.Errorf("gtsdata: writing variable %s: %v", name, err)
	}
	return nil
}

func writeSlice(cf *cdf.File, name string, data []float64) error {
	d := sparse.ZerosDense(len(data))
	copy(d.Elements, data)
	return writeArray(cf, name, d)
}
