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

// Package gtsdata reads and writes the on-disk dataset layout of a
// gyrokinetic tokamak simulation: a NetCDF equilibrium grid file, a
// profile table file, and one electrostatic potential file per timestep.
// It implements the gtsmap backend interfaces by interpolating the stored
// fields, so it never solves for the equilibrium itself.
package gtsdata

import (
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/plasmamodel/gtsmap"
)

// GTSDataVersion is the version of the dataset file formats. It needs to
// be changed whenever the meaning or layout of the stored variables
// changes.
const GTSDataVersion = "1.0.0"

// electronCharge is the elementary charge [C], for converting eV·m⁻³ to Pa.
const electronCharge = 1.6021766208e-19

// EquilibriumGrid holds the contents of an equilibrium grid file: the
// flux-label and total-field maps on a rectangular (R, Z) window, the
// reference scalars, and the outline of the last closed flux surface.
type EquilibriumGrid struct {
	// B0 and R0 are the reference magnetic field [T] and major
	// radius [m].
	B0, R0 float64

	// AxisR and AxisZ are the cylindrical coordinates [m] of the
	// magnetic axis.
	AxisR, AxisZ float64

	// RGrid and ZGrid are the strictly increasing sample axes [m].
	RGrid, ZGrid []float64

	// AGrid and BGrid are the flux surface label and the total magnetic
	// field [T] sampled on the axes, with shape [len(ZGrid)][len(RGrid)].
	AGrid, BGrid *sparse.DenseArray

	// RBoundary and ZBoundary trace the last closed flux surface [m].
	RBoundary, ZBoundary []float64
}

func (g *EquilibriumGrid) check() error {
	if err := checkAxis("RGrid", g.RGrid); err != nil {
		return err
	}
	if err := checkAxis("ZGrid", g.ZGrid); err != nil {
		return err
	}
	want := []int{len(g.ZGrid), len(g.RGrid)}
	for _, v := range []struct {
		name string
		data *sparse.DenseArray
	}{{"aGrid", g.AGrid}, {"BGrid", g.BGrid}} {
		if v.data == nil || !shapeEqual(v.data.Shape, want) {
			return fmt.Errorf("gtsdata: %s should have shape %v", v.name, want)
		}
	}
	if len(g.RBoundary) < 2 || len(g.RBoundary) != len(g.ZBoundary) {
		return fmt.Errorf("gtsdata: the boundary outline needs matching "+
			"R and Z series of at least 2 points; got %d and %d",
			len(g.RBoundary), len(g.ZBoundary))
	}
	return nil
}

// inWindow reports whether (r, z) falls inside the sampled window.
func (g *EquilibriumGrid) inWindow(r, z float64) bool {
	return r >= g.RGrid[0] && r <= g.RGrid[len(g.RGrid)-1] &&
		z >= g.ZGrid[0] && z <= g.ZGrid[len(g.ZGrid)-1]
}

// bilinear interpolates one of the sampled maps at (r, z), clamping
// coordinates outside the window onto its edge.
func (g *EquilibriumGrid) bilinear(grid *sparse.DenseArray, r, z float64) float64 {
	ir, fr := locate(g.RGrid, r)
	iz, fz := locate(g.ZGrid, z)
	v00 := grid.Get(iz, ir)
	v01 := grid.Get(iz, ir+1)
	v10 := grid.Get(iz+1, ir)
	v11 := grid.Get(iz+1, ir+1)
	return (1-fz)*((1-fr)*v00+fr*v01) + fz*((1-fr)*v10+fr*v11)
}

// ProfileTables holds the contents of a profile table file: flux
// functions sampled on a common flux label axis.
type ProfileTables struct {
	// A is the strictly increasing flux label axis.
	A []float64

	// Ne is the equilibrium electron density [m⁻³], Te and Ti the
	// electron and ion temperatures [eV], Q the safety factor, and Bpol
	// the poloidal magnetic field [T], each sampled on A.
	Ne, Te, Ti, Q, Bpol []float64
}

func (tb *ProfileTables) check() error {
	if err := checkAxis("aTable", tb.A); err != nil {
		return err
	}
	for _, v := range []struct {
		name string
		data []float64
	}{{"neTable", tb.Ne}, {"TeTable", tb.Te}, {"TiTable", tb.Ti},
		{"qTable", tb.Q}, {"BpolTable", tb.Bpol}} {
		if len(v.data) != len(tb.A) {
			return fmt.Errorf("gtsdata: %s has %d samples but the flux label axis has %d",
				v.name, len(v.data), len(tb.A))
		}
	}
	return nil
}

// interp evaluates one of the tables at flux label a, clamping to the
// table ends.
func (tb *ProfileTables) interp(table []float64, a float64) float64 {
	i, f := locate(tb.A, a)
	return table[i] + f*(table[i+1]-table[i])
}

// Equilibrium is a magnetic equilibrium backed by simulation output
// files. It inverts flux coordinates by interpolating the stored
// flux-label map and evaluates profiles from the stored tables.
type Equilibrium struct {
	grid   EquilibriumGrid
	tables ProfileTables
}

// Open reads the equilibrium grid file eqFile and the profile table file
// ntFile.
func Open(eqFile, ntFile string) (*Equilibrium, error) {
	e := new(Equilibrium)
	if err := readEquilibriumFile(eqFile, &e.grid); err != nil {
		return nil, err
	}
	if err := readProfileFile(ntFile, &e.tables); err != nil {
		return nil, err
	}
	return e, nil
}

func readEquilibriumFile(path string, g *EquilibriumGrid) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("gtsdata: opening equilibrium file: %v", err)
	}
	defer f.Close()
	cf, err := cdf.Open(f)
	if err != nil {
		return fmt.Errorf("gtsdata: reading equilibrium file %s: %v", path, err)
	}
	if err := checkVersion(cf, path); err != nil {
		return err
	}
	for _, attr := range []struct {
		name string
		v    *float64
	}{{"B0", &g.B0}, {"R0", &g.R0}, {"axisR", &g.AxisR}, {"axisZ", &g.AxisZ}} {
		if *attr.v, err = floatAttr(cf, path, attr.name); err != nil {
			return err
		}
	}
	if g.RGrid, err = readSlice(cf, path, "RGrid"); err != nil {
		return err
	}
	if g.ZGrid, err = readSlice(cf, path, "ZGrid"); err != nil {
		return err
	}
	if g.AGrid, err = readVar(cf, path, "aGrid"); err != nil {
		return err
	}
	if g.BGrid, err = readVar(cf, path, "BGrid"); err != nil {
		return err
	}
	if g.RBoundary, err = readSlice(cf, path, "RBoundary"); err != nil {
		return err
	}
	if g.ZBoundary, err = readSlice(cf, path, "ZBoundary"); err != nil {
		return err
	}
	return g.check()
}

func readProfileFile(path string, tb *ProfileTables) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("gtsdata: opening profile table file: %v", err)
	}
	defer f.Close()
	cf, err := cdf.Open(f)
	if err != nil {
		return fmt.Errorf("gtsdata: reading profile table file %s: %v", path, err)
	}
	if err := checkVersion(cf, path); err != nil {
		return err
	}
	for _, v := range []struct {
		name string
		dst  *[]float64
	}{{"aTable", &tb.A}, {"neTable", &tb.Ne}, {"TeTable", &tb.Te},
		{"TiTable", &tb.Ti}, {"qTable", &tb.Q}, {"BpolTable", &tb.Bpol}} {
		if *v.dst, err = readSlice(cf, path, v.name); err != nil {
			return err
		}
	}
	return tb.check()
}

// ReferenceField returns the reference magnetic field [T] stored in the
// equilibrium file.
func (e *Equilibrium) ReferenceField() float64 { return e.grid.B0 }

// ReferenceRadius returns the reference major radius [m] stored in the
// equilibrium file.
func (e *Equilibrium) ReferenceRadius() float64 { return e.grid.R0 }

// MagneticAxis returns the cylindrical coordinates [m] of the magnetic
// axis stored in the equilibrium file.
func (e *Equilibrium) MagneticAxis() (R, Z float64) { return e.grid.AxisR, e.grid.AxisZ }

// FluxCoords inverts cylindrical coordinates to flux coordinates by
// bilinear interpolation of the stored flux-label map, with the poloidal
// angle taken about the stored axis. Points outside the sampled window or
// with a flux label above 1 are flagged outside; B is not used. Values at
// window-outside points come from the clamped window edge, which keeps
// the boundary falloff continuous there.
func (e *Equilibrium) FluxCoords(R, Z, B *sparse.DenseArray) (*gtsmap.FluxCoords, error) {
	if R == nil || Z == nil {
		return nil, fmt.Errorf("gtsdata: nil coordinate arrays")
	}
	if !shapeEqual(R.Shape, Z.Shape) {
		return nil, fmt.Errorf("gtsdata: R has shape %v but Z has shape %v", R.Shape, Z.Shape)
	}
	fc := &gtsmap.FluxCoords{
		A:      sparse.ZerosDense(R.Shape...),
		Theta:  sparse.ZerosDense(R.Shape...),
		R:      R.Copy(),
		Z:      Z.Copy(),
		Inside: sparse.ZerosDenseInt(R.Shape...),
	}
	for i, r := range R.Elements {
		z := Z.Elements[i]
		a := e.grid.bilinear(e.grid.AGrid, r, z)
		fc.A.Elements[i] = a
		fc.Theta.Elements[i] = math.Atan2(z-e.grid.AxisZ, r-e.grid.AxisR)
		if e.grid.inWindow(r, z) && a <= 1 && r > 0 {
			fc.Inside.Elements[i] = 1
		}
	}
	return fc, nil
}

// Profiles evaluates the stored profile tables at the given flux
// coordinates. Points flagged outside are anchored to the values at
// a = 1.
func (e *Equilibrium) Profiles(fc *gtsmap.FluxCoords, Te *sparse.DenseArray) (*gtsmap.Profiles, error) {
	if fc == nil || fc.A == nil {
		return nil, fmt.Errorf("gtsdata: nil flux coordinates")
	}
	if Te == nil || !shapeEqual(Te.Shape, fc.A.Shape) {
		return nil, fmt.Errorf("gtsdata: the electron temperature does not match the flux coordinate shape")
	}
	p := &gtsmap.Profiles{
		Bpol: sparse.ZerosDense(fc.A.Shape...),
		Ti:   sparse.ZerosDense(fc.A.Shape...),
		Te:   Te.Copy(),
		P:    sparse.ZerosDense(fc.A.Shape...),
		Ne0:  sparse.ZerosDense(fc.A.Shape...),
		Q:    sparse.ZerosDense(fc.A.Shape...),
	}
	tb := &e.tables
	for i, a := range fc.A.Elements {
		if a > 1 {
			a = 1
		}
		ne := tb.interp(tb.Ne, a)
		ti := tb.interp(tb.Ti, a)
		p.Ne0.Elements[i] = ne
		p.Ti.Elements[i] = ti
		p.Q.Elements[i] = tb.interp(tb.Q, a)
		p.Bpol.Elements[i] = tb.interp(tb.Bpol, a)
		p.P.Elements[i] = ne * (p.Te.Elements[i] + ti) * electronCharge
	}
	return p, nil
}

// Boundary returns n points tracing the stored outline of the last
// closed flux surface, resampled by linear interpolation along the
// outline when n differs from the stored point count.
func (e *Equilibrium) Boundary(n int) (R, Z []float64, err error) {
	if n < 2 {
		return nil, nil, fmt.Errorf("gtsdata: the boundary outline needs at least 2 points; got %d", n)
	}
	rb, zb := e.grid.RBoundary, e.grid.ZBoundary
	R = make([]float64, n)
	Z = make([]float64, n)
	for i := range R {
		t := float64(i) * float64(len(rb)-1) / float64(n-1)
		j := int(t)
		if j > len(rb)-2 {
			j = len(rb) - 2
		}
		f := t - float64(j)
		R[i] = rb[j] + f*(rb[j+1]-rb[j])
		Z[i] = zb[j] + f*(zb[j+1]-zb[j])
	}
	return R, Z, nil
}

// GridFields builds the caller-side input fields for a mapping run on the
// given Cartesian grid: the electron temperature interpolated from the
// profile tables, and the total magnetic field interpolated from the
// stored field map. Outside the window both clamp to the window edge.
func (e *Equilibrium) GridFields(x, y, z *sparse.DenseArray) (Te, B *sparse.DenseArray, err error) {
	r, zc, _, err := gtsmap.CartesianToCylindrical(x, y, z)
	if err != nil {
		return nil, nil, err
	}
	fc, err := e.FluxCoords(r, zc, nil)
	if err != nil {
		return nil, nil, err
	}
	Te = sparse.ZerosDense(x.Shape...)
	B = sparse.ZerosDense(x.Shape...)
	for i, a := range fc.A.Elements {
		if a > 1 {
			a = 1
		}
		Te.Elements[i] = e.tables.interp(e.tables.Te, a)
		B.Elements[i] = e.grid.bilinear(e.grid.BGrid, r.Elements[i], zc.Elements[i])
	}
	return Te, B, nil
}

// locate returns the index i of the axis interval containing v together
// with the fractional position of v inside it, so that
// axis[i] ≤ v ≤ axis[i+1]. Values outside the axis range clamp to its
// ends.
func locate(axis []float64, v float64) (int, float64) {
	n := len(axis)
	if v <= axis[0] {
		return 0, 0
	}
	if v >= axis[n-1] {
		return n - 2, 1
	}
	i := sort.SearchFloat64s(axis, v)
	if axis[i] > v {
		i--
	}
	return i, (v - axis[i]) / (axis[i+1] - axis[i])
}

func checkAxis(name string, axis []float64) error {
	if len(axis) < 2 {
		return fmt.Errorf("gtsdata: the %s axis needs at least 2 samples; got %d", name, len(axis))
	}
	for i := 1; i < len(axis); i++ {
		if axis[i] <= axis[i-1] {
			return fmt.Errorf("gtsdata: the %s axis is not strictly increasing at sample %d", name, i)
		}
	}
	return nil
}

func checkVersion(cf *cdf.File, path string) error {
	ver, ok := cf.Header.GetAttribute("", "data_version").(string)
	if !ok {
		return fmt.Errorf("gtsdata: %s has no data_version attribute", path)
	}
	if ver != GTSDataVersion {
		return fmt.Errorf("gtsdata: %s has data version %s, which is incompatible "+
			"with the required version %s", path, ver, GTSDataVersion)
	}
	return nil
}

func floatAttr(cf *cdf.File, path, name string) (float64, error) {
	v, ok := cf.Header.GetAttribute("", name).([]float64)
	if !ok || len(v) == 0 {
		return 0, fmt.Errorf("gtsdata: %s has no %s attribute", path, name)
	}
	return v[0], nil
}

func hasVariable(cf *cdf.File, name string) bool {
	for _, v := range cf.Header.Variables() {
		if v == name {
			return true
		}
	}
	return false
}

func readVar(cf *cdf.File, path, name string) (*sparse.DenseArray, error) {
	if !hasVariable(cf, name) {
		return nil, fmt.Errorf("gtsdata: %s has no variable %s", path, name)
	}
	data := sparse.ZerosDense(cf.Header.Lengths(name)...)
	tmp := make([]float32, len(data.Elements))
	if _, err := cf.Reader(name, nil, nil).Read(tmp); err != nil {
		return nil, fmt.Errorf("gtsdata: reading variable %s of %s: %v", name, path, err)
	}
	for i, v := range tmp {
		data.Elements[i] = float64(v)
	}
	return data, nil
}

func readSlice(cf *cdf.File, path, name string) ([]float64, error) {
	d, err := readVar(cf, path, name)
	if err != nil {
		return nil, err
	}
	if len(d.Shape) != 1 {
		return nil, fmt.Errorf("gtsdata: variable %s of %s should have one dimension; it has %d",
			name, path, len(d.Shape))
	}
	return d.Elements, nil
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if v != b[i] {
			return false
		}
	}
	return true
}
