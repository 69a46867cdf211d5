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

package analytic

import (
	"fmt"
	"math"

	"github.com/ctessum/sparse"
	"github.com/plasmamodel/gtsmap"
)

// electronCharge is the elementary charge [C], for converting eV·m⁻³ to Pa.
const electronCharge = 1.6021766208e-19

// Equilibrium is a circular-flux-surface magnetic equilibrium with
// closed-form profiles.
type Equilibrium struct {
	p Params
}

// New returns an equilibrium with the given parameters.
func New(p Params) (*Equilibrium, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	return &Equilibrium{p: p}, nil
}

// Open returns an equilibrium with parameters read from the TOML file at
// eqFile. It has the signature the Mapper expects of an equilibrium
// opener; ntFile is ignored, as the model needs no profile tables.
func Open(eqFile, ntFile string) (gtsmap.Equilibrium, error) {
	p, err := Load(eqFile)
	if err != nil {
		return nil, err
	}
	return New(p)
}

// Params returns the parameters e was built with.
func (e *Equilibrium) Params() Params { return e.p }

// ReferenceField returns the toroidal field on the magnetic axis [T].
func (e *Equilibrium) ReferenceField() float64 { return e.p.B0 }

// ReferenceRadius returns the reference major radius [m].
func (e *Equilibrium) ReferenceRadius() float64 { return e.p.R0 }

// MagneticAxis returns the cylindrical coordinates [m] of the magnetic
// axis.
func (e *Equilibrium) MagneticAxis() (R, Z float64) { return e.p.AxisR, e.p.AxisZ }

// FluxCoords inverts cylindrical coordinates to flux coordinates. For
// circular surfaces the inversion is closed form, so it is exact
// everywhere and B is not needed; points are flagged outside where the
// flux label exceeds 1 or R is not positive.
func (e *Equilibrium) FluxCoords(R, Z, B *sparse.DenseArray) (*gtsmap.FluxCoords, error) {
	if R == nil || Z == nil {
		return nil, fmt.Errorf("analytic: nil coordinate arrays")
	}
	if !shapeEqual(R.Shape, Z.Shape) {
		return nil, fmt.Errorf("analytic: R has shape %v but Z has shape %v", R.Shape, Z.Shape)
	}
	fc := &gtsmap.FluxCoords{
		A:      sparse.ZerosDense(R.Shape...),
		Theta:  sparse.ZerosDense(R.Shape...),
		R:      R.Copy(),
		Z:      Z.Copy(),
		Inside: sparse.ZerosDenseInt(R.Shape...),
	}
	for i, r := range R.Elements {
		dR := r - e.p.AxisR
		dZ := Z.Elements[i] - e.p.AxisZ
		a := math.Sqrt(dR*dR+dZ*dZ) / e.p.Minor
		fc.A.Elements[i] = a
		fc.Theta.Elements[i] = math.Atan2(dZ, dR)
		if a <= 1 && r > 0 {
			fc.Inside.Elements[i] = 1
		}
	}
	return fc, nil
}

// Profiles evaluates the model profiles at the given flux coordinates.
// Points flagged outside are anchored to the boundary values at a = 1.
func (e *Equilibrium) Profiles(fc *gtsmap.FluxCoords, Te *sparse.DenseArray) (*gtsmap.Profiles, error) {
	if fc == nil || fc.A == nil || fc.R == nil {
		return nil, fmt.Errorf("analytic: nil flux coordinates")
	}
	if Te == nil || !shapeEqual(Te.Shape, fc.A.Shape) {
		return nil, fmt.Errorf("analytic: the electron temperature does not match the flux coordinate shape")
	}
	p := &gtsmap.Profiles{
		Bpol: sparse.ZerosDense(fc.A.Shape...),
		Ti:   sparse.ZerosDense(fc.A.Shape...),
		Te:   Te.Copy(),
		P:    sparse.ZerosDense(fc.A.Shape...),
		Ne0:  sparse.ZerosDense(fc.A.Shape...),
		Q:    sparse.ZerosDense(fc.A.Shape...),
	}
	for i, a := range fc.A.Elements {
		if a > 1 {
			a = 1
		}
		ne := profile(e.p.NeCore, e.p.NeEdge, e.p.NeExp, a)
		ti := profile(e.p.TiCore, e.p.TiEdge, e.p.TiExp, a)
		q := e.p.q(a)
		p.Ne0.Elements[i] = ne
		p.Ti.Elements[i] = ti
		p.Q.Elements[i] = q
		if r := fc.R.Elements[i]; r > 0 {
			p.Bpol.Elements[i] = a * e.p.Minor * e.p.B0 * e.p.R0 / (q * r * r)
		}
		p.P.Elements[i] = ne * (p.Te.Elements[i] + ti) * electronCharge
	}
	return p, nil
}

// Boundary traces the last closed flux surface with n points, closing the
// outline: the first and last points coincide.
func (e *Equilibrium) Boundary(n int) (R, Z []float64, err error) {
	if n < 2 {
		return nil, nil, fmt.Errorf("analytic: the boundary outline needs at least 2 points; got %d", n)
	}
	R = make([]float64, n)
	Z = make([]float64, n)
	for i := range R {
		th := 2 * math.Pi * float64(i) / float64(n-1)
		R[i] = e.p.AxisR + e.p.Minor*math.Cos(th)
		Z[i] = e.p.AxisZ + e.p.Minor*math.Sin(th)
	}
	return R, Z, nil
}

// GridFields builds the caller-side input fields for a mapping run on the
// given Cartesian grid: the electron temperature from the model profile,
// and the total magnetic field from the toroidal 1/R falloff plus the
// poloidal component. Outside the last closed flux surface both are
// anchored to their boundary values.
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
		Te.Elements[i] = profile(e.p.TeCore, e.p.TeEdge, e.p.TeExp, a)
		if rv := r.Elements[i]; rv > 0 {
			bt := e.p.B0 * e.p.R0 / rv
			bp := a * e.p.Minor * e.p.B0 * e.p.R0 / (e.p.q(a) * rv * rv)
			B.Elements[i] = math.Sqrt(bt*bt + bp*bp)
		}
	}
	return Te, B, nil
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
