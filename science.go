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
	"math"

	"github.com/ctessum/sparse"
)

// lcfsDecayWidth is the e-folding width, in flux label units, of the
// profile falloff applied outside the last closed flux surface.
const lcfsDecayWidth = 0.02

// decayOutsideLCFS applies an exponential falloff to the density and
// temperature profiles at points outside the last closed flux surface.
// The Equilibrium anchors profile values at such points to the boundary
// value, so the decayed profiles are continuous at the boundary, decrease
// monotonically with distance beyond it, and never go negative. Points
// inside the boundary are untouched.
func decayOutsideLCFS(fc *FluxCoords, p *Profiles) {
	for i, inside := range fc.Inside.Elements {
		if inside != 0 {
			continue
		}
		a := fc.A.Elements[i]
		if a < 1 {
			// Flagged outside without a usable flux label, as
			// happens when an inversion fails to converge; the
			// boundary-anchored value stands.
			continue
		}
		f := math.Exp(-(a - 1) / lcfsDecayWidth)
		p.Ne0.Elements[i] *= f
		p.Te.Elements[i] *= f
		p.Ti.Elements[i] *= f
	}
}

// adiabaticResponse computes the electron density perturbation caused by
// the electrostatic potential under the adiabatic electron assumption:
// δn = ne0·φ/Te, with φ in volts and Te in eV. Points without fluctuation
// coverage, and points where Te vanishes, get exactly zero.
func adiabaticResponse(phi *sparse.DenseArray, p *Profiles, covered *sparse.DenseArrayInt) *sparse.DenseArray {
	dn := sparse.ZerosDense(phi.Shape...)
	for i, c := range covered.Elements {
		if c == 0 {
			continue
		}
		te := p.Te.Elements[i]
		if te <= 0 {
			continue
		}
		dn.Elements[i] = p.Ne0.Elements[i] * phi.Elements[i] / te
	}
	return dn
}
