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

// Package analytic provides a closed-form model plasma: a circular flux
// surface equilibrium with parabolic profiles, and a deterministic drift
// wave turbulence source. It is meant for tests, demos, and generating
// synthetic datasets.
package analytic

import (
	"fmt"
	"math"

	"github.com/BurntSushi/toml"
)

// Params describes the model equilibrium.
type Params struct {
	// B0 is the toroidal magnetic field on the magnetic axis [T].
	B0 float64

	// R0 is the reference major radius [m].
	R0 float64

	// Minor is the minor radius [m] of the last closed flux surface.
	Minor float64

	// AxisR and AxisZ place the magnetic axis [m].
	AxisR, AxisZ float64

	// NeCore and NeEdge are the equilibrium electron density [m⁻³] on
	// the axis and at the last closed flux surface, and NeExp is the
	// profile peaking exponent.
	NeCore, NeEdge, NeExp float64

	// TeCore, TeEdge, and TeExp shape the electron temperature profile
	// [eV] used when this model supplies the grid input fields.
	TeCore, TeEdge, TeExp float64

	// TiCore, TiEdge, and TiExp shape the ion temperature profile [eV].
	TiCore, TiEdge, TiExp float64

	// Q0, Q1, and Q2 are the safety factor coefficients:
	// q(a) = Q0 + Q1·a + Q2·a².
	Q0, Q1, Q2 float64
}

// Default returns parameters for a medium-sized tokamak whose outboard
// edge sits inside the standard configuration window.
func Default() Params {
	return Params{
		B0:     2.0,
		R0:     1.7,
		Minor:  0.6,
		AxisR:  1.7,
		AxisZ:  0,
		NeCore: 4.0e19,
		NeEdge: 5.0e18,
		NeExp:  1.5,
		TeCore: 2000,
		TeEdge: 80,
		TeExp:  2,
		TiCore: 1500,
		TiEdge: 100,
		TiExp:  2,
		Q0:     1.05,
		Q1:     0,
		Q2:     2.0,
	}
}

// Load reads parameters from a TOML file, filling in defaults for keys
// that are not given. Keys that do not correspond to parameters are an
// error.
func Load(path string) (Params, error) {
	p := Default()
	md, err := toml.DecodeFile(path, &p)
	if err != nil {
		return Params{}, fmt.Errorf("analytic: parsing parameter file %s: %v", path, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return Params{}, fmt.Errorf("analytic: unknown parameter file keys: %v", undec)
	}
	if err := p.check(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// q evaluates the safety factor at flux label a.
func (p Params) q(a float64) float64 { return p.Q0 + p.Q1*a + p.Q2*a*a }

// qMin returns the minimum of the safety factor over 0 ≤ a ≤ 1.
func (p Params) qMin() float64 {
	m := math.Min(p.q(0), p.q(1))
	if p.Q2 != 0 {
		if av := -p.Q1 / (2 * p.Q2); av > 0 && av < 1 {
			m = math.Min(m, p.q(av))
		}
	}
	return m
}

func (p Params) check() error {
	if p.B0 == 0 {
		return fmt.Errorf("analytic: B0 must be nonzero")
	}
	if p.R0 <= 0 || p.Minor <= 0 {
		return fmt.Errorf("analytic: R0 and Minor must be positive; got R0=%g, Minor=%g",
			p.R0, p.Minor)
	}
	if p.AxisR <= p.Minor {
		return fmt.Errorf("analytic: the boundary must stay at R > 0; got AxisR=%g, Minor=%g",
			p.AxisR, p.Minor)
	}
	if p.NeCore <= 0 || p.NeEdge <= 0 || p.TeCore <= 0 || p.TeEdge <= 0 ||
		p.TiCore <= 0 || p.TiEdge <= 0 {
		return fmt.Errorf("analytic: profile core and edge values must be positive")
	}
	if p.NeExp <= 0 || p.TeExp <= 0 || p.TiExp <= 0 {
		return fmt.Errorf("analytic: profile peaking exponents must be positive")
	}
	if p.qMin() <= 0 {
		return fmt.Errorf("analytic: the safety factor must stay positive over 0 ≤ a ≤ 1")
	}
	return nil
}

// profile evaluates the parabolic-power profile form
// edge + (core − edge)·(1 − a²)^exp, anchored to edge at the boundary.
func profile(core, edge, exp, a float64) float64 {
	if a >= 1 {
		return edge
	}
	return edge + (core-edge)*math.Pow(1-a*a, exp)
}
