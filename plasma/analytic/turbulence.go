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
	"io"
	"math"
	"math/rand"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/sparse"
	"github.com/plasmamodel/gtsmap"
)

// TurbulenceFile is the conventional name of the turbulence parameter
// file inside the fluctuation dataset directory.
const TurbulenceFile = "turbulence.toml"

// Turbulence is a deterministic drift wave turbulence model: a seeded sum
// of rotating modes with a Gaussian radial envelope and a ballooning-like
// poloidal envelope. It covers the radial window [AMin, AMax].
type Turbulence struct {
	// Amplitude scales the potential [V].
	Amplitude float64

	// Modes is the number of drift modes summed.
	Modes int

	// MMin and MMax bound the poloidal mode numbers, and NMin and NMax
	// the toroidal ones.
	MMin, MMax int
	NMin, NMax int

	// KRad bounds the per-mode radial wavenumber [1/flux label].
	KRad float64

	// APeak centers the Gaussian radial mode envelope, and AWidth is its
	// width in flux label units.
	APeak, AWidth float64

	// AMin and AMax bound the radial window the source covers.
	AMin, AMax float64

	// ThetaWidth is the width of the poloidal envelope
	// exp(−(1−cos θ)/ThetaWidth²), which concentrates the modes on the
	// outboard midplane. Zero disables the envelope.
	ThetaWidth float64

	// Omega0 is the frequency scale [radians per simulation timestep];
	// each mode rotates at a frequency between half and one and a half
	// times it.
	Omega0 float64

	// Seed selects the mode numbers and phases. Sources with equal
	// parameters and seeds produce identical fields.
	Seed int64
}

// DefaultTurbulence returns an edge-localized drift wave spectrum.
func DefaultTurbulence() *Turbulence {
	return &Turbulence{
		Amplitude:  2.0,
		Modes:      24,
		MMin:       8,
		MMax:       40,
		NMin:       4,
		NMax:       20,
		KRad:       25,
		APeak:      0.85,
		AWidth:     0.08,
		AMin:       0.6,
		AMax:       1.0,
		ThetaWidth: 1.2,
		Omega0:     0.05,
		Seed:       1,
	}
}

// LoadTurbulence reads turbulence parameters from a TOML file, filling in
// defaults for keys that are not given.
func LoadTurbulence(path string) (*Turbulence, error) {
	t := DefaultTurbulence()
	md, err := toml.DecodeFile(path, t)
	if err != nil {
		return nil, fmt.Errorf("analytic: parsing turbulence file %s: %v", path, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return nil, fmt.Errorf("analytic: unknown turbulence file keys: %v", undec)
	}
	if err := t.check(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Turbulence) check() error {
	if t.Modes < 1 {
		return fmt.Errorf("analytic: turbulence needs at least one mode; got %d", t.Modes)
	}
	if t.MMin < 1 || t.MMax < t.MMin || t.NMin < 1 || t.NMax < t.NMin {
		return fmt.Errorf("analytic: bad mode number ranges m [%d, %d], n [%d, %d]",
			t.MMin, t.MMax, t.NMin, t.NMax)
	}
	if t.AWidth <= 0 {
		return fmt.Errorf("analytic: AWidth must be positive; got %g", t.AWidth)
	}
	if t.AMax < t.AMin {
		return fmt.Errorf("analytic: bad coverage window [%g, %g]", t.AMin, t.AMax)
	}
	if t.KRad < 0 || t.ThetaWidth < 0 {
		return fmt.Errorf("analytic: KRad and ThetaWidth must not be negative")
	}
	return nil
}

// driftMode is one member of the mode spectrum.
type driftMode struct {
	m, n  int
	ka    float64
	omega float64
	phase float64
}

// driftModes draws the mode spectrum. The draw depends only on the
// parameters and the seed, so repeated calls give the same spectrum.
func (t *Turbulence) driftModes() []driftMode {
	rng := rand.New(rand.NewSource(t.Seed))
	modes := make([]driftMode, t.Modes)
	for i := range modes {
		modes[i] = driftMode{
			m:     t.MMin + rng.Intn(t.MMax-t.MMin+1),
			n:     t.NMin + rng.Intn(t.NMax-t.NMin+1),
			ka:    (2*rng.Float64() - 1) * t.KRad,
			omega: t.Omega0 * (0.5 + rng.Float64()),
			phase: 2 * math.Pi * rng.Float64(),
		}
	}
	return modes
}

// Potential prepares sampling of the model potential at the given flux
// coordinates and toroidal angles for the given timesteps. The iterator
// can be restarted by calling Potential again; the same parameters and
// seed always reproduce the same fields.
func (t *Turbulence) Potential(fc *gtsmap.FluxCoords, zeta *sparse.DenseArray, steps []int) (gtsmap.NextData, *sparse.DenseArrayInt, error) {
	if err := t.check(); err != nil {
		return nil, nil, err
	}
	if fc == nil || fc.A == nil || fc.Theta == nil {
		return nil, nil, fmt.Errorf("analytic: nil flux coordinates")
	}
	if zeta == nil || !shapeEqual(zeta.Shape, fc.A.Shape) {
		return nil, nil, fmt.Errorf("analytic: zeta does not match the flux coordinate shape")
	}
	covered := sparse.ZerosDenseInt(fc.A.Shape...)
	for i, a := range fc.A.Elements {
		if a >= t.AMin && a <= t.AMax {
			covered.Elements[i] = 1
		}
	}
	modes := t.driftModes()
	norm := t.Amplitude / math.Sqrt(float64(len(modes)))
	it := 0
	next := func() (*sparse.DenseArray, error) {
		if it >= len(steps) {
			return nil, io.EOF
		}
		step := float64(steps[it])
		it++
		phi := sparse.ZerosDense(fc.A.Shape...)
		for i := range phi.Elements {
			if covered.Elements[i] == 0 {
				continue
			}
			a := fc.A.Elements[i]
			th := fc.Theta.Elements[i]
			ze := zeta.Elements[i]
			da := a - t.APeak
			env := math.Exp(-da * da / (2 * t.AWidth * t.AWidth))
			if t.ThetaWidth > 0 {
				env *= math.Exp(-(1 - math.Cos(th)) / (t.ThetaWidth * t.ThetaWidth))
			}
			var sum float64
			for _, dm := range modes {
				sum += math.Cos(float64(dm.m)*th - float64(dm.n)*ze +
					dm.ka*a - dm.omega*step + dm.phase)
			}
			phi.Elements[i] = norm * env * sum
		}
		return phi, nil
	}
	return next, covered, nil
}
