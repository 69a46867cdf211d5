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
	"testing"

	"github.com/ctessum/sparse"
)

func denseOfInt(vals ...int) *sparse.DenseArrayInt {
	a := sparse.ZerosDenseInt(len(vals))
	copy(a.Elements, vals)
	return a
}

// decayProfiles builds profiles that are uniform in space, so that any
// change decayOutsideLCFS makes stands out.
func decayProfiles(n int) *Profiles {
	p := &Profiles{
		Bpol: sparse.ZerosDense(n),
		Ti:   sparse.ZerosDense(n),
		Te:   sparse.ZerosDense(n),
		P:    sparse.ZerosDense(n),
		Ne0:  sparse.ZerosDense(n),
		Q:    sparse.ZerosDense(n),
	}
	for i := 0; i < n; i++ {
		p.Ne0.Elements[i] = 1.0e19
		p.Te.Elements[i] = 200
		p.Ti.Elements[i] = 150
		p.Bpol.Elements[i] = 0.2
		p.P.Elements[i] = 500
		p.Q.Elements[i] = 2
	}
	return p
}

func TestDecayOutsideLCFS(t *testing.T) {
	const tolerance = 1.0e-12

	// Points: inside, exactly on the boundary but flagged outside, one
	// decay width out, two widths out, and a failed inversion (outside
	// with a < 1).
	fc := &FluxCoords{
		A:      denseOf(0.5, 1, 1+lcfsDecayWidth, 1+2*lcfsDecayWidth, 0),
		Inside: denseOfInt(1, 0, 0, 0, 0),
	}
	p := decayProfiles(5)

	decayOutsideLCFS(fc, p)

	// The inside point and the failed inversion are untouched, as is the
	// boundary point, where the falloff factor is exactly 1.
	for _, i := range []int{0, 1, 4} {
		if p.Ne0.Elements[i] != 1.0e19 || p.Te.Elements[i] != 200 || p.Ti.Elements[i] != 150 {
			t.Errorf("point %d changed: ne=%g Te=%g Ti=%g",
				i, p.Ne0.Elements[i], p.Te.Elements[i], p.Ti.Elements[i])
		}
	}

	// One decay width beyond the boundary the profiles have fallen by 1/e.
	if want := 1.0e19 / math.E; math.Abs(p.Ne0.Elements[2]-want)/want > tolerance {
		t.Errorf("ne at one decay width: want %g, have %g", want, p.Ne0.Elements[2])
	}
	if want := 200 / math.E; math.Abs(p.Te.Elements[2]-want)/want > tolerance {
		t.Errorf("Te at one decay width: want %g, have %g", want, p.Te.Elements[2])
	}

	// The falloff is monotone and stays positive.
	if !(p.Ne0.Elements[1] > p.Ne0.Elements[2] && p.Ne0.Elements[2] > p.Ne0.Elements[3]) {
		t.Errorf("falloff is not monotone: %v", p.Ne0.Elements[1:4])
	}
	if p.Ne0.Elements[3] <= 0 || p.Te.Elements[3] <= 0 || p.Ti.Elements[3] <= 0 {
		t.Errorf("falloff went nonpositive: ne=%g Te=%g Ti=%g",
			p.Ne0.Elements[3], p.Te.Elements[3], p.Ti.Elements[3])
	}

	// Pressure and the magnetic profiles keep their values.
	for i := 0; i < 5; i++ {
		if p.P.Elements[i] != 500 || p.Q.Elements[i] != 2 || p.Bpol.Elements[i] != 0.2 {
			t.Errorf("point %d: non-kinetic profile changed", i)
		}
	}
}

func TestAdiabaticResponse(t *testing.T) {
	p := decayProfiles(4)
	p.Ne0.Elements[0] = 2.0e19
	p.Te.Elements[0] = 100
	p.Te.Elements[3] = 0

	phi := denseOf(5, -1, 2, 2)
	covered := denseOfInt(1, 1, 0, 1)

	dn := adiabaticResponse(phi, p, covered)

	// δn = ne0 φ / Te, element by element.
	if want := p.Ne0.Elements[0] * phi.Elements[0] / p.Te.Elements[0]; dn.Elements[0] != want {
		t.Errorf("dn[0]: want %g, have %g", want, dn.Elements[0])
	}
	if want := p.Ne0.Elements[1] * phi.Elements[1] / p.Te.Elements[1]; dn.Elements[1] != want {
		t.Errorf("dn[1]: want %g, have %g", want, dn.Elements[1])
	}
	// No coverage and no temperature both give exactly zero.
	if dn.Elements[2] != 0 {
		t.Errorf("dn[2]: want 0 at an uncovered point, have %g", dn.Elements[2])
	}
	if dn.Elements[3] != 0 {
		t.Errorf("dn[3]: want 0 where Te vanishes, have %g", dn.Elements[3])
	}
}

func BenchmarkAdiabaticResponse(b *testing.B) {
	const n = 201 * 101
	p := decayProfiles(n)
	phi := sparse.ZerosDense(n)
	covered := sparse.ZerosDenseInt(n)
	for i := 0; i < n; i++ {
		phi.Elements[i] = math.Sin(float64(i))
		covered.Elements[i] = 1
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		adiabaticResponse(phi, p, covered)
	}
}
