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
	"math"
	"os"
	"strings"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/plasmamodel/gtsmap"
)

var _ gtsmap.Equilibrium = (*Equilibrium)(nil)

// TestParamsFile is the name of the parameter file written during tests.
const TestParamsFile = "TestAnalyticParams.toml"

// testParams returns parameters whose geometry is exact in floating
// point, so the coordinate tests can compare without tolerances.
func testParams() Params {
	p := Default()
	p.B0 = 2
	p.R0 = 1.5
	p.AxisR = 1.5
	p.AxisZ = 0
	p.Minor = 0.5
	return p
}

func TestParamsCheck(t *testing.T) {
	if err := Default().check(); err != nil {
		t.Fatalf("the default parameters do not pass their own check: %v", err)
	}
	tests := []struct {
		name   string
		mutate func(*Params)
		errStr string
	}{
		{"zero field", func(p *Params) { p.B0 = 0 }, "B0"},
		{"negative major radius", func(p *Params) { p.R0 = -1 }, "positive"},
		{"zero minor radius", func(p *Params) { p.Minor = 0 }, "positive"},
		{"axis too close to the center column", func(p *Params) { p.AxisR = 0.5 }, "boundary"},
		{"zero edge density", func(p *Params) { p.NeEdge = 0 }, "core and edge"},
		{"zero peaking exponent", func(p *Params) { p.TeExp = 0 }, "exponents"},
		{"negative safety factor", func(p *Params) { p.Q0 = -5 }, "safety factor"},
	}
	for _, test := range tests {
		p := Default()
		test.mutate(&p)
		err := p.check()
		if err == nil {
			t.Errorf("%s: expected an error", test.name)
			continue
		}
		if !strings.Contains(err.Error(), test.errStr) {
			t.Errorf("%s: error %q does not mention %q", test.name, err, test.errStr)
		}
	}
}

func TestNewRejectsBadParams(t *testing.T) {
	if _, err := New(Params{}); err == nil {
		t.Fatal("expected an error for zero-valued parameters")
	}
}

func TestSafetyFactorMinimum(t *testing.T) {
	tests := []struct {
		q0, q1, q2 float64
		want       float64
	}{
		{1.05, 0, 2, 1.05}, // rising; minimum at the axis
		{2, -2, 2, 1.5},    // dip at a = 0.5
		{2, -0.5, 0, 1.5},  // falling line; minimum at the boundary
	}
	for _, test := range tests {
		p := Default()
		p.Q0, p.Q1, p.Q2 = test.q0, test.q1, test.q2
		if have := p.qMin(); have != test.want {
			t.Errorf("q = %g + %g·a + %g·a²: want minimum %g, have %g",
				test.q0, test.q1, test.q2, test.want, have)
		}
	}
}

func TestProfileForm(t *testing.T) {
	const tolerance = 1.0e-12
	tests := []struct {
		core, edge, exp, a float64
		want               float64
	}{
		{10, 2, 1, 0, 10},
		{10, 2, 1, 1, 2},
		{10, 2, 1, 1.4, 2}, // anchored past the boundary
		{10, 2, 1, 0.5, 8},
		{10, 2, 2, 0.5, 6.5},
		{4.0e19, 5.0e18, 1.5, 0.6, 2.292e19},
	}
	for _, test := range tests {
		have := profile(test.core, test.edge, test.exp, test.a)
		if math.Abs(have-test.want) > tolerance*math.Abs(test.want) {
			t.Errorf("profile(%g, %g, %g, %g): want %g, have %g",
				test.core, test.edge, test.exp, test.a, test.want, have)
		}
	}
}

func TestLoadParams(t *testing.T) {
	f, err := os.Create(TestParamsFile)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(TestParamsFile)
	if _, err := f.WriteString("B0 = 2.5\nMinor = 0.4\n"); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	p, err := Load(TestParamsFile)
	if err != nil {
		t.Fatal(err)
	}
	if p.B0 != 2.5 || p.Minor != 0.4 {
		t.Errorf("file values not applied: %+v", p)
	}
	if p.R0 != 1.7 || p.NeCore != 4.0e19 {
		t.Errorf("defaults not kept: %+v", p)
	}
}

func TestLoadParamsErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errStr  string
	}{
		{"unknown key", "B00 = 1.0\n", "B00"},
		{"rejected value", "Minor = -1.0\n", "positive"},
	}
	for _, test := range tests {
		if err := os.WriteFile(TestParamsFile, []byte(test.content), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := Load(TestParamsFile)
		if err == nil {
			t.Errorf("%s: expected an error", test.name)
		} else if !strings.Contains(err.Error(), test.errStr) {
			t.Errorf("%s: error %q does not mention %q", test.name, err, test.errStr)
		}
		os.Remove(TestParamsFile)
	}
}

func TestOpen(t *testing.T) {
	if err := os.WriteFile(TestParamsFile, []byte("B0 = 2.5\n"), 0644); err != nil {
		t.Fatal(err)
	}
	defer os.Remove(TestParamsFile)
	eq, err := Open(TestParamsFile, "profile tables are not used")
	if err != nil {
		t.Fatal(err)
	}
	if eq.ReferenceField() != 2.5 {
		t.Errorf("want B0 = 2.5, have %g", eq.ReferenceField())
	}
	if _, err := Open("no_such_file.toml", ""); err == nil {
		t.Error("expected an error for a missing parameter file")
	}
}

func TestFluxCoords(t *testing.T) {
	e, err := New(testParams())
	if err != nil {
		t.Fatal(err)
	}
	R := denseOf(1.5, 2.0, 1.5, 1.0, 1.5, 2.25, 1.75)
	Z := denseOf(0, 0, 0.5, 0, -0.25, 0, 0)
	fc, err := e.FluxCoords(R, Z, nil)
	if err != nil {
		t.Fatal(err)
	}
	wantA := []float64{0, 1, 1, 1, 0.5, 1.5, 0.5}
	wantTheta := []float64{0, 0, math.Pi / 2, math.Pi, -math.Pi / 2, 0, 0}
	wantInside := []int{1, 1, 1, 1, 1, 0, 1}
	for i := range wantA {
		if fc.A.Elements[i] != wantA[i] {
			t.Errorf("point %d: want a = %g, have %g", i, wantA[i], fc.A.Elements[i])
		}
		if fc.Theta.Elements[i] != wantTheta[i] {
			t.Errorf("point %d: want θ = %g, have %g", i, wantTheta[i], fc.Theta.Elements[i])
		}
		if fc.Inside.Elements[i] != wantInside[i] {
			t.Errorf("point %d: want inside = %d, have %d", i, wantInside[i], fc.Inside.Elements[i])
		}
	}
	if fc.OutsideCount() != 1 {
		t.Errorf("want 1 point outside, have %d", fc.OutsideCount())
	}

	// The returned coordinates are copies.
	fc.R.Elements[0] = -99
	fc.Z.Elements[0] = -99
	if R.Elements[0] != 1.5 || Z.Elements[0] != 0 {
		t.Error("the flux coordinates share storage with the caller's arrays")
	}
}

func TestFluxCoordsErrors(t *testing.T) {
	e, err := New(testParams())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.FluxCoords(nil, denseOf(0), nil); err == nil {
		t.Error("expected an error for nil coordinates")
	}
	if _, err := e.FluxCoords(denseOf(1, 2), denseOf(0), nil); err == nil {
		t.Error("expected an error for mismatched shapes")
	}
}

func TestProfiles(t *testing.T) {
	const tolerance = 1.0e-12
	p := testParams()
	e, err := New(p)
	if err != nil {
		t.Fatal(err)
	}
	R := denseOf(1.5, 1.75, 2.0, 2.25)
	Z := denseOf(0, 0, 0, 0)
	fc, err := e.FluxCoords(R, Z, nil)
	if err != nil {
		t.Fatal(err)
	}
	Te := denseOf(100, 200, 300, 400)
	prof, err := e.Profiles(fc, Te)
	if err != nil {
		t.Fatal(err)
	}
	for i, a := range []float64{0, 0.5, 1, 1} { // the outside point is anchored
		r := R.Elements[i]
		ne := profile(p.NeCore, p.NeEdge, p.NeExp, a)
		ti := profile(p.TiCore, p.TiEdge, p.TiExp, a)
		q := p.q(a)
		wantBpol := a * p.Minor * p.B0 * p.R0 / (q * r * r)
		wantP := ne * (Te.Elements[i] + ti) * electronCharge
		if prof.Ne0.Elements[i] != ne {
			t.Errorf("point %d: want Ne0 = %g, have %g", i, ne, prof.Ne0.Elements[i])
		}
		if prof.Ti.Elements[i] != ti {
			t.Errorf("point %d: want Ti = %g, have %g", i, ti, prof.Ti.Elements[i])
		}
		if prof.Q.Elements[i] != q {
			t.Errorf("point %d: want q = %g, have %g", i, q, prof.Q.Elements[i])
		}
		if math.Abs(prof.Bpol.Elements[i]-wantBpol) > tolerance*math.Abs(wantBpol) {
			t.Errorf("point %d: want Bpol = %g, have %g", i, wantBpol, prof.Bpol.Elements[i])
		}
		if math.Abs(prof.P.Elements[i]-wantP) > tolerance*math.Abs(wantP) {
			t.Errorf("point %d: want P = %g, have %g", i, wantP, prof.P.Elements[i])
		}
	}
	if prof.Ne0.Elements[3] != p.NeEdge || prof.Ti.Elements[3] != p.TiEdge {
		t.Error("the outside point is not anchored to the boundary values")
	}

	// The electron temperature is a private copy.
	prof.Te.Elements[0] = -1
	if Te.Elements[0] != 100 {
		t.Error("the profiles share storage with the caller's electron temperature")
	}
}

func TestProfilesErrors(t *testing.T) {
	e, err := New(testParams())
	if err != nil {
		t.Fatal(err)
	}
	fc, err := e.FluxCoords(denseOf(1.5, 1.75), denseOf(0, 0), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Profiles(nil, denseOf(100, 200)); err == nil {
		t.Error("expected an error for nil flux coordinates")
	}
	if _, err := e.Profiles(fc, denseOf(100)); err == nil {
		t.Error("expected an error for a mismatched electron temperature shape")
	}
}

func TestBoundary(t *testing.T) {
	const tolerance = 1.0e-12
	p := testParams()
	e, err := New(p)
	if err != nil {
		t.Fatal(err)
	}
	R, Z, err := e.Boundary(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(R) != 5 || len(Z) != 5 {
		t.Fatalf("want 5 outline points, have %d and %d", len(R), len(Z))
	}
	wantR := []float64{2.0, 1.5, 1.0, 1.5, 2.0}
	wantZ := []float64{0, 0.5, 0, -0.5, 0}
	for i := range R {
		if math.Abs(R[i]-wantR[i]) > tolerance || math.Abs(Z[i]-wantZ[i]) > tolerance {
			t.Errorf("point %d: want (%g, %g), have (%g, %g)",
				i, wantR[i], wantZ[i], R[i], Z[i])
		}
		d := math.Sqrt((R[i]-p.AxisR)*(R[i]-p.AxisR) + (Z[i]-p.AxisZ)*(Z[i]-p.AxisZ))
		if math.Abs(d/p.Minor-1) > tolerance {
			t.Errorf("point %d does not lie on the last closed flux surface: a = %g",
				i, d/p.Minor)
		}
	}
	if math.Abs(R[0]-R[4]) > tolerance || math.Abs(Z[0]-Z[4]) > tolerance {
		t.Error("the outline is not closed")
	}
	if _, _, err := e.Boundary(1); err == nil {
		t.Error("expected an error for a single-point outline")
	}
}

func TestGridFields(t *testing.T) {
	const tolerance = 1.0e-12
	p := testParams()
	e, err := New(p)
	if err != nil {
		t.Fatal(err)
	}
	x := denseOf(1.5, 2.0, 2.5)
	y := denseOf(0, 0, 0)
	z := denseOf(0, 0, 0)
	Te, B, err := e.GridFields(x, y, z)
	if err != nil {
		t.Fatal(err)
	}
	if Te.Elements[0] != p.TeCore {
		t.Errorf("want the core electron temperature %g on the axis, have %g",
			p.TeCore, Te.Elements[0])
	}
	if Te.Elements[1] != p.TeEdge || Te.Elements[2] != p.TeEdge {
		t.Errorf("want the edge electron temperature %g on and outside the boundary, have %g and %g",
			p.TeEdge, Te.Elements[1], Te.Elements[2])
	}
	if B.Elements[0] != p.B0 {
		t.Errorf("want B = B0 = %g on the axis, have %g", p.B0, B.Elements[0])
	}
	for i, a := range []float64{0, 1, 1} { // the outermost point is anchored
		r := x.Elements[i]
		bt := p.B0 * p.R0 / r
		bp := a * p.Minor * p.B0 * p.R0 / (p.q(a) * r * r)
		want := math.Sqrt(bt*bt + bp*bp)
		if math.Abs(B.Elements[i]-want) > tolerance*want {
			t.Errorf("point %d: want B = %g, have %g", i, want, B.Elements[i])
		}
	}
	if _, _, err := e.GridFields(x, denseOf(0, 0), z); err == nil {
		t.Error("expected an error for mismatched grid shapes")
	}
}

func denseOf(vals ...float64) *sparse.DenseArray {
	d := sparse.ZerosDense(len(vals))
	copy(d.Elements, vals)
	return d
}
