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
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/ctessum/cdf"
)

// TestMapDataFile is the temporary file used by the write-read round trip
// tests.
const TestMapDataFile = "TestMapData.ncf"

func testMapData(t *testing.T) *MapData {
	t.Helper()
	cfg := testConfig()
	x, y, z, Te, B, _ := testFields(cfg)
	d, err := testMapper(cfg, &fakeSource{}, nil).Map(x, y, z, Te, B)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestMap(t *testing.T) {
	d := testMapData(t)

	if d.B0 != testB0 || d.R0 != testR0 {
		t.Errorf("want B0=%g, R0=%g; have B0=%g, R0=%g", testB0, testR0, d.B0, d.R0)
	}
	if d.AxisR != testR0 || d.AxisZ != 0 {
		t.Errorf("want axis (%g, 0), have (%g, %g)", testR0, d.AxisR, d.AxisZ)
	}

	wantVars := []string{"A", "Bpol", "FlucCoverage", "InsideLCFS", "Ne", "Ne0",
		"P", "Q", "RBoundary", "Te", "Theta", "Ti", "ZBoundary"}
	if len(d.Data) != len(wantVars) {
		t.Errorf("want %d variables, have %d", len(wantVars), len(d.Data))
	}
	for _, name := range wantVars {
		if _, ok := d.Data[name]; !ok {
			t.Errorf("variable %s is missing", name)
		}
	}

	cfg := d.Config
	if want := []int{cfg.NT, cfg.NZ, cfg.NY, cfg.NX}; !reflect.DeepEqual(d.Data["Ne"].Data.Shape, want) {
		t.Errorf("Ne: want shape %v, have %v", want, d.Data["Ne"].Data.Shape)
	}
	if want := cfg.Shape(); !reflect.DeepEqual(d.Data["Ne0"].Data.Shape, want) {
		t.Errorf("Ne0: want shape %v, have %v", want, d.Data["Ne0"].Data.Shape)
	}
	if want := []int{cfg.NBoundary}; !reflect.DeepEqual(d.Data["RBoundary"].Data.Shape, want) {
		t.Errorf("RBoundary: want shape %v, have %v", want, d.Data["RBoundary"].Data.Shape)
	}

	// The inside flags follow the fake equilibrium's circular boundary.
	inside := d.Data["InsideLCFS"].Data
	a := d.Data["A"].Data
	for i, av := range a.Elements {
		want := 0.0
		if av <= 1 {
			want = 1
		}
		if inside.Elements[i] != want {
			t.Errorf("InsideLCFS[%d]: want %g at flux label %g, have %g",
				i, want, av, inside.Elements[i])
		}
	}

	// The boundary outline stays on the last closed flux surface.
	rb := d.Data["RBoundary"].Data
	zb := d.Data["ZBoundary"].Data
	for i, r := range rb.Elements {
		if a := fakeFluxLabel(r, zb.Elements[i]); math.Abs(a-1) > 1.0e-12 {
			t.Errorf("boundary point %d has flux label %g", i, a)
		}
	}
}

func TestMapDataWriteRead(t *testing.T) {
	// float32 file storage costs precision.
	const tolerance = 1.0e-6

	d := testMapData(t)

	f, err := os.Create(TestMapDataFile)
	if err != nil {
		t.Fatal(err)
	}
	if err = d.Write(f); err != nil {
		t.Fatal(err)
	}
	f.Close()

	f, err = os.Open(TestMapDataFile)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := LoadMapData(f)
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	os.Remove(TestMapDataFile)

	if *d2.Config != *d.Config {
		t.Errorf("configuration did not survive the round trip:\nwant %+v\nhave %+v",
			*d.Config, *d2.Config)
	}
	if d2.B0 != d.B0 || d2.R0 != d.R0 || d2.AxisR != d.AxisR || d2.AxisZ != d.AxisZ {
		t.Errorf("equilibrium scalars did not survive the round trip: %+v", d2)
	}
	if len(d2.Data) != len(d.Data) {
		t.Errorf("want %d variables, have %d", len(d.Data), len(d2.Data))
	}
	for name, dd := range d.Data {
		dd2, ok := d2.Data[name]
		if !ok {
			t.Errorf("variable %s is missing", name)
			continue
		}
		if !reflect.DeepEqual(dd2.Dims, dd.Dims) {
			t.Errorf("%s: want dims %v, have %v", name, dd.Dims, dd2.Dims)
		}
		if dd2.Description != dd.Description {
			t.Errorf("%s: want description %q, have %q", name, dd.Description, dd2.Description)
		}
		if dd2.Units != dd.Units {
			t.Errorf("%s: want units %q, have %q", name, dd.Units, dd2.Units)
		}
		arrayCompare(t, name, dd2.Data, dd.Data, tolerance)
	}
}

func TestLoadMapDataVersion(t *testing.T) {
	const fileName = "TestMapDataVersion.ncf"

	h := cdf.NewHeader([]string{"x"}, []int{2})
	h.AddAttribute("", "data_version", "0.0.0")
	h.AddVariable("Ne", []string{"x"}, []float32{0})
	h.Define()
	f, err := os.Create(fileName)
	if err != nil {
		t.Fatal(err)
	}
	cf, err := cdf.Create(f, h)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cf.Writer("Ne", []int{0}, []int{2}).Write([]float32{1, 2}); err != nil {
		t.Fatal(err)
	}
	if err := cdf.UpdateNumRecs(f); err != nil {
		t.Fatal(err)
	}
	f.Close()

	f, err = os.Open(fileName)
	if err != nil {
		t.Fatal(err)
	}
	_, err = LoadMapData(f)
	f.Close()
	os.Remove(fileName)
	if err == nil {
		t.Fatal("expected a version mismatch error")
	}
	if !strings.Contains(err.Error(), "incompatible") {
		t.Errorf("unexpected error %v", err)
	}
}
