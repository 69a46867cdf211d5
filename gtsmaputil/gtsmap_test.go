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

package gtsmaputil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/plasmamodel/gtsmap"
)

// TestOutputFile is the mapped data file written by the command tests.
const TestOutputFile = "TestGTSMapOutput.cdf"

// TestLogFile is the logfile the command tests produce alongside
// TestOutputFile.
const TestLogFile = "TestGTSMapOutput.log"

// TestSynthDir receives the synthetic dataset of the gtsdata command test.
const TestSynthDir = "TestSynthData"

func TestShowCommand(t *testing.T) {
	b := bytes.NewBuffer(nil)
	Root.SetOutput(b)
	Root.SetArgs([]string{"show", "--NX", "7"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), "NX=7") {
		t.Errorf("show output %q should contain NX=7", b.String())
	}
}

func TestVersionCommand(t *testing.T) {
	b := bytes.NewBuffer(nil)
	Root.SetOutput(b)
	Root.SetArgs([]string{"version"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if want := fmt.Sprintf("GTSMap v%s\n", gtsmap.Version); b.String() != want {
		t.Errorf("got %q, want %q", b.String(), want)
	}
}

// setMapperTestConfig points the global configuration at a small mapping
// window so the command tests finish quickly. The analytic input paths
// deliberately do not exist, selecting the default model parameters.
func setMapperTestConfig() {
	Cfg.Set("config", "")
	Cfg.Set("backend", "analytic")
	Cfg.Set("Xmin", 1.2)
	Cfg.Set("Xmax", 2.2)
	Cfg.Set("NX", 5)
	Cfg.Set("Ymin", -0.4)
	Cfg.Set("Ymax", 0.4)
	Cfg.Set("NY", 5)
	Cfg.Set("Zmin", 0.0)
	Cfg.Set("Zmax", 0.0)
	Cfg.Set("NZ", 1)
	Cfg.Set("TStart", 100)
	Cfg.Set("TStep", 10)
	Cfg.Set("NT", 2)
	Cfg.Set("NBOUNDARY", 33)
	Cfg.Set("FlucAmplification", 50.0)
	Cfg.Set("FlucFilePath", "no_such_fluc_dir")
	Cfg.Set("EqFileName", "no_such_params.toml")
	Cfg.Set("NTFileName", "no_such_tables.cdf")
	Cfg.Set("PHIFileNameStart", "PHI.")
	Cfg.Set("PHIDataDir", "no_such_phi_dir")
	Cfg.Set("OutputFile", TestOutputFile)
	Cfg.Set("LogFile", "")
}

func loadTestOutput(t *testing.T) *gtsmap.MapData {
	t.Helper()
	f, err := os.Open(TestOutputFile)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	d, err := gtsmap.LoadMapData(f)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestRunAnalytic(t *testing.T) {
	setMapperTestConfig()
	defer os.Remove(TestOutputFile)
	defer os.Remove(TestLogFile)
	b := bytes.NewBuffer(nil)
	Root.SetOutput(b)
	Root.SetArgs([]string{"run"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), "Profile mapping finished.") {
		t.Error("the run log should report the mapping finishing")
	}

	d := loadTestOutput(t)
	if d.B0 != 2.0 {
		t.Errorf("B0: got %g, want 2", d.B0)
	}
	if d.AxisR != 1.7 {
		t.Errorf("AxisR: got %g, want 1.7", d.AxisR)
	}
	if d.Config.NX != 5 {
		t.Errorf("NX: got %d, want 5", d.Config.NX)
	}
	var gotVars []string
	for name := range d.Data {
		gotVars = append(gotVars, name)
	}
	sort.Strings(gotVars)
	wantVars := []string{"A", "Bpol", "FlucCoverage", "InsideLCFS",
		"Ne", "Ne0", "NeFluc", "P", "Q", "RBoundary", "Te", "Theta",
		"Ti", "ZBoundary"}
	if !reflect.DeepEqual(gotVars, wantVars) {
		t.Errorf("output variables: got %v, want %v", gotVars, wantVars)
	}
	if got, want := d.Data["Ne"].Data.Shape, []int{2, 1, 5, 5}; !reflect.DeepEqual(got, want) {
		t.Errorf("Ne shape: got %v, want %v", got, want)
	}
	if got, want := d.Data["RBoundary"].Data.Shape, []int{33}; !reflect.DeepEqual(got, want) {
		t.Errorf("RBoundary shape: got %v, want %v", got, want)
	}
}

func TestRunUnknownBackend(t *testing.T) {
	setMapperTestConfig()
	Cfg.Set("backend", "spectral")
	defer os.Remove(TestLogFile)
	Root.SetOutput(bytes.NewBuffer(nil))
	Root.SetArgs([]string{"run"})
	if err := Root.Execute(); err == nil {
		t.Fatal("expected an unknown backend error")
	}
}

func TestSynthAndRunGTSData(t *testing.T) {
	setMapperTestConfig()
	Cfg.Set("EqFileName", "eq.cdf")
	Cfg.Set("NTFileName", "nt.cdf")
	Cfg.Set("PHIDataDir", "phi")
	Cfg.Set("out-dir", TestSynthDir)
	Cfg.Set("Synth.ParamFile", "")
	Cfg.Set("Synth.TurbulenceFile", "")
	Cfg.Set("Synth.NR", 33)
	Cfg.Set("Synth.NZ", 33)
	Cfg.Set("Synth.NA", 17)
	Cfg.Set("Synth.NTheta", 32)
	Cfg.Set("Synth.NZeta", 8)
	Cfg.Set("Synth.Window", 1.2)
	defer os.RemoveAll(TestSynthDir)

	b := bytes.NewBuffer(nil)
	Root.SetOutput(b)
	Root.SetArgs([]string{"synth"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		"eq.cdf",
		"nt.cdf",
		filepath.Join("phi", "PHI.00100.cdf"),
		filepath.Join("phi", "PHI.00110.cdf"),
	} {
		if _, err := os.Stat(filepath.Join(TestSynthDir, name)); err != nil {
			t.Fatal(err)
		}
	}

	Cfg.Set("backend", "gtsdata")
	Cfg.Set("EqFileName", filepath.Join(TestSynthDir, "eq.cdf"))
	Cfg.Set("NTFileName", filepath.Join(TestSynthDir, "nt.cdf"))
	Cfg.Set("PHIDataDir", filepath.Join(TestSynthDir, "phi"))
	defer os.Remove(TestOutputFile)
	defer os.Remove(TestLogFile)
	Root.SetArgs([]string{"run"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}

	d := loadTestOutput(t)
	if d.B0 != 2.0 {
		t.Errorf("B0: got %g, want 2", d.B0)
	}
	cov := d.Data["FlucCoverage"].Data
	nCov := 0
	for _, v := range cov.Elements {
		if v == 1 {
			nCov++
		}
	}
	if nCov == 0 || nCov == len(cov.Elements) {
		t.Fatalf("fluctuation coverage should be partial; got %d of %d points",
			nCov, len(cov.Elements))
	}
	ne := d.Data["Ne"].Data
	ne0 := d.Data["Ne0"].Data
	n3 := len(ne0.Elements)
	fluctuates := false
	for i, v := range ne.Elements {
		base := ne0.Elements[i%n3]
		if cov.Elements[i%n3] == 0 {
			if v != base {
				t.Fatalf("point %d is outside the fluctuation data but its density changed", i)
			}
		} else if v != base {
			fluctuates = true
		}
	}
	if !fluctuates {
		t.Error("no covered point has a density fluctuation")
	}
}
