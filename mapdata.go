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
	"fmt"
	"os"
	"sort"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// MapDataVersion is the version of the mapped data file format. It needs
// to be changed whenever the meaning or layout of the stored variables
// changes.
const MapDataVersion = "1.0.0"

// MapData holds the mapped profile fields of one run together with the
// configuration and equilibrium scalars they were produced with.
type MapData struct {
	// Config is a copy of the configuration the data was mapped with.
	Config *Config

	// B0 and R0 are the reference magnetic field [T] and major
	// radius [m] of the equilibrium.
	B0, R0 float64

	// AxisR and AxisZ are the cylindrical coordinates [m] of the
	// magnetic axis.
	AxisR, AxisZ float64

	// Data is a map of information about the mapped variables, with the
	// keys being the variable names.
	Data map[string]struct {
		Dims        []string           // netcdf dimensions for this variable
		Description string             // variable description
		Units       string             // variable units
		Data        *sparse.DenseArray // variable data
	}
}

// AddVariable adds data for a new variable to d.
func (d *MapData) AddVariable(name string, dims []string, description, units string, data *sparse.DenseArray) {
	if d.Data == nil {
		d.Data = make(map[string]struct {
			Dims        []string
			Description string
			Units       string
			Data        *sparse.DenseArray
		})
	}
	d.Data[name] = struct {
		Dims        []string
		Description string
		Units       string
		Data        *sparse.DenseArray
	}{
		Dims:        dims,
		Description: description,
		Units:       units,
		Data:        data,
	}
}

var (
	dims3d = []string{"z", "y", "x"}
	dims4d = []string{"time", "z", "y", "x"}
)

// Map runs the full mapping sequence on the grid coordinates x, y, and z
// with input electron temperature Te [eV] and total magnetic field B [T],
// like MapProfiles, and collects the results into a MapData bundle for
// writing or serving. The density output array is allocated internally.
func (m *Mapper) Map(x, y, z, Te, B *sparse.DenseArray) (*MapData, error) {
	cfg := m.Config
	if cfg == nil {
		return nil, fmt.Errorf("gtsmap: mapper has no configuration")
	}
	ne := sparse.ZerosDense(cfg.NT, cfg.NZ, cfg.NY, cfg.NX)
	state, err := m.run(x, y, z, ne, Te, B)
	if err != nil {
		return nil, err
	}
	d := &MapData{Config: cfg.Copy(), B0: state.eq.ReferenceField(), R0: state.eq.ReferenceRadius()}
	d.AxisR, d.AxisZ = state.eq.MagneticAxis()
	d.AddVariable("Ne", dims4d, "electron density including fluctuations", "m-3", ne)
	d.AddVariable("Ne0", dims3d, "equilibrium electron density", "m-3", state.prof.Ne0)
	d.AddVariable("Te", dims3d, "electron temperature", "eV", state.prof.Te)
	d.AddVariable("Ti", dims3d, "ion temperature", "eV", state.prof.Ti)
	d.AddVariable("Bpol", dims3d, "poloidal magnetic field", "T", state.prof.Bpol)
	d.AddVariable("P", dims3d, "total plasma pressure", "Pa", state.prof.P)
	d.AddVariable("Q", dims3d, "safety factor", "", state.prof.Q)
	d.AddVariable("A", dims3d, "flux surface label", "", state.fc.A)
	d.AddVariable("Theta", dims3d, "poloidal angle", "rad", state.fc.Theta)
	d.AddVariable("InsideLCFS", dims3d,
		"1 at points inside the last closed flux surface", "", flagsToDense(state.fc.Inside))
	d.AddVariable("FlucCoverage", dims3d,
		"1 at points covered by the fluctuation data", "", flagsToDense(state.covered))
	rb, zb, err := state.eq.Boundary(cfg.NBoundary)
	if err != nil {
		return nil, fmt.Errorf("gtsmap: tracing the last closed flux surface: %v", err)
	}
	d.AddVariable("RBoundary", []string{"boundary"},
		"major radius of the last closed flux surface outline", "m", denseFromSlice(rb))
	d.AddVariable("ZBoundary", []string{"boundary"},
		"height of the last closed flux surface outline", "m", denseFromSlice(zb))
	return d, nil
}

func flagsToDense(flags *sparse.DenseArrayInt) *sparse.DenseArray {
	d := sparse.ZerosDense(flags.Shape...)
	for i, v := range flags.Elements {
		d.Elements[i] = float64(v)
	}
	return d
}

func denseFromSlice(s []float64) *sparse.DenseArray {
	d := sparse.ZerosDense(len(s))
	copy(d.Elements, s)
	return d
}

// Write writes d to netcdf file w.
func (d *MapData) Write(w *os.File) error {
	cfg := d.Config
	h := cdf.NewHeader(
		[]string{"time", "z", "y", "x", "boundary"},
		[]int{cfg.NT, cfg.NZ, cfg.NY, cfg.NX, cfg.NBoundary})
	h.AddAttribute("", "comment", "GTSMap mapped plasma profile data file")
	h.AddAttribute("", "data_version", MapDataVersion)

	h.AddAttribute("", "Xmin", []float64{cfg.Xmin})
	h.AddAttribute("", "Xmax", []float64{cfg.Xmax})
	h.AddAttribute("", "Ymin", []float64{cfg.Ymin})
	h.AddAttribute("", "Ymax", []float64{cfg.Ymax})
	h.AddAttribute("", "Zmin", []float64{cfg.Zmin})
	h.AddAttribute("", "Zmax", []float64{cfg.Zmax})
	h.AddAttribute("", "TStart", []int32{int32(cfg.TStart)})
	h.AddAttribute("", "TStep", []int32{int32(cfg.TStep)})
	h.AddAttribute("", "Fluc_Amplification", []float64{cfg.FlucAmplification})
	h.AddAttribute("", "FlucFilePath", cfg.FlucFilePath)
	h.AddAttribute("", "EqFileName", cfg.EqFileName)
	h.AddAttribute("", "NTFileName", cfg.NTFileName)
	h.AddAttribute("", "PHIFileNameStart", cfg.PHIFileNameStart)
	h.AddAttribute("", "PHIDataDir", cfg.PHIDataDir)

	h.AddAttribute("", "B0", []float64{d.B0})
	h.AddAttribute("", "R0", []float64{d.R0})
	h.AddAttribute("", "axisR", []float64{d.AxisR})
	h.AddAttribute("", "axisZ", []float64{d.AxisZ})

	// Sort the names so they write in the same order every time.
	names := make([]string, 0, len(d.Data))
	for n := range d.Data {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, name := range names {
		dd := d.Data[name]
		h.AddVariable(name, dd.Dims, []float32{0})
		h.AddAttribute(name, "description", dd.Description)
		h.AddAttribute(name, "units", dd.Units)
	}
	h.Define()

	f, err := cdf.Create(w, h) // writes the header to w
	if err != nil {
		return err
	}

	for _, name := range names {
		dd := d.Data[name]
		if err = writeNCF(f, name, dd.Data); err != nil {
			return fmt.Errorf("gtsmap: writing variable %s to netcdf file: %v", name, err)
		}
	}
	err = cdf.UpdateNumRecs(w)
	if err != nil {
		return err
	}
	return nil
}

// LoadMapData loads mapped profile data from a netcdf file.
func LoadMapData(rw cdf.ReaderWriterAt) (*MapData, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("gtsmap: loading mapped data: %v", err)
	}

	dataVersion := f.Header.GetAttribute("", "data_version").(string)
	if dataVersion != MapDataVersion {
		return nil, fmt.Errorf("gtsmap: mapped data version %s is incompatible "+
			"with the required version %s", dataVersion, MapDataVersion)
	}

	o := new(MapData)
	cfg := new(Config)
	cfg.Xmin = f.Header.GetAttribute("", "Xmin").([]float64)[0]
	cfg.Xmax = f.Header.GetAttribute("", "Xmax").([]float64)[0]
	cfg.Ymin = f.Header.GetAttribute("", "Ymin").([]float64)[0]
	cfg.Ymax = f.Header.GetAttribute("", "Ymax").([]float64)[0]
	cfg.Zmin = f.Header.GetAttribute("", "Zmin").([]float64)[0]
	cfg.Zmax = f.Header.GetAttribute("", "Zmax").([]float64)[0]
	cfg.TStart = int(f.Header.GetAttribute("", "TStart").([]int32)[0])
	cfg.TStep = int(f.Header.GetAttribute("", "TStep").([]int32)[0])
	cfg.FlucAmplification = f.Header.GetAttribute("", "Fluc_Amplification").([]float64)[0]
	cfg.FlucFilePath = f.Header.GetAttribute("", "FlucFilePath").(string)
	cfg.EqFileName = f.Header.GetAttribute("", "EqFileName").(string)
	cfg.NTFileName = f.Header.GetAttribute("", "NTFileName").(string)
	cfg.PHIFileNameStart = f.Header.GetAttribute("", "PHIFileNameStart").(string)
	cfg.PHIDataDir = f.Header.GetAttribute("", "PHIDataDir").(string)
	cfg.NT = f.Header.Lengths("Ne")[0]
	cfg.NZ = f.Header.Lengths("Ne")[1]
	cfg.NY = f.Header.Lengths("Ne")[2]
	cfg.NX = f.Header.Lengths("Ne")[3]
	cfg.NBoundary = f.Header.Lengths("RBoundary")[0]
	o.Config = cfg

	o.B0 = f.Header.GetAttribute("", "B0").([]float64)[0]
	o.R0 = f.Header.GetAttribute("", "R0").([]float64)[0]
	o.AxisR = f.Header.GetAttribute("", "axisR").([]float64)[0]
	o.AxisZ = f.Header.GetAttribute("", "axisZ").([]float64)[0]

	for _, v := range f.Header.Variables() {
		dims := f.Header.Lengths(v)
		data := sparse.ZerosDense(dims...)
		tmp := make([]float32, len(data.Elements))
		r := f.Reader(v, nil, nil)
		if _, err := r.Read(tmp); err != nil {
			return nil, fmt.Errorf("gtsmap: loading mapped variable %s: %v", v, err)
		}
		for i, val := range tmp {
			data.Elements[i] = float64(val)
		}
		o.AddVariable(v, f.Header.Dimensions(v),
			f.Header.GetAttribute(v, "description").(string),
			f.Header.GetAttribute(v, "units").(string), data)
	}
	return o, nil
}

func writeNCF(f *cdf.File, Var string, data *sparse.DenseArray) error {
	// Check that data matches dimensions.
	n := 1
	for _, v := range data.Shape {
		n *= v
	}
	if len(data.Elements) != n {
		return fmt.Errorf("dims are %d but array length is %d", n, len(data.Elements))
	}

	data32 := make([]float32, len(data.Elements))
	for i, e := range data.Elements {
		data32[i] = float32(e)
	}
	end := f.Header.Lengths(Var)
	start := make([]int, len(end))
	w := f.Writer(Var, start, end)
	_, err := w.Write(data32)
	if err != nil {
		return err
	}
	return nil
}
