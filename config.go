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
	"io"
	"math"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cast"
)

// Config holds the settings for a profile mapping run. A Config is plain
// data: copy it with Copy, and do not share one instance among concurrently
// running Mappers.
type Config struct {
	// Xmin and Xmax are the lower and upper extents [m] of the Cartesian
	// grid in the x direction, and NX is the number of grid points along
	// that direction.
	Xmin, Xmax float64
	NX         int

	// Ymin, Ymax, and NY give the extent [m] and point count in the y
	// direction.
	Ymin, Ymax float64
	NY         int

	// Zmin, Zmax, and NZ give the extent [m] and point count in the z
	// direction. NZ = 1 selects a single plane at Zmin.
	Zmin, Zmax float64
	NZ         int

	// TStart is the first simulation timestep to map, TStep is the stride
	// between mapped timesteps, and NT is the number of timesteps.
	TStart, TStep, NT int

	// NBoundary is the number of points used when tracing the outline of
	// the last closed flux surface.
	NBoundary int

	// FlucAmplification scales the fluctuating part of the electron
	// density before it is added to the equilibrium profile.
	FlucAmplification float64

	// FlucFilePath is the root directory of the fluctuation dataset.
	FlucFilePath string

	// EqFileName is the path to the equilibrium geometry file.
	EqFileName string

	// NTFileName is the path to the file holding the equilibrium density
	// and temperature profile tables.
	NTFileName string

	// PHIFileNameStart is the file name prefix for electrostatic
	// potential snapshot files.
	PHIFileNameStart string

	// PHIDataDir is the directory holding the potential snapshot files.
	PHIDataDir string
}

// DefaultConfig returns the standard configuration: an NSTX-sized midplane
// window mapped over ten timesteps starting at step 100.
func DefaultConfig() *Config {
	return &Config{
		Xmin:              2.0,
		Xmax:              2.6,
		NX:                101,
		Ymin:              -0.6,
		Ymax:              0.6,
		NY:                201,
		Zmin:              0,
		Zmax:              0,
		NZ:                1,
		TStart:            100,
		TStep:             10,
		NT:                10,
		NBoundary:         1001,
		FlucAmplification: 50,
		FlucFilePath:      "./Fluctuations/",
		EqFileName:        "./ESI_EQFILE",
		NTFileName:        "./NTProfiles.cdf",
		PHIFileNameStart:  "PHI.",
		PHIDataDir:        "./PHI_FILES/",
	}
}

// UnknownOptionError is returned by Config.Set when an option name is not
// recognized.
type UnknownOptionError struct {
	Option string
}

func (e UnknownOptionError) Error() string {
	return fmt.Sprintf("gtsmap: unknown configuration option %s", e.Option)
}

// OptionValueError is returned by Config.Set when an option value cannot be
// converted to the type the option requires.
type OptionValueError struct {
	Option string
	Err    error
}

func (e OptionValueError) Error() string {
	return fmt.Sprintf("gtsmap: configuration option %s: %v", e.Option, e.Err)
}

// Set applies the given options to the configuration. Any subset of the
// recognized option names may be given; numeric values are converted
// leniently (an integer option accepts a numeric string, a float option
// accepts an integer) but path options require strings. Set is atomic: if
// any option is unknown or any value fails to convert, the configuration is
// left unchanged and the error identifies the offending option.
func (c *Config) Set(options map[string]interface{}) error {
	staged := *c
	for name, val := range options {
		var err error
		switch name {
		case "Xmin":
			staged.Xmin, err = cast.ToFloat64E(val)
		case "Xmax":
			staged.Xmax, err = cast.ToFloat64E(val)
		case "NX":
			staged.NX, err = cast.ToIntE(val)
		case "Ymin":
			staged.Ymin, err = cast.ToFloat64E(val)
		case "Ymax":
			staged.Ymax, err = cast.ToFloat64E(val)
		case "NY":
			staged.NY, err = cast.ToIntE(val)
		case "Zmin":
			staged.Zmin, err = cast.ToFloat64E(val)
		case "Zmax":
			staged.Zmax, err = cast.ToFloat64E(val)
		case "NZ":
			staged.NZ, err = cast.ToIntE(val)
		case "TStart":
			staged.TStart, err = cast.ToIntE(val)
		case "TStep":
			staged.TStep, err = cast.ToIntE(val)
		case "NT":
			staged.NT, err = cast.ToIntE(val)
		case "NBOUNDARY":
			staged.NBoundary, err = cast.ToIntE(val)
		case "FlucAmplification":
			staged.FlucAmplification, err = cast.ToFloat64E(val)
		case "FlucFilePath":
			staged.FlucFilePath, err = toPath(val)
		case "EqFileName":
			staged.EqFileName, err = toPath(val)
		case "NTFileName":
			staged.NTFileName, err = toPath(val)
		case "PHIFileNameStart":
			staged.PHIFileNameStart, err = toPath(val)
		case "PHIDataDir":
			staged.PHIDataDir, err = toPath(val)
		default:
			return UnknownOptionError{Option: name}
		}
		if err != nil {
			return OptionValueError{Option: name, Err: err}
		}
	}
	*c = staged
	return nil
}

func toPath(val interface{}) (string, error) {
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("expected a string but got %#v", val)
	}
	return s, nil
}

// Show writes the configuration to w in the standard display layout.
func (c *Config) Show(w io.Writer) {
	fmt.Fprintf(w, "Parameters set as following:\n")
	fmt.Fprintf(w, "X: (Xmin=%f,Xmax=%f,NX=%d)\n", c.Xmin, c.Xmax, c.NX)
	fmt.Fprintf(w, "Y: (Ymin=%f,Ymax=%f,NY=%d)\n", c.Ymin, c.Ymax, c.NY)
	fmt.Fprintf(w, "Z: (Zmin=%f,Zmax=%f,NZ=%d)\n", c.Zmin, c.Zmax, c.NZ)
	fmt.Fprintf(w, "NBOUNDARY: %d\n", c.NBoundary)
	fmt.Fprintf(w, "T: (T0=%d,dT=%d,NT=%d)\n", c.TStart, c.TStep, c.NT)
	fmt.Fprintf(w, "Fluc_Amplification: %f\n", c.FlucAmplification)
	fmt.Fprintf(w, "FlucFilePath: %s\n", c.FlucFilePath)
	fmt.Fprintf(w, "EqFileName: %s\n", c.EqFileName)
	fmt.Fprintf(w, "NTFileName: %s\n", c.NTFileName)
	fmt.Fprintf(w, "PHIFileNameStart: %s\n", c.PHIFileNameStart)
	fmt.Fprintf(w, "PHIDataDir: %s\n", c.PHIDataDir)
}

// Check returns an error if the configuration is not usable for a mapping
// run.
func (c *Config) Check() error {
	if c.NX < 1 || c.NY < 1 || c.NZ < 1 {
		return fmt.Errorf("gtsmap: grid point counts must be positive; got NX=%d, NY=%d, NZ=%d",
			c.NX, c.NY, c.NZ)
	}
	if c.Xmax < c.Xmin || c.Ymax < c.Ymin || c.Zmax < c.Zmin {
		return fmt.Errorf("gtsmap: grid extents must be ordered min <= max; got "+
			"x [%g, %g], y [%g, %g], z [%g, %g]",
			c.Xmin, c.Xmax, c.Ymin, c.Ymax, c.Zmin, c.Zmax)
	}
	if c.NT < 1 {
		return fmt.Errorf("gtsmap: the number of timesteps must be positive; got NT=%d", c.NT)
	}
	if c.NBoundary < 2 {
		return fmt.Errorf("gtsmap: NBOUNDARY must be at least 2; got %d", c.NBoundary)
	}
	if math.IsNaN(c.FlucAmplification) || math.IsInf(c.FlucAmplification, 0) {
		return fmt.Errorf("gtsmap: Fluc_Amplification must be finite; got %g", c.FlucAmplification)
	}
	paths := []struct{ name, val string }{
		{"FlucFilePath", c.FlucFilePath},
		{"EqFileName", c.EqFileName},
		{"NTFileName", c.NTFileName},
		{"PHIFileNameStart", c.PHIFileNameStart},
		{"PHIDataDir", c.PHIDataDir},
	}
	for _, p := range paths {
		if p.val == "" {
			return fmt.Errorf("gtsmap: configuration option %s must not be empty", p.name)
		}
	}
	return nil
}

// Copy returns a copy of the configuration.
func (c *Config) Copy() *Config {
	c2 := *c
	return &c2
}

// Shape returns the spatial shape of the mapped arrays: [NZ, NY, NX].
func (c *Config) Shape() []int {
	return []int{c.NZ, c.NY, c.NX}
}

// Timesteps returns the simulation timesteps to be mapped:
// TStart, TStart+TStep, ..., TStart+(NT-1)*TStep.
func (c *Config) Timesteps() []int {
	steps := make([]int, c.NT)
	for i := range steps {
		steps[i] = c.TStart + i*c.TStep
	}
	return steps
}

// LoadConfig reads a TOML configuration from r, filling in defaults for
// fields that are not specified. Keys that do not correspond to
// configuration fields are an error.
func LoadConfig(r io.Reader) (*Config, error) {
	c := DefaultConfig()
	md, err := toml.DecodeReader(r, c)
	if err != nil {
		return nil, fmt.Errorf("gtsmap: parsing configuration file: %v", err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return nil, fmt.Errorf("gtsmap: unknown configuration file keys: %v", undec)
	}
	if err := c.Check(); err != nil {
		return nil, err
	}
	return c, nil
}
