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
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/ctessum/sparse"
	"github.com/plasmamodel/gtsmap"
	"github.com/plasmamodel/gtsmap/plasma/analytic"
	"github.com/plasmamodel/gtsmap/plasma/gtsdata"
	"gonum.org/v1/gonum/floats"
)

// Synth generates a complete file-backed dataset from the analytic plasma
// model: the equilibrium grid at cfg.EqFileName, the profile tables at
// cfg.NTFileName, and one potential file per configured timestep under
// cfg.PHIDataDir, all placed relative to outDir. A run with the gtsdata
// backend and the same configuration can consume the dataset directly.
//
// paramFile and turbFile optionally name TOML files with the equilibrium
// parameters and the drift-wave spectrum; if blank or missing, the defaults
// are used. nR and nZ set the equilibrium grid resolution, nA the profile
// table and potential resolution, nTheta and nZeta the potential angle
// resolutions, and window the half-width of the equilibrium grid in minor
// radii.
func Synth(cfg *gtsmap.Config, outDir, paramFile, turbFile string, nR, nZ, nA, nTheta, nZeta int, window float64) error {
	p := analytic.Default()
	if paramFile != "" {
		var err error
		if p, err = analytic.Load(paramFile); err != nil {
			return err
		}
	}
	eq, err := analytic.New(p)
	if err != nil {
		return err
	}
	tu := analytic.DefaultTurbulence()
	if turbFile != "" {
		if tu, err = analytic.LoadTurbulence(turbFile); err != nil {
			return err
		}
	}
	if nR < 2 || nZ < 2 || nA < 2 || nTheta < 2 || nZeta < 2 {
		return fmt.Errorf("gtsmap: synthetic axes need at least 2 samples; got "+
			"NR=%d, NZ=%d, NA=%d, NTheta=%d, NZeta=%d", nR, nZ, nA, nTheta, nZeta)
	}
	if window <= 0 {
		return fmt.Errorf("gtsmap: the synthetic grid window must be positive; got %g", window)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	logger.Infof("Writing the synthetic equilibrium grid to %s...", synthPath(outDir, cfg.EqFileName))
	if err := synthEquilibrium(cfg, eq, outDir, nR, nZ, window); err != nil {
		return err
	}
	logger.Infof("Writing the synthetic profile tables to %s...", synthPath(outDir, cfg.NTFileName))
	if err := synthTables(cfg, eq, outDir, nA); err != nil {
		return err
	}
	logger.Infof("Writing %d synthetic potential files to %s...",
		cfg.NT, synthPath(outDir, cfg.PHIDataDir))
	return synthPotential(cfg, tu, outDir, nA, nTheta, nZeta)
}

// synthEquilibrium samples the flux label and total field on a regular
// R-Z window around the magnetic axis and writes the equilibrium file.
func synthEquilibrium(cfg *gtsmap.Config, eq *analytic.Equilibrium, outDir string, nR, nZ int, window float64) error {
	p := eq.Params()
	rAxis := span(p.AxisR-window*p.Minor, p.AxisR+window*p.Minor, nR)
	zAxis := span(p.AxisZ-window*p.Minor, p.AxisZ+window*p.Minor, nZ)

	// The window lies in the y = 0 poloidal plane, where the Cartesian
	// x coordinate doubles as the major radius.
	x := sparse.ZerosDense(nZ, nR)
	yy := sparse.ZerosDense(nZ, nR)
	zz := sparse.ZerosDense(nZ, nR)
	for iz, zv := range zAxis {
		for ir, rv := range rAxis {
			x.Set(rv, iz, ir)
			zz.Set(zv, iz, ir)
		}
	}
	_, B, err := eq.GridFields(x, yy, zz)
	if err != nil {
		return err
	}
	fc, err := eq.FluxCoords(x, zz, B)
	if err != nil {
		return err
	}
	rb, zb, err := eq.Boundary(cfg.NBoundary)
	if err != nil {
		return err
	}

	g := &gtsdata.EquilibriumGrid{
		B0:        p.B0,
		R0:        p.R0,
		AxisR:     p.AxisR,
		AxisZ:     p.AxisZ,
		RGrid:     rAxis,
		ZGrid:     zAxis,
		AGrid:     fc.A,
		BGrid:     B,
		RBoundary: rb,
		ZBoundary: zb,
	}
	w, err := os.Create(synthPath(outDir, cfg.EqFileName))
	if err != nil {
		return err
	}
	defer w.Close()
	return gtsdata.WriteEquilibrium(w, g)
}

// synthTables samples the model profiles along the outboard midplane and
// writes the profile table file.
func synthTables(cfg *gtsmap.Config, eq *analytic.Equilibrium, outDir string, nA int) error {
	p := eq.Params()
	aAxis := span(0, 1, nA)

	// The midplane lies in the y = 0 poloidal plane, where the Cartesian
	// x coordinate doubles as the major radius.
	R := sparse.ZerosDense(nA)
	yy := sparse.ZerosDense(nA)
	zz := sparse.ZerosDense(nA)
	for ia, a := range aAxis {
		R.Set(p.AxisR+a*p.Minor, ia)
		zz.Set(p.AxisZ, ia)
	}
	Te, _, err := eq.GridFields(R, yy, zz)
	if err != nil {
		return err
	}
	fc, err := eq.FluxCoords(R, zz, nil)
	if err != nil {
		return err
	}
	prof, err := eq.Profiles(fc, Te)
	if err != nil {
		return err
	}

	tb := &gtsdata.ProfileTables{
		A:    aAxis,
		Ne:   prof.Ne0.Elements,
		Te:   prof.Te.Elements,
		Ti:   prof.Ti.Elements,
		Q:    prof.Q.Elements,
		Bpol: prof.Bpol.Elements,
	}
	w, err := os.Create(synthPath(outDir, cfg.NTFileName))
	if err != nil {
		return err
	}
	defer w.Close()
	return gtsdata.WriteProfileTables(w, tb)
}

// synthPotential samples the drift-wave potential on a regular flux
// coordinate grid and writes one potential file per configured timestep.
func synthPotential(cfg *gtsmap.Config, tu *analytic.Turbulence, outDir string, nA, nTheta, nZeta int) error {
	aAxis := span(tu.AMin, tu.AMax, nA)
	thetaAxis := circle(-math.Pi, nTheta)
	zetaAxis := circle(0, nZeta)

	A := sparse.ZerosDense(nA, nTheta, nZeta)
	Theta := sparse.ZerosDense(nA, nTheta, nZeta)
	zeta := sparse.ZerosDense(nA, nTheta, nZeta)
	for ia, av := range aAxis {
		for it, tv := range thetaAxis {
			for iz, zv := range zetaAxis {
				A.Set(av, ia, it, iz)
				Theta.Set(tv, ia, it, iz)
				zeta.Set(zv, ia, it, iz)
			}
		}
	}
	fc := &gtsmap.FluxCoords{A: A, Theta: Theta}
	steps := cfg.Timesteps()
	next, _, err := tu.Potential(fc, zeta, steps)
	if err != nil {
		return err
	}

	dir := synthPath(outDir, cfg.PHIDataDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for _, step := range steps {
		phi, err := next()
		if err != nil {
			return err
		}
		fr := &gtsdata.PotentialFrame{
			Step:  step,
			A:     aAxis,
			Theta: thetaAxis,
			Zeta:  zetaAxis,
			Phi:   phi,
		}
		w, err := os.Create(filepath.Join(dir, gtsdata.PotentialFileName(cfg.PHIFileNameStart, step)))
		if err != nil {
			return err
		}
		if err := gtsdata.WritePotential(w, fr); err != nil {
			w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
	}
	return nil
}

// span returns n evenly spaced samples from min to max inclusive.
func span(min, max float64, n int) []float64 {
	return floats.Span(make([]float64, n), min, max)
}

// circle returns n evenly spaced angle samples covering one period
// starting at start, without repeating the wrap point.
func circle(start float64, n int) []float64 {
	axis := make([]float64, n)
	for i := range axis {
		axis[i] = start + 2*math.Pi*float64(i)/float64(n)
	}
	return axis
}

// synthPath resolves a configured file path relative to the dataset
// directory. Absolute paths are kept as they are.
func synthPath(outDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(outDir, path)
}
