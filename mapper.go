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

	"github.com/ctessum/sparse"
)

// Version gives the version number of this version of GTSMap.
const Version = "1.1.0"

// Mapper maps equilibrium profiles and turbulence data from a gyrokinetic
// tokamak simulation onto a Cartesian grid. The zero value is not usable;
// all fields except MsgChan must be set.
type Mapper struct {
	// Config holds the grid, time window, amplification, and file
	// settings for this Mapper.
	Config *Config

	// OpenEquilibrium opens the magnetic equilibrium identified by the
	// configuration's EqFileName and NTFileName.
	OpenEquilibrium func(eqFile, ntFile string) (Equilibrium, error)

	// Fluctuations samples the electrostatic potential fluctuations.
	Fluctuations FluctuationSource

	// MsgChan, if non-nil, receives progress messages during a run.
	MsgChan chan string
}

func (m *Mapper) msg(msg string) {
	if m.MsgChan != nil {
		m.MsgChan <- msg
	}
}

// MapProfiles computes time-resolved electron density profiles on the
// Cartesian grid given by the coordinate arrays x, y, and z, writing the
// result in place into ne. Te is the electron temperature [eV] and B the
// total magnetic field [T] at the grid points; both are read-only. The
// coordinate, Te, and B arrays must have shape [NZ][NY][NX] matching the
// configuration, and ne must have shape [NT][NZ][NY][NX].
//
// For each configured timestep t, the result is
//
//	ne[t] = ne0 + FlucAmplification·δn(t)
//
// where ne0 is the equilibrium electron density and δn the adiabatic
// electron response to the sampled potential. Outside the last closed flux
// surface the equilibrium profiles decay exponentially from their boundary
// values, and at points the fluctuation data does not cover, δn is zero.
//
// MapProfiles keeps no state between calls: calling it twice with the same
// inputs writes the same output.
func (m *Mapper) MapProfiles(x, y, z, ne, Te, B *sparse.DenseArray) error {
	_, err := m.run(x, y, z, ne, Te, B)
	return err
}

// runState holds the intermediate fields of a mapping run for assembly
// into a MapData bundle.
type runState struct {
	eq      Equilibrium
	fc      *FluxCoords
	prof    *Profiles
	covered *sparse.DenseArrayInt
}

func (m *Mapper) run(x, y, z, ne, Te, B *sparse.DenseArray) (*runState, error) {
	cfg := m.Config
	if cfg == nil {
		return nil, fmt.Errorf("gtsmap: mapper has no configuration")
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	if m.OpenEquilibrium == nil {
		return nil, fmt.Errorf("gtsmap: mapper has no equilibrium opener")
	}
	if m.Fluctuations == nil {
		return nil, fmt.Errorf("gtsmap: mapper has no fluctuation source")
	}
	for _, arg := range []struct {
		name string
		a    *sparse.DenseArray
	}{{"x", x}, {"y", y}, {"z", z}, {"Te", Te}, {"B", B}} {
		if err := checkShape(arg.name, arg.a, cfg.NZ, cfg.NY, cfg.NX); err != nil {
			return nil, err
		}
	}
	if err := checkShape("ne", ne, cfg.NT, cfg.NZ, cfg.NY, cfg.NX); err != nil {
		return nil, err
	}

	R, Zc, zeta, err := CartesianToCylindrical(x, y, z)
	if err != nil {
		return nil, err
	}
	m.msg("Converted grid coordinates from Cartesian to cylindrical.")

	eq, err := m.OpenEquilibrium(cfg.EqFileName, cfg.NTFileName)
	if err != nil {
		return nil, fmt.Errorf("gtsmap: opening equilibrium: %v", err)
	}
	m.msg(fmt.Sprintf("Loaded equilibrium: B0=%g T, R0=%g m.",
		eq.ReferenceField(), eq.ReferenceRadius()))

	axisR, axisZ := eq.MagneticAxis()
	m.msg(fmt.Sprintf("Magnetic axis at R=%g m, Z=%g m.", axisR, axisZ))

	fc, err := eq.FluxCoords(R, Zc, B)
	if err != nil {
		return nil, fmt.Errorf("gtsmap: inverting flux coordinates: %v", err)
	}
	n3d := cfg.NZ * cfg.NY * cfg.NX
	m.msg(fmt.Sprintf("Inverted flux coordinates; %d of %d points are "+
		"outside the last closed flux surface.", fc.OutsideCount(), n3d))

	prof, err := eq.Profiles(fc, Te)
	if err != nil {
		return nil, fmt.Errorf("gtsmap: evaluating equilibrium profiles: %v", err)
	}
	m.msg("Evaluated equilibrium profiles.")

	decayOutsideLCFS(fc, prof)
	m.msg("Applied the boundary falloff to profiles outside the last closed flux surface.")

	steps := cfg.Timesteps()
	phiFunc, covered, err := m.Fluctuations.Potential(fc, zeta, steps)
	if err != nil {
		return nil, fmt.Errorf("gtsmap: preparing fluctuation sampling: %v", err)
	}
	m.msg(fmt.Sprintf("Prepared fluctuation sampling for %d timesteps.", len(steps)))

	for it, step := range steps {
		phi, err := phiFunc()
		if err != nil {
			return nil, fmt.Errorf("gtsmap: sampling fluctuations for timestep %d: %v", step, err)
		}
		if err := checkShape(fmt.Sprintf("potential for timestep %d", step),
			phi, cfg.NZ, cfg.NY, cfg.NX); err != nil {
			return nil, err
		}
		dn := adiabaticResponse(phi, prof, covered)
		base := it * n3d
		for i, δn := range dn.Elements {
			ne.Elements[base+i] = prof.Ne0.Elements[i] + cfg.FlucAmplification*δn
		}
		m.msg(fmt.Sprintf("Mapped timestep %d (%d of %d).", step, it+1, len(steps)))
	}
	m.msg("Profile mapping finished.")
	return &runState{eq: eq, fc: fc, prof: prof, covered: covered}, nil
}
