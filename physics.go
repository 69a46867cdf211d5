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

// NextData is a type of function that returns the potential field for the
// next timestep of a mapping run. If there are no more timesteps, it
// returns the io.EOF error.
type NextData func() (*sparse.DenseArray, error)

// FluxCoords holds the magnetic flux coordinates of a set of grid points.
// All arrays share the shape of the grid the coordinates were computed for.
type FluxCoords struct {
	// A is the flux surface label at each point, normalized so that A = 1
	// on the last closed flux surface.
	A *sparse.DenseArray

	// Theta is the poloidal angle [radians] about the magnetic axis.
	Theta *sparse.DenseArray

	// R and Z are the cylindrical coordinates [m] the inversion actually
	// converged to. For closed-form equilibria they equal the requested
	// coordinates.
	R, Z *sparse.DenseArray

	// Inside is 1 at points inside the last closed flux surface and 0 at
	// points outside it or where the inversion did not converge.
	Inside *sparse.DenseArrayInt
}

// OutsideCount returns the number of points that are not inside the last
// closed flux surface.
func (fc *FluxCoords) OutsideCount() int {
	n := 0
	for _, v := range fc.Inside.Elements {
		if v == 0 {
			n++
		}
	}
	return n
}

// Profiles holds equilibrium plasma profiles evaluated at a set of grid
// points.
type Profiles struct {
	// Bpol is the poloidal magnetic field [T].
	Bpol *sparse.DenseArray

	// Ti and Te are the ion and electron temperatures [eV]. Te is a
	// private copy of the caller-supplied electron temperature; the
	// caller's array is never modified.
	Ti, Te *sparse.DenseArray

	// P is the total plasma pressure [Pa].
	P *sparse.DenseArray

	// Ne0 is the equilibrium electron density [m⁻³].
	Ne0 *sparse.DenseArray

	// Q is the safety factor.
	Q *sparse.DenseArray
}

// Equilibrium gives access to a magnetic equilibrium: the reference scalars,
// the flux-coordinate inversion, and the equilibrium plasma profiles.
// Implementations are the analytic model in plasma/analytic and the
// file-backed reader in plasma/gtsdata.
type Equilibrium interface {
	// ReferenceField returns the reference magnetic field strength B0 [T]
	// on the magnetic axis.
	ReferenceField() float64

	// ReferenceRadius returns the reference major radius R0 [m].
	ReferenceRadius() float64

	// MagneticAxis returns the cylindrical coordinates [m] of the
	// magnetic axis.
	MagneticAxis() (R, Z float64)

	// FluxCoords inverts cylindrical coordinates to flux coordinates for
	// every point of the given arrays, which must share one shape.
	// Points where the inversion fails or that fall outside the
	// equilibrium domain are flagged outside, not reported as errors.
	// B is the caller-supplied total magnetic field, which some
	// implementations use as a convergence aid; implementations may
	// ignore it.
	FluxCoords(R, Z, B *sparse.DenseArray) (*FluxCoords, error)

	// Profiles evaluates the equilibrium profiles at the given flux
	// coordinates. Te is the caller-supplied electron temperature [eV];
	// the returned Profiles holds a copy of it. At points flagged
	// outside, profile values are anchored to the last closed flux
	// surface so that the boundary decay applied afterwards is
	// continuous there.
	Profiles(fc *FluxCoords, Te *sparse.DenseArray) (*Profiles, error)

	// Boundary returns n points [m] tracing the outline of the last
	// closed flux surface.
	Boundary(n int) (R, Z []float64, err error)
}

// FluctuationSource provides time-resolved electrostatic potential
// fluctuations on a set of grid points.
type FluctuationSource interface {
	// Potential prepares sampling of the potential [V] at the points
	// given by flux coordinates fc and toroidal angle zeta, for the given
	// sequence of simulation timesteps. It returns an iterator yielding
	// one array per timestep in order, and coverage flags that are 1
	// where the source's data region covers the point. The coverage
	// region need not coincide with the closed flux surface region; the
	// iterator yields 0 at uncovered points. Calling Potential again
	// restarts iteration from the first timestep.
	Potential(fc *FluxCoords, zeta *sparse.DenseArray, steps []int) (NextData, *sparse.DenseArrayInt, error)
}

// ShapeError is returned when a caller-supplied array is nil or does not
// have the shape the configuration requires.
type ShapeError struct {
	Name      string
	Want, Got []int
}

func (e ShapeError) Error() string {
	switch {
	case e.Got == nil && e.Want == nil:
		return fmt.Sprintf("gtsmap: array %s is nil", e.Name)
	case e.Got == nil:
		return fmt.Sprintf("gtsmap: array %s is nil; want shape %v", e.Name, e.Want)
	default:
		return fmt.Sprintf("gtsmap: array %s has shape %v; want %v", e.Name, e.Got, e.Want)
	}
}

// checkShape returns a ShapeError if a is nil or its shape differs from
// want.
func checkShape(name string, a *sparse.DenseArray, want ...int) error {
	if a == nil {
		return ShapeError{Name: name, Want: want}
	}
	if len(a.Shape) != len(want) {
		return ShapeError{Name: name, Want: want, Got: a.Shape}
	}
	for i, w := range want {
		if a.Shape[i] != w {
			return ShapeError{Name: name, Want: want, Got: a.Shape}
		}
	}
	return nil
}
