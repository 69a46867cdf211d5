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

package gtsdata

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/plasmamodel/gtsmap"
)

// Source samples electrostatic potential fluctuations from one NetCDF
// file per timestep.
type Source struct {
	dir     string
	prefix  string
	msgChan chan string
}

// NewSource returns a source reading potential files from dir, named
// after prefix as by PotentialFileName. Progress messages go to msgChan
// if it is non-nil.
func NewSource(dir, prefix string, msgChan chan string) *Source {
	return &Source{dir: dir, prefix: prefix, msgChan: msgChan}
}

func (s *Source) msg(msg string) {
	if s.msgChan != nil {
		s.msgChan <- msg
	}
}

// PotentialFileName returns the conventional file name for one timestep
// of potential samples: the prefix, the timestep zero-padded to five
// digits, and a ".cdf" extension.
func PotentialFileName(prefix string, step int) string {
	return fmt.Sprintf("%s%05d.cdf", prefix, step)
}

// FileName returns the path of the potential file for the given timestep.
func (s *Source) FileName(step int) string {
	return filepath.Join(s.dir, PotentialFileName(s.prefix, step))
}

// ReadPotential reads one timestep of potential samples from the file at
// path.
func ReadPotential(path string) (*PotentialFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gtsdata: opening fluctuation file: %v", err)
	}
	defer f.Close()
	cf, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("gtsdata: reading fluctuation file %s: %v", path, err)
	}
	if err := checkVersion(cf, path); err != nil {
		return nil, err
	}
	st, ok := cf.Header.GetAttribute("", "step").([]int32)
	if !ok || len(st) == 0 {
		return nil, fmt.Errorf("gtsdata: %s has no step attribute", path)
	}
	fr := &PotentialFrame{Step: int(st[0])}
	for _, ax := range []struct {
		name string
		dst  *[]float64
	}{{"a", &fr.A}, {"theta", &fr.Theta}, {"zeta", &fr.Zeta}} {
		if *ax.dst, err = readSlice(cf, path, ax.name); err != nil {
			return nil, err
		}
	}
	if fr.Phi, err = readVar(cf, path, "phi"); err != nil {
		return nil, err
	}
	if err := fr.check(); err != nil {
		return nil, err
	}
	return fr, nil
}

// Potential prepares sampling of the stored potential at the given flux
// coordinates and toroidal angles for the given timesteps. The sample
// grid comes from the first timestep's file; every later file must share
// it. Sampling is trilinear with periodic wrap in both angles, and
// coverage is the radial window of the flux label axis.
func (s *Source) Potential(fc *gtsmap.FluxCoords, zeta *sparse.DenseArray, steps []int) (gtsmap.NextData, *sparse.DenseArrayInt, error) {
	if fc == nil || fc.A == nil || fc.Theta == nil {
		return nil, nil, fmt.Errorf("gtsdata: nil flux coordinates")
	}
	if zeta == nil || !shapeEqual(zeta.Shape, fc.A.Shape) {
		return nil, nil, fmt.Errorf("gtsdata: zeta does not match the flux coordinate shape")
	}
	if len(steps) == 0 {
		return nil, nil, fmt.Errorf("gtsdata: no timesteps to sample")
	}
	first, err := ReadPotential(s.FileName(steps[0]))
	if err != nil {
		return nil, nil, err
	}
	if first.Step != steps[0] {
		return nil, nil, fmt.Errorf("gtsdata: %s says it holds timestep %d, not %d",
			s.FileName(steps[0]), first.Step, steps[0])
	}
	aAxis := first.A
	covered := sparse.ZerosDenseInt(fc.A.Shape...)
	var points []samplePoint
	for i, a := range fc.A.Elements {
		if a < aAxis[0] || a > aAxis[len(aAxis)-1] {
			continue
		}
		covered.Elements[i] = 1
		sp := samplePoint{point: i}
		sp.ia, sp.wa = locate(aAxis, a)
		sp.it0, sp.it1, sp.wt = locatePeriodic(first.Theta, fc.Theta.Elements[i])
		sp.iz0, sp.iz1, sp.wz = locatePeriodic(first.Zeta, zeta.Elements[i])
		points = append(points, sp)
	}
	it := 0
	next := func() (*sparse.DenseArray, error) {
		if it >= len(steps) {
			return nil, io.EOF
		}
		step := steps[it]
		it++
		path := s.FileName(step)
		fr, err := ReadPotential(path)
		if err != nil {
			return nil, err
		}
		if fr.Step != step {
			return nil, fmt.Errorf("gtsdata: %s says it holds timestep %d, not %d",
				path, fr.Step, step)
		}
		if !fr.sameGrid(first) {
			return nil, fmt.Errorf("gtsdata: %s does not share the sample grid of %s",
				path, s.FileName(steps[0]))
		}
		phi := sparse.ZerosDense(fc.A.Shape...)
		for _, sp := range points {
			phi.Elements[sp.point] = sp.sample(fr.Phi)
		}
		s.msg(fmt.Sprintf("Read fluctuation file %s.", path))
		return phi, nil
	}
	return next, covered, nil
}

// samplePoint is the precomputed interpolation stencil of one covered
// grid point.
type samplePoint struct {
	point    int
	ia       int
	wa       float64
	it0, it1 int
	wt       float64
	iz0, iz1 int
	wz       float64
}

// sample gathers the trilinear interpolant from one frame's potential.
func (sp *samplePoint) sample(phi *sparse.DenseArray) float64 {
	v00 := (1-sp.wz)*phi.Get(sp.ia, sp.it0, sp.iz0) + sp.wz*phi.Get(sp.ia, sp.it0, sp.iz1)
	v01 := (1-sp.wz)*phi.Get(sp.ia, sp.it1, sp.iz0) + sp.wz*phi.Get(sp.ia, sp.it1, sp.iz1)
	v10 := (1-sp.wz)*phi.Get(sp.ia+1, sp.it0, sp.iz0) + sp.wz*phi.Get(sp.ia+1, sp.it0, sp.iz1)
	v11 := (1-sp.wz)*phi.Get(sp.ia+1, sp.it1, sp.iz0) + sp.wz*phi.Get(sp.ia+1, sp.it1, sp.iz1)
	return (1-sp.wa)*((1-sp.wt)*v00+sp.wt*v01) + sp.wa*((1-sp.wt)*v10+sp.wt*v11)
}

// locatePeriodic finds the sample interval of angle v on a periodic
// axis, wrapping the last interval around to the first sample.
func locatePeriodic(axis []float64, v float64) (i0, i1 int, w float64) {
	const period = 2 * math.Pi
	t := math.Mod(v-axis[0], period)
	if t < 0 {
		t += period
	}
	pos := axis[0] + t
	n := len(axis)
	if pos >= axis[n-1] {
		span := axis[0] + period - axis[n-1]
		return n - 1, 0, (pos - axis[n-1]) / span
	}
	i, f := locate(axis, pos)
	return i, i + 1, f
}
