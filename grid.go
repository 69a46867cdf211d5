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
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// XAxis returns the grid point locations [m] along the x direction.
func (c *Config) XAxis() []float64 { return axis(c.Xmin, c.Xmax, c.NX) }

// YAxis returns the grid point locations [m] along the y direction.
func (c *Config) YAxis() []float64 { return axis(c.Ymin, c.Ymax, c.NY) }

// ZAxis returns the grid point locations [m] along the z direction.
func (c *Config) ZAxis() []float64 { return axis(c.Zmin, c.Zmax, c.NZ) }

// axis spaces n points evenly over [min, max]. A single-point axis
// collapses to min.
func axis(min, max float64, n int) []float64 {
	if n == 1 {
		return []float64{min}
	}
	return floats.Span(make([]float64, n), min, max)
}

// Mesh returns the Cartesian coordinates of every grid point as three
// arrays of shape [NZ][NY][NX]: x varies along the innermost index, y along
// the middle index, and z along the outermost index.
func (c *Config) Mesh() (x, y, z *sparse.DenseArray) {
	xa, ya, za := c.XAxis(), c.YAxis(), c.ZAxis()
	x = sparse.ZerosDense(c.NZ, c.NY, c.NX)
	y = sparse.ZerosDense(c.NZ, c.NY, c.NX)
	z = sparse.ZerosDense(c.NZ, c.NY, c.NX)
	for k := 0; k < c.NZ; k++ {
		for j := 0; j < c.NY; j++ {
			for i := 0; i < c.NX; i++ {
				x.Set(xa[i], k, j, i)
				y.Set(ya[j], k, j, i)
				z.Set(za[k], k, j, i)
			}
		}
	}
	return x, y, z
}
