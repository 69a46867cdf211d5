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

	"github.com/ctessum/sparse"
)

// CartesianToCylindrical converts grid point locations from Cartesian
// coordinates (x, y, z) to cylindrical coordinates (R, Z, ζ):
// R = sqrt(x²+y²), Z = z, and ζ = atan2(y, x). The conversion is
// elementwise and order preserving, so the outputs share the inputs'
// shape. A point on the cylinder axis (x = y = 0) gets R = 0 and ζ = 0.
func CartesianToCylindrical(x, y, z *sparse.DenseArray) (r, zOut, zeta *sparse.DenseArray, err error) {
	if x == nil {
		return nil, nil, nil, ShapeError{Name: "x"}
	}
	if err := checkShape("y", y, x.Shape...); err != nil {
		return nil, nil, nil, err
	}
	if err := checkShape("z", z, x.Shape...); err != nil {
		return nil, nil, nil, err
	}
	r = sparse.ZerosDense(x.Shape...)
	zOut = sparse.ZerosDense(x.Shape...)
	zeta = sparse.ZerosDense(x.Shape...)
	for i, xv := range x.Elements {
		yv := y.Elements[i]
		r.Elements[i] = math.Sqrt(xv*xv + yv*yv)
		zeta.Elements[i] = math.Atan2(yv, xv)
		zOut.Elements[i] = z.Elements[i]
	}
	return r, zOut, zeta, nil
}
