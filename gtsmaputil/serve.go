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
	"os"

	"github.com/plasmamodel/gtsmap"
)

// Serve loads a mapped data file written by run and serves the quicklook
// web interface at the given address.
func Serve(mapFile, address string) error {
	f, err := os.Open(mapFile)
	if err != nil {
		return fmt.Errorf("gtsmap: problem opening the mapped data file: %v", err)
	}
	d, err := gtsmap.LoadMapData(f)
	if err != nil {
		f.Close()
		return err
	}
	// LoadMapData reads everything eagerly.
	f.Close()
	logger.Infof("Serving %s at http://%s.", mapFile, address)
	return d.WebServer(address)
}
