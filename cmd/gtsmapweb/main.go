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

// command gtsmapweb serves quicklook maps of mapped profile data.
package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/plasmamodel/gtsmap"
	"github.com/sirupsen/logrus"
)

var logger *logrus.Logger

func init() {
	logger = logrus.StandardLogger()
	logrus.SetLevel(logrus.InfoLevel)
	logrus.SetFormatter(&logrus.TextFormatter{
		ForceColors:     true,
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
		DisableSorting:  true,
	})
}

var (
	data = flag.String("data", "gtsmap_output.cdf", "Path to the mapped data file")
	addr = flag.String("addr", "localhost:8080", "Address to listen on")
)

func main() {
	flag.Parse()

	f, err := os.Open(os.ExpandEnv(*data))
	if err != nil {
		logger.WithError(err).Fatal("failed to open the mapped data file")
	}
	d, err := gtsmap.LoadMapData(f)
	if err != nil {
		f.Close()
		logger.WithError(err).Fatal("failed to load the mapped data")
	}
	f.Close()
	logger.Infof("loaded %d variables mapped on a %dx%dx%d grid",
		len(d.Data), d.Config.NX, d.Config.NY, d.Config.NZ)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           d.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	logger.Infof("listening on http://%s\n", *addr)
	logger.Fatal(srv.ListenAndServe())
}
