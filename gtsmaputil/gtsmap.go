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
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ctessum/sparse"
	"github.com/plasmamodel/gtsmap"
	"github.com/plasmamodel/gtsmap/plasma/analytic"
	"github.com/plasmamodel/gtsmap/plasma/gtsdata"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// logger prints the run progress.
var logger *logrus.Logger

func init() {
	logger = logrus.New()
	logger.Formatter = &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
		DisableSorting:  true,
	}
}

// fieldSource is a plasma model that can sample the inputs of a mapping run
// on the Cartesian grid.
type fieldSource interface {
	GridFields(x, y, z *sparse.DenseArray) (Te, B *sparse.DenseArray, err error)
}

// backend bundles the equilibrium opener and fluctuation source of one data
// source.
type backend struct {
	open   func(eqFile, ntFile string) (gtsmap.Equilibrium, error)
	source gtsmap.FluctuationSource
}

// openBackend selects the data source for a mapping run.
func openBackend(name string, cfg *gtsmap.Config, msgChan chan string) (*backend, error) {
	switch name {
	case "analytic":
		src, err := analyticTurbulence(cfg.FlucFilePath)
		if err != nil {
			return nil, err
		}
		return &backend{open: openAnalytic, source: src}, nil
	case "gtsdata":
		return &backend{
			open: func(eqFile, ntFile string) (gtsmap.Equilibrium, error) {
				return gtsdata.Open(eqFile, ntFile)
			},
			source: gtsdata.NewSource(cfg.PHIDataDir, cfg.PHIFileNameStart, msgChan),
		}, nil
	default:
		return nil, fmt.Errorf("gtsmap: unknown backend %q; valid backends are \"analytic\" and \"gtsdata\"", name)
	}
}

// openAnalytic opens the analytic equilibrium. eqFile may name a TOML
// parameter file; if no such file exists the default parameters are used.
// The profiles are closed-form, so ntFile is ignored.
func openAnalytic(eqFile, ntFile string) (gtsmap.Equilibrium, error) {
	if _, err := os.Stat(eqFile); err != nil {
		logger.Infof("No analytic parameter file at %s; using the default parameters.", eqFile)
		return analytic.New(analytic.Default())
	}
	return analytic.Open(eqFile, ntFile)
}

// analyticTurbulence loads the drift-wave spectrum for the analytic
// backend. dir may hold a turbulence.toml parameter file; if no such file
// exists the default spectrum is used.
func analyticTurbulence(dir string) (*analytic.Turbulence, error) {
	path := filepath.Join(dir, analytic.TurbulenceFile)
	if _, err := os.Stat(path); err != nil {
		logger.Infof("No turbulence parameter file at %s; using the default spectrum.", path)
		return analytic.DefaultTurbulence(), nil
	}
	return analytic.LoadTurbulence(path)
}

// Run maps the configured simulation data onto the Cartesian grid and
// writes the result to OutputFile.
//
// CobraCommand is the cobra.Command instance where Run is called from.
// It is needed to print log output to the correct writer.
//
// LogFile is the path to the desired logfile location.
//
// OutputFile is the path where the mapped data file will be written.
//
// OutputVariables maps names of derived output variables to the
// expressions that compute them from the mapped variables.
//
// Backend selects the data source. Acceptable values are 'analytic' and
// 'gtsdata'.
func Run(CobraCommand *cobra.Command, LogFile, OutputFile string, OutputVariables map[string]string, Backend string, cfg *gtsmap.Config) error {

	startTime := time.Now()

	// Start a function to receive and print log messages.
	logfile, err := os.Create(LogFile)
	if err != nil {
		return fmt.Errorf("gtsmap: problem creating log file: %v", err)
	}
	mw := io.MultiWriter(CobraCommand.OutOrStdout(), logfile)
	logger.Out = mw
	msgLog := make(chan string)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		for msg := range msgLog {
			logger.Info(msg)
		}
		wg.Done()
	}()

	defer func() { // Wait for the logging to finish.
		close(msgLog)
		wg.Wait()
		logfile.Close()
	}()

	o, err := gtsmap.NewOutputter(OutputFile, OutputVariables, nil)
	if err != nil {
		return err
	}

	bk, err := openBackend(Backend, cfg, msgLog)
	if err != nil {
		return err
	}

	logger.Infof("Opening the %s equilibrium...", Backend)
	eq, err := bk.open(cfg.EqFileName, cfg.NTFileName)
	if err != nil {
		return err
	}
	fs, ok := eq.(fieldSource)
	if !ok {
		return fmt.Errorf("gtsmap: the %s equilibrium cannot sample grid fields", Backend)
	}
	x, y, z := cfg.Mesh()
	Te, B, err := fs.GridFields(x, y, z)
	if err != nil {
		return err
	}

	m := &gtsmap.Mapper{
		Config: cfg,
		// The equilibrium is already open; hand it to the mapping run.
		OpenEquilibrium: func(string, string) (gtsmap.Equilibrium, error) { return eq, nil },
		Fluctuations:    bk.source,
		MsgChan:         msgLog,
	}
	logger.Info("Mapping profiles...")
	d, err := m.Map(x, y, z, Te, B)
	if err != nil {
		return err
	}
	if err := o.CheckOutputVars(d); err != nil {
		return err
	}
	logger.Infof("Writing mapped data to %s...", OutputFile)
	if err := o.Output(d); err != nil {
		return err
	}

	elapsedTime := time.Since(startTime)
	logger.Infof("Elapsed time: %f seconds", elapsedTime.Seconds())

	return nil
}
