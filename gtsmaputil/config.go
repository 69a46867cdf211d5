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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/plasmamodel/gtsmap"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// mapperOptions are the configuration options that feed the mapping
// configuration.
var mapperOptions = []string{
	"Xmin", "Xmax", "NX",
	"Ymin", "Ymax", "NY",
	"Zmin", "Zmax", "NZ",
	"TStart", "TStep", "NT",
	"NBOUNDARY",
	"FlucAmplification",
	"FlucFilePath",
	"EqFileName",
	"NTFileName",
	"PHIFileNameStart",
	"PHIDataDir",
}

// mapperConfig builds the mapping configuration from the given
// configuration information, expanding any environment variables in the
// file path options.
func mapperConfig(cfg *viper.Viper) (*gtsmap.Config, error) {
	opts := make(map[string]interface{})
	for _, name := range mapperOptions {
		if val := cfg.Get(name); val != nil {
			opts[name] = val
		}
	}
	c := gtsmap.DefaultConfig()
	if err := c.Set(opts); err != nil {
		return nil, err
	}
	c.FlucFilePath = os.ExpandEnv(c.FlucFilePath)
	c.EqFileName = os.ExpandEnv(c.EqFileName)
	c.NTFileName = os.ExpandEnv(c.NTFileName)
	c.PHIFileNameStart = os.ExpandEnv(c.PHIFileNameStart)
	c.PHIDataDir = os.ExpandEnv(c.PHIDataDir)
	if err := c.Check(); err != nil {
		return nil, err
	}
	return c, nil
}

// checkOutputFile makes sure that the output file is specified and that the
// directory it is to be written to exists.
func checkOutputFile(o string) (string, error) {
	if o == "" {
		return o, fmt.Errorf("gtsmap: you need to specify an output file")
	}
	if _, err := os.Stat(filepath.Dir(o)); err != nil {
		return o, fmt.Errorf("gtsmap: the output directory doesn't exist: %v", err)
	}
	return o, nil
}

// checkLogFile fills in a default location for the logfile if none is
// specified.
func checkLogFile(logFile, outputFile string) string {
	if logFile == "" {
		logFile = strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".log"
	}
	return logFile
}

// checkOutputVars removes end lines and expands environment variables in the
// output variable expressions. An empty map is allowed; the output file then
// holds only the directly mapped variables.
func checkOutputVars(o map[string]string) map[string]string {
	out := make(map[string]string)
	for k, v := range o {
		k = strings.Replace(k, "\r\n", " ", -1)
		k = strings.Replace(k, "\n", " ", -1)
		v = strings.Replace(v, "\r\n", " ", -1)
		v = strings.Replace(v, "\n", " ", -1)
		out[os.ExpandEnv(k)] = os.ExpandEnv(v)
	}
	return out
}

// GetStringMapString returns a map[string]string from the configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) map[string]string {
	i := cfg.Get(varName)
	switch i.(type) {
	case map[string]string:
		return i.(map[string]string)
	case map[string]interface{}, map[interface{}]interface{}:
		return cast.ToStringMapString(i)
	case string:
		b := bytes.NewBuffer(([]byte)(i.(string)))
		d := json.NewDecoder(b)
		o := make(map[string]string)
		if err := d.Decode(&o); err != nil {
			panic(err)
		}
		return o
	default:
		panic(fmt.Errorf("invalid type %T for variable %s", i, varName))
	}
}
