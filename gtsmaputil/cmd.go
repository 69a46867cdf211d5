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

// Package gtsmaputil holds the gtsmap command line interface.
package gtsmaputil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/plasmamodel/gtsmap"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to GTSMap.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "backend",
			usage: `
              backend selects the data source for the mapping run. Valid
              options are "analytic" (a closed-form circular equilibrium with
              a synthetic drift-wave spectrum) and "gtsdata" (simulation
              output files).`,
			shorthand:  "b",
			defaultVal: "analytic",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Xmin",
			usage: `
              Xmin is the lower extent [m] of the Cartesian grid in the x
              direction.`,
			defaultVal: 2.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), showCmd.Flags(), synthCmd.Flags()},
		},
		{
			name: "Xmax",
			usage: `
              Xmax is the upper extent [m] of the Cartesian grid in the x
              direction.`,
			defaultVal: 2.6,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), showCmd.Flags(), synthCmd.Flags()},
		},
		{
			name: "NX",
			usage: `
              NX is the number of grid points in the x direction.`,
			defaultVal: 101,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), showCmd.Flags(), synthCmd.Flags()},
		},
		{
			name: "Ymin",
			usage: `
              Ymin is the lower extent [m] of the Cartesian grid in the y
              direction.`,
			defaultVal: -0.6,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), showCmd.Flags(), synthCmd.Flags()},
		},
		{
			name: "Ymax",
			usage: `
              Ymax is the upper extent [m] of the Cartesian grid in the y
              direction.`,
			defaultVal: 0.6,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), showCmd.Flags(), synthCmd.Flags()},
		},
		{
			name: "NY",
			usage: `
              NY is the number of grid points in the y direction.`,
			defaultVal: 201,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), showCmd.Flags(), synthCmd.Flags()},
		},
		{
			name: "Zmin",
			usage: `
              Zmin is the lower extent [m] of the Cartesian grid in the z
              direction.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), showCmd.Flags(), synthCmd.Flags()},
		},
		{
			name: "Zmax",
			usage: `
              Zmax is the upper extent [m] of the Cartesian grid in the z
              direction.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), showCmd.Flags(), synthCmd.Flags()},
		},
		{
			name: "NZ",
			usage: `
              NZ is the number of grid points in the z direction. NZ = 1
              selects a single plane at Zmin.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), showCmd.Flags(), synthCmd.Flags()},
		},
		{
			name: "TStart",
			usage: `
              TStart is the first simulation timestep to map.`,
			defaultVal: 100,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), showCmd.Flags(), synthCmd.Flags()},
		},
		{
			name: "TStep",
			usage: `
              TStep is the stride between mapped timesteps.`,
			defaultVal: 10,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), showCmd.Flags(), synthCmd.Flags()},
		},
		{
			name: "NT",
			usage: `
              NT is the number of timesteps to map.`,
			defaultVal: 10,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), showCmd.Flags(), synthCmd.Flags()},
		},
		{
			name: "NBOUNDARY",
			usage: `
              NBOUNDARY is the number of points used to trace the outline of
              the last closed flux surface.`,
			defaultVal: 1001,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), showCmd.Flags(), synthCmd.Flags()},
		},
		{
			name: "FlucAmplification",
			usage: `
              FlucAmplification scales the fluctuating part of the electron
              density before it is added to the equilibrium profile.`,
			defaultVal: 50.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), showCmd.Flags(), synthCmd.Flags()},
		},
		{
			name: "FlucFilePath",
			usage: `
              FlucFilePath is the root directory of the fluctuation dataset.
              With the analytic backend it may hold a turbulence.toml
              parameter file. It can include environment variables.`,
			defaultVal: "./Fluctuations/",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), showCmd.Flags(), synthCmd.Flags()},
		},
		{
			name: "EqFileName",
			usage: `
              EqFileName is the path to the equilibrium geometry file. With
              the analytic backend it names an optional TOML parameter file;
              if the file does not exist the default parameters are used. It
              can include environment variables.`,
			defaultVal: "./ESI_EQFILE",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), showCmd.Flags(), synthCmd.Flags()},
		},
		{
			name: "NTFileName",
			usage: `
              NTFileName is the path to the file holding the equilibrium
              density and temperature profile tables. It can include
              environment variables.`,
			defaultVal: "./NTProfiles.cdf",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), showCmd.Flags(), synthCmd.Flags()},
		},
		{
			name: "PHIFileNameStart",
			usage: `
              PHIFileNameStart is the file name prefix of the electrostatic
              potential snapshot files.`,
			defaultVal: "PHI.",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), showCmd.Flags(), synthCmd.Flags()},
		},
		{
			name: "PHIDataDir",
			usage: `
              PHIDataDir is the directory holding the potential snapshot
              files. It can include environment variables.`,
			defaultVal: "./PHI_FILES/",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), showCmd.Flags(), synthCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path where the mapped data file is written by
              run and read by serve. It can include environment variables.`,
			defaultVal: "gtsmap_output.cdf",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), serveCmd.Flags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables maps names of derived output variables to the
              expressions that compute them from the mapped variables.`,
			defaultVal: map[string]string{
				"NeFluc": "Ne - Ne0",
			},
			flagsets: []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the desired logfile location. If LogFile
              is left blank, the logfile will be saved in the same location
              as the OutputFile.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "addr",
			usage: `
              addr is the address the quicklook web server listens on.`,
			defaultVal: "localhost:8080",
			flagsets:   []*pflag.FlagSet{serveCmd.Flags()},
		},
		{
			name: "out-dir",
			usage: `
              out-dir is the directory the synthetic dataset is written
              into.`,
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{synthCmd.Flags()},
		},
		{
			name: "Synth.ParamFile",
			usage: `
              Synth.ParamFile is an optional TOML file with analytic
              equilibrium parameters for the synthetic dataset. If blank, the
              default parameters are used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{synthCmd.Flags()},
		},
		{
			name: "Synth.TurbulenceFile",
			usage: `
              Synth.TurbulenceFile is an optional TOML file with drift-wave
              spectrum parameters for the synthetic potential files. If
              blank, the default spectrum is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{synthCmd.Flags()},
		},
		{
			name: "Synth.NR",
			usage: `
              Synth.NR is the number of major radius samples in the synthetic
              equilibrium grid.`,
			defaultVal: 129,
			flagsets:   []*pflag.FlagSet{synthCmd.Flags()},
		},
		{
			name: "Synth.NZ",
			usage: `
              Synth.NZ is the number of height samples in the synthetic
              equilibrium grid.`,
			defaultVal: 129,
			flagsets:   []*pflag.FlagSet{synthCmd.Flags()},
		},
		{
			name: "Synth.NA",
			usage: `
              Synth.NA is the number of flux label samples in the synthetic
              profile tables and potential files.`,
			defaultVal: 65,
			flagsets:   []*pflag.FlagSet{synthCmd.Flags()},
		},
		{
			name: "Synth.NTheta",
			usage: `
              Synth.NTheta is the number of poloidal angle samples in the
              synthetic potential files.`,
			defaultVal: 64,
			flagsets:   []*pflag.FlagSet{synthCmd.Flags()},
		},
		{
			name: "Synth.NZeta",
			usage: `
              Synth.NZeta is the number of toroidal angle samples in the
              synthetic potential files.`,
			defaultVal: 16,
			flagsets:   []*pflag.FlagSet{synthCmd.Flags()},
		},
		{
			name: "Synth.Window",
			usage: `
              Synth.Window is the half-width of the synthetic equilibrium
              grid in minor radii.`,
			defaultVal: 1.2,
			flagsets:   []*pflag.FlagSet{synthCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("GTSMAP")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := string(b.Bytes())
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(showCmd)
	Root.AddCommand(synthCmd)
	Root.AddCommand(serveCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("gtsmap: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "gtsmap",
	Short: "Map gyrokinetic simulation data onto a Cartesian grid.",
	Long: `GTSMap maps the equilibrium profiles and electron density fluctuations of a
gyrokinetic tokamak simulation onto a Cartesian grid for use by synthetic
diagnostics. Use the subcommands specified below to access the model
functionality.

Refer to the subcommand documentation for configuration options and default
settings. Configuration can be changed by using a configuration file (and
providing the path to the file using the --config flag), by using command-line
arguments, or by setting environment variables in the format 'GTSMAP_var'
where 'var' is the name of the variable to be set.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of GTSMap.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("GTSMap v%s\n", gtsmap.Version)
	},
	DisableAutoGenTag: true,
}

// runCmd is a command that runs a full profile mapping.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the profile mapping.",
	Long: `run maps the equilibrium profiles and electron density fluctuations of the
configured simulation onto the Cartesian grid and writes the mapped data to
the output file. The data source is chosen with the --backend flag.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := mapperConfig(Cfg)
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(os.ExpandEnv(Cfg.GetString("OutputFile")))
		if err != nil {
			return err
		}
		outputVars := checkOutputVars(GetStringMapString("OutputVariables", Cfg))
		return Run(
			cmd,
			checkLogFile(os.ExpandEnv(Cfg.GetString("LogFile")), outputFile),
			outputFile,
			outputVars,
			Cfg.GetString("backend"),
			cfg)
	},
	DisableAutoGenTag: true,
}

// showCmd is a command that prints the effective configuration.
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configuration.",
	Long: `show prints the effective mapping configuration after applying the
configuration file, command-line arguments, and environment variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := mapperConfig(Cfg)
		if err != nil {
			return err
		}
		cfg.Show(cmd.OutOrStdout())
		return nil
	},
	DisableAutoGenTag: true,
}

// synthCmd is a command that generates a synthetic file-backed dataset.
var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Generate a synthetic dataset.",
	Long: `synth generates a complete file-backed dataset (equilibrium grid, profile
tables, and potential timesteps) from the analytic plasma model, laid out so
that 'run --backend gtsdata' can consume it directly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := mapperConfig(Cfg)
		if err != nil {
			return err
		}
		return Synth(
			cfg,
			os.ExpandEnv(Cfg.GetString("out-dir")),
			os.ExpandEnv(Cfg.GetString("Synth.ParamFile")),
			os.ExpandEnv(Cfg.GetString("Synth.TurbulenceFile")),
			Cfg.GetInt("Synth.NR"),
			Cfg.GetInt("Synth.NZ"),
			Cfg.GetInt("Synth.NA"),
			Cfg.GetInt("Synth.NTheta"),
			Cfg.GetInt("Synth.NZeta"),
			Cfg.GetFloat64("Synth.Window"))
	},
	DisableAutoGenTag: true,
}

// serveCmd is a command that serves mapped data over HTTP.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve mapped data over HTTP.",
	Long: `serve loads a mapped data file written by run and serves an index page and
per-variable heatmap images at the given address.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Serve(os.ExpandEnv(Cfg.GetString("OutputFile")), Cfg.GetString("addr"))
	},
	DisableAutoGenTag: true,
}
