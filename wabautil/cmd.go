/*
Copyright © 2019 the WaBa authors.
This file is part of WaBa.

WaBa is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

WaBa is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with WaBa.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package wabautil holds the configuration and command-line wiring of
// the WaBa model.
package wabautil

import (
	"fmt"

	"github.com/hydromodel/waba"
	"github.com/lnashier/viper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
type Cfg struct {
	*viper.Viper

	// inputFiles holds the names of the configuration options that are
	// input files.
	inputFiles []string

	// outputFiles holds the names of the configuration options that are
	// output files.
	outputFiles []string

	Root, versionCmd, runCmd, calibCmd, charsCmd *cobra.Command
}

// InputFiles returns the names of the configuration options that are
// input files.
func (cfg *Cfg) InputFiles() []string { return cfg.inputFiles }

// OutputFiles returns the names of the configuration options that are
// output files.
func (cfg *Cfg) OutputFiles() []string { return cfg.outputFiles }

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
	isInputFile            bool // Does the option represent an input file name?
	isOutputFile           bool // Does the option represent an output file name?
}

// InitializeConfig initializes the command tree and the configuration
// options of the model.
func InitializeConfig() *Cfg {

	cfg := &Cfg{
		Viper: viper.New(),
	}

	// Root is the main command.
	cfg.Root = &cobra.Command{
		Use:   "waba",
		Short: "A lumped catchment water-balance model.",
		Long: `WaBa is a conceptual water-balance model of a catchment in daily or
monthly timesteps, with calibration of its parameters against observed
runoff. Use the subcommands specified below to access the model
functionality.

Configuration can be changed by using a configuration file (and
providing the path to the file using the --config flag), by using
command-line arguments, or by setting environment variables in the
format 'WABA_var' where 'var' is the name of the variable to be set.`,
		DisableAutoGenTag: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return setConfig(cfg)
		},
	}

	cfg.versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Long:  "version prints the version number of this version of WaBa.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("WaBa v%s\n", waba.Version)
		},
		DisableAutoGenTag: true,
	}

	cfg.runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the model.",
		Long: `run simulates the water balance over the input series and writes the
resulting series or characteristics to the output file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunModel(cfg)
		},
		DisableAutoGenTag: true,
	}

	cfg.calibCmd = &cobra.Command{
		Use:   "calib",
		Short: "Calibrate the model parameters.",
		Long: `calib fits the model parameters to the observed runoff of the input
series using the gradient method or SCE-DE, then writes the resulting
series and, for SCE-DE, the ensemble table.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Calibrate(cfg)
		},
		DisableAutoGenTag: true,
	}

	cfg.charsCmd = &cobra.Command{
		Use:   "chars",
		Short: "Write monthly characteristics.",
		Long: `chars simulates the water balance and writes the minimum, mean and
maximum of every variable for the twelve months of the hydrological
year.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Chars(cfg)
		},
		DisableAutoGenTag: true,
	}

	// Link the commands together.
	cfg.Root.AddCommand(cfg.versionCmd)
	cfg.Root.AddCommand(cfg.runCmd)
	cfg.Root.AddCommand(cfg.calibCmd)
	cfg.Root.AddCommand(cfg.charsCmd)

	// Options are the configuration options available to WaBa.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
		isInputFile            bool
		isOutputFile           bool
	}{
		{
			name:        "config",
			usage:       `config specifies the configuration file location.`,
			defaultVal:  "",
			isInputFile: true,
			flagsets:    []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "ModelType",
			usage:      `ModelType specifies the model timestep: 'daily' or 'monthly'.`,
			shorthand:  "t",
			defaultVal: "daily",
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:        "InputFile",
			usage:       `InputFile is the path to the whitespace-separated file with the observed series.`,
			defaultVal:  "input.txt",
			isInputFile: true,
			flagsets:    []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "InputVars",
			usage:      `InputVars assigns the file columns to variables, in order.`,
			defaultVal: []string{"P", "R", "T", "H"},
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:         "OutputFile",
			usage:        `OutputFile is the path of the file to write results to.`,
			defaultVal:   "output.txt",
			isOutputFile: true,
			flagsets:     []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "OutputType",
			usage:      `OutputType selects the payload: 'series', 'daily', 'monthly' or 'chars'.`,
			defaultVal: "series",
			flagsets:   []*pflag.FlagSet{cfg.runCmd.Flags(), cfg.calibCmd.Flags()},
		},
		{
			name:        "ParamsFile",
			usage:       `ParamsFile optionally reloads parameter values from an earlier result file.`,
			defaultVal:  "",
			isInputFile: true,
			flagsets:    []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "Area",
			usage:      `Area is the catchment area in km²; it overrides the area from the input file header.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "InitGS",
			usage:      `InitGS is the initial groundwater storage in mm.`,
			defaultVal: 50.0,
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "PET.Method",
			usage:      `PET.Method fills a missing PET series: 'none', 'latitude' or 'tables'.`,
			defaultVal: "none",
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "PET.Latitude",
			usage:      `PET.Latitude is the catchment latitude in degrees for the latitude method.`,
			defaultVal: 50.0,
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "Calib.Method",
			usage:      `Calib.Method selects the calibration algorithm: 'gradient' or 'DE'.`,
			defaultVal: "gradient",
			flagsets:   []*pflag.FlagSet{cfg.calibCmd.Flags()},
		},
		{
			name:       "Calib.Crit",
			usage:      `Calib.Crit is the calibration criterion: MSE, MAE, NS, LNNS or MAPE.`,
			defaultVal: "MSE",
			flagsets:   []*pflag.FlagSet{cfg.calibCmd.Flags()},
		},
		{
			name:       "Calib.Crit2",
			usage:      `Calib.Crit2 is the criterion of the second gradient phase.`,
			defaultVal: "MAPE",
			flagsets:   []*pflag.FlagSet{cfg.calibCmd.Flags()},
		},
		{
			name:       "Calib.MaxIter",
			usage:      `Calib.MaxIter limits the iterations of each gradient phase.`,
			defaultVal: 500,
			flagsets:   []*pflag.FlagSet{cfg.calibCmd.Flags()},
		},
		{
			name:       "Calib.WeightBF",
			usage:      `Calib.WeightBF blends the baseflow criterion into the runoff criterion (0 to 1).`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{cfg.calibCmd.Flags()},
		},
		{
			name:       "Calib.UseWeights",
			usage:      `Calib.UseWeights weights the timesteps by the WEI series.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{cfg.calibCmd.Flags()},
		},
		{
			name:       "DE.Type",
			usage:      `DE.Type is the mutation variant: 'best_one_bin', 'best_two_bin' or 'rand_two_bin'.`,
			defaultVal: "best_one_bin",
			flagsets:   []*pflag.FlagSet{cfg.calibCmd.Flags()},
		},
		{
			name:       "DE.NComp",
			usage:      `DE.NComp is the number of shuffled complexes.`,
			defaultVal: 3,
			flagsets:   []*pflag.FlagSet{cfg.calibCmd.Flags()},
		},
		{
			name:       "DE.CompSize",
			usage:      `DE.CompSize is the number of members in one complex.`,
			defaultVal: 10,
			flagsets:   []*pflag.FlagSet{cfg.calibCmd.Flags()},
		},
		{
			name:       "DE.Cross",
			usage:      `DE.Cross is the crossover probability.`,
			defaultVal: 0.95,
			flagsets:   []*pflag.FlagSet{cfg.calibCmd.Flags()},
		},
		{
			name:       "DE.MutatF",
			usage:      `DE.MutatF is the first mutation constant.`,
			defaultVal: 0.9,
			flagsets:   []*pflag.FlagSet{cfg.calibCmd.Flags()},
		},
		{
			name:       "DE.MutatK",
			usage:      `DE.MutatK is the second mutation constant.`,
			defaultVal: 0.85,
			flagsets:   []*pflag.FlagSet{cfg.calibCmd.Flags()},
		},
		{
			name:       "DE.MaxShuffles",
			usage:      `DE.MaxShuffles is the number of complex shufflings.`,
			defaultVal: 20,
			flagsets:   []*pflag.FlagSet{cfg.calibCmd.Flags()},
		},
		{
			name:       "DE.NGenComp",
			usage:      `DE.NGenComp is the number of generations evolved in a complex between shuffles.`,
			defaultVal: 5,
			flagsets:   []*pflag.FlagSet{cfg.calibCmd.Flags()},
		},
		{
			name:       "DE.EnsCount",
			usage:      `DE.EnsCount is the number of repeated searches forming the ensemble.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{cfg.calibCmd.Flags()},
		},
		{
			name:       "DE.Seed",
			usage:      `DE.Seed re-seeds the random generator when positive, making the search reproducible.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{cfg.calibCmd.Flags()},
		},
		{
			name:         "DE.EnsembleFile",
			usage:        `DE.EnsembleFile is the path to write the ensemble table to; empty skips it.`,
			defaultVal:   "",
			isOutputFile: true,
			flagsets:     []*pflag.FlagSet{cfg.calibCmd.Flags()},
		},
	}

	// Set the prefix for configuration environment variables.
	cfg.SetEnvPrefix("WABA")
	cfg.AutomaticEnv()

	for _, option := range options {
		if option.isInputFile {
			cfg.inputFiles = append(cfg.inputFiles, option.name)
		}
		if option.isOutputFile {
			cfg.outputFiles = append(cfg.outputFiles, option.name)
		}
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
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				set.Bool(option.name, option.defaultVal.(bool), option.usage)
			case int:
				set.Int(option.name, option.defaultVal.(int), option.usage)
			case float64:
				set.Float64(option.name, option.defaultVal.(float64), option.usage)
			default:
				panic(fmt.Errorf("invalid argument type: %T", option.defaultVal))
			}
			cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
	return cfg
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig(cfg *Cfg) error {
	if cfgpath := cfg.GetString("config"); cfgpath != "" {
		cfg.SetConfigFile(cfgpath)
		if err := cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("waba: problem reading configuration file: %v", err)
		}
	}
	return nil
}
