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

package wabautil

import (
	"fmt"
	"os"
	"strings"

	"github.com/hydromodel/waba"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
)

// modelType parses the ModelType option.
func modelType(s string) (waba.ModelType, error) {
	switch strings.ToLower(s) {
	case "d", "daily":
		return waba.Daily, nil
	case "m", "monthly":
		return waba.Monthly, nil
	}
	return 0, fmt.Errorf("unknown model type %q", s)
}

// outputType parses the OutputType option.
func outputType(s string) (waba.OutputType, error) {
	switch strings.ToLower(s) {
	case "series":
		return waba.OutSeries, nil
	case "daily":
		return waba.OutSeriesDaily, nil
	case "monthly":
		return waba.OutSeriesMonthly, nil
	case "chars":
		return waba.OutChars, nil
	}
	return 0, fmt.Errorf("unknown output type %q", s)
}

// deType parses the DE.Type option.
func deType(s string) (waba.DEType, error) {
	switch strings.ToLower(s) {
	case "best_one_bin":
		return waba.BestOneBin, nil
	case "best_two_bin":
		return waba.BestTwoBin, nil
	case "rand_two_bin":
		return waba.RandTwoBin, nil
	}
	return 0, fmt.Errorf("unknown DE type %q", s)
}

// buildModel creates a model from the configuration: it reads the
// input series, optionally reloads parameters and fills a missing PET
// series.
func buildModel(cfg *Cfg) (*waba.Model, error) {
	typ, err := modelType(cfg.GetString("ModelType"))
	if err != nil {
		return nil, err
	}
	m := waba.NewModel(typ)

	inputVars, err := cast.ToStringSliceE(cfg.Get("InputVars"))
	if err != nil {
		return nil, fmt.Errorf("waba: reading 'InputVars': %v", err)
	}
	inputFile := os.ExpandEnv(cfg.GetString("InputFile"))
	logrus.Infof("reading input series from %s", inputFile)
	if err := m.ReadFile(inputFile, inputVars); err != nil {
		return nil, err
	}

	if paramsFile := os.ExpandEnv(cfg.GetString("ParamsFile")); paramsFile != "" {
		if err := m.ReadParamsFile(paramsFile); err != nil {
			return nil, err
		}
	}
	if area := cfg.GetFloat64("Area"); area > 0 {
		m.SetArea(area)
	}

	switch strings.ToLower(cfg.GetString("PET.Method")) {
	case "none", "":
	case "latitude":
		if err := m.EstimatePETLatitude(cfg.GetFloat64("PET.Latitude")); err != nil {
			return nil, err
		}
	case "tables":
		if err := m.EstimatePETTable(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown PET method %q", cfg.GetString("PET.Method"))
	}
	return m, nil
}

// writeResults writes the model output in the configured payload
// format.
func writeResults(cfg *Cfg, m *waba.Model) error {
	out, err := outputType(cfg.GetString("OutputType"))
	if err != nil {
		return err
	}
	outputFile := os.ExpandEnv(cfg.GetString("OutputFile"))
	logrus.Infof("writing results to %s", outputFile)
	return m.WriteFile(outputFile, out)
}

// RunModel simulates the water balance and writes the results.
func RunModel(cfg *Cfg) error {
	m, err := buildModel(cfg)
	if err != nil {
		return err
	}
	if err := m.Run(cfg.GetFloat64("InitGS")); err != nil {
		return err
	}
	return writeResults(cfg, m)
}

// Calibrate fits the model parameters with the configured method and
// writes the results.
func Calibrate(cfg *Cfg) error {
	m, err := buildModel(cfg)
	if err != nil {
		return err
	}
	crit, err := waba.CritTypeFromName(cfg.GetString("Calib.Crit"))
	if err != nil {
		return err
	}
	initGS := cfg.GetFloat64("InitGS")
	weightBF := cfg.GetFloat64("Calib.WeightBF")
	useWeights := cfg.GetBool("Calib.UseWeights")

	switch strings.ToLower(cfg.GetString("Calib.Method")) {
	case "gradient":
		crit2, err := waba.CritTypeFromName(cfg.GetString("Calib.Crit2"))
		if err != nil {
			return err
		}
		g := waba.NewGradientOptim(m)
		if err := g.Set(crit, crit2, weightBF, useWeights, cfg.GetInt("Calib.MaxIter"), initGS); err != nil {
			return err
		}
		m.Optim = g
	case "de":
		dt, err := deType(cfg.GetString("DE.Type"))
		if err != nil {
			return err
		}
		d := waba.NewDEOptim(m)
		if err := d.Set(crit, dt,
			cfg.GetInt("DE.NComp"), cfg.GetInt("DE.CompSize"),
			cfg.GetFloat64("DE.Cross"), cfg.GetFloat64("DE.MutatF"), cfg.GetFloat64("DE.MutatK"),
			cfg.GetInt("DE.MaxShuffles"), cfg.GetInt("DE.NGenComp"), cfg.GetInt("DE.EnsCount"),
			int64(cfg.GetInt("DE.Seed")), weightBF, useWeights, initGS); err != nil {
			return err
		}
		m.Optim = d
	default:
		return fmt.Errorf("unknown calibration method %q", cfg.GetString("Calib.Method"))
	}

	logrus.Infof("calibrating with %s", cfg.GetString("Calib.Method"))
	if err := m.Optim.Optimize(); err != nil {
		return err
	}
	logrus.Infof("calibration finished, criterion %g", m.Optim.OK())

	if ensFile := os.ExpandEnv(cfg.GetString("DE.EnsembleFile")); ensFile != "" && m.Optim.EnsembleCount() > 0 {
		if err := m.Optim.Write(ensFile); err != nil {
			return err
		}
	}
	return writeResults(cfg, m)
}

// Chars simulates the water balance and writes the monthly
// characteristics.
func Chars(cfg *Cfg) error {
	m, err := buildModel(cfg)
	if err != nil {
		return err
	}
	if err := m.Run(cfg.GetFloat64("InitGS")); err != nil {
		return err
	}
	outputFile := os.ExpandEnv(cfg.GetString("OutputFile"))
	logrus.Infof("writing monthly characteristics to %s", outputFile)
	return m.WriteFile(outputFile, waba.OutChars)
}
