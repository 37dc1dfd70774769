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

package waba

import (
	"fmt"
	"strconv"
)

// Calibratable is the contract between the optimizers and the thing
// being calibrated. Both a single Model and a System of catchments
// implement it; the optimizers are written against this interface
// only.
type Calibratable interface {
	// ParamCount returns the number of calibrated parameters.
	ParamCount() int
	// FixedParamCount returns the number of parameters held fixed in
	// the second phase of gradient calibration.
	FixedParamCount() int
	// Param and SetParam access one value of one parameter.
	Param(par int, kind ParamKind) float64
	SetParam(par int, kind ParamKind, value float64)
	// ParamName returns the name of the parameter at the given position.
	ParamName(par int) string
	// CheckCalibInputs verifies that the observations needed for
	// calibration are installed.
	CheckCalibInputs(weightBF bool) error
	// SumWeights recomputes the cached sum of calibration weights.
	SumWeights()
	// Run simulates the whole time series.
	Run(initGS float64) error
	// Crit evaluates the calibration criterion on the last run.
	Crit(ct CritType, weightBF float64, useWeights bool) (float64, error)
}

// Optimizer is a calibration method. The two implementations are the
// gradient (coordinate-descent) optimizer and the SCE-DE optimizer.
type Optimizer interface {
	// Optimize calibrates the parameters of the target.
	Optimize() error
	// OK returns the resulting criterion value, complemented for NS
	// and LNNS.
	OK() float64
	// Settings returns the method settings as name-value strings.
	Settings() map[string]string
	// EnsembleCount returns the number of ensemble runs, zero for
	// methods without ensembles.
	EnsembleCount() int
	// EnsembleResults returns one row of best parameters, criterion
	// and model evaluations per ensemble run, or nil.
	EnsembleResults() [][]float64
	// Write writes the calibration results to a file.
	Write(fileName string) error
}

// optimSettings holds the settings and working state shared by both
// optimization methods.
type optimSettings struct {
	target Calibratable

	lower, upper []float64 // parameter limits captured at init
	parCount     int

	critType   CritType
	weightBF   float64
	useWeights bool
	initGS     float64
	ok         float64
}

// set validates and stores the general calibration options.
func (o *optimSettings) set(ct CritType, weightBF float64, useWeights bool, initGS float64) error {
	if weightBF < 0 || weightBF > 1 {
		return fmt.Errorf("weight for baseflow should be between 0 and 1")
	}
	if initGS < 0 {
		return fmt.Errorf("initial groundwater storage must be positive")
	}
	o.critType = ct
	o.weightBF = weightBF
	o.useWeights = useWeights
	o.initGS = initGS
	return nil
}

// init captures the parameter limits and checks the calibration
// prerequisites. It is called immediately before optimization.
func (o *optimSettings) init() error {
	n := o.target.ParamCount()
	if n == 0 {
		return fmt.Errorf("number of parameters cannot be zero")
	}
	o.parCount = n
	o.lower = make([]float64, n)
	o.upper = make([]float64, n)

	if o.useWeights {
		o.target.SumWeights()
	}
	if err := o.target.CheckCalibInputs(o.weightBF > numericEps); err != nil {
		return err
	}
	for p := 0; p < n; p++ {
		o.lower[p] = o.target.Param(p, Lower)
		o.upper[p] = o.target.Param(p, Upper)
	}
	return nil
}

// OK returns the resulting criterion value.
func (o *optimSettings) OK() float64 { return o.ok }

// settings returns the shared settings as name-value strings.
func (o *optimSettings) settings() map[string]string {
	return map[string]string{
		"crit_value":  strconv.FormatFloat(o.ok, 'g', 15, 64),
		"weight_BF":   strconv.FormatFloat(o.weightBF, 'g', -1, 64),
		"use_weights": strconv.FormatBool(o.useWeights),
		"init_GS":     strconv.FormatFloat(o.initGS, 'g', -1, 64),
	}
}
