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
	"math"

	"gonum.org/v1/gonum/stat"
)

// numericEps is the machine epsilon of float64.
var numericEps = math.Nextafter(1, 2) - 1

// CritType is the goodness-of-fit criterion used for calibration. All
// criteria are minimized; NS and LNNS are evaluated as their residual
// to 1 and complemented when reported.
type CritType int

// Calibration criteria.
const (
	MSE CritType = iota // mean squared error
	MAE                 // mean absolute error
	NS                  // Nash-Sutcliffe efficiency
	LNNS                // Nash-Sutcliffe efficiency of log-transformed series
	MAPE                // mean absolute percentage error
)

// critCount is the number of calibration criteria.
const critCount = 5

var critNames = [critCount]string{"MSE", "MAE", "NS", "LNNS", "MAPE"}

func (c CritType) String() string { return critNames[c] }

// CritTypeFromName returns the criterion with the given name.
func CritTypeFromName(name string) (CritType, error) {
	for i, n := range critNames {
		if n == name {
			return CritType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown criterion %q", name)
}

// complemented reports whether the criterion is reported as its
// complement to 1.
func (c CritType) complemented() bool { return c == NS || c == LNNS }

// SumWeights recomputes the cached sum of the calibration weights.
func (m *Model) SumWeights() {
	m.sumWeights = m.VarSum(WEI)
}

// CheckCalibInputs verifies that the observations needed for
// calibration are installed.
func (m *Model) CheckCalibInputs(weightBF bool) error {
	if m.Params == nil {
		return fmt.Errorf("parameters are not initialized for optimization")
	}
	if m.IsInput == nil {
		return fmt.Errorf("input variables for optimization are missing")
	}
	if !m.IsInput[R] {
		return fmt.Errorf("observed runoff needed for optimization is missing")
	}
	if weightBF && !m.IsInput[B] {
		return fmt.Errorf("observed baseflow needed for optimization is missing")
	}
	return nil
}

// critVar evaluates the criterion between an observed and a modelled
// variable, optionally weighting timesteps by WEI. For NS and LNNS the
// residual to 1 is returned.
func (m *Model) critVar(ct CritType, varObs, varMod int, useWeights bool) (float64, error) {
	var mean float64
	if ct == NS || ct == LNNS {
		obs := make([]float64, m.timeSteps)
		for ts := 0; ts < m.timeSteps; ts++ {
			if ct == NS {
				obs[ts] = m.Var[ts][varObs]
			} else {
				obs[ts] = math.Log(m.Var[ts][varObs])
			}
		}
		mean = stat.Mean(obs, nil)
	}

	var ok, cit, jmen float64
	for ts := 0; ts < m.timeSteps; ts++ {
		weight := 1.0
		if useWeights {
			if math.Abs(m.Var[ts][WEI]) < numericEps {
				continue
			}
			weight = m.Var[ts][WEI] / (m.sumWeights / float64(m.timeSteps))
		}

		switch ct {
		case MSE:
			d := m.Var[ts][varObs] - m.Var[ts][varMod]
			ok += weight * d * d
		case MAE:
			ok += weight * math.Abs(m.Var[ts][varObs]-m.Var[ts][varMod])
		case MAPE:
			ok += weight * math.Abs(m.Var[ts][varObs]-m.Var[ts][varMod]) / m.Var[ts][varObs]
		case NS:
			d := m.Var[ts][varObs] - m.Var[ts][varMod]
			cit += weight * d * d
			e := m.Var[ts][varObs] - mean
			jmen += e * e
		case LNNS:
			d := math.Log(m.Var[ts][varObs]) - math.Log(m.Var[ts][varMod])
			cit += weight * d * d
			e := math.Log(m.Var[ts][varObs]) - mean
			jmen += e * e
		}
	}

	switch ct {
	case MSE, MAE, MAPE:
		ok /= float64(m.timeSteps)
	case NS, LNNS:
		ok = cit / jmen
	}

	// A zero modelled value drives LNNS to infinity, a zero observed
	// value to NaN.
	if math.IsInf(ok, 0) || math.IsNaN(ok) {
		return 0, fmt.Errorf("optimization criterion value is not finite (probably due to zero observed or modelled value)")
	}
	return ok, nil
}

// Crit evaluates the calibration criterion between observed and
// modelled runoff, blended with the baseflow criterion when weightBF
// is positive.
func (m *Model) Crit(ct CritType, weightBF float64, useWeights bool) (float64, error) {
	ok, err := m.critVar(ct, R, RM, useWeights)
	if err != nil {
		return 0, err
	}
	if weightBF > numericEps {
		okBF, err := m.critVar(ct, B, BF, useWeights)
		if err != nil {
			return 0, err
		}
		ok = (1-weightBF)*ok + weightBF*okBF
	}
	return ok, nil
}
