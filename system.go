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

	"github.com/sirupsen/logrus"
)

// System calibrates several catchments under one optimizer. It
// implements Calibratable by virtualizing the parameter index space:
// for N qualifying catchments of k parameters each, parameter i maps
// to catchment i/k, parameter i%k.
type System struct {
	Catchments []*Model
	Optim      Optimizer
	Log        *logrus.Logger

	opt              []*Model // catchments qualifying for optimization
	parCountCatch    int
	parFixCountCatch int
}

// NewSystem creates an empty catchment system.
func NewSystem() *System {
	return &System{Log: logrus.StandardLogger()}
}

// Add appends a catchment to the system.
func (s *System) Add(m *Model) {
	s.Catchments = append(s.Catchments, m)
}

// Remove drops the catchment at the given position.
func (s *System) Remove(cat int) error {
	if cat < 0 || cat >= len(s.Catchments) {
		return fmt.Errorf("required catchment does not exist in the system")
	}
	s.Catchments = append(s.Catchments[:cat], s.Catchments[cat+1:]...)
	return nil
}

// OptimCount returns the number of catchments qualifying for
// optimization after the last PrepareOptim.
func (s *System) OptimCount() int { return len(s.opt) }

// OptimCatchment returns a qualifying catchment.
func (s *System) OptimCatchment(cat int) (*Model, error) {
	if cat < 0 || cat >= len(s.opt) {
		return nil, fmt.Errorf("required catchment does not exist in the system")
	}
	return s.opt[cat], nil
}

// EstimatePET fills the PET series of every catchment using the
// vegetation-zone tables.
func (s *System) EstimatePET() error {
	for _, m := range s.Catchments {
		if err := m.EstimatePETTable(); err != nil {
			return err
		}
	}
	return nil
}

// PrepareOptim selects the catchments taking part in optimization: the
// first one with a positive area is the reference, and others qualify
// when their area is set and their model type, series length and first
// date match it. The rest are skipped with a warning.
func (s *System) PrepareOptim() {
	s.opt = s.opt[:0]
	var ref *Model
	for c, m := range s.Catchments {
		if m.Area() <= numericEps {
			s.Log.Warnf("catchment %d will not be used for optimization because its area has not been set", c+1)
			continue
		}
		if ref == nil {
			ref = m
			s.parCountCatch = m.ParamCount()
			s.parFixCountCatch = m.FixedParamCount()
			m.systemOptim = true
			s.opt = append(s.opt, m)
			continue
		}
		if m.Type() != ref.Type() || m.TimeSteps() != ref.TimeSteps() || m.Calen[0] != ref.Calen[0] {
			s.Log.Warnf("catchment %d has different model type or data period and will not be used for optimization", c+1)
			continue
		}
		m.systemOptim = true
		s.opt = append(s.opt, m)
	}
}

// Optimize runs the configured optimization over the qualifying
// catchments.
func (s *System) Optimize() error {
	if len(s.opt) == 0 {
		return fmt.Errorf("system contains no catchment")
	}
	if s.Optim == nil {
		return fmt.Errorf("optimization is not set for the system")
	}
	return s.Optim.Optimize()
}

// ParamCount returns the number of parameters over all qualifying
// catchments.
func (s *System) ParamCount() int { return s.parCountCatch * len(s.opt) }

// FixedParamCount returns the number of fixed parameters over all
// qualifying catchments.
func (s *System) FixedParamCount() int { return s.parFixCountCatch * len(s.opt) }

// Param returns one value of a virtualized parameter.
func (s *System) Param(par int, kind ParamKind) float64 {
	return s.opt[par/s.parCountCatch].Param(par%s.parCountCatch, kind)
}

// SetParam sets one value of a virtualized parameter.
func (s *System) SetParam(par int, kind ParamKind, value float64) {
	s.opt[par/s.parCountCatch].SetParam(par%s.parCountCatch, kind, value)
}

// ParamName returns the name of a virtualized parameter.
func (s *System) ParamName(par int) string {
	return s.opt[0].ParamName(par % s.parCountCatch)
}

// SumWeights recomputes the weight sums of all qualifying catchments.
func (s *System) SumWeights() {
	for _, m := range s.opt {
		m.SumWeights()
	}
}

// CheckCalibInputs verifies the calibration inputs of all qualifying
// catchments.
func (s *System) CheckCalibInputs(weightBF bool) error {
	for _, m := range s.opt {
		if err := m.CheckCalibInputs(weightBF); err != nil {
			return err
		}
	}
	return nil
}

// Run simulates all qualifying catchments with the same initial
// groundwater storage.
func (s *System) Run(initGS float64) error {
	for _, m := range s.opt {
		if err := m.Run(initGS); err != nil {
			return err
		}
	}
	return nil
}

// Crit returns the mean criterion over the qualifying catchments. For
// a system of two catchments it adds a penalty of 0.1 per timestep at
// which the second catchment's modelled flow is below the first's.
func (s *System) Crit(ct CritType, weightBF float64, useWeights bool) (float64, error) {
	sum := 0.0
	for _, m := range s.opt {
		ok, err := m.Crit(ct, weightBF, useWeights)
		if err != nil {
			return 0, err
		}
		sum += ok
	}
	negFlows := 0
	if len(s.opt) == 2 {
		for ts := 0; ts < s.opt[1].TimeSteps(); ts++ {
			if s.opt[1].FlowM3S(ts, RM)-s.opt[0].FlowM3S(ts, RM) < 0 {
				negFlows++
			}
		}
	}
	return (sum + 0.1*float64(negFlows)) / float64(len(s.opt)), nil
}
