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
)

// tKrit is the critical temperature for the winter balance of monthly
// models [°C].
const tKrit = -8

// Season is the seasonal mode selecting the balance branch of one
// timestep.
type Season int

// Seasonal modes.
const (
	Winter Season = iota
	Melt
	Summer
)

func (s Season) String() string {
	switch s {
	case Winter:
		return "winter"
	case Melt:
		return "melt"
	default:
		return "summer"
	}
}

// State captures the model reservoirs at one timestep so a run can be
// suspended there and resumed later. A State is a plain value
// independent of the model that produced it.
type State struct {
	Season Season
	Date   Date
	Step   int
	Snow   float64 // snow storage [mm]
	Soil   float64 // soil water storage [mm]
	Ground float64 // groundwater storage [mm]
	Direct float64 // direct-runoff storage [mm], daily models only
}

// checkRunInputs verifies that everything a run needs is installed.
func (m *Model) checkRunInputs() error {
	if m.Var == nil {
		return fmt.Errorf("variables are not initialized for model run")
	}
	if m.Params == nil {
		return fmt.Errorf("parameters are not initialized for model run")
	}
	if !m.IsInput[P] || !m.IsInput[T] || !m.IsInput[PET] {
		return fmt.Errorf("variables needed for model run are not complete (P, T, PET required)")
	}
	if m.waterUse && !(m.IsInput[POD] && m.IsInput[POV] && m.IsInput[PVN] && m.IsInput[VYP]) {
		return fmt.Errorf("variables of water use needed for model run are not complete (POD, POV, PVN, VYP required)")
	}
	return nil
}

// Run simulates the whole time series starting from the default state:
// previous season summer, empty snow and direct-runoff storages, full
// soil storage and the given groundwater storage.
func (m *Model) Run(initGS float64) error {
	return m.run(initGS, nil, nil)
}

// GetState runs the model from the start and captures the reservoir
// state at the given date.
func (m *Model) GetState(initGS float64, d Date) (State, error) {
	if m.timeSteps == 0 || d.Before(m.Calen[0]) || d.After(m.Calen[m.timeSteps-1]) {
		return State{}, fmt.Errorf("date %v for getting state is out of data period", d)
	}
	capture := State{Date: d, Step: -1}
	for ts := 0; ts < m.timeSteps; ts++ {
		if m.Calen[ts] == d {
			capture.Step = ts
			break
		}
	}
	if capture.Step < 0 {
		return State{}, fmt.Errorf("date %v for getting state is not contained in time series", d)
	}
	if err := m.run(initGS, &capture, nil); err != nil {
		return State{}, err
	}
	return capture, nil
}

// RunFromState resumes simulation at the timestep after the state's
// date, taking the previous reservoir levels from the state.
func (m *Model) RunFromState(s State) error {
	// The state at the last timestep leaves nothing to simulate.
	if m.timeSteps < 2 || s.Date.Before(m.Calen[0]) || s.Date.After(m.Calen[m.timeSteps-2]) {
		return fmt.Errorf("date %v for setting state is out of data period (or last time in the period)", s.Date)
	}
	s.Step = -1
	for ts := 0; ts < m.timeSteps-1; ts++ {
		if m.Calen[ts] == s.Date {
			s.Step = ts
			break
		}
	}
	if s.Step < 0 {
		return fmt.Errorf("date %v for setting state is not contained in time series", s.Date)
	}
	return m.run(0, nil, &s)
}

// run is the seasonal state machine. When capture is non-nil the state
// at capture.Step is written into it; when resume is non-nil the run
// starts at resume.Step+1 with previous values taken from the state.
func (m *Model) run(initGS float64, capture, resume *State) error {
	if err := m.checkRunInputs(); err != nil {
		return err
	}
	m.areChars = false

	season := Summer
	var prevSeason Season
	var prevSnow, prevSoil, prevDS, prevGS float64

	tsBegin := 0
	if resume != nil {
		tsBegin = resume.Step + 1
	}

	for ts := tsBegin; ts < m.timeSteps; ts++ {
		if ts == tsBegin {
			if resume != nil {
				prevSeason = resume.Season
				prevSnow = resume.Snow
				prevSoil = resume.Soil
				prevDS = resume.Direct
				prevGS = resume.Ground
			} else {
				prevSeason = Summer
				prevSnow = 0
				prevSoil = m.Params[Spa].Value
				prevDS = 0
				prevGS = initGS
			}
		} else {
			prevSeason = season
			prevSnow = m.Var[ts-1][SS]
			prevSoil = m.Var[ts-1][SW]
			prevGS = m.Var[ts-1][GS]
			if m.typ == Daily {
				prevDS = m.Var[ts-1][DS]
			} else {
				prevDS = 0
			}
		}

		if m.Var[ts][T] >= 0 {
			// Snow left over from a winter or melting step keeps the
			// melting mode, otherwise the step is a summer one.
			if prevSeason == Winter || (prevSeason == Melt && prevSnow > 0) {
				season = Melt
			} else {
				season = Summer
			}
		} else {
			season = Winter
		}

		switch m.typ {
		case Daily:
			switch season {
			case Melt:
				m.meltDaily(ts, prevSnow)
				m.winterBalance(ts, prevSoil)
			case Summer:
				m.summerBalance(ts, prevSoil)
			case Winter:
				m.winterDaily(ts, prevSnow)
				m.winterBalance(ts, prevSoil)
			}
			m.divideDaily(ts, season, prevDS, prevGS)
		case Monthly:
			switch season {
			case Melt:
				m.meltMonthly(ts, prevSnow)
				m.winterBalance(ts, prevSoil)
			case Summer:
				m.summerBalance(ts, prevSoil)
			case Winter:
				m.winterMonthly(ts, prevSnow)
				m.winterBalance(ts, prevSoil)
			}
			m.divideMonthly(ts, season, prevGS)
		}

		if capture != nil && ts == capture.Step {
			capture.Season = season
			capture.Snow = m.Var[ts][SS]
			capture.Soil = m.Var[ts][SW]
			capture.Ground = m.Var[ts][GS]
			if m.typ == Daily {
				capture.Direct = m.Var[ts][DS]
			}
		}
	}
	return nil
}

// winterDaily is the daily winter surface balance: precipitation joins
// the snowpack and evaporation draws from it.
func (m *Model) winterDaily(ts int, prevSnow float64) {
	m.Var[ts][INF] = 0
	m.Var[ts][SS] = prevSnow + m.Var[ts][P] - m.Var[ts][PET]
	if m.Var[ts][SS] < 0 {
		m.Var[ts][SS] = 0
		m.Var[ts][ET] = prevSnow + m.Var[ts][P]
	} else {
		m.Var[ts][ET] = m.Var[ts][PET]
	}
}

// winterMonthly is the monthly winter surface balance. Above the
// critical temperature part of the pack releases as liquid water,
// controlled by Dgw.
func (m *Model) winterMonthly(ts int, prevSnow float64) {
	m.Var[ts][DR] = 0
	m.Var[ts][ET] = m.Var[ts][PET]

	if m.Var[ts][T] > tKrit {
		pot := (m.Var[ts][T] - tKrit) * m.Params[Dgw].Value
		act := prevSnow + m.Var[ts][P] - m.Var[ts][PET]
		if act > pot {
			m.Var[ts][INF] = pot
			m.Var[ts][SS] = act - pot
		} else {
			m.Var[ts][SS] = 0
			if act > 0 {
				m.Var[ts][INF] = act
			} else {
				m.Var[ts][INF] = 0
				m.Var[ts][ET] = m.Var[ts][P] + prevSnow
			}
		}
	} else {
		m.Var[ts][SS] = prevSnow + m.Var[ts][P] - m.Var[ts][PET]
		m.Var[ts][INF] = 0
	}
}

// meltDaily melts snow proportionally to temperature; melt water and
// excess precipitation infiltrate.
func (m *Model) meltDaily(ts int, prevSnow float64) {
	var melt float64
	pot := m.Var[ts][T] * m.Params[DgmD].Value
	if pot >= prevSnow {
		melt = prevSnow
		m.Var[ts][SS] = 0
	} else {
		melt = pot
		m.Var[ts][SS] = prevSnow - melt
	}

	if m.Var[ts][P] > m.Var[ts][PET] {
		m.Var[ts][INF] = melt + m.Var[ts][P] - m.Var[ts][PET]
		m.Var[ts][ET] = m.Var[ts][PET]
	} else {
		m.Var[ts][INF] = melt
		m.Var[ts][ET] = m.Var[ts][P]
	}
}

// meltMonthly is the monthly melting balance with the same three-way
// dispatch as the monthly winter branch.
func (m *Model) meltMonthly(ts int, prevSnow float64) {
	m.Var[ts][DR] = 0
	m.Var[ts][ET] = m.Var[ts][PET]

	pot := m.Var[ts][T]*m.Params[Dgm].Value + m.Var[ts][P]
	act := prevSnow + m.Var[ts][P] - m.Var[ts][PET]
	if act >= pot {
		m.Var[ts][INF] = pot
		m.Var[ts][SS] = act - pot
	} else {
		m.Var[ts][SS] = 0
		if act > 0 {
			m.Var[ts][INF] = act
		} else {
			m.Var[ts][INF] = 0
			m.Var[ts][ET] = m.Var[ts][P] + prevSnow
		}
	}
}

// winterBalance is the soil balance after the winter and melting
// branches: infiltration fills the soil, overflow percolates.
func (m *Model) winterBalance(ts int, prevSoil float64) {
	m.Var[ts][SW] = prevSoil + m.Var[ts][INF]
	if m.Var[ts][SW] >= m.Params[Spa].Value {
		m.Var[ts][PERC] = m.Var[ts][SW] - m.Params[Spa].Value
		m.Var[ts][SW] = m.Params[Spa].Value
	} else {
		m.Var[ts][PERC] = 0
	}
}

// summerBalance is the combined surface and soil balance without snow.
// When infiltration does not cover the evaporation demand, the soil
// storage drains exponentially.
func (m *Model) summerBalance(ts int, prevSoil float64) {
	m.Var[ts][SS] = 0

	switch m.typ {
	case Daily:
		m.Var[ts][DR] = 0
	case Monthly:
		m.Var[ts][DR] = m.Params[Alf].Value * m.Var[ts][P] * m.Var[ts][P] * prevSoil / m.Params[Spa].Value
		if m.Var[ts][DR] > m.Var[ts][P] {
			m.Var[ts][DR] = m.Var[ts][P]
		}
	}
	m.Var[ts][INF] = m.Var[ts][P] - m.Var[ts][DR]
	if m.Var[ts][INF] < m.Var[ts][PET] {
		m.Var[ts][SW] = prevSoil * math.Exp((m.Var[ts][INF]-m.Var[ts][PET])/m.Params[Spa].Value)
		m.Var[ts][ET] = m.Var[ts][INF] + prevSoil - m.Var[ts][SW]
		m.Var[ts][PERC] = 0
	} else {
		m.Var[ts][ET] = m.Var[ts][PET]
		m.Var[ts][SW] = prevSoil + m.Var[ts][INF] - m.Var[ts][ET]
		if m.Var[ts][SW] > m.Params[Spa].Value {
			m.Var[ts][PERC] = m.Var[ts][SW] - m.Params[Spa].Value
			m.Var[ts][SW] = m.Params[Spa].Value
		} else {
			m.Var[ts][PERC] = 0
		}
	}
}

// divideDaily splits percolation between direct runoff and groundwater
// recharge and routes both reservoirs.
func (m *Model) divideDaily(ts int, season Season, prevDS, prevGS float64) {
	switch season {
	case Melt:
		m.Var[ts][DR] = m.Params[MecD].Value * m.Var[ts][PERC] * m.Var[ts][PERC]
		if m.Var[ts][DR] > m.Var[ts][PERC] {
			m.Var[ts][DR] = m.Var[ts][PERC]
		}
		m.Var[ts][RC] = m.Var[ts][PERC] - m.Var[ts][DR]
	case Summer:
		m.Var[ts][DR] = m.Params[SocD].Value * m.Var[ts][PERC] * m.Var[ts][PERC]
		if m.Var[ts][DR] > m.Var[ts][PERC] {
			m.Var[ts][DR] = m.Var[ts][PERC]
		}
		m.Var[ts][RC] = m.Var[ts][PERC] - m.Var[ts][DR]
	case Winter:
		m.Var[ts][DR] = 0
		m.Var[ts][RC] = 0
	}
	if m.Var[ts][RC] < 0 {
		m.Var[ts][RC] = 0
	}

	m.Var[ts][BF] = m.Params[GrdD].Value * prevGS
	m.Var[ts][GS] = m.Var[ts][RC] + prevGS - m.Var[ts][BF]
	m.Var[ts][DS] = m.Var[ts][DR] + (1-m.Params[AlfD].Value)*prevDS
	m.Var[ts][DR] = m.Params[AlfD].Value * m.Var[ts][DS]
	m.Var[ts][RM] = m.Var[ts][BF] + m.Var[ts][DR]

	m.includeWaterUse(ts)
}

// divideMonthly splits percolation by the seasonal partition
// coefficient and routes the groundwater reservoir.
func (m *Model) divideMonthly(ts int, season Season, prevGS float64) {
	var coef float64
	switch season {
	case Melt:
		coef = m.Params[Mec].Value
	case Winter:
		coef = m.Params[Wic].Value
	case Summer:
		coef = m.Params[Soc].Value
	}
	m.Var[ts][RC] = m.Var[ts][PERC] * (1 - coef)
	m.Var[ts][BF] = m.Params[Grd].Value * prevGS
	m.Var[ts][GS] = m.Var[ts][RC] + prevGS - m.Var[ts][BF]
	m.Var[ts][I] = coef * m.Var[ts][PERC]
	m.Var[ts][RM] = m.Var[ts][BF] + m.Var[ts][I] + m.Var[ts][DR]

	m.includeWaterUse(ts)
}

// includeWaterUse applies withdrawals and releases to the groundwater
// storage and total runoff, flooring both at zero.
func (m *Model) includeWaterUse(ts int) {
	if !m.waterUse {
		return
	}
	m.Var[ts][GS] -= m.Var[ts][POD]
	m.Var[ts][RM] -= m.Var[ts][POV] - m.Var[ts][PVN] + m.Var[ts][VYP]
	if m.Var[ts][GS] < 0 {
		m.Var[ts][GS] = 0
	}
	if m.Var[ts][RM] < 0 {
		m.Var[ts][RM] = 0
	}
}
