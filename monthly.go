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

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// beginHydrolYear and endHydrolYear delimit the hydrological year
// (November through October).
const (
	beginHydrolYear = 11
	endHydrolYear   = 10
)

// calcMonthlyVars aggregates the daily series into monthly values.
// Partial months at both ends of the series are excluded. States and
// meteorological quantities (T, H, SW, SS, GS, DS) are averaged over
// the days of the month, everything else is summed.
func (m *Model) calcMonthlyVars() error {
	initDate, lastDate := m.Calen[0], m.Calen[m.timeSteps-1]
	effInit, effLast := initDate, lastDate

	months := (lastDate.Year-initDate.Year-1)*monthsInYear + lastDate.Month + (13 - initDate.Month)
	if initDate.Day != 1 {
		months--
		effInit.Increase(Month)
		effInit.Day = 1
	}
	if lastDate.Before(effInit) {
		return fmt.Errorf("too short time-series to calculate monthly values of variables")
	}
	tsInit := 0
	for m.Calen[tsInit] != effInit {
		tsInit++
	}

	next := lastDate
	next.Increase(Day)
	if next.Day != 1 {
		months--
		effLast.Day = 1
		effLast.Decrease(Day)
	}
	if effLast.Before(effInit) {
		return fmt.Errorf("too short time-series to calculate monthly values of variables")
	}
	tsLast := m.timeSteps - 1
	for m.Calen[tsLast] != effLast {
		tsLast--
	}

	m.months = months
	m.varMon = make([][]float64, months)
	m.calenMon = make([]Date, months)
	for mo := range m.varMon {
		m.varMon[mo] = make([]float64, m.VarCount())
	}

	for v := 0; v < m.VarCount(); v++ {
		ts := tsInit
		for mo := 0; mo < months; mo++ {
			month := m.Calen[ts].Month
			sum := 0.0
			for ts <= tsLast && m.Calen[ts].Month == month {
				sum += m.Var[ts][v]
				ts++
			}
			m.calenMon[mo] = m.Calen[ts-1]
			m.calenMon[mo].Day = 1

			switch v {
			case T, H, SW, SS, GS, DS:
				m.varMon[mo][v] = sum / float64(m.Calen[ts-1].Day)
			default:
				m.varMon[mo][v] = sum
			}
		}
	}
	return nil
}

// calcYears finds the first timestep of a complete hydrological year
// and the number of complete hydrological years in the given monthly
// calendar.
func (m *Model) calcYears(calen []Date, months int) {
	noYear := false

	m.initM = 0
	for calen[m.initM].Month != beginHydrolYear {
		if m.initM == months-1 {
			noYear = true
			break
		}
		m.initM++
	}

	lastM := months - 1
	if !noYear {
		for calen[lastM].Month != endHydrolYear {
			if lastM == 0 {
				noYear = true
				break
			}
			lastM--
		}
	}
	if noYear {
		m.years = 0
	} else {
		m.years = (lastM - m.initM + 1) / monthsInYear
	}
}

// calcCharMonthly computes the minimum, mean and maximum of every
// variable for each of the twelve months across the complete
// hydrological years. With no complete year all characteristics are
// zero.
func (m *Model) calcCharMonthly() {
	varSer := m.Var
	if m.typ == Daily {
		varSer = m.varMon
	}

	m.charMon = make([][]float64, monthsInYear)
	for mo := range m.charMon {
		m.charMon[mo] = make([]float64, m.VarCount()*3)
	}
	if m.years == 0 {
		m.Log.Warn("too short time-series to calculate monthly chars (set to 0)")
		return
	}

	values := make([]float64, m.years)
	for v := 0; v < m.VarCount(); v++ {
		for mo := 0; mo < monthsInYear; mo++ {
			for y := 0; y < m.years; y++ {
				values[y] = varSer[m.initM+y*monthsInYear+mo][v]
			}
			m.charMon[mo][v*3] = floats.Min(values)
			m.charMon[mo][v*3+1] = stat.Mean(values, nil)
			m.charMon[mo][v*3+2] = floats.Max(values)
		}
	}
}

// CalcChars computes the monthly characteristics when they are not
// up to date. For daily models the monthly series is aggregated first.
func (m *Model) CalcChars() error {
	if m.areChars {
		return nil
	}
	if m.typ == Daily {
		if err := m.calcMonthlyVars(); err != nil {
			return err
		}
		m.calcYears(m.calenMon, m.months)
	} else {
		m.calcYears(m.Calen, m.timeSteps)
	}
	m.calcCharMonthly()
	m.areChars = true
	return nil
}

// Chars returns the monthly characteristics, computing them first when
// needed. Rows are the twelve months of the hydrological year starting
// in November; columns hold minimum, mean and maximum per variable.
func (m *Model) Chars() ([][]float64, error) {
	if err := m.CalcChars(); err != nil {
		return nil, err
	}
	return m.charMon, nil
}

// MonthlySeries returns the monthly series of a daily model, or the
// variable matrix itself for a monthly model.
func (m *Model) MonthlySeries() ([][]float64, []Date, error) {
	if m.typ == Monthly {
		return m.Var, m.Calen, nil
	}
	if err := m.calcMonthlyVars(); err != nil {
		return nil, nil, err
	}
	return m.varMon, m.calenMon, nil
}
