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
	"math"
	"testing"
)

// different reports whether a and b differ by more than tolerance,
// relative to the magnitude of a.
func different(a, b, tolerance float64) bool {
	if a == b {
		return false
	}
	scale := math.Abs(a)
	if scale == 0 {
		scale = 1
	}
	return math.Abs(a-b)/scale > tolerance
}

// constantSeries returns a series of the given length filled with one
// value.
func constantSeries(n int, value float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = value
	}
	return s
}

func TestSetCalendarMonthlyClamp(t *testing.T) {
	m := NewModel(Monthly)
	m.InitVars(4)
	m.SetCalendar(Date{1990, 1, 31})

	want := []Date{{1990, 1, 31}, {1990, 2, 28}, {1990, 3, 31}, {1990, 4, 30}}
	for ts, w := range want {
		if m.Calen[ts] != w {
			t.Errorf("timestep %d: got %v, want %v", ts, m.Calen[ts], w)
		}
	}
}

func TestVarPos(t *testing.T) {
	daily := NewModel(Daily)
	if pos, err := daily.VarPos("DS"); err != nil || pos != DS {
		t.Errorf("DS lookup: pos %d, err %v", pos, err)
	}
	if _, err := daily.VarPos("I"); err == nil {
		t.Error("I should not exist in a daily model")
	}
	monthly := NewModel(Monthly)
	if pos, err := monthly.VarPos("I"); err != nil || pos != I {
		t.Errorf("I lookup: pos %d, err %v", pos, err)
	}
	if _, err := monthly.VarPos("POD"); err == nil {
		t.Error("POD should not exist without water use")
	}
	monthly.SetWaterUse(true)
	if pos, err := monthly.VarPos("POD"); err != nil || pos != POD {
		t.Errorf("POD lookup with water use: pos %d, err %v", pos, err)
	}
}

func TestSetWaterUsePreservesInputs(t *testing.T) {
	m := NewModel(Daily)
	m.InitVars(3)
	m.SetCalendar(Date{1990, 1, 1})
	if err := m.SetInput("P", []float64{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	m.SetWaterUse(true)
	if m.VarCount() != varCountBase+varCountWaterUse {
		t.Errorf("variable count = %d", m.VarCount())
	}
	if !m.IsInput[P] {
		t.Error("P lost its input flag")
	}
	for ts, want := range []float64{1, 2, 3} {
		if m.Var[ts][P] != want {
			t.Errorf("P[%d] = %g, want %g", ts, m.Var[ts][P], want)
		}
	}
	m.SetWaterUse(false)
	if m.VarCount() != varCountBase {
		t.Errorf("variable count = %d", m.VarCount())
	}
	if m.Var[1][P] != 2 {
		t.Errorf("P[1] = %g after disabling water use", m.Var[1][P])
	}
}

func TestChangeType(t *testing.T) {
	m := NewModel(Daily)
	if m.ParamCount() != 6 || m.FixedParamCount() != 3 {
		t.Errorf("daily parameter counts: %d, %d", m.ParamCount(), m.FixedParamCount())
	}
	m.ChangeType()
	if m.Type() != Monthly {
		t.Error("type did not change")
	}
	if m.ParamCount() != 8 || m.FixedParamCount() != 4 {
		t.Errorf("monthly parameter counts: %d, %d", m.ParamCount(), m.FixedParamCount())
	}
	if m.ParamName(Dgw) != "Dgw" {
		t.Errorf("parameter table not reinitialized: %s", m.ParamName(Dgw))
	}
}

func TestSetParams(t *testing.T) {
	m := NewModel(Daily)
	m.SetParams(map[string]float64{"Spa": 150, "Grd": 0.1}, Curr)
	if m.Params[SpaD].Value != 150 || m.Params[GrdD].Value != 0.1 {
		t.Errorf("got Spa=%g Grd=%g", m.Params[SpaD].Value, m.Params[GrdD].Value)
	}
	// Unknown names only warn.
	m.SetParams(map[string]float64{"Dgw": 10}, Curr)
}

func TestFlowConversion(t *testing.T) {
	daily := NewModel(Daily)
	daily.SetArea(86.4)
	daily.InitVars(1)
	daily.Var[0][RM] = 1
	if different(daily.FlowM3S(0, RM), 1, 1e-12) {
		t.Errorf("daily flow = %g, want 1", daily.FlowM3S(0, RM))
	}
	monthly := NewModel(Monthly)
	monthly.SetArea(2592)
	monthly.InitVars(1)
	monthly.Var[0][RM] = 1
	if different(monthly.FlowM3S(0, RM), 1, 1e-12) {
		t.Errorf("monthly flow = %g, want 1", monthly.FlowM3S(0, RM))
	}
}
