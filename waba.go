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

// Package waba implements a lumped conceptual water-balance model of a
// catchment in daily or monthly timesteps, together with calibration of
// its parameters against observed runoff.
package waba

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Version gives the version number of this version of WaBa.
const Version = "1.2.0"

// ModelType says whether a model runs in daily or monthly timesteps.
type ModelType int

// Model timestep types.
const (
	Daily ModelType = iota
	Monthly
)

func (t ModelType) String() string {
	if t == Monthly {
		return "monthly"
	}
	return "daily"
}

// TimeStep returns the calendar step width matching the model type.
func (t ModelType) TimeStep() Step {
	if t == Monthly {
		return Month
	}
	return Day
}

// Positions of the variables within a model's variable matrix. The
// position DS holds direct-runoff storage for daily models and
// interflow (I) for monthly models.
const (
	P    = iota // precipitation [mm]
	R           // observed runoff [mm]
	RM          // modelled runoff [mm]
	BF          // baseflow [mm]
	B           // observed baseflow [mm]
	DS          // direct-runoff storage (daily) [mm]
	DR          // direct runoff [mm]
	PET         // potential evapotranspiration [mm]
	ET          // actual evapotranspiration [mm]
	SW          // soil water storage [mm]
	SS          // snow storage [mm]
	GS          // groundwater storage [mm]
	INF         // infiltration [mm]
	PERC        // percolation out of soil [mm]
	RC          // recharge to groundwater [mm]
	T           // air temperature [°C]
	H           // relative air humidity [%]
	WEI         // calibration weight [-]
	POD         // groundwater withdrawal [mm]
	POV         // surface-water withdrawal [mm]
	PVN         // waste-water release [mm]
	VYP         // reservoir evaporation [mm]
)

// I is the interflow position in monthly models.
const I = DS

// Positions of monthly-model parameters.
const (
	Spa = iota // soil capacity [mm]
	Dgw        // winter snowmelt factor [mm/°C]
	Alf        // direct-runoff coefficient
	Dgm        // snowmelt factor [mm/°C]
	Soc        // summer runoff partition coefficient
	Wic        // winter runoff partition coefficient
	Mec        // melt runoff partition coefficient
	Grd        // groundwater outflow coefficient
)

// Positions of daily-model parameters.
const (
	SpaD = iota
	AlfD
	DgmD
	SocD
	MecD
	GrdD
)

// Missing marks a value that was not supplied or computed; any stored
// value below missingLimit is treated as missing for reporting.
const (
	Missing      = -999
	missingLimit = -900
)

const (
	varCountBase     = 18 // without water-use variables
	varCountWaterUse = 4
	monthsInYear     = 12
)

var (
	paramNamesDaily   = []string{"Spa", "Alf", "Dgm", "Soc", "Mec", "Grd"}
	paramNamesMonthly = []string{"Spa", "Dgw", "Alf", "Dgm", "Soc", "Wic", "Mec", "Grd"}

	// Rows hold initial value, lower limit and upper limit.
	paramInitDaily = [3][]float64{
		{20, 0.3, 5, 0.3, 0.05, 0.05},
		{0, 0, 0, 0, 0, 0},
		{200, 1, 200, 1, 1, 0.5},
	}
	paramInitMonthly = [3][]float64{
		{147.7, 13.8, 0.000779, 15.22, 0.699, 0.342, 0.799, 0.499},
		{0, 0, 0, 0, 0, 0, 0, 0},
		{200, 20, 0.003, 200, 1, 1, 1, 1},
	}

	varNamesDaily = []string{"P", "R", "RM", "BF", "B", "DS", "DR", "PET", "ET", "SW",
		"SS", "GS", "INF", "PERC", "RC", "T", "H", "WEI", "POD", "POV", "PVN", "VYP"}
	varNamesMonthly = []string{"P", "R", "RM", "BF", "B", "I", "DR", "PET", "ET", "SW",
		"SS", "GS", "INF", "PERC", "RC", "T", "H", "WEI", "POD", "POV", "PVN", "VYP"}
)

// fixedParamCount gives the number of parameters held fixed in the
// second phase of gradient calibration.
func (t ModelType) fixedParamCount() int {
	if t == Monthly {
		return 4
	}
	return 3
}

// Parameter is one model parameter with its current value, the initial
// value calibration starts from, and the calibration limits.
type Parameter struct {
	Value   float64
	Initial float64
	Lower   float64
	Upper   float64
}

// ParamKind selects which of the four values of a parameter an
// accessor works with.
type ParamKind int

// Parameter value kinds.
const (
	Init ParamKind = iota
	Curr
	Lower
	Upper
)

// Model holds the complete state of one catchment: the parameter
// table, the time-indexed variable matrix, the calendar and the
// optimization settings. A Model is not safe for concurrent use.
type Model struct {
	Params  []Parameter // model parameters in the fixed order of the type
	Var     [][]float64 // observed and modelled variables [timestep][variable]
	IsInput []bool      // whether the variable was loaded as input data [variable]
	Calen   []Date      // dates of the time series [timestep]
	Optim   Optimizer   // calibration method; nil until configured

	// Log receives non-fatal events (skipped lines, extra columns,
	// too-short series). It defaults to the logrus standard logger.
	Log *logrus.Logger

	// InputFile is the name of the file the input series came from.
	InputFile string

	typ       ModelType
	waterUse  bool
	area      float64 // catchment area [km²]
	latitude  float64 // latitude for PET estimation [°]
	timeSteps int

	sumWeights  float64
	systemOptim bool

	// Monthly aggregates and characteristics, valid when areChars is set.
	varMon   [][]float64
	calenMon []Date
	charMon  [][]float64
	months   int
	initM    int // first timestep of a complete hydrological year
	years    int // number of complete hydrological years
	areChars bool
}

// NewModel creates an empty model of the given type with default
// parameter values and limits.
func NewModel(typ ModelType) *Model {
	m := &Model{
		typ:      typ,
		latitude: 50,
		Log:      logrus.StandardLogger(),
	}
	m.InitParams()
	return m
}

// Type returns the model's timestep type.
func (m *Model) Type() ModelType { return m.typ }

// TimeSteps returns the length of the installed time series.
func (m *Model) TimeSteps() int { return m.timeSteps }

// Area returns the catchment area in km².
func (m *Model) Area() float64 { return m.area }

// SetArea sets the catchment area in km².
func (m *Model) SetArea(area float64) { m.area = area }

// WaterUse reports whether water-use variables are enabled.
func (m *Model) WaterUse() bool { return m.waterUse }

// ParamCount returns the number of parameters of the model type.
func (m *Model) ParamCount() int {
	if m.typ == Monthly {
		return len(paramNamesMonthly)
	}
	return len(paramNamesDaily)
}

// FixedParamCount returns the number of parameters held fixed in the
// second gradient calibration phase.
func (m *Model) FixedParamCount() int { return m.typ.fixedParamCount() }

// VarCount returns the number of variables, including the water-use
// variables when those are enabled.
func (m *Model) VarCount() int {
	if m.waterUse {
		return varCountBase + varCountWaterUse
	}
	return varCountBase
}

// ParamName returns the name of the parameter at the given position.
func (m *Model) ParamName(par int) string {
	if m.typ == Monthly {
		return paramNamesMonthly[par]
	}
	return paramNamesDaily[par]
}

// VarName returns the name of the variable at the given position.
func (m *Model) VarName(v int) string {
	if m.typ == Monthly {
		return varNamesMonthly[v]
	}
	return varNamesDaily[v]
}

// VarPos returns the position of the variable with the given name.
func (m *Model) VarPos(name string) (int, error) {
	for v := 0; v < m.VarCount(); v++ {
		if m.VarName(v) == name {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown variable %q", name)
}

// Param returns one value of the parameter at the given position.
func (m *Model) Param(par int, kind ParamKind) float64 {
	switch kind {
	case Init:
		return m.Params[par].Initial
	case Curr:
		return m.Params[par].Value
	case Lower:
		return m.Params[par].Lower
	default:
		return m.Params[par].Upper
	}
}

// SetParam sets one value of the parameter at the given position.
func (m *Model) SetParam(par int, kind ParamKind, value float64) {
	switch kind {
	case Init:
		m.Params[par].Initial = value
	case Curr:
		m.Params[par].Value = value
	case Lower:
		m.Params[par].Lower = value
	default:
		m.Params[par].Upper = value
	}
}

// InitParams resets the parameter table to the default values and
// limits of the model type.
func (m *Model) InitParams() {
	var names []string
	var init [3][]float64
	if m.typ == Monthly {
		names, init = paramNamesMonthly, paramInitMonthly
	} else {
		names, init = paramNamesDaily, paramInitDaily
	}
	m.Params = make([]Parameter, len(names))
	for p := range m.Params {
		m.Params[p] = Parameter{
			Value:   init[0][p],
			Initial: init[0][p],
			Lower:   init[1][p],
			Upper:   init[2][p],
		}
	}
}

// SetParams sets the given kind of the named parameters. Names unknown
// to the model type are reported as warnings and skipped.
func (m *Model) SetParams(values map[string]float64, kind ParamKind) {
	for name, value := range values {
		pos := -1
		for p := 0; p < m.ParamCount(); p++ {
			if m.ParamName(p) == name {
				pos = p
			}
		}
		if pos < 0 {
			m.Log.Warnf("parameter %q does not exist in this model", name)
			continue
		}
		m.SetParam(pos, kind, value)
	}
}

// InitVars allocates the variable matrix, the is-input flags and the
// calendar for the given number of timesteps. All variables except the
// weights are set to missing; weights default to 1.
func (m *Model) InitVars(timeSteps int) {
	m.timeSteps = timeSteps
	nv := m.VarCount()
	m.Var = make([][]float64, timeSteps)
	for ts := range m.Var {
		m.Var[ts] = make([]float64, nv)
		for v := range m.Var[ts] {
			m.Var[ts][v] = Missing
		}
		m.Var[ts][WEI] = 1
	}
	m.IsInput = make([]bool, nv)
	m.Calen = make([]Date, timeSteps)
	for ts := range m.Calen {
		m.Calen[ts] = Date{Year: 9999, Month: 1, Day: 1}
	}
	m.varMon, m.calenMon, m.charMon = nil, nil, nil
	m.months, m.years, m.initM = 0, 0, 0
	m.areChars = false
}

// SetCalendar fills the calendar starting from the given initial date.
// For monthly models the day field is clamped down in months shorter
// than the initial month.
func (m *Model) SetCalendar(init Date) {
	d := init
	for ts := 0; ts < m.timeSteps; ts++ {
		m.Calen[ts] = d
		d.Increase(m.typ.TimeStep())
	}
	if m.typ == Monthly && init.Day > daysInShortestMonth {
		for ts := 0; ts < m.timeSteps; ts++ {
			if n := daysInMonth[m.Calen[ts].Month-1]; m.Calen[ts].Day > n {
				m.Calen[ts].Day = n
			}
		}
	}
}

// InitDate returns the first date of the time series, or "NA" when no
// series is installed.
func (m *Model) InitDate() string {
	if m.timeSteps == 0 {
		return "NA"
	}
	return m.Calen[0].String()
}

// SetVarNA sets every value of the given variable to missing.
func (m *Model) SetVarNA(v int) {
	for ts := 0; ts < m.timeSteps; ts++ {
		m.Var[ts][v] = Missing
	}
}

// IsVarNA reports whether any value of the given variable is missing.
func (m *Model) IsVarNA(v int) bool {
	for ts := 0; ts < m.timeSteps; ts++ {
		if m.Var[ts][v] < missingLimit {
			return true
		}
	}
	return false
}

// IsValueNA reports whether the value of the given variable at the
// given timestep is missing.
func (m *Model) IsValueNA(ts, v int) bool {
	return m.Var[ts][v] < missingLimit
}

// VarSum returns the sum of the given variable over all timesteps.
func (m *Model) VarSum(v int) float64 {
	sum := 0.0
	for ts := 0; ts < m.timeSteps; ts++ {
		sum += m.Var[ts][v]
	}
	return sum
}

// SetInput installs one input series into the variable matrix. The
// series length must match the installed calendar.
func (m *Model) SetInput(name string, values []float64) error {
	if len(values) != m.timeSteps {
		return fmt.Errorf("series %s has %d values but the model has %d timesteps",
			name, len(values), m.timeSteps)
	}
	v, err := m.VarPos(name)
	if err != nil {
		return err
	}
	for ts := range values {
		m.Var[ts][v] = values[ts]
	}
	m.IsInput[v] = true
	m.areChars = false
	return nil
}

// SetWaterUse enables or disables the water-use variables, reallocating
// the variable matrix. Values of overlapping variable positions are
// preserved.
func (m *Model) SetWaterUse(waterUse bool) {
	if m.waterUse == waterUse {
		return
	}
	oldVar, oldInput, oldCount := m.Var, m.IsInput, m.VarCount()
	m.waterUse = waterUse
	if oldVar == nil {
		return
	}
	m.InitVars(m.timeSteps)
	keep := m.VarCount()
	if oldCount < keep {
		keep = oldCount
	}
	for v := 0; v < keep; v++ {
		m.IsInput[v] = oldInput[v]
		for ts := 0; ts < m.timeSteps; ts++ {
			m.Var[ts][v] = oldVar[ts][v]
		}
	}
}

// ChangeType switches the model between daily and monthly timesteps.
// Computed series are discarded; the parameter table is reset to the
// defaults of the new type.
func (m *Model) ChangeType() {
	if m.typ == Daily {
		m.typ = Monthly
	} else {
		m.typ = Daily
	}
	m.Var, m.IsInput, m.Calen = nil, nil, nil
	m.varMon, m.calenMon, m.charMon = nil, nil, nil
	m.timeSteps, m.months, m.years, m.initM = 0, 0, 0, 0
	m.areChars = false
	m.InitParams()
}

// FlowM3S converts the value of a variable in mm at one timestep into
// a flow in m³/s using the catchment area.
func (m *Model) FlowM3S(ts, v int) float64 {
	flow := m.Var[ts][v] * m.area / 24 / 3.6
	if m.typ == Monthly {
		flow /= 30
	}
	return flow
}
