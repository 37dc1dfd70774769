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
	"os"
	"sort"
	"strconv"
	"strings"
)

// OutputType selects the payload of a result file.
type OutputType int

// Result file payloads.
const (
	OutSeries        OutputType = iota // full series in the model timestep
	OutSeriesDaily                     // daily series, daily models only
	OutSeriesMonthly                   // monthly series, aggregated for daily models
	OutChars                           // monthly characteristics
)

// fileInfo holds the header properties of an input series file.
type fileInfo struct {
	nrow, nrowBlank, ncol int
	oldStyle              bool
	rows                  [4]string
	lines                 []string
}

// readFileInfo reads the file and classifies its header: old-style
// files carry three header lines (row count, column count, initial
// date), current files a single initial-date line.
func readFileInfo(fileName string) (*fileInfo, error) {
	b, err := os.ReadFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("the input file %q does not exist", fileName)
	}
	info := &fileInfo{lines: strings.Split(strings.TrimRight(string(b), "\n"), "\n")}
	for r := 0; r < 4 && r < len(info.lines); r++ {
		info.rows[r] = info.lines[r]
	}
	info.nrow = 4
	for _, line := range info.lines[min(4, len(info.lines)):] {
		if strings.TrimSpace(line) == "" {
			info.nrowBlank++
		} else {
			info.nrow++
		}
	}
	info.oldStyle = len(strings.Fields(info.rows[1])) == 1
	info.ncol = len(strings.Fields(info.rows[3]))
	return info, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// parseInitLine parses the initial-date header line: one integer is a
// hydrological-year start, two are year and month, three a full date.
// A fourth numeric token, or a trailing token with a decimal point, is
// the catchment area in km².
func parseInitLine(line string) (Date, float64, bool, error) {
	fields := strings.Fields(line)
	if len(fields) > 4 {
		fields = fields[:4]
	}
	var area float64
	haveArea := false
	if len(fields) > 0 {
		last := fields[len(fields)-1]
		if len(fields) == 4 || strings.Contains(last, ".") {
			a, err := strconv.ParseFloat(last, 64)
			if err != nil {
				return Date{}, 0, false, fmt.Errorf("invalid area value %q", last)
			}
			area = a
			haveArea = true
			fields = fields[:len(fields)-1]
		}
	}
	nums := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return Date{}, 0, false, fmt.Errorf("invalid date token %q", f)
		}
		nums[i] = n
	}
	var d Date
	var err error
	switch len(nums) {
	case 1: // a standalone year means the begin of the hydrological year
		d, err = NewDate(nums[0]-1, 11, 1)
	case 2:
		d, err = NewDate(nums[0], nums[1], 1)
	case 3:
		d, err = NewDate(nums[0], nums[1], nums[2])
	default:
		err = fmt.Errorf("invalid date format")
	}
	return d, area, haveArea, err
}

// ReadFile reads observed series from a text file, assigning columns
// positionally to the given variable names. Water-use variables in the
// list enable the water-use mode.
func (m *Model) ReadFile(fileName string, inputVars []string) error {
	info, err := readFileInfo(fileName)
	if err != nil {
		return err
	}
	if info.oldStyle {
		m.Log.Warnf("the input file %q is old-style formatted", fileName)
	}
	if len(inputVars) > info.ncol {
		return fmt.Errorf("number of columns in file %q is less than number of input variables", fileName)
	}
	if len(inputVars) < info.ncol {
		m.Log.Warnf("the input file %q contains more columns than input variables, some columns will be omitted", fileName)
	}

	for _, name := range inputVars {
		switch name {
		case "POD", "POV", "PVN", "VYP":
			m.SetWaterUse(true)
		}
	}
	positions := make([]int, len(inputVars))
	for i, name := range inputVars {
		if positions[i], err = m.VarPos(name); err != nil {
			return fmt.Errorf("file %q: %v", fileName, err)
		}
	}
	sorted := append([]int(nil), positions...)
	sort.Ints(sorted)
	for i := 0; i < len(sorted)-1; i++ {
		if sorted[i] == sorted[i+1] {
			m.Log.Warnf("file %q: variable %s is set for more columns, only the last one will be used",
				fileName, m.VarName(sorted[i]))
		}
	}

	header := 1
	dateLine := info.rows[0]
	if info.oldStyle {
		header = 3
		dateLine = info.rows[2]
		headerNrow, _ := strconv.Atoi(strings.TrimSpace(info.rows[0]))
		headerNcol, _ := strconv.Atoi(strings.TrimSpace(info.rows[1]))
		if info.nrow-3 != headerNrow {
			m.Log.Warnf("file %q: number of rows (%d) does not equal to number in header (%d)",
				fileName, info.nrow-3, headerNrow)
		}
		if info.ncol != headerNcol {
			m.Log.Warnf("file %q: number of columns (%d) does not equal to number in header (%d)",
				fileName, info.ncol, headerNcol)
		}
	}
	initDate, area, haveArea, err := parseInitLine(dateLine)
	if err != nil {
		return fmt.Errorf("file %q: %v", fileName, err)
	}
	if haveArea {
		m.area = area
	}

	m.InitVars(info.nrow - header)
	m.SetCalendar(initDate)

	ts := 0
	for _, line := range info.lines[header:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < len(positions) {
			return fmt.Errorf("file %q: incomplete line found:\n%s", fileName, line)
		}
		for col, pos := range positions {
			value, err := strconv.ParseFloat(fields[col], 64)
			if err != nil {
				return fmt.Errorf("file %q: incomplete line found:\n%s", fileName, line)
			}
			m.Var[ts][pos] = value
		}
		ts++
	}

	m.InputFile = fileName
	m.areChars = false
	for _, pos := range positions {
		m.IsInput[pos] = true
	}
	if info.nrowBlank > 0 {
		m.Log.Warnf("file %q: %d blank lines skipped", fileName, info.nrowBlank)
	}
	return nil
}

// oldParamsHeading identifies the old parameter-file dialect when
// found on its fifteenth line.
const oldParamsHeading = "Resulting parameters of the model"

// ReadParamsFile reads model parameters back from a result file,
// recognizing the current and the old dialect by probing fixed header
// offsets. The values install as both initial and current.
func (m *Model) ReadParamsFile(fileName string) error {
	b, err := os.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("the input file %q does not exist", fileName)
	}
	lines := strings.Split(string(b), "\n")

	values := map[string]float64{}
	if len(lines) > 16 && strings.Contains(lines[14], oldParamsHeading) {
		// The old dialect lists all eight parameters as quoted,
		// comma-separated names followed by a row of values; for daily
		// models Dgw and Wic have no meaning and are dropped.
		names := strings.Fields(strings.ReplaceAll(lines[15], ",", " "))
		vals := strings.Fields(strings.ReplaceAll(lines[16], ",", " "))
		if len(vals) < len(names) {
			return fmt.Errorf("parameters loaded from file %q are incomplete", fileName)
		}
		for p, quoted := range names {
			name := strings.Trim(quoted, `"`)
			value, err := strconv.ParseFloat(vals[p], 64)
			if err != nil {
				return fmt.Errorf("file %q: invalid parameter value %q", fileName, vals[p])
			}
			if m.typ == Daily && (name == "Dgw" || name == "Wic") {
				continue
			}
			values[name] = value
		}
	} else {
		okLine := m.ParamCount() + 4
		if len(lines) <= okLine || !strings.HasPrefix(lines[okLine], "OK\t") {
			return fmt.Errorf("parameters loaded from file %q do not match model type", fileName)
		}
		for p := 0; p < m.ParamCount(); p++ {
			fields := strings.Fields(lines[3+p])
			if len(fields) < 2 {
				return fmt.Errorf("parameters loaded from file %q do not match model type", fileName)
			}
			value, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return fmt.Errorf("file %q: invalid parameter value %q", fileName, fields[1])
			}
			values[fields[0]] = value
		}
	}
	m.SetParams(values, Init)
	m.SetParams(values, Curr)
	return nil
}

// WriteFile writes the initial date, the parameters, the criterion
// value and the requested payload into a text file.
func (m *Model) WriteFile(fileName string, outType OutputType) error {
	if m.Var == nil {
		return fmt.Errorf("no variables to output")
	}
	if m.Params == nil {
		return fmt.Errorf("no parameters to output")
	}
	f, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("the output file %q cannot be used: %v", fileName, err)
	}
	defer f.Close()

	fmt.Fprintf(f, "Initial\n%v\n", m.Calen[0])
	for p := 0; p < m.ParamCount(); p++ {
		fmt.Fprintf(f, "\n%s\t%g", m.ParamName(p), m.Params[p].Value)
	}
	ok := 0.0
	if m.Optim != nil {
		ok = m.Optim.OK()
	}
	fmt.Fprintf(f, "\n\nOK\t%g", ok)

	switch outType {
	case OutSeries:
		m.writeSeries(f, m.Var, m.timeSteps)
	case OutSeriesDaily:
		if m.typ != Daily {
			return fmt.Errorf("daily series cannot be written for monthly type of model")
		}
		m.writeSeries(f, m.Var, m.timeSteps)
	case OutSeriesMonthly:
		if m.typ == Daily {
			if err := m.calcMonthlyVars(); err != nil {
				return err
			}
			m.writeSeries(f, m.varMon, m.months)
		} else {
			m.writeSeries(f, m.Var, m.timeSteps)
		}
	case OutChars:
		if err := m.CalcChars(); err != nil {
			return err
		}
		m.writeChars(f)
	}
	return nil
}

// writeSeries writes a tab-separated table of the given series with a
// header row of variable names.
func (m *Model) writeSeries(f *os.File, series [][]float64, timeSteps int) {
	fmt.Fprint(f, "\n\n")
	for v := 0; v < m.VarCount(); v++ {
		if v != 0 {
			fmt.Fprint(f, "\t")
		}
		fmt.Fprint(f, m.VarName(v))
	}
	for ts := 0; ts < timeSteps; ts++ {
		fmt.Fprint(f, "\n")
		for v := 0; v < m.VarCount(); v++ {
			if v != 0 {
				fmt.Fprint(f, "\t")
			}
			if series[ts][v] < missingLimit {
				fmt.Fprint(f, "NA")
			} else {
				fmt.Fprintf(f, "%g", series[ts][v])
			}
		}
	}
}

// writeChars writes the monthly characteristics per variable, months
// ordered by the hydrological year (November first).
func (m *Model) writeChars(f *os.File) {
	fmt.Fprint(f, "\n\n")
	for v := 0; v < m.VarCount(); v++ {
		fmt.Fprintf(f, "%s\n", m.VarName(v))
		for mo := 0; mo < monthsInYear; mo++ {
			if mo < 2 {
				fmt.Fprintf(f, "%d", mo+11)
			} else {
				fmt.Fprintf(f, "%d", mo-1)
			}
			if m.IsVarNA(v) {
				fmt.Fprint(f, "\tNA\tNA\tNA\n")
			} else {
				fmt.Fprintf(f, "\t%g\t%g\t%g\n",
					m.charMon[mo][v*3], m.charMon[mo][v*3+1], m.charMon[mo][v*3+2])
			}
		}
		fmt.Fprint(f, "\n")
	}
}
