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
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "input.txt")
	if err := os.WriteFile(name, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return name
}

func TestReadFileCurrentDialect(t *testing.T) {
	file := writeTemp(t, "1990 11 1 123.5\n"+
		"1.5 0.8 -2\n"+
		"2.5 0.9 -1\n"+
		"3.5 1.0 0\n")
	m := NewModel(Daily)
	if err := m.ReadFile(file, []string{"P", "R", "T"}); err != nil {
		t.Fatal(err)
	}
	if m.TimeSteps() != 3 {
		t.Fatalf("timesteps: %d", m.TimeSteps())
	}
	if m.Area() != 123.5 {
		t.Errorf("area = %g", m.Area())
	}
	if m.Calen[0] != (Date{1990, 11, 1}) || m.Calen[2] != (Date{1990, 11, 3}) {
		t.Errorf("calendar runs %v through %v", m.Calen[0], m.Calen[2])
	}
	if m.Var[1][P] != 2.5 || m.Var[2][T] != 0 {
		t.Errorf("values P[1]=%g T[2]=%g", m.Var[1][P], m.Var[2][T])
	}
	if !m.IsInput[P] || !m.IsInput[R] || !m.IsInput[T] {
		t.Error("input flags not set")
	}
}

func TestReadFileHydrologicalYear(t *testing.T) {
	file := writeTemp(t, "1991\n"+
		"1 2 3\n"+
		"4 5 6\n"+
		"7 8 9\n")
	m := NewModel(Monthly)
	if err := m.ReadFile(file, []string{"P", "T", "H"}); err != nil {
		t.Fatal(err)
	}
	// A standalone year starts the preceding November.
	if m.Calen[0] != (Date{1990, 11, 1}) {
		t.Errorf("initial date = %v", m.Calen[0])
	}
}

func TestReadFileOldDialect(t *testing.T) {
	file := writeTemp(t, "3\n"+
		"3\n"+
		"1990 5\n"+
		"1 2 3\n"+
		"4 5 6\n"+
		"7 8 9\n")
	m := NewModel(Monthly)
	if err := m.ReadFile(file, []string{"P", "T", "H"}); err != nil {
		t.Fatal(err)
	}
	if m.TimeSteps() != 3 {
		t.Fatalf("timesteps: %d", m.TimeSteps())
	}
	if m.Calen[0] != (Date{1990, 5, 1}) {
		t.Errorf("initial date = %v", m.Calen[0])
	}
	if m.Var[2][H] != 9 {
		t.Errorf("H[2] = %g", m.Var[2][H])
	}
}

func TestReadFileBlankLines(t *testing.T) {
	file := writeTemp(t, "1990 1 1\n"+
		"1 2\n"+
		"3 4\n"+
		"5 6\n"+
		"\n"+
		"7 8\n")
	m := NewModel(Daily)
	if err := m.ReadFile(file, []string{"P", "T"}); err != nil {
		t.Fatal(err)
	}
	if m.TimeSteps() != 4 {
		t.Fatalf("timesteps: %d", m.TimeSteps())
	}
	if m.Var[3][P] != 7 {
		t.Errorf("P[3] = %g after skipping the blank line", m.Var[3][P])
	}
}

func TestReadFileWaterUse(t *testing.T) {
	file := writeTemp(t, "1990 1 1\n"+
		"1 2 3\n"+
		"4 5 6\n"+
		"7 8 9\n")
	m := NewModel(Daily)
	if err := m.ReadFile(file, []string{"P", "T", "POD"}); err != nil {
		t.Fatal(err)
	}
	if !m.WaterUse() {
		t.Error("water use not enabled by a water-use column")
	}
	if m.Var[0][POD] != 3 {
		t.Errorf("POD[0] = %g", m.Var[0][POD])
	}
}

func TestReadFileErrors(t *testing.T) {
	m := NewModel(Daily)
	if err := m.ReadFile(filepath.Join(t.TempDir(), "nope.txt"), []string{"P"}); err == nil {
		t.Error("missing file should fail")
	}

	short := writeTemp(t, "1990 1 1\n"+
		"1 2\n"+
		"3\n"+
		"4 5\n")
	if err := m.ReadFile(short, []string{"P", "T"}); err == nil {
		t.Error("incomplete row should fail")
	}

	narrow := writeTemp(t, "1990 1 1\n"+
		"1\n"+
		"2\n"+
		"3\n")
	if err := m.ReadFile(narrow, []string{"P", "T", "H"}); err == nil {
		t.Error("fewer columns than variables should fail")
	}

	badDate := writeTemp(t, "1990 13 1\n"+
		"1 2\n"+
		"3 4\n"+
		"5 6\n")
	if err := m.ReadFile(badDate, []string{"P", "T"}); err == nil {
		t.Error("invalid initial date should fail")
	}
}

func TestParamsRoundTrip(t *testing.T) {
	m := syntheticDaily(t, trueDaily)
	m.SetParams(trueDaily, Curr)
	file := filepath.Join(t.TempDir(), "result.txt")
	if err := m.WriteFile(file, OutSeries); err != nil {
		t.Fatal(err)
	}

	fresh := NewModel(Daily)
	if err := fresh.ReadParamsFile(file); err != nil {
		t.Fatal(err)
	}
	for p := 0; p < m.ParamCount(); p++ {
		if fresh.Params[p].Value != m.Params[p].Value {
			t.Errorf("parameter %s: %g != %g",
				m.ParamName(p), fresh.Params[p].Value, m.Params[p].Value)
		}
		if fresh.Params[p].Initial != m.Params[p].Value {
			t.Errorf("parameter %s: initial not set from file", m.ParamName(p))
		}
	}
}

func TestReadParamsWrongType(t *testing.T) {
	m := syntheticDaily(t, trueDaily)
	file := filepath.Join(t.TempDir(), "result.txt")
	if err := m.WriteFile(file, OutSeries); err != nil {
		t.Fatal(err)
	}
	monthly := NewModel(Monthly)
	if err := monthly.ReadParamsFile(file); err == nil {
		t.Error("loading daily parameters into a monthly model should fail")
	}
}

func TestWriteFilePayloads(t *testing.T) {
	m := syntheticDaily(t, trueDaily)
	if err := m.Run(50); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()

	series := filepath.Join(dir, "series.txt")
	if err := m.WriteFile(series, OutSeries); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(series)
	if err != nil {
		t.Fatal(err)
	}
	content := string(b)
	if !strings.HasPrefix(content, "Initial\n1990-1-1\n") {
		t.Errorf("series file starts with %q", content[:20])
	}
	if !strings.Contains(content, "OK\t") {
		t.Error("series file misses the criterion line")
	}
	if !strings.Contains(content, "P\tR\tRM\tBF\tB\tDS\tDR\tPET") {
		t.Error("series file misses the variable header")
	}
	// Humidity was never supplied, so it prints as missing.
	if !strings.Contains(content, "NA") {
		t.Error("missing values should print as NA")
	}

	if err := m.WriteFile(filepath.Join(dir, "monthly.txt"), OutSeriesMonthly); err != nil {
		t.Fatal(err)
	}
	if err := m.WriteFile(filepath.Join(dir, "chars.txt"), OutChars); err != nil {
		t.Fatal(err)
	}

	monthly := NewModel(Monthly)
	monthly.InitVars(3)
	monthly.SetCalendar(Date{1990, 1, 1})
	if err := monthly.WriteFile(filepath.Join(dir, "daily.txt"), OutSeriesDaily); err == nil {
		t.Error("daily series of a monthly model should fail")
	}
}
