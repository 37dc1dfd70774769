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

import "testing"

// TestMonthlyAggregation aggregates a daily series starting and ending
// inside a month; the partial months at both ends are trimmed.
func TestMonthlyAggregation(t *testing.T) {
	const days = 365 // 1990-01-15 through 1991-01-14
	m := NewModel(Daily)
	m.InitVars(days)
	m.SetCalendar(Date{1990, 1, 15})
	if err := m.SetInput("P", constantSeries(days, 1)); err != nil {
		t.Fatal(err)
	}
	if err := m.SetInput("T", constantSeries(days, 7)); err != nil {
		t.Fatal(err)
	}

	series, calen, err := m.MonthlySeries()
	if err != nil {
		t.Fatal(err)
	}
	// February through December 1990.
	if len(series) != 11 {
		t.Fatalf("months: %d, want 11", len(series))
	}
	if calen[0] != (Date{1990, 2, 1}) || calen[10] != (Date{1990, 12, 1}) {
		t.Errorf("monthly calendar runs %v through %v", calen[0], calen[10])
	}
	// Precipitation sums over the days, temperature averages.
	if series[0][P] != 28 {
		t.Errorf("February precipitation = %g, want 28", series[0][P])
	}
	if series[10][P] != 31 {
		t.Errorf("December precipitation = %g, want 31", series[10][P])
	}
	if different(series[3][T], 7, 1e-12) {
		t.Errorf("May temperature = %g, want 7", series[3][T])
	}
}

func TestMonthlyAggregationTooShort(t *testing.T) {
	m := NewModel(Daily)
	m.InitVars(10) // 1990-01-15 through 1990-01-24: no whole month
	m.SetCalendar(Date{1990, 1, 15})
	if _, _, err := m.MonthlySeries(); err == nil {
		t.Error("aggregating less than one month should not succeed")
	}
}

// TestChars computes monthly characteristics over two complete
// hydrological years.
func TestChars(t *testing.T) {
	const months = 24 // 1990-11 through 1992-10
	m := NewModel(Monthly)
	m.InitVars(months)
	m.SetCalendar(Date{1990, 11, 1})
	p := make([]float64, months)
	for ts := range p {
		p[ts] = float64(ts)
	}
	if err := m.SetInput("P", p); err != nil {
		t.Fatal(err)
	}

	chars, err := m.Chars()
	if err != nil {
		t.Fatal(err)
	}
	if len(chars) != monthsInYear {
		t.Fatalf("rows: %d", len(chars))
	}
	// Month row 0 is November: values 0 and 12 across the two years.
	if chars[0][P*3] != 0 || chars[0][P*3+1] != 6 || chars[0][P*3+2] != 12 {
		t.Errorf("November characteristics = %v", chars[0][P*3:P*3+3])
	}
	// Month row 11 is October: values 11 and 23.
	if chars[11][P*3] != 11 || chars[11][P*3+1] != 17 || chars[11][P*3+2] != 23 {
		t.Errorf("October characteristics = %v", chars[11][P*3:P*3+3])
	}
}

// TestCharsShortSeries checks that a series without a complete
// hydrological year yields zero characteristics and no error.
func TestCharsShortSeries(t *testing.T) {
	m := NewModel(Monthly)
	m.InitVars(6) // 1991-01 through 1991-06
	m.SetCalendar(Date{1991, 1, 1})
	if err := m.SetInput("P", constantSeries(6, 3)); err != nil {
		t.Fatal(err)
	}
	chars, err := m.Chars()
	if err != nil {
		t.Fatal(err)
	}
	for mo := range chars {
		for i := range chars[mo] {
			if chars[mo][i] != 0 {
				t.Fatalf("characteristic [%d][%d] = %g, want 0", mo, i, chars[mo][i])
			}
		}
	}
}
