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
	"testing"

	"github.com/GaryBoone/GoStats/stats"
)

// newSyntheticDE builds the synthetic daily model and a configured
// SCE-DE optimizer for it.
func newSyntheticDE(t *testing.T, seed int64, ensCount int) (*Model, *DEOptim) {
	m := syntheticDaily(t, trueDaily)
	d := NewDEOptim(m)
	if err := d.Set(MSE, BestOneBin, 3, 10, 0.95, 0.9, 0.85,
		20, 5, ensCount, seed, 0, false, 50); err != nil {
		t.Fatal(err)
	}
	m.Optim = d
	return m, d
}

// TestDERecovery checks that every ensemble run finds the parameters
// the observations were generated with.
func TestDERecovery(t *testing.T) {
	if testing.Short() {
		t.Skip("calibration test skipped in short mode")
	}
	m, d := newSyntheticDE(t, 42, 5)
	if err := d.Optimize(); err != nil {
		t.Fatal(err)
	}

	results := d.EnsembleResults()
	if len(results) != 5 {
		t.Fatalf("ensemble rows: %d, want 5", len(results))
	}
	for p := 0; p < m.ParamCount(); p++ {
		want := trueDaily[m.ParamName(p)]
		column := make([]float64, len(results))
		for ens, row := range results {
			column[ens] = row[p]
			if different(want, row[p], 0.05) {
				t.Errorf("ensemble %d: parameter %s = %g, want %g",
					ens+1, m.ParamName(p), row[p], want)
			}
		}
		if mean := stats.StatsMean(column); different(want, mean, 0.05) {
			t.Errorf("parameter %s: ensemble mean %g, want %g", m.ParamName(p), mean, want)
		}
	}
	for ens, row := range results {
		if row[m.ParamCount()+1] <= 0 {
			t.Errorf("ensemble %d reports no model evaluations", ens+1)
		}
	}
}

// TestDEReproducible checks that a positive seed makes two searches
// identical.
func TestDEReproducible(t *testing.T) {
	if testing.Short() {
		t.Skip("calibration test skipped in short mode")
	}
	_, d1 := newSyntheticDE(t, 42, 2)
	if err := d1.Optimize(); err != nil {
		t.Fatal(err)
	}
	_, d2 := newSyntheticDE(t, 42, 2)
	if err := d2.Optimize(); err != nil {
		t.Fatal(err)
	}

	r1, r2 := d1.EnsembleResults(), d2.EnsembleResults()
	for ens := range r1 {
		for i := range r1[ens] {
			if r1[ens][i] != r2[ens][i] {
				t.Fatalf("ensemble %d, column %d: %g != %g",
					ens+1, i, r1[ens][i], r2[ens][i])
			}
		}
	}
}

func TestDEConfigErrors(t *testing.T) {
	m := syntheticDaily(t, trueDaily)
	d := NewDEOptim(m)
	if err := d.Optimize(); err == nil {
		t.Error("unset complexes should fail")
	}
	if err := d.Set(MSE, BestOneBin, 3, 10, 0.95, 0.9, 0.85,
		1, 1, 1, 1, -0.5, false, 50); err == nil {
		t.Error("negative weight_BF should fail")
	}
	// Too small a complex cannot provide distinct mutation partners.
	if err := d.Set(MSE, BestTwoBin, 2, 3, 0.95, 0.9, 0.85,
		1, 1, 1, 1, 0, false, 50); err != nil {
		t.Fatal(err)
	}
	if err := d.Optimize(); err == nil {
		t.Error("drawing 4 distinct partners from a complex of 3 should fail")
	}
}

func TestDESettings(t *testing.T) {
	m := NewModel(Daily)
	d := NewDEOptim(m)
	if err := d.Set(NS, RandTwoBin, 4, 8, 0.9, 0.7, 0.6, 15, 3, 2, 7, 0, false, 30); err != nil {
		t.Fatal(err)
	}
	sett := d.Settings()
	if sett["crit"] != "NS" || sett["DE_type"] != "rand_two_bin" ||
		sett["n_comp"] != "4" || sett["comp_size"] != "8" || sett["seed"] != "7" {
		t.Errorf("settings = %v", sett)
	}
}
