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
	"math/rand"
	"os"
	"sort"
	"strconv"
	"time"
)

// DEType is the mutation variant of the differential evolution inner
// loop.
type DEType int

// Differential evolution variants.
const (
	BestOneBin DEType = iota
	BestTwoBin
	RandTwoBin
)

func (t DEType) String() string {
	switch t {
	case BestOneBin:
		return "best_one_bin"
	case BestTwoBin:
		return "best_two_bin"
	default:
		return "rand_two_bin"
	}
}

// DEOptim calibrates parameters by shuffled complex evolution with a
// differential evolution inner loop: the population is seeded by Latin
// hypercube sampling, repeatedly sorted and dealt into complexes, and
// each complex evolves independently between shuffles. The whole
// search repeats EnsCount times; each repetition contributes one row
// of ensemble results.
type DEOptim struct {
	optimSettings

	DEType      DEType
	NComp       int // number of complexes
	CompSize    int // members in one complex
	Cross       float64
	MutatF      float64
	MutatK      float64
	MaxShuffles int
	NGenComp    int // generations per complex between shuffles
	EnsCount    int
	// Seed re-seeds the generator when positive; otherwise the
	// generator keeps its state.
	Seed int64
	// RejectOutside replaces trial values outside the parameter limits
	// with the current member's value.
	RejectOutside bool

	rng *rand.Rand

	populSize int
	popul     [][]float64 // population rows: parameters followed by fitness
	best      []float64   // best row seen
	ensemble  [][]float64 // per ensemble: parameters, criterion, model evaluations
	modelEval int
}

// NewDEOptim creates a SCE-DE optimizer for the given target. The
// generator starts from the host clock until a positive Seed replaces
// it.
func NewDEOptim(target Calibratable) *DEOptim {
	d := &DEOptim{
		RejectOutside: true,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	d.target = target
	d.initGS = 50
	return d
}

// Set stores the calibration options.
func (d *DEOptim) Set(ct CritType, deType DEType, nComp, compSize int, cross, mutatF, mutatK float64,
	maxShuffles, nGenComp, ensCount int, seed int64, weightBF float64, useWeights bool, initGS float64) error {
	if err := d.set(ct, weightBF, useWeights, initGS); err != nil {
		return err
	}
	d.DEType = deType
	d.NComp = nComp
	d.CompSize = compSize
	d.Cross = cross
	d.MutatF = mutatF
	d.MutatK = mutatK
	d.MaxShuffles = maxShuffles
	d.NGenComp = nGenComp
	d.EnsCount = ensCount
	d.Seed = seed
	return nil
}

// Optimize runs the ensemble of SCE-DE searches. The best parameters
// of the last ensemble stay installed in the target.
func (d *DEOptim) Optimize() error {
	if err := d.init(); err != nil {
		return err
	}
	if d.NComp == 0 {
		return fmt.Errorf("number of complexes cannot be zero")
	}
	if d.CompSize == 0 {
		return fmt.Errorf("number of populations in one complex cannot be zero")
	}
	if d.EnsCount == 0 {
		return fmt.Errorf("number of ensemble runs cannot be zero")
	}
	d.populSize = d.NComp * d.CompSize

	if d.Seed > 0 {
		d.rng = rand.New(rand.NewSource(d.Seed))
	}
	d.ensemble = make([][]float64, d.EnsCount)

	for ens := 0; ens < d.EnsCount; ens++ {
		if err := d.initializePopulation(); err != nil {
			return err
		}
		if err := d.shuffledEvolution(); err != nil {
			return err
		}

		row := make([]float64, d.parCount+2)
		copy(row, d.best[:d.parCount])
		if d.critType.complemented() {
			row[d.parCount] = 1 - d.best[d.parCount]
		} else {
			row[d.parCount] = d.best[d.parCount]
		}
		row[d.parCount+1] = float64(d.modelEval)
		d.ensemble[ens] = row
	}

	// The last ensemble's best becomes the target's parameters.
	last := d.ensemble[d.EnsCount-1]
	for p := 0; p < d.parCount; p++ {
		d.target.SetParam(p, Curr, last[p])
	}
	if err := d.target.Run(d.initGS); err != nil {
		return err
	}
	ok, err := d.target.Crit(d.critType, d.weightBF, d.useWeights)
	if err != nil {
		return err
	}
	d.ok = ok
	if d.critType.complemented() {
		d.ok = 1 - d.ok
	}
	return nil
}

// initializePopulation seeds the population by stratified Latin
// hypercube sampling and evaluates every member.
func (d *DEOptim) initializePopulation() error {
	d.popul = make([][]float64, d.populSize)
	for sp := range d.popul {
		d.popul[sp] = make([]float64, d.parCount+1)
	}
	d.best = make([]float64, d.parCount+1)
	for par := range d.best {
		d.best[par] = 999999.99
	}
	for par := 0; par < d.parCount; par++ {
		perm := d.randomPerm()
		for sp := 0; sp < d.populSize; sp++ {
			d.popul[sp][par] = (d.upper[par]-d.lower[par])*(float64(perm[sp])-d.rng.Float64())/float64(d.populSize) + d.lower[par]
		}
	}
	d.modelEval = 0
	for sp := 0; sp < d.populSize; sp++ {
		fit, err := d.evaluate(d.popul[sp])
		if err != nil {
			return err
		}
		d.popul[sp][d.parCount] = fit
	}
	return nil
}

// randomPerm returns a random permutation of 1..populSize
// (Fisher-Yates).
func (d *DEOptim) randomPerm() []int {
	perm := make([]int, d.populSize)
	for sp := range perm {
		perm[sp] = sp + 1
	}
	for sp := d.populSize - 1; sp > 0; sp-- {
		j := d.rng.Intn(sp + 1)
		perm[j], perm[sp] = perm[sp], perm[j]
	}
	return perm
}

// evaluate installs the row's parameters, runs the model and returns
// the criterion value.
func (d *DEOptim) evaluate(row []float64) (float64, error) {
	for par := 0; par < d.parCount; par++ {
		d.target.SetParam(par, Curr, row[par])
	}
	if err := d.target.Run(d.initGS); err != nil {
		return 0, err
	}
	d.modelEval++
	return d.target.Crit(d.critType, d.weightBF, d.useWeights)
}

// shuffledEvolution sorts the population, deals it into complexes,
// evolves every complex and shuffles the results back, MaxShuffles
// times.
func (d *DEOptim) shuffledEvolution() error {
	for s := 0; s < d.MaxShuffles; s++ {
		sort.Slice(d.popul, func(i, j int) bool {
			return d.popul[i][d.parCount] < d.popul[j][d.parCount]
		})
		d.best = append([]float64(nil), d.popul[0]...)

		// Deal row i to complex i mod NComp, slot i / NComp.
		comps := make([][][]float64, d.NComp)
		for com := range comps {
			comps[com] = make([][]float64, d.CompSize)
			for sp := range comps[com] {
				comps[com][sp] = d.popul[sp*d.NComp+com]
			}
		}
		for com := 0; com < d.NComp; com++ {
			if err := d.evolveComplex(comps[com]); err != nil {
				return err
			}
		}
		idx := 0
		for com := 0; com < d.NComp; com++ {
			for sp := 0; sp < d.CompSize; sp++ {
				d.popul[idx] = comps[com][sp]
				idx++
			}
		}
	}
	return nil
}

// evolveComplex runs NGenComp generations of differential evolution on
// one complex.
func (d *DEOptim) evolveComplex(comp [][]float64) error {
	var drawSize int
	switch d.DEType {
	case BestOneBin:
		drawSize = 2
	case BestTwoBin:
		drawSize = 4
	case RandTwoBin:
		drawSize = 5
	default:
		return fmt.Errorf("invalid DE type %d", d.DEType)
	}

	trial := make([]float64, d.parCount+1)
	for gen := 0; gen < d.NGenComp; gen++ {
		for sp := 0; sp < d.CompSize; sp++ {
			r, err := d.randomsWithoutRep(drawSize, d.CompSize, sp)
			if err != nil {
				return err
			}
			parForce := d.rng.Intn(d.parCount)
			for par := 0; par < d.parCount; par++ {
				if d.rng.Float64() < d.Cross || par == parForce {
					switch d.DEType {
					case BestOneBin:
						trial[par] = d.best[par] + d.MutatF*(comp[r[0]][par]-comp[r[1]][par])
					case BestTwoBin:
						trial[par] = d.best[par] + d.MutatK*(comp[r[0]][par]-comp[r[3]][par]) +
							d.MutatF*(comp[r[1]][par]-comp[r[2]][par])
					case RandTwoBin:
						trial[par] = comp[r[0]][par] + d.MutatK*(comp[r[4]][par]-comp[r[3]][par]) +
							d.MutatF*(comp[r[1]][par]-comp[r[2]][par])
					}
					if d.RejectOutside && (trial[par] < d.lower[par] || trial[par] > d.upper[par]) {
						trial[par] = comp[sp][par]
					}
				} else {
					trial[par] = comp[sp][par]
				}
			}
			fit, err := d.evaluate(trial)
			if err != nil {
				return err
			}
			trial[d.parCount] = fit
			if fit < comp[sp][d.parCount] {
				copy(comp[sp], trial)
				if fit < d.best[d.parCount] {
					copy(d.best, trial)
				}
			}
		}
	}
	return nil
}

// randomsWithoutRep draws size distinct indices below upperLimit,
// excluding forbidden.
func (d *DEOptim) randomsWithoutRep(size, upperLimit, forbidden int) ([]int, error) {
	if size >= upperLimit-1 {
		return nil, fmt.Errorf("the limit does not allow to store unique randoms to given array")
	}
	randoms := make([]int, size)
	for r := 0; r < size; r++ {
	draw:
		for {
			candidate := int(d.rng.Float64() * float64(upperLimit))
			if candidate == forbidden {
				continue
			}
			for i := 0; i < r; i++ {
				if candidate == randoms[i] {
					continue draw
				}
			}
			randoms[r] = candidate
			break
		}
	}
	return randoms, nil
}

// Settings returns the method settings as name-value strings.
func (d *DEOptim) Settings() map[string]string {
	sett := d.settings()
	sett["crit"] = d.critType.String()
	sett["DE_type"] = d.DEType.String()
	sett["n_comp"] = strconv.Itoa(d.NComp)
	sett["comp_size"] = strconv.Itoa(d.CompSize)
	sett["cross"] = strconv.FormatFloat(d.Cross, 'g', -1, 64)
	sett["mutat_f"] = strconv.FormatFloat(d.MutatF, 'g', -1, 64)
	sett["mutat_k"] = strconv.FormatFloat(d.MutatK, 'g', -1, 64)
	sett["maxn_shuffles"] = strconv.Itoa(d.MaxShuffles)
	sett["n_gen_comp"] = strconv.Itoa(d.NGenComp)
	sett["ens_count"] = strconv.Itoa(d.EnsCount)
	sett["seed"] = strconv.FormatInt(d.Seed, 10)
	return sett
}

// EnsembleCount returns the number of ensemble runs.
func (d *DEOptim) EnsembleCount() int { return d.EnsCount }

// EnsembleResults returns one row per ensemble run: the best
// parameters, the criterion value (complemented for NS and LNNS) and
// the number of model evaluations.
func (d *DEOptim) EnsembleResults() [][]float64 { return d.ensemble }

// Write writes the ensemble table to a tab-separated file, evaluating
// every criterion for each ensemble's parameters.
func (d *DEOptim) Write(fileName string) error {
	f, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("the output file %q cannot be used: %v", fileName, err)
	}
	defer f.Close()

	fmt.Fprint(f, "ensemble\t")
	for p := 0; p < d.parCount; p++ {
		fmt.Fprintf(f, "%s\t", d.target.ParamName(p))
	}
	fmt.Fprint(f, "OK\t")
	for ct := 0; ct < critCount; ct++ {
		fmt.Fprintf(f, "%s\t", CritType(ct))
	}
	fmt.Fprint(f, "iter\n")

	for ens, row := range d.ensemble {
		fmt.Fprintf(f, "%d\t", ens+1)
		for p := 0; p < d.parCount; p++ {
			fmt.Fprintf(f, "%g\t", row[p])
			d.target.SetParam(p, Curr, row[p])
		}
		fmt.Fprintf(f, "%g\t", row[d.parCount])

		// All criteria other than the calibration one are reported too.
		if err := d.target.Run(d.initGS); err != nil {
			return err
		}
		for ct := MSE; ct <= MAPE; ct++ {
			val, err := d.target.Crit(ct, d.weightBF, d.useWeights)
			if err != nil {
				return err
			}
			if ct.complemented() {
				val = 1 - val
			}
			fmt.Fprintf(f, "%g\t", val)
		}
		fmt.Fprintf(f, "%g\n", row[d.parCount+1])
	}
	return nil
}
