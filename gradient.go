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
	"os"
	"strconv"
)

// GradientOptim calibrates parameters by coordinate descent with step
// bisection, in two phases: the first phase varies all parameters
// under Crit[0], the second freezes the first FixedParamCount
// parameters at their phase-one optimum and varies the rest under
// Crit[1].
type GradientOptim struct {
	optimSettings

	Crit    [2]CritType // criterion for each phase
	MaxIter int         // iteration limit per phase

	bisecLimit int

	isFix       bool // second phase with fixed parameters
	parFixCount int

	ap     []float64 // current parameter values
	fixp   []float64 // values frozen after the first phase
	ddelta []float64 // relative step
	delta  []float64 // absolute step
	prevp  []float64 // previous parameter values
	tmpp   []float64

	isCloseLow []bool // parameter close to its lower limit
	isCloseUpp []bool // parameter close to its upper limit
	nsign      []bool // sign of the last accepted change
	les        []bool // preferred direction is downward

	lc       int
	prevStep int // type of the previous change: 0 none, 1 first try, 2 opposite
	par      int // parameter currently being changed
	nsave    bool

	// Criterion values: current, best since the last reset, best after
	// a change of all parameters.
	ys, yx, yy float64

	iter  int
	bisec int

	start, end bool
}

// NewGradientOptim creates a gradient optimizer for the given target
// with the default settings.
func NewGradientOptim(target Calibratable) *GradientOptim {
	g := &GradientOptim{
		Crit:       [2]CritType{MSE, MAPE},
		MaxIter:    500,
		bisecLimit: 30,
	}
	g.target = target
	g.initGS = 50
	return g
}

// Set stores the calibration options: the criteria of the two phases,
// the baseflow weight, timestep weighting, the iteration limit and the
// initial groundwater storage.
func (g *GradientOptim) Set(critPhase1, critPhase2 CritType, weightBF float64, useWeights bool, maxIter int, initGS float64) error {
	if err := g.set(critPhase1, weightBF, useWeights, initGS); err != nil {
		return err
	}
	g.Crit[0] = critPhase1
	g.Crit[1] = critPhase2
	g.MaxIter = maxIter
	return nil
}

// Optimize calibrates the target's parameters. A failed run leaves the
// parameters as last probed.
func (g *GradientOptim) Optimize() error {
	if err := g.init(); err != nil {
		return err
	}
	g.parFixCount = g.target.FixedParamCount()
	n := g.parCount
	g.ap = make([]float64, n)
	g.fixp = make([]float64, g.parFixCount)
	g.ddelta = make([]float64, n)
	g.delta = make([]float64, n)
	g.prevp = make([]float64, n)
	g.tmpp = make([]float64, n)
	g.isCloseLow = make([]bool, n)
	g.isCloseUpp = make([]bool, n)
	g.nsign = make([]bool, n)
	g.les = make([]bool, n)

	for pass := 0; pass <= 1; pass++ {
		g.isFix = pass == 1
		for p := 0; p < n; p++ {
			g.target.SetParam(p, Curr, g.target.Param(p, Init))
			g.ap[p] = g.target.Param(p, Curr)
			g.ddelta[p] = 0.1
		}
		g.start, g.end = true, false

		for {
			if g.isFix {
				for p := 0; p < g.parFixCount; p++ {
					g.target.SetParam(p, Curr, g.fixp[p])
				}
			}
			if err := g.target.Run(g.initGS); err != nil {
				return err
			}
			ok, err := g.target.Crit(g.Crit[pass], g.weightBF, g.useWeights)
			if err != nil {
				return err
			}
			g.ok = ok

			if !g.start && g.end {
				if !g.isFix {
					for p := 0; p < g.parFixCount; p++ {
						g.fixp[p] = g.target.Param(p, Curr)
					}
				}
				break
			}
			if err := g.opti(); err != nil {
				return err
			}
			for p := 0; p < n; p++ {
				g.target.SetParam(p, Curr, g.ap[p])
			}
		}
		// NS criteria are calibrated toward their minimum residual and
		// reported complemented.
		if g.Crit[pass].complemented() {
			g.ok = 1 - g.ok
		}
	}
	return nil
}

// opti advances the search by one model evaluation: it books the
// criterion of the last run and prepares the next parameter change,
// bisecting the steps when a whole round brought no improvement.
func (g *GradientOptim) opti() error {
	if g.start {
		g.bisec = 0
		for p := 0; p < g.parCount; p++ {
			g.les[p] = false
			g.prevp[p], g.tmpp[p] = g.ap[p], g.ap[p]
			g.isCloseLow[p], g.isCloseUpp[p] = false, false

			g.delta[p] = math.Abs(g.ddelta[p] * g.ap[p])
			if g.ap[p]-1.01*g.delta[p] < g.lower[p]+g.lower[p]*numericEps {
				return fmt.Errorf("initial value of parameter %q is too close to its lower limit", g.target.ParamName(p))
			}
			if g.ap[p]+1.01*g.delta[p] > g.upper[p]-g.upper[p]*numericEps {
				return fmt.Errorf("initial value of parameter %q is too close to its upper limit", g.target.ParamName(p))
			}
		}
		g.lc = 0
		if g.isFix {
			g.par, g.iter = g.parFixCount, g.parFixCount
		} else {
			g.par, g.iter = 0, 0
		}
		g.yx = g.ok
		g.yy = g.yx
		g.prevStep = 0
		g.start = false
		g.nsave = false
	}
	g.ys = g.ok
	g.iter++
	if g.iter > g.MaxIter {
		g.end = true
		return nil
	}
	for {
		if g.subOpti() {
			return nil
		}
		g.lc++
		if g.lc > 1 && g.bisec >= g.bisecLimit {
			g.end = true
			return nil
		}
		if g.lc > 1 || g.nsave {
			g.nsave = false
			for p := 0; p < g.parCount; p++ {
				g.ddelta[p] *= 0.8
				g.delta[p] *= 0.8
			}
			g.bisec++
		} else {
			copy(g.ap, g.prevp)
		}
	}
}

// subOpti changes one parameter at a time, trying the preferred
// direction first and the opposite one when the first is bounded or
// brought no improvement. It returns true when a new candidate is
// ready for evaluation.
func (g *GradientOptim) subOpti() bool {
	if g.prevStep > 0 {
		if g.ys < g.yx-g.yx*numericEps { // the change performed better, go to the next parameter
			g.yx = g.ys
			g.prevStep = 0
			g.par++
		}
	} else {
		g.prevStep = 0
		if g.ys < g.yy-g.yy*numericEps {
			g.nsave = true
			g.yx = g.ys
			g.yy = g.ys
		}
	}

	for g.par < g.parCount {
		var iclose1, iclose2 []bool
		if g.les[g.par] {
			iclose1, iclose2 = g.isCloseLow, g.isCloseUpp
		} else {
			iclose1, iclose2 = g.isCloseUpp, g.isCloseLow
		}

		if g.prevStep == 0 {
			if g.les[g.par] {
				g.ap[g.par] -= g.delta[g.par]
				g.nsign[g.par] = true
			} else {
				g.ap[g.par] += g.delta[g.par]
				g.nsign[g.par] = false
			}
			if !iclose1[g.par] {
				g.prevStep = 1
				return true
			}
		}
		if g.prevStep != 2 {
			if g.les[g.par] {
				g.ap[g.par] += 2 * g.delta[g.par]
				g.nsign[g.par] = false
			} else {
				g.ap[g.par] -= 2 * g.delta[g.par]
				g.nsign[g.par] = true
			}
			if !iclose2[g.par] {
				g.prevStep = 2
				return true
			}
		}

		if g.les[g.par] {
			g.ap[g.par] -= g.delta[g.par]
			g.nsign[g.par] = true
		} else {
			g.ap[g.par] += g.delta[g.par]
			g.nsign[g.par] = false
		}
		g.prevStep = 0
		g.par++
	}
	// Iterations advance for skipped fixed parameters too, keeping the
	// budget comparable between the phases.
	if g.isFix {
		g.par = g.parFixCount
		g.iter += g.parFixCount
	} else {
		g.par = 0
	}

	if g.yy >= g.yx-g.yx*numericEps && g.yy <= g.yx+g.yx*numericEps {
		return false // no improvement after a change of all parameters
	}
	g.yy = g.yx
	g.extrapolate()
	return true
}

// extrapolate takes one more step in the accepted direction of each
// parameter after a successful round, clamping close to the limits.
func (g *GradientOptim) extrapolate() {
	for p := 0; p < g.parCount; p++ {
		g.delta[p] = math.Abs(g.ddelta[p] * g.ap[p])
	}
	g.lc = 0
	g.nsave = false
	for p := 0; p < g.parCount; p++ {
		g.les[p] = g.nsign[p]
		g.tmpp[p] = g.ap[p]
		g.ap[p] = 2*g.ap[p] - g.prevp[p]
		g.prevp[p] = g.tmpp[p]
		checkLow := g.ap[p] - 1.01*g.delta[p]
		checkUpp := g.ap[p] + 1.01*g.delta[p]
		if checkLow > g.lower[p]+g.lower[p]*numericEps {
			g.isCloseLow[p] = false
		} else {
			g.isCloseLow[p] = true
			g.ap[p] = g.prevp[p]
		}
		if checkUpp < g.upper[p]-g.upper[p]*numericEps {
			g.isCloseUpp[p] = false
		} else {
			g.isCloseUpp[p] = true
			g.ap[p] = g.prevp[p]
		}
	}
}

// Settings returns the method settings as name-value strings.
func (g *GradientOptim) Settings() map[string]string {
	sett := g.settings()
	sett["crit_part1"] = g.Crit[0].String()
	sett["crit_part2"] = g.Crit[1].String()
	sett["max_iter"] = strconv.Itoa(g.MaxIter)
	return sett
}

// EnsembleCount returns zero; the gradient method has no ensembles.
func (g *GradientOptim) EnsembleCount() int { return 0 }

// EnsembleResults returns nil; the gradient method has no ensembles.
func (g *GradientOptim) EnsembleResults() [][]float64 { return nil }

// Write writes the calibrated parameters and criterion value to a
// tab-separated file.
func (g *GradientOptim) Write(fileName string) error {
	f, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("the output file %q cannot be used: %v", fileName, err)
	}
	defer f.Close()
	for p := 0; p < g.parCount; p++ {
		fmt.Fprintf(f, "%s\t", g.target.ParamName(p))
	}
	fmt.Fprint(f, "OK\n")
	for p := 0; p < g.parCount; p++ {
		fmt.Fprintf(f, "%g\t", g.target.Param(p, Curr))
	}
	fmt.Fprintf(f, "%g\n", g.ok)
	return nil
}
