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

// Vegetation zones for the tabulated PET estimation.
const (
	zoneTundra = iota
	zoneConiferous
	zoneMixed
	zoneDeciduous
	zoneForestSteppe
	zoneSteppe
)

// tVegZone holds the mean-temperature limits between vegetation zones.
var tVegZone = [5]float64{0, 5.3, 7.3, 9, 12.8}

// EstimatePETLatitude fills the PET series from temperature and the
// catchment latitude using extraterrestrial radiation. Monthly values
// are summed over the days of the month.
func (m *Model) EstimatePETLatitude(latitude float64) error {
	if m.Var == nil {
		return fmt.Errorf("variables are not initialized for PET estimation")
	}
	if !m.IsInput[T] {
		return fmt.Errorf("temperature needed for PET estimation is missing")
	}
	m.latitude = latitude

	const gsc = 0.0820 // solar constant [MJ/m²/min]
	radLat := math.Pi / 180 * latitude

	for ts := 0; ts < m.timeSteps; ts++ {
		var beginDoy, endDoy int
		switch m.typ {
		case Daily:
			beginDoy = m.Calen[ts].DayOfYear()
			endDoy = beginDoy
		case Monthly:
			beginMonth := m.Calen[ts]
			beginMonth.Day = 1
			endMonth := m.Calen[ts]
			endMonth.Increase(Month)
			endMonth.Day = 1
			endMonth.Decrease(Day)
			beginDoy = beginMonth.DayOfYear()
			endDoy = endMonth.DayOfYear()
		}

		daysInYear := 365.0
		if m.Calen[ts].IsLeap() {
			daysInYear = 366
		}

		m.Var[ts][PET] = 0
		for doy := beginDoy; doy <= endDoy; doy++ {
			dr := 1 + 0.033*math.Cos(float64(doy)*2*math.Pi/daysInYear)
			delta := 0.409 * math.Sin(float64(doy)*2*math.Pi/daysInYear-1.39)
			om := math.Acos(-math.Tan(radLat) * math.Tan(delta))
			ra := (24 * 60) / math.Pi * gsc * dr *
				(om*math.Sin(radLat)*math.Sin(delta) + math.Cos(radLat)*math.Cos(delta)*math.Sin(om))

			pet := 0.408 * ra * (m.Var[ts][T] + 5) / 100
			if pet > 0 {
				m.Var[ts][PET] += pet
			}
		}
	}
	m.IsInput[PET] = true
	return nil
}

// EstimatePETTable fills the PET series from temperature and humidity
// using the tabulated values for vegetation zones. The zone follows
// from the mean temperature; between two zones PET is interpolated
// linearly.
func (m *Model) EstimatePETTable() error {
	if m.Var == nil {
		return fmt.Errorf("variables are not initialized for PET estimation")
	}
	if !m.IsInput[T] || !m.IsInput[H] {
		return fmt.Errorf("temperature or humidity needed for PET estimation is missing")
	}

	tSum := 0.0
	for ts := 0; ts < m.timeSteps; ts++ {
		tSum += m.Var[ts][T]
	}
	tMean := tSum / float64(m.timeSteps)

	// Zone for the upper limit; the outermost zones use both limits the
	// same.
	zone := zoneTundra
	for vz := zoneTundra; vz < zoneSteppe; vz++ {
		if tMean > tVegZone[vz] {
			zone = vz + 1
		}
	}

	upperZone := zone
	if zone == zoneSteppe {
		upperZone = zone - 1
	}
	if err := m.petTableZone(upperZone); err != nil {
		return err
	}
	upperPET := make([]float64, m.timeSteps)
	for ts := 0; ts < m.timeSteps; ts++ {
		upperPET[ts] = m.Var[ts][PET]
	}

	if zone != zoneTundra && zone != zoneSteppe {
		if err := m.petTableZone(zone - 1); err != nil {
			return err
		}
	}

	switch zone {
	case zoneTundra, zoneSteppe:
		if m.typ == Daily {
			// The tables are monthly totals.
			for ts := 0; ts < m.timeSteps; ts++ {
				m.Var[ts][PET] /= 30
			}
		}
	default:
		for ts := 0; ts < m.timeSteps; ts++ {
			m.Var[ts][PET] += (tMean - tVegZone[zone-1]) * (upperPET[ts] - m.Var[ts][PET]) /
				(tVegZone[zone] - tVegZone[zone-1])
			if m.typ == Daily {
				m.Var[ts][PET] /= 30
			}
		}
	}
	m.IsInput[PET] = true
	return nil
}

// petTableZone fills the PET series from the table of one vegetation
// zone. The saturation deficit follows from the maximum vapour
// pressure and relative humidity; PET is interpolated from the
// neighbouring tabulated deficits.
func (m *Model) petTableZone(zone int) error {
	// Rows: the first holds the number of tabulated deficits per month,
	// the following rows hold PET for saturation deficits 0, 1, ...
	// Columns are months January through December.
	var table [][12]float64
	switch zone {
	case zoneTundra:
		table = petTundra
	case zoneConiferous:
		table = petConiferous
	case zoneMixed:
		table = petMixed
	case zoneDeciduous:
		table = petDeciduous
	case zoneForestSteppe:
		table = petForestSteppe
	default:
		return fmt.Errorf("unknown vegetation zone %d", zone)
	}

	for ts := 0; ts < m.timeSteps; ts++ {
		// Maximum vapour pressure after Coufal.
		t := m.Var[ts][T] + 273.16
		pom := 273.16 / t
		pom2 := 1 / pom
		var exp1, exp2, exp3 float64
		if m.Var[ts][T] > 0 {
			exp1 = 10.79574*(1-pom) - 0.4342945*5.028*math.Log(pom2)
			exp2 = 1.50475 * 0.0001 * (1 - math.Pow(10, -8.22969*(pom2-1)))
			exp3 = 0.42873*0.001*(math.Pow(10, 4.76955*(1-pom))-1) + 0.78614
		} else {
			exp1 = -9.09685 * (pom - 1)
			exp2 = -3.56654 * 0.4342945 * math.Log(pom)
			exp3 = 0.87682*(1-pom2) + 0.78614
		}
		et := math.Pow(10, exp1+exp2+exp3)
		deficit := et * (100 - m.Var[ts][H]) / 100

		if deficit < 0 {
			return fmt.Errorf("physically impossible: negative value of saturation deficit")
		}
		month := m.Calen[ts].Month - 1
		var pet float64
		if deficit > table[0][month]-1 {
			pet = table[int(table[0][month])][month]
		} else {
			sdUpper := 1
			for deficit >= float64(sdUpper) {
				sdUpper++
			}
			diff := table[sdUpper+1][month] - table[sdUpper][month]
			pet = table[sdUpper][month] + diff*(deficit-float64(sdUpper)+1)
		}
		m.Var[ts][PET] = pet
	}
	return nil
}

// PET as a function of month and saturation deficit for the vegetation
// zones.
var petTundra = [][12]float64{
	{8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8},
	{2, 4.5, 7.5, 23, 23, 11, 6, 3, 1, 1, 1, 1},
	{9, 15.5, 30, 60, 60, 40, 23, 13.5, 5, 3, 3, 5},
	{15, 25.5, 47.5, 78, 78, 57, 37, 22, 9, 5.5, 5.5, 9},
	{21, 35, 58, 90, 90, 69, 50, 30, 12, 7.5, 7.5, 12},
	{26, 44, 67.5, 99, 99, 77.5, 59, 37, 14.5, 9, 9, 14.5},
	{31.5, 51, 75, 107.5, 107.5, 85.5, 65.5, 44, 17, 10, 10, 17},
	{36, 57.5, 82.5, 114.5, 114.5, 94, 71, 50, 19, 11, 11, 19},
	{40, 64, 90, 120, 120, 100, 75, 55.5, 21.5, 12, 12, 21.5},
}

var petConiferous = [][12]float64{
	{11, 11, 11, 11, 11, 11, 11, 11, 11, 11, 11, 11},
	{2, 3, 4, 5, 10, 20, 20, 13, 8, 5, 3, 2},
	{5, 8, 12, 22, 33, 55, 55, 37, 26, 18, 8, 5},
	{8, 13, 19, 36, 51, 74, 74, 56, 42, 29, 13, 8},
	{11, 18, 26, 48, 67, 87, 87, 69, 55, 39, 18, 11},
	{14, 24, 32, 58, 81, 98, 98, 79, 66, 48, 24, 14},
	{17, 28, 36, 67, 94, 107, 107, 88, 74, 55, 28, 17},
	{20, 32, 40, 73, 104, 115, 115, 95, 81, 60, 32, 20},
	{22, 36, 45, 78, 112, 123, 123, 103, 86, 65, 36, 22},
	{25, 39, 48, 82, 119, 129, 129, 108, 92, 69, 39, 25},
	{27, 43, 51, 86, 125, 135, 135, 114, 96, 73, 43, 27},
	{35, 46, 55, 90, 132, 142, 142, 119, 101, 76, 46, 35},
}

var petMixed = [][12]float64{
	{11, 11, 11, 11, 11, 11, 11, 11, 11, 11, 11, 11},
	{3, 3, 4, 10, 17, 28, 22, 12, 7, 5, 3, 3},
	{8, 10, 14, 32, 46, 65, 58, 39, 26, 18, 10, 8},
	{14, 16, 23, 50, 67, 84, 78, 58, 43, 31, 16, 14},
	{19, 23, 30, 64, 82, 95, 91, 72, 55, 42, 23, 19},
	{25, 30, 37, 75, 93, 105, 101, 84, 65, 52, 30, 25},
	{31, 36, 45, 85, 103, 114, 110, 93, 75, 61, 36, 31},
	{37, 42, 52, 94, 111, 122, 117, 102, 83, 69, 42, 37},
	{41, 48, 58, 101, 118, 129, 125, 110, 89, 75, 48, 41},
	{47, 53, 65, 108, 125, 136, 132, 117, 96, 82, 53, 47},
	{52, 59, 72, 114, 133, 142, 138, 124, 102, 88, 59, 52},
	{55, 64, 77, 120, 139, 148, 144, 129, 108, 94, 64, 55},
}

var petDeciduous = [][12]float64{
	{11, 11, 11, 11, 11, 11, 11, 11, 11, 11, 11, 11},
	{4, 5, 6, 10, 20, 33, 26, 15, 10, 6, 5, 4},
	{11, 14, 20, 35, 53, 71, 63, 43, 29, 20, 14, 11},
	{18, 23, 33, 53, 73, 88, 81, 62, 46, 33, 23, 18},
	{29, 31, 45, 67, 86, 98, 92, 75, 59, 45, 31, 29},
	{30, 38, 55, 78, 96, 107, 101, 86, 70, 55, 38, 30},
	{36, 47, 63, 87, 104, 116, 110, 96, 80, 63, 47, 36},
	{42, 55, 72, 96, 112, 124, 117, 104, 89, 72, 55, 42},
	{48, 63, 79, 104, 119, 130, 124, 112, 97, 79, 63, 48},
	{53, 68, 87, 111, 126, 136, 131, 118, 104, 87, 68, 53},
	{58, 74, 93, 118, 133, 144, 138, 126, 110, 93, 74, 58},
	{62, 78, 98, 124, 139, 150, 144, 133, 126, 98, 78, 62},
}

var petForestSteppe = [][12]float64{
	{19, 19, 19, 19, 19, 19, 19, 19, 19, 19, 19, 19},
	{3, 4, 5, 6, 18, 35, 26, 13, 5, 5, 4, 3},
	{13, 17, 23, 35, 54, 72, 66, 43, 29, 20, 17, 13},
	{21, 29, 40, 55, 73, 87, 81, 64, 46, 35, 29, 21},
	{30, 40, 54, 68, 85, 98, 93, 77, 60, 46, 40, 30},
	{37, 49, 65, 80, 95, 108, 104, 88, 71, 57, 49, 37},
	{45, 57, 75, 90, 105, 116, 112, 97, 83, 66, 57, 45},
	{50, 65, 83, 99, 112, 124, 119, 105, 92, 75, 65, 50},
	{57, 71, 90, 106, 120, 131, 126, 113, 100, 83, 71, 57},
	{63, 77, 97, 114, 126, 138, 134, 120, 107, 90, 77, 63},
	{68, 83, 105, 121, 134, 145, 140, 127, 115, 96, 83, 68},
	{74, 88, 111, 126, 139, 150, 145, 133, 120, 102, 88, 74},
	{80, 94, 116, 133, 145, 155, 151, 139, 126, 107, 94, 80},
	{84, 98, 121, 138, 150, 160, 156, 144, 132, 113, 98, 84},
	{89, 103, 126, 143, 155, 165, 161, 149, 137, 118, 103, 89},
	{94, 108, 131, 148, 160, 170, 166, 154, 142, 123, 108, 94},
	{99, 113, 136, 153, 168, 175, 170, 159, 147, 127, 113, 99},
	{104, 118, 140, 157, 158, 179, 174, 163, 151, 132, 118, 104},
	{108, 202, 145, 161, 173, 183, 178, 166, 155, 141, 202, 108},
	{112, 206, 149, 165, 177, 185, 182, 171, 158, 145, 206, 112},
}
