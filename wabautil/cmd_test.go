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

package wabautil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hydromodel/waba"
)

func TestInitializeConfigDefaults(t *testing.T) {
	cfg := InitializeConfig()
	if cfg.GetString("ModelType") != "daily" {
		t.Errorf("ModelType default = %q", cfg.GetString("ModelType"))
	}
	if cfg.GetFloat64("InitGS") != 50 {
		t.Errorf("InitGS default = %g", cfg.GetFloat64("InitGS"))
	}
	if cfg.GetInt("DE.NComp") != 3 {
		t.Errorf("DE.NComp default = %d", cfg.GetInt("DE.NComp"))
	}
	found := false
	for _, name := range cfg.InputFiles() {
		if name == "InputFile" {
			found = true
		}
	}
	if !found {
		t.Error("InputFile not registered as an input file option")
	}
}

func TestOptionParsers(t *testing.T) {
	if typ, err := modelType("M"); err != nil || typ != waba.Monthly {
		t.Errorf("modelType(M) = %v, %v", typ, err)
	}
	if _, err := modelType("weekly"); err == nil {
		t.Error("unknown model type should fail")
	}
	if out, err := outputType("chars"); err != nil || out != waba.OutChars {
		t.Errorf("outputType(chars) = %v, %v", out, err)
	}
	if _, err := outputType("yearly"); err == nil {
		t.Error("unknown output type should fail")
	}
	if dt, err := deType("rand_two_bin"); err != nil || dt != waba.RandTwoBin {
		t.Errorf("deType = %v, %v", dt, err)
	}
	if _, err := deType("worst_one_bin"); err == nil {
		t.Error("unknown DE type should fail")
	}
}

func TestRunModelEndToEnd(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.txt")
	content := "1990 1 1 100\n"
	for d := 0; d < 40; d++ {
		content += "5 2 10\n"
	}
	if err := os.WriteFile(input, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(dir, "output.txt")

	cfg := InitializeConfig()
	cfg.Set("InputFile", input)
	cfg.Set("InputVars", []string{"P", "PET", "T"})
	cfg.Set("OutputFile", output)
	cfg.Set("OutputType", "series")

	if err := RunModel(cfg); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(b), "Initial\n1990-1-1\n") {
		t.Error("output file misses the initial date")
	}
	if !strings.Contains(string(b), "Spa\t") {
		t.Error("output file misses the parameters")
	}
}
