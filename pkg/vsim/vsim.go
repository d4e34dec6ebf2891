/*
Copyright © 2023 Jeff Berkowitz (pdxjjb@gmail.com)

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package vsim builds QuestaSim command lines for the compile, elaborate
// and simulate steps of a verification run.

package vsim

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MeitarShimoni/SoC-Timer-Verification-Environment/pkg/runner"
)

// Defaults. The top and snapshot names must agree with elaborate.do.
const (
	DefaultBinary          = "vsim"
	DefaultTop             = "testbench_top"
	DefaultDUT             = "DUT"
	DefaultLibrary         = "work"
	DefaultTest            = "test"
	DefaultSeed            = 1
	DefaultCompileScript   = "compile.do"
	DefaultElaborateScript = "elaborate.do"
	DefaultCoverageDB      = "covdb.ucdb"
	DefaultCoverageReport  = "coverage_summary.txt"

	SnapshotSuffix = "_opt"
)

// Mode selects how the simulate step runs.
type Mode int

const (
	Batch Mode = iota // headless, logs and coverage report, forced quit
	GUI               // interactive, waves added, GUI left open
)

func (m Mode) String() string {
	switch m {
	case Batch:
		return "batch"
	case GUI:
		return "gui"
	}
	return "Mode(" + strconv.Itoa(int(m)) + ")"
}

// Config describes one run. It is a value; copies never share state.
type Config struct {
	Binary          string
	Dir             string // where vsim runs and artifacts land
	Top             string
	DUT             string
	Library         string
	Test            string
	Seed            int
	Mode            Mode
	CompileScript   string
	ElaborateScript string
	CoverageDB      string
	CoverageReport  string
}

// Default returns the configuration of a plain batch run of "test" with
// seed 1.
func Default() Config {
	return Config{
		Binary:          DefaultBinary,
		Top:             DefaultTop,
		DUT:             DefaultDUT,
		Library:         DefaultLibrary,
		Test:            DefaultTest,
		Seed:            DefaultSeed,
		Mode:            Batch,
		CompileScript:   DefaultCompileScript,
		ElaborateScript: DefaultElaborateScript,
		CoverageDB:      DefaultCoverageDB,
		CoverageReport:  DefaultCoverageReport,
	}
}

// Validate rejects configurations that cannot produce a usable command.
func (c Config) Validate() error {
	switch {
	case c.Binary == "":
		return fmt.Errorf("vsim: simulator binary not set")
	case c.Top == "":
		return fmt.Errorf("vsim: top-level module not set")
	case !isName(c.Top):
		return fmt.Errorf("vsim: top-level module %q is not a plain name", c.Top)
	case c.DUT == "":
		return fmt.Errorf("vsim: DUT instance not set")
	case !isName(c.DUT):
		return fmt.Errorf("vsim: DUT instance %q is not a plain name", c.DUT)
	case c.Library == "":
		return fmt.Errorf("vsim: work library not set")
	case c.Test == "":
		return fmt.Errorf("vsim: test name not set")
	case strings.ContainsAny(c.Test, `/\`):
		return fmt.Errorf("vsim: test name %q must not contain a path separator", c.Test)
	case c.CompileScript == "" || c.ElaborateScript == "":
		return fmt.Errorf("vsim: compile and elaborate scripts must be set")
	case c.CoverageDB == "" || c.CoverageReport == "":
		return fmt.Errorf("vsim: coverage database and report names must be set")
	case c.Mode != Batch && c.Mode != GUI:
		return fmt.Errorf("vsim: unknown mode %v", c.Mode)
	}
	return nil
}

// isName reports whether s can name a design unit and the snapshot
// directory derived from it.
func isName(s string) bool {
	return !strings.ContainsAny(s, `/\`) && !strings.Contains(s, "..")
}

// Snapshot is the name of the optimized design produced by elaboration.
func (c Config) Snapshot() string {
	return c.Top + SnapshotSuffix
}

// LogFile is the transcript written by a batch run.
func (c Config) LogFile() string {
	return fmt.Sprintf("%s_%d.log", c.Test, c.Seed)
}

// WaveFile is the waveform database written by a batch run.
func (c Config) WaveFile() string {
	return fmt.Sprintf("%s_%d.wlf", c.Test, c.Seed)
}

// WavePath is the hierarchy traced in GUI mode.
func (c Config) WavePath() string {
	return "sim:/" + c.Top + "/" + c.DUT + "/*"
}

// Compile returns the command that runs the compile script.
func (c Config) Compile() runner.Command {
	return c.doScript(c.CompileScript)
}

// Elaborate returns the command that runs the elaboration script.
func (c Config) Elaborate() runner.Command {
	return c.doScript(c.ElaborateScript)
}

func (c Config) doScript(script string) runner.Command {
	return c.command("-c", "-do", "do "+script)
}

// Simulate returns the command for the run phase in c.Mode.
func (c Config) Simulate() runner.Command {
	args := []string{
		"-coverage",
		"-L", c.Library,
		"-voptargs=+acc",
		"-sv_seed", strconv.Itoa(c.Seed),
		c.Snapshot(),
	}
	if c.Mode == GUI {
		args = append(args, "-gui")
	} else {
		args = append(args, "-c", "-logfile", c.LogFile(), "-wlf", c.WaveFile())
	}
	args = append(args, "-do", Script(c.SimulateScript()))
	return c.command(args...)
}

// SimulateScript lists the Tcl commands vsim executes for c.Mode.
func (c Config) SimulateScript() []string {
	if c.Mode == GUI {
		return []string{
			"add wave -r " + c.WavePath(),
			"onfinish stop",
			"run -all",
			"coverage save " + c.CoverageDB,
		}
	}
	return []string{
		"run -all",
		"coverage save " + c.CoverageDB,
		"coverage report -file " + c.CoverageReport + " -byfile -detail -noannot",
		"quit -f",
	}
}

// Script joins Tcl commands into the single argument given to -do.
func Script(cmds []string) string {
	return strings.Join(cmds, "; ")
}

func (c Config) command(args ...string) runner.Command {
	return runner.Command{Path: c.Binary, Args: args, Dir: c.Dir}
}
