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

// Package flow sequences a verification run: cleanup, compile,
// elaborate, simulate. The first failing step ends the run.
//
// Progress is printed as plain lines on Out. Regression wrappers grep
// for "finished OK" and "failed with code", so the wording is fixed.

package flow

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/MeitarShimoni/SoC-Timer-Verification-Environment/pkg/cleanup"
	"github.com/MeitarShimoni/SoC-Timer-Verification-Environment/pkg/runner"
	"github.com/MeitarShimoni/SoC-Timer-Verification-Environment/pkg/vsim"
)

// Step names as they appear in progress messages.
const (
	StepCompile   = "Compile"
	StepElaborate = "Elaborate"
	StepSimulate  = "Simulate"
)

// SimulateStatus says whether the simulate step's exit code is gated.
type SimulateStatus int

const (
	// Checked fails the run when vsim exits non-zero.
	Checked SimulateStatus = iota
	// Ignored logs a non-zero exit and carries on. The debug entry
	// point uses this because a user closing the GUI early is normal.
	Ignored
)

// StepError reports a step that did not finish OK.
type StepError struct {
	Step string
	Code int   // exit code, -1 if the process never ran
	Err  error // set when the process could not be started
}

func (e *StepError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("step '%s' could not run: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("step '%s' failed with code %d", e.Step, e.Code)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Orchestrator runs one configuration through the whole flow.
type Orchestrator struct {
	Config   vsim.Config
	Exec     runner.Executor
	Out      io.Writer
	Logger   *zap.Logger
	Simulate SimulateStatus
}

// New returns an Orchestrator that checks every step.
func New(cfg vsim.Config, exec runner.Executor, out io.Writer, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{Config: cfg, Exec: exec, Out: out, Logger: logger}
}

// Run performs cleanup, build and simulate in order. It returns a
// *StepError for a failed step; any other error means the run never
// started.
func (o *Orchestrator) Run(ctx context.Context) error {
	cfg := o.Config
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.logger().Debug("run configuration",
		zap.String("dir", cfg.Dir), zap.String("top", cfg.Top),
		zap.String("test", cfg.Test), zap.Int("seed", cfg.Seed),
		zap.Stringer("mode", cfg.Mode))

	o.Clean()

	if err := o.checkScripts(); err != nil {
		return err
	}
	if err := o.Build(ctx); err != nil {
		return err
	}
	if err := o.runSimulate(ctx); err != nil {
		return err
	}

	if cfg.Mode == vsim.Batch {
		o.printf("\n--- INFO: All steps completed. Check %s and %s ---\n", cfg.LogFile(), cfg.CoverageReport)
	}
	return nil
}

// Clean removes the previous run's artifacts from the working directory.
func (o *Orchestrator) Clean() cleanup.Result {
	o.printf("INFO: Cleaning up previous run files...\n")
	r := cleanup.Clean(o.Config.Dir, cleanup.Defaults(o.Config.Snapshot()), o.logger())
	o.printf("INFO: Cleanup completed.\n")
	return r
}

// Build runs the compile and elaborate steps.
func (o *Orchestrator) Build(ctx context.Context) error {
	if err := o.step(ctx, StepCompile, o.Config.Compile()); err != nil {
		return err
	}
	return o.step(ctx, StepElaborate, o.Config.Elaborate())
}

func (o *Orchestrator) runSimulate(ctx context.Context) error {
	if o.Config.Mode == vsim.GUI {
		o.printf("INFO: GUI mode detected. Opening GUI...\n")
	} else {
		o.printf("INFO: Batch mode detected. Running in Batch...\n")
	}
	c := o.Config.Simulate()
	if o.Simulate == Ignored {
		o.announce(StepSimulate, c)
		code, err := o.Exec.Execute(ctx, c)
		if err != nil || code != 0 {
			o.logger().Warn("simulate status ignored", zap.Int("code", code), zap.Error(err))
			return nil
		}
		o.printf("--- INFO: Step '%s' finished OK ---\n", StepSimulate)
		return nil
	}
	return o.step(ctx, StepSimulate, c)
}

func (o *Orchestrator) announce(name string, c runner.Command) {
	o.printf("\n--- INFO: Starting Step: %s ---\n", name)
	o.printf("Executing: %s\n", c)
}

// step runs one command and gates on its exit code.
func (o *Orchestrator) step(ctx context.Context, name string, c runner.Command) error {
	o.announce(name, c)

	code, err := o.Exec.Execute(ctx, c)
	if err != nil {
		o.printf("\n--- ERROR: Step '%s' failed with code %d ---\n", name, code)
		return &StepError{Step: name, Code: code, Err: err}
	}
	if code != 0 {
		o.printf("\n--- ERROR: Step '%s' failed with code %d ---\n", name, code)
		return &StepError{Step: name, Code: code}
	}
	o.printf("--- INFO: Step '%s' finished OK ---\n", name)
	return nil
}

// checkScripts verifies the externally authored do files are present.
// A dry run still checks; it is meant to catch exactly this.
func (o *Orchestrator) checkScripts() error {
	for _, s := range []string{o.Config.CompileScript, o.Config.ElaborateScript} {
		p := filepath.Join(o.Config.Dir, s)
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("script %s: %w", s, err)
		}
	}
	return nil
}

func (o *Orchestrator) printf(format string, args ...any) {
	if o.Out == nil {
		return
	}
	fmt.Fprintf(o.Out, format, args...)
}

func (o *Orchestrator) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}
