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

package flow_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/MeitarShimoni/SoC-Timer-Verification-Environment/pkg/flow"
	"github.com/MeitarShimoni/SoC-Timer-Verification-Environment/pkg/runner"
	"github.com/MeitarShimoni/SoC-Timer-Verification-Environment/pkg/vsim"
)

// fakeSim stands in for vsim. Codes are consumed one per call; calls
// beyond the list exit 0.
type fakeSim struct {
	codes   []int
	err     error         // returned by every call
	errOnly map[int]error // returned by the call with this index
	calls   []runner.Command
}

func (f *fakeSim) Execute(_ context.Context, c runner.Command) (int, error) {
	f.calls = append(f.calls, c)
	if f.err != nil {
		return -1, f.err
	}
	i := len(f.calls) - 1
	if err, ok := f.errOnly[i]; ok {
		return -1, err
	}
	if i < len(f.codes) {
		return f.codes[i], nil
	}
	return 0, nil
}

func writeFile(dir, name string) {
	p := filepath.Join(dir, name)
	Expect(os.MkdirAll(filepath.Dir(p), 0o755)).To(Succeed())
	Expect(os.WriteFile(p, []byte("x"), 0o644)).To(Succeed())
}

func hasArg(c runner.Command, arg string) bool {
	for _, a := range c.Args {
		if a == arg {
			return true
		}
	}
	return false
}

var _ = Describe("Orchestrator", func() {
	var (
		dir string
		cfg vsim.Config
		sim *fakeSim
		out *bytes.Buffer
		o   *flow.Orchestrator
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		writeFile(dir, "compile.do")
		writeFile(dir, "elaborate.do")

		cfg = vsim.Default()
		cfg.Dir = dir
		sim = &fakeSim{}
		out = &bytes.Buffer{}
		o = flow.New(cfg, sim, out, zap.NewNop())
	})

	Describe("a successful batch run", func() {
		BeforeEach(func() {
			cfg.Test = "foo"
			cfg.Seed = 42
			o.Config = cfg
		})

		It("runs compile, elaborate and simulate in order", func() {
			Expect(o.Run(context.Background())).To(Succeed())
			Expect(sim.calls).To(HaveLen(3))
			Expect(sim.calls[0].Args).To(Equal([]string{"-c", "-do", "do compile.do"}))
			Expect(sim.calls[1].Args).To(Equal([]string{"-c", "-do", "do elaborate.do"}))
			Expect(sim.calls[2].Args).To(ContainElements("-logfile", "foo_42.log", "-wlf", "foo_42.wlf"))
			for _, c := range sim.calls {
				Expect(c.Dir).To(Equal(dir))
			}
		})

		It("reports each step and the summary", func() {
			Expect(o.Run(context.Background())).To(Succeed())
			s := out.String()
			Expect(s).To(ContainSubstring("INFO: Cleaning up previous run files..."))
			Expect(s).To(ContainSubstring("INFO: Cleanup completed."))
			for _, step := range []string{"Compile", "Elaborate", "Simulate"} {
				Expect(s).To(ContainSubstring("--- INFO: Starting Step: " + step + " ---"))
				Expect(s).To(ContainSubstring("--- INFO: Step '" + step + "' finished OK ---"))
			}
			Expect(s).To(ContainSubstring("INFO: Batch mode detected. Running in Batch..."))
			Expect(s).To(ContainSubstring("Executing: vsim -c -do 'do compile.do'"))
			Expect(s).To(HaveSuffix("--- INFO: All steps completed. Check foo_42.log and coverage_summary.txt ---\n"))
		})

		It("clears the previous run's artifacts first", func() {
			writeFile(dir, "work/_info")
			writeFile(dir, "testbench_top_opt/_data")
			writeFile(dir, "old_3.log")
			writeFile(dir, "transcript")

			Expect(o.Run(context.Background())).To(Succeed())
			for _, gone := range []string{"work", "testbench_top_opt", "old_3.log", "transcript"} {
				_, err := os.Stat(filepath.Join(dir, gone))
				Expect(os.IsNotExist(err)).To(BeTrue(), gone)
			}
			_, err := os.Stat(filepath.Join(dir, "compile.do"))
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("GUI mode", func() {
		BeforeEach(func() {
			cfg.Mode = vsim.GUI
			o.Config = cfg
		})

		It("adds waves for the DUT and omits the log file", func() {
			Expect(o.Run(context.Background())).To(Succeed())
			simulate := sim.calls[2]
			Expect(hasArg(simulate, "-gui")).To(BeTrue())
			Expect(hasArg(simulate, "-logfile")).To(BeFalse())
			Expect(simulate.Args[len(simulate.Args)-1]).To(HavePrefix("add wave -r sim:/testbench_top/DUT/*"))
		})

		It("announces the GUI and prints no batch summary", func() {
			Expect(o.Run(context.Background())).To(Succeed())
			Expect(out.String()).To(ContainSubstring("INFO: GUI mode detected. Opening GUI..."))
			Expect(out.String()).NotTo(ContainSubstring("All steps completed"))
		})
	})

	Describe("failures", func() {
		It("stops after a failed compile", func() {
			sim.codes = []int{2}
			err := o.Run(context.Background())

			var stepErr *flow.StepError
			Expect(errors.As(err, &stepErr)).To(BeTrue())
			Expect(stepErr.Step).To(Equal(flow.StepCompile))
			Expect(stepErr.Code).To(Equal(2))
			Expect(sim.calls).To(HaveLen(1))
			Expect(out.String()).To(ContainSubstring("--- ERROR: Step 'Compile' failed with code 2 ---"))
			Expect(out.String()).NotTo(ContainSubstring("Starting Step: Elaborate"))
		})

		It("stops after a failed elaborate", func() {
			sim.codes = []int{0, 1}
			err := o.Run(context.Background())

			var stepErr *flow.StepError
			Expect(errors.As(err, &stepErr)).To(BeTrue())
			Expect(stepErr.Step).To(Equal(flow.StepElaborate))
			Expect(sim.calls).To(HaveLen(2))
		})

		It("names Simulate when only the simulation fails", func() {
			sim.codes = []int{0, 0, 3}
			err := o.Run(context.Background())

			Expect(err).To(MatchError("step 'Simulate' failed with code 3"))
			Expect(sim.calls).To(HaveLen(3))
			Expect(out.String()).To(ContainSubstring("--- ERROR: Step 'Simulate' failed with code 3 ---"))
			Expect(out.String()).NotTo(ContainSubstring("All steps completed"))
		})

		It("treats an unstartable simulator as a failed step", func() {
			sim.err = errors.New("exec: \"vsim\": executable file not found in $PATH")
			err := o.Run(context.Background())

			var stepErr *flow.StepError
			Expect(errors.As(err, &stepErr)).To(BeTrue())
			Expect(stepErr.Step).To(Equal(flow.StepCompile))
			Expect(stepErr.Code).To(Equal(-1))
			Expect(errors.Is(err, sim.err)).To(BeTrue())
		})

		It("refuses to start without the do scripts", func() {
			Expect(os.Remove(filepath.Join(dir, "elaborate.do"))).To(Succeed())
			err := o.Run(context.Background())

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("elaborate.do"))
			var stepErr *flow.StepError
			Expect(errors.As(err, &stepErr)).To(BeFalse())
			Expect(sim.calls).To(BeEmpty())
		})

		It("rejects an invalid configuration before touching anything", func() {
			writeFile(dir, "keep.log")
			cfg.Test = ""
			o.Config = cfg

			Expect(o.Run(context.Background())).NotTo(Succeed())
			Expect(sim.calls).To(BeEmpty())
			_, err := os.Stat(filepath.Join(dir, "keep.log"))
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("ignoring the simulate status", func() {
		BeforeEach(func() {
			cfg.Mode = vsim.GUI
			o.Config = cfg
			o.Simulate = flow.Ignored
		})

		It("succeeds even when the GUI exits non-zero", func() {
			sim.codes = []int{0, 0, 4}
			Expect(o.Run(context.Background())).To(Succeed())
			Expect(sim.calls).To(HaveLen(3))
			Expect(out.String()).To(ContainSubstring("--- INFO: Starting Step: Simulate ---"))
			Expect(out.String()).NotTo(ContainSubstring("ERROR"))
		})

		It("succeeds when the GUI cannot be started", func() {
			sim.errOnly = map[int]error{2: errors.New("exec: \"vsim\": executable file not found in $PATH")}
			Expect(o.Run(context.Background())).To(Succeed())
			Expect(sim.calls).To(HaveLen(3))
			s := out.String()
			Expect(s).To(ContainSubstring("--- INFO: Step 'Compile' finished OK ---"))
			Expect(s).To(ContainSubstring("--- INFO: Step 'Elaborate' finished OK ---"))
			Expect(s).NotTo(ContainSubstring("--- INFO: Step 'Simulate' finished OK ---"))
			Expect(s).NotTo(ContainSubstring("ERROR"))
		})

		It("still gates compile and elaborate", func() {
			sim.codes = []int{0, 5}
			Expect(o.Run(context.Background())).NotTo(Succeed())
			Expect(sim.calls).To(HaveLen(2))
		})
	})

	Describe("Clean", func() {
		It("is safe on an empty directory", func() {
			r := o.Clean()
			Expect(r.Removed).To(BeEmpty())
			Expect(strings.Count(out.String(), "INFO:")).To(Equal(2))
			Expect(sim.calls).To(BeEmpty())
		})
	})
})
