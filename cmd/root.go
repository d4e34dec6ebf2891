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
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MeitarShimoni/SoC-Timer-Verification-Environment/pkg/flow"
	"github.com/MeitarShimoni/SoC-Timer-Verification-Environment/pkg/runner"
	"github.com/MeitarShimoni/SoC-Timer-Verification-Environment/pkg/vsim"
)

var (
	// persistent
	workDir string
	vsimBin string
	topName string
	dryRun  bool
	verbose bool

	// root only
	gui  bool
	seed int
	test string

	logger *zap.Logger
)

// newExecutor is replaced by tests.
var newExecutor = func(cmd *cobra.Command) runner.Executor {
	if dryRun {
		return runner.DryRun{Out: cmd.OutOrStdout()}
	}
	return runner.NewExec(os.Stdin, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "questarun",
	Short: "Run the QuestaSim compile, elaborate and simulate flow",
	Long: `Questarun drives QuestaSim through a complete verification run.
It removes the previous run's artifacts, runs compile.do and elaborate.do
through vsim, then simulates the elaborated snapshot with coverage.

By default the simulation runs in batch mode, writing <test>_<seed>.log,
<test>_<seed>.wlf, covdb.ucdb and coverage_summary.txt. With --gui the
simulator opens its GUI with the DUT hierarchy in the wave window.

The first step that fails ends the run and questarun exits with status 1.`,

	Args:          cobra.NoArgs,
	SilenceErrors: true,
	SilenceUsage:  true,

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = newLogger(cmd.ErrOrStderr(), verbose).With(zap.String("run", uuid.NewString()))
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := baseConfig()
		cfg.Test = test
		cfg.Seed = seed
		if gui {
			cfg.Mode = vsim.GUI
		}
		o := flow.New(cfg, newExecutor(cmd), cmd.OutOrStdout(), logger)
		return o.Run(cmd.Context())
	},
}

// baseConfig applies the persistent flags to the defaults.
func baseConfig() vsim.Config {
	cfg := vsim.Default()
	cfg.Dir = workDir
	cfg.Binary = vsimBin
	cfg.Top = topName
	return cfg
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "C", ".", "Working directory holding compile.do and elaborate.do")
	rootCmd.PersistentFlags().StringVar(&vsimBin, "vsim", vsim.DefaultBinary, "Simulator executable")
	rootCmd.PersistentFlags().StringVar(&topName, "top", vsim.DefaultTop, "Top-level module; must match elaborate.do")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Print the simulator commands without running them")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug diagnostics on stderr")

	rootCmd.Flags().BoolVar(&gui, "gui", false, "Run simulation in GUI mode for debugging.")
	rootCmd.Flags().IntVar(&seed, "seed", vsim.DefaultSeed, "Set the random number seed for simulation.")
	rootCmd.Flags().StringVar(&test, "test", vsim.DefaultTest, "Name of the test. Used for log/wlf filenames.")
}

// Execute runs the command line in args and returns the process exit
// status. A failed step has already been reported by the time this
// returns; anything else is reported here.
func Execute(args []string) int {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	var stepErr *flow.StepError
	if !errors.As(err, &stepErr) {
		fmt.Fprintf(rootCmd.OutOrStdout(), "--- ERROR: An unexpected error occurred: %v ---\n", err)
	}
	return 1
}

