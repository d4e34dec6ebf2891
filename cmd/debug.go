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
	"github.com/spf13/cobra"

	"github.com/MeitarShimoni/SoC-Timer-Verification-Environment/pkg/flow"
	"github.com/MeitarShimoni/SoC-Timer-Verification-Environment/pkg/vsim"
)

// debugCmd represents the debug command
var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Build the design and open it in the QuestaSim GUI",
	Long: `Debug cleans, compiles and elaborates like the default command,
then always opens the simulator GUI with the default test name and seed.

Only the compile and elaborate steps are checked. The GUI's exit status
is logged but never fails the command, since closing the GUI before the
simulation finishes is the normal way to leave a debug session.
`,

	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := baseConfig()
		cfg.Mode = vsim.GUI
		o := flow.New(cfg, newExecutor(cmd), cmd.OutOrStdout(), logger)
		o.Simulate = flow.Ignored
		return o.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
}
