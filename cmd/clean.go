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
)

// cleanCmd represents the clean command
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the artifacts of previous simulation runs",
	Long: `Clean deletes the work library, the elaborated snapshot directory,
log and waveform files, the transcript and coverage databases from the
working directory. Missing files are not an error.`,

	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := baseConfig()
		if err := cfg.Validate(); err != nil {
			return err
		}
		flow.New(cfg, nil, cmd.OutOrStdout(), logger).Clean()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
