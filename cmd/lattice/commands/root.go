package commands

import (
	"os"

	btclogv1 "github.com/btcsuite/btclog"
	btclog "github.com/btcsuite/btclog/v2"
	"github.com/roasbeef/lattice/actor"
	"github.com/roasbeef/lattice/thread"
	"github.com/spf13/cobra"
)

var (
	// debug enables debug logging on stderr.
	debug bool
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "lattice",
	Short: "Lattice actor runtime demos",
	Long: `Lattice is a cooperative actor runtime: hierarchies of
message-passing actors grouped under supervisors, driven by host loops.

The subcommands run small self-contained demos of the runtime.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if !debug {
			return
		}

		handler := btclog.NewDefaultHandler(os.Stderr)
		handler.SetLevel(btclogv1.LevelDebug)
		logger := btclog.NewSLogger(handler)

		actor.UseLogger(logger)
		thread.UseLogger(logger)
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(
		&debug, "debug", false,
		"Enable debug logging on stderr",
	)
}
