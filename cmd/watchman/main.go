// Command watchman supervises a set of scheduled filesystem/VCS monitors,
// each running an ordered callback pipeline whenever its targets change.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/watchmanhq/watchman/internal/env"
)

func main() {
	env.Load()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "watchman",
		Short: "Schedule filesystem and VCS watchers and run their callback pipelines",
	}
	root.PersistentFlags().StringP("config", "c", "watchman.yaml", "path to the job config file")
	root.AddCommand(runCmd(), listTargetsCmd(), listScheduleCmd(), cleanCmd())
	return root
}
