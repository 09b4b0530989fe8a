package main

import (
	"github.com/spf13/cobra"

	"github.com/watchmanhq/watchman/internal/scratch"
)

func cleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove scratch directories and log files, current and rotated, from the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return scratch.Clean(".", scratch.DefaultDirName, scratch.DefaultLogFileName)
		},
	}
}
