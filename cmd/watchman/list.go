package main

import (
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/watchmanhq/watchman/internal/config"
	"github.com/watchmanhq/watchman/internal/monitor"
	"github.com/watchmanhq/watchman/internal/scratch"
)

func newTable(columns ...interface{}) table.Table {
	headerFmt := color.New(color.FgGreen, color.Underline).SprintfFunc()
	tbl := table.New(columns...)
	tbl.WithHeaderFormatter(headerFmt)
	return tbl
}

func loadMonitors(cfgPath string) ([]*monitor.Monitor, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	return cfg.BuildMonitors(scratch.Open(scratch.DefaultDirName), nil)
}

func filterByName(monitors []*monitor.Monitor, name string) []*monitor.Monitor {
	if name == "" {
		return monitors
	}
	for _, m := range monitors {
		if m.Name == name {
			return []*monitor.Monitor{m}
		}
	}
	return nil
}

func listTargetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-targets [job-name]",
		Short: "Print each monitor's name and its resolved targets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			monitors, err := loadMonitors(cfgPath)
			if err != nil {
				return err
			}

			var name string
			if len(args) == 1 {
				name = args[0]
			}

			tbl := newTable("Monitor", "Target")
			for _, m := range filterByName(monitors, name) {
				targets, err := m.Targets()
				if err != nil {
					return err
				}
				if len(targets) == 0 {
					tbl.AddRow(m.Name, "(scheduler, no targets)")
					continue
				}
				for _, t := range targets {
					tbl.AddRow(m.Name, t)
				}
			}
			tbl.Print()
			return nil
		},
	}
}

func listScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-schedule [job-name]",
		Short: "Print the next five scheduled fire times per monitor",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			monitors, err := loadMonitors(cfgPath)
			if err != nil {
				return err
			}

			var name string
			if len(args) == 1 {
				name = args[0]
			}

			tbl := newTable("Monitor", "Next Fire Times")
			for _, m := range filterByName(monitors, name) {
				times := m.NextFireTimes(5)
				strs := make([]string, len(times))
				for i, t := range times {
					strs[i] = t.Format(time.RFC3339)
				}
				tbl.AddRow(m.Name, strings.Join(strs, ", "))
			}
			tbl.Print()
			return nil
		},
	}
}
