package main

import (
	"github.com/spf13/cobra"
)

func (cli *commandLine) fetchScreenshotsCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "fetchscreenshots",
		Short: "Fetch the missing screenshots of the current edition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := cli.shots.FetchPending(cmd.Context(), workers)
			if err != nil {
				return err
			}
			printCount(cmd, n, "screenshots fetched")
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", cli.conf.Screenshots.Workers, "number of concurrent captures")
	return cmd
}

func (cli *commandLine) notifySubmittersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notifysubmitters",
		Short: "Email the submitters of published resources not notified yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := cli.notifier.NotifySubmitters(cmd.Context())
			if err != nil {
				return err
			}
			printCount(cmd, n, "submitters notified")
			return nil
		},
	}
}

func (cli *commandLine) guessLocationsCmd() *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "guesslocations",
		Short: "Fill the missing coordinates in from the city and country",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := cli.locations.GuessAll(cmd.Context(), year)
			if err != nil {
				return err
			}
			printCount(cmd, n, "resources located")
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", cli.conf.Week.Year, "the edition")
	return cmd
}
