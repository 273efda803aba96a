package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ocwc/oeweek2022/core/mailing"
)

func (cli *commandLine) emailQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emailqueue",
		Short: "Manage the outgoing email queue",
	}

	send := &cobra.Command{
		Use:   "send",
		Short: "Send one batch of unsent emails",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := cli.queue.SendBatch(cmd.Context())
			if err != nil {
				return err
			}
			printCount(cmd, n, "emails sent")
			return nil
		},
	}

	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List the queued emails",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st := mailing.Status(strings.ToUpper(status))
			if st != mailing.StatusUnsent && st != mailing.StatusSent {
				return fmt.Errorf("unknown status %q", status)
			}
			items, err := cli.queue.List(cmd.Context(), st)
			if err != nil {
				return err
			}
			for _, item := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "#%d\t%s\t%d\t%s\t%s\n", item.ID, item.Status, item.Priority, item.Recipients, item.Subject)
			}
			printCount(cmd, len(items), "emails")
			return nil
		},
	}
	list.Flags().StringVar(&status, "status", string(mailing.StatusUnsent), "UNSENT or SENT")

	clean := &cobra.Command{
		Use:   "clean",
		Short: "Delete the stale unsent emails",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := cli.queue.Clean(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			printCount(cmd, n, "emails deleted")
			return nil
		},
	}

	var really bool
	mrproper := &cobra.Command{
		Use:   "mrproper",
		Short: "Delete every email of the queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := cli.queue.MrProper(cmd.Context(), really)
			if err != nil {
				return err
			}
			printCount(cmd, n, "emails deleted")
			return nil
		},
	}
	mrproper.Flags().BoolVar(&really, "really-proper", false, "confirm the deletion")

	cmd.AddCommand(send, list, clean, mrproper)
	return cmd
}
