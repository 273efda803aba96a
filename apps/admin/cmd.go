package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ocwc/oeweek2022/core"
	"github.com/ocwc/oeweek2022/core/mailing"
	"github.com/ocwc/oeweek2022/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errEmptyPassword = errors.New("the password cannot be empty")
)

type (
	screenshotFetcher interface {
		FetchPending(ctx context.Context, workers int) (int, error)
	}

	submitterNotifier interface {
		NotifySubmitters(ctx context.Context) (int, error)
	}

	locationGuesser interface {
		GuessAll(ctx context.Context, year int) (int, error)
	}

	commandLine struct {
		conf      *core.Config
		db        *sqlx.DB
		usrRepo   user.Repository
		queue     *mailing.Queue
		shots     screenshotFetcher
		notifier  submitterNotifier
		locations locationGuesser
	}
)

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Open Education Week administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		cli.migrateCmd(),
		cli.addUserCmd(),
		cli.resetPasswordCmd(),
		cli.emailQueueCmd(),
		cli.fetchScreenshotsCmd(),
		cli.notifySubmittersCmd(),
		cli.guessLocationsCmd(),
	)
	return root
}

func (cli *commandLine) run(ctx context.Context, args []string, out io.Writer) error {
	root := cli.rootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)
	return root.ExecuteContext(ctx)
}

func promptPassword(cmd *cobra.Command) (string, error) {
	cmd.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	cmd.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errEmptyPassword
	}
	return string(pwd), nil
}

func printCount(cmd *cobra.Command, n int, what string) {
	fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", n, what)
}
