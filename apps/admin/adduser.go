package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ocwc/oeweek2022/core"
	"github.com/ocwc/oeweek2022/core/user"
)

func (cli *commandLine) addUserCmd() *cobra.Command {
	var (
		uname, email, name string
		isAdmin, isStaff   bool
	)
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user, or update its password and roles when it exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := promptPassword(cmd)
			if err != nil {
				return err
			}
			var roles []string
			switch {
			case isAdmin:
				roles = user.AllRoles
			case isStaff:
				roles = user.StaffRoles
			}
			usr, err := cli.addUser(cmd.Context(), name, uname, email, pwd, roles)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "saved user", usr.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&uname, "username", "", "the username")
	cmd.Flags().StringVar(&email, "email", "", "the email address")
	cmd.Flags().StringVar(&name, "name", "", "the full name")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "grant every role")
	cmd.Flags().BoolVar(&isStaff, "staff", false, "grant the staff role")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(ctx context.Context, name, uname, email, pwd string, roles []string) (user.User, error) {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: uname})
	if errors.Is(err, user.ErrNotFound) {
		usr, err = cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	}
	exists := err == nil
	if err != nil && !errors.Is(err, user.ErrNotFound) {
		return usr, err
	}

	now := time.Now().UTC()
	if !exists {
		usr = user.User{Username: uname, Email: email, CreatedAt: now}
	}
	if name = core.CleanString(name); name != "" {
		usr.Name = name
	}
	if roles != nil {
		usr.Roles = roles
	}
	usr.IsActive = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return usr, err
	}

	if exists {
		return cli.usrRepo.UpdateUser(ctx, usr)
	}
	return cli.usrRepo.CreateUser(ctx, usr)
}
