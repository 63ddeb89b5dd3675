package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/core/profile"
	"github.com/trezcool/kipimo/services/scheduler"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf     *core.Config
	db       *sql.DB
	profiles profile.Repository
	jobs     scheduler.Jobs
	out      io.Writer
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Kipimo administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)

	migrateCmd := &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a database migration command (up, down, status, ...)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Help()
				return errHelp
			}
			return cli.migrate(cmd.Context(), args)
		},
	}
	migrateCmd.Flags().SetInterspersed(false)

	addProfileCmd := &cobra.Command{
		Use:   "addprofile",
		Short: "Create a teacher or student profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			role, _ := cmd.Flags().GetString("role")
			if name == "" || email == "" {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.addProfile(cmd.Context(), profile.NewProfile{FullName: name, Email: email, Role: role})
		},
	}
	addProfileCmd.Flags().String("name", "", "The profile's full name.")
	addProfileCmd.Flags().String("email", "", "The profile's email.")
	addProfileCmd.Flags().String("role", profile.RoleStudent, "teacher or student.")

	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token for a profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, _ := cmd.Flags().GetString("profile")
			if email == "" {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.token(cmd.Context(), email)
		},
	}
	tokenCmd.Flags().String("profile", "", "The profile's email.")

	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Apply pending proficiency updates now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cli.reconcile(cmd.Context())
		},
	}

	expireCmd := &cobra.Command{
		Use:   "expire",
		Short: "Auto-submit sessions whose time is up",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cli.expire(cmd.Context())
		},
	}

	root.AddCommand(migrateCmd, addProfileCmd, tokenCmd, reconcileCmd, expireCmd)
	return root
}

// run executes the command in `args` (program name first).
func (cli *commandLine) run(args []string) error {
	if cli.out == nil {
		cli.out = os.Stdout
	}
	root := cli.rootCmd()
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func (cli *commandLine) printf(format string, a ...interface{}) {
	_, _ = fmt.Fprintf(cli.out, format, a...)
}
