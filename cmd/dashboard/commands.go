package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/authdash/internal/domain"
	"github.com/authdash/internal/session"
)

func openCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Open a route and print it",
		Long: `Open a dashboard route, following redirects the way a browser would.

Private routes check the session first and send you to /login when
it is not authorized. Complete an SSO login with:

  authdash-dashboard open "/sso/callback?code=<code>"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.newApp()
			if err != nil {
				return err
			}
			final, err := app.Open(cmd.Context(), args[0], cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if final != args[0] {
				fmt.Fprintf(cmd.ErrOrStderr(), "(now at %s)\n", final)
			}
			return nil
		},
	}
}

func statusCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the stored session with the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.newApp()
			if err != nil {
				return err
			}
			client := app.Client()
			client.CheckAuthorizationStatus(cmd.Context())

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session: %s\n", client.IsAuthorized())
			if p := client.Profile(); p != nil {
				printProfile(cmd, p)
			}
			return nil
		},
	}
}

func logoutCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.newApp()
			if err != nil {
				return err
			}
			if err := app.Client().Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func watchCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print session changes and keep the token fresh until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.newApp()
			if err != nil {
				return err
			}
			client := app.Client()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			stopFlag := client.UseIsAuthorized(ctx, true, func(s session.AuthState) {
				fmt.Fprintf(out, "session: %s\n", s)
			})
			defer stopFlag()
			stopProfile := client.UseProfile(func(p *domain.UserDTO) {
				if p != nil {
					printProfile(cmd, p)
				}
			})
			defer stopProfile()
			stopToken := client.TokenState().Subscribe(func(tok string) {
				if tok != "" {
					fmt.Fprintln(out, "token refreshed")
				}
			})
			defer stopToken()

			done := client.StartRefreshTimer(ctx)
			fmt.Fprintf(out, "refreshing every %s, press Ctrl+C to stop\n", client.RefreshSchedule().Delay)
			<-ctx.Done()
			<-done
			return nil
		},
	}
}

func printProfile(cmd *cobra.Command, p *domain.UserDTO) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "  User:    %s\n", p.Username)
	fmt.Fprintf(out, "  Email:   %s\n", p.Email)
	fmt.Fprintf(out, "  Account: %d\n", p.AccountID)
	fmt.Fprintf(out, "  Admin:   %t\n", p.IsAdmin)
}

