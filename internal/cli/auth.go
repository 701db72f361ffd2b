package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session token",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(func(ctx context.Context, e *env) error {
			if err := e.sessions.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(func(ctx context.Context, e *env) error {
			s, _, err := e.authed(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s>\n", s.User.Username, s.User.Email)
			fmt.Fprintf(out, "role: %s\n", s.User.Role)
			if !s.Claims.ExpiresAt.IsZero() {
				fmt.Fprintf(out, "expires: %s\n", s.Claims.ExpiresAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Reset a forgotten password",
}

var resetRequestCmd = &cobra.Command{
	Use:   "request",
	Short: "Email a reset token",
	RunE:  runResetRequest,
}

var resetConfirmCmd = &cobra.Command{
	Use:   "confirm",
	Short: "Set a new password using a reset token",
	RunE:  runResetConfirm,
}

func init() {
	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "password (prompted when omitted)")

	resetRequestCmd.Flags().String("email", "", "account email")
	resetConfirmCmd.Flags().String("token", "", "reset token from the email")
	resetCmd.AddCommand(resetRequestCmd)
	resetCmd.AddCommand(resetConfirmCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")

	if email == "" || password == "" {
		fields := []huh.Field{}
		if email == "" {
			fields = append(fields, huh.NewInput().Title("Email").Value(&email))
		}
		if password == "" {
			fields = append(fields, huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&password))
		}
		if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
			return err
		}
	}

	return withEnv(func(ctx context.Context, e *env) error {
		s, err := e.sessions.Login(ctx, strings.TrimSpace(email), password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", s.User.Username)
		return nil
	})
}

func runResetRequest(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	if email == "" {
		if err := huh.NewInput().Title("Email").Value(&email).Run(); err != nil {
			return err
		}
	}

	return withEnv(func(ctx context.Context, e *env) error {
		msg, err := e.client.RequestPasswordReset(ctx, strings.TrimSpace(email))
		if err != nil {
			return err
		}
		if msg == "" {
			msg = "Check your email for the reset token."
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	})
}

func runResetConfirm(cmd *cobra.Command, args []string) error {
	token, _ := cmd.Flags().GetString("token")
	var password, repeat string

	fields := []huh.Field{}
	if token == "" {
		fields = append(fields, huh.NewInput().Title("Reset token").Value(&token))
	}
	fields = append(fields,
		huh.NewInput().Title("New password").EchoMode(huh.EchoModePassword).Value(&password),
		huh.NewInput().Title("Repeat password").EchoMode(huh.EchoModePassword).Value(&repeat),
	)
	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return err
	}

	return withEnv(func(ctx context.Context, e *env) error {
		msg, err := e.client.ResetPassword(ctx, strings.TrimSpace(token), password, repeat)
		if err != nil {
			return err
		}
		if msg == "" {
			msg = "Password reset. Log in with the new password."
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	})
}
