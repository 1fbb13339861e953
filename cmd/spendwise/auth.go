package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spendwise/spendwise/internal/cli"
)

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in and store the access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := buildClient()
			if err != nil {
				return err
			}

			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				password, err = cli.ReadPassword("Password: ")
				if err != nil {
					return err
				}
			}
			if password == "" {
				return fmt.Errorf("password cannot be empty")
			}

			if err := client.Login(cmd.Context(), args[0], password); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess("Logged in as " + args[0]))
			return nil
		},
	}
	cmd.Flags().String("password", "", "password (prompted when omitted)")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and clear the stored token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, _, err := buildClient()
			if err != nil {
				return err
			}
			// The local token clears even when the server call fails; the
			// session is over either way.
			if err := client.Logout(cmd.Context()); err != nil {
				fmt.Println(cli.FormatWarning("Server logout failed, local session cleared anyway"))
				return nil
			}
			fmt.Println(cli.FormatSuccess("Logged out"))
			return nil
		},
	}
}

func registerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register <email>",
		Short: "Create a new account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := buildClient()
			if err != nil {
				return err
			}

			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				password, err = cli.ReadPassword("Password: ")
				if err != nil {
					return err
				}
				confirm, err := cli.ReadPassword("Confirm password: ")
				if err != nil {
					return err
				}
				if password != confirm {
					return fmt.Errorf("passwords do not match")
				}
			}
			if password == "" {
				return fmt.Errorf("password cannot be empty")
			}

			if err := client.Register(cmd.Context(), args[0], password); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess("Account created; run: spendwise login " + args[0]))
			return nil
		},
	}
	cmd.Flags().String("password", "", "password (prompted when omitted)")
	return cmd
}

func forgotPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forgot-password <email>",
		Short: "Request a password reset code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := buildClient()
			if err != nil {
				return err
			}
			if err := client.ForgotPassword(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess("Reset code sent to " + args[0]))
			return nil
		},
	}
}

func restorePasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore-password <email>",
		Short: "Set a new password with the emailed reset code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := buildClient()
			if err != nil {
				return err
			}

			code, _ := cmd.Flags().GetString("code")
			if code == "" {
				return fmt.Errorf("--code is required")
			}
			password, err := cli.ReadPassword("New password: ")
			if err != nil {
				return err
			}
			if password == "" {
				return fmt.Errorf("password cannot be empty")
			}

			if err := client.RestorePassword(cmd.Context(), args[0], code, password); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess("Password updated; run: spendwise login " + args[0]))
			return nil
		},
	}
	cmd.Flags().String("code", "", "reset code from the email")
	return cmd
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, client, err := buildStore(cmd.Context())
			if err != nil {
				return err
			}
			profile, err := client.Profile(cmd.Context())
			if err != nil {
				return err
			}
			if profile.Name != "" {
				fmt.Printf("%s <%s>\n", profile.Name, profile.Email)
			} else {
				fmt.Println(profile.Email)
			}
			return nil
		},
	}
}
