package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and cache the current user",
	Long: `Log in with --username and --password. The current user is cached in
the session store; with the redis store and bearer auth the session is
reused by later invocations.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and clear the cached user",
	RunE:  runLogout,
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	if username == "" {
		return errors.New("--username is required")
	}

	user, err := a.auth.Login(cmd.Context(), username, password)
	if err != nil {
		return explain(err)
	}

	fmt.Printf("Logged in as %s (%s)\n", user.Username, user.Role)

	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.auth.Logout(cmd.Context()); err != nil {
		return err
	}

	fmt.Println("Logged out")

	return nil
}
