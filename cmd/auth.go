package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"disqusctl/internal/cli"
	"disqusctl/pkg/disqus"
)

// authCmd represents the auth command group
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the stored Disqus identity",
	Long: `Manage the Disqus identity used by API commands.

The auth command group provides subcommands to login, logout, check status,
and refresh the stored access token.

Examples:
  disqusctl auth login                 # Authorize disqusctl in the browser
  disqusctl auth login --no-browser    # Print the authorization URL instead
  disqusctl auth status                # Show authentication status
  disqusctl auth whoami                # Print the Disqus user ID
  disqusctl auth refresh               # Force token refresh
  disqusctl auth logout                # Forget the stored identity`,
}

// authLogoutCmd represents the auth logout command
var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored identity",
	Long: `Remove the stored identity from memory and from the configured store.

Logging out when no identity is stored is not an error.`,
	Args: cobra.NoArgs,
	RunE: runAuthLogout,
}

// authRefreshCmd represents the auth refresh command
var authRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Force token refresh",
	Long: `Exchange the stored refresh token for a new access token.

The refreshed token replaces the stored one. The identity is kept unchanged
when Disqus rejects the refresh.`,
	Args: cobra.NoArgs,
	RunE: runAuthRefresh,
}

// authWhoamiCmd represents the auth whoami command
var authWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Print the authenticated Disqus user ID",
	Long: `Print the Disqus user ID of the stored identity.

Exits with code 2 when no identity is stored, which makes it usable as a
login check in scripts.`,
	Args: cobra.NoArgs,
	RunE: runAuthWhoami,
}

// authPrint prints output only if the --quiet flag is not set.
// Use this for progress messages and non-essential output.
func authPrint(cmd *cobra.Command, format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), format, args...)
	}
}

// authPrintln prints a line only if the --quiet flag is not set.
func authPrintln(cmd *cobra.Command, a ...interface{}) {
	if !quiet {
		fmt.Fprintln(cmd.OutOrStdout(), a...)
	}
}

func init() {
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authRefreshCmd)
	authCmd.AddCommand(authWhoamiCmd)
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	wasAuthenticated := s.client.IsAuthenticated()
	if err := s.client.Logout(cmd.Context()); err != nil {
		return fmt.Errorf("failed to remove stored identity: %w", err)
	}

	if wasAuthenticated {
		authPrintln(cmd, "Logged out of Disqus.")
	} else {
		authPrintln(cmd, "Not logged in.")
	}
	return nil
}

func runAuthRefresh(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()

	spin := cli.StartSpinner(cmd.ErrOrStderr(), "Refreshing access token...", quiet)
	err = s.client.Refresh(cmd.Context())
	switch {
	case errors.Is(err, disqus.ErrNotAuthenticated):
		spin.Stop()
		return &cli.AuthRequiredError{}
	case errors.Is(err, disqus.ErrNoRefreshToken):
		spin.Fail("No refresh token stored")
		return &cli.AuthFailedError{Reason: err}
	case err != nil:
		spin.Fail("Refresh failed")
		return &cli.AuthFailedError{Reason: err}
	}
	spin.Succeed("Access token refreshed")
	return nil
}

func runAuthWhoami(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	if !s.client.IsAuthenticated() {
		return &cli.AuthRequiredError{}
	}
	fmt.Fprintln(cmd.OutOrStdout(), s.client.UserID())
	return nil
}
