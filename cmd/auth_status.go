package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"disqusctl/internal/cli"
	"disqusctl/pkg/disqus"
)

// statusVerifyTimeout bounds the users/details call made by --verify.
const statusVerifyTimeout = 10 * time.Second

// Status-specific flags
var (
	statusVerify bool
)

// authStatusCmd represents the auth status command
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	Long: `Show whether an identity is stored, who it belongs to, when its token
expires and whether it can be refreshed.

Examples:
  disqusctl auth status                # Show local status
  disqusctl auth status --verify       # Also check the token with Disqus`,
	Args: cobra.NoArgs,
	RunE: runAuthStatus,
}

func init() {
	authStatusCmd.Flags().BoolVar(&statusVerify, "verify", false, "Verify the token with a users/details call")
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	authPrintln(cmd, "Disqus")
	authPrint(cmd, "  Store:     %s\n", s.store.Kind)

	token, err := s.client.TokenSource().Token()
	if errors.Is(err, disqus.ErrNotAuthenticated) {
		authPrint(cmd, "  Status:    %s\n", text.FgYellow.Sprint("Not logged in"))
		authPrint(cmd, "             Run: disqusctl auth login\n")
		return nil
	}
	if err != nil {
		return err
	}

	if statusVerify {
		if err := verifyToken(cmd, s.client); err != nil {
			return nil
		}
	}

	authPrint(cmd, "  Status:    %s\n", text.FgGreen.Sprint("Authenticated"))
	authPrint(cmd, "  User ID:   %s\n", s.client.UserID())
	if name := s.client.Username(); name != "" {
		authPrint(cmd, "  Username:  %s\n", name)
	}
	if !token.Expiry.IsZero() {
		authPrint(cmd, "  Expires:   %s\n", cli.FormatExpiry(token.Expiry, time.Now()))
	}
	if token.RefreshToken != "" {
		authPrint(cmd, "  Refresh:   %s\n", text.FgGreen.Sprint("Available"))
	} else {
		authPrint(cmd, "  Refresh:   %s\n", text.FgYellow.Sprint("Not available (re-auth required on expiry)"))
	}
	return nil
}

// verifyToken calls users/details with the stored token and prints why the
// check failed, if it did.
func verifyToken(cmd *cobra.Command, client *disqus.Client) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), statusVerifyTimeout)
	defer cancel()

	_, err := client.Get(ctx, "users/details", true, nil)
	var apiErr *disqus.APIError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &apiErr):
		authPrint(cmd, "  Status:    %s\n", text.FgYellow.Sprint("Token rejected"))
		authPrint(cmd, "             %s\n", cli.Describe(err))
		authPrint(cmd, "             Run: disqusctl auth login --force\n")
	default:
		authPrint(cmd, "  Status:    %s\n", text.FgRed.Sprint("Unverified"))
		authPrint(cmd, "             %s\n", cli.Describe(err))
	}
	return err
}
